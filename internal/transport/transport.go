// Package transport opens XMPP client sessions for the connection manager.
package transport

import (
	"context"
	"crypto/tls"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"mellium.im/sasl"
	"mellium.im/xmlstream"
	"mellium.im/xmpp"
	"mellium.im/xmpp/dial"
	"mellium.im/xmpp/jid"

	"github.com/dshills/aparte/internal/config"
	"github.com/dshills/aparte/internal/conn"
	"github.com/dshills/aparte/internal/logger"
	"github.com/dshills/aparte/internal/stanza"
)

// ErrNoPassword is returned when dialing an account without a password.
var ErrNoPassword = errors.New("account has no password")

// Dialer negotiates client sessions: TLS, SASL and resource binding.
type Dialer struct {
	log logger.Logger
}

// NewDialer creates a dialer.
func NewDialer(log logger.Logger) *Dialer {
	if log == nil {
		log = logger.Nop()
	}
	return &Dialer{log: log.Named("transport")}
}

// Dial implements conn.Dialer.
func (d *Dialer) Dial(ctx context.Context, acct config.Account) (conn.Session, error) {
	if acct.Password == "" {
		return nil, ErrNoPassword
	}
	origin, err := acct.Address()
	if err != nil {
		return nil, err
	}
	if acct.Resource != "" {
		if origin, err = origin.WithResource(acct.Resource); err != nil {
			return nil, fmt.Errorf("resource %q: %w", acct.Resource, err)
		}
	}

	netConn, err := d.dial(ctx, acct, origin)
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		ServerName:         origin.Domainpart(),
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: acct.InsecureSkipVerify,
	}
	sess, err := xmpp.NewClientSession(ctx, origin, netConn,
		xmpp.StartTLS(tlsConfig),
		xmpp.SASL("", acct.Password,
			sasl.ScramSha256Plus, sasl.ScramSha256,
			sasl.ScramSha1Plus, sasl.ScramSha1,
			sasl.Plain,
		),
		xmpp.BindResource(),
	)
	if err != nil {
		_ = netConn.Close()
		return nil, fmt.Errorf("negotiate session for %s: %w", origin.Bare(), err)
	}

	d.log.Debug("session negotiated", logger.Stringer("jid", sess.LocalAddr()))
	return &session{sess: sess, log: d.log}, nil
}

// dial connects to the configured endpoint, or looks up the server through
// DNS when none is configured.
func (d *Dialer) dial(ctx context.Context, acct config.Account, origin jid.JID) (net.Conn, error) {
	if acct.Server == "" && acct.Port == 0 {
		c, err := dial.Client(ctx, "tcp", origin)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", origin.Domainpart(), err)
		}
		return c, nil
	}

	endpoint, err := acct.Endpoint()
	if err != nil {
		return nil, err
	}
	var nd net.Dialer
	c, err := nd.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return c, nil
}

// session adapts an xmpp.Session to conn.Session.
type session struct {
	sess *xmpp.Session
	log  logger.Logger

	// Only the reader goroutine touches r and dec.
	r   xmlstream.TokenReadCloser
	dec *xml.Decoder

	closeOnce sync.Once
	closeErr  error
}

func (s *session) LocalAddr() jid.JID {
	return s.sess.LocalAddr()
}

func (s *session) Recv(ctx context.Context) (stanza.Stanza, error) {
	if s.dec == nil {
		s.r = s.sess.TokenReader()
		s.dec = xml.NewTokenDecoder(s.r)
	}

	for {
		tok, err := s.dec.Token()
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		st, err := Decode(s.dec, start)
		var derr *DecodeError
		if errors.As(err, &derr) {
			s.log.Warn("dropping malformed stanza", logger.String("element", derr.Name), logger.Error(derr.Err))
			continue
		}
		if err != nil {
			return nil, err
		}
		if st != nil {
			return st, nil
		}
	}
}

func (s *session) Send(ctx context.Context, st stanza.Stanza) error {
	return s.sess.Encode(ctx, st)
}

func (s *session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.sess.Close()
		if err := s.sess.Conn().Close(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}

// DecodeError reports a stanza that was read in full but could not be
// decoded. The stream itself is intact.
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode reads the element opened by start into a stanza. Elements that are
// not stanzas are skipped and reported as nil. The element is always
// consumed before decoding, so a *DecodeError leaves d at the next sibling.
func Decode(d *xml.Decoder, start xml.StartElement) (stanza.Stanza, error) {
	var st stanza.Stanza
	switch start.Name.Local {
	case "iq":
		st = &stanza.IQ{}
	case "presence":
		st = &stanza.Presence{}
	case "message":
		st = &stanza.Message{}
	default:
		return nil, d.Skip()
	}

	body, err := xmlstream.ReadAll(xmlstream.Inner(d))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", start.Name.Local, err)
	}
	el := xml.NewTokenDecoder(xmlstream.Wrap(&tokens{toks: body}, start.Copy()))
	if err := el.Decode(st); err != nil {
		return nil, &DecodeError{Name: start.Name.Local, Err: err}
	}
	return st, nil
}

// tokens replays a buffered element body.
type tokens struct {
	toks []xml.Token
}

func (t *tokens) Token() (xml.Token, error) {
	if len(t.toks) == 0 {
		return nil, io.EOF
	}
	tok := t.toks[0]
	t.toks = t.toks[1:]
	return tok, nil
}

// Encode writes st to e.
func Encode(e *xml.Encoder, st stanza.Stanza) error {
	if err := e.Encode(st); err != nil {
		return fmt.Errorf("encode %s: %w", st.Name(), err)
	}
	return e.Flush()
}
