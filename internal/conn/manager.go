package conn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"mellium.im/xmpp/jid"

	"github.com/dshills/aparte/internal/account"
	"github.com/dshills/aparte/internal/config"
	"github.com/dshills/aparte/internal/event"
	"github.com/dshills/aparte/internal/logger"
	"github.com/dshills/aparte/internal/stanza"
)

// DefaultQueueSize is the capacity of each outgoing stanza queue.
const DefaultQueueSize = 64

// Session is an authenticated, bound stream.
type Session interface {
	// LocalAddr returns the full address bound to the session.
	LocalAddr() jid.JID

	// Recv blocks until the next inbound stanza. It fails once the stream
	// ends or the session is closed.
	Recv(ctx context.Context) (stanza.Stanza, error)

	// Send writes one stanza.
	Send(ctx context.Context, st stanza.Stanza) error

	// Close ends the stream and unblocks Recv.
	Close() error
}

// Dialer opens sessions.
type Dialer interface {
	Dial(ctx context.Context, acct config.Account) (Session, error)
}

// Scheduler accepts events for the core loop.
type Scheduler interface {
	Schedule(ev event.Event)
}

type conn struct {
	acct   account.Account
	out    chan stanza.Stanza
	cancel context.CancelFunc
	ready  bool
}

// Manager owns the sessions of every account.
type Manager struct {
	dialer    Dialer
	sched     Scheduler
	log       logger.Logger
	queueSize int

	mu     sync.Mutex
	conns  map[account.Account]*conn
	closed bool
	wg     sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// WithQueueSize sets the outgoing queue capacity of each session.
func WithQueueSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.queueSize = n
		}
	}
}

// NewManager creates a manager that dials with d and schedules events on s.
func NewManager(d Dialer, s Scheduler, opts ...Option) *Manager {
	m := &Manager{
		dialer:    d,
		sched:     s,
		log:       logger.Nop(),
		queueSize: DefaultQueueSize,
		conns:     make(map[account.Account]*conn),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect starts a session for cfg in the background. Connected or
// Disconnected is scheduled once the attempt finishes.
func (m *Manager) Connect(ctx context.Context, cfg config.Account) error {
	acct, err := cfg.ID()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if _, exists := m.conns[acct]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyConnected, acct)
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &conn{
		acct:   acct,
		out:    make(chan stanza.Stanza, m.queueSize),
		cancel: cancel,
	}
	m.conns[acct] = c

	m.wg.Add(1)
	go m.run(ctx, c, cfg)
	return nil
}

// Send queues st for acct without blocking.
func (m *Manager) Send(acct account.Account, st stanza.Stanza) error {
	m.mu.Lock()
	c, ok := m.conns[acct]
	ready := ok && c.ready
	m.mu.Unlock()

	if !ready {
		return fmt.Errorf("%w: %s", ErrNotConnected, acct)
	}

	select {
	case c.out <- st:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrQueueFull, acct)
	}
}

// Disconnect ends the session of acct.
func (m *Manager) Disconnect(acct account.Account) error {
	m.mu.Lock()
	c, ok := m.conns[acct]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotConnected, acct)
	}
	c.cancel()
	return nil
}

// Connected reports whether acct has a bound session.
func (m *Manager) Connected(acct account.Account) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conns[acct]
	return ok && c.ready
}

// Accounts returns the accounts with a bound session, sorted.
func (m *Manager) Accounts() []account.Account {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]account.Account, 0, len(m.conns))
	for acct, c := range m.conns {
		if c.ready {
			out = append(out, acct)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Close ends every session and waits for their goroutines.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	for _, c := range m.conns {
		c.cancel()
	}
	m.mu.Unlock()

	m.wg.Wait()
	return nil
}

func (m *Manager) run(ctx context.Context, c *conn, cfg config.Account) {
	defer m.wg.Done()
	defer c.cancel()

	log := m.log.With(logger.Stringer("account", c.acct))

	sess, err := m.dialer.Dial(ctx, cfg)
	if err != nil {
		log.Warn("connection failed", logger.Error(err))
		m.remove(c)
		m.sched.Schedule(event.Disconnected{Account: c.acct, Err: err})
		return
	}

	m.mu.Lock()
	c.ready = true
	m.mu.Unlock()

	log.Info("connected", logger.Stringer("jid", sess.LocalAddr()))
	m.sched.Schedule(event.Connected{Account: c.acct, JID: sess.LocalAddr()})

	err = m.serve(ctx, c, sess)
	if ctx.Err() != nil {
		err = nil
	}

	m.remove(c)
	if cerr := sess.Close(); cerr != nil {
		log.Debug("close session", logger.Error(cerr))
	}

	if err != nil {
		log.Warn("disconnected", logger.Error(err))
	} else {
		log.Info("disconnected")
	}
	m.sched.Schedule(event.Disconnected{Account: c.acct, Err: err})
}

// serve runs the reader and writer until either fails or ctx is done.
func (m *Manager) serve(ctx context.Context, c *conn, sess Session) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			st, err := sess.Recv(gctx)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
			if ev := inbound(c.acct, st); ev != nil {
				m.sched.Schedule(ev)
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case st := <-c.out:
				if err := sess.Send(gctx, st); err != nil {
					return fmt.Errorf("send %s: %w", st.Name(), err)
				}
			}
		}
	})

	// Recv only returns once the stream is closed.
	g.Go(func() error {
		<-gctx.Done()
		_ = sess.Close()
		return nil
	})

	err := g.Wait()
	if errors.Is(err, io.EOF) {
		err = event.ErrConnectionLost
	}
	return err
}

func (m *Manager) remove(c *conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conns[c.acct] == c {
		delete(m.conns, c.acct)
	}
}

// inbound maps a stanza to the event carrying it.
func inbound(acct account.Account, st stanza.Stanza) event.Event {
	switch st := st.(type) {
	case *stanza.IQ:
		return event.Iq{Account: acct, IQ: st}
	case *stanza.Presence:
		return event.Presence{Account: acct, Presence: st}
	case *stanza.Message:
		return event.Message{Account: acct, Message: st}
	default:
		return nil
	}
}
