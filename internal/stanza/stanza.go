// Package stanza defines the decoded protocol values exchanged between the
// core and the transport.
//
// The core never touches raw XML. The transport decodes inbound elements into
// these types and encodes outbound values; the xml tags below describe that
// mapping and nothing else.
package stanza

import (
	"encoding/xml"

	"github.com/google/uuid"
	"mellium.im/xmpp/jid"
)

// Namespaces used by the payloads in this package.
const (
	NSClient           = "jabber:client"
	NSRoster           = "jabber:iq:roster"
	NSDiscoInfo        = "http://jabber.org/protocol/disco#info"
	NSPubSub           = "http://jabber.org/protocol/pubsub"
	NSPubSubOwner      = "http://jabber.org/protocol/pubsub#owner"
	NSDataForms        = "jabber:x:data"
	NSMUC              = "http://jabber.org/protocol/muc"
	NSStanzas          = "urn:ietf:params:xml:ns:xmpp-stanzas"
	NSBookmarks        = "storage:bookmarks"
	NSBookmarks2       = "urn:xmpp:bookmarks:1"
	NSBookmarks2Compat = "urn:xmpp:bookmarks:1#compat"
)

// Stanza is one of *IQ, *Presence or *Message.
type Stanza interface {
	// Name returns the element name of the stanza.
	Name() string

	stanza()
}

// NewID returns a fresh random stanza identifier.
func NewID() string {
	return uuid.NewString()
}

// IQType is the type attribute of an IQ stanza.
type IQType string

// IQ types.
const (
	GetIQ    IQType = "get"
	SetIQ    IQType = "set"
	ResultIQ IQType = "result"
	ErrorIQ  IQType = "error"
)

// IQ is a request/response stanza. At most one payload field is set.
type IQ struct {
	XMLName xml.Name `xml:"iq"`
	ID      string   `xml:"id,attr"`
	To      jid.JID  `xml:"to,attr,omitempty"`
	From    jid.JID  `xml:"from,attr,omitempty"`
	Type    IQType   `xml:"type,attr"`

	Roster      *RosterQuery `xml:"jabber:iq:roster query,omitempty"`
	DiscoInfo   *DiscoInfo   `xml:"http://jabber.org/protocol/disco#info query,omitempty"`
	PubSub      *PubSub      `xml:"http://jabber.org/protocol/pubsub pubsub,omitempty"`
	PubSubOwner *PubSubOwner `xml:"http://jabber.org/protocol/pubsub#owner pubsub,omitempty"`
	Error       *Error       `xml:"error,omitempty"`
}

// NewIQ returns an IQ of the given type addressed to to, with a fresh ID.
func NewIQ(typ IQType, to jid.JID) *IQ {
	return &IQ{ID: NewID(), Type: typ, To: to}
}

// Reply returns an empty result IQ answering iq.
func (iq *IQ) Reply() *IQ {
	return &IQ{ID: iq.ID, Type: ResultIQ, To: iq.From}
}

// Name implements Stanza.
func (*IQ) Name() string { return "iq" }

func (*IQ) stanza() {}

// PresenceType is the type attribute of a presence stanza. The empty value
// means available.
type PresenceType string

// Presence types.
const (
	AvailablePresence    PresenceType = ""
	UnavailablePresence  PresenceType = "unavailable"
	SubscribePresence    PresenceType = "subscribe"
	SubscribedPresence   PresenceType = "subscribed"
	UnsubscribePresence  PresenceType = "unsubscribe"
	UnsubscribedPresence PresenceType = "unsubscribed"
	ErrorPresence        PresenceType = "error"
)

// Show is the availability sub-state carried by a presence.
type Show string

// Show values. ShowNone means plain availability.
const (
	ShowNone Show = ""
	ShowAway Show = "away"
	ShowChat Show = "chat"
	ShowDnd  Show = "dnd"
	ShowXa   Show = "xa"
)

// Presence announces availability.
type Presence struct {
	XMLName  xml.Name     `xml:"presence"`
	ID       string       `xml:"id,attr,omitempty"`
	To       jid.JID      `xml:"to,attr,omitempty"`
	From     jid.JID      `xml:"from,attr,omitempty"`
	Type     PresenceType `xml:"type,attr,omitempty"`
	Show     Show         `xml:"show,omitempty"`
	Status   string       `xml:"status,omitempty"`
	Priority int8         `xml:"priority,omitempty"`

	MUC *MUCJoin `xml:"http://jabber.org/protocol/muc x,omitempty"`
}

// Name implements Stanza.
func (*Presence) Name() string { return "presence" }

func (*Presence) stanza() {}

// MUCJoin is the group chat join request element.
type MUCJoin struct {
	Password string `xml:"password,omitempty"`
}

// MessageType is the type attribute of a message.
type MessageType string

// Message types.
const (
	NormalMessage    MessageType = "normal"
	ChatMessage      MessageType = "chat"
	GroupChatMessage MessageType = "groupchat"
	HeadlineMessage  MessageType = "headline"
	ErrorMessage     MessageType = "error"
)

// Message carries a chat message.
type Message struct {
	XMLName xml.Name    `xml:"message"`
	ID      string      `xml:"id,attr,omitempty"`
	To      jid.JID     `xml:"to,attr,omitempty"`
	From    jid.JID     `xml:"from,attr,omitempty"`
	Type    MessageType `xml:"type,attr,omitempty"`
	Subject string      `xml:"subject,omitempty"`
	Body    string      `xml:"body,omitempty"`
}

// Name implements Stanza.
func (*Message) Name() string { return "message" }

func (*Message) stanza() {}

// Error is a stanza level error.
type Error struct {
	Type      string    `xml:"type,attr"`
	Condition Condition `xml:",any"`
	Text      string    `xml:"urn:ietf:params:xml:ns:xmpp-stanzas text,omitempty"`
}

// Condition is the defined condition child of an error.
type Condition struct {
	XMLName xml.Name
}

// NewError returns an error of typ with the defined condition cond.
func NewError(typ, cond string) *Error {
	return &Error{
		Type:      typ,
		Condition: Condition{XMLName: xml.Name{Space: NSStanzas, Local: cond}},
	}
}
