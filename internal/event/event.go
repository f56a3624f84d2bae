package event

import (
	"mellium.im/xmpp/jid"

	"github.com/dshills/aparte/internal/account"
	"github.com/dshills/aparte/internal/contact"
	"github.com/dshills/aparte/internal/stanza"
)

// Kind names an event variant.
type Kind string

// Event kinds.
const (
	KindConnected     Kind = "connected"
	KindDisconnected  Kind = "disconnected"
	KindDisco         Kind = "disco"
	KindIq            Kind = "iq"
	KindPresence      Kind = "presence"
	KindMessage       Kind = "message"
	KindContact       Kind = "contact"
	KindContactUpdate Kind = "contact_update"
	KindBookmark      Kind = "bookmark"
	KindJoin          Kind = "join"
)

// Event is one of the variants declared in this file.
type Event interface {
	// Kind returns the variant name.
	Kind() Kind

	event()
}

// Connected is scheduled once a session is authenticated and bound.
type Connected struct {
	Account account.Account
	// JID is the full address bound to the session.
	JID jid.JID
}

// Disconnected is scheduled when a session ends or fails to start.
type Disconnected struct {
	Account account.Account
	Err     error
}

// Disco is scheduled when service discovery results are available.
type Disco struct {
	Account account.Account
}

// Iq carries an inbound IQ.
type Iq struct {
	Account account.Account
	IQ      *stanza.IQ
}

// Presence carries an inbound presence.
type Presence struct {
	Account  account.Account
	Presence *stanza.Presence
}

// Message carries an inbound message.
type Message struct {
	Account account.Account
	Message *stanza.Message
}

// Contact is scheduled when a contact is created from a roster result.
type Contact struct {
	Account account.Account
	Contact contact.Contact
}

// ContactUpdate is scheduled when an existing contact changes.
type ContactUpdate struct {
	Account account.Account
	Contact contact.Contact
}

// Bookmark is scheduled for each bookmark retrieved from the server.
type Bookmark struct {
	Account  account.Account
	Bookmark contact.Bookmark
}

// Join asks for a group chat to be entered. JID is the room, with the
// nickname as resource when one is known.
type Join struct {
	Account  account.Account
	JID      jid.JID
	Password bool
}

func (Connected) Kind() Kind     { return KindConnected }
func (Disconnected) Kind() Kind  { return KindDisconnected }
func (Disco) Kind() Kind         { return KindDisco }
func (Iq) Kind() Kind            { return KindIq }
func (Presence) Kind() Kind      { return KindPresence }
func (Message) Kind() Kind       { return KindMessage }
func (Contact) Kind() Kind       { return KindContact }
func (ContactUpdate) Kind() Kind { return KindContactUpdate }
func (Bookmark) Kind() Kind      { return KindBookmark }
func (Join) Kind() Kind          { return KindJoin }

func (Connected) event()     {}
func (Disconnected) event()  {}
func (Disco) event()         {}
func (Iq) event()            {}
func (Presence) event()      {}
func (Message) event()       {}
func (Contact) event()       {}
func (ContactUpdate) event() {}
func (Bookmark) event()      {}
func (Join) event()          {}
