// Package contact holds the contact and bookmark values shared between
// components and carried by events.
package contact

import (
	"slices"

	"mellium.im/xmpp/jid"

	"github.com/dshills/aparte/internal/account"
)

// Presence is the availability of a contact.
type Presence uint8

const (
	// Unavailable is the state of a contact until a presence is received.
	Unavailable Presence = iota
	Available
	Away
	Chat
	Dnd
	Xa
)

// String returns the presence name.
func (p Presence) String() string {
	switch p {
	case Unavailable:
		return "unavailable"
	case Available:
		return "available"
	case Away:
		return "away"
	case Chat:
		return "chat"
	case Dnd:
		return "dnd"
	case Xa:
		return "xa"
	default:
		return "unknown"
	}
}

// Contact is one roster entry with its last known presence.
type Contact struct {
	JID          jid.JID
	Name         string
	Subscription string
	Presence     Presence
	Groups       []string
}

// Clone returns a copy of c that shares no memory with it.
func (c Contact) Clone() Contact {
	c.Groups = slices.Clone(c.Groups)
	return c
}

// DisplayName returns the name if set, the address otherwise.
func (c Contact) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.JID.String()
}

// Key indexes contacts by account and bare address.
type Key struct {
	Account account.Account
	Bare    string
}

// KeyOf returns the key of addr for acct. Full addresses are projected to
// their bare form.
func KeyOf(acct account.Account, addr jid.JID) Key {
	return Key{Account: acct, Bare: addr.Bare().String()}
}
