package bookmarks

import (
	"errors"

	"mellium.im/xmpp/jid"

	"github.com/dshills/aparte/internal/contact"
	"github.com/dshills/aparte/internal/logger"
	"github.com/dshills/aparte/internal/stanza"
)

// ErrNotSupported is returned by backends for operations they cannot encode.
var ErrNotSupported = errors.New("operation not supported by bookmark backend")

// Backend encodes bookmark operations for one storage protocol.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string

	// Node is the publish/subscribe node holding the bookmarks.
	Node() string

	// Setup returns the stanzas preparing the node, in order.
	Setup() []*stanza.IQ

	// CreateNode returns the node creation request.
	CreateNode() (*stanza.IQ, error)

	// ConfigureNode returns the node configuration request.
	ConfigureNode() (*stanza.IQ, error)

	// Retrieve returns the request for every stored bookmark.
	Retrieve() *stanza.IQ

	// Add returns the request storing b.
	Add(b contact.Bookmark) (*stanza.IQ, error)

	// Delete returns the request removing the bookmark of room.
	Delete(room jid.JID) (*stanza.IQ, error)

	// Decode converts retrieved items. Items that cannot be decoded are
	// logged and skipped.
	Decode(items []stanza.Item, log logger.Logger) []contact.Bookmark
}

func retrieveItems(node string) *stanza.IQ {
	iq := stanza.NewIQ(stanza.GetIQ, jid.JID{})
	iq.PubSub = &stanza.PubSub{Items: &stanza.Items{Node: node}}
	return iq
}
