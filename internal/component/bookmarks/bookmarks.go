// Package bookmarks keeps the saved group chats of every account and joins
// the ones marked autojoin.
//
// Bookmarks are stored server side with one of two backends. Legacy is
// assumed until service discovery reports support for the modern node; the
// choice is then fixed for the rest of the session.
package bookmarks

import (
	"fmt"

	"mellium.im/xmpp/jid"

	"github.com/dshills/aparte/internal/account"
	"github.com/dshills/aparte/internal/component/disco"
	"github.com/dshills/aparte/internal/contact"
	"github.com/dshills/aparte/internal/core"
	"github.com/dshills/aparte/internal/event"
	"github.com/dshills/aparte/internal/logger"
	"github.com/dshills/aparte/internal/stanza"
)

// store is the bookmark state of one account.
type store struct {
	backend  Backend
	selected bool
	list     []contact.Bookmark
	byName   map[string]int
	byJID    map[string]int
}

func newStore() *store {
	return &store{
		backend: Legacy{},
		byName:  make(map[string]int),
		byJID:   make(map[string]int),
	}
}

// reindex rebuilds both indices from list. Later entries win on duplicate
// names or addresses.
func (s *store) reindex() {
	s.byName = make(map[string]int, len(s.list))
	s.byJID = make(map[string]int, len(s.list))
	for i, b := range s.list {
		if b.Name != "" {
			s.byName[b.Name] = i
		}
		s.byJID[b.JID.Bare().String()] = i
	}
}

// Component synchronizes bookmarks with the server.
type Component struct {
	log    logger.Logger
	stores map[account.Account]*store
}

// New creates the bookmarks component.
func New() *Component {
	return &Component{
		log:    logger.Nop(),
		stores: make(map[account.Account]*store),
	}
}

// Name implements core.Component.
func (b *Component) Name() string { return "bookmarks" }

// Init advertises modern bookmark support and defines the bookmark command.
// The disco component must be registered first.
func (b *Component) Init(c *core.Core) error {
	b.log = c.Log().Named("bookmarks")

	d, release, err := core.GetMut[*disco.Component](c)
	if err != nil {
		return fmt.Errorf("bookmarks needs service discovery: %w", err)
	}
	d.AddFeature(stanza.NSBookmarks2)
	release()

	return c.AddCommand(commandSpec())
}

func (b *Component) storeFor(acct account.Account) *store {
	s, ok := b.stores[acct]
	if !ok {
		s = newStore()
		b.stores[acct] = s
	}
	return s
}

// Backend returns the backend in use for acct.
func (b *Component) Backend(acct account.Account) Backend {
	return b.storeFor(acct).backend
}

// Bookmarks returns a copy of the bookmarks of acct in server order.
func (b *Component) Bookmarks(acct account.Account) []contact.Bookmark {
	s, ok := b.stores[acct]
	if !ok {
		return nil
	}
	return append([]contact.Bookmark(nil), s.list...)
}

// ByName returns the bookmark of acct with the given name.
func (b *Component) ByName(acct account.Account, name string) (contact.Bookmark, bool) {
	s, ok := b.stores[acct]
	if !ok {
		return contact.Bookmark{}, false
	}
	i, ok := s.byName[name]
	if !ok {
		return contact.Bookmark{}, false
	}
	return s.list[i], true
}

// ByJID returns the bookmark of acct for the room addr.
func (b *Component) ByJID(acct account.Account, addr jid.JID) (contact.Bookmark, bool) {
	s, ok := b.stores[acct]
	if !ok {
		return contact.Bookmark{}, false
	}
	i, ok := s.byJID[addr.Bare().String()]
	if !ok {
		return contact.Bookmark{}, false
	}
	return s.list[i], true
}

// OnEvent implements core.Component.
func (b *Component) OnEvent(c *core.Core, ev event.Event) {
	switch ev := ev.(type) {
	case event.Disco:
		b.handleDisco(c, ev.Account)
	case event.Disconnected:
		if s, ok := b.stores[ev.Account]; ok {
			s.selected = false
			s.backend = Legacy{}
		}
	case event.Iq:
		b.handleIQ(c, ev.Account, ev.IQ)
	}
}

func (b *Component) handleDisco(c *core.Core, acct account.Account) {
	s := b.storeFor(acct)
	if s.selected {
		b.log.Debug("backend already selected", logger.Stringer("account", acct), logger.String("backend", s.backend.Name()))
		return
	}

	d, release, err := core.Get[*disco.Component](c)
	if err != nil {
		b.log.Error("service discovery unavailable", logger.Error(err))
		return
	}
	modern := d.HasFeature(acct, stanza.NSBookmarks2) || d.HasFeature(acct, stanza.NSBookmarks2Compat)
	release()

	if modern {
		s.backend = Modern{}
	}
	s.selected = true
	b.log.Info("bookmark backend selected", logger.Stringer("account", acct), logger.String("backend", s.backend.Name()))

	for _, iq := range s.backend.Setup() {
		_ = c.Send(acct, iq)
	}
	_ = c.Send(acct, s.backend.Retrieve())
}

func (b *Component) handleIQ(c *core.Core, acct account.Account, iq *stanza.IQ) {
	if iq == nil || iq.Type != stanza.ResultIQ || iq.PubSub == nil || iq.PubSub.Items == nil {
		return
	}
	s := b.storeFor(acct)
	items := iq.PubSub.Items
	if items.Node != s.backend.Node() {
		return
	}

	s.list = s.backend.Decode(items.Items, b.log.With(logger.Stringer("account", acct)))
	s.reindex()

	for _, bm := range s.list {
		c.Schedule(event.Bookmark{Account: acct, Bookmark: bm})
		if bm.Autojoin {
			addr := bm.JoinAddress()
			b.log.Info("autojoin", logger.Stringer("room", addr))
			c.Schedule(event.Join{Account: acct, JID: addr, Password: false})
		}
	}
}

// add appends bm locally and sends it to the server.
func (b *Component) add(c *core.Core, acct account.Account, bm contact.Bookmark) error {
	s := b.storeFor(acct)
	s.list = append(s.list, bm)
	s.reindex()

	iq, err := s.backend.Add(bm)
	if err != nil {
		return fmt.Errorf("%s backend: %w", s.backend.Name(), err)
	}
	return c.Send(acct, iq)
}

// remove asks the server to delete the bookmark of room. The local list is
// left as is until the next retrieval.
func (b *Component) remove(c *core.Core, acct account.Account, room jid.JID) error {
	s := b.storeFor(acct)
	iq, err := s.backend.Delete(room)
	if err != nil {
		return fmt.Errorf("%s backend: %w", s.backend.Name(), err)
	}
	return c.Send(acct, iq)
}

var _ core.Component = (*Component)(nil)
