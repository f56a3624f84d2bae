// Package muc enters and leaves group chats.
package muc

import (
	"mellium.im/xmpp/jid"

	"github.com/dshills/aparte/internal/account"
	"github.com/dshills/aparte/internal/component/bookmarks"
	"github.com/dshills/aparte/internal/core"
	"github.com/dshills/aparte/internal/event"
	"github.com/dshills/aparte/internal/logger"
	"github.com/dshills/aparte/internal/stanza"
)

// State is the membership of one room.
type State int

const (
	// NotJoined means no join was sent, or the room was left.
	NotJoined State = iota
	// Joining means the join presence was sent and the room has not answered.
	Joining
	// Joined means the room reflected our own presence.
	Joined
)

func (s State) String() string {
	switch s {
	case Joining:
		return "joining"
	case Joined:
		return "joined"
	default:
		return "not joined"
	}
}

// Room is a group chat the account takes part in.
type Room struct {
	JID   jid.JID
	Nick  string
	State State
}

// Component sends join presences for Join events and follows the room
// answers.
type Component struct {
	log   logger.Logger
	rooms map[account.Account]map[string]*Room
}

// New creates the group chat component.
func New() *Component {
	return &Component{
		log:   logger.Nop(),
		rooms: make(map[account.Account]map[string]*Room),
	}
}

// Name implements core.Component.
func (m *Component) Name() string { return "muc" }

// Init defines the join and part commands.
func (m *Component) Init(c *core.Core) error {
	m.log = c.Log().Named("muc")
	if err := c.AddCommand(joinCommand()); err != nil {
		return err
	}
	return c.AddCommand(partCommand())
}

// Room returns the state of room for acct.
func (m *Component) Room(acct account.Account, room jid.JID) (Room, bool) {
	r, ok := m.rooms[acct][room.Bare().String()]
	if !ok {
		return Room{}, false
	}
	return *r, true
}

// Joined returns the bare addresses of the rooms acct is in.
func (m *Component) Joined(acct account.Account) []jid.JID {
	var out []jid.JID
	for _, r := range m.rooms[acct] {
		if r.State == Joined {
			out = append(out, r.JID)
		}
	}
	return out
}

// OnEvent implements core.Component.
func (m *Component) OnEvent(c *core.Core, ev event.Event) {
	switch ev := ev.(type) {
	case event.Join:
		m.join(c, ev)
	case event.Presence:
		m.track(ev.Account, ev.Presence)
	case event.Disconnected:
		delete(m.rooms, ev.Account)
	}
}

func (m *Component) join(c *core.Core, ev event.Join) {
	acct := ev.Account
	if acct.IsZero() {
		cur, ok := c.CurrentAccount()
		if !ok {
			m.log.Warn("join without account", logger.Stringer("room", ev.JID))
			return
		}
		acct = cur
	}

	room := ev.JID.Bare()
	nick := ev.JID.Resourcepart()
	if nick == "" {
		nick = acct.JID().Localpart()
	}
	to, err := room.WithResource(nick)
	if err != nil {
		m.log.Warn("invalid nickname", logger.Stringer("room", room), logger.String("nick", nick), logger.Error(err))
		return
	}

	if r, ok := m.rooms[acct][room.String()]; ok && r.State != NotJoined && r.Nick == nick {
		m.log.Debug("already in room", logger.Stringer("room", room), logger.Stringer("state", r.State))
		return
	}

	p := &stanza.Presence{ID: stanza.NewID(), To: to, MUC: &stanza.MUCJoin{}}
	if ev.Password {
		p.MUC.Password = m.password(c, acct, room)
	}
	if err := c.Send(acct, p); err != nil {
		return
	}

	rooms, ok := m.rooms[acct]
	if !ok {
		rooms = make(map[string]*Room)
		m.rooms[acct] = rooms
	}
	rooms[room.String()] = &Room{JID: room, Nick: nick, State: Joining}
	m.log.Info("joining room", logger.Stringer("room", to))
}

// password looks up the bookmarked password of room.
func (m *Component) password(c *core.Core, acct account.Account, room jid.JID) string {
	b, release, err := core.Get[*bookmarks.Component](c)
	if err != nil {
		m.log.Debug("no bookmarks for password", logger.Error(err))
		return ""
	}
	defer release()
	bm, ok := b.ByJID(acct, room)
	if !ok {
		return ""
	}
	return bm.Password
}

// track follows the presence the room reflects for our own nickname.
func (m *Component) track(acct account.Account, p *stanza.Presence) {
	if p == nil {
		return
	}
	r, ok := m.rooms[acct][p.From.Bare().String()]
	if !ok || p.From.Resourcepart() != r.Nick {
		return
	}
	switch p.Type {
	case stanza.AvailablePresence:
		if r.State != Joined {
			r.State = Joined
			m.log.Info("joined room", logger.Stringer("room", r.JID))
		}
	case stanza.UnavailablePresence, stanza.ErrorPresence:
		delete(m.rooms[acct], r.JID.String())
		m.log.Info("left room", logger.Stringer("room", r.JID), logger.String("type", string(p.Type)))
	}
}

// part sends an unavailable presence to room.
func (m *Component) part(c *core.Core, acct account.Account, room jid.JID) error {
	r, ok := m.rooms[acct][room.Bare().String()]
	if !ok {
		return ErrNotJoined
	}
	to, err := r.JID.WithResource(r.Nick)
	if err != nil {
		return err
	}
	return c.Send(acct, &stanza.Presence{ID: stanza.NewID(), To: to, Type: stanza.UnavailablePresence})
}

var _ core.Component = (*Component)(nil)
