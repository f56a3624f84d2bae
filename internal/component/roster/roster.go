// Package roster keeps the contact list of every account and tracks the
// presence of each contact.
package roster

import (
	"sort"

	"mellium.im/xmpp/jid"

	"github.com/dshills/aparte/internal/account"
	"github.com/dshills/aparte/internal/contact"
	"github.com/dshills/aparte/internal/core"
	"github.com/dshills/aparte/internal/event"
	"github.com/dshills/aparte/internal/logger"
	"github.com/dshills/aparte/internal/stanza"
)

// State is the roster state of one account.
type State uint8

const (
	// Uninitialized is the state before the account connects.
	Uninitialized State = iota
	// Requested means a roster get was sent and no result arrived yet.
	Requested
	// Populated means a roster result was applied.
	Populated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Requested:
		return "requested"
	case Populated:
		return "populated"
	default:
		return "unknown"
	}
}

// Component requests the roster on connect and applies results, pushes and
// presences to the contact set.
type Component struct {
	log      logger.Logger
	contacts map[contact.Key]*contact.Contact
	states   map[account.Account]State
}

// New creates the roster component.
func New() *Component {
	return &Component{
		log:      logger.Nop(),
		contacts: make(map[contact.Key]*contact.Contact),
		states:   make(map[account.Account]State),
	}
}

// Name implements core.Component.
func (r *Component) Name() string { return "roster" }

// Init implements core.Component.
func (r *Component) Init(c *core.Core) error {
	r.log = c.Log().Named("roster")
	return nil
}

// OnEvent implements core.Component.
func (r *Component) OnEvent(c *core.Core, ev event.Event) {
	switch ev := ev.(type) {
	case event.Connected:
		r.requestRoster(c, ev.Account)
	case event.Disconnected:
		r.states[ev.Account] = Uninitialized
	case event.Iq:
		r.handleIQ(c, ev.Account, ev.IQ)
	case event.Presence:
		r.handlePresence(c, ev.Account, ev.Presence)
	}
}

// State returns the roster state of acct.
func (r *Component) State(acct account.Account) State {
	return r.states[acct]
}

// Lookup returns a copy of the contact addr of acct.
func (r *Component) Lookup(acct account.Account, addr jid.JID) (contact.Contact, bool) {
	ct, ok := r.contacts[contact.KeyOf(acct, addr)]
	if !ok {
		return contact.Contact{}, false
	}
	return ct.Clone(), true
}

// Len returns the number of contacts across all accounts.
func (r *Component) Len() int {
	return len(r.contacts)
}

// Contacts returns copies of the contacts of acct sorted by address.
func (r *Component) Contacts(acct account.Account) []contact.Contact {
	var out []contact.Contact
	for key, ct := range r.contacts {
		if key.Account == acct {
			out = append(out, ct.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].JID.String() < out[j].JID.String()
	})
	return out
}

func (r *Component) requestRoster(c *core.Core, acct account.Account) {
	iq := stanza.NewIQ(stanza.GetIQ, jid.JID{})
	iq.Roster = &stanza.RosterQuery{}
	if err := c.Send(acct, iq); err != nil {
		r.log.Warn("roster request not sent", logger.Stringer("account", acct), logger.Error(err))
		return
	}
	r.states[acct] = Requested
}

func (r *Component) handleIQ(c *core.Core, acct account.Account, iq *stanza.IQ) {
	if iq == nil || iq.Roster == nil {
		return
	}
	switch iq.Type {
	case stanza.ResultIQ:
		r.applyItems(c, acct, iq.Roster.Items, false)
		r.states[acct] = Populated
	case stanza.SetIQ:
		r.handlePush(c, acct, iq)
	}
}

// handlePush acknowledges and applies a roster push. Pushes from anyone but
// the account itself are ignored.
func (r *Component) handlePush(c *core.Core, acct account.Account, iq *stanza.IQ) {
	if !iq.From.Equal(jid.JID{}) && !iq.From.Bare().Equal(acct.JID()) {
		r.log.Debug("ignoring roster push from foreign entity", logger.Stringer("from", iq.From))
		return
	}
	if err := c.Send(acct, iq.Reply()); err != nil {
		r.log.Warn("roster push not acknowledged", logger.Error(err))
	}
	r.applyItems(c, acct, iq.Roster.Items, true)
}

func (r *Component) applyItems(c *core.Core, acct account.Account, items []stanza.RosterItem, push bool) {
	for _, item := range items {
		addr, err := jid.Parse(item.JID)
		if err != nil {
			r.log.Warn("skipping roster item",
				logger.String("jid", item.JID),
				logger.Error(err),
			)
			continue
		}
		addr = addr.Bare()
		key := contact.KeyOf(acct, addr)

		if push && item.Subscription == "remove" {
			delete(r.contacts, key)
			continue
		}

		ct := &contact.Contact{
			JID:          addr,
			Name:         item.Name,
			Subscription: item.Subscription,
			Presence:     contact.Unavailable,
			Groups:       append([]string(nil), item.Groups...),
		}

		existing, known := r.contacts[key]
		if push && known {
			ct.Presence = existing.Presence
		}
		r.contacts[key] = ct

		if push && known {
			c.Schedule(event.ContactUpdate{Account: acct, Contact: ct.Clone()})
		} else {
			c.Schedule(event.Contact{Account: acct, Contact: ct.Clone()})
		}
	}
}

func (r *Component) handlePresence(c *core.Core, acct account.Account, p *stanza.Presence) {
	if p == nil || p.From.Equal(jid.JID{}) {
		return
	}

	status, ok := presenceStatus(p)
	if !ok {
		return
	}

	ct, known := r.contacts[contact.KeyOf(acct, p.From)]
	if !known {
		return
	}
	ct.Presence = status
	c.Schedule(event.ContactUpdate{Account: acct, Contact: ct.Clone()})
}

// presenceStatus maps a presence to a contact status. Subscription management
// presences and unknown show values do not change the status.
func presenceStatus(p *stanza.Presence) (contact.Presence, bool) {
	switch p.Type {
	case stanza.AvailablePresence:
	case stanza.UnavailablePresence:
		return contact.Unavailable, true
	default:
		return 0, false
	}

	switch p.Show {
	case stanza.ShowNone:
		return contact.Available, true
	case stanza.ShowAway:
		return contact.Away, true
	case stanza.ShowChat:
		return contact.Chat, true
	case stanza.ShowDnd:
		return contact.Dnd, true
	case stanza.ShowXa:
		return contact.Xa, true
	default:
		return 0, false
	}
}

var _ core.Component = (*Component)(nil)
