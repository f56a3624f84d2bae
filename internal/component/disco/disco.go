// Package disco performs service discovery against the account server and
// answers discovery queries with the client features.
package disco

import (
	"sort"

	"github.com/dshills/aparte/internal/account"
	"github.com/dshills/aparte/internal/core"
	"github.com/dshills/aparte/internal/event"
	"github.com/dshills/aparte/internal/logger"
	"github.com/dshills/aparte/internal/stanza"
)

// Identity advertised to peers.
var Identity = stanza.DiscoIdentity{Category: "client", Type: "console", Name: "aparte"}

// Component queries the server of each account on connect and records the
// advertised features.
type Component struct {
	log      logger.Logger
	features map[string]struct{}
	server   map[account.Account]map[string]struct{}
}

// New creates the discovery component with the features every client supports.
func New() *Component {
	d := &Component{
		log:      logger.Nop(),
		features: make(map[string]struct{}),
		server:   make(map[account.Account]map[string]struct{}),
	}
	d.AddFeature(stanza.NSDiscoInfo)
	return d
}

// Name implements core.Component.
func (d *Component) Name() string { return "disco" }

// Init implements core.Component.
func (d *Component) Init(c *core.Core) error {
	d.log = c.Log().Named("disco")
	return nil
}

// AddFeature adds ns to the features advertised to peers.
func (d *Component) AddFeature(ns string) {
	d.features[ns] = struct{}{}
}

// Features returns the advertised client features, sorted.
func (d *Component) Features() []string {
	out := make([]string, 0, len(d.features))
	for ns := range d.features {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// HasFeature reports whether the server of acct advertised ns.
func (d *Component) HasFeature(acct account.Account, ns string) bool {
	_, ok := d.server[acct][ns]
	return ok
}

// OnEvent implements core.Component.
func (d *Component) OnEvent(c *core.Core, ev event.Event) {
	switch ev := ev.(type) {
	case event.Connected:
		d.query(c, ev.Account)
	case event.Disconnected:
		delete(d.server, ev.Account)
	case event.Iq:
		if ev.IQ == nil || ev.IQ.DiscoInfo == nil {
			return
		}
		switch ev.IQ.Type {
		case stanza.ResultIQ:
			d.record(c, ev.Account, ev.IQ.DiscoInfo)
		case stanza.GetIQ:
			d.answer(c, ev.Account, ev.IQ)
		}
	}
}

// query asks the account's own bare address, which hosts its personal
// publish/subscribe service.
func (d *Component) query(c *core.Core, acct account.Account) {
	iq := stanza.NewIQ(stanza.GetIQ, acct.JID())
	iq.DiscoInfo = &stanza.DiscoInfo{}
	if err := c.Send(acct, iq); err != nil {
		d.log.Warn("disco query not sent", logger.Stringer("account", acct), logger.Error(err))
	}
}

func (d *Component) record(c *core.Core, acct account.Account, info *stanza.DiscoInfo) {
	features := make(map[string]struct{}, len(info.Features))
	for _, f := range info.Features {
		if f.Var != "" {
			features[f.Var] = struct{}{}
		}
	}
	d.server[acct] = features
	d.log.Debug("server features", logger.Stringer("account", acct), logger.Int("count", len(features)))
	c.Schedule(event.Disco{Account: acct})
}

func (d *Component) answer(c *core.Core, acct account.Account, iq *stanza.IQ) {
	reply := iq.Reply()
	reply.DiscoInfo = &stanza.DiscoInfo{
		Node:       iq.DiscoInfo.Node,
		Identities: []stanza.DiscoIdentity{Identity},
	}
	for _, ns := range d.Features() {
		reply.DiscoInfo.Features = append(reply.DiscoInfo.Features, stanza.DiscoFeature{Var: ns})
	}
	if err := c.Send(acct, reply); err != nil {
		d.log.Warn("disco reply not sent", logger.Error(err))
	}
}

var _ core.Component = (*Component)(nil)
