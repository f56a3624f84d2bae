package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/aparte/internal/contact"
	"github.com/dshills/aparte/internal/event"
)

// eventTable converts ev to the table handed to Lua handlers. Every table has
// the fields kind and account.
func eventTable(L *lua.LState, ev event.Event) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("kind", lua.LString(ev.Kind()))

	set := func(key, val string) {
		if val != "" {
			t.RawSetString(key, lua.LString(val))
		}
	}

	switch ev := ev.(type) {
	case event.Connected:
		set("account", ev.Account.String())
		set("jid", ev.JID.String())
	case event.Disconnected:
		set("account", ev.Account.String())
		if ev.Err != nil {
			set("error", ev.Err.Error())
		}
	case event.Disco:
		set("account", ev.Account.String())
	case event.Iq:
		set("account", ev.Account.String())
		if ev.IQ != nil {
			set("id", ev.IQ.ID)
			set("type", string(ev.IQ.Type))
			set("from", ev.IQ.From.String())
		}
	case event.Presence:
		set("account", ev.Account.String())
		if p := ev.Presence; p != nil {
			set("from", p.From.String())
			set("type", string(p.Type))
			set("show", string(p.Show))
			set("status", p.Status)
		}
	case event.Message:
		set("account", ev.Account.String())
		if m := ev.Message; m != nil {
			set("from", m.From.String())
			set("type", string(m.Type))
			set("subject", m.Subject)
			set("body", m.Body)
		}
	case event.Contact:
		set("account", ev.Account.String())
		setContact(L, t, ev.Contact)
	case event.ContactUpdate:
		set("account", ev.Account.String())
		setContact(L, t, ev.Contact)
	case event.Bookmark:
		set("account", ev.Account.String())
		set("jid", ev.Bookmark.JID.String())
		set("name", ev.Bookmark.Name)
		set("nick", ev.Bookmark.Nick)
		t.RawSetString("autojoin", lua.LBool(ev.Bookmark.Autojoin))
	case event.Join:
		set("account", ev.Account.String())
		set("jid", ev.JID.String())
		t.RawSetString("password", lua.LBool(ev.Password))
	}
	return t
}

func setContact(L *lua.LState, t *lua.LTable, c contact.Contact) {
	t.RawSetString("jid", lua.LString(c.JID.String()))
	t.RawSetString("name", lua.LString(c.DisplayName()))
	t.RawSetString("subscription", lua.LString(c.Subscription))
	t.RawSetString("presence", lua.LString(c.Presence.String()))
	groups := L.NewTable()
	for _, g := range c.Groups {
		groups.Append(lua.LString(g))
	}
	t.RawSetString("groups", groups)
}
