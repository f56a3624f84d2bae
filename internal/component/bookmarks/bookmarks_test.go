package bookmarks

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"mellium.im/xmpp/jid"

	"github.com/dshills/aparte/internal/account"
	"github.com/dshills/aparte/internal/component/disco"
	"github.com/dshills/aparte/internal/contact"
	"github.com/dshills/aparte/internal/core"
	"github.com/dshills/aparte/internal/core/coretest"
	"github.com/dshills/aparte/internal/event"
	"github.com/dshills/aparte/internal/stanza"
)

var alice = account.MustParse("alice@example.com")

// formValue returns the first value of the field named name.
func formValue(f *stanza.DataForm, name string) (string, bool) {
	for _, field := range f.Fields {
		if field.Var == name && len(field.Values) > 0 {
			return field.Values[0], true
		}
	}
	return "", false
}

func setup(t *testing.T) (*Component, *disco.Component, *core.Core, *coretest.Sender, *coretest.Recorder) {
	t.Helper()
	d := disco.New()
	b := New()
	c, sender, rec := coretest.New(t, d, b)
	c.SetCurrentAccount(alice)
	return b, d, c, sender, rec
}

// negotiate delivers a disco result advertising features, which schedules
// the Disco event the component reacts to.
func negotiate(c *core.Core, features ...string) {
	info := &stanza.DiscoInfo{}
	for _, f := range features {
		info.Features = append(info.Features, stanza.DiscoFeature{Var: f})
	}
	c.Schedule(event.Iq{Account: alice, IQ: &stanza.IQ{Type: stanza.ResultIQ, DiscoInfo: info}})
	c.DispatchAll()
}

func itemsResult(node string, items ...stanza.Item) event.Iq {
	return event.Iq{Account: alice, IQ: &stanza.IQ{
		Type:   stanza.ResultIQ,
		PubSub: &stanza.PubSub{Items: &stanza.Items{Node: node, Items: items}},
	}}
}

func sameBookmark(a, b contact.Bookmark) bool {
	return a.JID.Equal(b.JID) &&
		a.Name == b.Name &&
		a.Nick == b.Nick &&
		a.Password == b.Password &&
		a.Autojoin == b.Autojoin
}

func conferenceItem(id, payload string) stanza.Item {
	return stanza.Item{ID: id, Payload: []byte(payload)}
}

func TestInit_RequiresDisco(t *testing.T) {
	c := core.New()
	if err := c.Register(New()); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	err := c.Init()
	var ierr *core.InitError
	if !errors.As(err, &ierr) || ierr.Component != "bookmarks" {
		t.Fatalf("expected init error from bookmarks, got %v", err)
	}
	if !errors.Is(err, core.ErrComponentNotFound) {
		t.Errorf("expected ErrComponentNotFound, got %v", err)
	}
}

func TestInit_AdvertisesFeatureAndCommand(t *testing.T) {
	_, d, c, _, _ := setup(t)

	found := false
	for _, ns := range d.Features() {
		if ns == stanza.NSBookmarks2 {
			found = true
		}
	}
	if !found {
		t.Errorf("features %v miss %s", d.Features(), stanza.NSBookmarks2)
	}
	if _, ok := c.Commands().Lookup("bookmark"); !ok {
		t.Error("bookmark command not defined")
	}
}

func TestDisco_LegacyByDefault(t *testing.T) {
	b, _, c, sender, _ := setup(t)

	negotiate(c, stanza.NSPubSub)

	if _, ok := b.Backend(alice).(Legacy); !ok {
		t.Fatalf("expected legacy backend, got %s", b.Backend(alice).Name())
	}
	iqs := sender.IQs()
	if len(iqs) != 1 {
		t.Fatalf("legacy sends only the retrieval, got %d stanzas", len(iqs))
	}
	if iqs[0].Type != stanza.GetIQ || iqs[0].PubSub.Items.Node != stanza.NSBookmarks {
		t.Errorf("unexpected retrieval %+v", iqs[0].PubSub)
	}
}

func TestDisco_ModernSetup(t *testing.T) {
	b, _, c, sender, _ := setup(t)

	negotiate(c, stanza.NSBookmarks2Compat)

	if _, ok := b.Backend(alice).(Modern); !ok {
		t.Fatalf("expected modern backend, got %s", b.Backend(alice).Name())
	}
	iqs := sender.IQs()
	if len(iqs) != 3 {
		t.Fatalf("expected create, configure and retrieve, got %d stanzas", len(iqs))
	}

	create := iqs[0]
	if create.Type != stanza.SetIQ || create.PubSub.Create == nil || create.PubSub.Create.Node != stanza.NSBookmarks2 {
		t.Errorf("unexpected create %+v", create.PubSub)
	}

	configure := iqs[1]
	if configure.PubSubOwner == nil || configure.PubSubOwner.Configure == nil {
		t.Fatalf("expected owner configure, got %+v", configure)
	}
	form := configure.PubSubOwner.Configure.Form
	for field, want := range map[string]string{
		"FORM_TYPE":                       NodeConfigForm,
		"pubsub#persist_items":            "true",
		"pubsub#send_last_published_item": "never",
		"pubsub#access_model":             "whitelist",
		"pubsub#max_items":                "10",
	} {
		if got, _ := formValue(form, field); got != want {
			t.Errorf("config %s = %q, want %q", field, got, want)
		}
	}

	retrieve := iqs[2]
	if retrieve.Type != stanza.GetIQ || retrieve.PubSub.Items.Node != stanza.NSBookmarks2 {
		t.Errorf("unexpected retrieve %+v", retrieve.PubSub)
	}
}

func TestDisco_BackendIsSticky(t *testing.T) {
	b, _, c, sender, _ := setup(t)

	negotiate(c, stanza.NSBookmarks2)
	sender.Reset()

	negotiate(c)

	if _, ok := b.Backend(alice).(Modern); !ok {
		t.Errorf("backend reverted to %s", b.Backend(alice).Name())
	}
	if n := len(sender.IQs()); n != 0 {
		t.Errorf("second Disco must not resend setup, got %d stanzas", n)
	}

	c.Schedule(event.Disconnected{Account: alice})
	c.DispatchAll()
	negotiate(c)
	if _, ok := b.Backend(alice).(Legacy); !ok {
		t.Errorf("a new session negotiates again, got %s", b.Backend(alice).Name())
	}
}

func TestResult_SkipsItemWithoutID(t *testing.T) {
	b, _, c, _, rec := setup(t)
	negotiate(c, stanza.NSBookmarks2)

	c.Schedule(itemsResult(stanza.NSBookmarks2,
		conferenceItem("one@conf.example", `<conference xmlns="urn:xmpp:bookmarks:1" name="One"/>`),
		conferenceItem("", `<conference xmlns="urn:xmpp:bookmarks:1" name="Two"/>`),
		conferenceItem("three@conf.example", `<conference xmlns="urn:xmpp:bookmarks:1" name="Three"/>`),
	))
	c.DispatchAll()

	got := b.Bookmarks(alice)
	if len(got) != 2 || got[0].Name != "One" || got[1].Name != "Three" {
		t.Fatalf("expected items 1 and 3, got %+v", got)
	}
	if n := len(coretest.Of[event.Bookmark](rec)); n != 2 {
		t.Errorf("expected 2 Bookmark events, got %d", n)
	}
}

func TestResult_SkipsInvalidItems(t *testing.T) {
	b, _, c, _, _ := setup(t)
	negotiate(c, stanza.NSBookmarks2)

	c.Schedule(itemsResult(stanza.NSBookmarks2,
		conferenceItem("@@bad", `<conference xmlns="urn:xmpp:bookmarks:1"/>`),
		conferenceItem("empty@conf.example", ``),
		conferenceItem("wrong@conf.example", `<storage xmlns="storage:bookmarks"/>`),
		conferenceItem("good@conf.example", `<conference xmlns="urn:xmpp:bookmarks:1" autojoin="1"><nick>bob</nick><password>pw</password></conference>`),
	))
	c.DispatchAll()

	want := contact.Bookmark{
		JID:      jid.MustParse("good@conf.example"),
		Nick:     "bob",
		Password: "pw",
		Autojoin: true,
	}
	got := b.Bookmarks(alice)
	if len(got) != 1 || !sameBookmark(got[0], want) {
		t.Errorf("Bookmarks() = %+v, want [%+v]", got, want)
	}
}

func TestResult_ReplacesListAndIndices(t *testing.T) {
	b, _, c, _, _ := setup(t)
	negotiate(c, stanza.NSBookmarks2)

	c.Schedule(itemsResult(stanza.NSBookmarks2,
		conferenceItem("a@conf.example", `<conference xmlns="urn:xmpp:bookmarks:1" name="A"/>`),
		conferenceItem("b@conf.example", `<conference xmlns="urn:xmpp:bookmarks:1"/>`),
	))
	c.DispatchAll()

	if _, ok := b.ByName(alice, "A"); !ok {
		t.Fatal("A should be indexed by name")
	}
	if bm, ok := b.ByJID(alice, jid.MustParse("b@conf.example/nick")); !ok || bm.Name != "" {
		t.Fatalf("b should be indexed by address, got %+v %v", bm, ok)
	}

	c.Schedule(itemsResult(stanza.NSBookmarks2,
		conferenceItem("c@conf.example", `<conference xmlns="urn:xmpp:bookmarks:1" name="C"/>`),
	))
	c.DispatchAll()

	if len(b.Bookmarks(alice)) != 1 {
		t.Errorf("list not replaced: %+v", b.Bookmarks(alice))
	}
	if _, ok := b.ByName(alice, "A"); ok {
		t.Error("stale name entry for A")
	}
	if _, ok := b.ByJID(alice, jid.MustParse("b@conf.example")); ok {
		t.Error("stale address entry for b")
	}
	if bm, ok := b.ByName(alice, "C"); !ok || bm.JID.String() != "c@conf.example" {
		t.Errorf("ByName(C) = %+v, %v", bm, ok)
	}
	if _, ok := b.ByJID(account.MustParse("bob@example.com"), jid.MustParse("c@conf.example")); ok {
		t.Error("bookmarks are per account")
	}
}

func TestResult_IgnoresInactiveNode(t *testing.T) {
	b, _, c, _, rec := setup(t)
	negotiate(c, stanza.NSBookmarks2)

	c.Schedule(itemsResult(stanza.NSBookmarks,
		conferenceItem("current", `<storage xmlns="storage:bookmarks"><conference jid="x@conf.example"/></storage>`),
	))
	c.DispatchAll()

	if len(b.Bookmarks(alice)) != 0 || len(coretest.Of[event.Bookmark](rec)) != 0 {
		t.Error("result for the inactive backend must be ignored")
	}
}

func TestResult_Autojoin(t *testing.T) {
	_, _, c, _, rec := setup(t)
	negotiate(c, stanza.NSBookmarks2)

	c.Schedule(itemsResult(stanza.NSBookmarks2,
		conferenceItem("room@conf.example", `<conference xmlns="urn:xmpp:bookmarks:1" autojoin="true"><nick>bob</nick></conference>`),
		conferenceItem("bare@conf.example", `<conference xmlns="urn:xmpp:bookmarks:1" autojoin="true"/>`),
		conferenceItem("quiet@conf.example", `<conference xmlns="urn:xmpp:bookmarks:1" autojoin="false"/>`),
	))
	c.DispatchAll()

	joins := coretest.Of[event.Join](rec)
	if len(joins) != 2 {
		t.Fatalf("expected 2 joins, got %+v", joins)
	}
	if joins[0].JID.String() != "room@conf.example/bob" {
		t.Errorf("join with nick = %s, want room@conf.example/bob", joins[0].JID)
	}
	if joins[1].JID.String() != "bare@conf.example" {
		t.Errorf("join without nick = %s, want bare@conf.example", joins[1].JID)
	}
	for _, j := range joins {
		if j.Password || j.Account != alice {
			t.Errorf("unexpected join %+v", j)
		}
	}

	// Each Bookmark event precedes the Join of the same bookmark.
	var kinds []event.Kind
	for _, ev := range rec.Events {
		if k := ev.Kind(); k == event.KindBookmark || k == event.KindJoin {
			kinds = append(kinds, k)
		}
	}
	want := []event.Kind{event.KindBookmark, event.KindJoin, event.KindBookmark, event.KindJoin, event.KindBookmark}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("event order %v, want %v", kinds, want)
	}
}

func TestLegacy_Decode(t *testing.T) {
	b, _, c, _, rec := setup(t)
	negotiate(c)

	c.Schedule(itemsResult(stanza.NSBookmarks,
		conferenceItem("current", `
			<storage xmlns="storage:bookmarks">
				<conference jid="room@conf.example" name="Room" autojoin="true"><nick>bob</nick></conference>
				<conference jid="@@bad" name="Bad"/>
				<conference jid="other@conf.example" autojoin="false"/>
			</storage>`),
		conferenceItem("empty", ``),
		conferenceItem("", `
			<storage xmlns="storage:bookmarks">
				<conference jid="anonymous@conf.example" autojoin="true"/>
			</storage>`),
	))
	c.DispatchAll()

	got := b.Bookmarks(alice)
	if len(got) != 2 {
		t.Fatalf("expected 2 bookmarks, got %+v", got)
	}
	if got[0].Name != "Room" || got[0].Nick != "bob" || !got[0].Autojoin {
		t.Errorf("unexpected first bookmark %+v", got[0])
	}
	if joins := coretest.Of[event.Join](rec); len(joins) != 1 || joins[0].JID.String() != "room@conf.example/bob" {
		t.Errorf("unexpected joins %+v", joins)
	}
}

func TestCommand_AddModern(t *testing.T) {
	b, _, c, sender, _ := setup(t)
	negotiate(c, stanza.NSBookmarks2)
	sender.Reset()

	if err := c.Execute("/bookmark add aparte aparte@conference.example/nick autojoin=on"); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	want := contact.Bookmark{
		JID:      jid.MustParse("aparte@conference.example"),
		Name:     "aparte",
		Nick:     "nick",
		Autojoin: true,
	}
	if got := b.Bookmarks(alice); len(got) != 1 || !sameBookmark(got[0], want) {
		t.Errorf("local list = %+v, want %+v", got, want)
	}
	if _, ok := b.ByName(alice, "aparte"); !ok {
		t.Error("added bookmark should be indexed")
	}

	iqs := sender.IQs()
	if len(iqs) != 1 || iqs[0].PubSub == nil || iqs[0].PubSub.Publish == nil {
		t.Fatalf("expected one publish, got %+v", iqs)
	}
	ps := iqs[0].PubSub
	item := ps.Publish.Items[0]
	if ps.Publish.Node != stanza.NSBookmarks2 || item.ID != "aparte@conference.example" {
		t.Errorf("unexpected publish %+v", ps.Publish)
	}
	for _, want := range []string{`name="aparte"`, `autojoin="true"`, `<nick>nick</nick>`} {
		if !bytes.Contains(item.Payload, []byte(want)) {
			t.Errorf("payload %s misses %s", item.Payload, want)
		}
	}
	if v, _ := formValue(ps.PublishOptions.Form, "pubsub#access_model"); v != "whitelist" {
		t.Errorf("publish access model = %q", v)
	}
	if v, _ := formValue(ps.PublishOptions.Form, "FORM_TYPE"); v != PublishOptionsForm {
		t.Errorf("publish options form type = %q", v)
	}
}

func TestCommand_EditAppends(t *testing.T) {
	b, _, c, _, _ := setup(t)
	negotiate(c, stanza.NSBookmarks2)

	_ = c.Execute("/bookmark add aparte aparte@conference.example")
	if err := c.Execute("/bookmark edit aparte aparte@conference.example autojoin=on"); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if n := len(b.Bookmarks(alice)); n != 2 {
		t.Errorf("edit re-adds, expected 2 entries, got %d", n)
	}
	if bm, _ := b.ByName(alice, "aparte"); !bm.Autojoin {
		t.Error("name index should point at the latest entry")
	}
}

func TestCommand_DeleteKeepsLocalEntry(t *testing.T) {
	b, _, c, sender, _ := setup(t)
	negotiate(c, stanza.NSBookmarks2)
	_ = c.Execute("/bookmark add aparte aparte@conference.example")
	sender.Reset()

	if err := c.Execute("/bookmark del aparte@conference.example"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	iqs := sender.IQs()
	if len(iqs) != 1 || iqs[0].PubSub.Retract == nil {
		t.Fatalf("expected one retract, got %+v", iqs)
	}
	r := iqs[0].PubSub.Retract
	if r.Node != stanza.NSBookmarks2 || r.Notify || r.Items[0].ID != "aparte@conference.example" {
		t.Errorf("unexpected retract %+v", r)
	}
	if len(b.Bookmarks(alice)) != 1 {
		t.Error("del must not touch the local list")
	}
}

func TestCommand_LegacyNotSupported(t *testing.T) {
	b, _, c, sender, _ := setup(t)
	negotiate(c)
	sender.Reset()

	err := c.Execute("/bookmark add aparte aparte@conference.example")
	if !errors.Is(err, ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}
	if len(b.Bookmarks(alice)) != 1 {
		t.Error("add appends locally before sending")
	}
	if err := c.Execute("/bookmark del aparte@conference.example"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}
	if len(sender.Sent()) != 0 {
		t.Errorf("legacy must send nothing, sent %+v", sender.Sent())
	}
}

func TestCommand_Errors(t *testing.T) {
	_, _, c, _, _ := setup(t)

	if err := c.Execute("/bookmark add aparte"); err == nil {
		t.Error("missing conference must fail to parse")
	}

	c.SetCurrentAccount(account.Account{})
	if err := c.Execute("/bookmark add aparte room@conf.example"); !errors.Is(err, core.ErrNoAccount) {
		t.Errorf("expected ErrNoAccount, got %v", err)
	}
}

func TestLegacy_UnsupportedOperations(t *testing.T) {
	var l Legacy
	if _, err := l.CreateNode(); !errors.Is(err, ErrNotSupported) {
		t.Errorf("CreateNode: %v", err)
	}
	if _, err := l.ConfigureNode(); !errors.Is(err, ErrNotSupported) {
		t.Errorf("ConfigureNode: %v", err)
	}
	if l.Setup() != nil {
		t.Error("legacy has no setup")
	}
}
