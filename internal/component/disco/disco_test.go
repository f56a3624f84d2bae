package disco

import (
	"reflect"
	"testing"

	"mellium.im/xmpp/jid"

	"github.com/dshills/aparte/internal/account"
	"github.com/dshills/aparte/internal/core/coretest"
	"github.com/dshills/aparte/internal/event"
	"github.com/dshills/aparte/internal/stanza"
)

var alice = account.MustParse("alice@example.com")

func TestConnected_QueriesOwnAccount(t *testing.T) {
	d := New()
	c, sender, _ := coretest.New(t, d)

	c.Schedule(event.Connected{Account: alice})
	c.DispatchAll()

	iqs := sender.IQs()
	if len(iqs) != 1 {
		t.Fatalf("expected one query, got %d", len(iqs))
	}
	if iqs[0].Type != stanza.GetIQ || iqs[0].DiscoInfo == nil || iqs[0].To.String() != "alice@example.com" {
		t.Errorf("unexpected query %+v", iqs[0])
	}
}

func TestResult_RecordsFeaturesAndSchedulesDisco(t *testing.T) {
	d := New()
	c, _, rec := coretest.New(t, d)

	c.Schedule(event.Iq{Account: alice, IQ: &stanza.IQ{
		Type: stanza.ResultIQ,
		DiscoInfo: &stanza.DiscoInfo{Features: []stanza.DiscoFeature{
			{Var: stanza.NSPubSub},
			{Var: stanza.NSBookmarks2Compat},
		}},
	}})
	c.DispatchAll()

	if !d.HasFeature(alice, stanza.NSBookmarks2Compat) {
		t.Error("compat feature should be recorded")
	}
	if d.HasFeature(account.MustParse("bob@example.com"), stanza.NSPubSub) {
		t.Error("features are per account")
	}
	if got := coretest.Of[event.Disco](rec); len(got) != 1 || got[0].Account != alice {
		t.Errorf("expected one Disco event for alice, got %+v", got)
	}

	c.Schedule(event.Disconnected{Account: alice})
	c.DispatchAll()
	if d.HasFeature(alice, stanza.NSPubSub) {
		t.Error("features must be forgotten on disconnect")
	}
}

func TestGet_AnswersWithClientFeatures(t *testing.T) {
	d := New()
	d.AddFeature(stanza.NSBookmarks2 + "+notify")
	c, sender, _ := coretest.New(t, d)

	c.Schedule(event.Iq{Account: alice, IQ: &stanza.IQ{
		ID:        "q1",
		Type:      stanza.GetIQ,
		From:      jid.MustParse("bob@example.com/phone"),
		DiscoInfo: &stanza.DiscoInfo{},
	}})
	c.DispatchAll()

	iqs := sender.IQs()
	if len(iqs) != 1 {
		t.Fatalf("expected one reply, got %d", len(iqs))
	}
	reply := iqs[0]
	if reply.Type != stanza.ResultIQ || reply.ID != "q1" || reply.To.String() != "bob@example.com/phone" {
		t.Errorf("unexpected reply header %+v", reply)
	}
	var got []string
	for _, f := range reply.DiscoInfo.Features {
		got = append(got, f.Var)
	}
	want := []string{stanza.NSDiscoInfo, stanza.NSBookmarks2 + "+notify"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("features = %v, want %v", got, want)
	}
	if len(reply.DiscoInfo.Identities) != 1 || reply.DiscoInfo.Identities[0].Category != "client" {
		t.Errorf("unexpected identities %+v", reply.DiscoInfo.Identities)
	}
}
