// Package coretest provides a core wired to in-memory fakes for component
// tests.
package coretest

import (
	"sync"
	"testing"

	"github.com/dshills/aparte/internal/account"
	"github.com/dshills/aparte/internal/core"
	"github.com/dshills/aparte/internal/event"
	"github.com/dshills/aparte/internal/stanza"
)

// Sent is one stanza handed to the Sender.
type Sent struct {
	Account account.Account
	Stanza  stanza.Stanza
}

// Sender records stanzas instead of transmitting them.
type Sender struct {
	mu   sync.Mutex
	sent []Sent
	Err  error
}

// Send implements core.Sender.
func (s *Sender) Send(acct account.Account, st stanza.Stanza) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.sent = append(s.sent, Sent{Account: acct, Stanza: st})
	return nil
}

// Sent returns the recorded stanzas.
func (s *Sender) Sent() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sent(nil), s.sent...)
}

// IQs returns the recorded IQ stanzas.
func (s *Sender) IQs() []*stanza.IQ {
	var out []*stanza.IQ
	for _, sent := range s.Sent() {
		if iq, ok := sent.Stanza.(*stanza.IQ); ok {
			out = append(out, iq)
		}
	}
	return out
}

// Presences returns the recorded presence stanzas.
func (s *Sender) Presences() []*stanza.Presence {
	var out []*stanza.Presence
	for _, sent := range s.Sent() {
		if p, ok := sent.Stanza.(*stanza.Presence); ok {
			out = append(out, p)
		}
	}
	return out
}

// Reset forgets the recorded stanzas.
func (s *Sender) Reset() {
	s.mu.Lock()
	s.sent = nil
	s.mu.Unlock()
}

// Recorder is a component that keeps every event it sees.
type Recorder struct {
	Events []event.Event
}

// Name implements core.Component.
func (*Recorder) Name() string { return "recorder" }

// Init implements core.Component.
func (*Recorder) Init(*core.Core) error { return nil }

// OnEvent implements core.Component.
func (r *Recorder) OnEvent(_ *core.Core, ev event.Event) {
	r.Events = append(r.Events, ev)
}

// Reset forgets the recorded events.
func (r *Recorder) Reset() {
	r.Events = nil
}

// Of returns the recorded events of type T in delivery order.
func Of[T event.Event](r *Recorder) []T {
	var out []T
	for _, ev := range r.Events {
		if v, ok := ev.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// New registers comps followed by a Recorder, initializes the core and
// attaches a recording Sender.
func New(t testing.TB, comps ...core.Component) (*core.Core, *Sender, *Recorder) {
	t.Helper()

	sender := &Sender{}
	rec := &Recorder{}
	c := core.New(core.WithSender(sender))
	for _, comp := range comps {
		if err := c.Register(comp); err != nil {
			t.Fatalf("Register(%s) failed: %v", comp.Name(), err)
		}
	}
	if err := c.Register(rec); err != nil {
		t.Fatalf("Register(recorder) failed: %v", err)
	}
	if err := c.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	return c, sender, rec
}
