package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/aparte/internal/account"
	"github.com/dshills/aparte/internal/command"
	"github.com/dshills/aparte/internal/event"
	"github.com/dshills/aparte/internal/stanza"
)

var testAccount = account.MustParse("alice@example.com")

// recorder appends "<name>:<kind>" to a shared log for every event.
type recorder struct {
	name string
	log  *[]string
	on   func(c *Core, ev event.Event)
	init func(c *Core) error
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Init(c *Core) error {
	if r.init != nil {
		return r.init(c)
	}
	return nil
}

func (r *recorder) OnEvent(c *Core, ev event.Event) {
	*r.log = append(*r.log, r.name+":"+string(ev.Kind()))
	if r.on != nil {
		r.on(c, ev)
	}
}

// second is a distinct concrete type so it can be registered next to recorder.
type second struct{ recorder }

type panicker struct{}

func (panicker) Name() string                    { return "panicker" }
func (panicker) Init(*Core) error                { return nil }
func (panicker) OnEvent(c *Core, ev event.Event) { panic("boom") }

type sentStanza struct {
	acct account.Account
	st   stanza.Stanza
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentStanza
	err  error
}

func (s *fakeSender) Send(acct account.Account, st stanza.Stanza) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentStanza{acct, st})
	return nil
}

func TestDispatch_OrderAndFIFO(t *testing.T) {
	var log []string
	c := New()

	first := &recorder{name: "a", log: &log}
	first.on = func(c *Core, ev event.Event) {
		// Follow-ups are delivered after the current event reached everyone.
		if _, ok := ev.(event.Connected); ok {
			c.Schedule(event.Disco{Account: testAccount})
		}
	}
	if err := c.Register(first); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if err := c.Register(&second{recorder{name: "b", log: &log}}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if err := c.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	c.Schedule(event.Connected{Account: testAccount})
	c.Schedule(event.Disconnected{Account: testAccount})

	if n := c.DispatchAll(); n != 3 {
		t.Errorf("DispatchAll() = %d, want 3", n)
	}

	want := []string{
		"a:connected", "b:connected",
		"a:disconnected", "b:disconnected",
		"a:disco", "b:disco",
	}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("delivery order\n got %v\nwant %v", log, want)
	}
	if c.DispatchNext() {
		t.Error("DispatchNext() on empty queue should report false")
	}
}

func TestDispatch_PanicDoesNotStopDelivery(t *testing.T) {
	var log []string
	c := New()
	_ = c.Register(panicker{})
	_ = c.Register(&recorder{name: "after", log: &log})

	c.Schedule(event.Disco{Account: testAccount})
	c.DispatchAll()

	if !reflect.DeepEqual(log, []string{"after:disco"}) {
		t.Errorf("expected later component to receive the event, got %v", log)
	}
	if got := c.Stats().HandlerPanics; got != 1 {
		t.Errorf("HandlerPanics = %d, want 1", got)
	}
}

func TestDispatch_SelfBorrowConflicts(t *testing.T) {
	var log []string
	var selfErr, otherErr error
	c := New()

	r := &recorder{name: "self", log: &log}
	r.on = func(c *Core, ev event.Event) {
		_, release, err := GetMut[*recorder](c)
		release()
		selfErr = err

		s, release, err := Get[*second](c)
		defer release()
		otherErr = err
		if err == nil && s.name != "other" {
			t.Errorf("borrowed wrong component %q", s.name)
		}
	}
	_ = c.Register(r)
	_ = c.Register(&second{recorder{name: "other", log: &log}})

	c.Schedule(event.Disco{})
	c.DispatchAll()

	if !errors.Is(selfErr, ErrBorrowConflict) {
		t.Errorf("self borrow: expected ErrBorrowConflict, got %v", selfErr)
	}
	if otherErr != nil {
		t.Errorf("borrowing another component failed: %v", otherErr)
	}
}

func TestGet_Borrows(t *testing.T) {
	var log []string
	c := New()
	_ = c.Register(&recorder{name: "r", log: &log})

	if _, _, err := Get[*second](c); !errors.Is(err, ErrComponentNotFound) {
		t.Errorf("expected ErrComponentNotFound, got %v", err)
	}

	_, r1, err := Get[*recorder](c)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	_, r2, err := Get[*recorder](c)
	if err != nil {
		t.Fatalf("second shared Get() failed: %v", err)
	}
	if _, _, err := GetMut[*recorder](c); !errors.Is(err, ErrBorrowConflict) {
		t.Errorf("GetMut during shared borrow: expected ErrBorrowConflict, got %v", err)
	}
	r1()
	r1()
	r2()

	_, release, err := GetMut[*recorder](c)
	if err != nil {
		t.Fatalf("GetMut() after release failed: %v", err)
	}
	release()
}

func TestRegister_Errors(t *testing.T) {
	var log []string
	c := New()

	if err := c.Register(nil); !errors.Is(err, ErrNilComponent) {
		t.Errorf("expected ErrNilComponent, got %v", err)
	}
	_ = c.Register(&recorder{name: "r", log: &log})
	if err := c.Register(&recorder{name: "r2", log: &log}); !errors.Is(err, ErrDuplicateComponent) {
		t.Errorf("expected ErrDuplicateComponent, got %v", err)
	}
	if err := c.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if err := c.Register(&second{}); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("expected ErrAlreadyInitialized, got %v", err)
	}
	if got := c.Components(); !reflect.DeepEqual(got, []string{"r"}) {
		t.Errorf("Components() = %v", got)
	}
}

func TestInit_FailureIsFatal(t *testing.T) {
	var log []string
	var secondInit bool
	c := New()

	failing := errors.New("missing dependency")
	_ = c.Register(&recorder{name: "broken", log: &log, init: func(*Core) error { return failing }})
	_ = c.Register(&second{recorder{name: "later", log: &log, init: func(*Core) error {
		secondInit = true
		return nil
	}}})

	err := c.Init()
	var ierr *InitError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected *InitError, got %v", err)
	}
	if ierr.Component != "broken" || !errors.Is(err, failing) {
		t.Errorf("unexpected init error %v", err)
	}
	if secondInit {
		t.Error("components after a failure must not be initialized")
	}
}

func TestInit_CanBorrowEarlierComponents(t *testing.T) {
	var log []string
	c := New()
	_ = c.Register(&recorder{name: "dep", log: &log})
	_ = c.Register(&second{recorder{name: "user", log: &log, init: func(c *Core) error {
		dep, release, err := GetMut[*recorder](c)
		if err != nil {
			return err
		}
		defer release()
		dep.name = "dep-configured"
		return nil
	}}})

	if err := c.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	dep, release, _ := Get[*recorder](c)
	defer release()
	if dep.name != "dep-configured" {
		t.Errorf("expected Init to configure dependency, got %q", dep.name)
	}
}

func TestCurrentAccount(t *testing.T) {
	var log []string
	c := New()
	_ = c.Register(&recorder{name: "r", log: &log})

	if _, ok := c.CurrentAccount(); ok {
		t.Fatal("no account expected before Connected")
	}

	other := account.MustParse("bob@example.net")
	c.Schedule(event.Connected{Account: testAccount})
	c.Schedule(event.Connected{Account: other})
	c.DispatchAll()

	if cur, ok := c.CurrentAccount(); !ok || cur != testAccount {
		t.Errorf("CurrentAccount() = %v, %v; want %v", cur, ok, testAccount)
	}

	c.Schedule(event.Disconnected{Account: testAccount})
	c.DispatchAll()
	if _, ok := c.CurrentAccount(); ok {
		t.Error("current account should clear on disconnect")
	}
}

func TestSend(t *testing.T) {
	c := New()
	msg := &stanza.Message{Body: "hi"}

	if err := c.Send(testAccount, msg); !errors.Is(err, ErrNoSender) {
		t.Errorf("expected ErrNoSender, got %v", err)
	}

	s := &fakeSender{}
	c.SetSender(s)
	if err := c.Send(testAccount, msg); err != nil {
		t.Fatalf("Send() failed: %v", err)
	}
	if len(s.sent) != 1 || s.sent[0].acct != testAccount {
		t.Errorf("unexpected sent %+v", s.sent)
	}

	s.err = errors.New("queue full")
	if err := c.Send(testAccount, msg); err == nil {
		t.Error("expected sender error")
	}
	if got := c.Stats().SendFailures; got != 2 {
		t.Errorf("SendFailures = %d, want 2", got)
	}
}

func TestExecute_Help(t *testing.T) {
	var notices []string
	c := New(WithNoticeHandler(func(msg string) { notices = append(notices, msg) }))

	err := c.AddCommand(&CommandSpec{
		Name: "ping",
		Doc:  "Pings the server.",
		Handler: func(c *Core, cmd *Command) error {
			c.Notify("pong")
			return nil
		},
	})
	if err != nil {
		t.Fatalf("AddCommand() failed: %v", err)
	}

	if err := c.Execute("/help"); err != nil {
		t.Fatalf("help failed: %v", err)
	}
	if err := c.Execute("/help ping"); err != nil {
		t.Fatalf("help ping failed: %v", err)
	}
	if err := c.Execute("/ping"); err != nil {
		t.Fatalf("ping failed: %v", err)
	}

	if len(notices) != 3 {
		t.Fatalf("expected 3 notices, got %v", notices)
	}
	if notices[0] != "commands: /help /ping" {
		t.Errorf("help listing = %q", notices[0])
	}
	if !strings.Contains(notices[1], "Pings the server.") {
		t.Errorf("help ping = %q", notices[1])
	}
	if notices[2] != "pong" {
		t.Errorf("ping = %q", notices[2])
	}

	if err := c.Execute("/help nope"); !errors.Is(err, command.ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestRun(t *testing.T) {
	var log []string
	notices := make(chan string, 4)
	c := New(WithNoticeHandler(func(msg string) { notices <- msg }))

	done := make(chan struct{})
	r := &recorder{name: "r", log: &log}
	r.on = func(c *Core, ev event.Event) {
		if _, ok := ev.(event.Disconnected); ok {
			close(done)
		}
	}
	_ = c.Register(r)
	if err := c.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	input := make(chan string, 2)
	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx, input) }()

	input <- "/bogus"
	select {
	case msg := <-notices:
		if !strings.Contains(msg, "bogus") {
			t.Errorf("unexpected notice %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("input line was not executed")
	}

	c.Schedule(event.Connected{Account: testAccount})
	c.Schedule(event.Disconnected{Account: testAccount})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("events were not dispatched")
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_CancelledLeavesEventsQueued(t *testing.T) {
	var log []string
	c := New()
	_ = c.Register(&recorder{name: "r", log: &log})
	if err := c.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	c.Schedule(event.Connected{Account: testAccount})
	c.Schedule(event.Disconnected{Account: testAccount})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Run(ctx, nil); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if len(log) != 0 {
		t.Fatalf("no event should be delivered after cancel, got %v", log)
	}

	if n := c.DispatchAll(); n != 2 {
		t.Fatalf("DispatchAll() = %d, want 2", n)
	}
	want := []string{"r:connected", "r:disconnected"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("log = %v, want %v", log, want)
	}
}

func TestDispatchNext_NotReentrant(t *testing.T) {
	var log []string
	var nested bool
	c := New()
	r := &recorder{name: "r", log: &log}
	r.on = func(c *Core, ev event.Event) {
		nested = c.DispatchNext()
	}
	_ = c.Register(r)

	c.Schedule(event.Disco{})
	c.Schedule(event.Disco{})
	c.DispatchNext()

	if nested {
		t.Error("nested DispatchNext must refuse to run")
	}
	if c.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", c.Pending())
	}
}

func ExampleCore_Execute() {
	c := New(WithNoticeHandler(func(msg string) { fmt.Println(msg) }))
	_ = c.Execute("/help")
	// Output: commands: /help
}
