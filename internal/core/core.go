package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dshills/aparte/internal/account"
	"github.com/dshills/aparte/internal/command"
	"github.com/dshills/aparte/internal/event"
	"github.com/dshills/aparte/internal/event/dispatch"
	"github.com/dshills/aparte/internal/logger"
	"github.com/dshills/aparte/internal/stanza"
)

// Sender transmits stanzas for an account. Send must not block.
type Sender interface {
	Send(acct account.Account, st stanza.Stanza) error
}

// Command is a parsed command bound to the core.
type Command = command.Command[*Core]

// CommandSpec declares a command whose handler receives the core.
type CommandSpec = command.Spec[*Core]

// Core owns the event queue, the registered components and the command
// registry. All component state is touched only from the goroutine running
// Run (or calling DispatchNext); other goroutines may only Schedule.
type Core struct {
	queue    *event.Queue
	registry *Registry
	commands *command.Registry[*Core]
	exec     *dispatch.Executor
	log      logger.Logger
	sender   Sender
	notices  func(string)

	initialized bool
	dispatching bool

	mu      sync.RWMutex
	current account.Account

	dispatched    atomic.Uint64
	handlerPanics atomic.Uint64
	sendFailures  atomic.Uint64
}

// Option configures a Core.
type Option func(*Core)

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Core) {
		c.log = log
	}
}

// WithSender attaches the outgoing stanza sink.
func WithSender(s Sender) Option {
	return func(c *Core) {
		c.sender = s
	}
}

// WithNoticeHandler sets the sink for user visible notices (command errors,
// help text). Rendering them is up to the caller.
func WithNoticeHandler(fn func(string)) Option {
	return func(c *Core) {
		c.notices = fn
	}
}

// New creates a core with the built-in help command defined.
func New(opts ...Option) *Core {
	c := &Core{
		queue:    event.NewQueue(),
		registry: NewRegistry(),
		commands: command.NewRegistry[*Core](),
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.exec = dispatch.NewExecutor(
		dispatch.WithPanicHandler(func(event.Event, any, []byte) {
			c.handlerPanics.Add(1)
		}),
	)

	// The help command only reads the registry; it cannot collide.
	_ = c.commands.Define(helpCommand())
	return c
}

// SetSender attaches the outgoing stanza sink after construction.
func (c *Core) SetSender(s Sender) {
	c.sender = s
}

// Log returns the core logger.
func (c *Core) Log() logger.Logger {
	return c.log
}

// Register appends a component. Components receive events in the order they
// were registered.
func (c *Core) Register(comp Component) error {
	if c.initialized {
		return ErrAlreadyInitialized
	}
	return c.registry.Add(comp)
}

// Components returns the names of the registered components in order.
func (c *Core) Components() []string {
	return c.registry.Names()
}

// Init initializes every component in registration order. The first failure
// is returned as an *InitError and later components are not initialized.
func (c *Core) Init() error {
	if c.initialized {
		return ErrAlreadyInitialized
	}
	for _, e := range c.registry.snapshot() {
		if err := c.registry.acquire(e, true); err != nil {
			return &InitError{Component: e.comp.Name(), Err: err}
		}
		err := e.comp.Init(c)
		c.registry.releaser(e, true)()
		if err != nil {
			return &InitError{Component: e.comp.Name(), Err: err}
		}
		c.log.Debug("component initialized", logger.String("component", e.comp.Name()))
	}
	c.initialized = true
	return nil
}

// Schedule enqueues ev for later delivery. It never dispatches and is safe to
// call from any goroutine.
func (c *Core) Schedule(ev event.Event) {
	if err := c.queue.Push(ev); err != nil {
		c.log.Warn("dropping event", logger.Error(err))
	}
}

// Pending returns the number of events waiting for delivery.
func (c *Core) Pending() int {
	return c.queue.Len()
}

// Send hands st to the connection manager for acct. It does not block.
func (c *Core) Send(acct account.Account, st stanza.Stanza) error {
	if c.sender == nil {
		c.sendFailures.Add(1)
		return ErrNoSender
	}
	if err := c.sender.Send(acct, st); err != nil {
		c.sendFailures.Add(1)
		c.log.Warn("send failed",
			logger.Stringer("account", acct),
			logger.String("stanza", st.Name()),
			logger.Error(err),
		)
		return err
	}
	return nil
}

// CurrentAccount returns the account commands act on: the first account that
// connected and is still connected.
func (c *Core) CurrentAccount() (account.Account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, !c.current.IsZero()
}

// SetCurrentAccount selects the account commands act on.
func (c *Core) SetCurrentAccount(acct account.Account) {
	c.mu.Lock()
	c.current = acct
	c.mu.Unlock()
}

// DispatchNext pops one event and delivers it to every component in
// registration order. It reports false when the queue was empty, or when
// called from inside a handler.
func (c *Core) DispatchNext() bool {
	if c.dispatching {
		c.log.Error("DispatchNext called from inside a handler")
		return false
	}

	ev, ok := c.queue.Pop()
	if !ok {
		return false
	}

	c.dispatching = true
	defer func() { c.dispatching = false }()

	c.trackAccount(ev)
	c.dispatched.Add(1)

	for _, e := range c.registry.snapshot() {
		c.deliver(e, ev)
	}
	return true
}

// DispatchAll delivers events until the queue is empty, including events
// scheduled while draining. It returns the number of events delivered.
func (c *Core) DispatchAll() int {
	n := 0
	for c.DispatchNext() {
		n++
	}
	return n
}

func (c *Core) deliver(e *entry, ev event.Event) {
	if err := c.registry.acquire(e, true); err != nil {
		c.log.Error("skipping component",
			logger.String("component", e.comp.Name()),
			logger.String("event", string(ev.Kind())),
			logger.Error(err),
		)
		return
	}
	defer c.registry.releaser(e, true)()

	result := c.exec.Execute(ev, func(ev event.Event) {
		e.comp.OnEvent(c, ev)
	})
	if result.Panicked {
		err := &HandlerError{Component: e.comp.Name(), Event: ev.Kind(), Value: result.PanicValue}
		c.log.Error("component panicked",
			logger.Error(err),
			logger.String("stack", string(result.PanicStack)),
		)
	}
}

func (c *Core) trackAccount(ev event.Event) {
	switch ev := ev.(type) {
	case event.Connected:
		if _, ok := c.CurrentAccount(); !ok {
			c.SetCurrentAccount(ev.Account)
		}
	case event.Disconnected:
		if cur, ok := c.CurrentAccount(); ok && cur == ev.Account {
			c.SetCurrentAccount(account.Account{})
		}
	}
}

// AddCommand defines a top level command.
func (c *Core) AddCommand(spec *CommandSpec) error {
	return c.commands.Define(spec)
}

// Commands returns the command registry.
func (c *Core) Commands() *command.Registry[*Core] {
	return c.commands
}

// Execute parses line and runs the resulting command. Parse errors are
// returned as *command.ParseError without touching any state.
func (c *Core) Execute(line string) error {
	cmd, err := c.commands.Parse(line)
	if err != nil {
		return err
	}
	return c.commands.Dispatch(c, cmd)
}

// Notify sends a user visible notice.
func (c *Core) Notify(msg string) {
	if c.notices != nil {
		c.notices(msg)
		return
	}
	c.log.Info("notice", logger.String("message", msg))
}

// Run is the event loop. It drains the queue, executes input lines and
// returns nil once ctx is done. A nil input channel means no user input.
// Events still queued when ctx is done stay queued for DispatchAll.
func (c *Core) Run(ctx context.Context, input <-chan string) error {
	for {
		for ctx.Err() == nil && c.DispatchNext() {
		}

		select {
		case <-ctx.Done():
			return nil
		case <-c.queue.Notify():
		case line, ok := <-input:
			if !ok {
				input = nil
				continue
			}
			c.runLine(line)
		}
	}
}

func (c *Core) runLine(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	if err := c.Execute(line); err != nil {
		c.Notify(formatCommandError(err))
	}
}

func formatCommandError(err error) string {
	var perr *command.ParseError
	if errors.As(err, &perr) && perr.Usage != "" {
		return fmt.Sprintf("%v\nusage: /%s", err, perr.Usage)
	}
	return err.Error()
}

// Stats holds dispatch counters.
type Stats struct {
	Dispatched    uint64
	HandlerPanics uint64
	SendFailures  uint64
	Pending       int
}

// Stats returns a snapshot of the dispatch counters.
func (c *Core) Stats() Stats {
	return Stats{
		Dispatched:    c.dispatched.Load(),
		HandlerPanics: c.handlerPanics.Load(),
		SendFailures:  c.sendFailures.Load(),
		Pending:       c.queue.Len(),
	}
}
