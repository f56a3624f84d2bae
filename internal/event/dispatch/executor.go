package dispatch

import (
	"runtime/debug"

	"github.com/dshills/aparte/internal/event"
)

// Executor runs event handlers with panic recovery.
type Executor struct {
	panicHandler PanicHandler
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithPanicHandler sets the panic handler for the executor.
func WithPanicHandler(h PanicHandler) ExecutorOption {
	return func(e *Executor) {
		e.panicHandler = h
	}
}

// Execute delivers ev to handler. A panic is recovered and reported in the
// result instead of unwinding into the caller.
func (e *Executor) Execute(ev event.Event, handler Handler) (result Result) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		stack := debug.Stack()
		result = Result{Panicked: true, PanicValue: r, PanicStack: stack}

		// A panicking panic handler must not take the loop down with it.
		if e.panicHandler != nil {
			func() {
				defer func() {
					_ = recover()
				}()
				e.panicHandler(ev, r, stack)
			}()
		}
	}()

	handler(ev)
	return result
}
