package dispatch

import "github.com/dshills/aparte/internal/event"

// Handler receives one event.
type Handler func(ev event.Event)

// Result represents the outcome of delivering an event to one handler.
type Result struct {
	// Panicked is true if the handler panicked.
	Panicked bool

	// PanicValue is the value passed to panic(), if Panicked is true.
	PanicValue any

	// PanicStack is the stack trace at the point of panic.
	PanicStack []byte
}

// PanicHandler is called when a handler panics during execution.
// It receives the event being processed, the panic value, and the stack trace.
type PanicHandler func(ev event.Event, panicValue any, stack []byte)
