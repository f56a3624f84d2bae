// Package event defines the semantic events flowing through the core and the
// FIFO queue they wait in.
//
// Events are produced by the connection manager (Connected, Iq, Presence, ...)
// or scheduled by components as follow-ups (Contact, Bookmark, Join, ...).
// They are never delivered synchronously from inside a handler: scheduling
// appends to the Queue and the core draws one event at a time, delivering it
// to every component before drawing the next.
//
// # Event Kinds
//
// The set of variants is closed. Each variant is a plain struct implementing
// Event; consumers switch on the concrete type:
//
//	switch ev := e.(type) {
//	case event.Connected:
//	    // ev.Account, ev.JID
//	case event.Iq:
//	    // ev.Account, ev.IQ
//	}
//
// Every variant is account-qualified where an account is known, and every
// variant is pure data. Stanza payloads are shared between all components
// receiving the event and must be treated as read-only.
//
// # Thread Safety
//
// Queue is safe for concurrent use: session goroutines push inbound events
// while the core loop pops them.
//
// # Subpackages
//
//   - dispatch: panic-safe handler execution
package event
