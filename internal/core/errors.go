package core

import (
	"errors"
	"fmt"

	"github.com/dshills/aparte/internal/event"
)

// Sentinel errors for the core.
var (
	// ErrNilComponent is returned when registering a nil component.
	ErrNilComponent = errors.New("component cannot be nil")

	// ErrDuplicateComponent is returned when a concrete type is registered twice.
	ErrDuplicateComponent = errors.New("component already registered")

	// ErrComponentNotFound is returned by Get and GetMut for unknown types.
	ErrComponentNotFound = errors.New("component not registered")

	// ErrBorrowConflict is returned when a borrow overlaps an exclusive one.
	ErrBorrowConflict = errors.New("component is already borrowed")

	// ErrAlreadyInitialized is returned by Register and Init after Init ran.
	ErrAlreadyInitialized = errors.New("core already initialized")

	// ErrNoSender is returned by Send when no connection manager is attached.
	ErrNoSender = errors.New("no stanza sender attached")

	// ErrNoAccount is returned by commands when no account is connected.
	ErrNoAccount = errors.New("no connected account")
)

// InitError reports a component that failed to initialize.
type InitError struct {
	// Component is the name of the failing component.
	Component string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *InitError) Error() string {
	return fmt.Sprintf("init %s: %v", e.Component, e.Err)
}

// Unwrap returns the underlying error.
func (e *InitError) Unwrap() error {
	return e.Err
}

// HandlerError reports a component that panicked while handling an event.
type HandlerError struct {
	Component string
	Event     event.Kind
	Value     any
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s handling %s: panic: %v", e.Component, e.Event, e.Value)
}
