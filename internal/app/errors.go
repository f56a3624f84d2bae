package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrAlreadyRunning indicates Run was called twice.
	ErrAlreadyRunning = errors.New("application already running")

	// ErrShutdownTimeout indicates the event loop did not stop in time.
	ErrShutdownTimeout = errors.New("shutdown timed out")

	// ErrUnknownAccount indicates an account name missing from the configuration.
	ErrUnknownAccount = errors.New("unknown account")
)

// InitError reports a startup step that failed.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialize %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
