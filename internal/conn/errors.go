package conn

import "errors"

var (
	// ErrNotConnected is returned when sending for an account without a
	// running session.
	ErrNotConnected = errors.New("account not connected")

	// ErrAlreadyConnected is returned by Connect for an account that already
	// has a session, or one being established.
	ErrAlreadyConnected = errors.New("account already connected")

	// ErrQueueFull is returned when the outgoing queue of a session is full.
	ErrQueueFull = errors.New("outgoing queue full")

	// ErrClosed is returned by Connect after Close.
	ErrClosed = errors.New("connection manager closed")
)
