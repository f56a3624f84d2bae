package event

import "errors"

// Sentinel errors for the event package.
var (
	// ErrNilEvent is returned when a nil event is scheduled.
	ErrNilEvent = errors.New("event cannot be nil")

	// ErrConnectionLost is carried by Disconnected when the stream ended
	// without an explicit error.
	ErrConnectionLost = errors.New("connection lost")
)
