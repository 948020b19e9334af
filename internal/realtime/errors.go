package realtime

import "errors"

var (
	// ErrConnectionClosed is returned when writing to a connection whose
	// write loop has already shut down.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrWriteTimeout is returned when the write buffer stays full past
	// the configured write timeout.
	ErrWriteTimeout = errors.New("write timeout")

	// ErrInvalidEvent is returned for inbound frames that do not decode
	// into a known tagged event.
	ErrInvalidEvent = errors.New("invalid event")
)
