package session

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when a generation is started on a session
	// that already has one in flight.
	ErrBusy = errors.New("session: generation already in flight")

	// ErrNoResponse is returned when the stream ended without a
	// completed round.
	ErrNoResponse = errors.New("session: no response produced")
)

// ToolExecutionError wraps a failure raised by a tool. Tool failures
// abort the round and are never retried by the session.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

// ToolLoopError is returned when the model keeps requesting tools past
// the configured round bound.
type ToolLoopError struct {
	MaxRounds int
}

func (e *ToolLoopError) Error() string {
	return fmt.Sprintf("tool loop exceeded %d rounds", e.MaxRounds)
}

// TransportError wraps a backend stream failure surfaced on the partial
// sequence. Retry policy, if any, belongs to the transport.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
