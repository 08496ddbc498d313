package deltecho

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when an operation targets an unknown or
// already ended session.
var ErrSessionNotFound = errors.New("session not found")

// ErrCursorExhausted is returned by RecallCursor.Next after the ranked
// sequence has been fully consumed.
var ErrCursorExhausted = errors.New("recall cursor exhausted")

// ValidationError reports a malformed ingress message. It is raised before
// any state mutation, so a rejected message leaves no partial side effects.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid message: %s %s", e.Field, e.Reason)
}

// StateError reports an operation against an unknown or ended session.
// It is the only error category that propagates to ProcessMessage callers:
// there is no safe default session to continue with.
type StateError struct {
	SessionID string
	Op        string
	Err       error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: session %q: %v", e.Op, e.SessionID, e.Err)
}

func (e *StateError) Unwrap() error { return e.Err }

// TransportFailure names the failure category of a provider call.
type TransportFailure string

const (
	FailureConnection  TransportFailure = "connection"
	FailureStatus      TransportFailure = "status"
	FailureMalformed   TransportFailure = "malformed"
	FailureEmptyResult TransportFailure = "empty_result"
)

// TransportError reports a generation-provider failure. The gateway converts
// it into a fallback response; it never escapes to pipeline callers.
type TransportError struct {
	Failure TransportFailure
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("provider %s failure: %v", e.Failure, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HandlerError reports a panicking event listener. It is caught per listener
// at the bus boundary and surfaced through telemetry; emission to remaining
// listeners continues.
type HandlerError struct {
	Kind  EventKind
	Index int
	Panic any
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("event listener %d for %s panicked: %v", e.Index, e.Kind, e.Panic)
}
