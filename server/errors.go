package server

import (
	"errors"
	"fmt"
)

// ErrServerPanicked is wrapped by the Error returned when a panic was
// recovered on the session goroutine.
var ErrServerPanicked = errors.New("server panicked")

// Kind categorizes a session failure.
type Kind int

const (
	// KindStartup is a failure before any session could begin.
	KindStartup Kind = iota + 1
	// KindProtocol is a malformed, unexpected or missing protocol message.
	KindProtocol
	// KindEngine is an error returned by the processing engine.
	KindEngine
	// KindFault is a recovered panic.
	KindFault
	// KindShutdownIO is a failure reported while joining the transport.
	KindShutdownIO
)

func (k Kind) String() string {
	switch k {
	case KindStartup:
		return "startup failure"
	case KindProtocol:
		return "protocol failure"
	case KindEngine:
		return "engine failure"
	case KindFault:
		return "fault"
	case KindShutdownIO:
		return "io shutdown failure"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a categorized session failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the category of err, or 0 for nil and uncategorized errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

func protocolf(format string, args ...any) *Error {
	return &Error{Kind: KindProtocol, Err: fmt.Errorf(format, args...)}
}

// outcome renders err for the terminating lifecycle event.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return err.Error()
}
