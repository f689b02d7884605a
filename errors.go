package compose

import (
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	// ErrAlreadyCreated is returned by DynamicComponent.Create when the slot is
	// occupied and the container uses ReplaceReject.
	ErrAlreadyCreated = errors.New("compose: component already created")

	// ErrEmitterClosed is returned when subscribing to an emitter after Close.
	ErrEmitterClosed = errors.New("compose: emitter closed")

	// ErrNilObserver is returned when Subscribe is called with a nil observer.
	ErrNilObserver = errors.New("compose: nil observer")

	// ErrLoopStopped is returned by Loop.Do once the loop no longer accepts work.
	ErrLoopStopped = errors.New("compose: dispatch loop stopped")
)

// PreconditionError is the panic value raised when hosting code uses a
// container in a way that can only be a programming bug, such as reading the
// current component of an empty keyed container.
type PreconditionError struct {
	Container  string
	Op         string
	Reason     string
	StackTrace []byte
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("compose: %s on %s: %s", e.Op, e.Container, e.Reason)
}

func newPreconditionError(container, op, reason string) *PreconditionError {
	return &PreconditionError{
		Container:  container,
		Op:         op,
		Reason:     reason,
		StackTrace: debug.Stack(),
	}
}

// CaptureOrderError is the panic value raised when a capture scope is closed
// while it is not the innermost open scope, or from a goroutine that does not
// hold the open scopes.
type CaptureOrderError struct {
	Token CaptureToken
	// Top is the innermost open scope, zero when no scope is open.
	Top CaptureToken
	// Foreign is set when the open scopes belong to another goroutine.
	Foreign bool
}

func (e *CaptureOrderError) Error() string {
	if e.Foreign {
		return fmt.Sprintf("compose: end capture %d: open scopes belong to another goroutine", e.Token)
	}
	if e.Top == 0 {
		return fmt.Sprintf("compose: end capture %d: no capture scope is open", e.Token)
	}
	return fmt.Sprintf("compose: end capture %d: innermost open scope is %d", e.Token, e.Top)
}

// CleanupError contains information about a failed cleanup
type CleanupError struct {
	Owner        ID
	Subscription ID
	Err          error
	Context      string // "deferred", "discard" or "cancel"
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("compose: cleanup of %s for owner %s during %s: %v", e.Subscription, e.Owner, e.Context, e.Err)
}

func (e *CleanupError) Unwrap() error {
	return e.Err
}
