package runtime

import (
	"errors"
	"fmt"
)

// BridgeError represents a failure at the bridge/adapter boundary.
//
// Bridge errors include:
//   - Init failed: the engine could not be constructed; fatal, no degraded mode
//   - Not ready: a public operation invoked before initialization completed
//   - Closed: a request submitted after shutdown
//   - Listener failed: a subscriber panicked during notification delivery
//
// BridgeError includes structured fields for diagnostics.
type BridgeError struct {
	// Code identifies the error category.
	Code BridgeErrorCode

	// Message is a human-readable description.
	Message string

	// Op names the operation that failed (e.g. "dispatch", "getState").
	Op string

	// Event identifies the event being delivered (listener failures only).
	Event string

	// Err is the underlying cause, if any.
	Err error
}

// BridgeErrorCode categorizes bridge errors.
type BridgeErrorCode string

const (
	// ErrCodeInitFailed indicates the engine failed to construct.
	ErrCodeInitFailed BridgeErrorCode = "INIT_FAILED"

	// ErrCodeNotReady indicates an operation before initialization completed.
	ErrCodeNotReady BridgeErrorCode = "NOT_READY"

	// ErrCodeClosed indicates a request after the adapter shut down.
	ErrCodeClosed BridgeErrorCode = "CLOSED"

	// ErrCodeListenerFailed indicates a listener panicked during delivery.
	ErrCodeListenerFailed BridgeErrorCode = "LISTENER_FAILED"
)

// Error implements the error interface.
func (e *BridgeError) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s (op=%s): %v", e.Code, e.Message, e.Op, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s (op=%s)", e.Code, e.Message, e.Op)
	case e.Event != "":
		return fmt.Sprintf("%s: %s (event=%s)", e.Code, e.Message, e.Event)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause.
func (e *BridgeError) Unwrap() error {
	return e.Err
}

// IsInitFailed reports whether err is an engine construction failure.
// Uses errors.As to handle wrapped errors.
func IsInitFailed(err error) bool {
	var be *BridgeError
	if errors.As(err, &be) {
		return be.Code == ErrCodeInitFailed
	}
	return false
}

// IsNotReady reports whether err is a not-ready rejection.
func IsNotReady(err error) bool {
	var be *BridgeError
	if errors.As(err, &be) {
		return be.Code == ErrCodeNotReady
	}
	return false
}

// IsClosed reports whether err is a post-shutdown rejection.
func IsClosed(err error) bool {
	var be *BridgeError
	if errors.As(err, &be) {
		return be.Code == ErrCodeClosed
	}
	return false
}

// IsListenerError reports whether err is an isolated listener failure.
func IsListenerError(err error) bool {
	var be *BridgeError
	if errors.As(err, &be) {
		return be.Code == ErrCodeListenerFailed
	}
	return false
}

// NewInitError creates a BridgeError for engine construction failure.
func NewInitError(err error) *BridgeError {
	return &BridgeError{
		Code:    ErrCodeInitFailed,
		Message: "engine failed to initialize",
		Err:     err,
	}
}

// NewNotReadyError creates a BridgeError for an operation before readiness.
func NewNotReadyError(op string) *BridgeError {
	return &BridgeError{
		Code:    ErrCodeNotReady,
		Message: "runtime is not ready",
		Op:      op,
	}
}

// NewClosedError creates a BridgeError for a request after shutdown.
func NewClosedError(op string) *BridgeError {
	return &BridgeError{
		Code:    ErrCodeClosed,
		Message: "runtime is closed",
		Op:      op,
	}
}

// NewListenerError creates a BridgeError for a recovered listener panic.
func NewListenerError(event string, recovered any) *BridgeError {
	return &BridgeError{
		Code:    ErrCodeListenerFailed,
		Message: fmt.Sprintf("listener panicked: %v", recovered),
		Event:   event,
	}
}
