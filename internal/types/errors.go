package types

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when a manager instance is asked to start an operation
// while another one is still in flight on the same instance. Callers are not
// queued; they get this immediately and decide whether to retry.
var ErrBusy = errors.New("operation already in progress on this manager")

// ConfigurationError reports a missing or inconsistent session/environment
// pairing. It is fatal to the requested operation and never retried
// automatically.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// NewConfigurationError builds a ConfigurationError with a formatted reason.
func NewConfigurationError(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// InterpreterExecutionError wraps a failure surfaced from inside the embedded
// interpreter, preserving the original message.
type InterpreterExecutionError struct {
	Op    string
	Cause error
}

func (e *InterpreterExecutionError) Error() string {
	return fmt.Sprintf("interpreter execution failed (%s): %v", e.Op, e.Cause)
}

func (e *InterpreterExecutionError) Unwrap() error { return e.Cause }

// OperationError wraps any non-interpreter failure raised inside a
// gateway-guarded action.
type OperationError struct {
	Op    string
	Cause error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %s failed: %v", e.Op, e.Cause)
}

func (e *OperationError) Unwrap() error { return e.Cause }

// NetworkError reports a registry lookup failure. It is always swallowed at
// the engine boundary and degrades to "no update info available".
type NetworkError struct {
	URL   string
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("registry lookup %s failed: %v", e.URL, e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }
