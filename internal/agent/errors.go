package agent

import (
	"errors"
	"fmt"
)

// ErrorCode is a string type used for structured error reporting from action
// execution. Using a custom type ensures that only predefined constants can
// be used where an ErrorCode is expected.
type ErrorCode string

const (
	ErrCodeExecutionFailure ErrorCode = "EXECUTION_FAILURE"
	ErrCodeUnknownAction    ErrorCode = "UNKNOWN_ACTION_TYPE"
	ErrCodeElementNotFound  ErrorCode = "ELEMENT_NOT_FOUND"
	ErrCodeTimeoutError     ErrorCode = "TIMEOUT_ERROR"
	ErrCodeNavigationError  ErrorCode = "NAVIGATION_ERROR"
	// ErrCodeFeatureUnavailable indicates the page lacks the affordance the
	// action needs (no search input, no help link).
	ErrCodeFeatureUnavailable ErrorCode = "FEATURE_UNAVAILABLE"
)

// ExecError is an action execution failure tagged with a machine-readable
// code, so the loop can log failure classes without parsing messages.
type ExecError struct {
	Code ErrorCode
	Err  error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// NewExecError wraps err with the given code.
func NewExecError(code ErrorCode, err error) *ExecError {
	return &ExecError{Code: code, Err: err}
}

// Errorf builds a coded execution error from a format string.
func Errorf(code ErrorCode, format string, args ...any) *ExecError {
	return &ExecError{Code: code, Err: fmt.Errorf(format, args...)}
}

// CodeOf extracts the ErrorCode from err, or ErrCodeExecutionFailure when
// the error carries none.
func CodeOf(err error) ErrorCode {
	var execErr *ExecError
	if errors.As(err, &execErr) {
		return execErr.Code
	}
	return ErrCodeExecutionFailure
}
