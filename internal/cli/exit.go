package cli

import (
	"errors"
	"fmt"
)

// Process exit statuses.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the engine stopped, a scenario failed or a rule file is invalid
	ExitCommandError = 2 // bad flags, missing paths, unreadable database
)

// ExitError attaches a process exit status to a command failure.
type ExitError struct {
	Code    int
	Message string
	Err     error // may be nil
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError that wraps err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps a command's error to its exit status. Errors that carry
// no ExitError anywhere in their chain exit with ExitFailure.
func GetExitCode(err error) int {
	var ee *ExitError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &ee):
		return ee.Code
	default:
		return ExitFailure
	}
}

// exitf is NewExitError with a formatted message.
func exitf(code int, format string, args ...any) *ExitError {
	return NewExitError(code, fmt.Sprintf(format, args...))
}
