package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by repositories and services. Callers match them with
// errors.Is; handlers translate them into HTTP statuses.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrExecutionFailure = errors.New("execution failed")
	ErrStorage          = errors.New("storage error")
)

// Error wraps a sentinel with context for the caller.
type Error struct {
	Err     error
	Message string
	Field   string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func PermissionDenied(format string, args ...any) error {
	return &Error{Err: ErrPermissionDenied, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Err: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation reports a problem with a single input field. field may be empty.
func Validation(field, format string, args ...any) error {
	return &Error{Err: ErrValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func ExecutionFailure(cause error) error {
	return &Error{Err: ErrExecutionFailure, Message: cause.Error()}
}

// Storage wraps a driver error so that both ErrStorage and the cause match errors.Is.
func Storage(op string, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, cause)
}

// IsDomain reports whether err is a business failure (as opposed to an
// infrastructure one) that callers can act on.
func IsDomain(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrPermissionDenied)
}
