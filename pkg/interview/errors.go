package interview

import (
	"errors"
	"fmt"
)

// Sentinel errors that cross the engine boundary. Everything else is
// absorbed internally with a safe default.
var (
	// ErrSessionNotFound is returned when a requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionInactive is returned when a session has been deactivated or
	// is otherwise no longer accepting turns.
	ErrSessionInactive = errors.New("session is no longer active")
	// ErrTurnInProgress is returned when another turn already holds the
	// session's advisory lock.
	ErrTurnInProgress = errors.New("another turn is already in progress for this session")
)

// ValidationError rejects malformed input before any state mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a validation error for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ModelCallError is fatal to the current turn. Transient distinguishes
// "retry later" from a configuration problem the caller must fix.
type ModelCallError struct {
	Err       error
	Transient bool
}

func (e *ModelCallError) Error() string {
	if e.Transient {
		return fmt.Sprintf("model call failed (transient, retry): %v", e.Err)
	}
	return fmt.Sprintf("model call failed (configuration): %v", e.Err)
}

func (e *ModelCallError) Unwrap() error {
	return e.Err
}

// NewModelCallError wraps an upstream model failure.
func NewModelCallError(err error, transient bool) *ModelCallError {
	return &ModelCallError{Err: err, Transient: transient}
}

// IsModelCall reports whether err is a ModelCallError.
func IsModelCall(err error) bool {
	var mce *ModelCallError
	return errors.As(err, &mce)
}
