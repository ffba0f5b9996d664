package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced activity, resource, or
	// participant no longer exists. It usually means the caller acted on
	// stale state, so it is surfaced rather than swallowed.
	ErrNotFound = errors.New("record not found")

	// ErrStoreUnavailable wraps transient data store failures. Callers may
	// retry with backoff; the engine itself does not.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError marks caller-fixable input problems. It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError for the given field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
