// Package errs holds the sentinel errors shared by the client layers.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when local validation rejects an action
	// before any network call is made.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRejected is returned when the server answered a mutation with a non-2xx status.
	ErrRejected = errors.New("rejected by server")

	// ErrTransport is returned when the request never produced an HTTP response.
	ErrTransport = errors.New("transport failure")

	// ErrNotAuthenticated is returned when an action needs a login or session that is missing or expired.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotFound is returned when a stored record or queue entry does not exist.
	ErrNotFound = errors.New("not found")
)

// ValidationError describes a single rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap lets callers match ErrInvalidInput with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
