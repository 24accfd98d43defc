package main

import (
	"errors"
	"fmt"
)

// ErrNotFound marks an absent profile or preference where one was expected.
// Store lookups return (nil, nil) for absent rows; ErrNotFound is raised by
// callers that cannot proceed without the record.
var ErrNotFound = errors.New("not found")

// ValidationError is malformed or out-of-range user input. The engine
// recovers locally by re-prompting in the same state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a user-input validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// storageErr wraps a persistence-layer failure with the failing operation.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
