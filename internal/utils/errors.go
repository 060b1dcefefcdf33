package utils

import (
	"errors"
	"fmt"
)

// ValidationError reports a rejected configuration or request value.
// Field is optional and names the offending key (for example "scanner.k_trusted").
type ValidationError struct {
	Field   string
	Message string
}

// Error returns the error message, prefixed with the field when one is set.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for the given field.
//
// Parameters:
//   - field: The configuration key or parameter name (may be empty).
//   - message: The validation error message.
//
// Returns:
//   - An error wrapping the ValidationError.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorf creates a ValidationError with a formatted message.
func NewValidationErrorf(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err (or anything it wraps) is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
