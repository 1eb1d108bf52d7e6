package inventory

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced category or product does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a category name is already used by a sibling.
	ErrDuplicate = errors.New("already exists")

	// ErrInsufficientStock is returned when a purchase asks for more than is on hand.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ValidationError reports a missing or malformed form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError returns a *ValidationError for field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
