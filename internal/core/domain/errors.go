package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrItemNotFound reports a purchase or lookup against an unknown item.
	ErrItemNotFound = errors.New("item not found")

	// ErrInvalidQuantity reports a requested quantity below one.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInsufficientStock reports a purchase exceeding the item's current
	// quantity. No state changes when it is returned.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrUnauthenticated reports an operation that requires a principal
	// when none was supplied. Callers redirect to the identity provider.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrDuplicateRequest reports a replayed purchase request ID.
	ErrDuplicateRequest = errors.New("duplicate request")

	// ErrConflict is a transient storage-level serialization failure. The
	// coordinator retries a bounded number of times before surfacing it.
	ErrConflict = errors.New("storage conflict")
)

// ValidationError is a field-level rejection of a listing or purchase
// input. It carries enough detail to render a field-specific message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validationf builds a ValidationError for the given field.
func Validationf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
