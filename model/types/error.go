package types

import "fmt"

func NewMethodNotFoundError(name string) error {
	return fmt.Errorf("method %v not found", name)
}

func NewInvalidInputError(in interface{}) error {
	return fmt.Errorf("invalid input %T", in)
}

func NewInvalidOutputError(in interface{}) error {
	return fmt.Errorf("invalid output %T", in)
}

// ValidationError reports malformed operation arguments.  It is distinct
// from a rejected confirmation: validation fails before any approval is
// requested and is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %v", e.Reason)
	}
	return fmt.Sprintf("validation: %v: %v", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}
