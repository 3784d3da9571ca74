package domain

import "fmt"

// InvalidFilterError reports a user-correctable problem with one filter
// field. It is the only error the engine surfaces past its boundary.
type InvalidFilterError struct {
	Field   string
	Message string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid filter %q: %s", e.Field, e.Message)
}

func NewInvalidFilterError(field, format string, args ...any) *InvalidFilterError {
	return &InvalidFilterError{Field: field, Message: fmt.Sprintf(format, args...)}
}
