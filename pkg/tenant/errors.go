package tenant

import (
	"errors"
	"fmt"
)

// Error kinds shared across the multi-tenant core. Callers match with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrBusy          = errors.New("tenant busy")
	ErrIOFailure     = errors.New("io failure")
)

// ValidationError reports a malformed watchlist or preference entry.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
