package providers

import (
	"context"
	"errors"
)

// Failure kinds of the generation call. Timeout and ErrService are
// retryable; ErrInvalidInput is not.
var (
	ErrTimeout      = errors.New("generation timeout")
	ErrService      = errors.New("generation service error")
	ErrInvalidInput = errors.New("invalid generation input")
)

// Retryable reports whether a failed generation call may be retried.
func Retryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrService)
}

// Generator is the boundary to the external generation service. The core
// treats it as an opaque, possibly slow, possibly failing remote call.
type Generator interface {
	// Generate sends the rendered payload and returns the generated
	// content. Failures wrap one of ErrTimeout, ErrService or
	// ErrInvalidInput.
	Generate(ctx context.Context, payload string) (string, error)

	// GetDefaultModel returns the model used when none is configured.
	GetDefaultModel() string
}
