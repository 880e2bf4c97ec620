package llm

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUpstreamTimeout is returned when the generation deadline expires.
	ErrUpstreamTimeout = errors.New("generation endpoint timed out")
	// ErrNoGenerator is returned when no generation endpoint is configured.
	ErrNoGenerator = errors.New("no generation endpoint configured")
)

// UpstreamError is a non-success reply from the generation endpoint.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("generation endpoint error: %s", e.Message)
	}
	return fmt.Sprintf("generation endpoint returned status %d: %s", e.StatusCode, e.Message)
}

// Options are the sampling options sent with every generation request.
type Options struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// DefaultOptions matches the tuned defaults for short JSON replies.
func DefaultOptions() Options {
	return Options{Temperature: 0.1, TopP: 0.9, MaxTokens: 120}
}

// Generator is a black-box text generation endpoint. Implementations must
// honour ctx cancellation.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
	Name() string
}
