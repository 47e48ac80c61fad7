// Package textgen defines the generative-text port (interface).
package textgen

import "context"

// Generator produces text for a prompt. Implementations must bound the call
// with a timeout; errors, timeouts, and empty responses are all reported as
// an error so callers can apply the transient retry policy uniformly.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
