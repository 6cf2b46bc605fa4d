// Package llm defines the text-completion collaborator used for optional
// recruiter summaries. Ranking scores never depend on it.
package llm

import (
	"context"
	"errors"
)

// Completer returns a model completion for a single user prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("LLM provider not configured")

// PlaceholderClient is used when no provider is configured.
type PlaceholderClient struct{}

// Complete returns ErrNotConfigured.
func (PlaceholderClient) Complete(ctx context.Context, prompt string) (string, error) {
	return "", ErrNotConfigured
}

var _ Completer = PlaceholderClient{}
