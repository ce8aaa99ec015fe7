// Package llm generates titles, categories, insights and advice for notes with a hosted language model.
package llm

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no language model is configured.
var ErrNotConfigured = errors.New("language model not configured")

// ChatRequest is one system-plus-user completion request.
type ChatRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
	JSON        bool
}

// Provider completes chat requests.
type Provider interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
	IsAvailable() bool
}
