// Package embedding turns note text into fixed-length vectors.
package embedding

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no embedding provider can serve a request.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Embedder maps text to vectors of a fixed dimension.
type Embedder interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Model identifies the model, used to key caches.
	Model() string
}
