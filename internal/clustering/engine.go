// Package clustering groups notes into topics with density-based clustering over embeddings.
package clustering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/thebtf/braindump/internal/embedding"
	"github.com/thebtf/braindump/pkg/privacy"
	"github.com/thebtf/braindump/pkg/similarity"
)

// ErrEmbeddingUnavailable is returned when vectors for the batch cannot be obtained.
var ErrEmbeddingUnavailable = errors.New("embeddings unavailable for clustering")

// Item is one note to cluster. Embedding may be empty, in which case it is computed.
type Item struct {
	ID        string
	Text      string
	Embedding []float32
}

// Engine clusters batches of notes.
type Engine struct {
	embedder embedding.Embedder
	params   Params
	runs     metric.Int64Counter
}

// NewEngine creates an Engine. A nil embedder limits it to items that carry embeddings.
func NewEngine(embedder embedding.Embedder, params Params) *Engine {
	runs, err := otel.Meter("github.com/thebtf/braindump/internal/clustering").Int64Counter(
		"braindump.clustering.runs",
		metric.WithDescription("Clustering passes by outcome"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create clustering counter")
	}
	return &Engine{embedder: embedder, params: params, runs: runs}
}

// Cluster returns a label per meaningful item. Items whose text is not meaningful
// are left out of the result. Noise is labelled -1.
func (e *Engine) Cluster(ctx context.Context, items []Item) (map[string]int, error) {
	start := time.Now()

	kept := make([]Item, 0, len(items))
	for _, it := range items {
		if similarity.IsMeaningful(privacy.Clean(it.Text)) {
			kept = append(kept, it)
		}
	}

	result := make(map[string]int, len(kept))
	switch len(kept) {
	case 0:
		e.record(ctx, "empty")
		return result, nil
	case 1:
		result[kept[0].ID] = Noise
		e.record(ctx, "single")
		return result, nil
	}

	vectors, err := e.vectors(ctx, kept)
	if err != nil {
		e.record(ctx, "unavailable")
		return nil, err
	}

	labels := HDBSCAN(vectors, e.params)
	clusters := 0
	for i, it := range kept {
		result[it.ID] = labels[i]
		if labels[i]+1 > clusters {
			clusters = labels[i] + 1
		}
	}

	e.record(ctx, "ok")
	log.Info().
		Int("items", len(items)).
		Int("clustered", len(kept)).
		Int("clusters", clusters).
		Dur("took", time.Since(start)).
		Msg("Clustering pass finished")
	return result, nil
}

// vectors returns one vector per item, embedding the missing ones in a single batch.
func (e *Engine) vectors(ctx context.Context, items []Item) ([][]float32, error) {
	vectors := make([][]float32, len(items))
	var missing []int
	var texts []string
	for i, it := range items {
		if len(it.Embedding) > 0 {
			vectors[i] = it.Embedding
			continue
		}
		missing = append(missing, i)
		texts = append(texts, it.Text)
	}
	if len(missing) > 0 {
		if e.embedder == nil {
			return nil, fmt.Errorf("%w: no embedding provider configured", ErrEmbeddingUnavailable)
		}
		embedded, err := e.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
		}
		for j, i := range missing {
			vectors[i] = embedded[j]
		}
	}

	dims := len(vectors[0])
	for _, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("%w: mixed embedding dimensions", ErrEmbeddingUnavailable)
		}
	}
	return vectors, nil
}

func (e *Engine) record(ctx context.Context, outcome string) {
	if e.runs != nil {
		e.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}
