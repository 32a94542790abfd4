// Package embed generates text embeddings. The default backend is Ollama's
// HTTP API; a deterministic hash-based embedder covers offline use and
// tests. All backends produce vectors of a fixed dimensionality.
package embed

import (
	"context"
	"math"
	"time"
)

// Embedder generates embedding vectors for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. One backend
	// call covers the whole batch (chunked by the configured batch
	// size). An empty input returns an empty slice without touching the
	// backend. Any failure fails the whole call; there is no partial
	// result and no zero-vector fallback.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector width.
	Dimensions() int

	// ModelName returns the backing model identifier.
	ModelName() string

	// Close releases resources.
	Close() error
}

// Defaults for the Ollama backend.
const (
	DefaultDimensions = 384
	DefaultOllamaHost = "http://localhost:11434"
	DefaultOllamaModel = "all-minilm"
	DefaultBatchSize  = 32
	DefaultTimeout    = 120 * time.Second
)

// normalizeVector returns a unit-length copy of v. A zero vector is
// returned unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	out := make([]float32, len(v))
	if sumSquares == 0 {
		copy(out, v)
		return out
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i, val := range v {
		out[i] = val * inv
	}
	return out
}
