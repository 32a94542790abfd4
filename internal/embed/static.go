package embed

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"

	gerrors "github.com/hearthside-dev/grist/internal/errors"
)

// StaticEmbedder generates embeddings using a hash-based approach. It works
// without network or model downloads and is fully deterministic, at the
// cost of semantic quality. Used for offline mode and tests.
type StaticEmbedder struct {
	dims int

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*StaticEmbedder)(nil)

// Weights for vector generation.
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// proseStopWords are high-frequency English words that carry little signal.
var proseStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"of": true, "to": true, "in": true, "on": true, "at": true,
	"is": true, "are": true, "was": true, "it": true, "for": true,
	"with": true, "as": true, "by": true, "be": true, "this": true,
}

// tokenRegex matches alphanumeric sequences.
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

// NewStaticEmbedder creates a static embedder. dims <= 0 uses
// DefaultDimensions.
func NewStaticEmbedder(dims int) *StaticEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &StaticEmbedder{dims: dims}
}

// Embed generates a deterministic embedding for a single text.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, gerrors.Newf(gerrors.ErrCodeEmbedderUnavailable, "embedder is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, e.dims), nil
	}

	return normalizeVector(e.generateVector(trimmed)), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

// generateVector hashes word tokens and character trigrams into the vector.
// Tokens dominate; trigrams add sub-word signal so near-miss spellings land
// close together.
func (e *StaticEmbedder) generateVector(text string) []float32 {
	vector := make([]float32, e.dims)

	for _, token := range tokenizeProse(text) {
		vector[hashToIndex(token, e.dims)] += tokenWeight
	}

	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	for _, ngram := range extractNgrams(normalized, ngramSize) {
		vector[hashToIndex(ngram, e.dims)] += ngramWeight
	}

	return vector
}

// tokenizeProse lowercases and splits text into words, dropping stop words.
func tokenizeProse(text string) []string {
	words := tokenRegex.FindAllString(text, -1)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		lower := strings.ToLower(w)
		if !proseStopWords[lower] {
			tokens = append(tokens, lower)
		}
	}
	return tokens
}

// extractNgrams returns all character n-grams of the given size.
func extractNgrams(s string, n int) []string {
	runes := []rune(s)
	if len(runes) < n {
		return nil
	}
	grams := make([]string, 0, len(runes)-n+1)
	for i := 0; i+n <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+n]))
	}
	return grams
}

// hashToIndex maps a string to a vector index via FNV-1a.
func hashToIndex(s string, dims int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(dims))
}

// Dimensions returns the embedding vector width.
func (e *StaticEmbedder) Dimensions() int { return e.dims }

// ModelName identifies the hash scheme, not a real model.
func (e *StaticEmbedder) ModelName() string { return "static-hash-v1" }

// Close marks the embedder closed.
func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
