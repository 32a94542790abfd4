package embed

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedEmbedder wraps an Embedder with an LRU cache keyed by text. It is
// used on the ingestion path, where re-syncing a corpus re-embeds mostly
// unchanged chunks. Query embeddings go straight to the backend and are
// not cached.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner with a cache of the given size.
func NewCachedEmbedder(inner Embedder, size int) (*CachedEmbedder, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

// Embed returns the cached vector for text, or embeds and caches it.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := e.cache.Get(text); ok {
		return cloneVector(vec), nil
	}
	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Add(text, cloneVector(vec))
	return vec, nil
}

// EmbedBatch serves cache hits locally and sends only the misses to the
// backend in a single batch call.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if vec, ok := e.cache.Get(text); ok {
			out[i] = cloneVector(vec)
		} else {
			missTexts = append(missTexts, text)
			missIdx = append(missIdx, i)
		}
	}

	if len(missTexts) > 0 {
		vecs, err := e.inner.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, vec := range vecs {
			e.cache.Add(missTexts[j], cloneVector(vec))
			out[missIdx[j]] = vec
		}
	}

	return out, nil
}

// Dimensions returns the inner embedder's vector width.
func (e *CachedEmbedder) Dimensions() int { return e.inner.Dimensions() }

// ModelName returns the inner embedder's model name.
func (e *CachedEmbedder) ModelName() string { return e.inner.ModelName() }

// Close purges the cache and closes the inner embedder.
func (e *CachedEmbedder) Close() error {
	e.cache.Purge()
	return e.inner.Close()
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
