package embed

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder counts backend calls for cache assertions.
type countingEmbedder struct {
	*StaticEmbedder
	embedCalls int64
	batchTexts int64
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	atomic.AddInt64(&c.embedCalls, 1)
	return c.StaticEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt64(&c.batchTexts, int64(len(texts)))
	return c.StaticEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedderHitsSkipBackend(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder(16)}
	e, err := NewCachedEmbedder(inner, 8)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := e.Embed(ctx, "repeat text")
	require.NoError(t, err)
	second, err := e.Embed(ctx, "repeat text")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), atomic.LoadInt64(&inner.embedCalls))
}

func TestCachedEmbedderBatchOnlyEmbedsMisses(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder(16)}
	e, err := NewCachedEmbedder(inner, 8)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = e.EmbedBatch(ctx, []string{"a", "b"})
	require.NoError(t, err)

	vecs, err := e.EmbedBatch(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	// Only "c" was a miss on the second call.
	assert.Equal(t, int64(3), atomic.LoadInt64(&inner.batchTexts))
}

func TestCachedEmbedderReturnsCopies(t *testing.T) {
	inner := NewStaticEmbedder(16)
	e, err := NewCachedEmbedder(inner, 8)
	require.NoError(t, err)
	ctx := context.Background()

	a, err := e.Embed(ctx, "mutate me")
	require.NoError(t, err)
	a[0] = 99

	b, err := e.Embed(ctx, "mutate me")
	require.NoError(t, err)
	assert.NotEqual(t, float32(99), b[0])
}
