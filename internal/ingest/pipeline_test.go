package ingest

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthside-dev/grist/internal/chunk"
	"github.com/hearthside-dev/grist/internal/embed"
	gerrors "github.com/hearthside-dev/grist/internal/errors"
	"github.com/hearthside-dev/grist/internal/source"
	"github.com/hearthside-dev/grist/internal/store"
)

const testDims = 32

func newTestPipeline(t *testing.T) (*Pipeline, *store.Store) {
	t.Helper()
	st, err := store.Open("", store.Options{Dimensions: testDims})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	p := New(st, embed.NewStaticEmbedder(testDims), chunk.DefaultOptions(), nil)
	return p, st
}

func longDoc() string {
	para := strings.TrimSpace(strings.Repeat("brewing manual sentence ", 60))
	return para + "\n\n" + para + "\n\n" + para
}

func TestIngestDocument(t *testing.T) {
	p, st := newTestPipeline(t)
	ctx := context.Background()

	res, err := p.IngestDocument(ctx, source.Document{
		ID:      "manual.md",
		Title:   "Brewing Manual",
		Content: longDoc(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Deleted)
	assert.Greater(t, res.Inserted, 1)

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.Inserted, stats.ByType[store.SourceTypeBusinessDoc])
}

func TestIngestDocumentReplaceLeavesNoDuplicates(t *testing.T) {
	p, st := newTestPipeline(t)
	ctx := context.Background()
	doc := source.Document{ID: "manual.md", Title: "Brewing Manual", Content: longDoc()}

	first, err := p.IngestDocument(ctx, doc)
	require.NoError(t, err)

	second, err := p.IngestDocument(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, first.Inserted, second.Deleted)
	assert.Equal(t, first.Inserted, second.Inserted)

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Inserted, stats.Total)
}

func TestIngestDocumentEmptyContent(t *testing.T) {
	p, st := newTestPipeline(t)
	ctx := context.Background()

	// Ingest, then re-ingest with empty content: old records go, nothing
	// replaces them.
	_, err := p.IngestDocument(ctx, source.Document{ID: "d.md", Title: "D", Content: longDoc()})
	require.NoError(t, err)

	res, err := p.IngestDocument(ctx, source.Document{ID: "d.md", Title: "D", Content: ""})
	require.NoError(t, err)
	assert.Greater(t, res.Deleted, 0)
	assert.Equal(t, 0, res.Inserted)

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}

// failingEmbedder always fails, for under-ingestion checks.
type failingEmbedder struct{ embed.Embedder }

func (f failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, gerrors.Newf(gerrors.ErrCodeEmbeddingFailed, "backend down")
}

func TestIngestDocumentEmbedFailureLeavesSourceAbsent(t *testing.T) {
	st, err := store.Open("", store.Options{Dimensions: testDims})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	ctx := context.Background()

	good := New(st, embed.NewStaticEmbedder(testDims), chunk.DefaultOptions(), nil)
	doc := source.Document{ID: "d.md", Title: "D", Content: longDoc()}
	_, err = good.IngestDocument(ctx, doc)
	require.NoError(t, err)

	bad := New(st, failingEmbedder{embed.NewStaticEmbedder(testDims)}, chunk.DefaultOptions(), nil)
	_, err = bad.IngestDocument(ctx, doc)
	require.Error(t, err)
	assert.Equal(t, gerrors.ErrCodeIngestFailed, gerrors.GetCode(err))

	// Old records were deleted, no new ones inserted, no zero vectors.
	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}

func TestIngestPostAndReply(t *testing.T) {
	p, st := newTestPipeline(t)
	ctx := context.Background()

	postID, err := p.IngestPost(ctx, "Fresh beans just landed!", "post-1", nil)
	require.NoError(t, err)
	replyID, err := p.IngestReply(ctx, "They smell amazing.", "reply-1", "post-1", nil)
	require.NoError(t, err)
	assert.Less(t, postID, replyID)

	recs, err := st.GetRecords(ctx, []int64{postID, replyID})
	require.NoError(t, err)

	post := recs[postID]
	assert.Equal(t, store.SourceTypePost, post.SourceType)
	assert.Equal(t, "post-1", post.SourceID)
	pid, _ := post.Metadata.Get("post_id")
	assert.Equal(t, "post-1", pid.AsString())

	reply := recs[replyID]
	assert.Equal(t, store.SourceTypeReply, reply.SourceType)
	orig, _ := reply.Metadata.Get("original_post_id")
	assert.Equal(t, "post-1", orig.AsString())
}

func TestIngestPostReplacesPrevious(t *testing.T) {
	p, st := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.IngestPost(ctx, "v1", "post-1", nil)
	require.NoError(t, err)
	_, err = p.IngestPost(ctx, "v2 edited", "post-1", nil)
	require.NoError(t, err)

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}

func TestConcurrentReingestSameSource(t *testing.T) {
	p, st := newTestPipeline(t)
	ctx := context.Background()
	doc := source.Document{ID: "d.md", Title: "D", Content: longDoc()}

	base, err := p.IngestDocument(ctx, doc)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.IngestDocument(ctx, doc)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Serialization means the count never doubles up.
	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, base.Inserted, stats.Total)
}

func TestRemoveSource(t *testing.T) {
	p, st := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.IngestPost(ctx, "content", "post-1", nil)
	require.NoError(t, err)

	deleted, err := p.RemoveSource(ctx, store.SourceTypePost, "post-1")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}

// memorySource is a fixed in-memory document source.
type memorySource struct {
	docs []source.Document
}

func (m memorySource) FetchDocuments(ctx context.Context) ([]source.Document, error) {
	return m.docs, nil
}

func TestSyncCorpus(t *testing.T) {
	p, st := newTestPipeline(t)
	ctx := context.Background()

	src := memorySource{docs: []source.Document{
		{ID: "a.md", Title: "A", Content: longDoc()},
		{ID: "b.md", Title: "B", Content: "short doc"},
	}}

	report, err := p.SyncCorpus(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 2, report.DocumentsProcessed)
	assert.Greater(t, report.ChunksCreated, 2)
	assert.Empty(t, report.Errors)

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.ChunksCreated, stats.Total)

	// Second sync replaces everything.
	report2, err := p.SyncCorpus(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, report.ChunksCreated, report2.ChunksDeleted)
}
