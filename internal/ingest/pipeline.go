// Package ingest coordinates chunking, embedding, and storage. Replacing a
// source is delete-then-insert: old records go first, so a failure can
// leave a source missing but never duplicated.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hearthside-dev/grist/internal/chunk"
	"github.com/hearthside-dev/grist/internal/embed"
	gerrors "github.com/hearthside-dev/grist/internal/errors"
	"github.com/hearthside-dev/grist/internal/source"
	"github.com/hearthside-dev/grist/internal/store"
)

// Pipeline ingests content into the store.
type Pipeline struct {
	store    *store.Store
	embedder embed.Embedder
	opts     chunk.Options
	log      *slog.Logger

	// locks serializes re-ingestion per (source_type, source_id).
	// Different sources ingest concurrently; the store keeps each
	// individual call atomic.
	locks sync.Map // string -> *sync.Mutex
}

// Result summarizes one document ingestion.
type Result struct {
	// Deleted is the number of previous records replaced.
	Deleted int
	// Inserted is the number of new chunks stored.
	Inserted int
}

// New creates a pipeline. A nil logger uses slog.Default.
func New(st *store.Store, embedder embed.Embedder, opts chunk.Options, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{store: st, embedder: embedder, opts: opts, log: log}
}

func (p *Pipeline) lockFor(st store.SourceType, sourceID string) *sync.Mutex {
	key := string(st) + "\x00" + sourceID
	mu, _ := p.locks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// IngestDocument replaces a document's records: delete everything under its
// source id, chunk, embed all chunks in one batch, and insert each chunk.
// Concurrent calls for the same document run one at a time. If embedding
// fails after the delete, the document is absent rather than stale; nothing
// is inserted and no zero vectors stand in.
func (p *Pipeline) IngestDocument(ctx context.Context, doc source.Document) (Result, error) {
	mu := p.lockFor(store.SourceTypeBusinessDoc, doc.ID)
	mu.Lock()
	defer mu.Unlock()

	var res Result

	deleted, err := p.store.DeleteBySource(ctx, store.SourceTypeBusinessDoc, doc.ID)
	if err != nil {
		return res, err
	}
	res.Deleted = deleted

	chunks := chunk.Document(doc.Content, doc.Title, doc.ID, p.opts)
	if len(chunks) == 0 {
		p.log.Debug("document produced no chunks", slog.String("source_id", doc.ID))
		return res, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return res, gerrors.Wrap(gerrors.ErrCodeIngestFailed, err)
	}

	for i, c := range chunks {
		if _, err := p.store.Insert(ctx, store.Record{
			SourceType: store.SourceTypeBusinessDoc,
			SourceID:   doc.ID,
			Content:    c.Content,
			Metadata:   c.Metadata,
			Vector:     vectors[i],
		}); err != nil {
			return res, gerrors.Wrap(gerrors.ErrCodeIngestFailed, err)
		}
		res.Inserted++
	}

	p.log.Info("document ingested",
		slog.String("source_id", doc.ID),
		slog.Int("chunks", res.Inserted),
		slog.Int("replaced", res.Deleted))

	return res, nil
}

// IngestPost stores a published post as a single atomic chunk, replacing
// any previous records for the same post id.
func (p *Pipeline) IngestPost(ctx context.Context, content, postID string, extra store.Metadata) (int64, error) {
	return p.ingestAtomic(ctx, store.SourceTypePost, postID, chunk.Post(content, postID, extra))
}

// IngestReply stores a published reply as a single atomic chunk.
func (p *Pipeline) IngestReply(ctx context.Context, content, replyID, originalPostID string, extra store.Metadata) (int64, error) {
	return p.ingestAtomic(ctx, store.SourceTypeReply, replyID, chunk.Reply(content, replyID, originalPostID, extra))
}

func (p *Pipeline) ingestAtomic(ctx context.Context, st store.SourceType, sourceID string, c chunk.Chunk) (int64, error) {
	mu := p.lockFor(st, sourceID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := p.store.DeleteBySource(ctx, st, sourceID); err != nil {
		return 0, err
	}

	vec, err := p.embedder.Embed(ctx, c.Content)
	if err != nil {
		return 0, gerrors.Wrap(gerrors.ErrCodeIngestFailed, err)
	}

	id, err := p.store.Insert(ctx, store.Record{
		SourceType: st,
		SourceID:   sourceID,
		Content:    c.Content,
		Metadata:   c.Metadata,
		Vector:     vec,
	})
	if err != nil {
		return 0, gerrors.Wrap(gerrors.ErrCodeIngestFailed, err)
	}
	return id, nil
}

// RemoveSource deletes a source's records under the same per-source lock
// the ingest paths take.
func (p *Pipeline) RemoveSource(ctx context.Context, st store.SourceType, sourceID string) (int, error) {
	mu := p.lockFor(st, sourceID)
	mu.Lock()
	defer mu.Unlock()
	return p.store.DeleteBySource(ctx, st, sourceID)
}

// SyncReport summarizes a corpus sync.
type SyncReport struct {
	DocumentsProcessed int
	ChunksCreated      int
	ChunksDeleted      int
	Errors             []string
}

// SyncCorpus re-ingests every document the source currently holds. A bad
// document is recorded and skipped; the sync keeps going.
func (p *Pipeline) SyncCorpus(ctx context.Context, src source.Source) (SyncReport, error) {
	var report SyncReport

	docs, err := src.FetchDocuments(ctx)
	if err != nil {
		return report, gerrors.Wrap(gerrors.ErrCodeIngestFailed, err)
	}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := p.IngestDocument(ctx, doc)
		report.ChunksDeleted += res.Deleted
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", doc.ID, err))
			p.log.Warn("document sync failed",
				slog.String("source_id", doc.ID),
				slog.String("error", err.Error()))
			continue
		}
		report.DocumentsProcessed++
		report.ChunksCreated += res.Inserted
	}

	p.log.Info("corpus sync complete",
		slog.Int("documents", report.DocumentsProcessed),
		slog.Int("chunks", report.ChunksCreated),
		slog.Int("errors", len(report.Errors)))

	return report, nil
}
