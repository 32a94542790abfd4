package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hearthside-dev/grist/internal/embed"
	gerrors "github.com/hearthside-dev/grist/internal/errors"
	"github.com/hearthside-dev/grist/internal/store"
)

// Engine runs fused searches: embed the query, query the lexical and
// vector paths in parallel, normalize each side, and combine with a
// weighted sum.
type Engine struct {
	store    *store.Store
	embedder embed.Embedder
	cfg      Config
	log      *slog.Logger
}

// NewEngine creates a search engine. A nil logger uses slog.Default.
func NewEngine(st *store.Store, embedder embed.Embedder, cfg Config, log *slog.Logger) *Engine {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = DefaultConfig().DefaultTopK
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = DefaultConfig().MaxTopK
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = DefaultConfig().CandidateLimit
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: st, embedder: embedder, cfg: cfg, log: log}
}

// Search runs a fused search. A blank query is a validation error; a query
// that matches nothing returns an empty slice. Identical store contents
// and query always produce identical results, so ties are never broken by
// map iteration order.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, gerrors.Newf(gerrors.ErrCodeQueryEmpty, "search query is empty")
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = e.cfg.DefaultTopK
	}
	if topK > e.cfg.MaxTopK {
		topK = e.cfg.MaxTopK
	}

	weights := e.cfg.Weights
	if opts.Weights != nil {
		weights = *opts.Weights
	}

	start := time.Now()

	// Query embeddings are deliberately not cached: queries rarely
	// repeat verbatim and a stale hit here is worth less than the memory.
	queryVec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeEmbeddingFailed, err)
	}

	var lexHits []store.LexicalHit
	var vecHits []store.VectorHit

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lexHits, err = e.store.LexicalQuery(gctx, query, e.cfg.CandidateLimit, opts.SourceTypes)
		return err
	})
	g.Go(func() error {
		var err error
		vecHits, err = e.store.VectorQuery(gctx, queryVec, e.cfg.CandidateLimit, opts.SourceTypes)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scored := fuse(normalizeLexical(lexHits), normalizeSemantic(vecHits), weights)
	if len(scored) > topK {
		scored = scored[:topK]
	}
	if len(scored) == 0 {
		return []Result{}, nil
	}

	ids := make([]int64, len(scored))
	for i, s := range scored {
		ids[i] = s.id
	}
	records, err := e.store.GetRecords(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(scored))
	for _, s := range scored {
		rec, ok := records[s.id]
		if !ok {
			// Deleted between query and fetch; skip rather than emit
			// an empty shell.
			continue
		}
		results = append(results, Result{
			ID:            s.id,
			Content:       rec.Content,
			SourceType:    rec.SourceType,
			SourceID:      rec.SourceID,
			Metadata:      rec.Metadata,
			KeywordScore:  s.keyword,
			SemanticScore: s.semantic,
			FinalScore:    s.final,
		})
	}

	e.log.Debug("search complete",
		slog.String("query", query),
		slog.Int("lexical_hits", len(lexHits)),
		slog.Int("vector_hits", len(vecHits)),
		slog.Int("results", len(results)),
		slog.Duration("took", time.Since(start)))

	return results, nil
}

// RetrieveContext searches and formats the results for a prompt in one
// call, returning both the formatted context and the raw results.
func (e *Engine) RetrieveContext(ctx context.Context, query string, opts Options, maxChars int) (string, []Result, error) {
	results, err := e.Search(ctx, query, opts)
	if err != nil {
		return "", nil, err
	}
	return FormatAsContext(results, maxChars), results, nil
}
