package cmd

import (
	"context"
	"log/slog"

	"github.com/hearthside-dev/grist/internal/chunk"
	"github.com/hearthside-dev/grist/internal/config"
	"github.com/hearthside-dev/grist/internal/embed"
	"github.com/hearthside-dev/grist/internal/ingest"
	"github.com/hearthside-dev/grist/internal/logging"
	"github.com/hearthside-dev/grist/internal/search"
	"github.com/hearthside-dev/grist/internal/source"
	"github.com/hearthside-dev/grist/internal/store"
	"github.com/hearthside-dev/grist/internal/ui"
)

// app bundles the wired components a command works with.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	styles   ui.Styles
	store    *store.Store
	embedder embed.Embedder
	pipeline *ingest.Pipeline
	engine   *search.Engine
	source   *source.DirSource
}

// setup loads configuration and opens every component. Callers must Close.
func setup(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if opts.debug {
		level = "debug"
	}
	log := logging.Setup(level, nil)

	st, err := store.Open(cfg.Paths.DataDir, store.Options{
		Dimensions: cfg.Embeddings.Dimensions,
	})
	if err != nil {
		return nil, err
	}

	embedder, err := embed.Shared(ctx, embed.Config{
		Provider:   cfg.Embeddings.Provider,
		Model:      cfg.Embeddings.Model,
		Host:       cfg.Embeddings.OllamaHost,
		Dimensions: cfg.Embeddings.Dimensions,
		BatchSize:  cfg.Embeddings.BatchSize,
		CacheSize:  cfg.Embeddings.CacheSize,
		Timeout:    cfg.Embeddings.Timeout(),
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	chunkOpts := chunk.Options{
		MinTokens: cfg.Ingest.MinChunkTokens,
		MaxTokens: cfg.Ingest.MaxChunkTokens,
	}
	pipeline := ingest.New(st, embedder, chunkOpts, log)

	engine := search.NewEngine(st, embedder, search.Config{
		DefaultTopK:    cfg.Search.DefaultTopK,
		MaxTopK:        cfg.Search.MaxTopK,
		CandidateLimit: cfg.Search.CandidateLimit,
		Weights: search.Weights{
			Keyword:  cfg.Search.KeywordWeight,
			Semantic: cfg.Search.SemanticWeight,
		},
	}, log)

	return &app{
		cfg:      cfg,
		log:      log,
		styles:   ui.GetStyles(opts.noColor),
		store:    st,
		embedder: embedder,
		pipeline: pipeline,
		engine:   engine,
		source:   source.NewDirSource(cfg.Ingest.DocsDir),
	}, nil
}

// Close releases the store. The shared embedder stays alive for the
// process; one-shot commands exit right after anyway.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("store close failed", slog.String("error", err.Error()))
	}
}
