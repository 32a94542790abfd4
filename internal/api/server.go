// Package api exposes the store, search engine, and ingestion pipeline
// over HTTP.
package api

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"

	gerrors "github.com/hearthside-dev/grist/internal/errors"
	"github.com/hearthside-dev/grist/internal/ingest"
	"github.com/hearthside-dev/grist/internal/search"
	"github.com/hearthside-dev/grist/internal/source"
	"github.com/hearthside-dev/grist/internal/store"
)

// Server is the HTTP API server.
type Server struct {
	app      *fiber.App
	store    *store.Store
	engine   *search.Engine
	pipeline *ingest.Pipeline
	source   source.Source
	log      *slog.Logger
}

// NewServer wires the API routes. A nil source disables /sync with 503.
// A nil logger uses slog.Default.
func NewServer(st *store.Store, engine *search.Engine, pipeline *ingest.Pipeline, src source.Source, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	app := fiber.New(fiber.Config{
		AppName: "grist",
	})
	app.Use(recover.New())

	s := &Server{
		app:      app,
		store:    st,
		engine:   engine,
		pipeline: pipeline,
		source:   src,
		log:      log,
	}
	s.register(app.Group("/api/v1"))
	return s
}

func (s *Server) register(router fiber.Router) {
	router.Get("/health", s.handleHealth)
	router.Get("/search", s.handleSearch)
	router.Get("/stats", s.handleStats)
	router.Delete("/embeddings/:source_type", s.handleDelete)
	router.Post("/sync", s.handleSync)
}

// App returns the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.log.Info("http server listening", slog.String("addr", addr))
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleSearch(c fiber.Ctx) error {
	query := c.Query("query")

	opts := search.Options{}
	if raw := c.Query("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return writeError(c, gerrors.Newf(gerrors.ErrCodeInvalidInput,
				"top_k must be a positive integer, got %q", raw))
		}
		opts.TopK = n
	}

	types, err := store.ParseSourceTypes(c.Query("source_types"))
	if err != nil {
		return writeError(c, err)
	}
	opts.SourceTypes = types

	results, err := s.engine.Search(c.Context(), query, opts)
	if err != nil {
		return writeError(c, err)
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{
			ID:            r.ID,
			Content:       r.Content,
			SourceType:    string(r.SourceType),
			SourceID:      r.SourceID,
			FinalScore:    r.FinalScore,
			BM25Score:     r.KeywordScore,
			SemanticScore: r.SemanticScore,
			Metadata:      r.Metadata,
		}
	}

	return c.JSON(SearchResponse{
		Query:        query,
		Results:      out,
		TotalResults: len(out),
	})
}

func (s *Server) handleStats(c fiber.Ctx) error {
	stats, err := s.store.Stats(c.Context())
	if err != nil {
		return writeError(c, err)
	}

	byType := make(map[string]int, len(stats.ByType))
	for st, n := range stats.ByType {
		byType[string(st)] = n
	}
	return c.JSON(StatsResponse{
		TotalEmbeddings: stats.Total,
		ByType:          byType,
	})
}

func (s *Server) handleDelete(c fiber.Ctx) error {
	st, err := store.ParseSourceType(c.Params("source_type"))
	if err != nil {
		return writeError(c, err)
	}
	sourceID := c.Query("source_id")

	deleted, err := s.pipeline.RemoveSource(c.Context(), st, sourceID)
	if err != nil {
		return writeError(c, err)
	}

	s.log.Info("embeddings deleted",
		slog.String("source_type", string(st)),
		slog.String("source_id", sourceID),
		slog.Int("count", deleted))

	return c.JSON(DeleteResponse{
		Status:       "deleted",
		DeletedCount: deleted,
		SourceType:   string(st),
		SourceID:     sourceID,
	})
}

func (s *Server) handleSync(c fiber.Ctx) error {
	if s.source == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "no document source configured",
		})
	}

	report, err := s.pipeline.SyncCorpus(c.Context(), s.source)
	if err != nil {
		return writeError(c, err)
	}

	errs := report.Errors
	if errs == nil {
		errs = []string{}
	}
	return c.JSON(SyncResponse{
		Status:                "synced",
		DocumentsProcessed:    report.DocumentsProcessed,
		ChunksCreated:         report.ChunksCreated,
		PreviousChunksDeleted: report.ChunksDeleted,
		Errors:                errs,
	})
}

// writeError maps structured errors to HTTP statuses: validation
// failures are the client's fault, everything else is a 500.
func writeError(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	if gerrors.IsValidation(err) {
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(ErrorResponse{
		Error: err.Error(),
		Code:  gerrors.GetCode(err),
	})
}
