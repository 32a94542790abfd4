package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hearthside-dev/grist/internal/api"
	"github.com/hearthside-dev/grist/internal/store"
	"github.com/hearthside-dev/grist/internal/watcher"
)

// shutdownGrace bounds how long in-flight requests may drain.
const shutdownGrace = 10 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var syncFirst bool
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the HTTP API server.

Serves search, stats, delete, and sync under /api/v1. With --watch the
document directory is watched and changed files are re-ingested as they
land on disk.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), root, syncFirst, watch)
		},
	}

	cmd.Flags().BoolVar(&syncFirst, "sync", false, "Sync the document corpus before serving")
	cmd.Flags().BoolVar(&watch, "watch", false, "Watch the docs directory and re-ingest changes")

	return cmd
}

func runServe(ctx context.Context, root *rootOptions, syncFirst, watch bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := setup(ctx, root)
	if err != nil {
		return err
	}
	defer app.Close()

	if syncFirst {
		report, err := app.pipeline.SyncCorpus(ctx, app.source)
		if err != nil {
			return err
		}
		app.log.Info("initial sync complete",
			slog.Int("documents", report.DocumentsProcessed),
			slog.Int("errors", len(report.Errors)))
	}

	if watch || app.cfg.Ingest.Watch {
		w, err := watcher.New(app.source.Root(), app.cfg.Ingest.WatchDebounce(), app.log)
		if err != nil {
			return err
		}
		defer w.Close()
		w.Start(ctx)
		go watchLoop(ctx, app, w)
	}

	server := api.NewServer(app.store, app.engine, app.pipeline, app.source, app.log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(app.cfg.Server.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// watchLoop re-ingests documents as the watcher reports changes.
func watchLoop(ctx context.Context, app *app, w *watcher.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			app.log.Warn("watch error", slog.String("error", err.Error()))
		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			if !app.source.Matches(ev.Path) {
				continue
			}
			handleWatchEvent(ctx, app, ev)
		}
	}
}

func handleWatchEvent(ctx context.Context, app *app, ev watcher.Event) {
	switch ev.Op {
	case watcher.OpRemove:
		deleted, err := app.pipeline.RemoveSource(ctx, store.SourceTypeBusinessDoc, ev.Path)
		if err != nil {
			app.log.Warn("watch remove failed",
				slog.String("path", ev.Path),
				slog.String("error", err.Error()))
			return
		}
		app.log.Info("document removed",
			slog.String("source_id", ev.Path),
			slog.Int("deleted", deleted))
	case watcher.OpWrite:
		doc, err := app.source.LoadDocument(ev.Path)
		if err != nil {
			app.log.Warn("watch load failed",
				slog.String("path", ev.Path),
				slog.String("error", err.Error()))
			return
		}
		if _, err := app.pipeline.IngestDocument(ctx, doc); err != nil {
			app.log.Warn("watch ingest failed",
				slog.String("path", ev.Path),
				slog.String("error", err.Error()))
		}
	}
}
