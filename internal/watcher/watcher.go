// Package watcher reports debounced file changes under a directory tree.
// Rapid-fire events for the same path (editor save dances, rsync) collapse
// into one event after a quiet period.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the default quiet period before an event is emitted.
const DefaultDebounce = 500 * time.Millisecond

// Op describes what happened to a path.
type Op int

const (
	// OpWrite covers creates and content changes.
	OpWrite Op = iota
	// OpRemove covers deletes and renames away.
	OpRemove
)

// Event is one debounced change.
type Event struct {
	// Path is relative to the watched root, slash-separated.
	Path string
	Op   Op
}

// Watcher watches a directory tree.
type Watcher struct {
	fs       *fsnotify.Watcher
	root     string
	debounce time.Duration
	log      *slog.Logger

	events chan Event
	errs   chan error

	mu      sync.Mutex
	pending map[string]Op
	timer   *time.Timer
}

// New creates a watcher rooted at root. debounce <= 0 uses DefaultDebounce.
func New(root string, debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fs:       fsw,
		root:     root,
		debounce: debounce,
		log:      log,
		events:   make(chan Event, 64),
		errs:     make(chan error, 1),
		pending:  make(map[string]Op),
	}

	// fsnotify does not recurse; watch every subdirectory.
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
	if err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return w, nil
}

// Start runs the event loop until ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	// New directories need their own watch for recursion.
	if ev.Op.Has(fsnotify.Create) {
		if err := w.fs.Add(ev.Name); err == nil {
			w.log.Debug("watching new path", slog.String("path", ev.Name))
		}
	}

	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	var op Op
	switch {
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		op = OpRemove
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		op = OpWrite
	default:
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// A remove after writes wins; a write after a remove means the file
	// is back.
	w.pending[rel] = op

	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.flush)
	} else {
		w.timer.Reset(w.debounce)
	}
}

func (w *Watcher) flush() {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]Op)
	w.timer = nil
	w.mu.Unlock()

	for path, op := range pending {
		select {
		case w.events <- Event{Path: path, Op: op}:
		default:
			w.log.Warn("watch event dropped, consumer too slow", slog.String("path", path))
		}
	}
}

// Events returns the debounced event channel.
func (w *Watcher) Events() <-chan Event { return w.events }

// Errors returns the underlying watcher's error channel.
func (w *Watcher) Errors() <-chan error { return w.errs }

// Close stops watching.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	return w.fs.Close()
}
