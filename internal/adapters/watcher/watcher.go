// Package watcher reloads results when the local results directory changes.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event represents a change to one file.
type Event struct {
	Path      string
	Operation Operation
}

// Operation represents the type of file operation.
type Operation int

// File operation types.
const (
	OpCreate Operation = iota
	OpModify
	OpDelete
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Handler receives every change collected during one quiet period, ordered
// by path.
type Handler func(ctx context.Context, events []Event) error

// Config holds watcher configuration.
type Config struct {
	Paths    []string
	Debounce time.Duration

	// Filter selects the files that trigger the handler. Nil accepts all.
	Filter func(path string) bool
}

// Watcher watches directory trees and coalesces bursts of changes into a
// single handler call.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	handler   Handler
	logger    *slog.Logger
	paths     []string
	debounce  time.Duration
	filter    func(string) bool

	mu      sync.Mutex
	ctx     context.Context
	pending map[string]Operation
	timer   *time.Timer
	stopped bool

	// serializes handler calls
	running sync.Mutex
}

// New creates a new file watcher.
func New(cfg Config, handler Handler, logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if cfg.Filter == nil {
		cfg.Filter = func(string) bool { return true }
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		handler:   handler,
		logger:    logger,
		paths:     cfg.Paths,
		debounce:  cfg.Debounce,
		filter:    cfg.Filter,
		ctx:       context.Background(),
		pending:   make(map[string]Operation),
	}, nil
}

// Start watches the configured paths and their subdirectories.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()

	for _, path := range w.paths {
		if err := w.AddPath(path); err != nil {
			w.logger.Warn("failed to watch path", "path", path, "error", err)
		}
	}

	go w.eventLoop(ctx)
	return nil
}

// Stop stops the watcher. Pending changes are dropped.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	return w.fsWatcher.Close()
}

// AddPath watches a directory tree.
func (w *Watcher) AddPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	return filepath.WalkDir(absPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsWatcher.Add(p); err != nil {
			return err
		}
		w.logger.Info("watching directory", "path", p)
		return nil
	})
}

func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleFsEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.AddPath(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}
	if !w.filter(event.Name) {
		return
	}

	w.logger.Debug("file event", "path", event.Name, "op", event.Op.String())
	w.record(event.Name, fsnotifyOpToOperation(event.Op))
}

// record merges a change into the pending batch and restarts the quiet period.
func (w *Watcher) record(path string, op Operation) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}

	if existing, ok := w.pending[path]; ok {
		w.pending[path] = mergeOperation(existing, op)
	} else {
		w.pending[path] = op
	}

	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.flush)
		return
	}
	w.timer.Reset(w.debounce)
}

// mergeOperation combines two changes to the same file.
func mergeOperation(existing, next Operation) Operation {
	switch {
	case existing == OpDelete && next == OpCreate:
		return OpCreate
	case next == OpDelete:
		return OpDelete
	default:
		return existing
	}
}

// flush hands the pending batch to the handler.
func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 || w.stopped {
		w.timer = nil
		w.mu.Unlock()
		return
	}
	events := make([]Event, 0, len(w.pending))
	for path, op := range w.pending {
		events = append(events, Event{Path: path, Operation: op})
	}
	w.pending = make(map[string]Operation)
	w.timer = nil
	ctx := w.ctx
	w.mu.Unlock()

	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })

	w.running.Lock()
	defer w.running.Unlock()

	w.logger.Info("processing file changes", "files", len(events))
	if err := w.handler(ctx, events); err != nil {
		w.logger.Error("handler error",
			"files", len(events),
			"error", err,
		)
	}
}

// fsnotifyOpToOperation converts fsnotify.Op to our Operation type.
func fsnotifyOpToOperation(op fsnotify.Op) Operation {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return OpDelete
	case op.Has(fsnotify.Create):
		return OpCreate
	default:
		return OpModify
	}
}
