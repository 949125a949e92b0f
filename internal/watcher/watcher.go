// Package watcher watches a directory for new transcript files.
// Writes are debounced so a file is only reported once its producer has
// finished writing it.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/verbatim-labs/verbatim-cli/internal/logger"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reports transcript files appearing in a directory.
type Watcher struct {
	dir       string
	ext       string
	debounce  time.Duration
	onFile    func(path string)
	mu        sync.Mutex
	pending   map[string]*time.Timer
	fswatcher *fsnotify.Watcher
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the write-settle delay.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithExtension filters reported files by extension (default ".json").
func WithExtension(ext string) Option {
	return func(w *Watcher) {
		if ext != "" {
			w.ext = ext
		}
	}
}

// New creates a watcher for dir. onFile is called once per settled file.
// The directory is created if it does not exist.
func New(dir string, onFile func(path string), opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		ext:      ".json",
		debounce: defaultDebounce,
		onFile:   onFile,
		pending:  make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. Files already present when the
// watcher starts are reported first.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("watch dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer fsw.Close() //nolint:errcheck // Best-effort cleanup

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.mu.Lock()
	w.fswatcher = fsw
	w.mu.Unlock()

	logger.Info("Watching %s for *%s files", w.dir, w.ext)
	w.reportExisting()

	defer w.cancelPending()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	switch {
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		if w.matches(ev.Name) {
			w.schedule(ev.Name)
		}
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		w.cancel(ev.Name)
	}
}

func (w *Watcher) matches(path string) bool {
	return strings.EqualFold(filepath.Ext(path), w.ext)
}

// schedule (re)arms the debounce timer for path. Every write resets the
// timer, so the callback fires only after writes stop.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.onFile(path)
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) reportExisting() {
	//nolint:errcheck // Missing entries are skipped, not fatal
	filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if w.matches(path) {
			w.onFile(path)
		}
		return nil
	})
}
