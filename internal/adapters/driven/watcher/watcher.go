// Package watcher reloads the retrieval index when another process
// rewrites or removes it on disk.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ray/internal/logger"
)

// DefaultDebounce coalesces the burst of events one index save produces.
const DefaultDebounce = 250 * time.Millisecond

// Reloader swaps in the latest persisted index.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Watcher watches an index directory and its parent. The parent is watched
// so that a reset, which removes the directory, and a later re-ingest,
// which recreates it, are both seen.
type Watcher struct {
	dir      string
	file     string
	reloader Reloader
	debounce time.Duration

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	done    chan struct{}
	closed  bool
	reloads int
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a reload fires.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// New creates a watcher for the index at dir. file is the name whose
// changes mark a new index generation.
func New(dir, file string, reloader Reloader, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      filepath.Clean(dir),
		file:     file,
		reloader: reloader,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It returns once the watches are installed; events
// are handled in the background until ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return errors.New("watcher already started")
	}

	parent := filepath.Dir(w.dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", parent, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(parent); err != nil {
		fsw.Close()
		return fmt.Errorf("watching %s: %w", parent, err)
	}
	if err := fsw.Add(w.dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		fsw.Close()
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	w.fsw = fsw
	w.done = make(chan struct{})
	go w.loop(ctx, fsw, w.done)
	logger.Debug("watcher: watching %s", w.dir)
	return nil
}

// Reloads returns how many reloads have fired.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// Close stops watching and waits for the event loop to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed || w.fsw == nil {
		w.closed = true
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	fsw, done := w.fsw, w.done
	w.mu.Unlock()

	err := fsw.Close()
	<-done
	return err
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if w.handleEvent(fsw, event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher: %v", err)

		case <-timer.C:
			w.reload(ctx)
		}
	}
}

// handleEvent reports whether event marks a new index generation. It also
// re-installs the directory watch when the index directory is recreated.
func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event) bool {
	name := filepath.Clean(event.Name)

	if name == w.dir {
		switch {
		case event.Has(fsnotify.Create):
			if err := fsw.Add(w.dir); err != nil {
				logger.Warn("watcher: re-watching %s: %v", w.dir, err)
			}
			return true
		case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
			return true
		}
		return false
	}

	if filepath.Dir(name) != w.dir || filepath.Base(name) != w.file {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

func (w *Watcher) reload(ctx context.Context) {
	if err := w.reloader.Reload(ctx); err != nil {
		logger.Warn("watcher: reload failed: %v", err)
		return
	}
	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()
	logger.Debug("watcher: index reloaded")
}
