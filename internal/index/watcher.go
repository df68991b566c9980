package index

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

// DefaultDebounce is how long the watcher waits for further changes before
// reporting a batch.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reports batches of changed Go files below the discovery roots.
type Watcher struct {
	discoverer *Discoverer
	fsw        *fsnotify.Watcher
	debounce   time.Duration
	logger     *slog.Logger

	mu      sync.Mutex
	pending map[string]fsnotify.Op
}

// NewWatcher creates a watcher over the roots of d. A zero debounce uses
// DefaultDebounce.
func NewWatcher(d *Discoverer, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		discoverer: d,
		fsw:        fsw,
		debounce:   debounce,
		logger:     logger,
		pending:    make(map[string]fsnotify.Op),
	}, nil
}

// Close releases the underlying notifier.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run watches until ctx is done, calling onChange with the sorted paths of
// every debounced batch. onChange runs on the watcher goroutine; events
// arriving meanwhile are batched for the next call.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, paths []string)) error {
	for _, root := range w.discoverer.Roots() {
		info, err := os.Stat(root)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			root = filepath.Dir(root)
		}
		w.addRecursive(root)
	}
	w.logger.Info("watch.start", "roots", len(w.discoverer.Roots()), "debounce", w.debounce)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch.error", "error", err)

		case <-timer.C:
			if paths := w.flush(); len(paths) > 0 {
				onChange(ctx, paths)
			}
		}
	}
}

// handle records a relevant event and reports whether it was recorded.
func (w *Watcher) handle(event fsnotify.Event) bool {
	path := event.Name
	if filepath.Ext(path) != ".go" {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() && !SkipDir(filepath.Base(path)) {
				w.addRecursive(path)
			}
		}
		return false
	}

	removed := event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
	if !removed && !w.discoverer.Selects(path) {
		return false
	}
	if event.Op == fsnotify.Chmod {
		return false
	}

	w.mu.Lock()
	w.pending[path] |= event.Op
	w.mu.Unlock()
	w.logger.Debug("watch.change", "path", path, "op", event.Op.String())
	return true
}

func (w *Watcher) flush() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]fsnotify.Op)
	sort.Strings(paths)
	return paths
}

func (w *Watcher) addRecursive(root string) {
	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || !entry.IsDir() {
			return nil
		}
		if path != root && SkipDir(entry.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("watch.add.failed", "path", path, "error", err)
		}
		return nil
	})
}
