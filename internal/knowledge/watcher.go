package knowledge

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bobaba99/truepick/internal/logging"
)

// Watcher keeps the vector store in sync with the knowledge directory:
// changed files are re-ingested after a quiet period, deleted files have
// their chunks removed. Rapid saves are debounced per path.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	ingestor    *Ingestor
	dir         string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher builds a watcher over dir backed by the given ingestor.
func NewWatcher(ingestor *Ingestor, dir string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{
		watcher:     fsw,
		ingestor:    ingestor,
		dir:         dir,
		debounceMap: make(map[string]time.Time),
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in its own
// goroutine until Stop or context cancellation. A failed Start closes the
// watcher; build a new one to retry.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		w.watcher.Close()
		return err
	}
	logging.Get(logging.CategoryWatch).Info("watching %s (debounce %v)", w.dir, w.debounceDur)

	go w.run(ctx)
	return nil
}

// Stop halts the event loop and closes the underlying watcher. Blocks
// until the loop has drained.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("close watcher: %v", err)
	}
	logging.Get(logging.CategoryWatch).Info("watcher stopped")
}

// IsWatching reports whether the event loop is live.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Error("watch error: %v", err)

		case <-ticker.C:
			w.processSettled(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !SupportedFile(event.Name) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	logging.Get(logging.CategoryWatch).Debug("%s: %s", event.Op, event.Name)

	w.mu.Lock()
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

// processSettled re-ingests every path whose last event is older than the
// debounce window.
func (w *Watcher) processSettled(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		w.sync(ctx, path)
	}
}

// sync brings the store in line with one path: gone from disk means the
// chunks go too, otherwise the file is re-ingested in place.
func (w *Watcher) sync(ctx context.Context, path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		removed, err := w.ingestor.RemoveSource(ctx, w.dir, path)
		if err != nil {
			logging.Get(logging.CategoryWatch).Error("remove %s: %v", path, err)
			return
		}
		logging.Get(logging.CategoryWatch).Info("removed %s (%d chunks)", path, removed)
		return
	}

	written, err := w.ingestor.IngestFile(ctx, w.dir, path)
	if err != nil {
		logging.Get(logging.CategoryWatch).Error("re-ingest %s: %v", path, err)
		return
	}
	logging.Get(logging.CategoryWatch).Info("re-ingested %s (%d chunks)", path, written)
}
