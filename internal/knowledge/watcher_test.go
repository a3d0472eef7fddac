package knowledge

import (
	"context"
	"os"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func newTestWatcher(t *testing.T, dir string, debounce time.Duration) *Watcher {
	t.Helper()
	ingestor, _, _ := newTestIngestor(t)
	w, err := NewWatcher(ingestor, dir, debounce)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	return w
}

func TestWatcherStartStop(t *testing.T) {
	// The opencensus default worker is started by package init when the
	// genai SDK's dependencies are linked in; it is not stoppable and not
	// a watcher leak.
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))

	dir := t.TempDir()
	w := newTestWatcher(t, dir, 50*time.Millisecond)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !w.IsWatching() {
		t.Error("IsWatching() = false after Start")
	}

	// Second Start is a no-op, not a second loop.
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	w.Stop()
	if w.IsWatching() {
		t.Error("IsWatching() = true after Stop")
	}

	// Stop again must not panic or block.
	w.Stop()
}

func TestWatcherStartMissingDir(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))

	w := newTestWatcher(t, "/nonexistent/knowledge/dir", 50*time.Millisecond)
	if err := w.Start(context.Background()); err == nil {
		t.Error("Start() on a missing directory should error")
		w.Stop()
	}
}

func TestWatcherSyncIngestsAndRemoves(t *testing.T) {
	dir := t.TempDir()

	ingestor, memStore, _ := newTestIngestor(t)
	w, err := NewWatcher(ingestor, dir, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	path := writeKnowledgeFile(t, dir, "doc.md", "a note on loss aversion")
	w.sync(context.Background(), path)

	count, _ := memStore.Count(context.Background())
	if count == 0 {
		t.Fatal("sync() on a new file wrote no chunks")
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	w.sync(context.Background(), path)

	count, _ = memStore.Count(context.Background())
	if count != 0 {
		t.Errorf("sync() after deletion left %d chunks", count)
	}
}

func TestWatcherEventLoop(t *testing.T) {
	dir := t.TempDir()
	ingestor, memStore, _ := newTestIngestor(t)
	w, err := NewWatcher(ingestor, dir, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	writeKnowledgeFile(t, dir, "fresh.md", "social proof drives herd purchases")

	deadline := time.After(5 * time.Second)
	for {
		count, _ := memStore.Count(context.Background())
		if count > 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("watcher never ingested the new file")
		case <-time.After(50 * time.Millisecond):
		}
	}
}
