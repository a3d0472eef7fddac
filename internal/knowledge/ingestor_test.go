package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bobaba99/truepick/internal/store"
	"github.com/bobaba99/truepick/internal/types"
)

// stubEngine produces deterministic 4-dim vectors without a backend.
// Texts containing failMarker make the whole batch fail, simulating a
// file the embedding service cannot handle.
type stubEngine struct {
	mu         sync.Mutex
	batches    int
	failMarker string
}

func (e *stubEngine) vector(text string) []float32 {
	var sum float32
	for _, r := range text {
		sum += float32(r % 13)
	}
	return []float32{1, sum, float32(len(text)), 0.5}
}

func (e *stubEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func (e *stubEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batches++
	e.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if e.failMarker != "" && strings.Contains(text, e.failMarker) {
			return nil, fmt.Errorf("stub engine refuses text containing %q", e.failMarker)
		}
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *stubEngine) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func (e *stubEngine) Dimensions() int     { return 4 }
func (e *stubEngine) Name() string        { return "stub:test" }
func (e *stubEngine) Fingerprint() string { return "stub:test/4" }

func newTestIngestor(t *testing.T) (*Ingestor, *store.MemoryStore, *stubEngine) {
	t.Helper()
	ms, err := store.NewMemoryStore(4)
	if err != nil {
		t.Fatalf("NewMemoryStore() error = %v", err)
	}
	engine := &stubEngine{}
	return NewIngestor(ms, engine, 100, 15), ms, engine
}

func writeKnowledgeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIngestWritesChunks(t *testing.T) {
	ingestor, ms, _ := newTestIngestor(t)
	dir := t.TempDir()
	writeKnowledgeFile(t, dir, "scarcity.md", numberedWords(800))
	writeKnowledgeFile(t, dir, "anchoring.txt", "a short note on price anchoring")

	report, err := ingestor.Ingest(context.Background(), dir)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if report.FilesSeen != 2 {
		t.Errorf("FilesSeen = %d, want 2", report.FilesSeen)
	}
	if report.FilesFailed != 0 {
		t.Errorf("FilesFailed = %d, want 0", report.FilesFailed)
	}
	if report.ChunksWritten < 3 {
		t.Errorf("ChunksWritten = %d, want at least 3", report.ChunksWritten)
	}

	count, err := ms.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != report.ChunksWritten {
		t.Errorf("store holds %d chunks, report says %d", count, report.ChunksWritten)
	}
}

func TestIngestIdempotent(t *testing.T) {
	ingestor, ms, _ := newTestIngestor(t)
	dir := t.TempDir()
	writeKnowledgeFile(t, dir, "doc.md", numberedWords(800))

	first, err := ingestor.Ingest(context.Background(), dir)
	if err != nil {
		t.Fatalf("first Ingest() error = %v", err)
	}
	second, err := ingestor.Ingest(context.Background(), dir)
	if err != nil {
		t.Fatalf("second Ingest() error = %v", err)
	}

	if first.ChunksWritten != second.ChunksWritten {
		t.Errorf("chunk counts differ across identical ingests: %d vs %d",
			first.ChunksWritten, second.ChunksWritten)
	}

	count, _ := ms.Count(context.Background())
	if count != first.ChunksWritten {
		t.Errorf("re-ingest duplicated entries: store=%d, one pass=%d", count, first.ChunksWritten)
	}
}

func TestIngestSkipsUnsupported(t *testing.T) {
	ingestor, _, _ := newTestIngestor(t)
	dir := t.TempDir()
	writeKnowledgeFile(t, dir, "doc.txt", "supported")
	writeKnowledgeFile(t, dir, "blob.bin", "binary junk")

	report, err := ingestor.Ingest(context.Background(), dir)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if report.FilesSeen != 1 {
		t.Errorf("FilesSeen = %d, want 1 (unsupported extension skipped)", report.FilesSeen)
	}
}

func TestIngestPartialFailure(t *testing.T) {
	ingestor, ms, engine := newTestIngestor(t)
	engine.failMarker = "POISON"

	dir := t.TempDir()
	writeKnowledgeFile(t, dir, "bad.md", "POISON text the engine rejects")
	writeKnowledgeFile(t, dir, "good.md", "a perfectly fine document")

	report, err := ingestor.Ingest(context.Background(), dir)
	if err != nil {
		t.Fatalf("batch should survive a bad file, got error = %v", err)
	}

	if report.FilesFailed != 1 {
		t.Errorf("FilesFailed = %d, want 1", report.FilesFailed)
	}
	if len(report.Failed) != 1 || report.Failed[0] != "bad.md" {
		t.Errorf("Failed = %v, want [bad.md]", report.Failed)
	}
	if report.ChunksWritten == 0 {
		t.Error("good file should still have been written")
	}

	count, _ := ms.Count(context.Background())
	if count != report.ChunksWritten {
		t.Errorf("store holds %d chunks, report says %d", count, report.ChunksWritten)
	}
}

func TestIngestFingerprintGuard(t *testing.T) {
	ingestor, ms, engine := newTestIngestor(t)
	dir := t.TempDir()
	writeKnowledgeFile(t, dir, "doc.txt", "some text")

	// Fresh store adopts the engine fingerprint.
	if _, err := ingestor.Ingest(context.Background(), dir); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	fp, err := ms.EmbedderFingerprint(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if fp != engine.Fingerprint() {
		t.Errorf("recorded fingerprint = %q, want %q", fp, engine.Fingerprint())
	}

	// A store written by a different engine is rejected.
	if err := ms.SetEmbedderFingerprint(context.Background(), "other-model/768"); err != nil {
		t.Fatal(err)
	}
	_, err = ingestor.Ingest(context.Background(), dir)
	if err == nil {
		t.Fatal("Ingest() with mismatched fingerprint should fail")
	}
	if !types.IsConfiguration(err) {
		t.Errorf("error = %v, want ConfigurationError", err)
	}
}

func TestIngestMissingDir(t *testing.T) {
	ingestor, _, _ := newTestIngestor(t)
	if _, err := ingestor.Ingest(context.Background(), filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("Ingest() on a missing directory should error")
	}
}

func TestIngestFileReplacesStaleChunks(t *testing.T) {
	ingestor, ms, _ := newTestIngestor(t)
	dir := t.TempDir()
	path := writeKnowledgeFile(t, dir, "doc.md", numberedWords(800))

	long, err := ingestor.IngestFile(context.Background(), dir, path)
	if err != nil {
		t.Fatalf("IngestFile() error = %v", err)
	}
	if long < 2 {
		t.Fatalf("long document produced %d chunks, want several", long)
	}

	// Shrink the file: stale tail chunks must go away.
	writeKnowledgeFile(t, dir, "doc.md", "now tiny")
	short, err := ingestor.IngestFile(context.Background(), dir, path)
	if err != nil {
		t.Fatalf("IngestFile() after shrink error = %v", err)
	}
	if short != 1 {
		t.Errorf("shrunk document produced %d chunks, want 1", short)
	}

	count, _ := ms.Count(context.Background())
	if count != 1 {
		t.Errorf("store holds %d chunks after shrink, want 1", count)
	}
}

func TestRemoveSource(t *testing.T) {
	ingestor, ms, _ := newTestIngestor(t)
	dir := t.TempDir()
	path := writeKnowledgeFile(t, dir, "doc.md", numberedWords(800))

	written, err := ingestor.IngestFile(context.Background(), dir, path)
	if err != nil {
		t.Fatalf("IngestFile() error = %v", err)
	}

	removed, err := ingestor.RemoveSource(context.Background(), dir, path)
	if err != nil {
		t.Fatalf("RemoveSource() error = %v", err)
	}
	if removed != written {
		t.Errorf("removed %d chunks, want %d", removed, written)
	}

	count, _ := ms.Count(context.Background())
	if count != 0 {
		t.Errorf("store holds %d chunks after removal, want 0", count)
	}
}
