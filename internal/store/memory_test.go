package store

import (
	"context"
	"math"
	"testing"
)

func TestMemoryStoreQueryRanking(t *testing.T) {
	s, err := NewMemoryStore(4)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	ctx := context.Background()

	chunks := []Chunk{
		chunkFixture("a#0", "a.md", "exact", []float32{1, 0, 0, 0}),
		chunkFixture("a#1", "a.md", "near", []float32{0.9, 0.1, 0, 0}),
		chunkFixture("b#0", "b.md", "orthogonal", []float32{0, 0, 1, 0}),
	}
	if err := s.UpsertBatch(ctx, chunks); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	matches, err := s.Query(ctx, []float32{1, 0, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2", len(matches))
	}
	if matches[0].ID != "a#0" {
		t.Errorf("top match = %s, want a#0", matches[0].ID)
	}
	if math.Abs(matches[0].Similarity-1.0) > 1e-6 {
		t.Errorf("top similarity = %v, want ~1.0", matches[0].Similarity)
	}
	if matches[1].ID != "a#1" {
		t.Errorf("second match = %s, want a#1", matches[1].ID)
	}
}

func TestMemoryStoreQueryEmpty(t *testing.T) {
	s, _ := NewMemoryStore(4)

	matches, err := s.Query(context.Background(), []float32{1, 0, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("len(matches) = %d, want 0", len(matches))
	}
}

func TestMemoryStoreReplaceTombstones(t *testing.T) {
	s, _ := NewMemoryStore(4)
	ctx := context.Background()

	if err := s.Upsert(ctx, chunkFixture("a#0", "a.md", "old text", []float32{1, 0, 0, 0})); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Upsert(ctx, chunkFixture("a#0", "a.md", "new text", []float32{0, 1, 0, 0})); err != nil {
		t.Fatalf("Upsert replace: %v", err)
	}

	count, _ := s.Count(ctx)
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	matches, err := s.Query(ctx, []float32{0, 1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("len(matches) = %d, want 1", len(matches))
	}
	if matches[0].Text != "new text" {
		t.Errorf("text = %q, want replacement", matches[0].Text)
	}

	// The old node is dead even when queried with its own vector.
	matches, _ = s.Query(ctx, []float32{1, 0, 0, 0}, 5)
	for _, m := range matches {
		if m.Text == "old text" {
			t.Error("tombstoned chunk leaked into results")
		}
	}
}

func TestMemoryStoreDeleteSource(t *testing.T) {
	s, _ := NewMemoryStore(4)
	ctx := context.Background()

	if err := s.UpsertBatch(ctx, []Chunk{
		chunkFixture("a#0", "a.md", "keep", []float32{1, 0, 0, 0}),
		chunkFixture("b#0", "b.md", "drop", []float32{0, 1, 0, 0}),
	}); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	removed, err := s.DeleteSource(ctx, "b.md")
	if err != nil {
		t.Fatalf("DeleteSource: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	count, _ := s.Count(ctx)
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	matches, _ := s.Query(ctx, []float32{0, 1, 0, 0}, 5)
	for _, m := range matches {
		if m.Source == "b.md" {
			t.Errorf("deleted source still queryable: %+v", m)
		}
	}
}

func TestMemoryStoreDimensionMismatch(t *testing.T) {
	s, _ := NewMemoryStore(4)
	ctx := context.Background()

	if err := s.Upsert(ctx, chunkFixture("a#0", "a.md", "bad", []float32{1, 0})); err == nil {
		t.Error("expected error for wrong upsert dimensions")
	}

	if err := s.Upsert(ctx, chunkFixture("a#0", "a.md", "good", []float32{1, 0, 0, 0})); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, err := s.Query(ctx, []float32{1, 0}, 3); err == nil {
		t.Error("expected error for wrong query dimensions")
	}
}

func TestMemoryStoreFingerprint(t *testing.T) {
	s, _ := NewMemoryStore(4)
	ctx := context.Background()

	fp, err := s.EmbedderFingerprint(ctx)
	if err != nil {
		t.Fatalf("EmbedderFingerprint: %v", err)
	}
	if fp != "" {
		t.Errorf("fresh fingerprint = %q, want empty", fp)
	}

	if err := s.SetEmbedderFingerprint(ctx, "ollama:embeddinggemma/768"); err != nil {
		t.Fatalf("SetEmbedderFingerprint: %v", err)
	}
	fp, _ = s.EmbedderFingerprint(ctx)
	if fp != "ollama:embeddinggemma/768" {
		t.Errorf("fingerprint = %q", fp)
	}
}

func TestNewMemoryStoreRejectsBadDims(t *testing.T) {
	if _, err := NewMemoryStore(0); err == nil {
		t.Error("expected error for zero dimensions")
	}
}
