package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/fogfish/hnsw"
	"github.com/fogfish/hnsw/vector"
	kvector "github.com/kshard/vector"

	"github.com/bobaba99/truepick/internal/embedding"
	"github.com/bobaba99/truepick/internal/logging"
)

// MemoryStore keeps the corpus in an in-process HNSW index with a cosine
// surface. It exists for ephemeral runs and tests where durability is not
// wanted. HNSW cannot delete nodes, so replaced and removed chunks are
// tombstoned: their nodes stay in the graph and get filtered out of query
// results.
type MemoryStore struct {
	mu          sync.RWMutex
	index       *hnsw.HNSW[vector.VF32]
	dims        int
	chunks      map[uint32]Chunk  // live node key -> chunk
	current     map[string]uint32 // chunk id -> live node key
	tombstones  int
	nextKey     uint32
	fingerprint string
}

var _ VectorStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store for vectors of the
// given width.
func NewMemoryStore(dims int) (*MemoryStore, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", dims)
	}
	return &MemoryStore{
		index:   hnsw.New[vector.VF32](vector.SurfaceVF32(kvector.Cosine())),
		dims:    dims,
		chunks:  make(map[uint32]Chunk),
		current: make(map[string]uint32),
	}, nil
}

// Upsert inserts or replaces a chunk. Replacement tombstones the old node.
func (s *MemoryStore) Upsert(ctx context.Context, chunk Chunk) error {
	if chunk.ID == "" {
		return fmt.Errorf("chunk id required")
	}
	if len(chunk.Vector) != s.dims {
		return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dims, len(chunk.Vector))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if oldKey, ok := s.current[chunk.ID]; ok {
		delete(s.chunks, oldKey)
		s.tombstones++
	}

	key := s.nextKey
	s.nextKey++
	s.index.Insert(vector.VF32{Key: key, Vec: chunk.Vector})
	s.chunks[key] = chunk
	s.current[chunk.ID] = key
	return nil
}

// UpsertBatch inserts chunks one by one. Unlike the SQLite store there is
// no transaction, so a failing chunk leaves earlier ones inserted.
func (s *MemoryStore) UpsertBatch(ctx context.Context, chunks []Chunk) error {
	for _, chunk := range chunks {
		if err := s.Upsert(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

// Query returns up to topK live chunks nearest to the query vector.
func (s *MemoryStore) Query(ctx context.Context, vec []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.current) == 0 {
		return nil, nil
	}
	if len(vec) != s.dims {
		return nil, fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dims, len(vec))
	}

	// Widen the search so tombstoned nodes cannot crowd out live ones.
	k := topK + s.tombstones
	ef := k * 2
	if ef < 100 {
		ef = 100
	}

	results := s.index.Search(vector.VF32{Vec: vec}, k, ef)

	matches := make([]Match, 0, topK)
	for _, node := range results {
		chunk, ok := s.chunks[node.Key]
		if !ok {
			continue // tombstoned
		}
		sim, err := embedding.CosineSimilarity(vec, chunk.Vector)
		if err != nil {
			continue
		}
		matches = append(matches, Match{
			ID:         chunk.ID,
			Source:     chunk.Source,
			Text:       chunk.Text,
			Similarity: sim,
		})
		if len(matches) == topK {
			break
		}
	}

	logging.StoreDebug("Memory query returned %d of %d requested", len(matches), topK)
	return matches, nil
}

// DeleteSource tombstones every chunk from the named source.
func (s *MemoryStore) DeleteSource(ctx context.Context, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, key := range s.current {
		chunk, ok := s.chunks[key]
		if !ok || chunk.Source != source {
			continue
		}
		delete(s.chunks, key)
		delete(s.current, id)
		s.tombstones++
		removed++
	}
	return removed, nil
}

// Count reports the number of live chunks.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.current), nil
}

// EmbedderFingerprint returns the recorded engine fingerprint.
func (s *MemoryStore) EmbedderFingerprint(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fingerprint, nil
}

// SetEmbedderFingerprint records the engine fingerprint.
func (s *MemoryStore) SetEmbedderFingerprint(ctx context.Context, fp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fingerprint = fp
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
