package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/bobaba99/truepick/internal/embedding"
	"github.com/bobaba99/truepick/internal/logging"
)

// Upsert writes one chunk, replacing any prior row with the same id.
func (s *SQLiteStore) Upsert(ctx context.Context, chunk Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(ctx, s.db, chunk)
}

// UpsertBatch writes chunks inside a single transaction so a partial batch
// never becomes visible.
func (s *SQLiteStore) UpsertBatch(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	timer := logging.StartTimer(logging.CategoryStore, "SQLiteStore.UpsertBatch")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch transaction: %w", err)
	}

	for _, chunk := range chunks {
		if err := s.upsertLocked(ctx, tx, chunk); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	logging.StoreDebug("Batch upserted %d chunks", len(chunks))
	return nil
}

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *SQLiteStore) upsertLocked(ctx context.Context, db execer, chunk Chunk) error {
	if chunk.ID == "" {
		return fmt.Errorf("chunk id required")
	}
	if len(chunk.Vector) == 0 {
		return fmt.Errorf("chunk %s has no vector", chunk.ID)
	}

	var metadata []byte
	if len(chunk.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %s: %w", chunk.ID, err)
		}
	}

	blob := encodeFloat32SliceToBlob(chunk.Vector)

	_, err := db.ExecContext(ctx, `
		INSERT INTO knowledge_chunks (chunk_id, source, ord, text, metadata, embedding, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(chunk_id) DO UPDATE SET
			source = excluded.source,
			ord = excluded.ord,
			text = excluded.text,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			updated_at = CURRENT_TIMESTAMP
	`, chunk.ID, chunk.Source, chunk.Ord, chunk.Text, metadata, blob)
	if err != nil {
		return fmt.Errorf("failed to upsert chunk %s: %w", chunk.ID, err)
	}

	if s.vecOK {
		// The vec0 table has no unique constraint on chunk_id, so replace
		// means delete then insert.
		if _, err := db.ExecContext(ctx,
			"DELETE FROM vec_chunks WHERE chunk_id = ?", chunk.ID); err != nil {
			logging.Get(logging.CategoryStore).Warn("Failed to clear vec row for %s: %v", chunk.ID, err)
		}
		if _, err := db.ExecContext(ctx, `
			INSERT INTO vec_chunks (embedding, chunk_id) VALUES (?, ?)
		`, blob, chunk.ID); err != nil {
			logging.Get(logging.CategoryStore).Warn("Failed to insert vec row for %s (ANN may be stale): %v", chunk.ID, err)
		}
	}

	return nil
}

// Query returns up to topK chunks by descending cosine similarity.
func (s *SQLiteStore) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	timer := logging.StartTimer(logging.CategoryStore, "SQLiteStore.Query")
	defer timer.Stop()

	if topK <= 0 {
		topK = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, fmt.Errorf("store is closed")
	}

	logging.StoreDebug("Querying corpus: topK=%d dims=%d vec=%v", topK, len(vector), s.vecOK)

	if s.vecOK {
		matches, err := s.queryVec(ctx, vector, topK)
		if err == nil {
			return matches, nil
		}
		logging.StoreDebug("Falling back to brute-force search: %v", err)
	}
	return s.queryBruteForce(ctx, vector, topK)
}

// queryVec runs the kNN through sqlite-vec.
func (s *SQLiteStore) queryVec(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	queryBlob := encodeFloat32SliceToBlob(vector)

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			kc.chunk_id,
			kc.source,
			kc.text,
			vec_distance_cosine(vc.embedding, ?) AS distance
		FROM vec_chunks vc
		JOIN knowledge_chunks kc ON vc.chunk_id = kc.chunk_id
		ORDER BY distance ASC
		LIMIT ?
	`, queryBlob, topK)
	if err != nil {
		return nil, fmt.Errorf("vec search failed: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var distance float64
		if err := rows.Scan(&m.ID, &m.Source, &m.Text, &distance); err != nil {
			logging.Get(logging.CategoryStore).Warn("Failed to scan vec match row: %v", err)
			continue
		}
		m.Similarity = 1.0 - distance
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// queryBruteForce decodes every stored vector and ranks in Go. Used when
// the vec extension is not compiled in.
func (s *SQLiteStore) queryBruteForce(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, source, text, embedding FROM knowledge_chunks
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan corpus: %w", err)
	}
	defer rows.Close()

	var (
		candidates []Match
		vectors    [][]float32
	)
	for rows.Next() {
		var m Match
		var blob []byte
		if err := rows.Scan(&m.ID, &m.Source, &m.Text, &blob); err != nil {
			logging.Get(logging.CategoryStore).Warn("Failed to scan chunk row: %v", err)
			continue
		}
		vec := decodeFloat32SliceFromBlob(blob)
		if len(vec) == 0 {
			logging.Get(logging.CategoryStore).Warn("Chunk %s has undecodable embedding, skipping", m.ID)
			continue
		}
		candidates = append(candidates, m)
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating corpus: %w", err)
	}

	top := embedding.FindTopK(vector, vectors, topK)
	matches := make([]Match, 0, len(top))
	for _, hit := range top {
		m := candidates[hit.Index]
		m.Similarity = hit.Similarity
		matches = append(matches, m)
	}
	return matches, nil
}

// DeleteSource removes every chunk ingested from source and reports the
// number of rows removed.
func (s *SQLiteStore) DeleteSource(ctx context.Context, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vecOK {
		if _, err := s.db.ExecContext(ctx, `
			DELETE FROM vec_chunks WHERE chunk_id IN (
				SELECT chunk_id FROM knowledge_chunks WHERE source = ?
			)
		`, source); err != nil {
			logging.Get(logging.CategoryStore).Warn("Failed to clear vec rows for source %s: %v", source, err)
		}
	}

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM knowledge_chunks WHERE source = ?", source)
	if err != nil {
		return 0, fmt.Errorf("failed to delete source %s: %w", source, err)
	}

	affected, _ := result.RowsAffected()
	if affected > 0 {
		logging.StoreDebug("Deleted %d chunks for source %s", affected, source)
	}
	return int(affected), nil
}

// Count reports how many chunks are stored.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM knowledge_chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// Sources returns the distinct source names currently in the corpus.
func (s *SQLiteStore) Sources(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT source FROM knowledge_chunks ORDER BY source")
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			continue
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
