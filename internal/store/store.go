// Package store provides SQLite-backed persistence for TruePick: the
// embedded knowledge corpus queried during retrieval and the versioned
// psychographic profiles produced by the quiz.
//
// File responsibilities:
//   - store.go: SQLiteStore handle, schema, vec detection, meta table
//   - vectors.go: VectorStore implementation (upsert, kNN query, delete)
//   - memory.go: in-process HNSW implementation for ephemeral runs
//   - profiles.go: versioned profile persistence
//   - blob.go: float32 <-> BLOB codec
//
// The store is opened once at startup and the handle injected into every
// consumer. Nothing in this package holds global state.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bobaba99/truepick/internal/logging"
)

// metaKeyFingerprint is the store_meta key holding the fingerprint of the
// embedding engine that produced the stored vectors.
const metaKeyFingerprint = "embedder_fingerprint"

// Chunk is one embedded knowledge span as persisted.
type Chunk struct {
	ID       string
	Source   string
	Ord      int
	Text     string
	Metadata map[string]string
	Vector   []float32
}

// Match is one kNN hit from the corpus.
type Match struct {
	ID         string
	Source     string
	Text       string
	Similarity float64
}

// VectorStore is the persistence boundary for embedded knowledge.
// Implementations must be safe for concurrent use.
type VectorStore interface {
	// Upsert writes a chunk, replacing any existing chunk with the same ID.
	Upsert(ctx context.Context, chunk Chunk) error

	// UpsertBatch writes chunks in one transaction where the backend
	// supports it. Vectors ride inside the chunks.
	UpsertBatch(ctx context.Context, chunks []Chunk) error

	// Query returns up to topK chunks ranked by descending cosine
	// similarity to the query vector. An empty corpus yields an empty
	// result, not an error.
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)

	// DeleteSource removes every chunk ingested from the named source and
	// reports how many rows went away.
	DeleteSource(ctx context.Context, source string) (int, error)

	// Count reports the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// EmbedderFingerprint returns the fingerprint recorded at ingest time,
	// or "" when the store has never been written.
	EmbedderFingerprint(ctx context.Context) (string, error)

	// SetEmbedderFingerprint records which engine produced the vectors.
	SetEmbedderFingerprint(ctx context.Context, fp string) error

	Close() error
}

// SQLiteStore is the durable VectorStore. It owns the database handle
// shared with ProfileStore.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	dims  int
	vecOK bool
	mu    sync.RWMutex
}

var _ VectorStore = (*SQLiteStore)(nil)

// Open opens (creating if needed) the SQLite database at path and prepares
// the schema. dims is the embedding width used for the vec virtual table.
// Use ":memory:" for an ephemeral database.
func Open(path string, dims int) (*SQLiteStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "store.Open")
	defer timer.Stop()

	if path == "" {
		return nil, fmt.Errorf("store path required")
	}
	if dims <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", dims)
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create store directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writes anyway; a single connection avoids
	// SQLITE_BUSY churn between the ingest and serve paths.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, path: path, dims: dims}

	if err := s.applyPragmas(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.initializeSchema(); err != nil {
		db.Close()
		return nil, err
	}

	s.vecOK = s.detectVecExtension()
	if s.vecOK {
		if err := s.createVecTable(); err != nil {
			logging.Get(logging.CategoryStore).Warn("vec table unavailable, falling back to brute-force search: %v", err)
			s.vecOK = false
		}
	}

	logging.Store("Store opened: path=%s dims=%d vec=%v", path, dims, s.vecOK)
	return s, nil
}

func (s *SQLiteStore) applyPragmas() error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			// Pragmas are tuning, not correctness.
			logging.StoreDebug("Pragma failed (non-fatal): %s: %v", pragma, err)
		}
	}
	return nil
}

func (s *SQLiteStore) initializeSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS knowledge_chunks (
		chunk_id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		ord INTEGER NOT NULL DEFAULT 0,
		text TEXT NOT NULL,
		metadata TEXT,
		embedding BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_source ON knowledge_chunks(source);

	CREATE TABLE IF NOT EXISTS store_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		risk_tolerance TEXT NOT NULL,
		monthly_budget REAL NOT NULL,
		income_band TEXT NOT NULL,
		susceptibilities TEXT,
		core_values TEXT,
		compiled_at DATETIME NOT NULL,
		is_current INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, version)
	);
	CREATE INDEX IF NOT EXISTS idx_profiles_current ON profiles(user_id) WHERE is_current = 1;
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	logging.StoreDebug("Schema initialized")
	return nil
}

// detectVecExtension probes for the sqlite-vec extension by creating a
// throwaway vec0 virtual table. The extension is only present when the
// binary was built with the sqlite_vec tag.
func (s *SQLiteStore) detectVecExtension() bool {
	_, err := s.db.Exec("CREATE VIRTUAL TABLE IF NOT EXISTS vec_probe USING vec0(embedding float[4])")
	if err != nil {
		logging.StoreDebug("sqlite-vec not available: %v", err)
		return false
	}
	if _, err := s.db.Exec("DROP TABLE IF EXISTS vec_probe"); err != nil {
		logging.StoreDebug("Failed to drop vec probe table: %v", err)
	}
	return true
}

func (s *SQLiteStore) createVecTable() error {
	stmt := fmt.Sprintf(`
	CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
		embedding float[%d],
		chunk_id TEXT
	);
	`, s.dims)

	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("failed to create vec_chunks table: %w", err)
	}
	logging.StoreDebug("sqlite-vec table created with %d dimensions", s.dims)
	return nil
}

// HasVecIndex reports whether kNN queries run through sqlite-vec.
func (s *SQLiteStore) HasVecIndex() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vecOK
}

// GetDB exposes the underlying handle for layers sharing this database.
func (s *SQLiteStore) GetDB() *sql.DB {
	return s.db
}

// EmbedderFingerprint returns the recorded engine fingerprint, or "" when
// nothing has been ingested yet.
func (s *SQLiteStore) EmbedderFingerprint(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM store_meta WHERE key = ?", metaKeyFingerprint,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read embedder fingerprint: %w", err)
	}
	return value, nil
}

// SetEmbedderFingerprint records the engine fingerprint in store_meta.
func (s *SQLiteStore) SetEmbedderFingerprint(ctx context.Context, fp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_meta (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, metaKeyFingerprint, fp)
	if err != nil {
		return fmt.Errorf("failed to record embedder fingerprint: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	logging.StoreDebug("Closing store: %s", s.path)
	err := s.db.Close()
	s.db = nil
	return err
}
