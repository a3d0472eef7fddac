package knowledge

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bobaba99/truepick/internal/embedding"
	"github.com/bobaba99/truepick/internal/logging"
	"github.com/bobaba99/truepick/internal/store"
	"github.com/bobaba99/truepick/internal/types"
)

// Ingestor embeds document chunks into the vector store. One ingestor is
// built at startup and shared by the CLI command and the watch loop.
type Ingestor struct {
	store          store.VectorStore
	engine         embedding.Engine
	chunkTokens    int
	overlapPercent int
}

// IngestReport summarizes one batch ingest. Failed files are skipped, not
// fatal: the batch completes and reports them.
type IngestReport struct {
	FilesSeen     int      `json:"files_seen"`
	FilesFailed   int      `json:"files_failed"`
	ChunksWritten int      `json:"chunks_written"`
	Failed        []string `json:"failed,omitempty"`
}

// NewIngestor builds an ingestor over the given store and engine.
// Non-positive chunking parameters fall back to the package defaults.
func NewIngestor(vs store.VectorStore, engine embedding.Engine, chunkTokens, overlapPercent int) *Ingestor {
	if chunkTokens <= 0 {
		chunkTokens = DefaultChunkTokens
	}
	if overlapPercent <= 0 {
		overlapPercent = DefaultOverlapPercent
	}
	return &Ingestor{
		store:          vs,
		engine:         engine,
		chunkTokens:    chunkTokens,
		overlapPercent: overlapPercent,
	}
}

// EnsureFingerprint guards the embedding-space invariant: vectors written
// by one engine must never be queried with another. A fresh store adopts
// this engine's fingerprint; a mismatch is a fatal ConfigurationError.
func (in *Ingestor) EnsureFingerprint(ctx context.Context) error {
	recorded, err := in.store.EmbedderFingerprint(ctx)
	if err != nil {
		return fmt.Errorf("read embedder fingerprint: %w", err)
	}
	current := in.engine.Fingerprint()

	if recorded == "" {
		logging.Ingest("recording embedder fingerprint: %s", current)
		return in.store.SetEmbedderFingerprint(ctx, current)
	}
	if recorded != current {
		return &types.ConfigurationError{
			Reason: fmt.Sprintf("store was ingested with embedder %q but engine is %q; re-ingest or switch engines", recorded, current),
		}
	}
	return nil
}

// Ingest walks dir and embeds every supported file. Malformed files are
// counted as failures and skipped; the batch only fails outright on a
// missing directory, a fingerprint mismatch, or cancellation.
func (in *Ingestor) Ingest(ctx context.Context, dir string) (IngestReport, error) {
	timer := logging.StartTimer(logging.CategoryIngest, "knowledge.Ingest")
	defer timer.StopWithInfo()

	var report IngestReport

	info, err := os.Stat(dir)
	if err != nil {
		return report, fmt.Errorf("knowledge dir: %w", err)
	}
	if !info.IsDir() {
		return report, fmt.Errorf("knowledge path is not a directory: %s", dir)
	}

	if err := in.EnsureFingerprint(ctx); err != nil {
		return report, err
	}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() || !SupportedFile(path) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		report.FilesSeen++
		written, err := in.IngestFile(ctx, dir, path)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Get(logging.CategoryIngest).Warn("skipping %s: %v", path, err)
			report.FilesFailed++
			report.Failed = append(report.Failed, sourceID(dir, path))
			return nil
		}
		report.ChunksWritten += written
		return nil
	})
	if err != nil {
		return report, err
	}

	logging.Ingest("ingest complete: files=%d failed=%d chunks=%d",
		report.FilesSeen, report.FilesFailed, report.ChunksWritten)
	return report, nil
}

// IngestFile embeds one file. Existing chunks from the same source are
// removed first, so re-ingesting a file updates rather than duplicates
// and a shrunk file leaves no stale tail behind. Returns the chunk count
// written.
func (in *Ingestor) IngestFile(ctx context.Context, root, path string) (int, error) {
	source := sourceID(root, path)

	text, err := ExtractFile(path)
	if err != nil {
		return 0, err
	}

	pieces := ChunkText(text, in.chunkTokens, in.overlapPercent)
	if len(pieces) == 0 {
		// Blank file: clear any chunks a previous version wrote.
		if _, err := in.store.DeleteSource(ctx, source); err != nil {
			return 0, err
		}
		return 0, nil
	}

	vectors, err := in.engine.EmbedBatch(ctx, pieces)
	if err != nil {
		return 0, fmt.Errorf("embed %s: %w", source, err)
	}
	if len(vectors) != len(pieces) {
		return 0, fmt.Errorf("embed %s: got %d vectors for %d chunks", source, len(vectors), len(pieces))
	}

	chunks := make([]store.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = store.Chunk{
			ID:     chunkID(source, i),
			Source: source,
			Ord:    i,
			Text:   piece,
			Metadata: map[string]string{
				"total": strconv.Itoa(len(pieces)),
			},
			Vector: vectors[i],
		}
	}

	if _, err := in.store.DeleteSource(ctx, source); err != nil {
		return 0, err
	}
	if err := in.store.UpsertBatch(ctx, chunks); err != nil {
		return 0, fmt.Errorf("upsert %s: %w", source, err)
	}

	logging.IngestDebug("ingested %s: %d chunks", source, len(chunks))
	return len(chunks), nil
}

// RemoveSource drops every chunk ingested from the given file. Used by
// the watch loop when a source disappears.
func (in *Ingestor) RemoveSource(ctx context.Context, root, path string) (int, error) {
	return in.store.DeleteSource(ctx, sourceID(root, path))
}

// sourceID is the stable per-file key: the slash-normalized path relative
// to the knowledge root. Falls back to the raw path when path sits
// outside root.
func sourceID(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// chunkID derives the stable chunk key from (source, index), so
// re-ingesting a file overwrites its own chunks.
func chunkID(source string, index int) string {
	return fmt.Sprintf("%s#%d", source, index)
}
