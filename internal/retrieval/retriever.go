// Package retrieval answers one question for the reasoning stages: what
// does the knowledge base say that is relevant to this purchase? Callers
// get a ranked, pre-joined types.RetrievedContext and never see the
// distance metric or the storage engine behind it.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobaba99/truepick/internal/embedding"
	"github.com/bobaba99/truepick/internal/logging"
	"github.com/bobaba99/truepick/internal/store"
	"github.com/bobaba99/truepick/internal/types"
)

// Separator joins chunk texts in the assembled context. Deterministic so
// identical retrievals produce identical prompt bytes.
const Separator = "\n\n---\n\n"

// DefaultTopK bounds how many chunks one retrieval returns.
const DefaultTopK = 3

// Retriever embeds queries and searches the vector store.
type Retriever struct {
	engine        embedding.Engine
	store         store.VectorStore
	topK          int
	minSimilarity float64
}

// New builds a retriever over the given engine and store. topK <= 0 falls
// back to DefaultTopK; minSimilarity <= 0 disables the cutoff.
func New(engine embedding.Engine, vs store.VectorStore, topK int, minSimilarity float64) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		engine:        engine,
		store:         vs,
		topK:          topK,
		minSimilarity: minSimilarity,
	}
}

// VerifyCompatibility checks that the store's vectors were produced by
// this retriever's engine. Run once at startup: a mismatch means queries
// would silently land in the wrong embedding space, so it is a fatal
// ConfigurationError. A never-written store passes.
func (r *Retriever) VerifyCompatibility(ctx context.Context) error {
	recorded, err := r.store.EmbedderFingerprint(ctx)
	if err != nil {
		return &Error{Op: "verify", Err: err}
	}
	current := r.engine.Fingerprint()

	if recorded != "" && recorded != current {
		return &types.ConfigurationError{
			Reason: fmt.Sprintf("store vectors were written by embedder %q but the engine is %q; re-ingest the knowledge base", recorded, current),
		}
	}
	logging.RetrievalDebug("embedder compatibility verified: %s", current)
	return nil
}

// Retrieve returns the chunks most relevant to queryText, descending by
// similarity, joined into one context string. Below-cutoff matches are
// dropped rather than padding the context with noise. An empty corpus or
// an all-filtered result is an empty context, not an error.
func (r *Retriever) Retrieve(ctx context.Context, queryText string) (types.RetrievedContext, error) {
	timer := logging.StartTimer(logging.CategoryRetrieval, "retrieval.Retrieve")
	defer timer.Stop()

	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return types.RetrievedContext{}, nil
	}

	vector, err := r.engine.EmbedQuery(ctx, queryText)
	if err != nil {
		return types.RetrievedContext{}, &Error{Op: "embed", Err: err}
	}

	matches, err := r.store.Query(ctx, vector, r.topK)
	if err != nil {
		return types.RetrievedContext{}, &Error{Op: "query", Err: err}
	}

	chunks := make([]types.ScoredChunk, 0, len(matches))
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		if r.minSimilarity > 0 && m.Similarity < r.minSimilarity {
			continue
		}
		chunks = append(chunks, types.ScoredChunk{
			Text:       m.Text,
			Source:     m.Source,
			Similarity: m.Similarity,
		})
		texts = append(texts, m.Text)
	}

	logging.RetrievalDebug("query %q: %d matches, %d above cutoff", queryText, len(matches), len(chunks))
	if len(chunks) == 0 {
		return types.RetrievedContext{}, nil
	}

	return types.RetrievedContext{
		Chunks: chunks,
		Text:   strings.Join(texts, Separator),
	}, nil
}
