package main

import (
	"context"
	"fmt"

	"github.com/bobaba99/truepick/internal/cognition"
	"github.com/bobaba99/truepick/internal/config"
	"github.com/bobaba99/truepick/internal/embedding"
	"github.com/bobaba99/truepick/internal/reasoner"
	"github.com/bobaba99/truepick/internal/retrieval"
	"github.com/bobaba99/truepick/internal/store"
	"github.com/bobaba99/truepick/internal/workflow"
)

// bootEmbedding builds the embedding engine from config.
func bootEmbedding(cfg *config.Config) (embedding.Engine, error) {
	return embedding.NewEngine(embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
	})
}

// bootStores opens the SQLite database and picks the vector backend.
// Profiles always live in SQLite; vectors move to the in-process HNSW
// index when the config asks for ephemeral vectors. With no store path
// configured the SQLite side is ephemeral too.
func bootStores(cfg *config.Config, dims int) (*store.SQLiteStore, store.VectorStore, *store.ProfileStore, error) {
	path := cfg.Store.Path
	if path == "" {
		path = ":memory:"
	}
	sqlite, err := store.Open(path, dims)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	profiles := store.NewProfileStore(sqlite)

	var vectors store.VectorStore = sqlite
	if cfg.Store.InMemoryVectors {
		mem, err := store.NewMemoryStore(dims)
		if err != nil {
			sqlite.Close()
			return nil, nil, nil, err
		}
		vectors = mem
	}
	return sqlite, vectors, profiles, nil
}

// pipelineComponents is the full stack behind serve and consult: storage,
// embedding, reasoning, retrieval, and the workflow engine on top.
type pipelineComponents struct {
	sqlite   *store.SQLiteStore
	vectors  store.VectorStore
	profiles *store.ProfileStore
	embedder embedding.Engine
	client   reasoner.Client
	engine   *workflow.Engine
}

// Close releases the database handle and any embedding backend session.
func (p *pipelineComponents) Close() {
	if closer, ok := p.embedder.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if p.sqlite != nil {
		_ = p.sqlite.Close()
	}
}

// bootPipeline wires every stage of the decision pipeline. A fingerprint
// mismatch between the store and the configured embedding engine fails
// here, before any request is accepted.
func bootPipeline(ctx context.Context, cfg *config.Config) (*pipelineComponents, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	embedder, err := bootEmbedding(cfg)
	if err != nil {
		return nil, err
	}

	sqlite, vectors, profiles, err := bootStores(cfg, embedder.Dimensions())
	if err != nil {
		return nil, err
	}

	client, err := reasoner.NewClient(cfg.Reasoner)
	if err != nil {
		sqlite.Close()
		return nil, err
	}

	retriever := retrieval.New(embedder, vectors, cfg.Retrieval.TopK, cfg.Retrieval.MinSimilarity)
	if err := retriever.VerifyCompatibility(ctx); err != nil {
		sqlite.Close()
		return nil, err
	}

	engine := workflow.NewEngine(
		profiles,
		cognition.NewHeuristicEvaluator(client, retriever),
		cognition.NewAnalyticEvaluator(client),
		cognition.NewSynthesizer(client),
		cfg.GetJoinTimeout(),
	)

	return &pipelineComponents{
		sqlite:   sqlite,
		vectors:  vectors,
		profiles: profiles,
		embedder: embedder,
		client:   client,
		engine:   engine,
	}, nil
}
