// Package config loads and validates TruePick configuration from a YAML
// file, with environment-variable overrides for secrets and endpoints.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bobaba99/truepick/internal/types"
)

// Config holds all TruePick configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Reasoner (LLM) configuration
	Reasoner ReasonerConfig `yaml:"reasoner"`

	// Embedding engine configuration
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Persistent store configuration
	Store StoreConfig `yaml:"store"`

	// Knowledge base ingestion
	Knowledge KnowledgeConfig `yaml:"knowledge"`

	// Retrieval tuning
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Pipeline orchestration
	Workflow WorkflowConfig `yaml:"workflow"`

	// HTTP API
	Server ServerConfig `yaml:"server"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ReasonerConfig configures the language-reasoning backend.
type ReasonerConfig struct {
	Provider  string `yaml:"provider"` // anthropic, openai, gemini
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	Timeout   string `yaml:"timeout"`
	MaxTokens int    `yaml:"max_tokens"`
}

// EmbeddingConfig configures the embedding engine shared by ingestion and
// retrieval. Both paths must resolve to the same engine; the store records
// the engine fingerprint and a mismatch is fatal at startup.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // ollama, genai
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
	GenAIAPIKey    string `yaml:"genai_api_key"`
	GenAIModel     string `yaml:"genai_model"`
}

// StoreConfig configures the SQLite-backed stores.
type StoreConfig struct {
	// Path to the database file. The vector index and the user/profile
	// tables share one handle opened at process start.
	Path string `yaml:"path"`
	// InMemoryVectors switches the vector side to the ephemeral HNSW
	// index, for demos and tests without durable storage.
	InMemoryVectors bool `yaml:"in_memory_vectors"`
}

// KnowledgeConfig configures document chunking and the watch loop.
type KnowledgeConfig struct {
	Dir            string `yaml:"dir"`
	ChunkTokens    int    `yaml:"chunk_tokens"`    // 300-500
	OverlapPercent int    `yaml:"overlap_percent"` // 10-20
	WatchDebounce  string `yaml:"watch_debounce"`
}

// RetrievalConfig tunes nearest-neighbor search.
type RetrievalConfig struct {
	TopK          int     `yaml:"top_k"`
	MinSimilarity float64 `yaml:"min_similarity"`
}

// WorkflowConfig configures the pipeline engine.
type WorkflowConfig struct {
	// JoinTimeout bounds the wait for the two parallel evaluators.
	JoinTimeout string `yaml:"join_timeout"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "truepick",
		Version: "0.3.0",

		Reasoner: ReasonerConfig{
			Provider:  "anthropic",
			Model:     "claude-sonnet-4-20250514",
			Timeout:   "120s",
			MaxTokens: 2048,
		},

		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
		},

		Store: StoreConfig{
			Path: "data/truepick.db",
		},

		Knowledge: KnowledgeConfig{
			Dir:            "knowledge",
			ChunkTokens:    400,
			OverlapPercent: 15,
			WatchDebounce:  "2s",
		},

		Retrieval: RetrievalConfig{
			TopK:          3,
			MinSimilarity: 0.25,
		},

		Workflow: WorkflowConfig{
			JoinTimeout: "120s",
		},

		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     "30s",
			WriteTimeout:    "180s",
			ShutdownTimeout: "10s",
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	// Reasoner API key in priority order; the last match wins so the
	// most specific provider takes precedence.
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Reasoner.APIKey = key
		c.Reasoner.Provider = "gemini"
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Reasoner.APIKey = key
		c.Reasoner.Provider = "openai"
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Reasoner.APIKey = key
		c.Reasoner.Provider = "anthropic"
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" && c.Embedding.GenAIAPIKey == "" {
		c.Embedding.GenAIAPIKey = key
	}
	if endpoint := os.Getenv("OLLAMA_ENDPOINT"); endpoint != "" {
		c.Embedding.OllamaEndpoint = endpoint
	}

	if path := os.Getenv("TRUEPICK_DB"); path != "" {
		c.Store.Path = path
	}
	if dir := os.Getenv("TRUEPICK_KNOWLEDGE_DIR"); dir != "" {
		c.Knowledge.Dir = dir
	}
	if addr := os.Getenv("TRUEPICK_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
}

// GetReasonerTimeout returns the reasoner call timeout as a duration.
func (c *Config) GetReasonerTimeout() time.Duration {
	d, err := time.ParseDuration(c.Reasoner.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetJoinTimeout returns the parallel-branch join timeout as a duration.
func (c *Config) GetJoinTimeout() time.Duration {
	d, err := time.ParseDuration(c.Workflow.JoinTimeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetWatchDebounce returns the ingest watcher debounce as a duration.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Knowledge.WatchDebounce)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// GetShutdownTimeout returns the HTTP graceful-shutdown window.
func (c *Config) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetReadTimeout returns the HTTP read timeout as a duration.
func (c *Config) GetReadTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ReadTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetWriteTimeout returns the HTTP write timeout as a duration. Wide by
// default: a consult response waits on two model calls plus synthesis.
func (c *Config) GetWriteTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.WriteTimeout)
	if err != nil {
		return 180 * time.Second
	}
	return d
}

// ValidReasonerProviders lists the supported reasoner backends.
var ValidReasonerProviders = []string{"anthropic", "openai", "gemini"}

// ValidEmbeddingProviders lists the supported embedding backends.
var ValidEmbeddingProviders = []string{"ollama", "genai"}

// Validate checks the configuration for startup-fatal problems. All
// failures are ConfigurationErrors: a bad config must stop the process
// before any pipeline run starts.
func (c *Config) Validate() error {
	if c.Reasoner.APIKey == "" {
		return &types.ConfigurationError{
			Reason: "reasoner API key not configured (set ANTHROPIC_API_KEY, OPENAI_API_KEY, or GEMINI_API_KEY)",
		}
	}
	if !contains(ValidReasonerProviders, c.Reasoner.Provider) {
		return &types.ConfigurationError{
			Reason: fmt.Sprintf("invalid reasoner provider %q (valid: %v)", c.Reasoner.Provider, ValidReasonerProviders),
		}
	}
	if !contains(ValidEmbeddingProviders, c.Embedding.Provider) {
		return &types.ConfigurationError{
			Reason: fmt.Sprintf("invalid embedding provider %q (valid: %v)", c.Embedding.Provider, ValidEmbeddingProviders),
		}
	}
	if c.Embedding.Provider == "genai" && c.Embedding.GenAIAPIKey == "" {
		return &types.ConfigurationError{
			Reason: "embedding provider genai requires an API key (set GEMINI_API_KEY)",
		}
	}
	if c.Knowledge.ChunkTokens < 300 || c.Knowledge.ChunkTokens > 500 {
		return &types.ConfigurationError{
			Reason: fmt.Sprintf("knowledge.chunk_tokens %d outside the 300-500 range", c.Knowledge.ChunkTokens),
		}
	}
	if c.Knowledge.OverlapPercent < 10 || c.Knowledge.OverlapPercent > 20 {
		return &types.ConfigurationError{
			Reason: fmt.Sprintf("knowledge.overlap_percent %d outside the 10-20 range", c.Knowledge.OverlapPercent),
		}
	}
	if c.Retrieval.TopK <= 0 {
		return &types.ConfigurationError{
			Reason: fmt.Sprintf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK),
		}
	}
	if c.Store.Path == "" && !c.Store.InMemoryVectors {
		return &types.ConfigurationError{
			Reason: "store.path required unless in_memory_vectors is set",
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
