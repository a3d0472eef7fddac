package reasoner

import (
	"fmt"
	"os"
	"time"

	"github.com/bobaba99/truepick/internal/config"
	"github.com/bobaba99/truepick/internal/logging"
)

// NewClient builds the reasoner client named by the configuration. An
// empty model falls back to the provider default.
func NewClient(cfg config.ReasonerConfig) (Client, error) {
	logging.Reasoner("creating reasoner client, provider=%s", cfg.Provider)

	timeout := 120 * time.Second
	if d, err := time.ParseDuration(cfg.Timeout); err == nil && d > 0 {
		timeout = d
	}

	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicClientWithConfig(AnthropicConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Timeout:   timeout,
		}), nil
	case "openai":
		return NewOpenAIClientWithConfig(OpenAIConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Timeout:   timeout,
		}), nil
	case "gemini":
		return NewGeminiClientWithConfig(GeminiConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Timeout:   timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown reasoner provider: %s (valid: anthropic, openai, gemini)", cfg.Provider)
	}
}

// NewClientFromEnv builds a client from environment variables alone,
// checking providers in priority order. Used by tooling that runs outside
// the configured process.
func NewClientFromEnv() (Client, error) {
	providers := []struct {
		envVar  string
		builder func(string) Client
	}{
		{"ANTHROPIC_API_KEY", func(key string) Client { return NewAnthropicClient(key) }},
		{"OPENAI_API_KEY", func(key string) Client { return NewOpenAIClient(key) }},
		{"GEMINI_API_KEY", func(key string) Client { return NewGeminiClient(key) }},
	}

	for _, p := range providers {
		if key := os.Getenv(p.envVar); key != "" {
			return p.builder(key), nil
		}
	}
	return nil, fmt.Errorf("no API key found; set one of: ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY")
}
