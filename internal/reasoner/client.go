// Package reasoner provides the language-reasoning clients used by the
// evaluation stages. The pipeline treats the reasoner as a black box: a
// prompt goes in, structured text comes out, and the calling stage parses
// it. Three providers are supported (Anthropic, OpenAI, Gemini), selected
// by configuration.
package reasoner

import (
	"context"
)

// Client is the reasoning capability the evaluators invoke. Implementations
// must be safe for concurrent calls; the workflow runs two stages against
// one client at the same time.
type Client interface {
	// Complete sends a prompt and returns the completion.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteWithSystem sends a prompt with a system message.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// structured-output settings shared by every provider. Low temperature
// keeps the JSON replies stable across retries.
const (
	defaultMaxTokens  = 2048
	outputTemperature = 0.1
)
