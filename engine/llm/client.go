package llm

import (
	"context"

	"github.com/tmc/langchaingo/llms"
)

// Options tunes a single generation call. Zero values fall back to the
// provider defaults configured at client construction.
type Options struct {
	Model       string  `json:"model,omitempty"       yaml:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"  yaml:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
}

// Client generates a single text completion for a compiled message list.
// Implementations own transport concerns such as retries and timeouts; the
// engine treats a returned error as terminal for the step.
type Client interface {
	GenerateText(ctx context.Context, messages []llms.MessageContent, opts *Options) (string, error)
}
