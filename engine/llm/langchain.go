package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/quillflow/quillflow/pkg/logger"
)

const (
	defaultRetryAttempts = 2
	defaultBackoffBase   = 500 * time.Millisecond
	defaultBackoffMax    = 10 * time.Second
)

// Config selects the provider backing the langchain client.
type Config struct {
	Provider      string        `json:"provider"                 yaml:"provider"                 koanf:"provider"`
	Model         string        `json:"model"                    yaml:"model"                    koanf:"model"`
	APIKey        string        `json:"api_key,omitempty"        yaml:"api_key,omitempty"        koanf:"api_key"`
	APIURL        string        `json:"api_url,omitempty"        yaml:"api_url,omitempty"        koanf:"api_url"`
	RetryAttempts int           `json:"retry_attempts,omitempty" yaml:"retry_attempts,omitempty" koanf:"retry_attempts"`
	BackoffBase   time.Duration `json:"backoff_base,omitempty"   yaml:"backoff_base,omitempty"   koanf:"backoff_base"`
	BackoffMax    time.Duration `json:"backoff_max,omitempty"    yaml:"backoff_max,omitempty"    koanf:"backoff_max"`
}

// langchainClient adapts a langchaingo model to the Client interface, with
// exponential-backoff retries around transient provider failures.
type langchainClient struct {
	model         llms.Model
	defaultModel  string
	retryAttempts int
	backoffBase   time.Duration
	backoffMax    time.Duration
}

// NewClient constructs a Client for the configured provider.
func NewClient(cfg *Config) (Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("llm config is required")
	}
	model, err := buildModel(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating %s model: %w", cfg.Provider, err)
	}
	return NewClientWithModel(model, cfg), nil
}

// NewClientWithModel wraps an already-constructed model. Tests use this to
// inject stubs.
func NewClientWithModel(model llms.Model, cfg *Config) Client {
	c := &langchainClient{
		model:         model,
		defaultModel:  cfg.Model,
		retryAttempts: cfg.RetryAttempts,
		backoffBase:   cfg.BackoffBase,
		backoffMax:    cfg.BackoffMax,
	}
	if c.retryAttempts <= 0 || c.retryAttempts > 100 {
		c.retryAttempts = defaultRetryAttempts
	}
	if c.backoffBase <= 0 {
		c.backoffBase = defaultBackoffBase
	}
	if c.backoffMax <= 0 {
		c.backoffMax = defaultBackoffMax
	}
	return c
}

func buildModel(cfg *Config) (llms.Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		opts := []openai.Option{openai.WithModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		if cfg.APIURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.APIURL))
		}
		return openai.New(opts...)
	case "anthropic":
		opts := []anthropic.Option{anthropic.WithModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, anthropic.WithToken(cfg.APIKey))
		}
		if cfg.APIURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.APIURL))
		}
		return anthropic.New(opts...)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func (c *langchainClient) GenerateText(
	ctx context.Context,
	messages []llms.MessageContent,
	opts *Options,
) (string, error) {
	log := logger.FromContext(ctx)
	callOpts := c.callOptions(opts)

	backoff := retry.WithMaxDuration(c.backoffMax, retry.NewExponential(c.backoffBase))
	backoff = retry.WithMaxRetries(uint64(c.retryAttempts), backoff)

	var text string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		response, callErr := c.model.GenerateContent(ctx, messages, callOpts...)
		if callErr != nil {
			if isRetryable(callErr) {
				log.Warn("llm call failed, retrying", "error", callErr)
				return retry.RetryableError(callErr)
			}
			return callErr
		}
		if len(response.Choices) == 0 {
			return fmt.Errorf("provider returned no choices")
		}
		text = response.Choices[0].Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generating completion: %w", err)
	}
	return text, nil
}

func (c *langchainClient) callOptions(opts *Options) []llms.CallOption {
	var callOpts []llms.CallOption
	model := c.defaultModel
	if opts != nil && opts.Model != "" {
		model = opts.Model
	}
	if model != "" {
		callOpts = append(callOpts, llms.WithModel(model))
	}
	if opts != nil && opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}
	if opts != nil && opts.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(opts.Temperature))
	}
	return callOpts
}

// isRetryable matches the transient failure modes providers report as plain
// error strings: rate limits, overload, and upstream 5xx responses.
func isRetryable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"rate limit", "429", "overloaded", "503", "502", "500",
		"timeout", "connection reset", "temporarily unavailable",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
