package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type stubModel struct {
	calls    int
	failures int
	failWith error
	reply    string
}

func (s *stubModel) GenerateContent(
	_ context.Context,
	_ []llms.MessageContent,
	_ ...llms.CallOption,
) (*llms.ContentResponse, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, s.failWith
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: s.reply}},
	}, nil
}

func (s *stubModel) Call(context.Context, string, ...llms.CallOption) (string, error) {
	return s.reply, nil
}

func testConfig() *Config {
	return &Config{
		Provider:    "openai",
		Model:       "gpt-4o-mini",
		BackoffBase: time.Millisecond,
		BackoffMax:  5 * time.Millisecond,
	}
}

func TestLangchainClient_GenerateText(t *testing.T) {
	t.Run("Should return the first choice's text", func(t *testing.T) {
		model := &stubModel{reply: "hello"}
		client := NewClientWithModel(model, testConfig())
		text, err := client.GenerateText(context.Background(), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "hello", text)
		assert.Equal(t, 1, model.calls)
	})
	t.Run("Should retry transient failures", func(t *testing.T) {
		model := &stubModel{
			reply:    "eventually",
			failures: 2,
			failWith: errors.New("429 rate limit exceeded"),
		}
		client := NewClientWithModel(model, testConfig())
		text, err := client.GenerateText(context.Background(), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "eventually", text)
		assert.Equal(t, 3, model.calls)
	})
	t.Run("Should not retry permanent failures", func(t *testing.T) {
		model := &stubModel{
			failures: 10,
			failWith: errors.New("invalid api key"),
		}
		client := NewClientWithModel(model, testConfig())
		_, err := client.GenerateText(context.Background(), nil, nil)
		require.Error(t, err)
		assert.Equal(t, 1, model.calls)
	})
	t.Run("Should give up after the retry budget", func(t *testing.T) {
		model := &stubModel{
			failures: 10,
			failWith: errors.New("overloaded"),
		}
		client := NewClientWithModel(model, testConfig())
		_, err := client.GenerateText(context.Background(), nil, nil)
		require.Error(t, err)
		assert.Equal(t, defaultRetryAttempts+1, model.calls)
	})
}

func TestNewClient(t *testing.T) {
	t.Run("Should reject unknown providers", func(t *testing.T) {
		_, err := NewClient(&Config{Provider: "carrier-pigeon"})
		assert.ErrorContains(t, err, "unknown provider")
	})
	t.Run("Should reject nil config", func(t *testing.T) {
		_, err := NewClient(nil)
		assert.Error(t, err)
	})
}
