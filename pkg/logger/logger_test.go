package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("Should write structured JSON records", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: DebugLevel, Output: &buf, JSON: true})
		log.Info("workflow started", "workflow_id", "wf-1")
		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "workflow started", record["msg"])
		assert.Equal(t, "wf-1", record["workflow_id"])
	})
	t.Run("Should suppress records below the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: ErrorLevel, Output: &buf, JSON: true})
		log.Debug("noisy")
		log.Info("also noisy")
		assert.Empty(t, buf.String())
	})
	t.Run("Should carry With fields into every record", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: InfoLevel, Output: &buf, JSON: true})
		log.With("step", "analyze").Info("done")
		assert.Contains(t, buf.String(), `"step":"analyze"`)
	})
}

func TestFromContext(t *testing.T) {
	t.Run("Should return attached logger", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: InfoLevel, Output: &buf, JSON: true})
		ctx := ContextWithLogger(context.Background(), log)
		FromContext(ctx).Info("from context")
		assert.True(t, strings.Contains(buf.String(), "from context"))
	})
	t.Run("Should fall back to default logger", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})
}
