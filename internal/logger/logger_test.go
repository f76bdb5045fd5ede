package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContextAddsIDs(t *testing.T) {
	var buf bytes.Buffer
	initWithWriter(&buf, "debug", "json")
	t.Cleanup(func() { defaultLogger = nil })

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithUserID(ctx, "42")
	WithContext(ctx).Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "42", line["user_id"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	initWithWriter(&buf, "warn", "text")
	t.Cleanup(func() { defaultLogger = nil })

	Get().Info("dropped")
	assert.Empty(t, buf.String())

	Get().Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNewRequestIDIsUnique(t *testing.T) {
	assert.NotEqual(t, NewRequestID(), NewRequestID())
}
