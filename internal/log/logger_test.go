package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjl-github/chiwen/internal/errors"
)

func newBufferLogger(level Level, format Format) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = level
	cfg.Format = format
	cfg.Writer = &buf
	return New(cfg), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestLogLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(LevelWarn, FormatJSON)

	logger.Debug("debug message")
	logger.Info("info message")
	assert.Empty(t, buf.String())

	logger.Warn("warn message")
	assert.Contains(t, buf.String(), "warn message")
}

func TestJSONFormatOutput(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug, FormatJSON)

	logger.Info("fetched collection", "collection", "assets", "count", 3)

	entry := decodeLine(t, buf)
	assert.Equal(t, "fetched collection", entry["msg"])
	assert.Equal(t, "assets", entry["collection"])
	assert.Equal(t, float64(3), entry["count"])
	assert.Equal(t, "chiwen", entry["service"])
}

func TestTextFormatOutput(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug, FormatText)

	logger.With("component", "session").Info("login succeeded", "role", "admin")

	out := buf.String()
	assert.Contains(t, out, "msg=\"login succeeded\"")
	assert.Contains(t, out, "component=session")
	assert.Contains(t, out, "role=admin")
}

func TestSecretsAreRedacted(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug, FormatJSON)

	logger.With("Authorization", "Bearer abc").
		Info("request", "password", "hunter2", "token", "eyJhbGciOi", "token_fp", "1a2b3c", "username", "admin")

	entry := decodeLine(t, buf)
	assert.Equal(t, Redacted, entry["password"])
	assert.Equal(t, Redacted, entry["token"])
	assert.Equal(t, Redacted, entry["Authorization"])
	assert.Equal(t, "1a2b3c", entry["token_fp"])
	assert.Equal(t, "admin", entry["username"])
	assert.NotContains(t, buf.String(), "hunter2")
}

func TestWithError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKeys map[string]any
	}{
		{
			name:     "plain error",
			err:      fmt.Errorf("boom"),
			wantKeys: map[string]any{"error": "boom"},
		},
		{
			name: "console error",
			err:  errors.NewRemoteRejectedError(401, "bad credentials"),
			wantKeys: map[string]any{
				"error":       "bad credentials",
				"error_code":  "REMOTE-001",
				"status_code": float64(401),
			},
		},
		{
			name: "wrapped console error with cause",
			err:  fmt.Errorf("fetch: %w", errors.NewTransportError(fmt.Errorf("connection refused"))),
			wantKeys: map[string]any{
				"error_code": "NET-001",
				"cause":      "connection refused",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newBufferLogger(LevelDebug, FormatJSON)
			logger.WithError(tt.err).Warn("operation failed")

			entry := decodeLine(t, buf)
			for k, v := range tt.wantKeys {
				assert.Equal(t, v, entry[k], "key %s", k)
			}
		})
	}

	logger, _ := newBufferLogger(LevelDebug, FormatJSON)
	assert.Same(t, logger, logger.WithError(nil))
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("dropped")
	assert.False(t, logger.Enabled(context.Background(), LevelWarn))

	assert.NotNil(t, OrDiscard(nil))
	assert.Same(t, logger, OrDiscard(logger))
}

func TestFromSettings(t *testing.T) {
	var buf bytes.Buffer
	cfg := FromSettings("debug", "json", &buf)

	assert.Equal(t, LevelDebug, cfg.Level)
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.True(t, cfg.AddSource)

	New(cfg).Debug("hello")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "hello", entry["msg"])
	assert.Contains(t, entry, "source")

	assert.False(t, FromSettings("warn", "text", nil).AddSource)
}
