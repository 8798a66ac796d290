package util

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LevelInfo, Format: FormatJSON, Output: &buf})

	logger.Debug("hidden")
	logger.Info("module parsed", "path", "/src/a.js", "exports", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "module parsed", entry["msg"])
	assert.Equal(t, "/src/a.js", entry["path"])
	assert.EqualValues(t, 3, entry["exports"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LevelWarn, Format: FormatText, Output: &buf})

	logger.Info("hidden")
	logger.Warn("resolve error", "specifier", "./missing")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "specifier=./missing")
}

func TestNewLogger_Pretty(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LevelDebug, Format: FormatPretty, Output: &buf})

	logger.Debug("cache miss", "path", "/src/b.ts")

	out := buf.String()
	assert.Contains(t, out, "cache miss")
	assert.Contains(t, out, "/src/b.ts")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLogLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLogLevel("warning"))
	assert.Equal(t, LevelError, ParseLogLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLogLevel("verbose"))

	assert.Equal(t, slog.LevelWarn, LevelWarn.Level())
	assert.Equal(t, slog.LevelInfo, LogLevel("trace").Level())
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	assert.False(t, logger.Enabled(t.Context(), 8))
}
