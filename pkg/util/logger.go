package util

import (
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// LogFormat represents the output format for logs
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
	// FormatPretty renders colored, human-oriented lines for terminals.
	FormatPretty LogFormat = "pretty"
)

// LoggerConfig holds the configuration for the logger
type LoggerConfig struct {
	Level  LogLevel
	Format LogFormat
	Output io.Writer
}

// DefaultLoggerConfig returns a logger config with sensible defaults.
//
// Logs go to stderr: stdout carries command output and the MCP stdio stream.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:  LevelInfo,
		Format: FormatJSON,
		Output: os.Stderr,
	}
}

// NewLogger builds a slog.Logger for the configured format. Unknown formats
// fall back to JSON.
func NewLogger(config LoggerConfig) *slog.Logger {
	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	level := config.Level.Level()
	opts := &slog.HandlerOptions{Level: level}

	switch config.Format {
	case FormatText:
		return slog.New(slog.NewTextHandler(out, opts))
	case FormatPretty:
		return slog.New(charmlog.NewWithOptions(out, charmlog.Options{
			Level:           charmLevels[level],
			ReportTimestamp: level <= slog.LevelDebug,
		}))
	default:
		return slog.New(slog.NewJSONHandler(out, opts))
	}
}

// ParseLogLevel converts a user-supplied level name, defaulting to info.
func ParseLogLevel(s string) LogLevel {
	switch LogLevel(strings.ToLower(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn, "warning":
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// Level is the slog level for l. Unknown names map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// charmLevels maps slog levels onto the pretty handler's levels.
var charmLevels = map[slog.Level]charmlog.Level{
	slog.LevelDebug: charmlog.DebugLevel,
	slog.LevelInfo:  charmlog.InfoLevel,
	slog.LevelWarn:  charmlog.WarnLevel,
	slog.LevelError: charmlog.ErrorLevel,
}

// SetDefault sets the default logger for the slog package
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}

// NopLogger returns a logger that discards everything. Used by tests.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
