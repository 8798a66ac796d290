// Package mcplog keeps a JSONL audit trail of MCP tool calls.
package mcplog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// Outcomes recorded in Entry.Outcome.
const (
	OutcomeOK     = "ok"     // the tool answered
	OutcomeError  = "error"  // the tool answered with an error result
	OutcomeFailed = "failed" // the handler itself returned an error
)

const (
	maxParamLen = 64
	maxErrorLen = 256
)

// Call describes one finished tool invocation.
type Call struct {
	Tool    string
	Args    map[string]any
	Started time.Time
	Elapsed time.Duration
	Result  *mcp.CallToolResult
	Err     error
}

// Entry is one JSONL line.
type Entry struct {
	Ts            string         `json:"ts"`
	Tool          string         `json:"tool"`
	Params        map[string]any `json:"params"`
	DurationMs    int64          `json:"duration_ms"`
	ResponseBytes int            `json:"response_bytes"`
	TokensEst     int            `json:"tokens_est"`
	Outcome       string         `json:"outcome"`
	Error         string         `json:"error,omitempty"`
}

// Logger appends one Entry per Call to a file and mirrors a summary to slog.
// A nil *Logger is valid and records nothing. Safe for concurrent use.
type Logger struct {
	mirror *slog.Logger

	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// NewLogger opens path for appending, creating parent directories.
// An empty path returns a nil Logger and no error.
func NewLogger(path string, mirror *slog.Logger) (*Logger, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mcplog: create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("mcplog: open log file: %w", err)
	}
	return &Logger{f: f, enc: json.NewEncoder(f), mirror: mirror}, nil
}

// Record appends the entry for c.
func (l *Logger) Record(c Call) error {
	if l == nil {
		return nil
	}
	e := NewEntry(c)
	if l.mirror != nil {
		level := slog.LevelDebug
		if e.Outcome == OutcomeFailed {
			level = slog.LevelWarn
		}
		l.mirror.Log(context.Background(), level, "tool call",
			"tool", e.Tool,
			"outcome", e.Outcome,
			"duration_ms", e.DurationMs,
			"response_bytes", e.ResponseBytes)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(e)
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// NewEntry builds the log line for a call.
func NewEntry(c Call) Entry {
	size := responseBytes(c.Result)
	e := Entry{
		Ts:            c.Started.UTC().Format(time.RFC3339),
		Tool:          c.Tool,
		Params:        loggedParams(c.Args),
		DurationMs:    c.Elapsed.Milliseconds(),
		ResponseBytes: size,
		TokensEst:     size / 4,
		Outcome:       OutcomeOK,
	}
	switch {
	case c.Err != nil:
		e.Outcome = OutcomeFailed
		e.Error = clip(c.Err.Error(), maxErrorLen)
	case c.Result != nil && c.Result.IsError:
		e.Outcome = OutcomeError
		e.Error = clip(resultText(c.Result), maxErrorLen)
	}
	return e
}

// pathParams are logged in full whatever their length.
var pathParams = map[string]bool{"file": true, "root": true, "specifier": true}

// loggedParams copies args, replacing long free-form strings with their
// length under "<key>_len".
func loggedParams(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok && len(s) > maxParamLen && !pathParams[k] {
			out[k+"_len"] = len(s)
			continue
		}
		out[k] = v
	}
	return out
}

func responseBytes(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	b, err := json.Marshal(result.Content)
	if err != nil {
		return 0
	}
	return len(b)
}

// resultText is the first text block of a result.
func resultText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if text, ok := mcp.AsTextContent(c); ok {
			return text.Text
		}
	}
	return ""
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
