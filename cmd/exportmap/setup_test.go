package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanner(input string) *bufio.Scanner {
	return bufio.NewScanner(strings.NewReader(input))
}

func notOnPath(string) (string, error) { return "", exec.ErrNotFound }

func missing(string) (os.FileInfo, error) { return nil, os.ErrNotExist }

func noAgents() setupEnv {
	return setupEnv{lookPath: notOnPath, stat: missing}
}

// localStat sees only paths relative to the working directory, so tests
// never detect agents configured in the real home directory.
func localStat(name string) (os.FileInfo, error) {
	if filepath.IsAbs(name) {
		return nil, os.ErrNotExist
	}
	return os.Stat(name)
}

func serversOf(t *testing.T, data []byte, key string) map[string]any {
	t.Helper()
	var config map[string]any
	require.NoError(t, json.Unmarshal(data, &config))
	servers, ok := config[key].(map[string]any)
	require.True(t, ok, "missing %q object", key)
	return servers
}

// --- JSON merge tests ---

func TestMergeServerEntry_EmptyFile(t *testing.T) {
	out, err := mergeServerEntry(nil, "mcpServers", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, out)

	entry := serversOf(t, out, "mcpServers")["exportmap"].(map[string]any)
	assert.Equal(t, "exportmap", entry["command"])
	assert.Equal(t, []any{"serve"}, entry["args"])
	assert.Equal(t, byte('\n'), out[len(out)-1])
}

func TestMergeServerEntry_ServeArgs(t *testing.T) {
	out, err := mergeServerEntry(nil, "mcpServers", []string{"--watch", "."}, nil)
	require.NoError(t, err)

	entry := serversOf(t, out, "mcpServers")["exportmap"].(map[string]any)
	assert.Equal(t, []any{"serve", "--watch", "."}, entry["args"])
}

func TestMergeServerEntry_ExistingServers(t *testing.T) {
	existing := []byte(`{
  "mcpServers": {
    "other-server": {"command": "other", "args": ["start"]}
  }
}`)
	out, err := mergeServerEntry(existing, "mcpServers", nil, nil)
	require.NoError(t, err)

	servers := serversOf(t, out, "mcpServers")
	assert.Contains(t, servers, "other-server")
	assert.Contains(t, servers, "exportmap")
}

func TestMergeServerEntry_AlreadyConfigured(t *testing.T) {
	existing := []byte(`{"mcpServers": {"exportmap": {"command": "exportmap", "args": ["serve"]}}}`)
	out, err := mergeServerEntry(existing, "mcpServers", nil, nil)
	assert.NoError(t, err)
	assert.Nil(t, out)
}

func TestMergeServerEntry_VSCodeFormat(t *testing.T) {
	out, err := mergeServerEntry(nil, "servers", nil, map[string]string{"type": "stdio"})
	require.NoError(t, err)

	entry := serversOf(t, out, "servers")["exportmap"].(map[string]any)
	assert.Equal(t, "exportmap", entry["command"])
	assert.Equal(t, "stdio", entry["type"])
}

func TestMergeServerEntry_InvalidJSON(t *testing.T) {
	_, err := mergeServerEntry([]byte("not json"), "mcpServers", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

// --- Prompt tests ---

func TestPromptYesNo(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"\n", true},
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"", true},
	}
	for _, tt := range tests {
		w := &bytes.Buffer{}
		assert.Equal(t, tt.want, promptYesNo(scanner(tt.input), w, "Continue?"), "input %q", tt.input)
		assert.Contains(t, w.String(), "Continue?")
	}
}

func TestPromptScope(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1\n", "project"},
		{"2\n", "user"},
		{"3\n", ""},
		{"\n", "project"},
		{"", "project"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, promptScope(scanner(tt.input), &bytes.Buffer{}, "Codex"), "input %q", tt.input)
	}
}

// --- Detection tests ---

func TestDetectAgents_CLIOnPath(t *testing.T) {
	env := noAgents()
	env.lookPath = func(name string) (string, error) {
		if name == "codex" {
			return "/usr/bin/codex", nil
		}
		return "", exec.ErrNotFound
	}

	found := detectAgents(env)
	require.Len(t, found, 1)
	assert.Equal(t, "openai_codex", found[0].ID)
	assert.True(t, found[0].usesCLI())
}

func TestDetectAgents_NoneDetected(t *testing.T) {
	assert.Empty(t, detectAgents(noAgents()))
}

func TestDetectAgents_FileBasedAgent(t *testing.T) {
	env := noAgents()
	env.stat = func(name string) (os.FileInfo, error) {
		if name == ".cursor" {
			return nil, nil
		}
		return nil, os.ErrNotExist
	}

	found := detectAgents(env)
	require.Len(t, found, 1)
	assert.Equal(t, "cursor", found[0].ID)
	assert.Equal(t, filepath.Join(".cursor", "mcp.json"), found[0].file)
	assert.False(t, found[0].configured)
}

// --- Orchestration tests ---

func TestRunSetup_NoAgents(t *testing.T) {
	w := &bytes.Buffer{}
	runSetup(strings.NewReader(""), w, noAgents(), setupOptions{})
	assert.Contains(t, w.String(), "No supported agents detected.")
}

func TestRunSetup_AutoModeFileAgent(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.MkdirAll(".vscode", 0o755))

	env := noAgents()
	env.stat = localStat

	w := &bytes.Buffer{}
	runSetup(strings.NewReader(""), w, env, setupOptions{auto: true, serveArgs: []string{"--watch", "."}})
	assert.Contains(t, w.String(), "VS Code Copilot configured")

	data, err := os.ReadFile(filepath.Join(".vscode", "mcp.json"))
	require.NoError(t, err)
	entry := serversOf(t, data, "servers")["exportmap"].(map[string]any)
	assert.Equal(t, "stdio", entry["type"])
	assert.Equal(t, []any{"serve", "--watch", "."}, entry["args"])

	// A second run sees the entry and leaves the file alone.
	w.Reset()
	runSetup(strings.NewReader(""), w, env, setupOptions{auto: true})
	assert.Contains(t, w.String(), "already configured")
}

func TestRunSetup_Declined(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.MkdirAll(".cursor", 0o755))

	env := noAgents()
	env.stat = localStat

	runSetup(strings.NewReader("n\n"), &bytes.Buffer{}, env, setupOptions{})
	_, err := os.Stat(filepath.Join(".cursor", "mcp.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestConfigureFileAgent_MergesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "mcp.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers": {"other": {"command": "other"}}}`), 0o644))

	require.NoError(t, configureFileAgent(agent{ServersKey: "mcpServers"}, path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	servers := serversOf(t, data, "mcpServers")
	assert.Contains(t, servers, "other")
	assert.Contains(t, servers, "exportmap")
}
