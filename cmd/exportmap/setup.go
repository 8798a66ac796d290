package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

// serverName is the key exportmap is registered under in agent configs.
const serverName = "exportmap"

// agent describes how to find one MCP client and register the server with it.
type agent struct {
	ID          string
	DisplayName string

	// Binary is set for agents registered through their own CLI
	// ("<binary> mcp add"). Others are registered by editing their config file.
	Binary string

	// DirMarkers are project directories whose presence means the agent is
	// in use. Without markers, the config file's parent directory is checked.
	DirMarkers []string

	// ConfigFile is a project-relative config; UserConfig locates a
	// per-user one.
	ConfigFile string
	UserConfig func() string

	// ServersKey is the JSON object holding server entries.
	ServersKey  string
	ExtraFields map[string]string
}

func (a agent) usesCLI() bool { return a.Binary != "" }

func (a agent) configPath() string {
	if a.UserConfig != nil {
		return a.UserConfig()
	}
	return a.ConfigFile
}

// detected is an agent found on this machine.
type detected struct {
	agent
	configured bool
	file       string
}

// setupEnv holds the system lookups detection depends on.
type setupEnv struct {
	lookPath func(string) (string, error)
	stat     func(string) (os.FileInfo, error)
}

var defaultSetupEnv = setupEnv{lookPath: exec.LookPath, stat: os.Stat}

type setupOptions struct {
	auto bool

	// serveArgs are appended after "serve" in the registered command.
	serveArgs []string
}

var agents = []agent{
	{ID: "claude_code", DisplayName: "Claude Code", Binary: "claude"},
	{ID: "openai_codex", DisplayName: "OpenAI Codex", Binary: "codex"},
	{
		ID: "vscode_copilot", DisplayName: "VS Code Copilot",
		DirMarkers:  []string{".vscode"},
		ConfigFile:  filepath.Join(".vscode", "mcp.json"),
		ServersKey:  "servers",
		ExtraFields: map[string]string{"type": "stdio"},
	},
	{
		ID: "cursor", DisplayName: "Cursor",
		DirMarkers: []string{".cursor"},
		ConfigFile: filepath.Join(".cursor", "mcp.json"),
		ServersKey: "mcpServers",
	},
	{
		ID: "claude_desktop", DisplayName: "Claude Desktop",
		UserConfig: desktopConfigPath,
		ServersKey: "mcpServers",
	},
}

func desktopConfigPath() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Claude", "claude_desktop_config.json")
	default:
		return filepath.Join(home, ".config", "Claude", "claude_desktop_config.json")
	}
}

func newSetupCmd() *cobra.Command {
	var opts setupOptions
	cmd := &cobra.Command{
		Use:   "setup [-- serve flags...]",
		Short: "Register the MCP server with installed coding agents",
		Long: `Detect coding agents on this machine and register "exportmap serve" as an
MCP server with each. Arguments after -- are passed to serve, for example:

  exportmap setup -- --watch . --config .exportmap.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.serveArgs = args
			runSetup(cmd.InOrStdin(), cmd.OutOrStdout(), defaultSetupEnv, opts)
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.auto, "auto", false, "configure every detected agent without prompting")
	return cmd
}

func detectAgents(env setupEnv) []detected {
	var found []detected
	for _, a := range agents {
		if a.usesCLI() {
			if _, err := env.lookPath(a.Binary); err == nil {
				found = append(found, detected{agent: a, configured: hasServer(".mcp.json", "mcpServers")})
			}
			continue
		}

		present := false
		for _, marker := range a.DirMarkers {
			if _, err := env.stat(marker); err == nil {
				present = true
				break
			}
		}
		path := a.configPath()
		if !present && len(a.DirMarkers) == 0 {
			_, err := env.stat(filepath.Dir(path))
			present = err == nil
		}
		if present {
			found = append(found, detected{agent: a, file: path, configured: hasServer(path, a.ServersKey)})
		}
	}
	return found
}

// hasServer reports whether the JSON config at path already registers us.
func hasServer(path, serversKey string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var config map[string]any
	if err := json.Unmarshal(data, &config); err != nil {
		return false
	}
	servers, _ := config[serversKey].(map[string]any)
	_, ok := servers[serverName]
	return ok
}

func serverEntry(serveArgs []string, extra map[string]string) map[string]any {
	args := []any{"serve"}
	for _, a := range serveArgs {
		args = append(args, a)
	}
	entry := map[string]any{
		"command": serverName,
		"args":    args,
	}
	for k, v := range extra {
		entry[k] = v
	}
	return entry
}

// mergeServerEntry adds our entry under serversKey of the existing JSON
// (which may be empty). Returns nil, nil when an entry is already present.
func mergeServerEntry(existing []byte, serversKey string, serveArgs []string, extra map[string]string) ([]byte, error) {
	config := make(map[string]any)
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &config); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	}

	servers, ok := config[serversKey].(map[string]any)
	if !ok {
		servers = make(map[string]any)
	}
	if _, exists := servers[serverName]; exists {
		return nil, nil
	}
	servers[serverName] = serverEntry(serveArgs, extra)
	config[serversKey] = servers

	out, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func configureCLIAgent(a agent, scope string, serveArgs []string, w io.Writer) error {
	args := []string{"mcp", "add"}
	if scope != "" {
		args = append(args, "--scope", scope)
	}
	args = append(args, serverName, "--", serverName, "serve")
	args = append(args, serveArgs...)
	cmd := exec.Command(a.Binary, args...)
	cmd.Stdout = w
	cmd.Stderr = w
	return cmd.Run()
}

func configureFileAgent(a agent, path string, serveArgs []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	merged, err := mergeServerEntry(existing, a.ServersKey, serveArgs, a.ExtraFields)
	if err != nil || merged == nil {
		return err
	}
	return os.WriteFile(path, merged, 0o644)
}

// promptYesNo asks question and reads Y/n; empty input and EOF mean yes.
func promptYesNo(r *bufio.Scanner, w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s ", question)
	if !r.Scan() {
		return true
	}
	answer := strings.ToLower(strings.TrimSpace(r.Text()))
	return answer == "" || answer == "y" || answer == "yes"
}

// promptScope returns "project", "user", or "" to skip.
func promptScope(r *bufio.Scanner, w io.Writer, name string) string {
	fmt.Fprintf(w, "\n%s: add the %s MCP server?\n", name, serverName)
	fmt.Fprintln(w, "  [1] Project scope (shared with team)")
	fmt.Fprintln(w, "  [2] User scope (personal, global)")
	fmt.Fprintln(w, "  [3] Skip")
	fmt.Fprint(w, "  > ")
	if !r.Scan() {
		return "project"
	}
	switch strings.TrimSpace(r.Text()) {
	case "1", "":
		return "project"
	case "2":
		return "user"
	default:
		return ""
	}
}

func runSetup(in io.Reader, w io.Writer, env setupEnv, opts setupOptions) {
	found := detectAgents(env)
	if len(found) == 0 {
		fmt.Fprintln(w, "No supported agents detected.")
		return
	}

	fmt.Fprintln(w, "Detected agents:")
	for _, d := range found {
		if d.configured {
			fmt.Fprintf(w, "  * %s (already configured)\n", d.DisplayName)
		} else {
			fmt.Fprintf(w, "  * %s\n", d.DisplayName)
		}
	}
	fmt.Fprintln(w)

	r := bufio.NewScanner(in)
	if !opts.auto && !promptYesNo(r, w, "Configure agents? [Y/n]") {
		return
	}
	for _, d := range found {
		if d.configured {
			fmt.Fprintf(w, "\n%s: already configured, skipping\n", d.DisplayName)
			continue
		}
		configureAgent(r, w, d, opts)
	}
}

func configureAgent(r *bufio.Scanner, w io.Writer, d detected, opts setupOptions) {
	if d.usesCLI() {
		scope := "project"
		if !opts.auto {
			if scope = promptScope(r, w, d.DisplayName); scope == "" {
				fmt.Fprintln(w, "  skipped")
				return
			}
		}
		if err := configureCLIAgent(d.agent, scope, opts.serveArgs, w); err != nil {
			fmt.Fprintf(w, "  ! %s: failed: %v\n", d.DisplayName, err)
			return
		}
		fmt.Fprintf(w, "  + %s configured (scope: %s)\n", d.DisplayName, scope)
		return
	}

	if !opts.auto && !promptYesNo(r, w, fmt.Sprintf("\n%s: add to %s? [Y/n]", d.DisplayName, d.file)) {
		fmt.Fprintln(w, "  skipped")
		return
	}
	if err := configureFileAgent(d.agent, d.file, opts.serveArgs); err != nil {
		fmt.Fprintf(w, "  ! %s: failed: %v\n", d.DisplayName, err)
		return
	}
	fmt.Fprintf(w, "  + %s configured (%s)\n", d.DisplayName, d.file)
}
