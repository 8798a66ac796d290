package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/exportmap/pkg/exportmap"
)

var project = map[string]string{
	"src/index.js":  "export * from './utils';\nexport { default as Button } from './button';",
	"src/utils.js":  "/** Adds two numbers. */\nexport function add(a, b) { return a + b; }\n/** @deprecated use add */\nexport const plus = add;",
	"src/button.js": "import { add } from './utils';\nexport default function Button() {}",
	"src/cjs.js":    "module.exports = {};",
	"src/app.ts":    "export interface Props { a: number }\nexport const app = 1;",
}

func writeProject(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	for name, content := range project {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

// run executes the CLI in-process. A missing config file is passed unless
// args name one.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	base := []string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "--log-level", "error"}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return out.String(), err
}

func exitCode(err error) int {
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if err != nil {
		return exitFailure
	}
	return exitOK
}

func TestExportsCommand_JSON(t *testing.T) {
	root := writeProject(t)
	out, err := run(t, "--json", "exports", filepath.Join(root, "src/index.js"))
	require.NoError(t, err)

	var report exportmap.ModuleReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.Size)

	var names []string
	for _, e := range report.Exports {
		names = append(names, e.Name)
	}
	assert.ElementsMatch(t, []string{"Button", "add", "plus"}, names)
}

func TestExportsCommand_Human(t *testing.T) {
	root := writeProject(t)
	out, err := run(t, "exports", filepath.Join(root, "src/index.js"), "./utils")
	require.NoError(t, err)

	assert.Contains(t, out, filepath.Join(root, "src/utils.js")+"  [Module]")
	assert.Contains(t, out, "Exports  (2)")
	assert.Contains(t, out, "Adds two numbers.")
	assert.Contains(t, out, "Deprecated: use add")
	assert.Contains(t, out, "plus  deprecated")
}

func TestExportsCommand_NotAModule(t *testing.T) {
	root := writeProject(t)
	_, err := run(t, "exports", filepath.Join(root, "src/cjs.js"))
	require.Error(t, err)
	assert.Equal(t, exitNotFound, exitCode(err))
	assert.Contains(t, err.Error(), "is not a module")
}

func TestHasCommand(t *testing.T) {
	root := writeProject(t)
	file := filepath.Join(root, "src/button.js")

	out, err := run(t, "has", file, "./index", "add")
	require.NoError(t, err)
	assert.Equal(t, "add: found\n  "+filepath.Join(root, "src/index.js")+"\n    "+filepath.Join(root, "src/utils.js")+"\n", out)

	out, err = run(t, "has", file, "./index", "default")
	assert.Equal(t, exitNotFound, exitCode(err))
	assert.Equal(t, "default: not exported\n", out)

	out, err = run(t, "--json", "has", file, "./utils", "plus")
	require.NoError(t, err)
	var report exportmap.DeepReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Has)
	assert.Equal(t, "found", report.Status)
}

func TestResolveCommand(t *testing.T) {
	root := writeProject(t)
	file := filepath.Join(root, "src/index.js")

	out, err := run(t, "resolve", file, "./button")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "src/button.js")+"\n", out)

	_, err = run(t, "resolve", file, "./missing")
	assert.Equal(t, exitNotFound, exitCode(err))
}

func TestImportsCommand(t *testing.T) {
	root := writeProject(t)
	out, err := run(t, "--json", "imports", filepath.Join(root, "src/button.js"))
	require.NoError(t, err)

	var imports []exportmap.ImportReport
	require.NoError(t, json.Unmarshal([]byte(out), &imports))
	require.Len(t, imports, 1)
	assert.Equal(t, filepath.Join(root, "src/utils.js"), imports[0].Path)
	assert.Equal(t, []string{"add"}, imports[0].Names)

	out, err = run(t, "imports", filepath.Join(root, "src/button.js"))
	require.NoError(t, err)
	assert.Contains(t, out, `from "./utils"  { add }`)
}

func TestWarmCommand(t *testing.T) {
	root := writeProject(t)
	out, err := run(t, "--json", "warm", "--workers", "2", root)
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, float64(4), result["files"])
	assert.Equal(t, float64(3), result["modules"])
	assert.Equal(t, float64(1), result["excluded"])
	assert.Equal(t, float64(2), result["workers"])

	out, err = run(t, "warm", root, "--exclude", "**/cjs.js")
	require.NoError(t, err)
	assert.Contains(t, out, "Warmed "+root)
	assert.Contains(t, out, "files       3")
}

func TestConfigFile(t *testing.T) {
	root := writeProject(t)
	config := filepath.Join(root, ".exportmap.yaml")
	require.NoError(t, os.WriteFile(config, []byte("settings:\n  extensions: [\".js\", \".ts\"]\n"), 0o644))

	out, err := run(t, "--config", config, "--json", "exports", filepath.Join(root, "src/app.ts"))
	require.NoError(t, err)
	var report exportmap.ModuleReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Size)

	// Without the setting, .ts files are not modules.
	_, err = run(t, "exports", filepath.Join(root, "src/app.ts"))
	assert.Equal(t, exitNotFound, exitCode(err))
}

func TestEnvOverridesExtensions(t *testing.T) {
	root := writeProject(t)
	t.Setenv("EXPORTMAP_EXT", "ts")

	_, err := run(t, "exports", filepath.Join(root, "src/app.ts"))
	require.NoError(t, err)

	_, err = run(t, "exports", filepath.Join(root, "src/utils.js"))
	assert.Equal(t, exitNotFound, exitCode(err))
}

func TestInvalidConfig(t *testing.T) {
	root := writeProject(t)
	config := filepath.Join(root, "bad.yaml")
	require.NoError(t, os.WriteFile(config, []byte("settings:\n  docstyle: [nope]\n"), 0o644))

	_, err := run(t, "--config", config, "exports", filepath.Join(root, "src/index.js"))
	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "exportmap "+version))
}

func TestNormalizeExtensions(t *testing.T) {
	assert.Equal(t, []string{".js", ".ts"}, normalizeExtensions([]string{"js", " .ts ", ""}))
}
