package resolve

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/exportmap/pkg/settings"
	"github.com/gnana997/exportmap/pkg/util"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// realTemp returns a temp dir with symlinks resolved (macOS /var -> /private/var).
func realTemp(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func newChain() *Chain {
	return NewChain(Config{Logger: util.NopLogger()})
}

func TestNodeResolver_Relative(t *testing.T) {
	root := realTemp(t)
	src := writeFile(t, filepath.Join(root, "src", "index.js"), "")
	a := writeFile(t, filepath.Join(root, "src", "a.js"), "")
	b := writeFile(t, filepath.Join(root, "src", "b.mjs"), "")
	dirIndex := writeFile(t, filepath.Join(root, "src", "lib", "index.js"), "")
	parent := writeFile(t, filepath.Join(root, "util.json"), "{}")

	s := &settings.Default().Settings
	chain := newChain()

	cases := map[string]string{
		"./a":        a,
		"./a.js":     a,
		"./b":        b,
		"./lib":      dirIndex,
		"./lib/":     dirIndex,
		"../util":    parent,
		a:            a,
		"./missing":  "",
		"./lib/nope": "",
	}
	for spec, want := range cases {
		got, err := chain.Relative(spec, src, s)
		require.NoError(t, err, spec)
		assert.Equal(t, want, got, spec)
	}
}

func TestNodeResolver_Packages(t *testing.T) {
	root := realTemp(t)
	src := writeFile(t, filepath.Join(root, "app", "src", "index.js"), "")

	modMain := writeFile(t, filepath.Join(root, "node_modules", "esm", "dist", "esm.js"), "")
	writeFile(t, filepath.Join(root, "node_modules", "esm", "package.json"), `{"main": "./dist/cjs.js", "module": "./dist/esm.js"}`)

	cjsMain := writeFile(t, filepath.Join(root, "node_modules", "cjs", "lib", "index.js"), "")
	writeFile(t, filepath.Join(root, "node_modules", "cjs", "package.json"), `{"main": "lib"}`)

	scoped := writeFile(t, filepath.Join(root, "app", "node_modules", "@scope", "pkg", "index.js"), "")
	deep := writeFile(t, filepath.Join(root, "node_modules", "cjs", "utils", "deep.js"), "")

	s := &settings.Default().Settings
	chain := newChain()

	cases := map[string]string{
		"esm":            modMain,
		"cjs":            cjsMain,
		"@scope/pkg":     scoped,
		"cjs/utils/deep": deep,
		"not-installed":  "",
	}
	for spec, want := range cases {
		got, err := chain.Relative(spec, src, s)
		require.NoError(t, err, spec)
		assert.Equal(t, want, got, spec)
	}
}

func TestNodeResolver_CoreModules(t *testing.T) {
	chain := newChain()
	s := &settings.Default().Settings

	for _, spec := range []string{"fs", "node:fs", "path/posix", "node:test"} {
		res, err := chain.Full(spec, "/src/a.js", s)
		require.NoError(t, err)
		assert.True(t, res.Found, spec)
		assert.Empty(t, res.Path, spec)
	}

	s.CoreModules = []string{"electron"}
	res, err := chain.Full("electron", "/src/a.js", s)
	require.NoError(t, err)
	assert.Equal(t, Result{Found: true}, res)
}

func TestNodeResolver_Options(t *testing.T) {
	root := realTemp(t)
	src := writeFile(t, filepath.Join(root, "index.js"), "")
	jsx := writeFile(t, filepath.Join(root, "view.jsx"), "")
	vendored := writeFile(t, filepath.Join(root, "vendor", "lib", "index.js"), "")

	s := &settings.Default().Settings
	s.Resolvers = []settings.ResolverConfig{{
		Name: "node",
		Options: map[string]any{
			"extensions":      []any{".js", ".jsx"},
			"moduleDirectory": []any{"vendor"},
		},
	}}
	chain := newChain()

	got, err := chain.Relative("./view", src, s)
	require.NoError(t, err)
	assert.Equal(t, jsx, got)

	got, err = chain.Relative("lib", src, s)
	require.NoError(t, err)
	assert.Equal(t, vendored, got)
}

func TestTypeScriptResolver(t *testing.T) {
	root := realTemp(t)
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{
  "compilerOptions": {
    "baseUrl": ".",
    "paths": {
      "@app/*": ["src/app/*"],
      "@config": ["src/config/index.ts"]
    }
  }
}`)
	src := writeFile(t, filepath.Join(root, "src", "main.ts"), "")
	button := writeFile(t, filepath.Join(root, "src", "app", "button.tsx"), "")
	config := writeFile(t, filepath.Join(root, "src", "config", "index.ts"), "")
	util := writeFile(t, filepath.Join(root, "src", "util.ts"), "")
	shared := writeFile(t, filepath.Join(root, "shared", "types.d.ts"), "")

	s := &settings.Default().Settings
	s.Resolvers = []settings.ResolverConfig{{Name: "typescript"}, {Name: "node"}}
	chain := newChain()

	cases := map[string]string{
		"@app/button":  button,
		"@config":      config,
		"./util":       util,
		"./util.js":    util,
		"shared/types": shared,
		"@app/missing": "",
	}
	for spec, want := range cases {
		got, err := chain.Relative(spec, src, s)
		require.NoError(t, err, spec)
		assert.Equal(t, want, got, spec)
	}
}

func TestTypeScriptResolver_MissingProject(t *testing.T) {
	s := &settings.Default().Settings
	s.Resolvers = []settings.ResolverConfig{{
		Name:    "typescript",
		Options: map[string]any{"project": "/definitely/not/here/tsconfig.json"},
	}}

	_, err := newChain().Relative("./a", "/src/a.ts", s)
	assert.Error(t, err)
}

func TestChain_FirstResolverWins(t *testing.T) {
	root := realTemp(t)
	src := writeFile(t, filepath.Join(root, "index.js"), "")
	writeFile(t, filepath.Join(root, "a.js"), "")

	chain := newChain()
	chain.Register(stubResolver{name: "fixed", result: Result{Found: true, Path: "/fixed/a.js"}})

	s := &settings.Default().Settings
	s.Resolvers = []settings.ResolverConfig{{Name: "fixed"}, {Name: "node"}}
	got, err := chain.Relative("./a", src, s)
	require.NoError(t, err)
	assert.Equal(t, "/fixed/a.js", got)

	s2 := &settings.Default().Settings
	s2.Resolvers = []settings.ResolverConfig{{Name: "node"}, {Name: "fixed"}}
	got, err = chain.Relative("./a", src, s2)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a.js"), got)
}

func TestChain_CachesFoundPaths(t *testing.T) {
	root := realTemp(t)
	src := writeFile(t, filepath.Join(root, "index.js"), "")
	a := writeFile(t, filepath.Join(root, "a.js"), "")

	stub := &countingResolver{path: a}
	chain := newChain()
	chain.Register(stub)

	s := &settings.Default().Settings
	s.Resolvers = []settings.ResolverConfig{{Name: "counting"}}

	for i := 0; i < 3; i++ {
		got, err := chain.Relative("./a", src, s)
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	assert.Equal(t, 1, stub.calls)

	chain.Purge()
	_, _ = chain.Relative("./a", src, s)
	assert.Equal(t, 2, stub.calls)

	// misses are not cached
	stub.path = ""
	chain.Purge()
	_, _ = chain.Relative("./b", src, s)
	_, _ = chain.Relative("./b", src, s)
	assert.Equal(t, 4, stub.calls)
}

func TestChain_CacheLifetime(t *testing.T) {
	stub := &countingResolver{path: "/x/a.js"}
	chain := newChain()
	chain.Register(stub)

	s := &settings.Default().Settings
	s.Resolvers = []settings.ResolverConfig{{Name: "counting"}}
	s.Cache.Lifetime = settings.Lifetime(20 * time.Millisecond)

	_, _ = chain.Relative("./a", "/x/index.js", s)
	_, _ = chain.Relative("./a", "/x/index.js", s)
	require.Equal(t, 1, stub.calls)

	time.Sleep(60 * time.Millisecond)
	_, _ = chain.Relative("./a", "/x/index.js", s)
	assert.Equal(t, 2, stub.calls)
}

func TestChain_ResolveReportsOnce(t *testing.T) {
	var reports []settings.Diagnostic
	cfg := settings.Default()
	cfg.Settings.Resolvers = []settings.ResolverConfig{{Name: "webpack"}}
	ctx := settings.NewContext("/src/a.js", cfg, settings.ReporterFunc(func(d settings.Diagnostic) {
		reports = append(reports, d)
	}))

	chain := newChain()
	assert.Equal(t, "", chain.Resolve("./b", ctx))
	assert.Equal(t, "", chain.Resolve("./c", ctx))

	require.Len(t, reports, 1)
	assert.Equal(t, `Resolve error: unable to load resolver "webpack"`, reports[0].Message)
	assert.Equal(t, "/src/a.js", reports[0].Path)
	assert.Equal(t, 1, reports[0].Span.Start.Line)
}

func TestChain_ResolverError(t *testing.T) {
	chain := newChain()
	chain.Register(stubResolver{name: "broken", err: errors.New("bad options")})

	s := &settings.Default().Settings
	s.Resolvers = []settings.ResolverConfig{{Name: "broken"}}
	_, err := chain.Relative("./a", "/src/a.js", s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken resolver: bad options")
}

type stubResolver struct {
	name   string
	result Result
	err    error
}

func (r stubResolver) Name() string { return r.name }
func (r stubResolver) Resolve(string, string, settings.ResolverConfig, *settings.Settings) (Result, error) {
	return r.result, r.err
}

type countingResolver struct {
	path  string
	calls int
}

func (*countingResolver) Name() string { return "counting" }
func (r *countingResolver) Resolve(string, string, settings.ResolverConfig, *settings.Settings) (Result, error) {
	r.calls++
	if r.path == "" {
		return Result{}, nil
	}
	return Result{Found: true, Path: r.path}, nil
}
