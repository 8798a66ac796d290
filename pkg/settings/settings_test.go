package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/exportmap/pkg/doc"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []string{".js"}, cfg.Settings.Extensions)
	assert.Equal(t, []string{"node_modules"}, cfg.Settings.ExternalModuleFolders)
	assert.Equal(t, []doc.Style{doc.StyleJSDoc}, cfg.Settings.DocStyles())
	assert.Equal(t, []ResolverConfig{{Name: "node"}}, cfg.Settings.Resolvers)
	assert.Equal(t, DefaultParser, cfg.ParserOptions.Parser)
	assert.Equal(t, DefaultCacheLifetime, cfg.Settings.Cache.Lifetime.Duration())
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
settings:
  extensions: [.js, .jsx]
  parsers:
    tree-sitter: [.ts, .tsx]
  ignore: ['\.css$']
  ignore_globs: ['**/vendor/**']
  docstyle: [jsdoc, tomdoc]
  resolvers:
    - name: typescript
      options:
        project: [tsconfig.json]
    - name: node
      options:
        extensions: [.js, .json]
  cache:
    lifetime: 5
parser_options:
  tsconfig_root_dir: /repo
  project: [tsconfig.build.json, tsconfig.json]
  jsx: true
`))
	require.NoError(t, err)

	s := cfg.Settings
	assert.Equal(t, []string{".js", ".jsx", ".ts", ".tsx"}, s.ValidExtensions())
	assert.Equal(t, []doc.Style{doc.StyleJSDoc, doc.StyleTomDoc}, s.DocStyles())
	assert.Equal(t, 5*time.Second, s.Cache.Lifetime.Duration())
	assert.Equal(t, []string{".js", ".json"}, s.ResolverStrings("node", "extensions"))
	assert.Equal(t, []string{"tsconfig.json"}, s.ResolverStrings("typescript", "project"))
	assert.Nil(t, s.ResolverStrings("webpack", "config"))

	assert.Equal(t, "/repo", cfg.ParserOptions.TSConfigRootDir)
	assert.Equal(t, []string{"tsconfig.build.json", "tsconfig.json"}, cfg.ParserOptions.Project)
	assert.True(t, cfg.ParserOptions.JSX)
	assert.Equal(t, DefaultParser, cfg.ParserOptions.Parser)
}

func TestParse_Lifetime(t *testing.T) {
	cases := map[string]time.Duration{
		"lifetime: 1.5":      1500 * time.Millisecond,
		"lifetime: 2m":       2 * time.Minute,
		"lifetime: ∞":        -1,
		"lifetime: Infinity": -1,
		"lifetime: -1":       -1,
	}
	for in, want := range cases {
		cfg, err := Parse([]byte("settings:\n  cache:\n    " + in + "\n"))
		require.NoError(t, err, in)
		assert.Equal(t, want, cfg.Settings.Cache.Lifetime.Duration(), in)
	}

	_, err := Parse([]byte("settings:\n  cache:\n    lifetime: soon\n"))
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("settings:\n  docstyle: [rdoc]\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("settings:\n  resolvers:\n    - options: {}\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("settings: ["))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exportmap.yaml")
	require.NoError(t, os.WriteFile(path, []byte("settings:\n  extensions: [.mjs]\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{".mjs"}, cfg.Settings.Extensions)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	cfg, err = LoadOptional(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestContext_CacheKey(t *testing.T) {
	cfg := Default()
	a := NewContext("/src/a.js", cfg, nil)
	b := a.Child("/src/b.js")

	assert.Equal(t, "/src/b.js", b.Path)
	assert.NotEqual(t, a.CacheKey, b.CacheKey)
	assert.Equal(t, b.CacheKey, a.Child("/src/b.js").CacheKey)
	assert.Contains(t, b.CacheKey, DefaultParser)
	assert.True(t, len(b.CacheKey) > len(DefaultParser+"/src/b.js"))

	other := Default()
	other.Settings.Extensions = []string{".js", ".ts"}
	c := NewContext("/src/a.js", other, nil)
	assert.NotEqual(t, a.CacheKey, c.CacheKey)

	// Switching back yields the original key again.
	assert.Equal(t, a.CacheKey, NewContext("/src/a.js", Default(), nil).CacheKey)

	assert.True(t, strings.HasSuffix(a.CacheKey, "\x00/src/a.js"))
}

func TestJoinKey(t *testing.T) {
	assert.NotEqual(t, JoinKey("ab", "c"), JoinKey("a", "bc"))
	assert.Equal(t, "a\x00b", JoinKey("a", "b"))
}

func TestContext_Report(t *testing.T) {
	var got []Diagnostic
	ctx := NewContext("/src/a.js", nil, ReporterFunc(func(d Diagnostic) { got = append(got, d) }))

	ctx.Report(Diagnostic{Message: "boom"})
	require.Len(t, got, 1)
	assert.Equal(t, "/src/a.js", got[0].Path)

	// Children do not inherit the reporter.
	ctx.Child("/src/b.js").Report(Diagnostic{Message: "silent"})
	assert.Len(t, got, 1)

	var nilCtx *Context
	nilCtx.Report(Diagnostic{Message: "ignored"})
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint(map[string]int{"a": 1, "b": 2}), Fingerprint(map[string]int{"b": 2, "a": 1}))
	assert.NotEqual(t, Fingerprint([]string{"a"}), Fingerprint([]string{"b"}))
}
