package tsconfig

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/exportmap/pkg/settings"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.json"), "{}")
	nested := filepath.Join(root, "packages", "a", "src")
	require.NoError(t, os.MkdirAll(nested, 0755))

	assert.Equal(t, filepath.Join(root, "tsconfig.json"), Find(nested))

	writeFile(t, filepath.Join(root, "packages", "a", "tsconfig.json"), "{}")
	assert.Equal(t, filepath.Join(root, "packages", "a", "tsconfig.json"), Find(nested))
}

func TestLoad_JSONC(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "tsconfig.json")
	writeFile(t, path, `{
  // comments are allowed
  "compilerOptions": {
    "esModuleInterop": true, /* so are block comments */
    "baseUrl": "./src",
    "paths": { "@app/*": ["app/*"], },
  },
}`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.True(t, cfg.Interop())
	assert.Equal(t, filepath.Join(root, "src"), cfg.CompilerOptions.BaseURL)
	assert.Equal(t, filepath.Join(root, "src"), cfg.CompilerOptions.PathsBase)
	assert.Equal(t, map[string][]string{"@app/*": {"app/*"}}, cfg.CompilerOptions.Paths)
}

func TestLoad_Extends(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.base.json"), `{
  "compilerOptions": { "esModuleInterop": true, "paths": { "~/*": ["./*"] } }
}`)
	writeFile(t, filepath.Join(root, "node_modules", "@tsconfig", "strict", "tsconfig.json"), `{
  "compilerOptions": { "esModuleInterop": false }
}`)
	child := filepath.Join(root, "app", "tsconfig.json")
	writeFile(t, child, `{ "extends": "../tsconfig.base" }`)

	cfg, err := Load(child, nil)
	require.NoError(t, err)
	assert.True(t, cfg.Interop())
	assert.Equal(t, root, cfg.CompilerOptions.PathsBase)

	multi := filepath.Join(root, "lib", "tsconfig.json")
	writeFile(t, multi, `{ "extends": ["../tsconfig.base.json", "@tsconfig/strict/tsconfig.json"] }`)
	cfg, err = Load(multi, nil)
	require.NoError(t, err)
	assert.False(t, cfg.Interop(), "later extends entries override earlier ones")
}

func TestLoad_ExtendsCycle(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.json"), `{ "extends": "./b.json" }`)
	writeFile(t, filepath.Join(root, "b.json"), `{ "extends": "./a.json" }`)

	_, err := Load(filepath.Join(root, "a.json"), nil)
	assert.Error(t, err)
}

func TestLoad_Malformed(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "tsconfig.json")
	writeFile(t, path, `{ "compilerOptions": `)

	_, err := Load(path, nil)
	assert.Error(t, err)
}

func TestCache_EsModuleInterop(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{ "compilerOptions": { "esModuleInterop": true } }`)
	writeFile(t, filepath.Join(root, "configs", "tsconfig.off.json"), `{ "compilerOptions": { "esModuleInterop": false } }`)

	cache := NewCache(nil)

	assert.True(t, cache.EsModuleInterop(&settings.ParserOptions{TSConfigRootDir: root}))

	opts := &settings.ParserOptions{
		TSConfigRootDir: root,
		Project:         []string{"missing.json", "configs/tsconfig.off.json", "tsconfig.json"},
	}
	assert.False(t, cache.EsModuleInterop(opts))

	// Cached: changing the file has no effect until Reset.
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{ "compilerOptions": { "esModuleInterop": false } }`)
	assert.True(t, cache.EsModuleInterop(&settings.ParserOptions{TSConfigRootDir: root}))

	cache.Reset()
	assert.False(t, cache.EsModuleInterop(&settings.ParserOptions{TSConfigRootDir: root}))
}

func TestCache_MalformedIsFalse(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{ nope`)

	cache := NewCache(nil)
	opts := &settings.ParserOptions{TSConfigRootDir: root}
	assert.Nil(t, cache.ForOptions(opts))
	assert.False(t, cache.EsModuleInterop(opts))
}

func TestCache_ProjectDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pkg", "tsconfig.json"), `{ "compilerOptions": { "esModuleInterop": true } }`)

	cache := NewCache(nil)
	cfg := cache.ForOptions(&settings.ParserOptions{TSConfigRootDir: root, Project: []string{"pkg"}})
	require.NotNil(t, cfg)
	assert.Equal(t, filepath.Join(root, "pkg", "tsconfig.json"), cfg.Path)
}

func TestCache_LogsMissingExtendsToOwnLogger(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{
  "extends": "./missing.json",
  "compilerOptions": { "esModuleInterop": true }
}`)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cache := NewCache(logger)

	assert.True(t, cache.EsModuleInterop(&settings.ParserOptions{TSConfigRootDir: root}))
	assert.Contains(t, buf.String(), "tsconfig extends not found")
	assert.Contains(t, buf.String(), "extends=./missing.json")
}
