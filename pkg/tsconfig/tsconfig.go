// Package tsconfig locates and reads tsconfig.json files.
//
// Only the compiler options the export graph and the typescript resolver
// need are decoded. Files are JSON with comments and trailing commas, and
// may extend other files.
package tsconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tailscale/hujson"

	"github.com/gnana997/exportmap/pkg/settings"
)

// FileName is the file searched for when walking up directories.
const FileName = "tsconfig.json"

// maxExtendsDepth bounds extends chains (and breaks cycles between them).
const maxExtendsDepth = 16

// Config is a loaded tsconfig with its extends chain merged.
type Config struct {
	// Path is the absolute path of the file that was loaded.
	Path string

	CompilerOptions CompilerOptions
}

// CompilerOptions holds the subset of compilerOptions that affects module
// resolution and export interop.
type CompilerOptions struct {
	EsModuleInterop *bool

	// BaseURL is absolute; empty when unset anywhere in the chain.
	BaseURL string

	// Paths maps patterns to substitutions, relative to PathsBase.
	Paths map[string][]string

	// PathsBase is BaseURL when set, otherwise the directory of the config
	// that declared paths.
	PathsBase string
}

// Interop reports whether esModuleInterop is enabled.
func (c *Config) Interop() bool {
	return c != nil && c.CompilerOptions.EsModuleInterop != nil && *c.CompilerOptions.EsModuleInterop
}

type rawConfig struct {
	Extends         json.RawMessage `json:"extends"`
	CompilerOptions struct {
		EsModuleInterop *bool               `json:"esModuleInterop"`
		BaseURL         *string             `json:"baseUrl"`
		Paths           map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// Find walks up from dir looking for tsconfig.json. Returns "" if none exists.
func Find(dir string) string {
	dir = filepath.Clean(dir)
	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Load reads the config at path and merges its extends chain. A nil logger
// uses slog.Default().
func Load(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{Path: abs}
	if err := load(abs, &cfg.CompilerOptions, 0, logger); err != nil {
		return nil, err
	}
	return cfg, nil
}

// load applies path's options over whatever its parents set.
func load(path string, opts *CompilerOptions, depth int, logger *slog.Logger) error {
	if depth > maxExtendsDepth {
		return fmt.Errorf("%s: extends chain too deep", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	var raw rawConfig
	if err := json.Unmarshal(std, &raw); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for _, parent := range extendsList(raw.Extends) {
		parentPath := resolveExtends(parent, dir)
		if parentPath == "" {
			logger.Debug("tsconfig extends not found", "config", path, "extends", parent)
			continue
		}
		if err := load(parentPath, opts, depth+1, logger); err != nil {
			return err
		}
	}

	co := raw.CompilerOptions
	if co.EsModuleInterop != nil {
		v := *co.EsModuleInterop
		opts.EsModuleInterop = &v
	}
	if co.BaseURL != nil {
		opts.BaseURL = filepath.Join(dir, *co.BaseURL)
		opts.PathsBase = opts.BaseURL
	}
	if co.Paths != nil {
		opts.Paths = co.Paths
		if opts.BaseURL == "" {
			opts.PathsBase = dir
		}
	}
	return nil
}

// extendsList accepts a string or an array of strings.
func extendsList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

// resolveExtends maps an extends value to a file: relative and absolute paths
// directly, package names through node_modules directories up from dir.
func resolveExtends(spec, dir string) string {
	candidates := func(p string) []string {
		if strings.HasSuffix(p, ".json") {
			return []string{p}
		}
		return []string{p + ".json", p, filepath.Join(p, FileName)}
	}

	if filepath.IsAbs(spec) || strings.HasPrefix(spec, ".") {
		base := spec
		if !filepath.IsAbs(spec) {
			base = filepath.Join(dir, spec)
		}
		return firstFile(candidates(base))
	}

	for cur := dir; ; {
		if found := firstFile(candidates(filepath.Join(cur, "node_modules", spec))); found != "" {
			return found
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return ""
		}
		cur = parent
	}
}

func firstFile(paths []string) string {
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// Cache memoizes the config selected by a (root dir, project) pair.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Config // nil value: looked up, none found
	logger  *slog.Logger
}

// NewCache creates an empty Cache.
func NewCache(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{entries: make(map[string]*Config), logger: logger}
}

// ForOptions returns the config for the given parser options, or nil when
// none is found or it cannot be read.
func (c *Cache) ForOptions(opts *settings.ParserOptions) *Config {
	var rootDir string
	var project []string
	if opts != nil {
		rootDir = opts.TSConfigRootDir
		project = opts.Project
	}

	key := settings.Fingerprint(struct {
		RootDir string   `json:"root"`
		Project []string `json:"project"`
	}{rootDir, project})

	c.mu.Lock()
	defer c.mu.Unlock()

	if cfg, ok := c.entries[key]; ok {
		return cfg
	}
	cfg := c.lookup(rootDir, project)
	c.entries[key] = cfg
	return cfg
}

// EsModuleInterop reports whether the config selected by opts enables
// esModuleInterop. A missing or malformed config means false.
func (c *Cache) EsModuleInterop(opts *settings.ParserOptions) bool {
	return c.ForOptions(opts).Interop()
}

// Reset forgets every cached lookup.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Config)
}

func (c *Cache) lookup(rootDir string, project []string) *Config {
	if rootDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil
		}
		rootDir = wd
	}

	var path string
	if len(project) > 0 {
		for _, p := range project {
			candidate := p
			if !filepath.IsAbs(candidate) {
				candidate = filepath.Join(rootDir, candidate)
			}
			info, err := os.Stat(candidate)
			if err != nil {
				continue
			}
			if info.IsDir() {
				candidate = Find(candidate)
			}
			if candidate != "" {
				path = candidate
				break
			}
		}
	} else {
		path = Find(rootDir)
	}
	if path == "" {
		return nil
	}

	cfg, err := Load(path, c.logger)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, os.ErrNotExist) {
			level = slog.LevelDebug
		}
		c.logger.Log(context.Background(), level, "ignoring unreadable tsconfig", "path", path, "error", err)
		return nil
	}
	return cfg
}
