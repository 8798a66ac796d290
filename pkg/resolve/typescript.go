package resolve

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gnana997/exportmap/pkg/settings"
	"github.com/gnana997/exportmap/pkg/tsconfig"
)

// DefaultTypeScriptExtensions are probed by the typescript resolver.
var DefaultTypeScriptExtensions = []string{".ts", ".tsx", ".d.ts", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs", ".json"}

// TypeScriptResolver resolves through tsconfig compilerOptions.paths and
// baseUrl, then falls back to node resolution with TypeScript extensions.
// Imports written with a .js extension also match the .ts source.
//
// Options: "project" (tsconfig paths; default is the nearest tsconfig.json
// above the importing file), "extensions" (list).
type TypeScriptResolver struct {
	logger *slog.Logger

	mu      sync.Mutex
	configs map[string]*tsconfig.Config
	nearest map[string]string // dir -> tsconfig path ("" if none)
}

// NewTypeScriptResolver creates the typescript resolver.
func NewTypeScriptResolver(logger *slog.Logger) *TypeScriptResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &TypeScriptResolver{
		logger:  logger,
		configs: make(map[string]*tsconfig.Config),
		nearest: make(map[string]string),
	}
}

func (*TypeScriptResolver) Name() string { return "typescript" }

func (r *TypeScriptResolver) Resolve(specifier, sourceFile string, cfg settings.ResolverConfig, s *settings.Settings) (Result, error) {
	if IsCoreModule(specifier) {
		return Result{Found: true}, nil
	}

	opts := nodeOptions{
		extensions: optionStrings(cfg, "extensions"),
		moduleDirs: s.ExternalModuleFolders,
	}
	if len(opts.extensions) == 0 {
		opts.extensions = DefaultTypeScriptExtensions
	}
	if len(opts.moduleDirs) == 0 {
		opts.moduleDirs = []string{"node_modules"}
	}

	dir := filepath.Dir(sourceFile)
	configs, err := r.configsFor(optionStrings(cfg, "project"), dir)
	if err != nil {
		return Result{}, err
	}

	if !isPathSpecifier(specifier) {
		for _, tc := range configs {
			if res := opts.viaPaths(specifier, tc.CompilerOptions); res.Found {
				return res, nil
			}
			if base := tc.CompilerOptions.BaseURL; base != "" {
				if path := opts.loadAsFileOrDirectory(filepath.Join(base, specifier), false); path != "" {
					return found(path), nil
				}
			}
		}
	}

	return opts.resolveTS(specifier, dir), nil
}

// resolveTS tries the TypeScript source for a .js-style specifier first.
func (o nodeOptions) resolveTS(specifier, dir string) Result {
	if isPathSpecifier(specifier) {
		if stripped, ok := stripJSExtension(specifier); ok {
			if res := o.resolve(stripped, dir); res.Found {
				return res
			}
		}
	}
	return o.resolve(specifier, dir)
}

// viaPaths applies compilerOptions.paths. The pattern with the longest
// prefix before its wildcard wins; exact patterns beat wildcards.
func (o nodeOptions) viaPaths(specifier string, co tsconfig.CompilerOptions) Result {
	if len(co.Paths) == 0 {
		return Result{}
	}

	bestPattern, bestCapture, bestLen := "", "", -1
	for pattern := range co.Paths {
		prefix, suffix, wildcard := strings.Cut(pattern, "*")
		switch {
		case !wildcard && pattern == specifier:
			bestPattern, bestCapture, bestLen = pattern, "", len(pattern)+1
		case wildcard && len(prefix) > bestLen &&
			strings.HasPrefix(specifier, prefix) && strings.HasSuffix(specifier, suffix) &&
			len(specifier) >= len(prefix)+len(suffix):
			bestPattern = pattern
			bestCapture = specifier[len(prefix) : len(specifier)-len(suffix)]
			bestLen = len(prefix)
		}
	}
	if bestLen < 0 {
		return Result{}
	}

	for _, subst := range co.Paths[bestPattern] {
		target := filepath.Join(co.PathsBase, strings.Replace(subst, "*", bestCapture, 1))
		if stripped, ok := stripJSExtension(target); ok {
			if path := o.loadAsFileOrDirectory(stripped, false); path != "" {
				return found(path)
			}
		}
		if path := o.loadAsFileOrDirectory(target, false); path != "" {
			return found(path)
		}
	}
	return Result{}
}

// configsFor loads the configured projects, or the nearest tsconfig.json.
func (r *TypeScriptResolver) configsFor(projects []string, dir string) ([]*tsconfig.Config, error) {
	if len(projects) == 0 {
		path := r.nearestConfig(dir)
		if path == "" {
			return nil, nil
		}
		tc, err := r.load(path)
		if err != nil {
			r.logger.Warn("ignoring unreadable tsconfig", "path", path, "error", err)
			return nil, nil
		}
		return []*tsconfig.Config{tc}, nil
	}

	configs := make([]*tsconfig.Config, 0, len(projects))
	for _, project := range projects {
		path := project
		if isDir(path) {
			path = filepath.Join(path, tsconfig.FileName)
		}
		tc, err := r.load(path)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", project, err)
		}
		configs = append(configs, tc)
	}
	return configs, nil
}

func (r *TypeScriptResolver) nearestConfig(dir string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if path, ok := r.nearest[dir]; ok {
		return path
	}
	path := tsconfig.Find(dir)
	r.nearest[dir] = path
	return path
}

func (r *TypeScriptResolver) load(path string) (*tsconfig.Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if tc, ok := r.configs[abs]; ok {
		return tc, nil
	}
	tc, err := tsconfig.Load(abs, r.logger)
	if err != nil {
		return nil, err
	}
	r.configs[abs] = tc
	return tc, nil
}

// Reset forgets loaded tsconfig files.
func (r *TypeScriptResolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = make(map[string]*tsconfig.Config)
	r.nearest = make(map[string]string)
}

func stripJSExtension(path string) (string, bool) {
	for _, ext := range []string{".js", ".jsx", ".mjs", ".cjs"} {
		if base, ok := strings.CutSuffix(path, ext); ok {
			return base, true
		}
	}
	return "", false
}
