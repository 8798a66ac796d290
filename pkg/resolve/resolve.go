// Package resolve maps module specifiers to absolute file paths.
//
// Resolution runs an ordered chain of resolvers (node, typescript) configured
// in settings; the first resolver to find the module wins. Found paths are
// cached per (source directory, settings, specifier) for the configured
// cache lifetime.
package resolve

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/gnana997/exportmap/pkg/ast"
	"github.com/gnana997/exportmap/pkg/settings"
)

// Result is the outcome of one resolver.
type Result struct {
	// Found is true when the resolver recognized the specifier.
	Found bool

	// Path is the absolute file path. Empty with Found for core modules,
	// which exist but have no file to analyse.
	Path string
}

// Resolver resolves a specifier relative to the file importing it.
//
// An error means the resolver itself failed (bad options, unreadable
// config); a specifier that simply does not resolve is Result{}.
type Resolver interface {
	Name() string
	Resolve(specifier, sourceFile string, cfg settings.ResolverConfig, s *settings.Settings) (Result, error)
}

// Config configures a Chain.
type Config struct {
	// CacheSize caps cached resolutions per lifetime bucket. 0 uses 10000.
	CacheSize int

	// Resolvers adds to (or replaces, by name) the built-in resolvers.
	Resolvers []Resolver

	Logger *slog.Logger
}

// Chain resolves specifiers with the resolvers named in settings.
type Chain struct {
	registry map[string]Resolver
	size     int
	logger   *slog.Logger

	mu     sync.Mutex
	caches map[time.Duration]*expirable.LRU[string, string]

	// contexts that already received a resolve error
	reported sync.Map
}

// NewChain creates a Chain with the node and typescript resolvers registered.
func NewChain(cfg Config) *Chain {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = 10000
	}

	c := &Chain{
		registry: make(map[string]Resolver),
		size:     size,
		logger:   logger,
		caches:   make(map[time.Duration]*expirable.LRU[string, string]),
	}
	c.Register(NewNodeResolver())
	c.Register(NewTypeScriptResolver(logger))
	for _, r := range cfg.Resolvers {
		c.Register(r)
	}
	return c
}

// Register adds a resolver, replacing any with the same name.
func (c *Chain) Register(r Resolver) {
	c.registry[r.Name()] = r
}

// Full runs the resolver chain for specifier imported from sourceFile.
func (c *Chain) Full(specifier, sourceFile string, s *settings.Settings) (Result, error) {
	if s == nil {
		s = &settings.Default().Settings
	}
	for _, core := range s.CoreModules {
		if core == specifier {
			return Result{Found: true}, nil
		}
	}

	cache := c.cacheFor(s.Cache.Lifetime.Duration())
	key := settings.JoinKey(filepath.Dir(sourceFile), settings.FingerprintSettings(s), specifier)
	if path, ok := cache.Get(key); ok {
		return Result{Found: true, Path: path}, nil
	}

	resolvers := s.Resolvers
	if len(resolvers) == 0 {
		resolvers = []settings.ResolverConfig{{Name: "node"}}
	}

	for _, rc := range resolvers {
		r, ok := c.registry[rc.Name]
		if !ok {
			return Result{}, fmt.Errorf("unable to load resolver %q", rc.Name)
		}
		res, err := r.Resolve(specifier, sourceFile, rc, s)
		if err != nil {
			return Result{}, fmt.Errorf("%s resolver: %w", rc.Name, err)
		}
		if !res.Found {
			c.logger.Debug("resolver did not find module",
				"resolver", rc.Name,
				"specifier", specifier,
				"source", sourceFile)
			continue
		}
		cache.Add(key, res.Path)
		return res, nil
	}

	// Misses are not cached: the file may be created during the run.
	return Result{}, nil
}

// Relative resolves specifier from sourceFile, returning "" when it does not
// resolve to a file. Resolver errors are returned.
func (c *Chain) Relative(specifier, sourceFile string, s *settings.Settings) (string, error) {
	res, err := c.Full(specifier, sourceFile, s)
	if err != nil {
		return "", err
	}
	return res.Path, nil
}

// Resolve resolves specifier from the file described by ctx.
//
// Resolver errors are reported through ctx once per context, as
// "Resolve error: <err>", and otherwise treated as not found.
func (c *Chain) Resolve(specifier string, ctx *settings.Context) string {
	path, err := c.Relative(specifier, ctx.Path, ctx.Settings)
	if err == nil {
		return path
	}

	if _, seen := c.reported.LoadOrStore(ctx, struct{}{}); !seen {
		ctx.Report(settings.Diagnostic{
			Message: "Resolve error: " + err.Error(),
			Span:    ast.Span{Start: ast.Position{Line: 1, Column: 1}, End: ast.Position{Line: 1, Column: 1}},
		})
	}
	c.logger.Debug("resolve error", "specifier", specifier, "source", ctx.Path, "error", err)
	return ""
}

// Purge drops every cached resolution, and any config a resolver loaded.
func (c *Chain) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cache := range c.caches {
		cache.Purge()
	}
	for _, r := range c.registry {
		if resetter, ok := r.(interface{ Reset() }); ok {
			resetter.Reset()
		}
	}
}

func (c *Chain) cacheFor(lifetime time.Duration) *expirable.LRU[string, string] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cache, ok := c.caches[lifetime]; ok {
		return cache
	}
	// A non-positive TTL never expires.
	cache := expirable.NewLRU[string, string](c.size, nil, max(lifetime, 0))
	c.caches[lifetime] = cache
	return cache
}
