package exportmap

import (
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/gnana997/exportmap/pkg/ignore"
	"github.com/gnana997/exportmap/pkg/parser"
	"github.com/gnana997/exportmap/pkg/resolve"
	"github.com/gnana997/exportmap/pkg/settings"
	"github.com/gnana997/exportmap/pkg/tsconfig"
	"github.com/gnana997/exportmap/pkg/unambiguous"
	"github.com/gnana997/exportmap/pkg/util"
)

// GraphConfig holds the collaborators of a Graph. Nil fields get defaults.
type GraphConfig struct {
	Logger    *slog.Logger
	Parser    *parser.Adapter
	Resolver  *resolve.Chain
	Sources   util.SourceCache
	TSConfigs *tsconfig.Cache
}

// Graph builds ExportMaps on demand and caches them for the life of the
// process.
//
// Entries are keyed by settings.Context.CacheKey and revalidated against the
// file's modification time on every lookup. Files that are ignored or are
// not modules are cached as excluded and never revisited until invalidated.
// Graph is safe for concurrent use; concurrent lookups of the same key build
// the map once.
type Graph struct {
	logger    *slog.Logger
	parser    *parser.Adapter
	parsers   *parser.Parsers // owned, when the parser was defaulted
	resolver  *resolve.Chain
	sources   util.SourceCache
	tsconfigs *tsconfig.Cache

	mu      sync.RWMutex
	entries map[string]*entry
	flight  singleflight.Group

	hits     atomic.Int64
	misses   atomic.Int64
	stale    atomic.Int64
	excluded atomic.Int64
}

// entry is a cached lookup result. A nil map marks an excluded path.
type entry struct {
	path string
	m    *ExportMap
}

// GraphStats is a snapshot of cache activity.
type GraphStats struct {
	Entries  int
	Hits     int64
	Misses   int64
	Stale    int64
	Excluded int64
	Sources  util.SourceCacheStats
	Parser   parser.Stats
}

// NewGraph creates a Graph.
func NewGraph(cfg GraphConfig) *Graph {
	g := &Graph{
		logger:    cfg.Logger,
		parser:    cfg.Parser,
		resolver:  cfg.Resolver,
		sources:   cfg.Sources,
		tsconfigs: cfg.TSConfigs,
		entries:   make(map[string]*entry),
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.parser == nil {
		g.parsers = parser.NewParsers(0, g.logger)
		g.parser = parser.NewAdapter(g.parsers, g.logger)
	}
	if g.resolver == nil {
		g.resolver = resolve.NewChain(resolve.Config{Logger: g.logger})
	}
	if g.sources == nil {
		sc := util.DefaultSourceCacheConfig()
		sc.Logger = g.logger
		g.sources = util.NewSourceCache(sc)
	}
	if g.tsconfigs == nil {
		g.tsconfigs = tsconfig.NewCache(g.logger)
	}
	return g
}

// Resolver returns the resolver chain the graph resolves specifiers with.
func (g *Graph) Resolver() *resolve.Chain {
	return g.resolver
}

// Get resolves specifier from the file described by ctx and returns the
// target's map, or nil when it does not resolve or is not a module.
// Resolver errors are reported through ctx.
func (g *Graph) Get(specifier string, ctx *settings.Context) *ExportMap {
	path := g.resolver.Resolve(specifier, ctx)
	if path == "" {
		return nil
	}
	return g.For(ctx.Child(path))
}

// For returns the map of the module at ctx.Path, building it if the cache
// has no fresh entry. Returns nil when the file is excluded from the graph
// or cannot be read.
func (g *Graph) For(ctx *settings.Context) *ExportMap {
	if ctx == nil || ctx.Path == "" {
		return nil
	}
	key := ctx.CacheKey
	if key == "" {
		ctx = ctx.Child(ctx.Path)
		key = ctx.CacheKey
	}

	e := g.lookup(key)
	if e != nil && e.m == nil {
		g.hits.Add(1)
		return nil
	}

	info, err := os.Stat(ctx.Path)
	if err != nil {
		g.logger.Debug("stat failed", "path", ctx.Path, "error", err)
		return nil
	}
	if e != nil && e.m.Mtime.Equal(info.ModTime()) {
		g.hits.Add(1)
		return e.m
	}

	v, _, _ := g.flight.Do(key, func() (any, error) {
		// Another caller may have finished the build while we waited.
		if e := g.lookup(key); e != nil {
			if e.m == nil || e.m.Mtime.Equal(info.ModTime()) {
				return e.m, nil
			}
			g.stale.Add(1)
		}
		g.misses.Add(1)
		g.logger.Debug("cache miss", "path", ctx.Path)
		m := g.build(ctx)
		g.store(key, ctx.Path, m)
		return m, nil
	})
	return v.(*ExportMap)
}

func (g *Graph) build(ctx *settings.Context) *ExportMap {
	path := ctx.Path
	if !ignore.HasValidExtension(path, ctx.Settings) {
		g.logger.Debug("ignored path due to extension", "path", path)
		return nil
	}
	if ignore.IsIgnored(path, ctx.Settings) {
		g.logger.Debug("ignored path due to ignore settings", "path", path)
		return nil
	}

	var m *ExportMap
	err := g.sources.With(path, func(src *util.Source) error {
		if !unambiguous.Test(src.Data) {
			g.logger.Debug("ignored path due to unambiguous regex", "path", path)
			return nil
		}
		m = g.Parse(path, src.Data, ctx).stamp(src.ModTime)
		if m == nil {
			g.logger.Debug("ignored path due to ambiguous parse", "path", path)
		}
		return nil
	})
	if err != nil {
		g.logger.Warn("failed to read module", "path", path, "error", err)
		return nil
	}
	return m
}

func (g *Graph) lookup(key string) *entry {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.entries[key]
}

func (g *Graph) store(key, path string, m *ExportMap) {
	if m == nil {
		g.excluded.Add(1)
	}
	g.mu.Lock()
	g.entries[key] = &entry{path: path, m: m}
	g.mu.Unlock()
}

// Invalidate drops every cached entry for path, under any settings, along
// with its cached source. Excluded entries are dropped too, so a file that
// became a module is picked up on the next lookup.
func (g *Graph) Invalidate(path string) int {
	g.sources.Invalidate(path)

	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for key, e := range g.entries {
		if e.path == path {
			delete(g.entries, key)
			n++
		}
	}
	return n
}

// InvalidateAll empties the cache.
func (g *Graph) InvalidateAll() {
	g.mu.Lock()
	g.entries = make(map[string]*entry)
	g.mu.Unlock()
}

// ResetTSConfig forgets loaded tsconfig files and cached resolutions. Maps
// already built keep the esModuleInterop setting they were built with, so
// the map cache is emptied too.
func (g *Graph) ResetTSConfig() {
	g.tsconfigs.Reset()
	g.resolver.Purge()
	g.InvalidateAll()
}

// Stats returns a snapshot of cache activity.
func (g *Graph) Stats() GraphStats {
	g.mu.RLock()
	n := len(g.entries)
	g.mu.RUnlock()
	return GraphStats{
		Entries:  n,
		Hits:     g.hits.Load(),
		Misses:   g.misses.Load(),
		Stale:    g.stale.Load(),
		Excluded: g.excluded.Load(),
		Sources:  g.sources.Stats(),
		Parser:   g.parser.Stats(),
	}
}

// Close releases the source cache and any parser pool the graph created.
func (g *Graph) Close() error {
	err := g.sources.Close()
	if g.parsers != nil {
		err = errors.Join(err, g.parsers.Close())
	}
	return err
}
