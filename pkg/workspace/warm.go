// Package workspace discovers the modules under a directory and builds
// their export maps ahead of time.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gnana997/exportmap/pkg/exportmap"
	"github.com/gnana997/exportmap/pkg/settings"
	"github.com/gnana997/exportmap/pkg/util"
)

// Warmer fills a Graph's cache for a whole workspace.
//
// Usage:
//
//	warmer := workspace.NewWarmer(graph, cfg, logger)
//	stats, err := warmer.Warm(ctx, "/path/to/repo", workspace.DefaultOptions(), nil)
type Warmer struct {
	graph  *exportmap.Graph
	config *settings.Config
	logger *slog.Logger
}

// NewWarmer creates a Warmer that builds maps under cfg.
func NewWarmer(graph *exportmap.Graph, cfg *settings.Config, logger *slog.Logger) *Warmer {
	if cfg == nil {
		cfg = settings.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Warmer{graph: graph, config: cfg, logger: logger}
}

// Warm discovers files under root and builds their maps concurrently.
//
// Cancelling ctx stops scheduling new files; the stats describe the files
// built so far and Cancelled is set.
func (w *Warmer) Warm(ctx context.Context, root string, opts Options, progress ProgressCallback) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}

	w.logger.Info("starting warm-up", "root", root)

	files, err := Discover(root, &w.config.Settings, opts, w.logger)
	if err != nil {
		return nil, fmt.Errorf("file discovery failed: %w", err)
	}
	stats.FilesDiscovered = len(files)
	stats.DiscoveryTimeMs = time.Since(start).Milliseconds()
	w.logger.Info("file discovery complete", "files_found", len(files), "duration", duration(stats.DiscoveryTimeMs))

	stats.WorkerCount = util.GetOptimalPoolSizeWithOverride(opts.Workers)

	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stats.WorkerCount)
	for _, file := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m := w.graph.For(settings.NewContext(file, w.config, nil))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case m == nil:
				stats.Excluded++
			case len(m.Errors) > 0:
				stats.WithErrors++
				stats.Errors = append(stats.Errors, FileError{FilePath: file, Error: m.Errors[0]})
			default:
				stats.Modules++
			}
			done++
			if progress != nil {
				progress(done, len(files), file)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		stats.Cancelled = true
		w.logger.Warn("warm-up cancelled", "done", done, "total", len(files), "error", err)
	}
	if ctx.Err() != nil {
		stats.Cancelled = true
	}

	stats.TotalTimeMs = time.Since(start).Milliseconds()
	if stats.TotalTimeMs > 0 {
		stats.FilesPerSecond = float64(done) / (float64(stats.TotalTimeMs) / 1000.0)
	}

	w.logger.Info("warm-up complete",
		"modules", stats.Modules,
		"excluded", stats.Excluded,
		"with_errors", stats.WithErrors,
		"duration", duration(stats.TotalTimeMs),
		"files_per_second", fmt.Sprintf("%.1f", stats.FilesPerSecond))

	return stats, nil
}
