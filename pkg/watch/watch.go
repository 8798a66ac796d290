// Package watch keeps a long-running Graph in step with the file system.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/gnana997/exportmap/pkg/parser"
	"github.com/gnana997/exportmap/pkg/tsconfig"
)

// Target is what the watcher invalidates. *exportmap.Graph implements it.
type Target interface {
	Invalidate(path string) int
	ResetTSConfig()
}

// Options configures a Watcher.
type Options struct {
	// Debounce groups rapid events on one file. Default 200ms.
	Debounce time.Duration

	// Ignore holds doublestar patterns matched against paths relative to
	// the watched root. Matching directories are not watched.
	Ignore []string

	// OnInvalidate, if set, is called after each invalidation.
	OnInvalidate func(Event)
}

// DefaultIgnore lists paths whose changes never affect the graph.
var DefaultIgnore = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/dist/**",
	"**/build/**",
	"**/.next/**",
	"**/*.swp",
	"**/*~",
}

// DefaultOptions returns recommended watch options.
func DefaultOptions() Options {
	return Options{
		Debounce: 200 * time.Millisecond,
		Ignore:   append([]string(nil), DefaultIgnore...),
	}
}

// Event describes one invalidation.
type Event struct {
	Path string
	Op   fsnotify.Op

	// Config is set when the change was to a tsconfig or package.json, which
	// resets config and resolution caches instead of one file.
	Config bool
}

// Stats is a snapshot of watcher activity.
type Stats struct {
	WatchedDirs          int
	PendingInvalidations int
	Invalidations        int64
	ConfigResets         int64
	IsRunning            bool
}

// Watcher invalidates graph entries as files change under a root.
//
// Usage:
//
//	w, err := watch.New(graph, watch.DefaultOptions(), logger)
//	if err != nil {
//	    return err
//	}
//	if err := w.Start(root); err != nil {
//	    return err
//	}
//	defer w.Stop()
type Watcher struct {
	watcher *fsnotify.Watcher
	target  Target
	options Options
	logger  *slog.Logger
	root    string

	timers  map[string]*time.Timer
	timerMu sync.Mutex

	dirs atomic.Int64

	invalidations atomic.Int64
	configResets  atomic.Int64

	stopChan chan struct{}
	done     chan struct{}
	started  bool
	stopped  bool
	mu       sync.Mutex
}

// New creates a Watcher. Call Start to begin watching.
func New(target Target, options Options, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if options.Debounce <= 0 {
		options.Debounce = 200 * time.Millisecond
	}
	for _, pattern := range options.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid ignore pattern: %s", pattern)
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		watcher:  fw,
		target:   target,
		options:  options,
		logger:   logger,
		timers:   make(map[string]*time.Timer),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start watches root and every directory below it that is not ignored.
// The event loop runs in a background goroutine until Stop.
func (w *Watcher) Start(root string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return errors.New("watcher already stopped")
	}
	if w.started {
		return errors.New("watcher already started")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	w.root = abs
	if err := w.addTree(abs); err != nil {
		return fmt.Errorf("failed to setup watches: %w", err)
	}
	w.started = true

	w.logger.Info("file watcher started", "root", abs, "dirs", w.dirs.Load())
	go w.eventLoop()
	return nil
}

// Stop stops watching. Pending invalidations are dropped. Safe to call more
// than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopChan)

	w.timerMu.Lock()
	for _, timer := range w.timers {
		timer.Stop()
	}
	w.timers = make(map[string]*time.Timer)
	w.timerMu.Unlock()

	err := w.watcher.Close()
	if w.started {
		<-w.done
	}
	w.logger.Info("file watcher stopped", "invalidations", w.invalidations.Load())
	return err
}

// Stats returns a snapshot of watcher activity.
func (w *Watcher) Stats() Stats {
	w.timerMu.Lock()
	pending := len(w.timers)
	w.timerMu.Unlock()

	w.mu.Lock()
	running := w.started && !w.stopped
	w.mu.Unlock()

	return Stats{
		WatchedDirs:          int(w.dirs.Load()),
		PendingInvalidations: pending,
		Invalidations:        w.invalidations.Load(),
		ConfigResets:         w.configResets.Load(),
		IsRunning:            running,
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.shouldIgnore(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
			return nil
		}
		w.dirs.Add(1)
		return nil
	})
}

func (w *Watcher) eventLoop() {
	defer close(w.done)
	for {
		select {
		case <-w.stopChan:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	if w.shouldIgnore(path) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			// New directories (and anything already inside them) are watched.
			if err := w.addTree(path); err != nil {
				w.logger.Warn("failed to watch new directory", "path", path, "error", err)
			}
			return
		}
	}

	config := isConfigFile(path)
	if !config && !parser.Supported(path) {
		return
	}
	w.logger.Debug("file event", "op", event.Op.String(), "file", path)

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.invalidate(Event{Path: path, Op: event.Op, Config: config})
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		w.debounce(Event{Path: path, Op: event.Op, Config: config})
	}
}

// debounce schedules an invalidation; further events on the same path
// within the window restart the timer.
func (w *Watcher) debounce(ev Event) {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if timer, exists := w.timers[ev.Path]; exists {
		timer.Stop()
	}
	w.timers[ev.Path] = time.AfterFunc(w.options.Debounce, func() {
		w.timerMu.Lock()
		delete(w.timers, ev.Path)
		w.timerMu.Unlock()

		w.invalidate(ev)
	})
}

func (w *Watcher) invalidate(ev Event) {
	if ev.Config {
		w.logger.Debug("config changed, resetting caches", "file", ev.Path)
		w.target.ResetTSConfig()
		w.configResets.Add(1)
	} else {
		n := w.target.Invalidate(ev.Path)
		w.logger.Debug("invalidated", "file", ev.Path, "entries", n)
		w.invalidations.Add(1)
	}
	if w.options.OnInvalidate != nil {
		w.options.OnInvalidate(ev)
	}
}

func (w *Watcher) shouldIgnore(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.options.Ignore {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func isConfigFile(path string) bool {
	base := filepath.Base(path)
	if base == "package.json" || base == tsconfig.FileName {
		return true
	}
	ok, _ := filepath.Match("tsconfig.*.json", base)
	return ok
}
