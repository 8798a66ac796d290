package util

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/edsrzf/mmap-go"
)

// SourceCache serves module source text from memory-mapped files.
//
// An entry is keyed by path and revalidated against the file's size and
// modification time on every access, so an edited file is re-mapped on the
// next read without an explicit Invalidate.
//
// Thread-safe: multiple goroutines can call methods concurrently.
type SourceCache interface {
	// With calls fn with the current contents of path.
	//
	// The Source (and its Data slice) is only valid for the duration of fn;
	// it may be unmapped once fn returns. fn must not call back into the cache.
	With(path string, fn func(src *Source) error) error

	// Invalidate drops the cached mapping for path.
	Invalidate(path string)

	// Size returns number of currently cached files.
	Size() int

	// Stats returns current cache metrics.
	Stats() SourceCacheStats

	// Close unmaps all files and releases resources.
	Close() error
}

// SourceCacheConfig controls SourceCache behavior.
type SourceCacheConfig struct {
	// MaxFiles is the maximum number of files kept mapped. Reads beyond the
	// limit are served from a plain read and not cached. 0 means unlimited.
	MaxFiles int

	// MaxMemoryMB caps the total mapped size (virtual memory, not RSS).
	// 0 means unlimited.
	MaxMemoryMB int

	// Logger for warnings. If nil, uses slog.Default().
	Logger *slog.Logger
}

// DefaultSourceCacheConfig returns limits suitable for medium monorepos.
func DefaultSourceCacheConfig() *SourceCacheConfig {
	return &SourceCacheConfig{
		MaxFiles:    10000,
		MaxMemoryMB: 2048,
	}
}

// Source is the contents of one module file.
type Source struct {
	// Path is the absolute path to the source file.
	Path string

	// Data is the file contents. Nil for empty files.
	Data []byte

	// Size is the file size in bytes.
	Size int64

	// ModTime is the modification time the contents were read at.
	ModTime time.Time
}

// SourceCacheStats tracks cache performance metrics.
type SourceCacheStats struct {
	FilesLoaded   int64
	FilesCached   int
	CacheHits     int64
	CacheMisses   int64
	Reloads       int64
	MmapFailures  int64
	Uncached      int64
	TotalMappedMB float64
}

type sourceEntry struct {
	src  Source
	mmap mmap.MMap
	file *os.File
}

func (e *sourceEntry) release() error {
	var firstErr error
	if e.mmap != nil {
		if err := e.mmap.Unmap(); err != nil {
			firstErr = err
		}
	}
	if e.file != nil {
		if err := e.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewSourceCache creates a new SourceCache with the given config.
//
// If config is nil, uses DefaultSourceCacheConfig().
func NewSourceCache(config *SourceCacheConfig) SourceCache {
	if config == nil {
		config = DefaultSourceCacheConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &sourceCacheImpl{
		config:  config,
		logger:  logger,
		entries: make(map[string]*sourceEntry),
	}
}

// sourceCacheImpl guards entries with mu. Readers of a mapping hold mu.RLock
// for the whole callback, so unmapping (which takes mu.Lock) never races a read.
type sourceCacheImpl struct {
	config *SourceCacheConfig
	logger *slog.Logger

	entries map[string]*sourceEntry
	mu      sync.RWMutex

	stats   SourceCacheStats
	statsMu sync.Mutex
}

// With stats path, (re)loads it if needed, then runs fn under the read lock.
func (sc *sourceCacheImpl) With(path string, fn func(src *Source) error) error {
	info, err := os.Stat(path)
	if err != nil {
		sc.record(func(s *SourceCacheStats) { s.CacheMisses++ })
		return fmt.Errorf("failed to stat file %q: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%q is a directory", path)
	}

	// Fast path: fresh mapping already cached
	sc.mu.RLock()
	if entry, ok := sc.entries[path]; ok && fresh(entry, info) {
		defer sc.mu.RUnlock()
		sc.record(func(s *SourceCacheStats) { s.CacheHits++ })
		src := entry.src
		return fn(&src)
	}
	sc.mu.RUnlock()

	sc.mu.Lock()
	entry, ok := sc.entries[path]
	switch {
	case ok && fresh(entry, info):
		sc.record(func(s *SourceCacheStats) { s.CacheHits++ })
	default:
		if ok {
			sc.dropLocked(path, entry)
			sc.record(func(s *SourceCacheStats) { s.Reloads++ })
		}
		sc.record(func(s *SourceCacheStats) { s.CacheMisses++ })

		if !sc.hasRoomLocked(info.Size()) {
			sc.mu.Unlock()
			return sc.withUncached(path, info, fn)
		}

		entry, err = sc.load(path)
		if err != nil {
			sc.mu.Unlock()
			return err
		}
		sc.entries[path] = entry
		sc.record(func(s *SourceCacheStats) { s.FilesLoaded++ })
	}
	sc.mu.Unlock()

	// The entry may be replaced between Unlock and RLock; re-check under RLock.
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	current, ok := sc.entries[path]
	if !ok {
		return sc.withUncached(path, info, fn)
	}
	src := current.src
	return fn(&src)
}

func fresh(entry *sourceEntry, info os.FileInfo) bool {
	return entry.src.Size == info.Size() && entry.src.ModTime.Equal(info.ModTime())
}

// withUncached reads path without caching it.
func (sc *sourceCacheImpl) withUncached(path string, info os.FileInfo, fn func(src *Source) error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file %q: %w", path, err)
	}
	sc.record(func(s *SourceCacheStats) { s.Uncached++ })
	return fn(&Source{Path: path, Data: data, Size: int64(len(data)), ModTime: info.ModTime()})
}

// hasRoomLocked reports whether a file of size bytes fits the limits.
//
// Must be called while holding mu.Lock.
func (sc *sourceCacheImpl) hasRoomLocked(size int64) bool {
	if sc.config.MaxFiles > 0 && len(sc.entries) >= sc.config.MaxFiles {
		return false
	}
	if sc.config.MaxMemoryMB > 0 {
		total := sc.totalMappedMBLocked() + float64(size)/(1024*1024)
		if total >= float64(sc.config.MaxMemoryMB) {
			return false
		}
	}
	return true
}

// load opens and mmaps a file, with fallback to os.ReadFile if mmap fails.
func (sc *sourceCacheImpl) load(path string) (*sourceEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", path, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file %q: %w", path, err)
	}

	src := Source{Path: path, Size: stat.Size(), ModTime: stat.ModTime()}

	// Can't mmap zero bytes
	if stat.Size() == 0 {
		file.Close()
		return &sourceEntry{src: src}, nil
	}

	m, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		sc.logger.Warn("mmap failed, using fallback",
			"file", path,
			"size", stat.Size(),
			"error", err)
		file.Close()

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, fmt.Errorf("mmap failed and fallback failed for %q: mmap error: %v, read error: %w",
				path, err, readErr)
		}
		sc.record(func(s *SourceCacheStats) { s.MmapFailures++ })
		src.Data = data
		src.Size = int64(len(data))
		return &sourceEntry{src: src}, nil
	}

	src.Data = m
	return &sourceEntry{src: src, mmap: m, file: file}, nil
}

// Invalidate drops the cached mapping for path.
func (sc *sourceCacheImpl) Invalidate(path string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if entry, ok := sc.entries[path]; ok {
		sc.dropLocked(path, entry)
	}
}

func (sc *sourceCacheImpl) dropLocked(path string, entry *sourceEntry) {
	if err := entry.release(); err != nil {
		sc.logger.Warn("failed to release mapping", "path", path, "error", err)
	}
	delete(sc.entries, path)
}

// Size returns number of currently cached files.
func (sc *sourceCacheImpl) Size() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.entries)
}

// Stats returns current cache metrics.
func (sc *sourceCacheImpl) Stats() SourceCacheStats {
	sc.mu.RLock()
	cached := len(sc.entries)
	mapped := sc.totalMappedMBLocked()
	sc.mu.RUnlock()

	sc.statsMu.Lock()
	defer sc.statsMu.Unlock()

	stats := sc.stats
	stats.FilesCached = cached
	stats.TotalMappedMB = mapped
	return stats
}

// Must be called while holding mu.RLock or mu.Lock.
func (sc *sourceCacheImpl) totalMappedMBLocked() float64 {
	var total int64
	for _, entry := range sc.entries {
		total += entry.src.Size
	}
	return float64(total) / (1024 * 1024)
}

// Close unmaps all files and releases resources.
func (sc *sourceCacheImpl) Close() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var errs []error
	for path, entry := range sc.entries {
		if err := entry.release(); err != nil {
			sc.logger.Warn("failed to release mapping", "path", path, "error", err)
			errs = append(errs, fmt.Errorf("release %q: %w", path, err))
		}
	}
	sc.entries = make(map[string]*sourceEntry)

	sc.statsMu.Lock()
	sc.logger.Debug("source cache closed",
		"files_loaded", sc.stats.FilesLoaded,
		"cache_hits", sc.stats.CacheHits,
		"cache_misses", sc.stats.CacheMisses,
		"reloads", sc.stats.Reloads)
	sc.statsMu.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}

func (sc *sourceCacheImpl) record(update func(*SourceCacheStats)) {
	sc.statsMu.Lock()
	update(&sc.stats)
	sc.statsMu.Unlock()
}
