package workspace

import "time"

// Options configures discovery and warm-up.
type Options struct {
	// Include patterns (doublestar syntax, relative to the root).
	// Empty means every file with a valid extension under the settings.
	Include []string

	// Exclude patterns. Matching directories are not descended into.
	Exclude []string

	// Workers bounds concurrent builds. 0 = util.GetOptimalPoolSize().
	Workers int
}

// DefaultExclude lists directories never worth warming.
var DefaultExclude = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/dist/**",
	"**/build/**",
	"**/coverage/**",
	"**/.next/**",
}

// DefaultOptions returns recommended options.
func DefaultOptions() Options {
	return Options{Exclude: append([]string(nil), DefaultExclude...)}
}

// Stats summarizes a warm-up run.
type Stats struct {
	FilesDiscovered int
	Modules         int
	Excluded        int
	WithErrors      int

	// Errors holds the files whose map carries parse errors.
	Errors []FileError

	WorkerCount     int
	DiscoveryTimeMs int64
	TotalTimeMs     int64
	FilesPerSecond  float64
	Cancelled       bool
}

// FileError is a parse error found while warming.
type FileError struct {
	FilePath string
	Error    error
}

// ProgressCallback is called after each file is built.
type ProgressCallback func(done, total int, currentFile string)

// duration formats a millisecond count for logs.
func duration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
