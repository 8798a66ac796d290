package util

import "runtime"

const (
	minPoolSize = 4
	maxPoolSize = 32
)

// GetOptimalPoolSize sizes parser pools and warm-up workers:
// 2× CPU cores, clamped to [4, 32].
//
// Parsing crosses into cgo, so twice the core count keeps cores busy while
// goroutines block in tree-sitter.
func GetOptimalPoolSize() int {
	return min(max(runtime.NumCPU()*2, minPoolSize), maxPoolSize)
}

// GetOptimalPoolSizeWithOverride returns override when positive, otherwise
// GetOptimalPoolSize().
func GetOptimalPoolSizeWithOverride(override int) int {
	if override > 0 {
		return override
	}
	return GetOptimalPoolSize()
}
