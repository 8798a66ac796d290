package parser

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/exportmap/pkg/util"
)

// Parsers owns one lazily built parser pool per grammar.
//
// Each pool holds at most Size parsers. The default size matches the default
// workspace warm-up concurrency, so warm-up workers do not queue on parsers.
// Callers own the trees returned by Parse and must Close them. Close the
// Parsers itself once no more parses will run.
//
//	parsers := NewParsers(0, logger)
//	defer parsers.Close()
//
//	tree, err := parsers.Parse(GrammarJavaScript, []byte("export const x = 1;"))
//	if err != nil {
//	    return err
//	}
//	defer tree.Close()
type Parsers struct {
	size   int
	logger *slog.Logger

	mu    sync.Mutex
	pools [grammarCount]atomic.Pointer[grammarPool]

	parses     atomic.Int64
	errorTrees atomic.Int64
}

// Stats counts parser activity since the Parsers was created.
type Stats struct {
	// Parsers is how many tree-sitter parsers were built across all grammars.
	Parsers int64 `json:"parsers"`
	// Parses is how many Parse calls produced a tree.
	Parses int64 `json:"parses"`
	// ErrorTrees is how many of those trees contained syntax errors.
	ErrorTrees int64 `json:"error_trees"`
}

// NewParsers creates a Parsers whose pools hold at most size parsers each.
// A size of 0 uses util.GetOptimalPoolSize.
func NewParsers(size int, logger *slog.Logger) *Parsers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parsers{
		size:   util.GetOptimalPoolSizeWithOverride(size),
		logger: logger,
	}
}

// Size is the per-grammar parser limit.
func (ps *Parsers) Size() int { return ps.size }

// Parse parses source with grammar g. Trees with syntax errors are returned
// as-is; callers check RootNode().HasError().
func (ps *Parsers) Parse(g Grammar, source []byte) (*ts.Tree, error) {
	pool, err := ps.pool(g)
	if err != nil {
		return nil, err
	}

	p, err := pool.get()
	if err != nil {
		return nil, fmt.Errorf("%s parser: %w", g, err)
	}
	tree := p.Parse(source, nil)
	pool.put(p)

	if tree == nil {
		return nil, fmt.Errorf("%s parser returned no tree", g)
	}
	ps.parses.Add(1)
	if tree.RootNode().HasError() {
		ps.errorTrees.Add(1)
	}
	return tree, nil
}

func (ps *Parsers) pool(g Grammar) (*grammarPool, error) {
	if g <= GrammarNone || g >= grammarCount {
		return nil, fmt.Errorf("cannot parse with grammar %s", g)
	}
	if pool := ps.pools[g].Load(); pool != nil {
		return pool, nil
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	if pool := ps.pools[g].Load(); pool != nil {
		return pool, nil
	}
	pool := newGrammarPool(g, ps.size, ps.logger)
	ps.pools[g].Store(pool)
	ps.logger.Debug("parser pool created", "grammar", g.String(), "size", ps.size)
	return pool, nil
}

// Stats returns a snapshot of parser activity.
func (ps *Parsers) Stats() Stats {
	st := Stats{
		Parses:     ps.parses.Load(),
		ErrorTrees: ps.errorTrees.Load(),
	}
	for g := GrammarJavaScript; g < grammarCount; g++ {
		if pool := ps.pools[g].Load(); pool != nil {
			st.Parsers += pool.created.Load()
		}
	}
	return st
}

// Close frees every idle parser. Parses still running put their parser back
// into a closed pool, which frees it.
func (ps *Parsers) Close() error {
	freed := 0
	for g := GrammarJavaScript; g < grammarCount; g++ {
		if pool := ps.pools[g].Load(); pool != nil {
			freed += pool.close()
		}
	}
	ps.logger.Info("parsers closed",
		"parses", ps.parses.Load(),
		"error_trees", ps.errorTrees.Load(),
		"freed", freed)
	return nil
}
