package parser

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	ts "github.com/tree-sitter/go-tree-sitter"
)

var errPoolClosed = errors.New("parser pool closed")

// grammarPool hands out parsers for a single grammar.
//
// At most limit parsers ever exist. Idle parsers wait in a buffered channel;
// when all of them are checked out, get blocks until one is put back.
type grammarPool struct {
	grammar Grammar
	limit   int64
	idle    chan *ts.Parser
	live    atomic.Int64
	created atomic.Int64
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

func newGrammarPool(g Grammar, limit int, logger *slog.Logger) *grammarPool {
	return &grammarPool{
		grammar: g,
		limit:   int64(limit),
		idle:    make(chan *ts.Parser, limit),
		logger:  logger,
	}
}

// get checks out a parser, building a new one while under the limit.
func (p *grammarPool) get() (*ts.Parser, error) {
	select {
	case ps, ok := <-p.idle:
		if !ok {
			return nil, errPoolClosed
		}
		return ps, nil
	default:
	}

	if n := p.live.Add(1); n <= p.limit {
		ps, err := p.grammar.newParser()
		if err != nil {
			p.live.Add(-1)
			return nil, err
		}
		p.created.Add(1)
		p.logger.Debug("parser created", "grammar", p.grammar.String(), "live", n)
		return ps, nil
	}
	p.live.Add(-1)

	ps, ok := <-p.idle
	if !ok {
		return nil, errPoolClosed
	}
	return ps, nil
}

// put returns a parser. Parsers handed back after close are freed.
func (p *grammarPool) put(ps *ts.Parser) {
	if ps == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		ps.Close()
		p.live.Add(-1)
		return
	}
	select {
	case p.idle <- ps:
	default:
		ps.Close()
		p.live.Add(-1)
	}
}

// close frees idle parsers and wakes any waiting get with errPoolClosed.
func (p *grammarPool) close() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0
	}
	p.closed = true
	close(p.idle)

	freed := 0
	for ps := range p.idle {
		ps.Close()
		freed++
	}
	return freed
}
