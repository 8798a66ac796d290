package parser

import (
	"fmt"
	"log/slog"

	"github.com/evanw/esbuild/pkg/api"
	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/exportmap/pkg/ast"
)

// Name identifies this parser backend in cache keys.
const Name = "tree-sitter"

// Options are the per-parse knobs derived from the analysis settings.
type Options struct {
	// JSX parses .ts/.mts/.cts files with the TSX grammar.
	JSX bool
}

// ParseError is a syntax error in a module source.
type ParseError struct {
	Path    string
	Message string
	Line    int
	Column  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (%d:%d)", e.Message, e.Line, e.Column)
}

// Adapter turns module source text into an ast.Program.
//
// Parsing is done with tree-sitter. Tree-sitter recovers from syntax errors
// instead of failing, so a tree with error nodes is reported as a
// *ParseError; its message comes from esbuild when esbuild rejects the same
// source, which gives far more useful text than an ERROR node does.
type Adapter struct {
	parsers *Parsers
	logger  *slog.Logger
}

// NewAdapter creates an Adapter that parses with parsers.
func NewAdapter(parsers *Parsers, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{parsers: parsers, logger: logger}
}

// Stats reports the activity of the underlying parsers.
func (a *Adapter) Stats() Stats {
	return a.parsers.Stats()
}

// Parse parses content as the module at path.
//
// Returns a *ParseError for unsupported extensions and syntax errors; any
// other error means the parser itself could not run.
func (a *Adapter) Parse(path string, content []byte, opts Options) (*ast.Program, error) {
	grammar := GrammarFor(path, opts.JSX)
	if grammar == GrammarNone {
		return nil, &ParseError{Path: path, Message: "unsupported file extension", Line: 1, Column: 1}
	}

	tree, err := a.parsers.Parse(grammar, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, a.syntaxError(path, content, root, grammar)
	}

	return lowerProgram(root, content), nil
}

// syntaxError builds the ParseError for a tree that contains error nodes.
func (a *Adapter) syntaxError(path string, content []byte, root *ts.Node, grammar Grammar) *ParseError {
	perr := &ParseError{Path: path, Message: "Unexpected token", Line: 1, Column: 1}

	if bad := firstErrorNode(root); bad != nil {
		pos := bad.StartPosition()
		perr.Line = int(pos.Row) + 1
		perr.Column = int(pos.Column) + 1
		if bad.IsMissing() {
			perr.Message = fmt.Sprintf("Missing %q", bad.Kind())
		}
	}

	result := api.Transform(string(content), api.TransformOptions{
		Loader:     grammar.loader(),
		Sourcefile: path,
		LogLevel:   api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		msg := result.Errors[0]
		perr.Message = msg.Text
		if msg.Location != nil {
			perr.Line = msg.Location.Line
			perr.Column = msg.Location.Column + 1
		}
	}

	a.logger.Debug("syntax error in module",
		"path", path,
		"message", perr.Message,
		"line", perr.Line,
		"column", perr.Column)

	return perr
}

// firstErrorNode returns the first ERROR or MISSING node in document order.
func firstErrorNode(n *ts.Node) *ts.Node {
	if n == nil {
		return nil
	}
	if n.IsError() || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if bad := firstErrorNode(n.Child(i)); bad != nil {
			return bad
		}
	}
	return n
}
