package parser

import (
	"fmt"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/evanw/esbuild/pkg/api"
	ts "github.com/tree-sitter/go-tree-sitter"
	ts_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	ts_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Grammar is a tree-sitter grammar used to read module sources.
type Grammar int

const (
	// GrammarNone marks a path no grammar can read.
	GrammarNone Grammar = iota
	// GrammarJavaScript reads .js, .jsx, .mjs and .cjs (JSX included).
	GrammarJavaScript
	// GrammarTypeScript reads .ts, .mts, .cts and declaration files.
	GrammarTypeScript
	// GrammarTSX reads .tsx, or any non-declaration TypeScript when JSX is on.
	GrammarTSX

	grammarCount
)

func (g Grammar) String() string {
	switch g {
	case GrammarJavaScript:
		return "javascript"
	case GrammarTypeScript:
		return "typescript"
	case GrammarTSX:
		return "tsx"
	default:
		return "none"
	}
}

// TypeScript reports whether g carries type syntax.
func (g Grammar) TypeScript() bool {
	return g == GrammarTypeScript || g == GrammarTSX
}

func (g Grammar) language() (unsafe.Pointer, error) {
	switch g {
	case GrammarJavaScript:
		return ts_javascript.Language(), nil
	case GrammarTypeScript:
		return ts_typescript.LanguageTypescript(), nil
	case GrammarTSX:
		return ts_typescript.LanguageTSX(), nil
	default:
		return nil, fmt.Errorf("no tree-sitter grammar for %s", g)
	}
}

// newParser returns a tree-sitter parser set up for g.
func (g Grammar) newParser() (*ts.Parser, error) {
	ptr, err := g.language()
	if err != nil {
		return nil, err
	}
	p := ts.NewParser()
	if p == nil {
		return nil, fmt.Errorf("failed to create %s parser", g)
	}
	if err := p.SetLanguage(ts.NewLanguage(ptr)); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to set %s language: %w", g, err)
	}
	return p, nil
}

// loader is the esbuild loader that accepts the same syntax as g.
func (g Grammar) loader() api.Loader {
	switch g {
	case GrammarTypeScript:
		return api.LoaderTS
	case GrammarTSX:
		return api.LoaderTSX
	default:
		return api.LoaderJSX
	}
}

// GrammarFor picks the grammar for a path. jsx switches plain TypeScript
// sources (but never declaration files) to the TSX grammar.
func GrammarFor(path string, jsx bool) Grammar {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx", ".mjs", ".cjs":
		return GrammarJavaScript
	case ".tsx":
		return GrammarTSX
	case ".ts", ".mts", ".cts":
		if jsx && !IsDeclarationFile(path) {
			return GrammarTSX
		}
		return GrammarTypeScript
	default:
		return GrammarNone
	}
}

// Supported reports whether path has a source extension some grammar reads.
func Supported(path string) bool {
	return GrammarFor(path, false) != GrammarNone
}

// IsDeclarationFile reports whether the path is a TypeScript declaration file.
func IsDeclarationFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	for _, suffix := range []string{".d.ts", ".d.mts", ".d.cts"} {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}
