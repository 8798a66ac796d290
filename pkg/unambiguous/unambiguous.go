// Package unambiguous decides whether a source file is an ES module.
//
// A file is a module only if it says so: it contains an import or export
// statement. Scripts (CommonJS, globals) are kept out of the export graph.
package unambiguous

import (
	"regexp"

	"github.com/gnana997/exportmap/pkg/ast"
)

// pattern matches import/export keywords at the start of a statement, or an
// import() call anywhere. It is a cheap filter: it may admit files that turn
// out to be scripts, but never rejects a module.
var pattern = regexp.MustCompile(`(?m)(^|;)\s*(export|import)((\s+\w)|(\s*[{*=]))|import\(`)

// Test reports whether content might be a module, without parsing it.
func Test(content []byte) bool {
	return pattern.Match(content)
}

// TestString is Test for string content.
func TestString(content string) bool {
	return pattern.MatchString(content)
}

// IsModule reports whether prog contains a top-level import or export
// statement (including TypeScript export = and import x = require()).
func IsModule(prog *ast.Program) bool {
	if prog == nil {
		return false
	}
	for _, stmt := range prog.Body {
		switch stmt.(type) {
		case *ast.ImportDecl, *ast.ExportAll, *ast.ExportNamed, *ast.ExportDefault, *ast.ExportAssignment:
			return true
		}
	}
	return false
}
