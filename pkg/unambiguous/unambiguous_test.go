package unambiguous

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gnana997/exportmap/pkg/ast"
)

func TestTest(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"named import", "import { a } from './a'", true},
		{"default import", "import a from './a'", true},
		{"namespace import", "import * as a from './a'", true},
		{"side effect import", "import './a'", false},
		{"export const", "export const a = 1", true},
		{"export clause", "export{ a }", true},
		{"export star", "export * from './a'", true},
		{"after semicolon", "var x = 1;export default x", true},
		{"indented", "\n\n   export function f() {}", true},
		{"dynamic import", "const m = await import('./m')", true},
		{"commonjs", "const a = require('./a');\nmodule.exports = a;", false},
		{"keyword in identifier", "const exported = important;", false},
		{"keyword in string", "const s = 'we import things';", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Test([]byte(tt.content)))
			assert.Equal(t, tt.want, TestString(tt.content))
		})
	}
}

func TestIsModule(t *testing.T) {
	assert.False(t, IsModule(nil))
	assert.False(t, IsModule(&ast.Program{}))

	script := &ast.Program{Body: []ast.Stmt{
		&ast.OtherStmt{Kind: "expression_statement"},
		&ast.DeclStmt{Decl: &ast.FunctionDecl{Name: "f"}},
	}}
	assert.False(t, IsModule(script))

	for _, stmt := range []ast.Stmt{
		&ast.ImportDecl{},
		&ast.ExportAll{},
		&ast.ExportNamed{},
		&ast.ExportDefault{},
		&ast.ExportAssignment{},
	} {
		prog := &ast.Program{Body: []ast.Stmt{&ast.OtherStmt{}, stmt}}
		assert.True(t, IsModule(prog), "%T", stmt)
	}

	nsOnly := &ast.Program{Body: []ast.Stmt{&ast.NamespaceExport{Name: "Lib"}}}
	assert.False(t, IsModule(nsOnly))
}
