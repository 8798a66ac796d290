// Package ast defines the module-level syntax tree the export graph is built from.
//
// The tree is a lowering of the tree-sitter concrete syntax tree: only the
// shapes that affect a module's import/export surface are kept. Each category
// (statements, declarations, patterns) is a closed set of types behind a sealed
// interface, so a new TypeScript or Flow construct has to be added here before
// the graph builder can see it.
package ast

// Position is a 1-based line and column in source text.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Span locates a node in source text.
//
// StartByte/EndByte are 0-based offsets (exclusive end), matching tree-sitter.
type Span struct {
	Start     Position `json:"start"`
	End       Position `json:"end"`
	StartByte uint32   `json:"start_byte"`
	EndByte   uint32   `json:"end_byte"`
}

// Comment is a source comment with its delimiters stripped.
//
// For block comments Text is everything between "/*" and "*/" (so a JSDoc
// comment starts with "*"). For line comments it is everything after "//".
type Comment struct {
	Text  string
	Block bool
	Span  Span
}

// StringLit is a string literal used as a module specifier.
type StringLit struct {
	Value string
	Span  Span
}

// Program is a lowered source file.
type Program struct {
	// Body holds the top-level statements in source order.
	Body []Stmt

	// Comments holds every top-level comment in source order.
	Comments []Comment

	// DynamicImports holds import() and require() calls found anywhere in the file.
	DynamicImports []DynamicImport
}

// DynamicImport is an import() expression or a require() call.
type DynamicImport struct {
	// Source is nil when the argument is not a string literal.
	Source *StringLit

	// Require is true for require('x') calls.
	Require bool

	Span Span
}

// ImportKind distinguishes value imports from type-only imports.
type ImportKind int

const (
	ImportValue ImportKind = iota
	ImportType
	ImportTypeof
)

// String returns the keyword form of the kind.
func (k ImportKind) String() string {
	switch k {
	case ImportType:
		return "type"
	case ImportTypeof:
		return "typeof"
	default:
		return "value"
	}
}

// IsTypeOnly reports whether the kind carries no runtime binding.
func (k ImportKind) IsTypeOnly() bool {
	return k == ImportType || k == ImportTypeof
}

// SpecifierKind is the syntactic shape of an import specifier.
type SpecifierKind int

const (
	SpecifierNamed SpecifierKind = iota
	SpecifierDefault
	SpecifierNamespace
)

// ImportSpecifier is one binding of an import declaration.
type ImportSpecifier struct {
	Kind SpecifierKind

	// Imported is the exported name on the remote module ("default" for
	// default specifiers, "*" for namespace specifiers).
	Imported string

	// Local is the binding introduced in this module.
	Local string

	// ImportKind is the per-specifier modifier (import { type Foo }).
	ImportKind ImportKind
}

// ExportSpecifier is one entry of an export clause (export { a as b }).
type ExportSpecifier struct {
	Local      string
	Exported   string
	ExportKind ImportKind
}

// Stmt is a top-level (or module-block) statement.
type Stmt interface {
	stmtNode()
	Loc() Span
	Leading() []Comment
}

// Node carries the fields shared by every statement.
type Node struct {
	Span            Span
	LeadingComments []Comment
}

func (n *Node) Loc() Span          { return n.Span }
func (n *Node) Leading() []Comment { return n.LeadingComments }

// ImportDecl is import ... from 'source', including import x = require('source').
type ImportDecl struct {
	Node
	Source     StringLit
	ImportKind ImportKind
	Specifiers []ImportSpecifier
}

// ExportAll is export * from 'source' or export * as name from 'source'.
type ExportAll struct {
	Node
	Source     StringLit
	Exported   string // empty unless "as name" is present
	ExportKind ImportKind
}

// ExportNamed is export <declaration> or export { ... } [from 'source'].
type ExportNamed struct {
	Node
	Decl       Decl // nil for specifier lists
	Specifiers []ExportSpecifier
	Source     *StringLit
	ExportKind ImportKind
}

// ExportDefault is export default <declaration | expression>.
type ExportDefault struct {
	Node
	Decl Decl // nil when the default is an expression
	Expr Expr
}

// ExportAssignment is the TypeScript export = <expression>.
type ExportAssignment struct {
	Node
	Expr Expr
}

// NamespaceExport is the TypeScript export as namespace Name.
type NamespaceExport struct {
	Node
	Name string
}

// DeclStmt is a top-level declaration that is not exported.
type DeclStmt struct {
	Node
	Decl Decl
}

// OtherStmt is any statement without import/export significance.
type OtherStmt struct {
	Node
	Kind string
}

func (*ImportDecl) stmtNode()       {}
func (*ExportAll) stmtNode()        {}
func (*ExportNamed) stmtNode()      {}
func (*ExportDefault) stmtNode()    {}
func (*ExportAssignment) stmtNode() {}
func (*NamespaceExport) stmtNode()  {}
func (*DeclStmt) stmtNode()         {}
func (*OtherStmt) stmtNode()        {}

// ExprKind classifies the expressions the builder cares about.
type ExprKind int

const (
	ExprOther ExprKind = iota
	ExprIdentifier
	ExprClass
	ExprFunction
)

// Expr is an expression reduced to its kind and, when it has one, its name.
type Expr struct {
	Kind ExprKind
	Name string
	Span Span
}

// Decl is a declaration that binds one or more names.
type Decl interface {
	declNode()
	Loc() Span
}

// DeclBase carries the fields shared by every declaration.
type DeclBase struct {
	Span Span
}

func (d *DeclBase) Loc() Span { return d.Span }

// FunctionDecl covers function, generator and signature-only declarations.
type FunctionDecl struct {
	DeclBase
	Name      string
	Signature bool // TS overload or declare function
	Generator bool
}

// ClassDecl covers class and abstract class declarations.
type ClassDecl struct {
	DeclBase
	Name     string
	Abstract bool
}

// VarDecl is a var/let/const declaration.
type VarDecl struct {
	DeclBase
	Kind        string
	Declarators []Declarator
}

// Declarator is one binding of a variable declaration.
type Declarator struct {
	ID              Pattern
	Span            Span
	LeadingComments []Comment
}

// TypeAliasDecl is type Name = ...
type TypeAliasDecl struct {
	DeclBase
	Name string
}

// InterfaceDecl is interface Name { ... }
type InterfaceDecl struct {
	DeclBase
	Name string
}

// EnumDecl is [const] enum Name { ... }
type EnumDecl struct {
	DeclBase
	Name string
}

// ModuleDecl is a TypeScript namespace or module declaration.
//
// For dotted names (namespace A.B { }) Name is "A" and Inner describes B,
// mirroring how the declaration nests.
type ModuleDecl struct {
	DeclBase
	Name   string
	Body   []Stmt
	Inner  *ModuleDecl
	Global bool
}

func (*FunctionDecl) declNode()  {}
func (*ClassDecl) declNode()     {}
func (*VarDecl) declNode()       {}
func (*TypeAliasDecl) declNode() {}
func (*InterfaceDecl) declNode() {}
func (*EnumDecl) declNode()      {}
func (*ModuleDecl) declNode()    {}

// DeclName returns the single name a declaration binds, or "" for variable
// declarations (which bind through patterns).
func DeclName(d Decl) string {
	switch d := d.(type) {
	case *FunctionDecl:
		return d.Name
	case *ClassDecl:
		return d.Name
	case *TypeAliasDecl:
		return d.Name
	case *InterfaceDecl:
		return d.Name
	case *EnumDecl:
		return d.Name
	case *ModuleDecl:
		return d.Name
	default:
		return ""
	}
}
