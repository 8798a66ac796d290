package parser

import (
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/exportmap/pkg/ast"
)

// lowerer turns a tree-sitter tree into an ast.Program.
//
// Node kinds are those of tree-sitter-javascript and tree-sitter-typescript;
// the TypeScript grammar is a superset, so one lowerer serves both.
type lowerer struct {
	src []byte
}

func lowerProgram(root *ts.Node, src []byte) *ast.Program {
	l := &lowerer{src: src}
	prog := &ast.Program{}
	prog.Body, prog.Comments = l.lowerBlock(root)
	l.collectDynamicImports(root, prog)
	return prog
}

// lowerBlock lowers the statements of a program or statement_block. Comments
// directly preceding a statement become its leading comments.
func (l *lowerer) lowerBlock(block *ts.Node) ([]ast.Stmt, []ast.Comment) {
	var (
		stmts    []ast.Stmt
		comments []ast.Comment
		pending  []ast.Comment
	)

	for i := uint(0); i < block.NamedChildCount(); i++ {
		child := block.NamedChild(i)
		if child == nil {
			continue
		}
		if child.Kind() == "comment" {
			c := l.comment(child)
			comments = append(comments, c)
			pending = append(pending, c)
			continue
		}
		if child.Kind() == "hash_bang_line" {
			continue
		}
		stmts = append(stmts, l.lowerStmt(child, ast.Node{Span: l.span(child), LeadingComments: pending}))
		pending = nil
	}

	return stmts, comments
}

func (l *lowerer) lowerStmt(n *ts.Node, base ast.Node) ast.Stmt {
	switch n.Kind() {
	case "import_statement":
		if stmt := l.lowerImport(n, base); stmt != nil {
			return stmt
		}
	case "export_statement":
		return l.lowerExport(n, base)
	case "expression_statement":
		// namespace Foo { } at top level parses as an expression statement
		if inner := firstNamedChild(n); inner != nil {
			if inner.Kind() == "internal_module" || inner.Kind() == "module" {
				if decl := l.lowerDecl(inner); decl != nil {
					return &ast.DeclStmt{Node: base, Decl: decl}
				}
			}
		}
	default:
		if decl := l.lowerDecl(n); decl != nil {
			return &ast.DeclStmt{Node: base, Decl: decl}
		}
	}
	return &ast.OtherStmt{Node: base, Kind: n.Kind()}
}

// lowerImport handles import_statement, including the TypeScript
// import x = require('y') form.
func (l *lowerer) lowerImport(n *ts.Node, base ast.Node) ast.Stmt {
	decl := &ast.ImportDecl{Node: base}

	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "type":
			if !child.IsNamed() {
				decl.ImportKind = ast.ImportType
			}
		case "typeof":
			if !child.IsNamed() {
				decl.ImportKind = ast.ImportTypeof
			}
		case "import_clause":
			decl.Specifiers = l.importClause(child)
		case "import_require_clause":
			if id := firstNamedChildOfKind(child, "identifier"); id != nil {
				decl.Specifiers = append(decl.Specifiers, ast.ImportSpecifier{
					Kind:     ast.SpecifierNamespace,
					Imported: "*",
					Local:    l.text(id),
				})
			}
			if src := child.ChildByFieldName("source"); src != nil {
				decl.Source = l.stringLit(src)
			} else if src := firstNamedChildOfKind(child, "string"); src != nil {
				decl.Source = l.stringLit(src)
			}
			return decl
		}
	}

	src := n.ChildByFieldName("source")
	if src == nil {
		return nil
	}
	decl.Source = l.stringLit(src)
	return decl
}

func (l *lowerer) importClause(clause *ts.Node) []ast.ImportSpecifier {
	var specs []ast.ImportSpecifier

	for i := uint(0); i < clause.NamedChildCount(); i++ {
		child := clause.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "identifier":
			specs = append(specs, ast.ImportSpecifier{
				Kind:     ast.SpecifierDefault,
				Imported: "default",
				Local:    l.text(child),
			})
		case "namespace_import":
			if id := firstNamedChildOfKind(child, "identifier"); id != nil {
				specs = append(specs, ast.ImportSpecifier{
					Kind:     ast.SpecifierNamespace,
					Imported: "*",
					Local:    l.text(id),
				})
			}
		case "named_imports":
			for j := uint(0); j < child.NamedChildCount(); j++ {
				spec := child.NamedChild(j)
				if spec == nil || spec.Kind() != "import_specifier" {
					continue
				}
				specs = append(specs, l.importSpecifier(spec))
			}
		}
	}

	return specs
}

func (l *lowerer) importSpecifier(spec *ts.Node) ast.ImportSpecifier {
	out := ast.ImportSpecifier{Kind: ast.SpecifierNamed, ImportKind: keywordKind(spec)}

	if name := spec.ChildByFieldName("name"); name != nil {
		out.Imported = l.moduleExportName(name)
		out.Local = out.Imported
	}
	if alias := spec.ChildByFieldName("alias"); alias != nil {
		out.Local = l.moduleExportName(alias)
	}
	return out
}

// lowerExport classifies an export_statement by its keyword children, which
// carry no field names in either grammar.
func (l *lowerer) lowerExport(n *ts.Node, base ast.Node) ast.Stmt {
	var (
		hasDefault, hasStar, hasEquals, hasNamespace bool
		kind                                         ast.ImportKind
		clause, nsExport                             *ts.Node
	)

	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if !child.IsNamed() {
			switch child.Kind() {
			case "default":
				hasDefault = true
			case "*":
				hasStar = true
			case "=":
				hasEquals = true
			case "namespace":
				hasNamespace = true
			case "type":
				kind = ast.ImportType
			}
			continue
		}
		switch child.Kind() {
		case "export_clause":
			clause = child
		case "namespace_export":
			nsExport = child
		}
	}

	declNode := n.ChildByFieldName("declaration")
	source := n.ChildByFieldName("source")

	switch {
	case hasEquals:
		return &ast.ExportAssignment{Node: base, Expr: l.expr(firstNamedChildExcept(n, "decorator"))}

	case hasNamespace:
		stmt := &ast.NamespaceExport{Node: base}
		if id := firstNamedChildOfKind(n, "identifier"); id != nil {
			stmt.Name = l.text(id)
		}
		return stmt

	case hasDefault:
		stmt := &ast.ExportDefault{Node: base}
		if declNode != nil {
			stmt.Decl = l.lowerDecl(declNode)
			stmt.Expr = ast.Expr{Kind: declExprKind(stmt.Decl), Name: ast.DeclName(stmt.Decl), Span: l.span(declNode)}
		} else if value := n.ChildByFieldName("value"); value != nil {
			stmt.Expr = l.expr(value)
		}
		return stmt

	case hasStar && source != nil:
		return &ast.ExportAll{Node: base, Source: l.stringLit(source), ExportKind: kind}

	case nsExport != nil && source != nil:
		stmt := &ast.ExportAll{Node: base, Source: l.stringLit(source), ExportKind: kind}
		if name := firstNamedChild(nsExport); name != nil {
			stmt.Exported = l.moduleExportName(name)
		}
		return stmt

	case declNode != nil:
		decl := l.lowerDecl(declNode)
		if decl == nil {
			return &ast.OtherStmt{Node: base, Kind: n.Kind()}
		}
		return &ast.ExportNamed{Node: base, Decl: decl, ExportKind: kind}

	case clause != nil:
		stmt := &ast.ExportNamed{Node: base, ExportKind: kind}
		for i := uint(0); i < clause.NamedChildCount(); i++ {
			spec := clause.NamedChild(i)
			if spec == nil || spec.Kind() != "export_specifier" {
				continue
			}
			stmt.Specifiers = append(stmt.Specifiers, l.exportSpecifier(spec))
		}
		if source != nil {
			lit := l.stringLit(source)
			stmt.Source = &lit
		}
		return stmt
	}

	return &ast.OtherStmt{Node: base, Kind: n.Kind()}
}

func (l *lowerer) exportSpecifier(spec *ts.Node) ast.ExportSpecifier {
	out := ast.ExportSpecifier{ExportKind: keywordKind(spec)}

	if name := spec.ChildByFieldName("name"); name != nil {
		out.Local = l.moduleExportName(name)
		out.Exported = out.Local
	}
	if alias := spec.ChildByFieldName("alias"); alias != nil {
		out.Exported = l.moduleExportName(alias)
	}
	return out
}

// lowerDecl lowers a declaration node, returning nil for anything that binds
// no module-level name.
func (l *lowerer) lowerDecl(n *ts.Node) ast.Decl {
	if n == nil {
		return nil
	}
	span := ast.DeclBase{Span: l.span(n)}

	switch n.Kind() {
	case "function_declaration":
		return &ast.FunctionDecl{DeclBase: span, Name: l.fieldText(n, "name")}
	case "generator_function_declaration":
		return &ast.FunctionDecl{DeclBase: span, Name: l.fieldText(n, "name"), Generator: true}
	case "function_signature":
		return &ast.FunctionDecl{DeclBase: span, Name: l.fieldText(n, "name"), Signature: true}
	case "class_declaration":
		return &ast.ClassDecl{DeclBase: span, Name: l.fieldText(n, "name")}
	case "abstract_class_declaration":
		return &ast.ClassDecl{DeclBase: span, Name: l.fieldText(n, "name"), Abstract: true}
	case "lexical_declaration", "variable_declaration":
		return l.varDecl(n, span)
	case "type_alias_declaration":
		return &ast.TypeAliasDecl{DeclBase: span, Name: l.fieldText(n, "name")}
	case "interface_declaration":
		return &ast.InterfaceDecl{DeclBase: span, Name: l.fieldText(n, "name")}
	case "enum_declaration":
		return &ast.EnumDecl{DeclBase: span, Name: l.fieldText(n, "name")}
	case "module", "internal_module":
		if mod := l.moduleDecl(n, span); mod != nil {
			return mod
		}
	case "ambient_declaration":
		for i := uint(0); i < n.ChildCount(); i++ {
			child := n.Child(i)
			if child == nil {
				continue
			}
			if !child.IsNamed() && child.Kind() == "global" {
				mod := &ast.ModuleDecl{DeclBase: span, Name: "global", Global: true}
				if body := firstNamedChildOfKind(n, "statement_block"); body != nil {
					mod.Body, _ = l.lowerBlock(body)
				}
				return mod
			}
			if child.IsNamed() {
				if decl := l.lowerDecl(child); decl != nil {
					return decl
				}
			}
		}
	}
	return nil
}

func (l *lowerer) varDecl(n *ts.Node, span ast.DeclBase) *ast.VarDecl {
	decl := &ast.VarDecl{DeclBase: span}
	if first := n.Child(0); first != nil {
		decl.Kind = first.Kind()
	}

	var pending []ast.Comment
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "comment":
			pending = append(pending, l.comment(child))
		case "variable_declarator":
			if id := l.pattern(child.ChildByFieldName("name")); id != nil {
				decl.Declarators = append(decl.Declarators, ast.Declarator{
					ID:              id,
					Span:            l.span(child),
					LeadingComments: pending,
				})
			}
			pending = nil
		}
	}
	return decl
}

// moduleDecl lowers namespace/module declarations. A dotted name nests one
// ModuleDecl per segment; the body belongs to the innermost one.
func (l *lowerer) moduleDecl(n *ts.Node, span ast.DeclBase) *ast.ModuleDecl {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	var segments []string
	switch nameNode.Kind() {
	case "string":
		segments = []string{l.stringLit(nameNode).Value}
	case "nested_identifier":
		segments = strings.Split(l.text(nameNode), ".")
	default:
		segments = []string{l.text(nameNode)}
	}

	var body []ast.Stmt
	if b := n.ChildByFieldName("body"); b != nil {
		body, _ = l.lowerBlock(b)
	}

	outer := &ast.ModuleDecl{DeclBase: span, Name: strings.TrimSpace(segments[0])}
	cur := outer
	for _, seg := range segments[1:] {
		inner := &ast.ModuleDecl{DeclBase: span, Name: strings.TrimSpace(seg)}
		cur.Inner = inner
		cur = inner
	}
	cur.Body = body
	return outer
}

// pattern lowers a binding target.
func (l *lowerer) pattern(n *ts.Node) ast.Pattern {
	if n == nil {
		return nil
	}

	switch n.Kind() {
	case "identifier", "shorthand_property_identifier_pattern":
		return &ast.Ident{Name: l.text(n), Span: l.span(n)}

	case "object_pattern":
		obj := &ast.ObjectPattern{}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			child := n.NamedChild(i)
			if child == nil {
				continue
			}
			var p ast.Pattern
			switch child.Kind() {
			case "pair_pattern":
				p = l.pattern(child.ChildByFieldName("value"))
			case "object_assignment_pattern":
				p = &ast.AssignPattern{Left: l.pattern(child.ChildByFieldName("left"))}
			default:
				p = l.pattern(child)
			}
			if p != nil {
				obj.Properties = append(obj.Properties, p)
			}
		}
		return obj

	case "array_pattern":
		arr := &ast.ArrayPattern{}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			child := n.NamedChild(i)
			if child == nil || child.Kind() == "comment" {
				continue
			}
			if p := l.pattern(child); p != nil {
				arr.Elements = append(arr.Elements, p)
			}
		}
		return arr

	case "assignment_pattern":
		return &ast.AssignPattern{Left: l.pattern(n.ChildByFieldName("left"))}

	case "rest_pattern":
		return &ast.RestElement{Argument: l.pattern(firstNamedChild(n))}
	}

	return nil
}

// expr reduces an expression to the shape the builder needs.
func (l *lowerer) expr(n *ts.Node) ast.Expr {
	if n == nil {
		return ast.Expr{}
	}
	out := ast.Expr{Span: l.span(n)}

	switch n.Kind() {
	case "identifier":
		out.Kind = ast.ExprIdentifier
		out.Name = l.text(n)
	case "class":
		out.Kind = ast.ExprClass
		out.Name = l.fieldText(n, "name")
	case "function", "function_expression", "generator_function", "arrow_function":
		out.Kind = ast.ExprFunction
		out.Name = l.fieldText(n, "name")
	case "parenthesized_expression":
		return l.expr(firstNamedChild(n))
	}
	return out
}

// collectDynamicImports finds import() and require() calls anywhere in the tree.
func (l *lowerer) collectDynamicImports(n *ts.Node, prog *ast.Program) {
	if n == nil {
		return
	}

	if n.Kind() == "call_expression" {
		if fn := n.ChildByFieldName("function"); fn != nil {
			isImport := fn.Kind() == "import"
			isRequire := fn.Kind() == "identifier" && l.text(fn) == "require"
			if isImport || isRequire {
				dyn := ast.DynamicImport{Require: isRequire, Span: l.span(n)}
				if args := n.ChildByFieldName("arguments"); args != nil {
					if arg := firstNamedChildExcept(args, "comment"); arg != nil && arg.Kind() == "string" {
						lit := l.stringLit(arg)
						dyn.Source = &lit
					}
				}
				// require(...) with no literal argument is not a module edge
				if isImport || dyn.Source != nil {
					prog.DynamicImports = append(prog.DynamicImports, dyn)
				}
			}
		}
	}

	for i := uint(0); i < n.NamedChildCount(); i++ {
		l.collectDynamicImports(n.NamedChild(i), prog)
	}
}

func (l *lowerer) comment(n *ts.Node) ast.Comment {
	text := l.text(n)
	c := ast.Comment{Span: l.span(n)}
	switch {
	case strings.HasPrefix(text, "/*"):
		c.Block = true
		c.Text = strings.TrimSuffix(strings.TrimPrefix(text, "/*"), "*/")
	case strings.HasPrefix(text, "//"):
		c.Text = strings.TrimPrefix(text, "//")
	default:
		c.Text = text
	}
	return c
}

func (l *lowerer) stringLit(n *ts.Node) ast.StringLit {
	return ast.StringLit{Value: unquote(l.text(n)), Span: l.span(n)}
}

// moduleExportName returns the name of an identifier or string export name.
func (l *lowerer) moduleExportName(n *ts.Node) string {
	if n.Kind() == "string" {
		return unquote(l.text(n))
	}
	return l.text(n)
}

func (l *lowerer) fieldText(n *ts.Node, field string) string {
	child := n.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return l.text(child)
}

func (l *lowerer) text(n *ts.Node) string {
	return n.Utf8Text(l.src)
}

func (l *lowerer) span(n *ts.Node) ast.Span {
	start := n.StartPosition()
	end := n.EndPosition()
	return ast.Span{
		Start:     ast.Position{Line: int(start.Row) + 1, Column: int(start.Column) + 1},
		End:       ast.Position{Line: int(end.Row) + 1, Column: int(end.Column) + 1},
		StartByte: uint32(n.StartByte()),
		EndByte:   uint32(n.EndByte()),
	}
}

// keywordKind reads a leading type/typeof modifier from a specifier.
func keywordKind(n *ts.Node) ast.ImportKind {
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil || child.IsNamed() {
			continue
		}
		switch child.Kind() {
		case "type":
			return ast.ImportType
		case "typeof":
			return ast.ImportTypeof
		}
	}
	return ast.ImportValue
}

func declExprKind(d ast.Decl) ast.ExprKind {
	switch d.(type) {
	case *ast.ClassDecl:
		return ast.ExprClass
	case *ast.FunctionDecl:
		return ast.ExprFunction
	default:
		return ast.ExprOther
	}
}

func firstNamedChild(n *ts.Node) *ts.Node {
	return firstNamedChildExcept(n, "comment")
}

func firstNamedChildExcept(n *ts.Node, skip string) *ts.Node {
	if n == nil {
		return nil
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child != nil && child.Kind() != skip && child.Kind() != "comment" {
			return child
		}
	}
	return nil
}

func firstNamedChildOfKind(n *ts.Node, kind string) *ts.Node {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '\'' || first == '"' || first == '`') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}
