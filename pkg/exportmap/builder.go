package exportmap

import (
	"errors"
	"time"

	"github.com/gnana997/exportmap/pkg/ast"
	"github.com/gnana997/exportmap/pkg/doc"
	"github.com/gnana997/exportmap/pkg/parser"
	"github.com/gnana997/exportmap/pkg/settings"
	"github.com/gnana997/exportmap/pkg/unambiguous"
)

// Parse builds the map of the module at ctx.Path from content, bypassing the
// cache. Returns nil when the source has neither import/export statements
// nor dynamic imports; a source that fails to parse gives a map holding only
// the error.
func (g *Graph) Parse(path string, content []byte, ctx *settings.Context) *ExportMap {
	if ctx.Path != path {
		ctx = ctx.Child(path)
	}
	m := newExportMap(path)

	opts := parser.Options{}
	if ctx.ParserOptions != nil {
		opts.JSX = ctx.ParserOptions.JSX
	}
	prog, err := g.parser.Parse(path, content, opts)
	if err != nil {
		var perr *parser.ParseError
		if !errors.As(err, &perr) {
			perr = &parser.ParseError{Path: path, Message: err.Error(), Line: 1, Column: 1}
		}
		g.logger.Debug("parse error", "path", path, "error", perr)
		m.Errors = append(m.Errors, perr)
		return m
	}

	b := &builder{
		g:          g,
		ctx:        ctx,
		m:          m,
		prog:       prog,
		styles:     ctx.Settings.DocStyles(),
		namespaces: make(map[string]string),
	}

	for _, di := range prog.DynamicImports {
		b.dynamicImport(di)
	}
	isModule := unambiguous.IsModule(prog)
	if !isModule && len(prog.DynamicImports) == 0 {
		return nil
	}

	b.moduleDoc()
	for _, stmt := range prog.Body {
		b.statement(stmt)
	}

	if m.Namespace.Len() > 0 && !m.Namespace.Has(Default) && b.interop() {
		m.Namespace.Set(Default, &ExportMeta{})
	}

	if isModule {
		m.ParseGoal = GoalModule
	} else {
		m.ParseGoal = GoalScript
	}
	return m
}

type builder struct {
	g      *Graph
	ctx    *settings.Context
	m      *ExportMap
	prog   *ast.Program
	styles []doc.Style

	// namespaces maps import * as X locals to their specifier.
	namespaces map[string]string

	interopDone bool
	interopOn   bool
}

func (b *builder) interop() bool {
	if !b.interopDone {
		b.interopOn = b.g.tsconfigs.EsModuleInterop(b.ctx.ParserOptions)
		b.interopDone = true
	}
	return b.interopOn
}

func (b *builder) moduleDoc() {
	comments := b.prog.Comments
	if len(b.prog.Body) > 0 {
		comments = b.prog.Body[0].Leading()
	}
	b.m.Doc = doc.ModuleDoc(comments)
}

func (b *builder) capture(groups ...[]ast.Comment) *ExportMeta {
	return &ExportMeta{Doc: doc.Capture(b.styles, groups...)}
}

// edge resolves specifier relative to the module being built.
func (b *builder) edge(specifier string) *Edge {
	e := &Edge{Specifier: specifier, graph: b.g}
	path, err := b.g.resolver.Relative(specifier, b.ctx.Path, b.ctx.Settings)
	if err != nil {
		b.g.logger.Debug("resolve error", "specifier", specifier, "source", b.ctx.Path, "error", err)
	}
	if path != "" {
		e.Path = path
		e.ctx = b.ctx.Child(path)
	}
	return e
}

// namespaceEdge returns the edge for a local bound by import * as, or nil.
func (b *builder) namespaceEdge(local string) *Edge {
	spec, ok := b.namespaces[local]
	if !ok {
		return nil
	}
	return b.edge(spec)
}

// dependency records an import of source and returns its edge, or nil when
// the source does not resolve.
func (b *builder) dependency(decl Declaration) *Edge {
	e := b.edge(decl.Source.Value)
	if e.Path == "" {
		return nil
	}
	if existing, ok := b.m.Imports.Get(e.Path); ok {
		existing.Declarations = append(existing.Declarations, decl)
		return existing.Edge
	}
	b.m.Imports.Set(e.Path, &Import{Edge: e, Declarations: []Declaration{decl}})
	return e
}

func (b *builder) dynamicImport(di ast.DynamicImport) {
	if di.Source == nil {
		return
	}
	b.dependency(Declaration{
		Source:    *di.Source,
		Namespace: true,
		Dynamic:   true,
	})
}

func (b *builder) statement(stmt ast.Stmt) {
	switch n := stmt.(type) {
	case *ast.ExportDefault:
		meta := b.capture(n.Leading())
		if n.Decl == nil && n.Expr.Kind == ast.ExprIdentifier {
			meta.namespace = b.namespaceEdge(n.Expr.Name)
		}
		b.m.Namespace.Set(Default, meta)

	case *ast.ExportAll:
		dep := b.dependency(Declaration{
			Source:               n.Source,
			IsOnlyImportingTypes: n.ExportKind.IsTypeOnly(),
		})
		if dep != nil {
			b.m.Dependencies = append(b.m.Dependencies, dep)
		}
		if n.Exported != "" {
			b.m.Namespace.Set(n.Exported, &ExportMeta{namespace: b.edge(n.Source.Value)})
		}

	case *ast.ImportDecl:
		b.importDecl(n)

	case *ast.ExportNamed:
		b.exportNamed(n)

	case *ast.ExportAssignment:
		b.exportAssignment(n, n.Expr.Name)

	case *ast.NamespaceExport:
		if b.interop() {
			b.exportAssignment(n, n.Name)
		}
	}
}

func (b *builder) importDecl(n *ast.ImportDecl) {
	decl := Declaration{Source: n.Source}
	typesOnly := len(n.Specifiers) > 0
	for _, s := range n.Specifiers {
		switch s.Kind {
		case ast.SpecifierDefault:
			decl.Default = true
		case ast.SpecifierNamespace:
			decl.Namespace = true
			if _, ok := b.namespaces[s.Local]; !ok {
				b.namespaces[s.Local] = n.Source.Value
			}
		default:
			decl.Names = append(decl.Names, s.Imported)
		}
		typesOnly = typesOnly && s.ImportKind.IsTypeOnly()
	}
	decl.IsOnlyImportingTypes = n.ImportKind.IsTypeOnly() || typesOnly
	b.dependency(decl)
}

func (b *builder) exportNamed(n *ast.ExportNamed) {
	if n.Source != nil {
		typesOnly := len(n.Specifiers) > 0
		for _, s := range n.Specifiers {
			typesOnly = typesOnly && s.ExportKind.IsTypeOnly()
		}
		b.dependency(Declaration{
			Source:               *n.Source,
			IsOnlyImportingTypes: n.ExportKind.IsTypeOnly() || typesOnly,
		})
	}

	switch d := n.Decl.(type) {
	case nil:
	case *ast.VarDecl:
		for _, decl := range d.Declarators {
			ast.BoundIdents(decl.ID, func(id *ast.Ident) {
				b.m.Namespace.Set(id.Name, b.capture(decl.LeadingComments, n.Leading()))
			})
		}
	default:
		if name := ast.DeclName(d); name != "" {
			b.m.Namespace.Set(name, b.capture(n.Leading()))
		}
	}

	for _, s := range n.Specifiers {
		b.specifier(s, n)
	}
}

func (b *builder) specifier(s ast.ExportSpecifier, n *ast.ExportNamed) {
	if n.Source == nil {
		b.m.Namespace.Set(s.Exported, &ExportMeta{namespace: b.namespaceEdge(s.Local)})
		return
	}
	b.m.Reexports.Set(s.Exported, &Reexport{
		Local:  s.Local,
		Import: b.edge(n.Source.Value),
	})
}

// exportAssignment handles export = name (and, under esModuleInterop,
// export as namespace name). Local declarations named name become the
// module's exports; otherwise name is taken to be imported and exported as
// the default.
func (b *builder) exportAssignment(n ast.Stmt, name string) {
	var decls []*ast.DeclStmt
	if name != "" {
		for _, stmt := range b.prog.Body {
			if ds, ok := stmt.(*ast.DeclStmt); ok && declares(ds.Decl, name) {
				decls = append(decls, ds)
			}
		}
	}
	if len(decls) == 0 {
		b.m.Namespace.Set(Default, b.capture(n.Leading()))
		return
	}

	if b.interop() && !b.m.Namespace.Has(Default) {
		b.m.Namespace.Set(Default, &ExportMeta{})
	}
	for _, ds := range decls {
		md, ok := ds.Decl.(*ast.ModuleDecl)
		if !ok {
			b.m.Namespace.Set(Default, b.capture(ds.Leading()))
			continue
		}
		if md.Inner != nil {
			b.m.Namespace.Set(md.Inner.Name, b.capture(ds.Leading()))
			continue
		}
		b.flatten(md, ds)
	}
}

// flatten exports every member of a namespace body, exported or not.
func (b *builder) flatten(md *ast.ModuleDecl, outer ast.Stmt) {
	for _, member := range md.Body {
		var decl ast.Decl
		switch n := member.(type) {
		case *ast.ExportNamed:
			decl = n.Decl
		case *ast.DeclStmt:
			decl = n.Decl
		}
		switch d := decl.(type) {
		case nil:
		case *ast.VarDecl:
			for _, v := range d.Declarators {
				ast.BoundIdents(v.ID, func(id *ast.Ident) {
					b.m.Namespace.Set(id.Name, b.capture(outer.Leading(), v.LeadingComments, member.Leading()))
				})
			}
		default:
			if name := ast.DeclName(d); name != "" {
				b.m.Namespace.Set(name, b.capture(member.Leading()))
			}
		}
	}
}

// declares reports whether d is a declaration export = can refer to by name.
// Plain function declarations are not included; only signatures are.
func declares(d ast.Decl, name string) bool {
	switch d := d.(type) {
	case *ast.VarDecl:
		for _, v := range d.Declarators {
			if id, ok := v.ID.(*ast.Ident); ok && id.Name == name {
				return true
			}
		}
		return false
	case *ast.FunctionDecl:
		return d.Signature && d.Name == name
	case *ast.ClassDecl:
		return d.Name == name
	case *ast.EnumDecl:
		return d.Name == name
	case *ast.TypeAliasDecl:
		return d.Name == name
	case *ast.InterfaceDecl:
		return d.Name == name
	case *ast.ModuleDecl:
		return !d.Global && d.Name == name
	}
	return false
}

// stamp sets the map's modification time.
func (m *ExportMap) stamp(mtime time.Time) *ExportMap {
	if m != nil {
		m.Mtime = mtime
	}
	return m
}
