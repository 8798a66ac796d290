// Package exportmap builds and queries the export graph of JavaScript and
// TypeScript modules.
//
// An ExportMap describes what one module exports: names it declares itself
// (Namespace), names it re-exports from other modules (Reexports), and
// modules whose names it re-exports wholesale with export * (Dependencies).
// Edges to other modules are resolved lazily through the Graph that built the
// map, so asking whether a module has a default export never parses more
// than that module.
package exportmap

import (
	"time"

	"github.com/gnana997/exportmap/pkg/ast"
	"github.com/gnana997/exportmap/pkg/doc"
	"github.com/gnana997/exportmap/pkg/parser"
	"github.com/gnana997/exportmap/pkg/settings"
)

// ParseGoal records how a module was classified.
type ParseGoal int

const (
	// GoalAmbiguous is the initial state, and the state of maps whose
	// source failed to parse.
	GoalAmbiguous ParseGoal = iota
	// GoalModule marks sources with static import/export statements.
	GoalModule
	// GoalScript marks sources admitted only for their dynamic imports.
	GoalScript
)

func (g ParseGoal) String() string {
	switch g {
	case GoalModule:
		return "Module"
	case GoalScript:
		return "Script"
	default:
		return "ambiguous"
	}
}

// ExportMap is the export surface of one module file.
//
// A map is immutable once built and safe for concurrent use. Maps with
// Errors cannot be trusted for Has, HasDeep or Get; check Errors first.
type ExportMap struct {
	// Path is the absolute path of the module.
	Path string

	// Namespace holds names the module exports directly, in export order.
	Namespace *OrderedMap[*ExportMeta]

	// Reexports holds names exported from other modules, by exported name.
	Reexports *OrderedMap[*Reexport]

	// Dependencies are the targets of export * from statements.
	Dependencies []*Edge

	// Imports are the modules this one imports, keyed by resolved path.
	Imports *OrderedMap[*Import]

	// Errors holds the parse error, if the source did not parse.
	Errors []*parser.ParseError

	// Mtime is the source modification time the map was built from.
	Mtime time.Time

	ParseGoal ParseGoal

	// Doc is the module's own @module documentation, if any.
	Doc *doc.Doc
}

func newExportMap(path string) *ExportMap {
	return &ExportMap{
		Path:      path,
		Namespace: NewOrderedMap[*ExportMeta](),
		Reexports: NewOrderedMap[*Reexport](),
		Imports:   NewOrderedMap[*Import](),
	}
}

// ExportMeta describes one exported name.
type ExportMeta struct {
	// Doc is the documentation captured from the declaration, if any.
	Doc *doc.Doc

	// namespace links exports that are whole module namespace objects
	// (export * as ns, or a re-exported import * as ns) to their module.
	namespace *Edge
}

// IsNamespace reports whether the export is a module namespace object.
func (m *ExportMeta) IsNamespace() bool {
	return m != nil && m.namespace != nil
}

// Namespace resolves the module a namespace export stands for. Returns nil
// for ordinary exports and for namespaces whose module is unresolvable.
func (m *ExportMeta) Namespace() *ExportMap {
	if m == nil {
		return nil
	}
	return m.namespace.Resolve()
}

// Deprecated reports whether the export is documented as deprecated.
func (m *ExportMeta) Deprecated() (bool, string) {
	if m == nil {
		return false, ""
	}
	return m.Doc.Deprecated()
}

// Reexport is a name exported from another module.
type Reexport struct {
	// Local is the name in the source module.
	Local string

	// Import is the source module.
	Import *Edge
}

// Import is a module imported (not re-exported) by a map's module.
type Import struct {
	Edge         *Edge
	Declarations []Declaration
}

// Declaration records one import statement (or dynamic import) of a module.
type Declaration struct {
	Source ast.StringLit

	// IsOnlyImportingTypes is true for import type and for statements whose
	// specifiers are all type-only. Side-effect imports are never type-only.
	IsOnlyImportingTypes bool

	// Names are the imported names of named specifiers.
	Names []string

	// Default and Namespace record default and namespace specifiers.
	Default   bool
	Namespace bool

	// Dynamic marks import() and require() calls.
	Dynamic bool
}

// Edge is a reference from one module to another. It holds the target path
// and the context needed to look the target up again in the graph; it does
// not hold the target map itself.
type Edge struct {
	// Specifier is the module specifier as written in the source.
	Specifier string

	// Path is the resolved path, empty when the specifier did not resolve.
	Path string

	graph *Graph
	ctx   *settings.Context
}

// Resolve returns the target map through the graph cache, or nil when the
// target is unresolvable, ignored or not a module.
func (e *Edge) Resolve() *ExportMap {
	if e == nil || e.Path == "" || e.graph == nil {
		return nil
	}
	return e.graph.For(e.ctx)
}

// Status qualifies the result of Get.
type Status int

const (
	// StatusNotFound means the name is not exported anywhere reachable.
	StatusNotFound Status = iota
	// StatusFound means the name was found; the meta is returned.
	StatusFound
	// StatusUnresolved means resolution reached a module that could not be
	// analysed (ignored or unresolvable), so the name may well exist.
	StatusUnresolved
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusUnresolved:
		return "unresolved"
	default:
		return "not found"
	}
}

// OrderedMap is a string-keyed map that remembers first-insertion order.
// Setting an existing key replaces its value but keeps its position.
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

// NewOrderedMap creates an empty OrderedMap.
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{values: make(map[string]V)}
}

func (m *OrderedMap[V]) Set(key string, value V) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *OrderedMap[V]) Get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *OrderedMap[V]) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

func (m *OrderedMap[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *OrderedMap[V]) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Range calls fn for each entry in insertion order until fn returns false.
func (m *OrderedMap[V]) Range(fn func(key string, value V) bool) {
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}
