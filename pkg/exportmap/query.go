package exportmap

import (
	"fmt"
	"strings"

	"github.com/gnana997/exportmap/pkg/ast"
	"github.com/gnana997/exportmap/pkg/settings"
)

// Default is the name of the default export. It is never forwarded through
// export * from.
const Default = "default"

type visitKey struct {
	path string
	name string
}

// DeepResult is the outcome of HasDeep. Path lists the maps traversed, from
// the receiver to the map where the search ended.
type DeepResult struct {
	Found bool
	Path  []*ExportMap
}

// Has reports whether the module exports name, directly, by re-export, or
// through export * from. Unresolvable star dependencies are skipped.
func (m *ExportMap) Has(name string) bool {
	return m.has(name, make(map[string]bool))
}

func (m *ExportMap) has(name string, seen map[string]bool) bool {
	if seen[m.Path] {
		return false
	}
	seen[m.Path] = true

	if m.Namespace.Has(name) || m.Reexports.Has(name) {
		return true
	}
	if name == Default {
		return false
	}
	for _, dep := range m.Dependencies {
		inner := dep.Resolve()
		if inner == nil {
			continue
		}
		if inner.has(name, seen) {
			return true
		}
	}
	return false
}

// HasDeep is like Has but follows re-exports to their source and is
// optimistic: reaching a module that cannot be analysed counts as found.
func (m *ExportMap) HasDeep(name string) DeepResult {
	return m.hasDeep(name, make(map[visitKey]bool))
}

func (m *ExportMap) hasDeep(name string, seen map[visitKey]bool) DeepResult {
	here := DeepResult{Path: []*ExportMap{m}}
	key := visitKey{m.Path, name}
	if seen[key] {
		return here
	}
	seen[key] = true

	if m.Namespace.Has(name) {
		here.Found = true
		return here
	}
	if re, ok := m.Reexports.Get(name); ok {
		imported := re.Import.Resolve()
		if imported == nil {
			here.Found = true
			return here
		}
		deep := imported.hasDeep(re.Local, seen)
		deep.Path = append([]*ExportMap{m}, deep.Path...)
		return deep
	}
	if name == Default {
		return here
	}
	for _, dep := range m.Dependencies {
		inner := dep.Resolve()
		if inner == nil {
			here.Found = true
			return here
		}
		if inner.Path == m.Path {
			continue
		}
		deep := inner.hasDeep(name, seen)
		if deep.Found {
			deep.Path = append([]*ExportMap{m}, deep.Path...)
			return deep
		}
	}
	return here
}

// Get looks up the metadata of an exported name. The status tells a missing
// name (StatusNotFound) apart from one that leads into a module that could
// not be analysed (StatusUnresolved).
func (m *ExportMap) Get(name string) (*ExportMeta, Status) {
	return m.get(name, make(map[visitKey]bool))
}

func (m *ExportMap) get(name string, seen map[visitKey]bool) (*ExportMeta, Status) {
	key := visitKey{m.Path, name}
	if seen[key] {
		return nil, StatusNotFound
	}
	seen[key] = true

	if meta, ok := m.Namespace.Get(name); ok {
		return meta, StatusFound
	}
	if re, ok := m.Reexports.Get(name); ok {
		imported := re.Import.Resolve()
		if imported == nil {
			return nil, StatusUnresolved
		}
		return imported.get(re.Local, seen)
	}
	if name == Default {
		return nil, StatusNotFound
	}
	for _, dep := range m.Dependencies {
		inner := dep.Resolve()
		if inner == nil || inner.Path == m.Path {
			continue
		}
		if meta, status := inner.get(name, seen); status != StatusNotFound {
			return meta, status
		}
	}
	return nil, StatusNotFound
}

// ForEach calls fn for every exported name: own names first, then
// re-exports, then the non-default names of each star dependency. Re-exports
// whose source cannot be analysed are reported with a nil meta. Names repeat
// when several star dependencies lead to them; only cycles are cut.
func (m *ExportMap) ForEach(fn func(name string, meta *ExportMeta)) {
	m.forEach(fn, make(map[string]bool))
}

func (m *ExportMap) forEach(fn func(string, *ExportMeta), seen map[string]bool) {
	if seen[m.Path] {
		return
	}
	seen[m.Path] = true
	defer delete(seen, m.Path)

	m.Namespace.Range(func(name string, meta *ExportMeta) bool {
		fn(name, meta)
		return true
	})
	m.Reexports.Range(func(name string, re *Reexport) bool {
		var meta *ExportMeta
		if imported := re.Import.Resolve(); imported != nil {
			meta, _ = imported.Get(re.Local)
		}
		fn(name, meta)
		return true
	})
	for _, dep := range m.Dependencies {
		inner := dep.Resolve()
		if inner == nil {
			continue
		}
		inner.forEach(func(name string, meta *ExportMeta) {
			if name != Default {
				fn(name, meta)
			}
		}, seen)
	}
}

// Size counts own names and re-exports plus the sizes of resolvable star
// dependencies. A module reached through two star exports counts twice, so
// Size is an upper bound on the distinct names.
func (m *ExportMap) Size() int {
	return m.size(make(map[string]bool))
}

func (m *ExportMap) size(seen map[string]bool) int {
	if seen[m.Path] {
		return 0
	}
	seen[m.Path] = true
	defer delete(seen, m.Path)

	n := m.Namespace.Len() + m.Reexports.Len()
	for _, dep := range m.Dependencies {
		if inner := dep.Resolve(); inner != nil {
			n += inner.size(seen)
		}
	}
	return n
}

// HasDefault reports whether Get finds a default export.
func (m *ExportMap) HasDefault() bool {
	_, status := m.Get(Default)
	return status == StatusFound
}

// ReportErrors reports the map's parse errors against the import statement
// whose source is given.
func (m *ExportMap) ReportErrors(ctx *settings.Context, source ast.StringLit) {
	if len(m.Errors) == 0 {
		return
	}
	msgs := make([]string, len(m.Errors))
	for i, e := range m.Errors {
		msgs[i] = fmt.Sprintf("%s (%d:%d)", e.Message, e.Line, e.Column)
	}
	ctx.Report(settings.Diagnostic{
		Message: fmt.Sprintf("Parse errors in imported module '%s': %s", source.Value, strings.Join(msgs, ", ")),
		Span:    source.Span,
	})
}
