package exportmap

import (
	"github.com/gnana997/exportmap/pkg/doc"
)

// ModuleReport is the JSON view of a map used by the CLI and MCP tools.
type ModuleReport struct {
	Path      string         `json:"path"`
	ParseGoal string         `json:"parse_goal"`
	Errors    []string       `json:"errors,omitempty"`
	Doc       *doc.Doc       `json:"doc,omitempty"`
	Size      int            `json:"size"`
	Exports   []ExportReport `json:"exports"`
}

// ExportReport describes one name from ForEach.
type ExportReport struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Deprecated  bool   `json:"deprecated,omitempty"`
	Deprecation string `json:"deprecation,omitempty"`

	// Namespace is the module path of a namespace export.
	Namespace string `json:"namespace,omitempty"`

	// Unresolved marks re-exports whose source could not be analysed.
	Unresolved bool `json:"unresolved,omitempty"`
}

// ImportReport describes one entry of the imports table.
type ImportReport struct {
	Path       string   `json:"path"`
	Specifiers []string `json:"specifiers"`
	TypesOnly  bool     `json:"types_only"`
	Dynamic    bool     `json:"dynamic,omitempty"`
	Names      []string `json:"names,omitempty"`
	Default    bool     `json:"default,omitempty"`
	Namespace  bool     `json:"namespace,omitempty"`
}

// DeepReport is the JSON view of Has plus HasDeep.
type DeepReport struct {
	Name   string   `json:"name"`
	Has    bool     `json:"has"`
	Found  bool     `json:"found"`
	Status string   `json:"status"`
	Path   []string `json:"path"`
}

// Report builds the ModuleReport of m.
func (m *ExportMap) Report() *ModuleReport {
	r := &ModuleReport{
		Path:      m.Path,
		ParseGoal: m.ParseGoal.String(),
		Doc:       m.Doc,
		Size:      m.Size(),
		Exports:   []ExportReport{},
	}
	for _, e := range m.Errors {
		r.Errors = append(r.Errors, e.Error())
	}
	m.ForEach(func(name string, meta *ExportMeta) {
		er := ExportReport{Name: name, Unresolved: meta == nil}
		if meta != nil {
			if meta.Doc != nil {
				er.Description = meta.Doc.Description
			}
			er.Deprecated, er.Deprecation = meta.Deprecated()
			if ns := meta.Namespace(); ns != nil {
				er.Namespace = ns.Path
			}
		}
		r.Exports = append(r.Exports, er)
	})
	return r
}

// ImportsReport lists the imports table in first-import order.
func (m *ExportMap) ImportsReport() []ImportReport {
	out := []ImportReport{}
	m.Imports.Range(func(path string, imp *Import) bool {
		ir := ImportReport{Path: path, TypesOnly: true}
		seen := map[string]bool{}
		for _, d := range imp.Declarations {
			if !seen[d.Source.Value] {
				seen[d.Source.Value] = true
				ir.Specifiers = append(ir.Specifiers, d.Source.Value)
			}
			ir.TypesOnly = ir.TypesOnly && d.IsOnlyImportingTypes
			ir.Dynamic = ir.Dynamic || d.Dynamic
			ir.Default = ir.Default || d.Default
			ir.Namespace = ir.Namespace || d.Namespace
			ir.Names = append(ir.Names, d.Names...)
		}
		out = append(out, ir)
		return true
	})
	return out
}

// DeepReport checks name with Has, HasDeep and Get.
func (m *ExportMap) DeepReport(name string) *DeepReport {
	deep := m.HasDeep(name)
	_, status := m.Get(name)
	r := &DeepReport{
		Name:   name,
		Has:    m.Has(name),
		Found:  deep.Found,
		Status: status.String(),
	}
	for _, p := range deep.Path {
		r.Path = append(r.Path, p.Path)
	}
	return r
}
