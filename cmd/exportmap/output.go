package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gnana997/exportmap/pkg/exportmap"
	"github.com/gnana997/exportmap/pkg/workspace"
)

const maxWidth = 80

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func fprintf(w io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(w, format, a...)
}

// printExports renders a module report: a header, then one row per export
// with its notes and wrapped description.
func printExports(w io.Writer, r *exportmap.ModuleReport) {
	fprintf(w, "%s  [%s]\n", r.Path, r.ParseGoal)
	if r.Doc != nil && r.Doc.Description != "" {
		fprintln(w)
		printWrapped(w, r.Doc.Description, 2, maxWidth)
	}
	if len(r.Errors) > 0 {
		fprintln(w)
		fprintln(w, "Parse errors")
		for _, e := range r.Errors {
			fprintf(w, "  %s\n", e)
		}
	}

	fprintln(w)
	if len(r.Exports) == 0 {
		fprintln(w, "Exports  (none)")
		return
	}
	fprintf(w, "Exports  (%d)\n", r.Size)

	nameW := 0
	for _, e := range r.Exports {
		nameW = max(nameW, len(e.Name))
	}
	for _, e := range r.Exports {
		var notes []string
		if e.Namespace != "" {
			notes = append(notes, "namespace of "+relTo(r.Path, e.Namespace))
		}
		if e.Unresolved {
			notes = append(notes, "unresolved")
		}
		if e.Deprecated {
			notes = append(notes, "deprecated")
		}
		fprintf(w, "  %-*s  %s\n", nameW, e.Name, strings.Join(notes, ", "))

		if e.Deprecation != "" {
			printWrapped(w, "Deprecated: "+e.Deprecation, nameW+4, maxWidth)
		}
		if e.Description != "" {
			printWrapped(w, e.Description, nameW+4, maxWidth)
		}
	}
}

func printDeep(w io.Writer, r *exportmap.DeepReport) {
	if !r.Found {
		fprintf(w, "%s: not exported\n", r.Name)
		return
	}
	fprintf(w, "%s: %s\n", r.Name, r.Status)
	for i, hop := range r.Path {
		fprintf(w, "  %s%s\n", strings.Repeat("  ", i), hop)
	}
}

func printImports(w io.Writer, imports []exportmap.ImportReport) {
	if len(imports) == 0 {
		fprintln(w, "Imports  (none)")
		return
	}
	fprintln(w, "Imports")
	for _, imp := range imports {
		var kinds []string
		if imp.Default {
			kinds = append(kinds, "default")
		}
		if imp.Namespace {
			kinds = append(kinds, "namespace")
		}
		kinds = append(kinds, imp.Names...)
		if imp.Dynamic {
			kinds = append(kinds, "dynamic")
		}
		if imp.TypesOnly {
			kinds = append(kinds, "types only")
		}

		fprintf(w, "  %s\n", imp.Path)
		fprintf(w, "    from %s", strings.Join(quoteAll(imp.Specifiers), ", "))
		if len(kinds) > 0 {
			fprintf(w, "  { %s }", strings.Join(kinds, ", "))
		}
		fprintln(w)
	}
}

func printWarmStats(w io.Writer, root string, s *workspace.Stats) {
	fprintf(w, "Warmed %s\n", root)
	fprintf(w, "  files       %d\n", s.FilesDiscovered)
	fprintf(w, "  modules     %d\n", s.Modules)
	fprintf(w, "  excluded    %d\n", s.Excluded)
	fprintf(w, "  with errors %d\n", s.WithErrors)
	fprintf(w, "  workers     %d\n", s.WorkerCount)
	fprintf(w, "  time        %dms (%.0f files/s)\n", s.TotalTimeMs, s.FilesPerSecond)
	if s.Cancelled {
		fprintln(w, "  cancelled")
	}
	for _, fe := range s.Errors {
		fprintf(w, "  ! %s: %v\n", relTo(root, fe.FilePath), fe.Error)
	}
}

// warmResult is the JSON shape of a warm run.
func warmResult(root string, s *workspace.Stats) map[string]any {
	failed := make([]map[string]string, 0, len(s.Errors))
	for _, fe := range s.Errors {
		failed = append(failed, map[string]string{"path": fe.FilePath, "error": fe.Error.Error()})
	}
	return map[string]any{
		"root":             root,
		"files":            s.FilesDiscovered,
		"modules":          s.Modules,
		"excluded":         s.Excluded,
		"with_errors":      s.WithErrors,
		"errors":           failed,
		"workers":          s.WorkerCount,
		"duration_ms":      s.TotalTimeMs,
		"files_per_second": s.FilesPerSecond,
		"cancelled":        s.Cancelled,
	}
}

// relTo shortens path relative to base's directory when it is beneath it.
func relTo(base, path string) string {
	dir := base
	if filepath.Ext(base) != "" {
		dir = filepath.Dir(base)
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func quoteAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%q", v)
	}
	return out
}

// printWrapped prints text word-wrapped at width with the given left indent.
func printWrapped(w io.Writer, text string, indent, width int) {
	words := strings.Fields(text)
	prefix := strings.Repeat(" ", indent)
	line := prefix
	for _, word := range words {
		if len(line)+len(word)+1 > width && line != prefix {
			fprintln(w, line)
			line = prefix + word
			continue
		}
		if line == prefix {
			line += word
		} else {
			line += " " + word
		}
	}
	if line != prefix {
		fprintln(w, line)
	}
}
