package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gnana997/exportmap/pkg/exportmap"
	"github.com/gnana997/exportmap/pkg/settings"
	"github.com/gnana997/exportmap/pkg/workspace"
)

// collector gathers diagnostics reported while answering one call.
type collector struct {
	messages []string
}

func (c *collector) Report(d settings.Diagnostic) {
	c.messages = append(c.messages, d.Message)
}

// contextFor builds the analysis context of the file argument.
func (s *Server) contextFor(req mcp.CallToolRequest) (*settings.Context, *collector, error) {
	file, err := req.RequireString("file")
	if err != nil {
		return nil, nil, err
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, nil, err
	}
	diags := &collector{}
	return settings.NewContext(abs, s.config, diags), diags, nil
}

// target returns the map of the file argument, or of the specifier argument
// resolved from it when present.
func (s *Server) target(req mcp.CallToolRequest, specifier string) (*exportmap.ExportMap, *collector, error) {
	ctx, diags, err := s.contextFor(req)
	if err != nil {
		return nil, nil, err
	}
	if specifier == "" {
		return s.graph.For(ctx), diags, nil
	}
	return s.graph.Get(specifier, ctx), diags, nil
}

func notAModule(what string, diags *collector) *mcp.CallToolResult {
	msg := fmt.Sprintf("%s is not an analysable module (unresolved, ignored, or has no import/export statements)", what)
	if len(diags.messages) > 0 {
		msg += ": " + strings.Join(diags.messages, "; ")
	}
	return mcp.NewToolResultError(msg)
}

func (s *Server) handleListExports(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	specifier := req.GetString("specifier", "")
	m, diags, err := s.target(req, specifier)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if m == nil {
		return notAModule(firstNonEmpty(specifier, req.GetString("file", "")), diags), nil
	}
	return jsonResult(m.Report())
}

func (s *Server) handleHasExport(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	specifier, err := req.RequireString("specifier")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, diags, err := s.target(req, specifier)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if m == nil {
		return notAModule(specifier, diags), nil
	}

	report := m.DeepReport(name)
	out := map[string]any{
		"module": m.Path,
		"result": report,
	}
	if len(m.Errors) > 0 {
		var errs []string
		for _, e := range m.Errors {
			errs = append(errs, e.Error())
		}
		out["parse_errors"] = errs
	}
	return jsonResult(out)
}

func (s *Server) handleResolveModule(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	specifier, err := req.RequireString("specifier")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ctx, diags, err := s.contextFor(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	path := s.graph.Resolver().Resolve(specifier, ctx)
	out := map[string]any{
		"specifier": specifier,
		"found":     path != "",
		"path":      path,
	}
	if len(diags.messages) > 0 {
		out["diagnostics"] = diags.messages
	}
	return jsonResult(out)
}

func (s *Server) handleListImports(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m, diags, err := s.target(req, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if m == nil {
		return notAModule(req.GetString("file", ""), diags), nil
	}
	return jsonResult(m.ImportsReport())
}

func (s *Server) handleWarmWorkspace(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, err := req.RequireString("root")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	stats, err := s.warmer.Warm(ctx, root, workspace.DefaultOptions(), nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	failed := make([]string, 0, len(stats.Errors))
	for _, fe := range stats.Errors {
		failed = append(failed, fmt.Sprintf("%s: %v", fe.FilePath, fe.Error))
	}
	return jsonResult(map[string]any{
		"files":       stats.FilesDiscovered,
		"modules":     stats.Modules,
		"excluded":    stats.Excluded,
		"with_errors": stats.WithErrors,
		"errors":      failed,
		"duration_ms": stats.TotalTimeMs,
		"cancelled":   stats.Cancelled,
	})
}

func (s *Server) handleCacheStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.graph.Stats()
	return jsonResult(map[string]any{
		"entries":        st.Entries,
		"hits":           st.Hits,
		"misses":         st.Misses,
		"stale":          st.Stale,
		"excluded":       st.Excluded,
		"sources_cached": st.Sources.FilesCached,
		"parses":         st.Parser.Parses,
		"parse_errors":   st.Parser.ErrorTrees,
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
