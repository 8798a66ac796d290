// Package mcp exposes export-graph queries as MCP tools over stdio.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/gnana997/exportmap/pkg/exportmap"
	"github.com/gnana997/exportmap/pkg/mcplog"
	"github.com/gnana997/exportmap/pkg/settings"
	"github.com/gnana997/exportmap/pkg/workspace"
)

const serverName = "exportmap"

// Server answers tool calls from one Graph. Every call builds its contexts
// from the same configuration, so cached maps are shared across calls.
type Server struct {
	mcpServer *server.MCPServer
	graph     *exportmap.Graph
	config    *settings.Config
	warmer    *workspace.Warmer
	toolLog   *mcplog.Logger // nil disables the JSONL log
	logger    *slog.Logger
}

// NewServer creates the MCP server. toolLog may be nil.
func NewServer(graph *exportmap.Graph, cfg *settings.Config, toolLog *mcplog.Logger, version string, logger *slog.Logger) *Server {
	if cfg == nil {
		cfg = settings.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		graph:   graph,
		config:  cfg,
		warmer:  workspace.NewWarmer(graph, cfg, logger),
		toolLog: toolLog,
		logger:  logger,
	}

	opts := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	}
	if toolLog != nil {
		opts = append(opts, server.WithToolHandlerMiddleware(s.recordCalls()))
	}
	s.mcpServer = server.NewMCPServer(serverName, version, opts...)

	s.mcpServer.AddTools(
		server.ServerTool{Tool: listExportsTool(), Handler: s.handleListExports},
		server.ServerTool{Tool: hasExportTool(), Handler: s.handleHasExport},
		server.ServerTool{Tool: resolveModuleTool(), Handler: s.handleResolveModule},
		server.ServerTool{Tool: listImportsTool(), Handler: s.handleListImports},
		server.ServerTool{Tool: warmWorkspaceTool(), Handler: s.handleWarmWorkspace},
		server.ServerTool{Tool: cacheStatsTool(), Handler: s.handleCacheStats},
	)

	return s
}

// ServeStdio serves MCP on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
