package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gnana997/exportmap/pkg/mcplog"
)

// recordCalls appends every tool call to the server's tool log. Write
// failures are logged and never change the tool result.
func (s *Server) recordCalls() server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			started := time.Now()
			result, err := next(ctx, req)

			if werr := s.toolLog.Record(mcplog.Call{
				Tool:    req.Params.Name,
				Args:    req.GetArguments(),
				Started: started,
				Elapsed: time.Since(started),
				Result:  result,
				Err:     err,
			}); werr != nil {
				s.logger.Warn("failed to write tool log", "tool", req.Params.Name, "error", werr)
			}
			return result, err
		}
	}
}
