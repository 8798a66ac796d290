package main

import (
	"context"

	"github.com/spf13/cobra"

	mcpserver "github.com/gnana997/exportmap/pkg/mcp"
	"github.com/gnana997/exportmap/pkg/mcplog"
	"github.com/gnana997/exportmap/pkg/watch"
)

func newServeCmd(c *cli) *cobra.Command {
	var watchRoot string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve export queries over MCP on stdio",
		Long: `Start an MCP server on stdin/stdout exposing the list_exports, has_export,
resolve_module, list_imports, warm_workspace and cache_stats tools.

With --watch, modules under the given directory are invalidated as they change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			toolLog, err := mcplog.NewLogger(c.v.GetString("tool-log"), c.logger)
			if err != nil {
				return err
			}
			defer toolLog.Close()

			graph := c.open()
			defer c.close()

			if watchRoot != "" {
				root, err := rootArg([]string{watchRoot})
				if err != nil {
					return err
				}
				ctx, cancel := context.WithCancel(cmd.Context())
				defer cancel()
				errc := make(chan error, 1)
				go func() { errc <- c.watch(ctx, root, watch.DefaultOptions()) }()
				defer func() {
					cancel()
					if err := <-errc; err != nil {
						c.logger.Warn("watcher stopped with error", "error", err)
					}
				}()
			}

			srv := mcpserver.NewServer(graph, c.config, toolLog, version, c.logger)
			return srv.ServeStdio()
		},
	}
	cmd.Flags().String("tool-log", "", "append one JSON line per tool call to this file (env: EXPORTMAP_TOOL_LOG)")
	_ = c.v.BindPFlag("tool-log", cmd.Flags().Lookup("tool-log"))
	cmd.Flags().StringVar(&watchRoot, "watch", "", "invalidate modules under this directory as they change")
	return cmd
}
