package mcp

import "github.com/mark3labs/mcp-go/mcp"

func fileParam() mcp.ToolOption {
	return mcp.WithString("file",
		mcp.Required(),
		mcp.Description("Path of the module file; specifiers are resolved relative to it"),
	)
}

func listExportsTool() mcp.Tool {
	return mcp.NewTool("list_exports",
		mcp.WithDescription("List every name a module exports, including names reached through export * from, with JSDoc description and deprecation. Pass specifier to list the exports of a module imported by file instead."),
		mcp.WithReadOnlyHintAnnotation(true),
		fileParam(),
		mcp.WithString("specifier", mcp.Description("Import specifier to resolve from file, e.g. './utils' or 'lodash'")),
	)
}

func hasExportTool() mcp.Tool {
	return mcp.NewTool("has_export",
		mcp.WithDescription("Check whether the module imported as specifier from file exports name. Reports the shallow answer, the deep answer following re-exports, and the chain of modules traversed."),
		mcp.WithReadOnlyHintAnnotation(true),
		fileParam(),
		mcp.WithString("specifier", mcp.Required(), mcp.Description("Import specifier to resolve from file")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Exported name; use 'default' for the default export")),
	)
}

func resolveModuleTool() mcp.Tool {
	return mcp.NewTool("resolve_module",
		mcp.WithDescription("Resolve an import specifier from file to an absolute path using the configured resolvers."),
		mcp.WithReadOnlyHintAnnotation(true),
		fileParam(),
		mcp.WithString("specifier", mcp.Required(), mcp.Description("Import specifier to resolve")),
	)
}

func listImportsTool() mcp.Tool {
	return mcp.NewTool("list_imports",
		mcp.WithDescription("List the modules file imports (static and dynamic), with the imported names and whether only types are imported."),
		mcp.WithReadOnlyHintAnnotation(true),
		fileParam(),
	)
}

func warmWorkspaceTool() mcp.Tool {
	return mcp.NewTool("warm_workspace",
		mcp.WithDescription("Build the export maps of every module under root ahead of time and report how many are modules, excluded, or fail to parse."),
		mcp.WithString("root", mcp.Required(), mcp.Description("Directory to scan")),
	)
}

func cacheStatsTool() mcp.Tool {
	return mcp.NewTool("cache_stats",
		mcp.WithDescription("Report export-map cache statistics."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}
