package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/gnana997/exportmap/pkg/exportmap"
)

func newExportsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "exports <file> [specifier]",
		Short: "List the names a module exports",
		Long: `List every name a module exports, including names reached through
"export * from", with their documentation.

With a specifier, it is resolved from <file> and the target module is listed.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, what, err := c.load(args)
			if err != nil {
				return err
			}
			defer c.close()
			if m == nil {
				return notFound("%s is not a module", what)
			}

			report := m.Report()
			return c.emit(cmd.OutOrStdout(), report, func(w io.Writer) {
				printExports(w, report)
			})
		},
	}
}

func newHasCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "has <file> <specifier> <name>",
		Short: "Check whether a module exports a name",
		Long: `Check whether the module <specifier>, imported from <file>, exports <name>.
The re-export chain the name was found through is printed.

Exits with status 2 when the name is not exported.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, what, err := c.load(args[:2])
			if err != nil {
				return err
			}
			defer c.close()
			if m == nil {
				return notFound("%s is not a module", what)
			}

			report := m.DeepReport(args[2])
			if err := c.emit(cmd.OutOrStdout(), report, func(w io.Writer) {
				printDeep(w, report)
			}); err != nil {
				return err
			}
			if !report.Found {
				return &exitError{Code: exitNotFound}
			}
			return nil
		},
	}
}

func newResolveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <file> <specifier>",
		Short: "Resolve an import specifier to a path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := c.context(args[0])
			if err != nil {
				return err
			}
			g := c.open()
			defer c.close()

			path := g.Resolver().Resolve(args[1], ctx)
			result := map[string]any{
				"specifier": args[1],
				"found":     path != "",
				"path":      path,
			}
			if err := c.emit(cmd.OutOrStdout(), result, func(w io.Writer) {
				if path != "" {
					fprintln(w, path)
				}
			}); err != nil {
				return err
			}
			if path == "" {
				return notFound("unable to resolve %q", args[1])
			}
			return nil
		},
	}
}

func newImportsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "imports <file>",
		Short: "List the modules a file imports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, what, err := c.load(args)
			if err != nil {
				return err
			}
			defer c.close()
			if m == nil {
				return notFound("%s is not a module", what)
			}

			imports := m.ImportsReport()
			return c.emit(cmd.OutOrStdout(), imports, func(w io.Writer) {
				printImports(w, imports)
			})
		},
	}
}

// load returns the map of args[0], or of args[1] resolved from args[0] when
// given, plus a description of what was loaded for error messages.
func (c *cli) load(args []string) (*exportmap.ExportMap, string, error) {
	ctx, err := c.context(args[0])
	if err != nil {
		return nil, "", err
	}
	g := c.open()
	if len(args) > 1 {
		return g.Get(args[1], ctx), args[1], nil
	}
	return g.For(ctx), args[0], nil
}
