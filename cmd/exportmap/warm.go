package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gnana997/exportmap/pkg/workspace"
)

type warmFlags struct {
	workers int
	include []string
	exclude []string
}

func (f *warmFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "concurrent builds (0 = number of CPUs)")
	cmd.Flags().StringSliceVar(&f.include, "include", nil, "doublestar patterns of files to build (default: every module extension)")
	cmd.Flags().StringSliceVar(&f.exclude, "exclude", nil, "extra doublestar patterns to skip")
}

func (f *warmFlags) options() workspace.Options {
	opts := workspace.DefaultOptions()
	opts.Workers = f.workers
	opts.Include = f.include
	opts.Exclude = append(opts.Exclude, f.exclude...)
	return opts
}

func newWarmCmd(c *cli) *cobra.Command {
	var flags warmFlags
	cmd := &cobra.Command{
		Use:   "warm [root]",
		Short: "Build the export map of every module under a directory",
		Long: `Build the export map of every module under root (default: the current
directory) and report how many were excluded or had parse errors.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := rootArg(args)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			defer c.close()
			stats, err := c.warm(ctx, root, flags.options())
			if err != nil {
				return err
			}
			return c.emit(cmd.OutOrStdout(), warmResult(root, stats), func(w io.Writer) {
				printWarmStats(w, root, stats)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *cli) warm(ctx context.Context, root string, opts workspace.Options) (*workspace.Stats, error) {
	warmer := workspace.NewWarmer(c.open(), c.config, c.logger)
	return warmer.Warm(ctx, root, opts, func(done, total int, file string) {
		c.logger.Debug("built", "done", done, "total", total, "file", file)
	})
}

func rootArg(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	return filepath.Abs(root)
}
