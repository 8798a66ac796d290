package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gnana997/exportmap/pkg/watch"
)

func newWatchCmd(c *cli) *cobra.Command {
	var (
		flags    warmFlags
		debounce time.Duration
		noWarm   bool
	)
	cmd := &cobra.Command{
		Use:   "watch [root]",
		Short: "Keep export maps current while files change",
		Long: `Warm every module under root, then watch it: changed modules are
invalidated and rebuilt on next use, and a change to tsconfig.json or
package.json resets the configuration and resolution caches.

Runs until interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := rootArg(args)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			defer c.close()

			out := cmd.OutOrStdout()
			if !noWarm {
				stats, err := c.warm(ctx, root, flags.options())
				if err != nil {
					return err
				}
				if !c.jsonOutput() {
					printWarmStats(out, root, stats)
				}
			}

			opts := watch.DefaultOptions()
			opts.Debounce = debounce
			opts.Ignore = append(opts.Ignore, flags.exclude...)
			opts.OnInvalidate = func(ev watch.Event) {
				c.reportEvent(out, ev)
			}
			return c.watch(ctx, root, opts)
		},
	}
	flags.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultOptions().Debounce, "delay grouping rapid changes to one file")
	cmd.Flags().BoolVar(&noWarm, "no-warm", false, "skip the initial warm-up")
	return cmd
}

// watch runs a watcher on root until ctx is done.
func (c *cli) watch(ctx context.Context, root string, opts watch.Options) error {
	w, err := watch.New(c.open(), opts, c.logger)
	if err != nil {
		return err
	}
	if err := w.Start(root); err != nil {
		return err
	}
	c.logger.Info("watching", "root", root, "dirs", w.Stats().WatchedDirs)

	<-ctx.Done()
	st := w.Stats()
	c.logger.Info("stopped watching",
		"invalidations", st.Invalidations,
		"config_resets", st.ConfigResets,
	)
	return w.Stop()
}

func (c *cli) reportEvent(w io.Writer, ev watch.Event) {
	kind := "changed"
	if ev.Config {
		kind = "config"
	}
	if c.jsonOutput() {
		_ = writeJSON(w, map[string]any{
			"event": kind,
			"path":  ev.Path,
			"op":    ev.Op.String(),
		})
		return
	}
	fprintf(w, "%-7s %s\n", kind, ev.Path)
}
