package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gnana997/exportmap/pkg/exportmap"
	"github.com/gnana997/exportmap/pkg/settings"
	"github.com/gnana997/exportmap/pkg/util"
)

// Environment variables override the config file; flags override both.
const envPrefix = "EXPORTMAP"

const defaultConfigFile = ".exportmap.yaml"

// cli is the state shared by every command of one invocation.
type cli struct {
	v      *viper.Viper
	config *settings.Config
	logger *slog.Logger
	graph  *exportmap.Graph
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

func newRootCmd() *cobra.Command {
	c := &cli{v: newViper()}

	root := &cobra.Command{
		Use:   "exportmap",
		Short: "Resolve what JavaScript and TypeScript modules export",
		Long: `exportmap builds export maps of JavaScript and TypeScript modules: the
names each module exports, including names re-exported through
"export * from", with their JSDoc or TomDoc documentation.

It provides commands to:
  - List the exports and imports of a module
  - Check whether a name is exported, following re-export chains
  - Resolve import specifiers the way the configured resolvers do
  - Warm and watch a workspace, or serve queries over MCP`,
		PersistentPreRunE: c.prepare,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", defaultConfigFile, "settings file (env: EXPORTMAP_CONFIG)")
	flags.StringSlice("ext", nil, "module extensions, replacing the configured ones (env: EXPORTMAP_EXT)")
	flags.String("tsconfig-root", "", "directory where tsconfig.json lookup starts (env: EXPORTMAP_TSCONFIG_ROOT)")
	flags.String("log-level", "warn", "log level: debug, info, warn, error (env: EXPORTMAP_LOG_LEVEL)")
	flags.String("log-format", string(util.FormatPretty), "log format: pretty, text, json (env: EXPORTMAP_LOG_FORMAT)")
	flags.Bool("json", false, "print results as JSON")
	_ = c.v.BindPFlags(flags)

	root.AddCommand(
		newExportsCmd(c),
		newHasCmd(c),
		newResolveCmd(c),
		newImportsCmd(c),
		newWarmCmd(c),
		newWatchCmd(c),
		newServeCmd(c),
		newSetupCmd(),
		newVersionCmd(),
	)
	return root
}

// prepare sets up logging and loads settings.
func (c *cli) prepare(cmd *cobra.Command, _ []string) error {
	c.logger = util.NewLogger(util.LoggerConfig{
		Level:  util.ParseLogLevel(c.v.GetString("log-level")),
		Format: util.LogFormat(c.v.GetString("log-format")),
		Output: cmd.ErrOrStderr(),
	})
	util.SetDefault(c.logger)

	path := c.v.GetString("config")
	cfg, err := settings.LoadOptional(path)
	if err != nil {
		return err
	}
	if exts := c.v.GetStringSlice("ext"); len(exts) > 0 {
		cfg.Settings.Extensions = normalizeExtensions(exts)
	}
	if root := c.v.GetString("tsconfig-root"); root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return err
		}
		cfg.ParserOptions.TSConfigRootDir = abs
	}
	c.config = cfg

	c.logger.Debug("configuration loaded",
		"config", path,
		"extensions", cfg.Settings.Extensions,
		"resolvers", len(cfg.Settings.Resolvers),
	)
	return nil
}

// open returns the graph, creating it on first use.
func (c *cli) open() *exportmap.Graph {
	if c.graph == nil {
		c.graph = exportmap.NewGraph(exportmap.GraphConfig{Logger: c.logger})
	}
	return c.graph
}

func (c *cli) close() {
	if c.graph == nil {
		return
	}
	if err := c.graph.Close(); err != nil {
		c.logger.Warn("failed to close graph", "error", err)
	}
	c.graph = nil
}

// context builds the analysis context of file. Resolver diagnostics are
// logged as warnings.
func (c *cli) context(file string) (*settings.Context, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", file, err)
	}
	report := settings.ReporterFunc(func(d settings.Diagnostic) {
		c.logger.Warn(d.Message, "path", d.Path)
	})
	return settings.NewContext(abs, c.config, report), nil
}

func (c *cli) jsonOutput() bool {
	return c.v.GetBool("json")
}

// emit writes v as JSON when --json is set, otherwise calls human.
func (c *cli) emit(w io.Writer, v any, human func(io.Writer)) error {
	if c.jsonOutput() {
		return writeJSON(w, v)
	}
	human(w)
	return nil
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
