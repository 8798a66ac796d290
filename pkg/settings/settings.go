// Package settings holds the analysis configuration shared by the resolver,
// the ignore filter, the parser adapter and the export graph, plus the
// per-file Context they are all called with.
package settings

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gnana997/exportmap/pkg/doc"
)

// DefaultCacheLifetime bounds how long a resolved path is trusted.
const DefaultCacheLifetime = 30 * time.Second

// Settings control which files are modules and how specifiers resolve.
type Settings struct {
	// Extensions are the file extensions considered modules (default [.js]).
	Extensions []string `yaml:"extensions" json:"extensions,omitempty"`

	// Parsers maps a parser name to the extensions it handles. Every listed
	// extension is also a valid module extension.
	Parsers map[string][]string `yaml:"parsers" json:"parsers,omitempty"`

	// Ignore holds regular expressions; matching resolved paths are excluded.
	Ignore []string `yaml:"ignore" json:"ignore,omitempty"`

	// IgnoreGlobs holds doublestar patterns; matching resolved paths are excluded.
	IgnoreGlobs []string `yaml:"ignore_globs" json:"ignore_globs,omitempty"`

	// ExternalModuleFolders are directory names holding third-party packages.
	ExternalModuleFolders []string `yaml:"external_module_folders" json:"external_module_folders,omitempty"`

	// CoreModules are specifiers that resolve as found without a path,
	// like Node built-ins (electron, for example).
	CoreModules []string `yaml:"core_modules" json:"core_modules,omitempty"`

	// DocStyle lists the doc comment styles to extract, in order.
	DocStyle []string `yaml:"docstyle" json:"docstyle,omitempty"`

	// Resolvers are tried in order; the first to find a path wins.
	Resolvers []ResolverConfig `yaml:"resolvers" json:"resolvers,omitempty"`

	Cache CacheSettings `yaml:"cache" json:"cache"`
}

// ResolverConfig selects a resolver by name with resolver-specific options.
type ResolverConfig struct {
	Name    string         `yaml:"name" json:"name"`
	Options map[string]any `yaml:"options" json:"options,omitempty"`
}

// CacheSettings controls the resolution cache.
type CacheSettings struct {
	Lifetime Lifetime `yaml:"lifetime" json:"lifetime"`
}

// Lifetime is a cache TTL. Zero means the default; negative means entries
// never expire. In YAML it is a number of seconds, a Go duration string, or
// "∞" / "infinity".
type Lifetime time.Duration

// UnmarshalYAML accepts seconds, durations and infinity markers.
func (l *Lifetime) UnmarshalYAML(value *yaml.Node) error {
	raw := strings.TrimSpace(value.Value)
	switch strings.ToLower(raw) {
	case "":
		*l = 0
		return nil
	case "∞", "inf", "infinity":
		*l = Lifetime(-1)
		return nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		if secs < 0 {
			*l = Lifetime(-1)
			return nil
		}
		*l = Lifetime(time.Duration(secs * float64(time.Second)))
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid cache lifetime %q", raw)
	}
	*l = Lifetime(d)
	return nil
}

// Duration returns the effective TTL; negative means no expiry.
func (l Lifetime) Duration() time.Duration {
	if l == 0 {
		return DefaultCacheLifetime
	}
	return time.Duration(l)
}

// ParserOptions are the options handed to the parser backend.
type ParserOptions struct {
	// Parser names the parser backend; it is part of every cache key.
	Parser string `yaml:"parser" json:"parser,omitempty"`

	// TSConfigRootDir is where tsconfig.json lookup starts.
	TSConfigRootDir string `yaml:"tsconfig_root_dir" json:"tsconfig_root_dir,omitempty"`

	// Project lists candidate tsconfig paths; the first existing one is used.
	Project []string `yaml:"project" json:"project,omitempty"`

	EcmaVersion int    `yaml:"ecma_version" json:"ecma_version,omitempty"`
	SourceType  string `yaml:"source_type" json:"source_type,omitempty"`

	// JSX parses TypeScript files with the TSX grammar.
	JSX bool `yaml:"jsx" json:"jsx,omitempty"`
}

// Config is the on-disk configuration file.
type Config struct {
	Settings      Settings      `yaml:"settings"`
	ParserOptions ParserOptions `yaml:"parser_options"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML configuration file and fills in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional is Load that returns Default() when path does not exist.
func LoadOptional(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Parse decodes YAML configuration and fills in defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	for _, s := range c.Settings.DocStyle {
		if _, err := doc.ParseStyle(s); err != nil {
			return err
		}
	}
	for i, r := range c.Settings.Resolvers {
		if r.Name == "" {
			return fmt.Errorf("resolvers[%d]: missing name", i)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	s := &c.Settings
	if len(s.Extensions) == 0 {
		s.Extensions = []string{".js"}
	}
	if len(s.ExternalModuleFolders) == 0 {
		s.ExternalModuleFolders = []string{"node_modules"}
	}
	if len(s.DocStyle) == 0 {
		s.DocStyle = []string{string(doc.StyleJSDoc)}
	}
	if len(s.Resolvers) == 0 {
		s.Resolvers = []ResolverConfig{{Name: "node"}}
	}
	if c.ParserOptions.Parser == "" {
		c.ParserOptions.Parser = DefaultParser
	}
}

// DefaultParser is the parser identity used when none is configured.
const DefaultParser = "tree-sitter"

// DocStyles returns the configured doc styles, skipping unknown names.
func (s *Settings) DocStyles() []doc.Style {
	if s == nil || len(s.DocStyle) == 0 {
		return doc.DefaultStyles
	}
	styles := make([]doc.Style, 0, len(s.DocStyle))
	for _, name := range s.DocStyle {
		if style, err := doc.ParseStyle(name); err == nil {
			styles = append(styles, style)
		}
	}
	return styles
}

// ValidExtensions returns Extensions plus every parser-mapped extension.
func (s *Settings) ValidExtensions() []string {
	if s == nil {
		return []string{".js"}
	}
	seen := make(map[string]bool)
	var out []string
	add := func(ext string) {
		if ext != "" && !seen[ext] {
			seen[ext] = true
			out = append(out, ext)
		}
	}
	exts := s.Extensions
	if len(exts) == 0 {
		exts = []string{".js"}
	}
	for _, ext := range exts {
		add(ext)
	}
	for _, name := range sortedKeys(s.Parsers) {
		for _, ext := range s.Parsers[name] {
			add(ext)
		}
	}
	return out
}

// ResolverOption returns a string option of the named resolver.
func (s *Settings) ResolverOption(resolver, key string) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, r := range s.Resolvers {
		if r.Name != resolver {
			continue
		}
		v, ok := r.Options[key].(string)
		return v, ok
	}
	return "", false
}

// ResolverStrings returns a string-list option of the named resolver.
func (s *Settings) ResolverStrings(resolver, key string) []string {
	if s == nil {
		return nil
	}
	for _, r := range s.Resolvers {
		if r.Name != resolver {
			continue
		}
		switch v := r.Options[key].(type) {
		case []string:
			return v
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				if str, ok := item.(string); ok {
					out = append(out, str)
				}
			}
			return out
		case string:
			return []string{v}
		}
	}
	return nil
}
