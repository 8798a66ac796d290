package resolve

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/gnana997/exportmap/pkg/settings"
)

// DefaultNodeExtensions are probed, in order, for extensionless specifiers.
var DefaultNodeExtensions = []string{".mjs", ".js", ".json", ".node"}

// NodeResolver follows Node's CommonJS resolution algorithm: relative and
// absolute paths with extension probing, directory package.json and index
// files, and bare specifiers looked up through node_modules directories.
//
// Options: "extensions" (list), "moduleDirectory" (list; defaults to the
// external_module_folders setting).
type NodeResolver struct{}

// NewNodeResolver creates the node resolver.
func NewNodeResolver() *NodeResolver { return &NodeResolver{} }

func (*NodeResolver) Name() string { return "node" }

func (r *NodeResolver) Resolve(specifier, sourceFile string, cfg settings.ResolverConfig, s *settings.Settings) (Result, error) {
	opts := nodeOptions{
		extensions: optionStrings(cfg, "extensions"),
		moduleDirs: optionStrings(cfg, "moduleDirectory"),
	}
	if len(opts.extensions) == 0 {
		opts.extensions = DefaultNodeExtensions
	}
	if len(opts.moduleDirs) == 0 {
		opts.moduleDirs = s.ExternalModuleFolders
	}
	if len(opts.moduleDirs) == 0 {
		opts.moduleDirs = []string{"node_modules"}
	}
	return opts.resolve(specifier, filepath.Dir(sourceFile)), nil
}

type nodeOptions struct {
	extensions []string
	moduleDirs []string
}

func (o nodeOptions) resolve(specifier, dir string) Result {
	if IsCoreModule(specifier) {
		return Result{Found: true}
	}

	if isPathSpecifier(specifier) {
		target := specifier
		if !filepath.IsAbs(target) {
			target = filepath.Join(dir, specifier)
		}
		if path := o.loadAsFileOrDirectory(target, strings.HasSuffix(specifier, "/")); path != "" {
			return found(path)
		}
		return Result{}
	}

	for cur := dir; ; {
		for _, md := range o.moduleDirs {
			// a module directory named like the current one (node_modules/node_modules) is skipped
			if filepath.Base(cur) == md {
				continue
			}
			if path := o.loadAsFileOrDirectory(filepath.Join(cur, md, specifier), false); path != "" {
				return found(path)
			}
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return Result{}
		}
		cur = parent
	}
}

func (o nodeOptions) loadAsFileOrDirectory(target string, dirOnly bool) string {
	if !dirOnly {
		if path := o.loadAsFile(target); path != "" {
			return path
		}
	}
	return o.loadAsDirectory(target)
}

func (o nodeOptions) loadAsFile(target string) string {
	if isFile(target) {
		return target
	}
	for _, ext := range o.extensions {
		if isFile(target + ext) {
			return target + ext
		}
	}
	return ""
}

func (o nodeOptions) loadAsDirectory(dir string) string {
	if !isDir(dir) {
		return ""
	}
	if entry := packageEntry(dir); entry != "" {
		target := filepath.Join(dir, entry)
		if path := o.loadAsFile(target); path != "" {
			return path
		}
		if path := o.loadIndex(target); path != "" {
			return path
		}
	}
	return o.loadIndex(dir)
}

func (o nodeOptions) loadIndex(dir string) string {
	for _, ext := range o.extensions {
		candidate := filepath.Join(dir, "index"+ext)
		if isFile(candidate) {
			return candidate
		}
	}
	return ""
}

// packageEntry reads the module (preferred) or main field of dir/package.json.
func packageEntry(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return ""
	}
	var pkg struct {
		Module string `json:"module"`
		Main   string `json:"main"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return ""
	}
	if pkg.Module != "" {
		return pkg.Module
	}
	return pkg.Main
}

func isPathSpecifier(specifier string) bool {
	return specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") ||
		filepath.IsAbs(specifier)
}

// found returns a Result for path with symlinks resolved.
func found(path string) Result {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		path = real
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return Result{Found: true, Path: path}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func optionStrings(cfg settings.ResolverConfig, key string) []string {
	s := settings.Settings{Resolvers: []settings.ResolverConfig{cfg}}
	return s.ResolverStrings(cfg.Name, key)
}
