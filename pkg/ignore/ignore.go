// Package ignore decides which resolved module paths are kept out of the
// export graph.
package ignore

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gnana997/exportmap/pkg/settings"
)

// compiled caches regexes by source; settings are shared across a run, so the
// same handful of patterns is tested against every path.
var compiled sync.Map // string -> *regexp.Regexp (nil when invalid)

// HasValidExtension reports whether path has one of the configured module
// extensions. Declaration files match on their last extension (.ts).
func HasValidExtension(path string, s *settings.Settings) bool {
	ext := filepath.Ext(path)
	for _, valid := range s.ValidExtensions() {
		if ext == valid {
			return true
		}
	}
	return false
}

// IsIgnored reports whether path is excluded: it has no valid extension, or
// matches an ignore regex or ignore glob.
func IsIgnored(path string, s *settings.Settings) bool {
	if !HasValidExtension(path, s) {
		return true
	}
	if s == nil {
		return false
	}

	for _, pattern := range s.Ignore {
		re := regexpFor(pattern)
		if re != nil && re.MatchString(path) {
			slog.Debug("ignoring path", "path", path, "pattern", pattern)
			return true
		}
	}

	if len(s.IgnoreGlobs) > 0 {
		target := strings.TrimPrefix(filepath.ToSlash(path), "/")
		for _, pattern := range s.IgnoreGlobs {
			ok, err := doublestar.Match(strings.TrimPrefix(pattern, "/"), target)
			if err == nil && ok {
				slog.Debug("ignoring path", "path", path, "glob", pattern)
				return true
			}
		}
	}
	return false
}

// IsExternal reports whether path lies inside one of the external module
// folders (node_modules by default).
func IsExternal(path string, s *settings.Settings) bool {
	folders := []string{"node_modules"}
	if s != nil && len(s.ExternalModuleFolders) > 0 {
		folders = s.ExternalModuleFolders
	}

	slashed := "/" + strings.Trim(filepath.ToSlash(path), "/") + "/"
	for _, folder := range folders {
		folder = strings.Trim(filepath.ToSlash(folder), "/")
		if folder == "" {
			continue
		}
		if strings.Contains(slashed, "/"+folder+"/") {
			return true
		}
	}
	return false
}

func regexpFor(pattern string) *regexp.Regexp {
	if v, ok := compiled.Load(pattern); ok {
		re, _ := v.(*regexp.Regexp)
		return re
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		slog.Warn("invalid ignore pattern", "pattern", pattern, "error", err)
		re = nil
	}
	compiled.Store(pattern, re)
	return re
}
