package settings

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/gnana997/exportmap/pkg/ast"
)

// Diagnostic is a message reported against the file under analysis.
type Diagnostic struct {
	Path    string
	Message string
	Span    ast.Span
}

// Reporter receives diagnostics.
type Reporter interface {
	Report(Diagnostic)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Diagnostic)

func (f ReporterFunc) Report(d Diagnostic) { f(d) }

// Context is what every resolution entry point is called with: the file being
// analysed plus the settings that shape resolution and parsing.
type Context struct {
	// Path is the absolute path of the file this context describes.
	Path string

	Settings      *Settings
	ParserPath    string
	ParserOptions *ParserOptions

	// Reporter receives resolve errors. May be nil.
	Reporter Reporter

	// CacheKey identifies (parser, parser options, settings, path). Set by
	// NewContext and Child.
	CacheKey string
}

// NewContext creates the context for analysing path under cfg.
func NewContext(path string, cfg *Config, reporter Reporter) *Context {
	if cfg == nil {
		cfg = Default()
	}
	ctx := &Context{
		Path:          path,
		Settings:      &cfg.Settings,
		ParserPath:    cfg.ParserOptions.Parser,
		ParserOptions: &cfg.ParserOptions,
		Reporter:      reporter,
	}
	ctx.CacheKey = cacheKey(ctx, path)
	return ctx
}

// Child returns a context for another module analysed under the same settings.
// The reporter is not inherited: diagnostics belong to the file under analysis.
func (c *Context) Child(path string) *Context {
	child := &Context{
		Path:          path,
		Settings:      c.Settings,
		ParserPath:    c.ParserPath,
		ParserOptions: c.ParserOptions,
	}
	child.CacheKey = cacheKey(child, path)
	return child
}

// Report sends a diagnostic to the reporter, if any.
func (c *Context) Report(d Diagnostic) {
	if c == nil || c.Reporter == nil {
		return
	}
	if d.Path == "" {
		d.Path = c.Path
	}
	c.Reporter.Report(d)
}

// SettingsFingerprint digests the settings (without the path).
func (c *Context) SettingsFingerprint() string {
	return FingerprintSettings(c.Settings)
}

// FingerprintSettings digests s, reusing the previous digest when s
// serializes the same as on the last call.
func FingerprintSettings(s *Settings) string {
	return defaultMemo.settings(s)
}

func cacheKey(c *Context, path string) string {
	return JoinKey(
		c.ParserPath,
		defaultMemo.parserOptions(c.ParserOptions),
		defaultMemo.settings(c.Settings),
		path,
	)
}

// JoinKey joins cache key parts with NUL, a byte none of the parts contain.
func JoinKey(parts ...string) string {
	return strings.Join(parts, "\x00")
}

// fingerprintMemo skips rehashing when the serialized value is unchanged
// from the previous call, which is the common case within one run.
type fingerprintMemo struct {
	mu sync.Mutex

	prevSettings string
	settingsHash string

	prevOptions string
	optionsHash string
}

var defaultMemo = &fingerprintMemo{}

func (m *fingerprintMemo) settings(s *Settings) string {
	raw := marshal(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if raw != m.prevSettings || m.settingsHash == "" {
		m.prevSettings = raw
		m.settingsHash = digest(raw)
	}
	return m.settingsHash
}

func (m *fingerprintMemo) parserOptions(o *ParserOptions) string {
	raw := marshal(o)
	m.mu.Lock()
	defer m.mu.Unlock()
	if raw != m.prevOptions || m.optionsHash == "" {
		m.prevOptions = raw
		m.optionsHash = digest(raw)
	}
	return m.optionsHash
}

// Fingerprint returns a stable digest of any JSON-serializable value.
func Fingerprint(v any) string {
	return digest(marshal(v))
}

func marshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func digest(raw string) string {
	return strconv.FormatUint(xxhash.Sum64String(raw), 16)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
