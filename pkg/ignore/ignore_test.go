package ignore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gnana997/exportmap/pkg/settings"
)

func TestHasValidExtension(t *testing.T) {
	s := &settings.Default().Settings
	assert.True(t, HasValidExtension("/src/a.js", s))
	assert.False(t, HasValidExtension("/src/a.ts", s))
	assert.False(t, HasValidExtension("/src/a", s))

	s.Parsers = map[string][]string{"tree-sitter": {".ts", ".tsx"}}
	assert.True(t, HasValidExtension("/src/a.ts", s))
	assert.True(t, HasValidExtension("/src/a.d.ts", s))
	assert.True(t, HasValidExtension("/src/a.tsx", s))

	assert.True(t, HasValidExtension("/src/a.js", nil))
}

func TestIsIgnored(t *testing.T) {
	s := &settings.Default().Settings
	s.Extensions = []string{".js", ".jsx"}
	s.Ignore = []string{`\.coffee$`, `[/\\]generated[/\\]`, `(unclosed`}
	s.IgnoreGlobs = []string{"**/node_modules/**", "/vendor/**"}

	assert.False(t, IsIgnored("/repo/src/a.js", s))
	assert.True(t, IsIgnored("/repo/src/a.css", s), "extension not whitelisted")
	assert.True(t, IsIgnored("/repo/src/generated/a.js", s))
	assert.True(t, IsIgnored("/repo/node_modules/pkg/index.js", s))
	assert.True(t, IsIgnored("/vendor/lib/x.jsx", s))
	assert.False(t, IsIgnored("/repo/vendor/lib/x.jsx", s))
}

func TestIsExternal(t *testing.T) {
	s := &settings.Default().Settings
	assert.True(t, IsExternal("/repo/node_modules/lodash/index.js", s))
	assert.False(t, IsExternal("/repo/src/node_modules_helper.js", s))
	assert.False(t, IsExternal("/repo/src/a.js", s))

	s.ExternalModuleFolders = []string{"web_modules", "third_party/js"}
	assert.True(t, IsExternal("/repo/web_modules/preact.js", s))
	assert.True(t, IsExternal("/repo/third_party/js/x.js", s))
	assert.False(t, IsExternal("/repo/node_modules/x.js", s))

	assert.True(t, IsExternal("/repo/node_modules/x.js", nil))
}
