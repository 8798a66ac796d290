package doc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/exportmap/pkg/ast"
)

func block(text string) ast.Comment { return ast.Comment{Text: text, Block: true} }
func line(text string) ast.Comment  { return ast.Comment{Text: text} }

func TestParseJSDoc(t *testing.T) {
	d, err := ParseJSDoc(`*
 * Adds two numbers.
 * Second line.
 *
 * @param {number} a - the first
 * @param {number} [b=2] the second
 * @returns {number} the sum
 * @deprecated use sum() instead
 `)
	require.NoError(t, err)

	assert.Equal(t, "Adds two numbers.\nSecond line.", d.Description)
	require.Len(t, d.Tags, 4)
	assert.Equal(t, Tag{Title: "param", Type: "number", Name: "a", Description: "the first"}, d.Tags[0])
	assert.Equal(t, Tag{Title: "param", Type: "number", Name: "b", Description: "the second"}, d.Tags[1])
	assert.Equal(t, Tag{Title: "returns", Type: "number", Description: "the sum"}, d.Tags[2])
	assert.Equal(t, Tag{Title: "deprecated", Description: "use sum() instead"}, d.Tags[3])

	ok, reason := d.Deprecated()
	assert.True(t, ok)
	assert.Equal(t, "use sum() instead", reason)
}

func TestParseJSDoc_SingleLine(t *testing.T) {
	d, err := ParseJSDoc("* @deprecated ")
	require.NoError(t, err)
	require.Len(t, d.Tags, 1)
	assert.Equal(t, "deprecated", d.Tags[0].Title)
	assert.Empty(t, d.Tags[0].Description)
	assert.Empty(t, d.Description)
}

func TestParseJSDoc_MultilineTag(t *testing.T) {
	d, err := ParseJSDoc("*\n * @deprecated since 2.0,\n *   use bar\n ")
	require.NoError(t, err)
	_, reason := d.Deprecated()
	assert.Equal(t, "since 2.0,\nuse bar", reason)
}

func TestParseJSDoc_NestedType(t *testing.T) {
	d, err := ParseJSDoc("* @type {{a: number, b: {c: string}}}")
	require.NoError(t, err)
	assert.Equal(t, "{a: number, b: {c: string}}", d.Tags[0].Type)
}

func TestParseJSDoc_Module(t *testing.T) {
	d, err := ParseJSDoc("*\n * Utilities.\n * @module utils\n ")
	require.NoError(t, err)
	tag, ok := d.Tag("module")
	require.True(t, ok)
	assert.Equal(t, "utils", tag.Name)
}

func TestParseJSDoc_Malformed(t *testing.T) {
	_, err := ParseJSDoc("* @param {number a")
	assert.Error(t, err)

	_, err = ParseJSDoc("* @param {number}")
	assert.Error(t, err)

	_, err = ParseJSDoc("* @ nothing")
	assert.Error(t, err)
}

func TestCapture_JSDocLastBlockWins(t *testing.T) {
	d := Capture([]Style{StyleJSDoc}, []ast.Comment{
		block("* first "),
		line(" a line comment"),
		block("* second\n * @deprecated "),
	})
	require.NotNil(t, d)
	assert.Equal(t, "second", d.Description)
	ok, _ := d.Deprecated()
	assert.True(t, ok)
}

func TestCapture_JSDocSkipsMalformed(t *testing.T) {
	d := Capture([]Style{StyleJSDoc}, []ast.Comment{
		block("* good "),
		block("* @param {broken"),
	})
	require.NotNil(t, d)
	assert.Equal(t, "good", d.Description)
}

func TestCapture_TomDoc(t *testing.T) {
	d := Capture([]Style{StyleTomDoc}, []ast.Comment{
		line(" Deprecated: use the other"),
		line(" function instead."),
		line(""),
		line(" Ignored paragraph."),
	})
	require.NotNil(t, d)
	assert.Equal(t, "use the other function instead.", d.Description)
	assert.Equal(t, []Tag{{Title: "deprecated", Description: "use the other function instead."}}, d.Tags)
}

func TestCapture_TomDocNoStatus(t *testing.T) {
	assert.Nil(t, Capture([]Style{StyleTomDoc}, []ast.Comment{line(" Just words.")}))
}

func TestCapture_LastStyleWins(t *testing.T) {
	comments := []ast.Comment{
		line(" Public: from tomdoc"),
		line(""),
		block("* from jsdoc "),
	}

	d := Capture([]Style{StyleJSDoc, StyleTomDoc}, comments)
	require.NotNil(t, d)
	assert.Equal(t, "from tomdoc", d.Description)

	d = Capture([]Style{StyleTomDoc, StyleJSDoc}, comments)
	require.NotNil(t, d)
	assert.Equal(t, "from jsdoc", d.Description)
}

func TestCapture_FirstGroupWithCommentsWins(t *testing.T) {
	d := Capture([]Style{StyleJSDoc},
		nil,
		[]ast.Comment{line(" not a doc")},
		[]ast.Comment{block("* never reached ")},
	)
	assert.Nil(t, d)

	d = Capture([]Style{StyleJSDoc},
		nil,
		[]ast.Comment{block("* declarator doc ")},
	)
	require.NotNil(t, d)
	assert.Equal(t, "declarator doc", d.Description)
}

func TestModuleDoc(t *testing.T) {
	assert.Nil(t, ModuleDoc([]ast.Comment{block("* just a doc ")}))

	d := ModuleDoc([]ast.Comment{
		line(" @module not-a-block"),
		block("* Module docs\n * @module things\n "),
	})
	require.NotNil(t, d)
	assert.Equal(t, "Module docs", d.Description)
}

func TestParseStyle(t *testing.T) {
	s, err := ParseStyle("TomDoc")
	require.NoError(t, err)
	assert.Equal(t, StyleTomDoc, s)

	_, err = ParseStyle("rdoc")
	assert.Error(t, err)
}

func TestNilDoc(t *testing.T) {
	var d *Doc
	ok, reason := d.Deprecated()
	assert.False(t, ok)
	assert.Empty(t, reason)
}
