// Package doc extracts documentation metadata from the comments leading a
// declaration. Two styles are supported, JSDoc block comments and TomDoc
// line comments, and both normalize to the same Doc shape.
package doc

import (
	"fmt"
	"strings"

	"github.com/gnana997/exportmap/pkg/ast"
)

// Doc is normalized documentation: a description plus tags.
type Doc struct {
	Description string `json:"description,omitempty"`
	Tags        []Tag  `json:"tags,omitempty"`
}

// Tag is one @tag of a doc comment. TomDoc produces a single synthetic tag
// named after its status word (public, internal, deprecated).
type Tag struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	Name        string `json:"name,omitempty"`
}

// Tag returns the first tag with the given title.
func (d *Doc) Tag(title string) (Tag, bool) {
	if d == nil {
		return Tag{}, false
	}
	for _, t := range d.Tags {
		if t.Title == title {
			return t, true
		}
	}
	return Tag{}, false
}

// Deprecated reports whether the doc carries a deprecated tag, and its text.
func (d *Doc) Deprecated() (bool, string) {
	t, ok := d.Tag("deprecated")
	return ok, t.Description
}

// Style names a doc comment convention.
type Style string

const (
	StyleJSDoc  Style = "jsdoc"
	StyleTomDoc Style = "tomdoc"
)

// DefaultStyles is used when no docstyle setting is configured.
var DefaultStyles = []Style{StyleJSDoc}

// ParseStyle validates a configured style name.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(s)) {
	case StyleJSDoc:
		return StyleJSDoc, nil
	case StyleTomDoc:
		return StyleTomDoc, nil
	}
	return "", fmt.Errorf("unknown doc style %q", s)
}

// extract returns the doc a style finds in the comments, or nil.
func (s Style) extract(comments []ast.Comment) *Doc {
	switch s {
	case StyleJSDoc:
		return captureJSDoc(comments)
	case StyleTomDoc:
		return captureTomDoc(comments)
	}
	return nil
}

// Capture extracts the doc for a declaration.
//
// Each group is the leading comments of one candidate node, in priority
// order; the first group that has any comments is used, even if no style
// finds a doc in it. Within that group every style runs and the last one to
// produce a doc wins.
func Capture(styles []Style, groups ...[]ast.Comment) *Doc {
	for _, comments := range groups {
		if len(comments) == 0 {
			continue
		}
		var found *Doc
		for _, style := range styles {
			if d := style.extract(comments); d != nil {
				found = d
			}
		}
		return found
	}
	return nil
}

// captureJSDoc parses every block comment; the last that parses wins.
func captureJSDoc(comments []ast.Comment) *Doc {
	var found *Doc
	for _, c := range comments {
		if !c.Block {
			continue
		}
		if d, err := ParseJSDoc(c.Text); err == nil {
			found = d
		}
	}
	return found
}

// captureTomDoc joins line comments up to the first blank one and looks for a
// leading status word.
func captureTomDoc(comments []ast.Comment) *Doc {
	var lines []string
	for _, c := range comments {
		if strings.TrimSpace(c.Text) == "" {
			break
		}
		lines = append(lines, strings.TrimSpace(c.Text))
	}

	m := tomDocStatus.FindStringSubmatch(strings.Join(lines, " "))
	if m == nil {
		return nil
	}
	return &Doc{
		Description: m[2],
		Tags:        []Tag{{Title: strings.ToLower(m[1]), Description: m[2]}},
	}
}

// ModuleDoc returns the doc of the first block comment carrying a @module tag.
func ModuleDoc(comments []ast.Comment) *Doc {
	for _, c := range comments {
		if !c.Block {
			continue
		}
		d, err := ParseJSDoc(c.Text)
		if err != nil {
			continue
		}
		if _, ok := d.Tag("module"); ok {
			return d
		}
	}
	return nil
}
