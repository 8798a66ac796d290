package doc

import (
	"fmt"
	"regexp"
	"strings"
)

var tomDocStatus = regexp.MustCompile(`^(Public|Internal|Deprecated):\s*(.+)`)

// Tags whose first word after the type is a name.
var namedTags = map[string]bool{
	"param": true, "arg": true, "argument": true,
	"property": true, "prop": true,
	"typedef": true, "callback": true,
	"module": true, "namespace": true, "class": true, "constructor": true,
	"alias": true, "event": true, "external": true,
	"member": true, "memberof": true, "mixes": true, "name": true,
	"function": true, "func": true, "method": true,
}

// Tags that are malformed without a name.
var nameRequired = map[string]bool{
	"param": true, "arg": true, "argument": true,
	"property": true, "prop": true,
	"alias": true, "memberof": true, "mixes": true, "name": true,
}

// ParseJSDoc parses the inside of a block comment (without "/*" and "*/").
// Leading asterisks are unwrapped. Returns an error for malformed tags, such
// as an unterminated {type} or a missing parameter name.
func ParseJSDoc(text string) (*Doc, error) {
	lines := unwrap(text)

	d := &Doc{}
	var desc []string
	var tagLines []string

	flush := func() error {
		if tagLines == nil {
			return nil
		}
		tag, err := parseTag(strings.Join(tagLines, "\n"))
		tagLines = nil
		if err != nil {
			return err
		}
		d.Tags = append(d.Tags, tag)
		return nil
	}

	for _, line := range lines {
		if strings.HasPrefix(line, "@") {
			if err := flush(); err != nil {
				return nil, err
			}
			tagLines = []string{line}
			continue
		}
		if tagLines != nil {
			tagLines = append(tagLines, line)
			continue
		}
		desc = append(desc, line)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	d.Description = strings.TrimSpace(strings.Join(desc, "\n"))
	return d, nil
}

// unwrap strips the comment decoration from each line.
func unwrap(text string) []string {
	text = strings.TrimPrefix(text, "*")
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if strings.HasPrefix(line, "*") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "*"))
		}
		out = append(out, line)
	}
	return out
}

func parseTag(text string) (Tag, error) {
	text = strings.TrimPrefix(text, "@")
	end := strings.IndexFunc(text, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '{'
	})
	if end < 0 {
		end = len(text)
	}

	tag := Tag{Title: text[:end]}
	if tag.Title == "" {
		return Tag{}, fmt.Errorf("missing tag title")
	}
	rest := strings.TrimSpace(text[end:])

	if strings.HasPrefix(rest, "{") {
		typ, remaining, err := braced(rest)
		if err != nil {
			return Tag{}, fmt.Errorf("@%s: %w", tag.Title, err)
		}
		tag.Type = typ
		rest = strings.TrimSpace(remaining)
	}

	if namedTags[tag.Title] {
		name, remaining := firstWord(rest)
		if nameRequired[tag.Title] && name == "" {
			return Tag{}, fmt.Errorf("@%s: missing name", tag.Title)
		}
		tag.Name = optionalName(name)
		rest = strings.TrimSpace(remaining)
		rest = strings.TrimSpace(strings.TrimPrefix(rest, "-"))
	}

	tag.Description = rest
	return tag, nil
}

// braced splits a leading {type} expression off s. Braces may nest.
func braced(s string) (string, string, error) {
	depth := 0
	for i, r := range s {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[1:i]), s[i+1:], nil
			}
		}
	}
	return "", "", fmt.Errorf("unterminated type expression")
}

func firstWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		if i := strings.Index(s, "]"); i >= 0 {
			return s[:i+1], s[i+1:]
		}
	}
	i := strings.IndexAny(s, " \t\n")
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}

// optionalName turns [name=default] into name.
func optionalName(name string) string {
	if strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]") {
		name = name[1 : len(name)-1]
		if i := strings.Index(name, "="); i >= 0 {
			name = name[:i]
		}
	}
	return strings.TrimSpace(name)
}
