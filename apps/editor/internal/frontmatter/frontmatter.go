// Package frontmatter reads and writes the leading YAML block of a Markdown
// document.
package frontmatter

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var blockRe = regexp.MustCompile(`(?s)\A---[ \t]*\r?\n(.*?)\r?\n---[ \t]*(?:\r?\n|\z)`)

// Document is a Markdown file split into its frontmatter and body.
type Document struct {
	Data    map[string]any
	Content string
	// HasBlock is false when md had no leading YAML block at all.
	HasBlock bool
}

// Parse splits md. A block whose YAML does not parse, or is not a mapping,
// yields empty data; the block is still stripped from Content.
func Parse(md string) Document {
	m := blockRe.FindStringSubmatchIndex(md)
	if m == nil {
		return Document{Data: map[string]any{}, Content: md}
	}
	doc := Document{Data: map[string]any{}, Content: md[m[1]:], HasBlock: true}

	var data map[string]any
	if err := yaml.Unmarshal([]byte(md[m[2]:m[3]]), &data); err == nil && data != nil {
		doc.Data = data
	}
	return doc
}

// Serialize renders data as a YAML block followed by content.
func Serialize(data map[string]any, content string) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	out, err := yaml.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal frontmatter: %w", err)
	}
	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString(strings.TrimSpace(string(out)))
	b.WriteString("\n---")
	if !strings.HasPrefix(content, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(content)
	return b.String(), nil
}

// Update parses md, lets fn edit the data in place and serializes the result.
func Update(md string, fn func(data map[string]any)) (string, error) {
	doc := Parse(md)
	fn(doc.Data)
	return Serialize(doc.Data, doc.Content)
}
