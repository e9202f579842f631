// Package parser reads and writes work-log drafts (Markdown with YAML
// frontmatter) and renders Markdown to the HTML the note editor accepts.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Result is a parsed draft. Title comes from the frontmatter or, failing
// that, the first "# " heading of the body.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Title       string
}

// Parse splits a draft into frontmatter and body. It never fails on
// malformed frontmatter; such files parse as plain Markdown.
func Parse(data []byte) (*Result, error) {
	fm, body := splitFrontmatter(data)
	r := &Result{Frontmatter: fm, Body: body}
	if r.Title = r.String("title"); r.Title == "" {
		r.Title = firstHeading(body)
	}
	return r, nil
}

// String returns the frontmatter value for key when it is a string.
// YAML dates decode as time.Time, so those are formatted back to YYYY-MM-DD.
func (r *Result) String(key string) string {
	if r == nil || r.Frontmatter == nil {
		return ""
	}
	switch v := r.Frontmatter[key].(type) {
	case string:
		return v
	case interface{ Format(string) string }:
		return v.Format("2006-01-02")
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Compose writes frontmatter followed by body.
func Compose(frontmatter any, body string) ([]byte, error) {
	head, err := yaml.Marshal(frontmatter)
	if err != nil {
		return nil, fmt.Errorf("parser: marshal frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(head)
	buf.WriteString("---\n")
	buf.WriteString(strings.TrimLeft(body, "\n"))
	if !strings.HasSuffix(body, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Render converts Markdown to HTML.
func Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("parser: render markdown: %w", err)
	}
	return buf.String(), nil
}

// splitFrontmatter cuts a leading "---" YAML block off data. Files without
// one, or whose block is not valid YAML, are all body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	src := strings.TrimLeft(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	rest, ok := strings.CutPrefix(src, "---\n")
	if !ok {
		return nil, string(data)
	}

	var head, body string
	if after, found := strings.CutPrefix(rest, "---"); found {
		body = after
	} else if head, body, ok = strings.Cut(rest, "\n---"); !ok {
		return nil, string(data)
	}
	if body != "" && body[0] != '\n' {
		return nil, string(data)
	}

	fm := map[string]any{}
	if err := yaml.Unmarshal([]byte(head), &fm); err != nil {
		return nil, string(data)
	}
	return fm, strings.TrimLeft(body, "\n")
}

// firstHeading returns the text of the first level-one heading in body.
func firstHeading(body string) string {
	src := []byte(body)
	doc := md.Parser().Parse(text.NewReader(src))

	var title strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 1 {
			return ast.WalkContinue, nil
		}
		_ = ast.Walk(h, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
			if t, ok := c.(*ast.Text); ok && entering {
				title.Write(t.Segment.Value(src))
				if t.SoftLineBreak() {
					title.WriteByte(' ')
				}
			}
			return ast.WalkContinue, nil
		})
		return ast.WalkStop, nil
	})
	return strings.TrimSpace(title.String())
}
