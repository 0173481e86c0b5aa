package registry

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// InterfaceMeta is display metadata pulled from an interface's README.
type InterfaceMeta struct {
	Title  string // first level-1 heading
	Status string // text of a "Status: ..." line, if present
}

// ReadInterfaceMeta parses an interface README and extracts its title and
// status line. Missing file or missing sections are not errors for the
// caller to act on; the metadata is only used in logs and summaries.
func ReadInterfaceMeta(path string) (InterfaceMeta, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return InterfaceMeta{}, fmt.Errorf("failed to read README %s: %w", path, err)
	}
	return parseInterfaceMeta(source), nil
}

// parseInterfaceMeta walks the markdown AST for the first H1 heading and
// the first paragraph beginning with "Status:".
func parseInterfaceMeta(source []byte) InterfaceMeta {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var meta InterfaceMeta
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		if heading, ok := n.(*ast.Heading); ok && heading.Level == 1 && meta.Title == "" {
			meta.Title = nodeText(heading, source)
			return ast.WalkSkipChildren, nil
		}

		if para, ok := n.(*ast.Paragraph); ok && meta.Status == "" {
			content := nodeText(para, source)
			if rest, found := strings.CutPrefix(content, "Status:"); found {
				meta.Status = strings.TrimSpace(rest)
				return ast.WalkSkipChildren, nil
			}
		}

		return ast.WalkContinue, nil
	})

	return meta
}

// nodeText extracts plain text from an AST node, descending through inline
// wrappers (code spans, emphasis) so a heading like "# `ingress`" still
// yields its text.
func nodeText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}
