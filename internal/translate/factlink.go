// ABOUTME: Detects fact values written as a single markdown link, e.g. [Docs](https://x)
// ABOUTME: Uses goldmark's parser so escaping and nested emphasis follow CommonMark

package translate

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// parseFactLink reports whether value is exactly one markdown link and returns its
// text and destination.
func parseFactLink(value string) (title, uri string, ok bool) {
	if !strings.HasPrefix(value, "[") || !strings.HasSuffix(value, ")") {
		return "", "", false
	}

	src := []byte(value)
	doc := markdown.Parser().Parse(text.NewReader(src))

	if doc.ChildCount() != 1 {
		return "", "", false
	}
	para, isPara := doc.FirstChild().(*ast.Paragraph)
	if !isPara || para.ChildCount() != 1 {
		return "", "", false
	}
	link, isLink := para.FirstChild().(*ast.Link)
	if !isLink {
		return "", "", false
	}

	return inlineText(link, src), string(link.Destination), true
}

// inlineText concatenates the literal text under n.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := child.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}
