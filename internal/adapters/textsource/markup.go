package textsource

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// Elements whose content is never rendered as text.
var skipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"head":     true,
	"meta":     true,
	"link":     true,
	"noscript": true,
	"template": true,
}

// HTMLText extracts the visible text of an HTML document. Text nodes are
// joined with single spaces; entities are already unescaped by the parser.
func HTMLText(data []byte) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("html parse: %w", err)
	}

	var segments []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if s := strings.Join(strings.Fields(n.Data), " "); s != "" {
				segments = append(segments, s)
			}
			return
		case html.ElementNode:
			if skipElements[n.Data] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return []byte(strings.Join(segments, " ")), nil
}

// MarkdownText renders markdown to plain text: inline text and code keep
// their content, each block ends with a newline, and markup is dropped.
func MarkdownText(data []byte) []byte {
	root := goldmark.New().Parser().Parse(text.NewReader(data))

	var buf bytes.Buffer
	ast.Walk(root, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if node.Type() == ast.TypeBlock && node.Kind() != ast.KindDocument {
				endLine(&buf)
			}
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Text:
			buf.Write(n.Segment.Value(data))
			if n.SoftLineBreak() || n.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(n.Value)
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(data))
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			buf.Write(n.URL(data))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return bytes.TrimSpace(buf.Bytes())
}

func endLine(buf *bytes.Buffer) {
	if buf.Len() > 0 && buf.Bytes()[buf.Len()-1] != '\n' {
		buf.WriteByte('\n')
	}
}
