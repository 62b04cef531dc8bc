package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ydzat/literature-review-mcp/internal/doctree"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	b := newTreeBuilder(baseTitle(filename))

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			b.heading(node.Level, blockText(node, src))
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			b.text(rawLines(n, src))
		default:
			b.text(blockText(n, src))
		}
	}
	return b.build(), nil
}

// blockText gets the text content of a goldmark block, keeping soft line
// breaks as newlines.
func blockText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				buf.Write(t.Segment.Value(src))
				if t.HardLineBreak() || t.SoftLineBreak() {
					buf.WriteByte('\n')
				}
			case *ast.String:
				buf.Write(t.Value)
			default:
				if c.Type() == ast.TypeBlock && buf.Len() > 0 && !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
					buf.WriteByte('\n')
				}
				walk(c)
			}
		}
	}
	walk(n)
	if buf.Len() == 0 && n.Type() == ast.TypeBlock {
		return rawLines(n, src)
	}
	return strings.TrimSpace(buf.String())
}

func rawLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return strings.TrimSpace(buf.String())
}
