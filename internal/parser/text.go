package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/ydzat/literature-review-mcp/internal/doctree"
)

// TextParser handles plain text files. Paragraphs are kept as separate
// untitled nodes with their line breaks intact so headings survive on their
// own lines.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	tree := &doctree.DocTree{Title: baseTitle(filename)}
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			tree.Children = append(tree.Children, &doctree.DocNode{Text: current.String()})
			current.Reset()
		}
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return tree, nil
}
