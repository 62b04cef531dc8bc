// Package doctree holds the structure recovered from a parsed paper and
// renders it back to heading-annotated plain text for section
// classification.
package doctree

import (
	"strings"
)

// DocTree is the root of a parsed document.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Children []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for leaf text)
	Text     string     // Text content of this node (may be empty for container nodes)
	Page     int        // Source page (0 if N/A)
	Children []*DocNode // Subsections
}

// Walk calls fn for every node in document order with its heading depth,
// starting at 1 for top-level nodes. Returning false skips the node's
// children.
func (t *DocTree) Walk(fn func(n *DocNode, depth int) bool) {
	var walk func(nodes []*DocNode, depth int)
	walk = func(nodes []*DocNode, depth int) {
		for _, n := range nodes {
			if fn(n, depth) {
				walk(n.Children, depth+1)
			}
		}
	}
	walk(t.Children, 1)
}

// Text flattens the tree into plain text. Headings are written on their own
// line as markdown headings (one # per depth, at most six) and blocks are
// separated by a blank line.
func (t *DocTree) Text() string {
	var blocks []string
	t.Walk(func(n *DocNode, depth int) bool {
		if title := strings.TrimSpace(n.Title); title != "" {
			blocks = append(blocks, strings.Repeat("#", min(depth, 6))+" "+title)
		}
		if text := strings.TrimSpace(n.Text); text != "" {
			blocks = append(blocks, text)
		}
		return true
	})
	return strings.Join(blocks, "\n\n")
}

// Headings returns every non-empty heading in document order.
func (t *DocTree) Headings() []string {
	var out []string
	t.Walk(func(n *DocNode, _ int) bool {
		if n.Title != "" {
			out = append(out, n.Title)
		}
		return true
	})
	return out
}

// Pages returns the highest page number seen, or 0 when pages are unknown.
func (t *DocTree) Pages() int {
	pages := 0
	t.Walk(func(n *DocNode, _ int) bool {
		if n.Page > pages {
			pages = n.Page
		}
		return true
	})
	return pages
}
