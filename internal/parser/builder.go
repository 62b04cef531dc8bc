package parser

import (
	"strings"

	"github.com/ydzat/literature-review-mcp/internal/doctree"
)

// treeBuilder nests headings by level and attaches body text to the most
// recent heading.
type treeBuilder struct {
	tree    *doctree.DocTree
	root    *doctree.DocNode
	stack   []builderEntry
	pending strings.Builder
}

type builderEntry struct {
	node  *doctree.DocNode
	level int
}

func newTreeBuilder(title string) *treeBuilder {
	root := &doctree.DocNode{Title: title}
	return &treeBuilder{
		tree:  &doctree.DocTree{Title: title},
		root:  root,
		stack: []builderEntry{{node: root, level: 0}},
	}
}

// heading opens a section at level (1 = top).
func (b *treeBuilder) heading(level int, title string) {
	b.flush()
	node := &doctree.DocNode{Title: title}
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1].node
	parent.Children = append(parent.Children, node)
	b.stack = append(b.stack, builderEntry{node: node, level: level})
}

// text appends a paragraph to the open section.
func (b *treeBuilder) text(t string) {
	if t = strings.TrimSpace(t); t == "" {
		return
	}
	if b.pending.Len() > 0 {
		b.pending.WriteString("\n\n")
	}
	b.pending.WriteString(t)
}

func (b *treeBuilder) flush() {
	t := strings.TrimSpace(b.pending.String())
	b.pending.Reset()
	if t == "" {
		return
	}
	top := b.stack[len(b.stack)-1].node
	if top.Text != "" {
		top.Text += "\n\n" + t
	} else {
		top.Text = t
	}
}

// build returns the finished tree. Text before the first heading becomes a
// leading untitled node.
func (b *treeBuilder) build() *doctree.DocTree {
	b.flush()
	if b.root.Text != "" {
		b.tree.Children = append(b.tree.Children, &doctree.DocNode{Text: b.root.Text})
	}
	b.tree.Children = append(b.tree.Children, b.root.Children...)
	return b.tree
}
