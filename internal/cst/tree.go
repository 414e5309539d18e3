package cst

import (
	"context"
	"sort"
	"strings"
	"time"

	"blackguard/internal/logging"

	"github.com/cockroachdb/errors"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Node types the builder relies on.
const (
	TypeModule    = "module"
	TypeEndMarker = "endmarker"
	TypeError     = "ERROR"
	TypeBlock     = "block"
)

// Tokens folded into the prefix of the next leaf instead of becoming nodes.
var triviaTypes = map[string]bool{
	"comment":           true,
	"line_continuation": true,
}

// Nodes kept as a single leaf even though tree-sitter gives them children. A string's content
// is not a token, so descending into it would leak string text into prefixes.
var atomicTypes = map[string]bool{
	"string": true,
}

// Tree is a parsed source file.
type Tree struct {
	Root *Node

	leaves     []*Node
	lineStarts []int
	size       int
	hasError   bool
}

// Parse builds a tree for src. Syntax errors do not fail the parse: they show up as ERROR
// subtrees and HasError reports them, and the text still round-trips through Code.
func Parse(ctx context.Context, src string) (*Tree, error) {
	start := time.Now()

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	content := []byte(src)
	tsTree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, errors.Wrap(err, "tree-sitter parse")
	}
	defer tsTree.Close()

	b := &builder{src: src}
	root := tsTree.RootNode()
	tree := &Tree{
		Root:     b.node(root, nil),
		hasError: root.HasError(),
		size:     len(src),
	}
	end := b.leaf(TypeEndMarker, len(src), len(src), tree.Root)
	tree.Root.Children = append(tree.Root.Children, end)
	tree.leaves = b.leaves
	tree.lineStarts = lineStarts(src)

	logging.ParseDebug("parsed %d bytes into %d leaves in %v (errors=%v)",
		len(src), len(tree.leaves), time.Since(start), tree.hasError)
	return tree, nil
}

// Code prints the whole tree.
func (t *Tree) Code() string {
	var b strings.Builder
	b.Grow(t.size)
	for _, leaf := range t.leaves {
		b.WriteString(leaf.Prefix)
		b.WriteString(leaf.Value)
	}
	return b.String()
}

// HasError reports whether the grammar rejected part of the input.
func (t *Tree) HasError() bool {
	return t.hasError
}

// LeafAt returns the leaf whose prefix or value covers the given position of the parsed text,
// or nil when the position is past the end of its line.
func (t *Tree) LeafAt(line, col int) *Node {
	if line < 0 || line >= len(t.lineStarts) || col < 0 {
		return nil
	}
	offset := t.lineStarts[line] + col
	if line+1 < len(t.lineStarts) && offset >= t.lineStarts[line+1] {
		return nil
	}
	if offset > t.size {
		return nil
	}
	i := sort.Search(len(t.leaves), func(i int) bool {
		leaf := t.leaves[i]
		return leaf.start+len(leaf.Value) > offset
	})
	if i == len(t.leaves) {
		// Only the end marker, which has no width, can own the final offset.
		return t.leaves[len(t.leaves)-1]
	}
	return t.leaves[i]
}

// builder turns tree-sitter nodes into prefix-carrying nodes.
type builder struct {
	src    string
	cursor int
	line   int
	leaves []*Node
}

// node converts ts and its subtree. The root always becomes a container so the end marker has
// somewhere to live, even for an empty file.
func (b *builder) node(ts *sitter.Node, parent *Node) *Node {
	typ := ts.Type()
	count := int(ts.ChildCount())
	if parent != nil && (count == 0 || atomicTypes[typ]) {
		return b.leaf(typ, int(ts.StartByte()), int(ts.EndByte()), parent)
	}

	n := &Node{Type: typ, Parent: parent}
	for i := 0; i < count; i++ {
		child := ts.Child(i)
		if child == nil || triviaTypes[child.Type()] {
			continue
		}
		if child.StartByte() == child.EndByte() && child.ChildCount() == 0 {
			// Zero-width tokens (MISSING nodes) own no text.
			continue
		}
		n.Children = append(n.Children, b.node(child, n))
	}
	return n
}

func (b *builder) leaf(typ string, start, end int, parent *Node) *Node {
	if start < b.cursor {
		start = b.cursor
	}
	if end < start {
		end = start
	}
	leaf := &Node{
		Type:   typ,
		Parent: parent,
		Prefix: b.src[b.cursor:start],
		Value:  b.src[start:end],
		leaf:   true,
		start:  start,
		bol:    b.cursor == 0 || b.src[b.cursor-1] == '\n',
	}
	b.line += strings.Count(leaf.Prefix, "\n")
	leaf.line = b.line
	b.line += strings.Count(leaf.Value, "\n")
	b.cursor = end
	b.leaves = append(b.leaves, leaf)
	return leaf
}

func lineStarts(src string) []int {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}
