// Package cst provides a trivia-aware concrete syntax tree for Python source.
//
// The tree is built from tree-sitter's python grammar, but unlike tree-sitter's own tree every
// byte of the input is owned by a leaf: whitespace, comments and backslash continuations live in
// the Prefix of the leaf that follows them. Printing the leaves in order (prefix then value)
// reproduces the input exactly, which is what lets callers inject or remove layout by rewriting
// prefixes and nothing else.
package cst

import (
	"iter"
	"strings"
)

// Node is an element of the tree. Leaves have no children and carry Prefix and Value.
type Node struct {
	Type     string
	Children []*Node

	// Parent is a navigation back-reference; the tree owns its nodes top-down.
	Parent *Node

	// Leaf-only fields.
	Prefix string
	Value  string

	leaf   bool
	start  int // byte offset of the value start
	line   int // 0-based line of the value start

	// bol is set when the prefix begins at the start of a line; otherwise its first line is
	// the tail of the previous token's line.
	bol bool
}

// IsLeaf reports whether the node is a terminal token.
func (n *Node) IsLeaf() bool {
	return n.leaf
}

// Line returns the 0-based line where the node's first token started in the parsed text.
func (n *Node) Line() int {
	if leaf := n.FirstLeaf(); leaf != nil {
		return leaf.line
	}
	return 0
}

// FirstLeaf returns the leftmost leaf under n (n itself for a leaf).
func (n *Node) FirstLeaf() *Node {
	for n != nil && !n.leaf {
		if len(n.Children) == 0 {
			return nil
		}
		n = n.Children[0]
	}
	return n
}

// LastLeaf returns the rightmost leaf under n.
func (n *Node) LastLeaf() *Node {
	for n != nil && !n.leaf {
		if len(n.Children) == 0 {
			return nil
		}
		n = n.Children[len(n.Children)-1]
	}
	return n
}

// Leaves yields every leaf under n in source order.
func (n *Node) Leaves() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		n.eachLeaf(yield)
	}
}

func (n *Node) eachLeaf(yield func(*Node) bool) bool {
	if n.leaf {
		return yield(n)
	}
	for _, child := range n.Children {
		if !child.eachLeaf(yield) {
			return false
		}
	}
	return true
}

// Code prints the subtree, including the prefix of its first leaf.
func (n *Node) Code() string {
	var b strings.Builder
	for leaf := range n.Leaves() {
		b.WriteString(leaf.Prefix)
		b.WriteString(leaf.Value)
	}
	return b.String()
}

// Index returns the position of n among its parent's children, or -1 for the root.
func (n *Node) Index() int {
	if n.Parent == nil {
		return -1
	}
	for i, sibling := range n.Parent.Children {
		if sibling == n {
			return i
		}
	}
	return -1
}

// NextSibling returns the node following n under the same parent.
func (n *Node) NextSibling() *Node {
	i := n.Index()
	if i < 0 || i+1 >= len(n.Parent.Children) {
		return nil
	}
	return n.Parent.Children[i+1]
}

// PrevSibling returns the node preceding n under the same parent.
func (n *Node) PrevSibling() *Node {
	i := n.Index()
	if i <= 0 {
		return nil
	}
	return n.Parent.Children[i-1]
}

// NextLeaf returns the first leaf after n's subtree, or nil at the end of the tree.
func (n *Node) NextLeaf() *Node {
	for p := n; p != nil; p = p.Parent {
		if s := p.NextSibling(); s != nil {
			if leaf := s.FirstLeaf(); leaf != nil {
				return leaf
			}
			return s.NextLeaf()
		}
	}
	return nil
}

// Contains reports whether any node under n (n excluded) has one of the given types.
func (n *Node) Contains(types ...string) bool {
	for _, child := range n.Children {
		for _, t := range types {
			if child.Type == t {
				return true
			}
		}
		if child.Contains(types...) {
			return true
		}
	}
	return false
}

// Ancestor returns the closest ancestor whose type is one of types.
func (n *Node) Ancestor(types ...string) *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		for _, t := range types {
			if p.Type == t {
				return p
			}
		}
	}
	return nil
}
