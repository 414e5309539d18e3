package cst

import (
	"iter"
	"strings"
)

// Walk yields the nodes under root depth-first in pre-order, restricted to the given types when
// any are passed.
//
// Code between a disable and an enable directive is invisible: such nodes are neither yielded
// nor descended into. Directives are only looked for in the first prefix of statement-like
// nodes, which are the only places black honours them. The region flag is a single boolean, so
// repeated disables do not nest. A simple statement followed by a trailing "# fmt: skip" comment
// is invisible as well. ERROR subtrees may be yielded but are never entered.
//
// Every range over the returned sequence starts a fresh traversal. The caller may rewrite
// prefixes of the node it was just handed before asking for the next one.
func Walk(root *Node, types ...string) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		w := &walker{}
		if len(types) > 0 {
			w.want = make(map[string]bool, len(types))
			for _, t := range types {
				w.want[t] = true
			}
		}
		w.visit(root, yield)
	}
}

type walker struct {
	want     map[string]bool
	disabled bool
}

func (w *walker) visit(n *Node, yield func(*Node) bool) bool {
	w.observe(n)
	if w.disabled || skipped(n) {
		return true
	}
	if w.want == nil || w.want[n.Type] {
		if !yield(n) {
			return false
		}
	}
	if n.Type == TypeError {
		return true
	}
	for _, child := range n.Children {
		w.observe(child)
		if w.disabled {
			continue
		}
		if !w.visit(child, yield) {
			return false
		}
	}
	return true
}

// observe updates the region flag from n's leading trivia.
func (w *walker) observe(n *Node) {
	if !StatementLike(n.Type) {
		return
	}
	leaf := n.FirstLeaf()
	if leaf == nil {
		return
	}
	if disabled, ok := regionToggle(leaf.Prefix, leaf.bol); ok {
		w.disabled = disabled
	}
}

// skipped reports whether n is a simple statement whose line ends in "# fmt: skip". The comment
// lives in the prefix of the leaf that follows the statement.
func skipped(n *Node) bool {
	if !StatementLike(n.Type) || n.Contains(TypeBlock) {
		return false
	}
	next := n.NextLeaf()
	return next != nil && trailingSkip(next.Prefix, next.bol)
}

// StatementLike reports whether nodes of type t can carry a region directive in their prefix.
func StatementLike(t string) bool {
	return strings.Contains(t, "statement") || strings.Contains(t, "definition")
}
