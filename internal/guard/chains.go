package guard

import (
	"regexp"
	"strings"

	"blackguard/internal/cst"
)

// DottedChainSentinel marks the line break before a chained call.
const DottedChainSentinel = "BLACKGUARD_DOTTED_CHAIN"

// chainTypes are the tree-sitter nodes a trailer hangs off: obj.name, obj(args), obj[idx].
var chainTypes = []string{"call", "attribute", "subscript"}

var newlineAndIndent = regexp.MustCompile(`^\n(?:\s{4})+`)

var encodeChainLine, decodeChainLine = lineCodec(DottedChainSentinel)

// DottedChains keeps method chains such as
//
//	batch = (
//	    batch
//	    .sample(frac=0.1)
//	    .reset_index(drop=True)
//	)
//
// one call per line.
var DottedChains = &Guard{
	Name:     "dotted-chains",
	Sentinel: DottedChainSentinel,
	Types:    chainTypes,
	Detect:   isDottedChain,
	Targets:  dottedChainTargets,
	encode:   encodeChainLine,
	decode:   decodeChainLine,
}

// trailer is the run of children one chain link adds to its object: `.name`, `(args)` or
// `[index]`.
type trailer []*cst.Node

func (t trailer) firstLeaf() *cst.Node {
	return t[0].FirstLeaf()
}

// flattenChain unrolls tree-sitter's left-nested chain into its primary expression and the
// trailers applied to it, in source order.
func flattenChain(n *cst.Node) (*cst.Node, []trailer) {
	var trailers []trailer
	for isChainLink(n) {
		trailers = append(trailers, trailer(n.Children[1:]))
		n = n.Children[0]
	}
	for i, j := 0, len(trailers)-1; i < j; i, j = i+1, j-1 {
		trailers[i], trailers[j] = trailers[j], trailers[i]
	}
	return n, trailers
}

func isChainLink(n *cst.Node) bool {
	if len(n.Children) < 2 {
		return false
	}
	for _, t := range chainTypes {
		if n.Type == t {
			return true
		}
	}
	return false
}

// isOutermostLink reports whether n is the last link of its chain, i.e. not the object of an
// enclosing link.
func isOutermostLink(n *cst.Node) bool {
	p := n.Parent
	return p == nil || !isChainLink(p) || p.Children[0] != n
}

// isDottedChain reports whether n is a chain whose primary starts on its own indented line inside
// brackets and whose every other line starts with a dot. Lines starting with anything else, e.g.
// a bare call `(batch)` or the next element of a list, disqualify it.
func isDottedChain(n *cst.Node) bool {
	if !isOutermostLink(n) {
		return false
	}
	primary, trailers := flattenChain(n)
	first := primary.FirstLeaf()
	if first == nil || !newlineAndIndent.MatchString(first.Prefix) || startsStatement(first) {
		return false
	}
	if len(trailers) == 0 {
		return false
	}
	for _, t := range trailers {
		leaf := t.firstLeaf()
		if leaf == nil {
			return false
		}
		if newlineAndIndent.MatchString(leaf.Prefix) && leaf.Value != "." {
			return false
		}
	}
	return true
}

// dottedChainTargets returns the dots that start a line.
func dottedChainTargets(n *cst.Node) []*cst.Node {
	_, trailers := flattenChain(n)
	var targets []*cst.Node
	for _, t := range trailers {
		leaf := t.firstLeaf()
		if leaf != nil && leaf.Value == "." && strings.Contains(leaf.Prefix, "\n") {
			targets = append(targets, leaf)
		}
	}
	return targets
}

// startsStatement reports whether leaf opens its statement. Such a leaf carries the previous
// line's newline and indentation without being inside brackets.
func startsStatement(leaf *cst.Node) bool {
	for p := leaf.Parent; p != nil; p = p.Parent {
		if cst.StatementLike(p.Type) {
			return p.FirstLeaf() == leaf
		}
	}
	return false
}
