package guard

import (
	"blackguard/internal/cst"
)

// SingletonTupleSentinel marks the line break before the element of an exploded 1-tuple.
const SingletonTupleSentinel = "BLACKGUARD_SINGLETON_TUPLE"

var encodeTupleLine, decodeTupleLine = lineCodec(SingletonTupleSentinel)

// SingletonTuples keeps
//
//	(
//	    x,
//	)
//
// exploded. black's magic trailing comma does not apply to one-element tuples, where the comma
// is what makes the tuple, so black would otherwise join it back into (x,).
var SingletonTuples = &Guard{
	Name:     "singleton-tuples",
	Sentinel: SingletonTupleSentinel,
	Types:    []string{"tuple"},
	Detect:   isSingletonTuple,
	Targets: func(n *cst.Node) []*cst.Node {
		return []*cst.Node{n.Children[1].FirstLeaf()}
	},
	encode: encodeTupleLine,
	decode: decodeTupleLine,
}

// isSingletonTuple matches `(`, element, `,`, `)`.
func isSingletonTuple(n *cst.Node) bool {
	c := n.Children
	return len(c) == 4 &&
		c[0].IsLeaf() && c[0].Value == "(" &&
		c[2].IsLeaf() && c[2].Value == "," &&
		c[3].IsLeaf() && c[3].Value == ")" &&
		c[1].FirstLeaf() != nil
}
