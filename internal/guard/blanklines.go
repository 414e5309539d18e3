package guard

import (
	"regexp"

	"blackguard/internal/cst"
)

// BlankLineSentinel marks a blank line the author put inside brackets.
const BlankLineSentinel = "BLACKGUARD_BLANK_LINE"

// blankLineTypes are the nodes inside which black collapses blank lines: call arguments,
// bracketed atoms, attribute/subscript chains and the right-hand side of assignments.
var blankLineTypes = []string{
	"call",
	"argument_list",
	"attribute",
	"subscript",
	"list",
	"tuple",
	"set",
	"dictionary",
	"parenthesized_expression",
	"assignment",
	"augmented_assignment",
}

var (
	blankLineRun     = regexp.MustCompile(`\n\n([ \t]+)`)
	blankLineEncoded = regexp.MustCompile(`\n[ \t]*` + regexp.QuoteMeta("# "+BlankLineSentinel) + `\n`)
)

// BlankLines keeps deliberate blank lines such as
//
//	graph.use(
//	    "logging",
//
//	    "space",
//	)
//
// The blank line becomes a sentinel comment at the following token's indentation and turns
// back into a blank line after black.
var BlankLines = &Guard{
	Name:        "blank-lines",
	Sentinel:    BlankLineSentinel,
	Types:       blankLineTypes,
	DecodeTypes: blankLineTypes,
	Detect: func(n *cst.Node) bool {
		return len(blankLineTargets(n)) > 0
	},
	Targets: blankLineTargets,
	encode:  encodeBlankLines,
	decode:  decodeBlankLines,
}

// blankLineTargets returns the leaves inside n, its first leaf excluded, whose prefix holds a
// blank line followed by indentation. The first leaf of a statement carries the newline of the
// previous line, so blank lines between statements are left to black.
func blankLineTargets(n *cst.Node) []*cst.Node {
	var targets []*cst.Node
	first := n.FirstLeaf()
	for leaf := range n.Leaves() {
		if leaf == first {
			continue
		}
		if blankLineRun.MatchString(leaf.Prefix) {
			targets = append(targets, leaf)
		}
	}
	return targets
}

func encodeBlankLines(prefix string) string {
	if continued(prefix) {
		return prefix
	}
	return blankLineRun.ReplaceAllString(prefix, "\n${1}# "+BlankLineSentinel+"\n${1}")
}

// decodeBlankLines undoes encodeBlankLines. black re-indents comments, so the sentinel is
// matched at any indentation.
func decodeBlankLines(prefix string) string {
	for blankLineEncoded.MatchString(prefix) {
		prefix = blankLineEncoded.ReplaceAllString(prefix, "\n\n")
	}
	return prefix
}
