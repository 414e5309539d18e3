// Package guard protects layout decisions from black.
//
// black cannot be configured to keep a blank line between two call arguments, a method chain
// laid out one call per line, or a one-element tuple exploded over three lines. It does however
// keep comments, and a standalone comment forces the line break before the token it precedes.
// Each Guard uses that: before black runs it encodes the layout as a sentinel comment line in
// the prefix of the affected token, and after black it decodes the sentinel back into layout.
package guard

import (
	"regexp"
	"strings"

	"blackguard/internal/cst"
	"blackguard/internal/logging"
)

// Guard is one encode/decode pair. The sentinel, the candidate types and the detection
// predicate are data so each guard can be exercised on its own.
type Guard struct {
	Name     string
	Sentinel string

	// Types are the node types offered to Detect while encoding.
	Types []string

	// DecodeTypes restricts decoding to leaves under these types. Empty decodes every leaf
	// outside disabled regions.
	DecodeTypes []string

	// Detect reports whether a candidate node carries the protected layout.
	Detect func(n *cst.Node) bool

	// Targets returns the leaves of a detected node whose prefixes get encoded.
	Targets func(n *cst.Node) []*cst.Node

	encode func(prefix string) string
	decode func(prefix string) string
}

// Comment is the full comment text the guard injects.
func (g *Guard) Comment() string {
	return "# " + g.Sentinel
}

// EncodePrefix returns prefix with the guard's layout encoded.
func (g *Guard) EncodePrefix(prefix string) string {
	return g.encode(prefix)
}

// DecodePrefix removes the guard's sentinel lines from prefix. Prefixes without the sentinel
// come back untouched.
func (g *Guard) DecodePrefix(prefix string) string {
	if !strings.Contains(prefix, g.Sentinel) {
		return prefix
	}
	return g.decode(prefix)
}

// Encode rewrites every detected node in tree and returns how many prefixes changed. A leaf
// reachable from several candidates is encoded once.
func (g *Guard) Encode(tree *cst.Tree) int {
	seen := make(map[*cst.Node]bool)
	changed := 0
	for n := range cst.Walk(tree.Root, g.Types...) {
		if !g.Detect(n) {
			continue
		}
		for _, leaf := range g.Targets(n) {
			if seen[leaf] {
				continue
			}
			seen[leaf] = true
			if encoded := g.encode(leaf.Prefix); encoded != leaf.Prefix {
				leaf.Prefix = encoded
				changed++
			}
		}
	}
	logging.GuardDebug("%s: encoded %d prefixes", g.Name, changed)
	return changed
}

// Decode strips the guard's sentinels from tree and returns how many prefixes changed.
func (g *Guard) Decode(tree *cst.Tree) int {
	seen := make(map[*cst.Node]bool)
	changed := 0
	for n := range cst.Walk(tree.Root, g.DecodeTypes...) {
		if len(g.DecodeTypes) == 0 && !n.IsLeaf() {
			continue
		}
		for leaf := range n.Leaves() {
			if seen[leaf] {
				continue
			}
			seen[leaf] = true
			if decoded := g.DecodePrefix(leaf.Prefix); decoded != leaf.Prefix {
				leaf.Prefix = decoded
				changed++
			}
		}
	}
	logging.GuardDebug("%s: decoded %d prefixes", g.Name, changed)
	return changed
}

// All returns the guards in the order the pipeline applies them.
func All() []*Guard {
	return []*Guard{BlankLines, DottedChains, SingletonTuples}
}

// lineCodec protects a single line break: encode inserts a sentinel comment line right before
// the token, decode deletes such lines.
func lineCodec(sentinel string) (encode, decode func(string) string) {
	comment := "# " + sentinel
	line := regexp.MustCompile(`\n[ \t]*` + regexp.QuoteMeta(comment) + `\n`)

	encode = func(prefix string) string {
		if strings.Contains(prefix, comment) || continued(prefix) {
			return prefix
		}
		return cst.InsertLine(prefix, comment)
	}
	decode = func(prefix string) string {
		// Adjacent sentinel lines share a newline, so one pass may leave some behind.
		for line.MatchString(prefix) {
			prefix = line.ReplaceAllString(prefix, "\n")
		}
		return prefix
	}
	return encode, decode
}

// continued reports whether prefix holds a backslash continuation. A comment line cannot follow
// one, so such prefixes are never encoded.
func continued(prefix string) bool {
	return strings.Contains(prefix, "\\\n")
}
