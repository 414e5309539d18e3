// Package explode rewrites compact comprehensions onto one clause per line.
//
// It runs on the tree parsed from black's output, so the indentation it computes matches what
// black produced. A comprehension such as
//
//	x = {k: v for k, v in items() if v}
//
// becomes
//
//	x = {
//	    k: v
//	    for k, v in items()
//	    if v
//	}
package explode

import (
	"github.com/cockroachdb/errors"

	"blackguard/internal/cst"
	"blackguard/internal/logging"
)

// MaxIndentScan bounds the column scan that looks for the first token of a line.
const MaxIndentScan = 200

const indentUnit = "    "

// Node types of the python grammar used here.
const (
	typeListComp    = "list_comprehension"
	typeSetComp     = "set_comprehension"
	typeDictComp    = "dictionary_comprehension"
	typeGenerator   = "generator_expression"
	typeForClause   = "for_in_clause"
	typeIfClause    = "if_clause"
	typePair        = "pair"
	typeConditional = "conditional_expression"
)

// Containers are the comprehensions the exploder rewrites. Generator expressions are left alone.
var Containers = []string{typeListComp, typeSetComp, typeDictComp}

var comprehensionTypes = []string{typeListComp, typeSetComp, typeDictComp, typeGenerator}

// Shape describes the context of one for clause.
type Shape struct {
	IsDict               bool
	EndsWithIf           bool
	EndsWithFor          bool
	ValueIsTernary       bool
	ValueIsComprehension bool
	ParentIsFor          bool
	NestedComp           bool
}

// Explode reports whether a comprehension of this shape goes one clause per line.
func (s Shape) Explode() bool {
	wanted := s.IsDict || s.EndsWithIf || s.EndsWithFor || s.ValueIsTernary || s.ValueIsComprehension
	return wanted && !(s.ParentIsFor || s.NestedComp)
}

// Inspect computes the shape of a for clause inside a comprehension container.
func Inspect(clause *cst.Node) Shape {
	comp := clause.Parent
	body := comp.Children[1]

	var s Shape
	s.IsDict = comp.Type == typeDictComp
	if next := clause.NextSibling(); next != nil {
		s.EndsWithIf = next.Type == typeIfClause
		s.EndsWithFor = next.Type == typeForClause
	}

	value := body
	if body.Type == typePair && len(body.Children) == 3 {
		value = body.Children[2]
	}
	s.ValueIsTernary = value.Type == typeConditional
	s.ValueIsComprehension = isComprehension(body) || body.Contains(comprehensionTypes...)

	if prev := clause.PrevSibling(); prev != nil {
		s.ParentIsFor = isClause(prev)
	}
	s.NestedComp = comp.Ancestor(comprehensionTypes...) != nil
	return s
}

// Comprehensions explodes every qualifying comprehension of tree outside disabled regions.
func Comprehensions(tree *cst.Tree) error {
	exploded := 0
	for comp := range cst.Walk(tree.Root, Containers...) {
		if !wellFormed(comp) {
			continue
		}
		for clause := comp.Children[2]; clause != nil && isClause(clause); clause = clause.NextSibling() {
			if clause.Type != typeForClause || !Inspect(clause).Explode() {
				continue
			}
			if err := explode(tree, comp, clause); err != nil {
				return err
			}
			exploded++
		}
	}
	logging.ExplodeDebug("exploded %d comprehensions", exploded)
	return nil
}

// explode puts the body and each clause from first onwards on its own line one level deeper than
// the line holding comp, and the closing bracket back at that line's indentation.
func explode(tree *cst.Tree, comp, first *cst.Node) error {
	base, err := lineIndent(tree, comp.Line())
	if err != nil {
		return err
	}
	deeper := "\n" + base + indentUnit

	cst.SetPrefix(comp.Children[1].FirstLeaf(), deeper)
	for clause := first; clause != nil && isClause(clause); clause = clause.NextSibling() {
		cst.SetPrefix(clause.FirstLeaf(), deeper)
	}
	cst.SetPrefix(comp.LastLeaf(), "\n"+base)
	return nil
}

// lineIndent returns the indentation of the first token starting on line. Tokens spilling over
// from the previous line (multi-line strings) are skipped column by column. On such a line the
// first token follows the string's closing quotes, so its "indentation" is whatever spacing sits
// between them, often nothing or a single space.
func lineIndent(tree *cst.Tree, line int) (string, error) {
	for col := 0; col <= MaxIndentScan; col++ {
		leaf := tree.LeafAt(line, col)
		if leaf != nil && leaf.Line() == line {
			return cst.IndentOf(leaf.Prefix), nil
		}
	}
	return "", errors.AssertionFailedf(
		"no token starts on line %d within %d columns", line+1, MaxIndentScan)
}

// wellFormed reports whether comp is bracket, body, clause..., bracket. Trees recovered from
// syntax errors may miss pieces.
func wellFormed(comp *cst.Node) bool {
	c := comp.Children
	if len(c) < 4 || !c[0].IsLeaf() || !c[len(c)-1].IsLeaf() {
		return false
	}
	return c[2].Type == typeForClause && c[1].FirstLeaf() != nil
}

func isClause(n *cst.Node) bool {
	return n.Type == typeForClause || n.Type == typeIfClause
}

func isComprehension(n *cst.Node) bool {
	for _, t := range comprehensionTypes {
		if n.Type == t {
			return true
		}
	}
	return false
}
