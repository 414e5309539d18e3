package cst

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *Tree {
	t.Helper()
	tree, err := Parse(context.Background(), src)
	require.NoError(t, err)
	return tree
}

func leafValues(n *Node) []string {
	var values []string
	for leaf := range n.Leaves() {
		values = append(values, leaf.Value)
	}
	return values
}

func TestParse_RoundTrip(t *testing.T) {
	sources := map[string]string{
		"empty":        "",
		"no newline":   "x = 1",
		"comments":     "# header\n\nimport os  # trailing\n\n\ndef f(a,  # arg\n      b):\n    return a\n",
		"strings":      "x = \"\"\"doc\n\n    still doc\"\"\"\ny = f\"{x!r} and {'nested'}\"\n",
		"continuation": "total = 1 + \\\n    2\n",
		"brackets":     "graph.use(\n    \"logging\",\n\n    \"space\",\n)\n",
		"crlf":         "x = [\r\n    1,\r\n]\r\n",
		"syntax error": "def f(:\n    pass\n",
		"comprehension": "d = {k: v for k, v in items() if v}\n",
	}

	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			tree := mustParse(t, src)
			if diff := cmp.Diff(src, tree.Code()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, src, tree.Root.Code())
		})
	}
}

func TestParse_EndMarkerOwnsTrailingTrivia(t *testing.T) {
	tree := mustParse(t, "x = 1\n# bye\n")

	last := tree.Root.LastLeaf()
	require.NotNil(t, last)
	assert.Equal(t, TypeEndMarker, last.Type)
	assert.Equal(t, "", last.Value)
	assert.Equal(t, "\n# bye\n", last.Prefix)
}

func TestParse_StringsAreSingleLeaves(t *testing.T) {
	src := "x = \"\"\"a\n\n    b\"\"\"\n"
	tree := mustParse(t, src)

	var strings []*Node
	for leaf := range tree.Root.Leaves() {
		if leaf.Type == "string" {
			strings = append(strings, leaf)
		}
	}
	require.Len(t, strings, 1)
	assert.Equal(t, "\"\"\"a\n\n    b\"\"\"", strings[0].Value)
	assert.Equal(t, " ", strings[0].Prefix)
}

func TestParse_CommentsLiveInPrefixes(t *testing.T) {
	tree := mustParse(t, "x = 1  # note\ny = 2\n")

	assert.Equal(t, []string{"x", "=", "1", "y", "=", "2", ""}, leafValues(tree.Root))
	for leaf := range tree.Root.Leaves() {
		if leaf.Value == "y" {
			assert.Equal(t, "  # note\n", leaf.Prefix)
		}
	}
}

func TestParse_ParentLinks(t *testing.T) {
	tree := mustParse(t, "foo(a, b)\n")

	for n := range Walk(tree.Root) {
		for _, child := range n.Children {
			assert.Same(t, n, child.Parent)
		}
	}
	assert.Nil(t, tree.Root.Parent)
	assert.False(t, tree.HasError())
}

func TestParse_HasError(t *testing.T) {
	tree := mustParse(t, "def f(:\n")
	assert.True(t, tree.HasError())
}

func TestTree_LeafAt(t *testing.T) {
	tree := mustParse(t, "x = [\n    a,\n]\n")

	leaf := tree.LeafAt(1, 0)
	require.NotNil(t, leaf)
	assert.Equal(t, "a", leaf.Value)
	assert.Equal(t, 1, leaf.Line())

	leaf = tree.LeafAt(0, 0)
	require.NotNil(t, leaf)
	assert.Equal(t, "x", leaf.Value)

	leaf = tree.LeafAt(2, 0)
	require.NotNil(t, leaf)
	assert.Equal(t, "]", leaf.Value)

	assert.Nil(t, tree.LeafAt(1, 40), "past the end of the line")
	assert.Nil(t, tree.LeafAt(10, 0))
}

func TestNode_Navigation(t *testing.T) {
	tree := mustParse(t, "foo(a, b)\n")

	var args *Node
	for n := range Walk(tree.Root, "argument_list") {
		args = n
	}
	require.NotNil(t, args)

	assert.Equal(t, "(", args.FirstLeaf().Value)
	assert.Equal(t, ")", args.LastLeaf().Value)
	assert.Equal(t, "(a, b)", args.Code())

	first := args.Children[1]
	assert.Equal(t, "a", first.Value)
	assert.Equal(t, ",", first.NextSibling().Value)
	assert.Equal(t, "(", first.PrevSibling().Value)
	assert.Nil(t, args.Children[0].PrevSibling())

	assert.NotNil(t, first.Ancestor("call"))
	assert.Nil(t, first.Ancestor("list"))
	assert.True(t, tree.Root.Contains("argument_list"))
	assert.False(t, args.Contains("call"))

	assert.Equal(t, TypeEndMarker, args.NextLeaf().Type, "the call ends the file")
	assert.Equal(t, "(", args.Parent.Children[0].NextLeaf().Value)
	assert.Nil(t, tree.Root.NextLeaf())
}
