package guard

import (
	"context"
	"strings"
	"testing"

	"blackguard/internal/cst"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *cst.Tree {
	t.Helper()
	tree, err := cst.Parse(context.Background(), src)
	require.NoError(t, err)
	return tree
}

func encode(t *testing.T, g *Guard, src string) string {
	t.Helper()
	tree := parse(t, src)
	g.Encode(tree)
	return tree.Code()
}

func decode(t *testing.T, g *Guard, src string) string {
	t.Helper()
	tree := parse(t, src)
	g.Decode(tree)
	return tree.Code()
}

const (
	blankArgs = `graph.use(
    "logging",

    "space",

    # Sagemaker basics
    "sagemaker",
)
`
	dottedChain = `batch = (
    batch
    .sample(frac=0.1)
    .reset_index(drop=True)
)
`
	labelsChain = `LABELS = set(
    df[df.labels.apply(len) > 0]
    .flag.apply(curate)
    .apply(normalize)
    .unique()
)
`
	explodedTuple = `x = (
    1,
)
`
)

func TestGuards_HaveDistinctSentinels(t *testing.T) {
	seen := map[string]string{}
	for _, g := range All() {
		for other, name := range seen {
			assert.NotContains(t, g.Sentinel, other, "%s sentinel overlaps %s", g.Name, name)
			assert.NotContains(t, other, g.Sentinel, "%s sentinel overlaps %s", g.Name, name)
		}
		seen[g.Sentinel] = g.Name
	}
	assert.Len(t, seen, 3)
}

func TestGuards_RoundTrip(t *testing.T) {
	sources := []string{
		blankArgs,
		dottedChain,
		labelsChain,
		explodedTuple,
		"def f():\n    a = 1\n\n    b = 2\n",
		"x = [\n\n\n    1,\n]\n",
		"# fmt: off\nfoo(\n    a,\n\n    b,\n)\n# fmt: on\n",
		"y = (\n    batch\n    # keep\n    .sample()\n)\n",
	}

	for _, g := range All() {
		for _, src := range sources {
			t.Run(g.Name, func(t *testing.T) {
				encoded := encode(t, g, src)
				assert.Equal(t, src, decode(t, g, encoded))
			})
		}
	}
}

func TestGuards_DecodeWithoutSentinelIsNoop(t *testing.T) {
	for _, g := range All() {
		assert.Equal(t, blankArgs, decode(t, g, blankArgs), g.Name)
		assert.Equal(t, "\n\n    ", g.DecodePrefix("\n\n    "), g.Name)
	}
}

func TestGuards_IgnoreForeignSentinels(t *testing.T) {
	for _, g := range All() {
		for _, other := range All() {
			if g == other {
				continue
			}
			prefix := "\n    # " + other.Sentinel + "\n    "
			assert.Equal(t, prefix, g.DecodePrefix(prefix), "%s decoded %s", g.Name, other.Name)
		}
	}
}

func TestBlankLines_Encode(t *testing.T) {
	want := `graph.use(
    "logging",
    # BLACKGUARD_BLANK_LINE
    "space",
    # BLACKGUARD_BLANK_LINE
    # Sagemaker basics
    "sagemaker",
)
`
	assert.Equal(t, want, encode(t, BlankLines, blankArgs))
}

func TestBlankLines_LeavesStatementsAlone(t *testing.T) {
	src := "def f():\n    a = 1\n\n    b = 2\n"
	assert.Equal(t, src, encode(t, BlankLines, src))
}

func TestBlankLines_DecodeReindented(t *testing.T) {
	// black may move the sentinel to another indentation level
	src := "foo(\n    a,\n        # BLACKGUARD_BLANK_LINE\n    b,\n)\n"
	assert.Equal(t, "foo(\n    a,\n\n    b,\n)\n", decode(t, BlankLines, src))
}

func TestBlankLines_SkipsDisabledRegion(t *testing.T) {
	src := "# fmt: off\nfoo(\n    a,\n\n    b,\n)\n# fmt: on\nbar(\n    a,\n\n    b,\n)\n"
	got := encode(t, BlankLines, src)
	assert.Equal(t, 1, strings.Count(got, BlankLineSentinel))
	assert.True(t, strings.HasPrefix(got, "# fmt: off\nfoo(\n    a,\n\n    b,\n)\n"))
}

func TestDottedChains_Encode(t *testing.T) {
	want := `batch = (
    batch
    # BLACKGUARD_DOTTED_CHAIN
    .sample(frac=0.1)
    # BLACKGUARD_DOTTED_CHAIN
    .reset_index(drop=True)
)
`
	assert.Equal(t, want, encode(t, DottedChains, dottedChain))
}

func TestDottedChains_EncodeOnlyLineStartingDots(t *testing.T) {
	got := encode(t, DottedChains, labelsChain)
	want := `LABELS = set(
    df[df.labels.apply(len) > 0]
    # BLACKGUARD_DOTTED_CHAIN
    .flag.apply(curate)
    # BLACKGUARD_DOTTED_CHAIN
    .apply(normalize)
    # BLACKGUARD_DOTTED_CHAIN
    .unique()
)
`
	assert.Equal(t, want, got)
}

func TestDottedChains_KeepsExistingComments(t *testing.T) {
	src := "y = (\n    batch\n    # keep\n    .sample()\n)\n"
	want := "y = (\n    batch\n    # keep\n    # BLACKGUARD_DOTTED_CHAIN\n    .sample()\n)\n"
	assert.Equal(t, want, encode(t, DottedChains, src))
}

func TestDottedChains_Rejects(t *testing.T) {
	sources := map[string]string{
		"bare call on next line": "foo(\n    batch\n    (batch)\n)\n",
		"list elements":          "x = [\n    batch,\n    batch,\n]\n",
		"single line chain":      "x = batch.sample().reset_index()\n",
		"primary on open line":   "x = (batch\n    .sample())\n",
		"statement in a block":   "def f():\n    self.assertThat(x) \\\n        .isEqualTo(y)\n",
	}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, src, encode(t, DottedChains, src))
		})
	}
}

func TestDottedChains_SkipsContinuationLines(t *testing.T) {
	src := "y = (\n    batch \\\n    .sample()\n    .reset_index()\n)\n"
	want := "y = (\n    batch \\\n    .sample()\n    # BLACKGUARD_DOTTED_CHAIN\n    .reset_index()\n)\n"
	assert.Equal(t, want, encode(t, DottedChains, src))
}

func TestGuards_LeaveBackslashContinuationsCompilable(t *testing.T) {
	src := "def f():\n    self.assertThat(x) \\\n        .isEqualTo(y)\n"
	tree := parse(t, src)
	for _, g := range All() {
		g.Encode(tree)
	}
	assert.Equal(t, src, tree.Code())
}

func TestDottedChains_Detect(t *testing.T) {
	tree := parse(t, dottedChain)

	var detected []string
	for n := range cst.Walk(tree.Root, chainTypes...) {
		if DottedChains.Detect(n) {
			detected = append(detected, strings.TrimSpace(n.Code()))
		}
	}
	require.Len(t, detected, 1, "only the outermost link is a chain")
	assert.True(t, strings.HasSuffix(detected[0], ".reset_index(drop=True)"))
}

func TestDottedChains_DecodeIsGlobal(t *testing.T) {
	src := "x = [\n    # BLACKGUARD_DOTTED_CHAIN\n    a,\n]\n"
	assert.Equal(t, "x = [\n    a,\n]\n", decode(t, DottedChains, src))
}

func TestSingletonTuples_Encode(t *testing.T) {
	want := "x = (\n    # BLACKGUARD_SINGLETON_TUPLE\n    1,\n)\n"
	assert.Equal(t, want, encode(t, SingletonTuples, explodedTuple))
}

func TestSingletonTuples_Rejects(t *testing.T) {
	sources := []string{
		"x = (1,)\n",
		"x = (\n    1,\n    2,\n)\n",
		"x = (\n    1\n)\n",
	}
	for _, src := range sources {
		assert.Equal(t, src, encode(t, SingletonTuples, src))
	}
}

func TestLineCodec_Idempotent(t *testing.T) {
	prefix := SingletonTuples.EncodePrefix("\n    ")
	assert.Equal(t, prefix, SingletonTuples.EncodePrefix(prefix))
	assert.Equal(t, "\n    ", SingletonTuples.DecodePrefix(prefix))
}
