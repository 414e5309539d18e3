package cst

import (
	"regexp"
	"strings"
)

// Region directives understood by black. They are compared against whole comment lines.
var (
	disableDirectives = map[string]bool{"# fmt: off": true, "# fmt:off": true, "# yapf: disable": true}
	enableDirectives  = map[string]bool{"# fmt: on": true, "# fmt:on": true, "# yapf: enable": true}
)

// Trailing directive that leaves the statement on its line untouched.
var skipDirectives = map[string]bool{"fmt: skip": true, "fmt:skip": true}

var trailingIndent = regexp.MustCompile(` *$`)

// IndentOf returns the run of spaces that ends prefix, i.e. the indentation of the token the
// prefix belongs to when that token starts a line.
func IndentOf(prefix string) string {
	return trailingIndent.FindString(prefix)
}

// SetPrefix replaces the layout part of leaf's prefix with layout. A whitespace-only prefix is
// replaced outright; otherwise everything up to the last newline (comments, continuation
// backslashes) is kept and layout is appended there.
func SetPrefix(leaf *Node, layout string) {
	if strings.TrimSpace(leaf.Prefix) == "" {
		leaf.Prefix = layout
		return
	}
	i := strings.LastIndex(leaf.Prefix, "\n")
	if i < 0 {
		leaf.Prefix = layout
		return
	}
	leaf.Prefix = leaf.Prefix[:i] + layout
}

// InsertLine adds a full comment line right before the token owning prefix, at the token's own
// indentation. The line goes after the last newline, so comments already in the prefix stay
// above it. A prefix without a newline is returned unchanged.
func InsertLine(prefix, comment string) string {
	i := strings.LastIndex(prefix, "\n")
	if i < 0 {
		return prefix
	}
	indent := prefix[i+1:]
	return prefix[:i] + "\n" + indent + comment + "\n" + indent
}

// regionToggle scans the standalone comment lines of prefix and reports the last region
// directive found. ok is false when the prefix holds no directive. A trailing comment on the
// previous token's line is not standalone and is skipped unless bol says the prefix starts a
// line.
func regionToggle(prefix string, bol bool) (disabled, ok bool) {
	if !strings.Contains(prefix, "#") {
		return false, false
	}
	lines := strings.Split(prefix, "\n")
	if !bol {
		lines = lines[1:]
	}
	for _, line := range lines {
		comment := strings.TrimSpace(line)
		switch {
		case disableDirectives[comment]:
			disabled, ok = true, true
		case enableDirectives[comment]:
			disabled, ok = false, true
		}
	}
	return disabled, ok
}

// trailingSkip reports whether prefix opens with a trailing "# fmt: skip" comment on the previous
// token's line. The directive may close a chain of comments, as in "# noqa # fmt: skip".
func trailingSkip(prefix string, bol bool) bool {
	if bol {
		return false
	}
	line, _, _ := strings.Cut(prefix, "\n")
	i := strings.LastIndex(line, "#")
	if i < 0 {
		return false
	}
	return skipDirectives[strings.TrimSpace(line[i+1:])]
}
