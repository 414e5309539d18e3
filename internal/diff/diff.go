// Package diff renders the changes blackguard would make as a unified diff.
// Line matching is done by sergi/go-diff; this package only groups the result into hunks.
package diff

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultContext is the number of unchanged lines shown around a change, as black --diff does.
const DefaultContext = 5

// LineType represents the type of diff line
type LineType int

const (
	LineContext LineType = iota // Unchanged context line
	LineAdded                   // Added line
	LineRemoved                 // Removed line
)

// marker is the unified diff prefix of each line type.
func (t LineType) marker() string {
	switch t {
	case LineAdded:
		return "+"
	case LineRemoved:
		return "-"
	default:
		return " "
	}
}

// Line represents a single line in the diff
type Line struct {
	LineNum int
	Content string
	Type    LineType
}

// Hunk represents a group of changes
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// Header returns the @@ line of the hunk.
func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%s +%s @@", formatRange(h.OldStart, h.OldCount), formatRange(h.NewStart, h.NewCount))
}

// formatRange follows the unified format: a single line is just its number, an empty range names
// the line before it.
func formatRange(start, count int) string {
	if count == 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}

// FileDiff represents changes to a single file
type FileDiff struct {
	OldPath string
	NewPath string
	Hunks   []Hunk
}

// Empty reports whether the contents were identical.
func (d *FileDiff) Empty() bool {
	return len(d.Hunks) == 0
}

// String renders the diff in unified format. An empty diff renders as "".
func (d *FileDiff) String() string {
	if d.Empty() {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", d.OldPath, d.NewPath)
	for _, h := range d.Hunks {
		b.WriteString(h.Header())
		b.WriteByte('\n')
		for _, l := range h.Lines {
			b.WriteString(l.Type.marker())
			b.WriteString(l.Content)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Engine provides diff computation with caching
type Engine struct {
	dmp     *diffmatchpatch.DiffMatchPatch
	context int
	cache   sync.Map // cacheKey -> []Hunk
}

type cacheKey struct {
	oldHash uint64
	newHash uint64
}

// NewEngine creates an engine showing context unchanged lines around each change.
func NewEngine(context int) *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0 // exact line matching over speed
	if context < 0 {
		context = 0
	}
	return &Engine{dmp: dmp, context: context}
}

// DefaultEngine is a singleton engine for general use
var DefaultEngine = NewEngine(DefaultContext)

// ComputeDiff compares two versions of a file line by line. Identical input pairs are served from
// the engine's cache.
func (e *Engine) ComputeDiff(oldPath, newPath, oldContent, newContent string) *FileDiff {
	d := &FileDiff{OldPath: oldPath, NewPath: newPath}
	if oldContent == newContent {
		return d
	}

	key := cacheKey{hash(oldContent), hash(newContent)}
	if cached, ok := e.cache.Load(key); ok {
		d.Hunks = cached.([]Hunk)
		return d
	}

	// Diff whole lines so hunks never split a line.
	a, b, lineArray := e.dmp.DiffLinesToChars(oldContent, newContent)
	diffs := e.dmp.DiffMain(a, b, false)
	diffs = e.dmp.DiffCharsToLines(diffs, lineArray)

	d.Hunks = group(operations(diffs), e.context)
	e.cache.Store(key, d.Hunks)
	return d
}

// ComputeDiff is a convenience function using the default engine
func ComputeDiff(oldPath, newPath, oldContent, newContent string) *FileDiff {
	return DefaultEngine.ComputeDiff(oldPath, newPath, oldContent, newContent)
}

// Unified returns the unified diff between two versions of a file, or "" when they are equal.
func Unified(oldPath, newPath, oldContent, newContent string) string {
	return ComputeDiff(oldPath, newPath, oldContent, newContent).String()
}

// operation is one line of either side, positioned by the number of old and new lines before it.
type operation struct {
	typ     LineType
	oldLine int
	newLine int
	content string
}

func operations(diffs []diffmatchpatch.Diff) []operation {
	var ops []operation
	oldLine, newLine := 0, 0
	for _, d := range diffs {
		for _, line := range splitLines(d.Text) {
			op := operation{oldLine: oldLine, newLine: newLine, content: line}
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				op.typ = LineContext
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				op.typ = LineRemoved
				oldLine++
			case diffmatchpatch.DiffInsert:
				op.typ = LineAdded
				newLine++
			}
			ops = append(ops, op)
		}
	}
	return ops
}

// splitLines cuts text into lines without their terminators.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// group cuts ops into hunks. Changes separated by at most 2*context unchanged lines share a hunk.
func group(ops []operation, context int) []Hunk {
	var changes []int
	for i, op := range ops {
		if op.typ != LineContext {
			changes = append(changes, i)
		}
	}

	var hunks []Hunk
	for i := 0; i < len(changes); {
		j := i
		for j+1 < len(changes) && changes[j+1]-changes[j] <= 2*context+1 {
			j++
		}
		start := max(0, changes[i]-context)
		end := min(len(ops), changes[j]+context+1)

		h := Hunk{OldStart: ops[start].oldLine + 1, NewStart: ops[start].newLine + 1}
		for _, op := range ops[start:end] {
			line := Line{Content: op.content, Type: op.typ, LineNum: op.oldLine + 1}
			if op.typ != LineAdded {
				h.OldCount++
			}
			if op.typ != LineRemoved {
				h.NewCount++
			}
			if op.typ == LineAdded {
				line.LineNum = op.newLine + 1
			}
			h.Lines = append(h.Lines, line)
		}
		if h.OldCount == 0 {
			h.OldStart--
		}
		if h.NewCount == 0 {
			h.NewStart--
		}
		hunks = append(hunks, h)
		i = j + 1
	}
	return hunks
}

// hash computes a simple hash for caching (FNV-1a algorithm)
func hash(s string) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
