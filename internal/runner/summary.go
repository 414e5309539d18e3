package runner

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Banners closing a run.
const (
	AllDone = "All done! ✨ 🍰 ✨"
	OhNo    = "Oh no! 💥 💔 💥"
)

// Summary counts the outcomes of a run.
type Summary struct {
	Check       bool
	Reformatted int
	Failed      int
	Unchanged   int
}

// Summarize counts results. check selects the wording and exit code of a check run.
func Summarize(results []Result, check bool) Summary {
	s := Summary{Check: check}
	for _, r := range results {
		switch {
		case r.Failed:
			s.Failed++
		case r.Modified:
			s.Reformatted++
		default:
			s.Unchanged++
		}
	}
	return s
}

// Success reports whether the run ends with All done.
func (s Summary) Success() bool {
	return s.Failed == 0 && !(s.Check && s.Reformatted > 0)
}

// ExitCode is 1 when a check run found files to reformat or any file failed.
func (s Summary) ExitCode() int {
	if s.Success() {
		return 0
	}
	return 1
}

// Lines returns the closing report: a separator, the banner and the counts.
func (s Summary) Lines() []string {
	lines := []string{strings.Repeat("-", utf8.RuneCountInString(OhNo))}
	if s.Success() {
		lines = append(lines, AllDone)
	} else {
		lines = append(lines, OhNo)
		if s.Failed > 0 {
			lines = append(lines, fmt.Sprintf("%d files failed to parse (black error)", s.Failed))
		}
	}

	changed, unchanged := "reformatted", "unchanged"
	if s.Check {
		changed, unchanged = "would be reformatted", "would be left unchanged"
	}
	if s.Reformatted > 0 {
		lines = append(lines, fmt.Sprintf("%d files %s", s.Reformatted, changed))
	}
	if s.Unchanged > 0 {
		lines = append(lines, fmt.Sprintf("%d files %s", s.Unchanged, unchanged))
	}
	return lines
}

// Report writes the per-file messages worth showing and the closing report to w, and returns
// the summary. Unchanged files are only listed when verbose.
func Report(w io.Writer, results []Result, opts Options) Summary {
	for _, r := range results {
		if opts.Verbose || r.Modified || r.Failed {
			fmt.Fprintln(w, r.Message)
		}
	}
	s := Summarize(results, opts.Check || opts.Diff)
	for _, line := range s.Lines() {
		fmt.Fprintln(w, line)
	}
	return s
}
