// Package runner applies the reformat pipeline to files and reports the outcome the way black's
// command line does.
package runner

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"blackguard/internal/black"
	"blackguard/internal/config"
	"blackguard/internal/diff"
	"blackguard/internal/logging"
	"blackguard/internal/reformat"
)

// StdinPath names standard input on the command line.
const StdinPath = "-"

// Options are the command line switches that change what happens to a file.
type Options struct {
	// Check reports without writing.
	Check bool
	// Diff prints what would change. It implies Check.
	Diff bool
	// Verbose reports unchanged files too.
	Verbose bool
	// Color styles diffs for a terminal.
	Color bool
}

// Result is the outcome for one file.
type Result struct {
	Path     string
	Modified bool
	Failed   bool
	Message  string
	Output   string
	Err      error
}

// Runner processes files with one pipeline.
type Runner struct {
	Pipeline *reformat.Pipeline
	Options  Options
	Config   *config.Config

	// ModeFor resolves the black options of a file.
	ModeFor func(path string) black.Mode
	// Stdin and Stdout are used in stdin mode.
	Stdin  io.Reader
	Stdout io.Writer
}

// New returns a runner. Diff implies Check.
func New(pipeline *reformat.Pipeline, opts Options, cfg *config.Config) *Runner {
	if opts.Diff {
		opts.Check = true
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Runner{
		Pipeline: pipeline,
		Options:  opts,
		Config:   cfg,
		ModeFor:  black.ModeFor,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
	}
}

// Discover expands src into the python files to process. A directory yields every .py file
// below it, skipping directories named in exclude; a file or "-" yields itself.
func Discover(src string, exclude []string) ([]string, error) {
	if src == StdinPath {
		return []string{StdinPath}, nil
	}
	info, err := os.Stat(src)
	if err != nil {
		return nil, errors.Wrapf(err, "path %s does not exist", src)
	}
	if !info.IsDir() {
		return []string{src}, nil
	}

	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[name] = true
	}

	var paths []string
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != src && skip[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".py" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk %s", src)
	}
	sort.Strings(paths)
	logging.RunnerDebug("discovered %d python files under %s", len(paths), src)
	return paths, nil
}

// Run processes paths, in parallel when there are more than the configured threshold. Results
// keep the order of paths. Per-file failures are reported in the results, not as an error.
func (r *Runner) Run(ctx context.Context, paths []string) ([]Result, error) {
	timer := logging.StartTimer(logging.CategoryRunner, "run")
	defer timer.Stop()

	results := make([]Result, len(paths))
	if len(paths) <= r.Config.Runner.ParallelThreshold {
		for i, path := range paths {
			if err := ctx.Err(); err != nil {
				return results[:i], err
			}
			results[i] = r.ProcessFile(ctx, path)
		}
		return results, nil
	}

	workers := r.Config.GetWorkers()
	logging.Runner("processing %d files with %d workers", len(paths), workers)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = r.ProcessFile(ctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ProcessFile reformats one file, writing it back unless checking. "-" reads standard input
// and writes the result to Stdout.
func (r *Runner) ProcessFile(ctx context.Context, path string) Result {
	if path == StdinPath {
		data, err := io.ReadAll(r.Stdin)
		if err != nil {
			return failed(path, errors.Wrap(err, "read stdin"))
		}
		return r.ProcessText(ctx, path, string(data))
	}

	info, err := os.Stat(path)
	if err != nil {
		return failed(path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return failed(path, err)
	}

	res := r.ProcessText(ctx, path, string(data))
	if res.Failed || !res.Modified || r.Options.Check {
		return res
	}
	if err := os.WriteFile(path, []byte(res.Output), info.Mode().Perm()); err != nil {
		return failed(path, errors.Wrapf(err, "write %s", path))
	}
	logging.RunnerDebug("wrote %s", path)
	return res
}

// ProcessText reformats input that was read from path. Nothing is written to disk; in stdin mode
// the output goes to Stdout unless checking.
func (r *Runner) ProcessText(ctx context.Context, path, input string) Result {
	stdin := path == StdinPath
	modePath := path
	if stdin {
		modePath = "."
	}

	newline := lineEnding(input)
	text := strings.ReplaceAll(input, "\r\n", "\n")

	formatted, err := r.Pipeline.Reformat(ctx, text, r.ModeFor(modePath))
	if err != nil {
		return failed(path, err)
	}
	output := formatted
	if newline != "\n" {
		output = strings.ReplaceAll(formatted, "\n", newline)
	}

	res := Result{Path: path, Output: output, Modified: output != input}
	var verb string
	switch {
	case r.Options.Check && res.Modified:
		verb = "Would reformat"
	case res.Modified:
		verb = "Reformatted"
	default:
		verb = "Nothing to do for"
	}
	res.Message = verb + displayPath(path)

	if r.Options.Diff {
		var report string
		if res.Modified {
			report = r.diff(path, text, formatted)
		}
		res.Message = report + "\n" + res.Message
	}

	if stdin && !r.Options.Check && r.Stdout != nil {
		if _, err := io.WriteString(r.Stdout, output); err != nil {
			return failed(path, errors.Wrap(err, "write stdout"))
		}
	}
	return res
}

func (r *Runner) diff(path, input, output string) string {
	name := path
	if path == StdinPath {
		name = ""
	}
	unified := diff.Unified(name, name, input, output)
	if r.Options.Color {
		unified = diff.Colorize(unified)
	}
	header := "\nDiff"
	if path != StdinPath {
		header += " for " + path
	}
	return header + " \n" + unified
}

// lineEnding is the newline the file's first line ends with, "\r\n" or "\n". The pipeline
// only ever sees "\n"; the output is written back with the first line's ending throughout.
func lineEnding(src string) string {
	if i := strings.IndexByte(src, '\n'); i > 0 && src[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

func failed(path string, err error) Result {
	logging.RunnerWarn("failed to reformat %s: %v", path, err)
	return Result{
		Path:    path,
		Failed:  true,
		Message: "Failed to reformat" + displayPath(path) + ". " + black.Diagnostic(err),
		Err:     err,
	}
}

// displayPath is the path as shown in messages, with its leading space; stdin has none.
func displayPath(path string) string {
	if path == StdinPath {
		return ""
	}
	return " " + path
}
