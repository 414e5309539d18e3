// Package black drives the black code formatter.
//
// black is run as an external process reading the source on stdin and writing the formatted
// source on stdout. Its options are resolved from the project's pyproject.toml the same way
// black resolves them itself.
package black

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"blackguard/internal/logging"
)

// DefaultLineLength applies when no project configuration sets one.
const DefaultLineLength = 100

// DefaultTimeout bounds a single black invocation.
const DefaultTimeout = 60 * time.Second

// Mode holds the black options blackguard passes through.
type Mode struct {
	LineLength              int
	SkipStringNormalization bool
}

// DefaultMode is the mode used outside any configured project.
func DefaultMode() Mode {
	return Mode{LineLength: DefaultLineLength}
}

// Args renders the mode as black command line flags.
func (m Mode) Args() []string {
	length := m.LineLength
	if length <= 0 {
		length = DefaultLineLength
	}
	args := []string{"--line-length", strconv.Itoa(length)}
	if m.SkipStringNormalization {
		args = append(args, "--skip-string-normalization")
	}
	return args
}

// Formatter formats python source.
type Formatter interface {
	Format(ctx context.Context, src string, mode Mode) (string, error)
}

// FormatterFunc adapts a plain function to Formatter.
type FormatterFunc func(ctx context.Context, src string, mode Mode) (string, error)

// Format calls f.
func (f FormatterFunc) Format(ctx context.Context, src string, mode Mode) (string, error) {
	return f(ctx, src, mode)
}

// Exec runs the black executable.
type Exec struct {
	// Binary is the black executable, looked up on PATH when it has no separator.
	Binary  string
	Timeout time.Duration
}

// NewExec returns an Exec for binary with the default timeout.
func NewExec(binary string) *Exec {
	if binary == "" {
		binary = "black"
	}
	return &Exec{Binary: binary, Timeout: DefaultTimeout}
}

// Available reports whether the executable can be found.
func (e *Exec) Available() bool {
	_, err := exec.LookPath(e.Binary)
	return err == nil
}

// Format pipes src through black. A non-zero exit, including black refusing invalid syntax,
// yields a *FormatterError carrying black's diagnostic.
func (e *Exec) Format(ctx context.Context, src string, mode Mode) (string, error) {
	timer := logging.StartTimer(logging.CategoryBlack, "black")
	defer timer.StopWithThreshold(5 * time.Second)

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append([]string{"--quiet"}, mode.Args()...)
	args = append(args, "-")
	logging.BlackDebug("running %s %s (%d bytes)", e.Binary, strings.Join(args, " "), len(src))

	cmd := exec.CommandContext(execCtx, e.Binary, args...)
	cmd.Stdin = strings.NewReader(src)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			err = errors.Wrapf(execCtx.Err(), "black timed out after %s", timeout)
		}
		diagnostic := strings.TrimSpace(stderr.String())
		if diagnostic == "" {
			diagnostic = err.Error()
		}
		logging.BlackWarn("black failed: %s", diagnostic)
		return "", &FormatterError{Diagnostic: diagnostic, Err: err}
	}
	return stdout.String(), nil
}

// FormatterError is black rejecting its input. The source is left as it was.
type FormatterError struct {
	Diagnostic string
	Err        error
}

func (e *FormatterError) Error() string {
	return "black: " + e.Diagnostic
}

func (e *FormatterError) Unwrap() error {
	return e.Err
}

// IsFormatterError reports whether err is, or wraps, a *FormatterError.
func IsFormatterError(err error) bool {
	var fe *FormatterError
	return errors.As(err, &fe)
}

// Diagnostic returns the diagnostic of the *FormatterError in err's chain, or err's message.
func Diagnostic(err error) string {
	var fe *FormatterError
	if errors.As(err, &fe) {
		return fe.Diagnostic
	}
	return err.Error()
}
