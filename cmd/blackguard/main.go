package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"blackguard/internal/black"
	"blackguard/internal/config"
	"blackguard/internal/logging"
	"blackguard/internal/reformat"
	"blackguard/internal/runner"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// Global flags
	checkMode  bool
	diffMode   bool
	verbose    bool
	debug      bool
	configPath string

	// Loaded in PersistentPreRunE
	cfg *config.Config

	// newFormatter builds the black driver; tests swap it for a fake.
	newFormatter = func(c *config.Config) black.Formatter {
		e := black.NewExec(c.Black.Binary)
		e.Timeout = c.GetBlackTimeout()
		return e
	}
)

// exitError carries a non-zero exit code without an error message of its own.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "blackguard [flags] SRC",
	Short: "black, with your layout kept",
	Long: `blackguard runs black on python code and then restores the layout black would
otherwise destroy: blank lines inside brackets, method chains one call per line and
exploded one-element tuples. Comprehensions with a condition, several for clauses, a
conditional value or a dict body are exploded one clause per line.

SRC is a python file, a directory (every .py file below it) or - for stdin.

  --check    do not write files; exit 1 if any file would change or fails
  --diff     like --check, and print what would change
  --verbose  also list files that are left unchanged`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.FileName
		}
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return errors.Wrapf(err, "invalid configuration %s", path)
		}
		cfg = loaded

		if err := logging.Initialize(cfg.Logging.Logger(debug)); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		logging.BootDebug("configuration loaded from %s", path)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: runFormat,
}

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Reformat python files under DIR whenever they are saved",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the blackguard version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "blackguard %s\n", version)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "List unchanged files too")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (default: ./"+config.FileName+")")

	rootCmd.Flags().BoolVar(&checkMode, "check", false, "Don't write files back; exit 1 if any would change")
	rootCmd.Flags().BoolVar(&diffMode, "diff", false, "Don't write files back; print a diff for each file that would change")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runFormat formats SRC and prints black's report on stderr.
func runFormat(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	src := args[0]
	paths, err := runner.Discover(src, cfg.Runner.Exclude)
	if err != nil {
		return err
	}

	opts := runner.Options{Check: checkMode, Diff: diffMode, Verbose: verbose, Color: true}
	r := runner.New(reformat.New(newFormatter(cfg)), opts, cfg)
	r.Stdin = cmd.InOrStdin()
	r.Stdout = cmd.OutOrStdout()

	logging.Boot("processing %d files from %s", len(paths), src)
	results, err := r.Run(ctx, paths)
	if err != nil {
		return err
	}

	summary := runner.Report(cmd.ErrOrStderr(), results, r.Options)
	if code := summary.ExitCode(); code != 0 {
		return &exitError{code: code}
	}
	return nil
}

// runWatch reformats files under DIR as they change until interrupted.
func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	dir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	opts := runner.Options{Verbose: verbose}
	r := runner.New(reformat.New(newFormatter(cfg)), opts, cfg)
	w, err := runner.NewWatcher(r, dir)
	if err != nil {
		return err
	}
	w.OnResult = func(res runner.Result) {
		if verbose || res.Modified || res.Failed {
			fmt.Fprintln(cmd.ErrOrStderr(), res.Message)
		}
	}

	if err := w.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for changes (Ctrl+C to stop)\n", dir)

	w.Wait()
	w.Stop()
	return nil
}
