// Package cli implements the hiertext command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/asynkron/hiertext/internal/config"
	"github.com/asynkron/hiertext/internal/logging"
)

// Exit codes follow diff and grep: 0 when nothing differs or something
// matched, 1 for differences or no match, 2 for trouble.
const (
	ExitOK      = 0
	ExitDiffer  = 1
	ExitTrouble = 2
)

// statusError ends a command with a specific exit code. A nil err means
// the message was already printed.
type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *statusError) Unwrap() error { return e.err }

type app struct {
	stdout io.Writer
	stderr io.Writer
	code   int
}

// Run executes the command line in args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(stderr, "hiertext: %v\n", err)
		return ExitTrouble
	}

	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		var se *statusError
		if errors.As(err, &se) {
			if se.err != nil {
				fmt.Fprintf(stderr, "hiertext: %v\n", se.err)
			}
			return se.code
		}
		fmt.Fprintf(stderr, "hiertext: %v\n", err)
		return ExitTrouble
	}
	return a.code
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "hiertext",
		Short: "Compare, patch and search hierarchies of directories, archives and documents",
		Long: `hiertext compares two hierarchies of directories, zip and tar archives,
compressed streams and text documents, and prints their differences in
normal, context or unified format. It also applies such differences,
searches and lists hierarchies, and packs them into archives.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (YAML, JSON or TOML)")
	pf.String("log-level", "warn", "diagnostic log level (verbose, info, warn, error)")
	pf.String("log-format", "console", "diagnostic log format (console, json, plain)")
	pf.Bool("sequential", false, "visit nodes one at a time in key order")
	pf.Int("workers", 0, "maximum concurrent node tasks (0 = number of CPUs)")
	pf.Bool("keep-going", false, "log unreadable nodes and continue")
	pf.String("charset", "", "charset of text documents (default UTF-8)")
	pf.StringSlice("exclude", nil, "skip nodes whose name matches the glob")

	root.AddCommand(
		a.diffCommand(),
		a.patchCommand(),
		a.grepCommand(),
		a.findCommand(),
		a.packCommand(),
	)
	return root
}

// addSourceFlags registers the flags deciding how archives and compressed
// streams are opened.
func addSourceFlags(fs *pflag.FlagSet) {
	fs.Bool("expand-archives", true, "descend into zip and tar archives")
	fs.Bool("decompress", true, "read gzip and zstd streams decompressed")
}

// load reads the configuration for cmd and builds the diagnostic logger.
func (a *app) load(cmd *cobra.Command) (*config.Config, logging.Logger, error) {
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(file, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.Logger(a.stderr)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// differ marks the run as having found differences, or no match.
func (a *app) differ() {
	a.code = ExitDiffer
}
