package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/asynkron/hiertext/internal/config"
	"github.com/asynkron/hiertext/internal/metrics"
	"github.com/asynkron/hiertext/internal/render"
	"github.com/asynkron/hiertext/internal/source"
	"github.com/asynkron/hiertext/internal/tui"
	"github.com/asynkron/hiertext/pkg/hunk"
	"github.com/asynkron/hiertext/pkg/treediff"
)

func (a *app) diffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff [flags] LEFT RIGHT",
		Short: "Compare two hierarchies",
		Long: `Compare two directories, archives or documents recursively.

Examples:
  hiertext diff -u old/ new/
  hiertext diff -N --exclude '*.class' app-1.0.jar app-1.1.jar
  hiertext diff --mode tokens --ignore-line-comments a.go b.go`,
		Args: cobra.ExactArgs(2),
		RunE: a.runDiff,
	}

	fs := cmd.Flags()
	fs.String("format", "normal", "output format (normal, context, unified)")
	fs.BoolP("unified", "u", false, "same as --format unified")
	fs.BoolP("context-diff", "c", false, "same as --format context")
	fs.IntP("context", "C", hunk.DefaultContext, "lines of context around each difference")
	fs.Bool("full-ranges", false, "print one-line ranges as 3,3 (context) or -3,1 (unified)")
	fs.String("mode", "lines", "comparison unit (lines, tokens)")
	fs.String("language", "", "language of tokenized documents (default: guessed from the name)")
	fs.Bool("ignore-block-comments", false, "ignore block comments in token mode")
	fs.Bool("ignore-doc-comments", false, "ignore documentation comments in token mode")
	fs.Bool("ignore-line-comments", false, "ignore line comments in token mode")
	fs.String("whitespace", "exact", "whitespace folding (exact, change, all)")
	fs.BoolP("ignore-space-change", "b", false, "same as --whitespace change")
	fs.BoolP("ignore-all-space", "w", false, "same as --whitespace all")
	fs.BoolP("ignore-case", "i", false, "ignore case differences")
	fs.BoolP("report-unchanged", "s", false, "report identical documents")
	fs.String("added", "report", "policy for nodes only on the right (report, compare-with-empty, ignore)")
	fs.String("deleted", "report", "policy for nodes only on the left (report, compare-with-empty, ignore)")
	fs.BoolP("new-file", "N", false, "compare missing nodes with empty documents")
	fs.StringArray("equiv", nil, "regexp whose matching lines compare equal, or whose groups form the comparison key")
	fs.StringArrayP("ignore-matching-lines", "I", nil, "ignore changes whose lines all match the regexp")
	fs.StringArray("path-rule", nil, "regexp whose groups form the aligned node path")
	fs.Bool("stats", false, "print comparison metrics to stderr")
	fs.Bool("view", false, "show the report in an interactive viewer")
	fs.Bool("json", false, "print events as JSON lines")
	fs.String("color", "auto", "color the report (auto, always, never)")
	addSourceFlags(fs)
	return cmd
}

// applyShortcuts folds the diff style shorthand flags into cfg.
func applyShortcuts(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if on, _ := fs.GetBool("unified"); on {
		cfg.Diff.Format = "unified"
	}
	if on, _ := fs.GetBool("context-diff"); on {
		cfg.Diff.Format = "context"
	}
	if on, _ := fs.GetBool("ignore-space-change"); on {
		cfg.Diff.Whitespace = "change"
	}
	if on, _ := fs.GetBool("ignore-all-space"); on {
		cfg.Diff.Whitespace = "all"
	}
	if on, _ := fs.GetBool("new-file"); on {
		cfg.Diff.Added = treediff.CompareWithEmpty.String()
		cfg.Diff.Deleted = treediff.CompareWithEmpty.String()
	}
	equivalence, _ := fs.GetStringArray("equiv")
	for _, p := range equivalence {
		cfg.Rules.Equivalence = append(cfg.Rules.Equivalence, config.RuleConfig{Pattern: p})
	}
	ignore, _ := fs.GetStringArray("ignore-matching-lines")
	for _, p := range ignore {
		cfg.Rules.Ignore = append(cfg.Rules.Ignore, config.RuleConfig{Pattern: p})
	}
}

func (a *app) runDiff(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, logger, err := a.load(cmd)
	if err != nil {
		return err
	}
	applyShortcuts(cmd, cfg)
	opts, err := cfg.DiffOptions(logger)
	if err != nil {
		return err
	}
	left, err := source.Open(args[0], cfg.SourceOptions())
	if err != nil {
		return err
	}
	right, err := source.Open(args[1], cfg.SourceOptions())
	if err != nil {
		return err
	}
	stats := metrics.NewInMemoryMetrics()
	opts.Metrics = stats

	fs := cmd.Flags()
	view, _ := fs.GetBool("view")
	asJSON, _ := fs.GetBool("json")
	color, _ := fs.GetString("color")

	var (
		res    treediff.Result
		encErr error
	)
	switch {
	case view:
		res, err = tui.Run(ctx, args[0]+" vs "+args[1], func(ctx context.Context) (treediff.Result, error) {
			return treediff.Compare(ctx, left, right, opts)
		}, cmd.InOrStdin(), a.stdout)
	case asJSON:
		enc := json.NewEncoder(a.stdout)
		opts.Reporter = treediff.ReporterFunc(func(_ context.Context, e treediff.Event) {
			if encErr == nil {
				encErr = enc.Encode(e)
			}
		})
		res, err = treediff.Compare(ctx, left, right, opts)
	default:
		out, cerr := colorWriter(a.stdout, color)
		if cerr != nil {
			return cerr
		}
		opts.Reporter = treediff.NewTextReporter(treediff.NewReporterLogger(cfg.Diff.ReportUnchanged, out))
		res, err = treediff.Compare(ctx, left, right, opts)
	}
	if err != nil {
		return err
	}
	if encErr != nil {
		return encErr
	}
	if on, _ := fs.GetBool("stats"); on {
		if err := metrics.WriteSummary(a.stderr, stats.GetSnapshot()); err != nil {
			return err
		}
	}
	if res.Differs() {
		a.differ()
	}
	return nil
}

// reportWriter colors every write as a block of report text.
type reportWriter struct {
	w io.Writer
	r *render.Renderer
}

func (rw *reportWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(rw.w, rw.r.Report(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}

func colorWriter(w io.Writer, mode string) (io.Writer, error) {
	switch mode {
	case "never":
		return w, nil
	case "always":
		return &reportWriter{w: w, r: render.New(w, termenv.ANSI256)}, nil
	case "", "auto":
		return &reportWriter{w: w, r: render.New(w)}, nil
	}
	return nil, fmt.Errorf("unknown color mode %q", mode)
}
