package treediff

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/asynkron/hiertext/internal/logging"
	"github.com/asynkron/hiertext/internal/metrics"
	"github.com/asynkron/hiertext/pkg/docdiff"
	"github.com/asynkron/hiertext/pkg/hunk"
	"github.com/asynkron/hiertext/pkg/textdoc"
	"github.com/asynkron/hiertext/pkg/tree"
)

// Policy decides how nodes present on one side only are reported.
type Policy int

const (
	// Report emits one event for the node.
	Report Policy = iota
	// CompareWithEmpty diffs every document below the node against an
	// empty document.
	CompareWithEmpty
	// Ignore emits nothing.
	Ignore
)

// ParsePolicy maps a configuration value onto a Policy.
func ParsePolicy(value string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "report":
		return Report, nil
	case "compare-with-empty", "empty":
		return CompareWithEmpty, nil
	case "ignore":
		return Ignore, nil
	}
	return Report, fmt.Errorf("treediff: unknown policy %q", value)
}

func (p Policy) String() string {
	switch p {
	case CompareWithEmpty:
		return "compare-with-empty"
	case Ignore:
		return "ignore"
	default:
		return "report"
	}
}

// Options configure a hierarchy comparison.
type Options struct {
	Tree      tree.Options
	Document  docdiff.Options
	Formatter hunk.Formatter
	// Added and Deleted select the policy for one-sided nodes.
	Added   Policy
	Deleted Policy
	// ReportUnchanged emits Unchanged events for equal documents.
	ReportUnchanged bool
	// Charset decodes documents before comparing them. Empty means UTF-8.
	Charset  string
	Metrics  metrics.Metrics
	Reporter Reporter
}

// Result is the outcome of a hierarchy comparison.
type Result struct {
	Events []Event
}

// Differs reports whether any event is a difference.
func (r Result) Differs() bool {
	for _, e := range r.Events {
		if e.Differs() {
			return true
		}
	}
	return false
}

// Compare aligns the hierarchies behind left and right and returns the
// events in key order. Each event is passed to opts.Reporter as well.
func Compare(ctx context.Context, left, right tree.Source, opts Options) (Result, error) {
	leftRoot, rightRoot := tree.NewRoot(left), tree.NewRoot(right)
	v := &visitor{
		opts:       opts,
		metrics:    metrics.OrNoOp(opts.Metrics),
		leftLabel:  left.Name(),
		rightLabel: right.Name(),
	}
	events, err := tree.Compare[Event](ctx, leftRoot, rightRoot, v, opts.Tree)
	if err != nil {
		return Result{}, err
	}
	for _, e := range events {
		v.metrics.RecordEvent(string(e.Type))
		if opts.Reporter != nil {
			opts.Reporter.Report(ctx, e)
		}
	}
	return Result{Events: events}, nil
}

type visitor struct {
	opts       Options
	metrics    metrics.Metrics
	leftLabel  string
	rightLabel string
}

func (v *visitor) Added(ctx context.Context, right *tree.Node) ([]Event, error) {
	return v.oneSided(ctx, v.opts.Added, right, false)
}

func (v *visitor) Deleted(ctx context.Context, left *tree.Node) ([]Event, error) {
	return v.oneSided(ctx, v.opts.Deleted, left, true)
}

func (v *visitor) oneSided(ctx context.Context, policy Policy, n *tree.Node, onLeft bool) ([]Event, error) {
	switch policy {
	case Ignore:
		return nil, nil
	case CompareWithEmpty:
		return tree.Walk[Event](ctx, n, func(ctx context.Context, d *tree.Node) ([]Event, bool, error) {
			if d.Kind.HasChildren() {
				return nil, true, nil
			}
			data, err := v.read(ctx, d)
			if err != nil {
				return nil, false, err
			}
			if onLeft {
				e, err := v.documents(d.Path, tree.Label(v.leftLabel, d), data, tree.Label(v.rightLabel, d), nil)
				return e, false, err
			}
			e, err := v.documents(d.Path, tree.Label(v.leftLabel, d), nil, tree.Label(v.rightLabel, d), data)
			return e, false, err
		}, v.opts.Tree)
	}
	e := Event{Type: Added, Path: n.Path, Left: tree.Label(v.leftLabel, n), Right: tree.Label(v.rightLabel, n), RightKind: n.Kind.String()}
	if onLeft {
		e.Type, e.LeftKind, e.RightKind = Deleted, n.Kind.String(), ""
	}
	return []Event{e}, nil
}

func (v *visitor) KindChanged(_ context.Context, left, right *tree.Node) ([]Event, error) {
	return []Event{{
		Type:      KindChanged,
		Path:      left.Path,
		Left:      tree.Label(v.leftLabel, left),
		Right:     tree.Label(v.rightLabel, right),
		LeftKind:  left.Kind.String(),
		RightKind: right.Kind.String(),
	}}, nil
}

func (v *visitor) LeafPair(ctx context.Context, left, right *tree.Node) ([]Event, error) {
	leftLabel, rightLabel := tree.Label(v.leftLabel, left), tree.Label(v.rightLabel, right)
	same, err := v.fastEqual(ctx, left, right)
	if err != nil {
		return nil, err
	}
	if same {
		v.metrics.RecordFastPath()
		return v.unchanged(left.Path, leftLabel, rightLabel), nil
	}

	a, err := v.read(ctx, left)
	if err != nil {
		return nil, err
	}
	b, err := v.read(ctx, right)
	if err != nil {
		return nil, err
	}
	return v.documents(left.Path, leftLabel, a, rightLabel, b)
}

// fastEqual compares sizes and, only when they agree, checksums.
func (v *visitor) fastEqual(ctx context.Context, left, right *tree.Node) (bool, error) {
	ls, err := left.Size(ctx)
	if err != nil {
		return false, err
	}
	rs, err := right.Size(ctx)
	if err != nil {
		return false, err
	}
	if ls != rs {
		return false, nil
	}
	lc, err := left.CRC32(ctx)
	if err != nil {
		return false, err
	}
	rc, err := right.CRC32(ctx)
	if err != nil {
		return false, err
	}
	return lc == rc, nil
}

func (v *visitor) read(ctx context.Context, n *tree.Node) ([]byte, error) {
	data, err := n.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	v.metrics.RecordBytesRead(int64(len(data)))
	return data, nil
}

func (v *visitor) unchanged(path, leftLabel, rightLabel string) []Event {
	if !v.opts.ReportUnchanged {
		return nil
	}
	return []Event{{Type: Unchanged, Path: path, Left: leftLabel, Right: rightLabel}}
}

// documents runs the document pipeline on two materialized documents and
// renders the hunks before any event is produced.
func (v *visitor) documents(path, leftLabel string, a []byte, rightLabel string, b []byte) ([]Event, error) {
	if textdoc.IsBinary(a) || textdoc.IsBinary(b) {
		if bytes.Equal(a, b) {
			return v.unchanged(path, leftLabel, rightLabel), nil
		}
		return []Event{{Type: BinaryChanged, Path: path, Left: leftLabel, Right: rightLabel}}, nil
	}
	var err error
	if a, err = textdoc.Decode(a, v.opts.Charset); err != nil {
		return nil, &tree.PathError{Op: "decode", Path: leftLabel, Err: err}
	}
	if b, err = textdoc.Decode(b, v.opts.Charset); err != nil {
		return nil, &tree.PathError{Op: "decode", Path: rightLabel, Err: err}
	}

	start := time.Now()
	result, err := docdiff.CompareBytes(leftLabel, a, rightLabel, b, v.opts.Document)
	v.metrics.RecordDocumentDiff(time.Since(start), err == nil && !result.Empty())
	if err != nil {
		return nil, &tree.PathError{Op: "diff", Path: path, Err: err}
	}
	if result.Empty() {
		return v.unchanged(path, leftLabel, rightLabel), nil
	}

	var buf bytes.Buffer
	header := "diff"
	if flag := v.opts.Formatter.Format.Flag(); flag != "" {
		header += " " + flag
	}
	fmt.Fprintf(&buf, "%s %s %s\n", header, leftLabel, rightLabel)
	if err := result.Render(&buf, v.opts.Formatter, true); err != nil {
		return nil, &tree.PathError{Op: "render", Path: path, Err: err}
	}
	return []Event{{
		Type:  Changed,
		Path:  path,
		Left:  leftLabel,
		Right: rightLabel,
		Text:  buf.String(),
		Stats: result.Patch().Stats(),
	}}, nil
}

// NewReporterLogger returns the plain logger text reports are written to.
func NewReporterLogger(verbose bool, w io.Writer) logging.Logger {
	level := logging.LevelInfo
	if verbose {
		level = logging.LevelVerbose
	}
	return logging.NewStdLogger(level, w).Plain()
}
