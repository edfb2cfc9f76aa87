package treediff

import (
	"context"

	"github.com/asynkron/hiertext/internal/logging"
)

// Reporter receives events in key order once the comparison completed.
type Reporter interface {
	Report(ctx context.Context, e Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, e Event)

func (f ReporterFunc) Report(ctx context.Context, e Event) { f(ctx, e) }

// TextReporter writes a diff -r style report through a logger: the
// rendered differences at INFO, unchanged notices at VERBOSE.
type TextReporter struct {
	logger logging.Logger
}

// NewTextReporter creates a TextReporter writing to logger.
func NewTextReporter(logger logging.Logger) *TextReporter {
	return &TextReporter{logger: logging.OrNoOp(logger)}
}

func (r *TextReporter) Report(ctx context.Context, e Event) {
	switch e.Type {
	case Unchanged:
		r.logger.Verbose(ctx, e.Summary())
	case Changed:
		r.logger.Info(ctx, e.Text)
	default:
		r.logger.Info(ctx, e.Summary())
	}
}
