// Package docdiff composes tokenization, normalization, sequence comparison
// and ignore filtering into the comparison of two documents.
package docdiff

import (
	"fmt"
	"io"

	"github.com/asynkron/hiertext/pkg/equiv"
	"github.com/asynkron/hiertext/pkg/hunk"
	"github.com/asynkron/hiertext/pkg/lcs"
	"github.com/asynkron/hiertext/pkg/textdoc"
	"github.com/asynkron/hiertext/pkg/tokenize"
)

// Options configures a document comparison.
type Options struct {
	Tokenize   tokenize.Options
	Normalizer equiv.Normalizer
	Ignore     equiv.IgnoreFilter
}

// Result holds the line level differences between two documents.
type Result struct {
	Left  textdoc.Document
	Right textdoc.Document
	Diffs []lcs.Difference
}

// Compare computes the filtered line differences between left and right.
// The inputs are not modified.
func Compare(left, right textdoc.Document, opts Options) (Result, error) {
	left = cloneDoc(left)
	right = cloneDoc(right)
	if err := opts.Normalizer.Apply(&left); err != nil {
		return Result{}, err
	}
	if err := opts.Normalizer.Apply(&right); err != nil {
		return Result{}, err
	}

	var diffs []lcs.Difference
	if opts.Tokenize.Mode == tokenize.Tokens {
		a := tokenize.Split(left, opts.Tokenize)
		b := tokenize.Split(right, opts.Tokenize)
		diffs = tokenize.ToLines(a, b, lcs.DiffCompare(tokenize.Keys(a), tokenize.Keys(b), textdoc.Key.Compare))
	} else {
		diffs = lcs.DiffCompare(left.Keys(), right.Keys(), textdoc.Key.Compare)
	}

	filtered, err := opts.Ignore.Filter(left, right, diffs)
	if err != nil {
		return Result{}, fmt.Errorf("docdiff: ignore filter: %w", err)
	}
	return Result{Left: left, Right: right, Diffs: filtered}, nil
}

// CompareBytes parses both inputs and compares them.
func CompareBytes(leftPath string, leftData []byte, rightPath string, rightData []byte, opts Options) (Result, error) {
	return Compare(textdoc.Parse(leftPath, leftData), textdoc.Parse(rightPath, rightData), opts)
}

func cloneDoc(doc textdoc.Document) textdoc.Document {
	return textdoc.Document{Path: doc.Path, Lines: append([]textdoc.Line(nil), doc.Lines...)}
}

// Empty reports whether the documents are logically equal.
func (r Result) Empty() bool {
	return len(r.Diffs) == 0
}

// Patch returns the differences together with their literal lines.
func (r Result) Patch() hunk.Patch {
	return hunk.Build(r.Left.Lines, r.Right.Lines, r.Diffs)
}

// Render writes the differences in the formatter's grammar. When withHeader
// is set, context and unified output are preceded by file header lines.
func (r Result) Render(w io.Writer, f hunk.Formatter, withHeader bool) error {
	if r.Empty() {
		return nil
	}
	if withHeader {
		if err := f.WriteHeader(w, r.Left.Path, r.Right.Path); err != nil {
			return err
		}
	}
	return f.Write(w, r.Left.Lines, r.Right.Lines, r.Diffs)
}
