// Package grep searches every document of a hierarchy, including archive
// entries and compressed streams, for lines matching a pattern.
package grep

import (
	"context"
	"fmt"
	"io"

	"github.com/dlclark/regexp2"

	"github.com/asynkron/hiertext/pkg/equiv"
	"github.com/asynkron/hiertext/pkg/textdoc"
	"github.com/asynkron/hiertext/pkg/tree"
)

// Options configure a search.
type Options struct {
	IgnoreCase bool
	// Invert selects the lines that do not match.
	Invert bool
	// LineNumbers prefixes output lines with their 1-based number.
	LineNumbers bool
	// FilesOnly prints the names of documents with a selected line.
	FilesOnly bool
	// Count prints the number of selected lines per document.
	Count bool
	// Charset decodes documents before matching. Empty means UTF-8.
	Charset string
	Tree    tree.Options
}

// Match is one selected line.
type Match struct {
	Line int
	Text string
}

// Result holds the selected lines of one document.
type Result struct {
	Label   string
	Matches []Match
}

// Searcher holds a compiled pattern.
type Searcher struct {
	re   *regexp2.Regexp
	opts Options
}

// New compiles pattern.
func New(pattern string, opts Options) (*Searcher, error) {
	re, err := equiv.Compile(pattern, opts.IgnoreCase)
	if err != nil {
		return nil, err
	}
	return &Searcher{re: re, opts: opts}, nil
}

// Search returns one result per text document below root in key order.
// Binary documents are skipped.
func (s *Searcher) Search(ctx context.Context, root tree.Source) ([]Result, error) {
	name := root.Name()
	return tree.Walk[Result](ctx, tree.NewRoot(root), func(ctx context.Context, n *tree.Node) ([]Result, bool, error) {
		if n.Kind.HasChildren() {
			return nil, true, nil
		}
		data, err := n.ReadAll(ctx)
		if err != nil {
			return nil, false, err
		}
		if textdoc.IsBinary(data) {
			return nil, false, nil
		}
		if data, err = textdoc.Decode(data, s.opts.Charset); err != nil {
			return nil, false, &tree.PathError{Op: "decode", Path: n.DisplayPath(), Err: err}
		}
		label := tree.Label(name, n)
		matches, err := s.Lines(textdoc.Parse(label, data))
		if err != nil {
			return nil, false, &tree.PathError{Op: "match", Path: label, Err: err}
		}
		return []Result{{Label: label, Matches: matches}}, false, nil
	}, s.opts.Tree)
}

// Lines returns the selected lines of doc.
func (s *Searcher) Lines(doc textdoc.Document) ([]Match, error) {
	var matches []Match
	for i, line := range doc.Lines {
		ok, err := s.re.MatchString(line.Text)
		if err != nil {
			return nil, err
		}
		if ok != s.opts.Invert {
			matches = append(matches, Match{Line: i + 1, Text: line.Text})
		}
	}
	return matches, nil
}

// Write prints results the way grep does for several files and reports
// whether any line was selected.
func (s *Searcher) Write(w io.Writer, results []Result) (bool, error) {
	found := false
	for _, r := range results {
		if len(r.Matches) > 0 {
			found = true
		}
		var err error
		switch {
		case s.opts.Count:
			_, err = fmt.Fprintf(w, "%s:%d\n", r.Label, len(r.Matches))
		case s.opts.FilesOnly:
			if len(r.Matches) > 0 {
				_, err = fmt.Fprintln(w, r.Label)
			}
		default:
			for _, m := range r.Matches {
				if s.opts.LineNumbers {
					_, err = fmt.Fprintf(w, "%s:%d:%s\n", r.Label, m.Line, m.Text)
				} else {
					_, err = fmt.Fprintf(w, "%s:%s\n", r.Label, m.Text)
				}
				if err != nil {
					break
				}
			}
		}
		if err != nil {
			return found, err
		}
	}
	return found, nil
}
