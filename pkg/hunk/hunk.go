// Package hunk renders edit scripts as normal, context and unified diff text.
package hunk

import (
	"fmt"
	"strings"

	"github.com/asynkron/hiertext/pkg/lcs"
	"github.com/asynkron/hiertext/pkg/textdoc"
)

// Format selects one of the three diff grammars.
type Format int

const (
	// Normal is the classic `2a3` / `< ` / `> ` format.
	Normal Format = iota
	// Context prints `***************` chunks with `! `, `- ` and `+ ` markers.
	Context
	// Unified prints `@@ -a,b +c,d @@` chunks.
	Unified
)

// ParseFormat maps a configuration value onto a Format.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "normal":
		return Normal, nil
	case "context", "c":
		return Context, nil
	case "unified", "u":
		return Unified, nil
	}
	return Normal, fmt.Errorf("hunk: unknown format %q", value)
}

func (f Format) String() string {
	switch f {
	case Context:
		return "context"
	case Unified:
		return "unified"
	default:
		return "normal"
	}
}

// Flag returns the conventional diff command-line flag for the format.
func (f Format) Flag() string {
	switch f {
	case Context:
		return "-c"
	case Unified:
		return "-u"
	default:
		return ""
	}
}

// Hunk is a Difference together with the literal text of its lines.
type Hunk struct {
	lcs.Difference
	Deleted []textdoc.Line
	Added   []textdoc.Line
}

// Patch is an ordered list of hunks sorted by their position in the source
// document.
type Patch []Hunk

// Build attaches the literal lines of left and right to diffs.
func Build(left, right []textdoc.Line, diffs []lcs.Difference) Patch {
	patch := make(Patch, 0, len(diffs))
	for _, d := range diffs {
		h := Hunk{Difference: d}
		if d.DelEnd != lcs.None {
			h.Deleted = append([]textdoc.Line(nil), left[d.DelStart:d.DelEnd+1]...)
		}
		if d.AddEnd != lcs.None {
			h.Added = append([]textdoc.Line(nil), right[d.AddStart:d.AddEnd+1]...)
		}
		patch = append(patch, h)
	}
	return patch
}

// Differences projects the Differences of the patch.
func (p Patch) Differences() []lcs.Difference {
	diffs := make([]lcs.Difference, len(p))
	for i, h := range p {
		diffs[i] = h.Difference
	}
	return diffs
}

// Reverse swaps the sides of every hunk so the patch undoes itself.
func (p Patch) Reverse() Patch {
	out := make(Patch, len(p))
	for i, h := range p {
		out[i] = Hunk{Difference: h.Swap(), Deleted: h.Added, Added: h.Deleted}
	}
	return out
}

// Validate checks that hunks are well formed, ordered and disjoint.
func (p Patch) Validate() error {
	prevEnd := 0
	for i, h := range p {
		if h.DelStart < 0 || h.AddStart < 0 {
			return fmt.Errorf("hunk %d: negative position", i+1)
		}
		if h.DelEnd == lcs.None && h.AddEnd == lcs.None {
			return fmt.Errorf("hunk %d: empty on both sides", i+1)
		}
		if h.DelEnd != lcs.None && h.DelEnd < h.DelStart {
			return fmt.Errorf("hunk %d: deleted range ends before it starts", i+1)
		}
		if h.AddEnd != lcs.None && h.AddEnd < h.AddStart {
			return fmt.Errorf("hunk %d: added range ends before it starts", i+1)
		}
		if len(h.Deleted) != h.DelCount() || len(h.Added) != h.AddCount() {
			return fmt.Errorf("hunk %d: line count does not match its range", i+1)
		}
		if h.DelStart < prevEnd {
			return fmt.Errorf("hunk %d: overlaps or precedes hunk %d", i+1, i)
		}
		prevEnd = h.DelOnePast()
	}
	return nil
}

// Stats counts the changed lines of a patch.
type Stats struct {
	Hunks   int
	Deleted int
	Added   int
}

// Stats summarises the patch.
func (p Patch) Stats() Stats {
	s := Stats{Hunks: len(p)}
	for _, h := range p {
		s.Deleted += h.DelCount()
		s.Added += h.AddCount()
	}
	return s
}
