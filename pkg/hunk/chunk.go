package hunk

import "github.com/asynkron/hiertext/pkg/lcs"

// Chunks groups differences that lie within 2*context lines of each other.
// The gap between two differences is measured on the deleted side, from one
// past the last deleted line of the running chunk to the next deleted start.
func Chunks(diffs []lcs.Difference, context int) [][]lcs.Difference {
	if len(diffs) == 0 {
		return nil
	}
	if context < 0 {
		context = 0
	}
	var chunks [][]lcs.Difference
	current := []lcs.Difference{diffs[0]}
	for _, d := range diffs[1:] {
		last := current[len(current)-1]
		if d.DelStart-last.DelOnePast() <= 2*context {
			current = append(current, d)
			continue
		}
		chunks = append(chunks, current)
		current = []lcs.Difference{d}
	}
	return append(chunks, current)
}

// Range is an inclusive line window; Start > End means an empty window whose
// Start is the index before which it sits.
type Range struct {
	Start int
	End   int
}

// Len returns the number of lines in the window.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Window returns the context window of chunk on each side, clipped to the
// document bounds.
func Window(chunk []lcs.Difference, context, leftLen, rightLen int) (left, right Range) {
	first, last := chunk[0], chunk[len(chunk)-1]
	left = clip(first.DelStart-context, last.DelOnePast()-1+context, leftLen)
	right = clip(first.AddStart-context, last.AddOnePast()-1+context, rightLen)
	return left, right
}

func clip(lo, hi, length int) Range {
	if lo < 0 {
		lo = 0
	}
	if hi > length-1 {
		hi = length - 1
	}
	if lo > length {
		lo = length
	}
	return Range{Start: lo, End: hi}
}
