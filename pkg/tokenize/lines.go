package tokenize

import "github.com/asynkron/hiertext/pkg/lcs"

// ToLines maps differences computed over units a and b back to line
// granularity. A line counts as changed when it holds a changed unit, or when
// an unchanged unit on it is paired with a unit on a changed line of the
// other side. Overlapping line differences are merged, so the result may be
// shorter than diffs.
func ToLines(a, b []Unit, diffs []lcs.Difference) []lcs.Difference {
	var merged []lcs.Difference
	for _, d := range diffs {
		mapped := mapDifference(a, b, d)
		if n := len(merged); n > 0 && overlaps(merged[n-1], mapped) {
			merged[n-1] = union(merged[n-1], mapped)
			continue
		}
		merged = append(merged, mapped)
	}
	return merged
}

// lineSet is an inclusive line range; lo > hi means empty.
type lineSet struct {
	lo, hi int
}

func emptySet() lineSet { return lineSet{lo: 1, hi: 0} }

func (s lineSet) empty() bool { return s.lo > s.hi }

func (s lineSet) has(line int) bool { return !s.empty() && line >= s.lo && line <= s.hi }

func (s lineSet) add(line int) lineSet {
	if s.empty() {
		return lineSet{lo: line, hi: line}
	}
	if line < s.lo {
		s.lo = line
	}
	if line > s.hi {
		s.hi = line
	}
	return s
}

func span(units []Unit, start, end int) lineSet {
	if end == lcs.None {
		return emptySet()
	}
	return lineSet{lo: units[start].StartLine, hi: units[end].EndLine}
}

func mapDifference(a, b []Unit, d lcs.Difference) lcs.Difference {
	left := span(a, d.DelStart, d.DelEnd)
	right := span(b, d.AddStart, d.AddEnd)

	prevA, prevB := d.DelStart-1, d.AddStart-1
	nextA, nextB := d.DelOnePast(), d.AddOnePast()
	hasPrev := prevA >= 0 && prevB >= 0
	hasNext := nextA < len(a) && nextB < len(b)

	// An insertion between two unchanged units on one line changes that line.
	if left.empty() && hasPrev && hasNext && a[prevA].EndLine == a[nextA].StartLine {
		left = left.add(a[prevA].EndLine)
	}
	if right.empty() && hasPrev && hasNext && b[prevB].EndLine == b[nextB].StartLine {
		right = right.add(b[prevB].EndLine)
	}

	if hasPrev {
		la, lb := a[prevA].EndLine, b[prevB].EndLine
		if left.has(la) || right.has(lb) {
			left, right = left.add(la), right.add(lb)
		}
	}
	if hasNext {
		la, lb := a[nextA].StartLine, b[nextB].StartLine
		if left.has(la) || right.has(lb) {
			left, right = left.add(la), right.add(lb)
		}
	}

	out := lcs.Difference{DelEnd: lcs.None, AddEnd: lcs.None}
	if left.empty() {
		out.DelStart = insertionPoint(a, prevA)
	} else {
		out.DelStart, out.DelEnd = left.lo, left.hi
	}
	if right.empty() {
		out.AddStart = insertionPoint(b, prevB)
	} else {
		out.AddStart, out.AddEnd = right.lo, right.hi
	}
	return out
}

func insertionPoint(units []Unit, prev int) int {
	if prev < 0 {
		return 0
	}
	return units[prev].EndLine + 1
}

// sideOverlaps reports whether the next region on one side touches the
// current one. An insertion point also absorbs a region starting on the line
// right after it.
func sideOverlaps(curStart, curEnd, nextStart int) bool {
	if curEnd == lcs.None {
		return nextStart <= curStart+1
	}
	return nextStart <= curEnd
}

func overlaps(cur, next lcs.Difference) bool {
	return sideOverlaps(cur.DelStart, cur.DelEnd, next.DelStart) ||
		sideOverlaps(cur.AddStart, cur.AddEnd, next.AddStart)
}

func unionSide(curStart, curEnd, nextStart, nextEnd int) (int, int) {
	start := min(curStart, nextStart)
	// Lines up to the next insertion point sit between the merged regions.
	end := max(curEnd, nextEnd, nextStart-1)
	if end < start {
		return curStart, lcs.None
	}
	return start, end
}

func union(cur, next lcs.Difference) lcs.Difference {
	var out lcs.Difference
	out.DelStart, out.DelEnd = unionSide(cur.DelStart, cur.DelEnd, next.DelStart, next.DelEnd)
	out.AddStart, out.AddEnd = unionSide(cur.AddStart, cur.AddEnd, next.AddStart, next.AddEnd)
	return out
}
