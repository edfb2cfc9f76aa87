// Package lcs computes minimal edit scripts between two sequences using the
// Myers O(ND) algorithm.
//
// The result is a list of Differences over 0-based indices. A side that
// contributes no lines has End == None and Start set to the index of the
// element before which the other side's elements belong; this number is also
// the 1-based "after line N" value printed by the normal diff format.
package lcs

import (
	"cmp"
	"fmt"
)

// None marks the missing side of a pure addition or deletion.
const None = -1

// Difference describes one contiguous region that differs between two
// sequences.
type Difference struct {
	DelStart int
	DelEnd   int
	AddStart int
	AddEnd   int
}

// IsAddition reports whether nothing was deleted.
func (d Difference) IsAddition() bool { return d.DelEnd == None }

// IsDeletion reports whether nothing was added.
func (d Difference) IsDeletion() bool { return d.AddEnd == None }

// IsChange reports whether both sides carry elements.
func (d Difference) IsChange() bool { return d.DelEnd != None && d.AddEnd != None }

// DelCount returns the number of deleted elements.
func (d Difference) DelCount() int {
	if d.DelEnd == None {
		return 0
	}
	return d.DelEnd - d.DelStart + 1
}

// AddCount returns the number of added elements.
func (d Difference) AddCount() int {
	if d.AddEnd == None {
		return 0
	}
	return d.AddEnd - d.AddStart + 1
}

// DelOnePast returns the index just past the deleted range, or the insertion
// point for a pure addition.
func (d Difference) DelOnePast() int {
	if d.DelEnd == None {
		return d.DelStart
	}
	return d.DelEnd + 1
}

// AddOnePast mirrors DelOnePast for the added side.
func (d Difference) AddOnePast() int {
	if d.AddEnd == None {
		return d.AddStart
	}
	return d.AddEnd + 1
}

// Swap exchanges the deleted and added sides.
func (d Difference) Swap() Difference {
	return Difference{DelStart: d.AddStart, DelEnd: d.AddEnd, AddStart: d.DelStart, AddEnd: d.DelEnd}
}

func (d Difference) String() string {
	return fmt.Sprintf("[%d,%d -> %d,%d]", d.DelStart, d.DelEnd, d.AddStart, d.AddEnd)
}

// Diff computes the minimal list of differences turning a into b. Swapping a
// and b swaps the sides of every returned Difference.
func Diff[T cmp.Ordered](a, b []T) []Difference {
	return DiffCompare(a, b, cmp.Compare[T])
}

// DiffCompare is Diff for element types ordered by compare, which must
// return 0 exactly for equal elements.
func DiffCompare[T any](a, b []T, compare func(x, y T) int) []Difference {
	return diff(len(a), len(b),
		func(i, j int) bool { return compare(a[i], b[j]) == 0 },
		func(i, k int) int { return compare(a[i], a[k]) })
}

// DiffFunc computes the minimal list of differences between two sequences of
// length n and m whose elements are compared by eq(i, j). Without an element
// order, alignments that differ only in which equal elements they pair are
// resolved by position, so the swap symmetry of Diff may not hold.
func DiffFunc(n, m int, eq func(i, j int) bool) []Difference {
	return diff(n, m, eq, nil)
}

func diff(n, m int, eq func(i, j int) bool, order func(i, k int) int) []Difference {
	// Common prefix and suffix never take part in an edit.
	prefix := 0
	for prefix < n && prefix < m && eq(prefix, prefix) {
		prefix++
	}
	suffix := 0
	for suffix < n-prefix && suffix < m-prefix && eq(n-1-suffix, m-1-suffix) {
		suffix++
	}
	n, m = n-prefix-suffix, m-prefix-suffix
	if n == 0 || m == 0 {
		return collect(nil, n, m, prefix)
	}

	inner := func(i, j int) bool { return eq(prefix+i, prefix+j) }
	forward := matches(editScript(n, m, inner), false)
	backward := matches(editScript(m, n, func(i, j int) bool { return inner(j, i) }), true)
	var innerOrder func(i, k int) int
	if order != nil {
		innerOrder = func(i, k int) int { return order(prefix+i, prefix+k) }
	}
	return collect(canonical(forward, backward, n, m, innerOrder), n, m, prefix)
}

type opKind uint8

const (
	opEqual opKind = iota
	opDelete
	opInsert
)

// editScript returns the Myers shortest edit script as a list of operations
// in forward order.
func editScript(n, m int, eq func(i, j int) bool) []opKind {
	if n == 0 && m == 0 {
		return nil
	}
	maxD := n + m
	offset := maxD
	v := make([]int, 2*maxD+2)
	var trace [][]int

	found := false
	for d := 0; d <= maxD && !found; d++ {
		// Only diagonals -d..d are live at step d.
		snapshot := make([]int, 2*d+1)
		copy(snapshot, v[offset-d:offset+d+1])
		trace = append(trace, snapshot)

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k
			for x < n && y < m && eq(x, y) {
				x++
				y++
			}
			v[offset+k] = x
			if x >= n && y >= m {
				found = true
				break
			}
		}
	}

	ops := make([]opKind, 0, n+m)
	x, y := n, m
	for d := len(trace) - 1; d >= 0; d-- {
		prev := trace[d]
		at := func(k int) int { return prev[k+d] }
		k := x - y
		var prevK int
		if k == -d || (k != d && at(k-1) < at(k+1)) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		var prevX int
		if d > 0 {
			prevX = at(prevK)
		}
		prevY := prevX - prevK
		for x > prevX && y > prevY {
			ops = append(ops, opEqual)
			x--
			y--
		}
		if d > 0 {
			if prevK == k+1 {
				ops = append(ops, opInsert)
			} else {
				ops = append(ops, opDelete)
			}
		}
		x, y = prevX, prevY
	}
	for i, j := 0, len(ops)-1; i < j; i, j = i+1, j-1 {
		ops[i], ops[j] = ops[j], ops[i]
	}
	return ops
}

// match pairs element x of the first sequence with element y of the second.
type match struct {
	x, y int
}

// matches lists the pairs an edit script keeps. With transpose set the script
// was computed with the sequences swapped and the pairs are swapped back.
func matches(ops []opKind, transpose bool) []match {
	var out []match
	x, y := 0, 0
	for _, op := range ops {
		switch op {
		case opEqual:
			if transpose {
				out = append(out, match{x: y, y: x})
			} else {
				out = append(out, match{x: x, y: y})
			}
			x++
			y++
		case opDelete:
			x++
		case opInsert:
			y++
		}
	}
	return out
}

// canonical picks one of two minimal alignments of the same sequences. Every
// key it compares is unchanged when both sequences and all pairs are swapped,
// so the alignment chosen for (b, a) mirrors the one chosen for (a, b).
// Earlier pairs win first, then pairs nearer the diagonal, then pairs leaning
// towards the longer sequence, then pairs of smaller elements.
func canonical(p, q []match, n, m int, order func(i, k int) int) []match {
	if len(p) != len(q) {
		if len(p) > len(q) {
			return p
		}
		return q
	}
	lean := cmp.Compare(m, n)
	keys := []func(c match) int{
		func(c match) int { return c.x + c.y },
		func(c match) int { return abs(c.x - c.y) },
		func(c match) int { return lean * (c.x - c.y) },
	}
	for _, key := range keys {
		for i := range p {
			if s, t := key(p[i]), key(q[i]); s != t {
				if s < t {
					return p
				}
				return q
			}
		}
	}
	if order != nil {
		for i := range p {
			if c := order(p[i].x, q[i].x); c != 0 {
				if c < 0 {
					return p
				}
				return q
			}
		}
	}
	return p
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// collect turns the gaps between kept pairs into Differences over sequences
// of length n and m, shifted by offset.
func collect(pairs []match, n, m, offset int) []Difference {
	var diffs []Difference
	x, y := 0, 0
	for _, p := range append(pairs, match{x: n, y: m}) {
		if p.x > x || p.y > y {
			d := Difference{DelStart: offset + x, DelEnd: None, AddStart: offset + y, AddEnd: None}
			if p.x > x {
				d.DelEnd = offset + p.x - 1
			}
			if p.y > y {
				d.AddEnd = offset + p.y - 1
			}
			diffs = append(diffs, d)
		}
		x, y = p.x+1, p.y+1
	}
	return diffs
}
