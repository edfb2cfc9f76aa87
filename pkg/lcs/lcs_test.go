package lcs

import (
	"cmp"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func lines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func TestDiffIdentical(t *testing.T) {
	t.Parallel()

	a := lines("a\nb\nc\n")
	require.Empty(t, Diff(a, a))
	require.Empty(t, Diff[string](nil, nil))
}

func TestDiffEmptyAgainstNonEmpty(t *testing.T) {
	t.Parallel()

	got := Diff(nil, lines("x\ny\nz\n"))
	require.Equal(t, []Difference{{DelStart: 0, DelEnd: None, AddStart: 0, AddEnd: 2}}, got)

	got = Diff(lines("x\ny\n"), nil)
	require.Equal(t, []Difference{{DelStart: 0, DelEnd: 1, AddStart: 0, AddEnd: None}}, got)
}

func TestDiffDisjointEqualLength(t *testing.T) {
	t.Parallel()

	got := Diff(lines("a\nb\nc\n"), lines("x\ny\nz\n"))
	require.Equal(t, []Difference{{DelStart: 0, DelEnd: 2, AddStart: 0, AddEnd: 2}}, got)
	require.True(t, got[0].IsChange())
}

func TestDiffScenario(t *testing.T) {
	t.Parallel()

	doc1 := lines("---\n---\n---\n---\nDELETED LINE\n---\n---\nCHANGD LINE\n---\n---\n")
	doc2 := lines("---\n---\nADDED LINE\n---\n---\n---\n---\nCHANGED LINE\n---\n---\n")
	got := Diff(doc1, doc2)
	require.Equal(t, []Difference{
		{DelStart: 2, DelEnd: None, AddStart: 2, AddEnd: 2},
		{DelStart: 4, DelEnd: 4, AddStart: 5, AddEnd: None},
		{DelStart: 7, DelEnd: 7, AddStart: 7, AddEnd: 7},
	}, got)
}

func TestDiffSymmetry(t *testing.T) {
	t.Parallel()

	a := lines("one\ntwo\nthree\nfour\nfive\n")
	b := lines("zero\none\nthree\nFOUR\nfive\nsix\n")
	requireMirrored(t, a, b)
}

func TestDiffSymmetryWithSeveralAlignments(t *testing.T) {
	t.Parallel()

	got := Diff([]rune("baca"), []rune("cba"))
	require.Equal(t, []Difference{
		{DelStart: 0, DelEnd: None, AddStart: 0, AddEnd: 0},
		{DelStart: 1, DelEnd: 2, AddStart: 2, AddEnd: None},
	}, got)
	requireMirrored(t, []rune("baca"), []rune("cba"))
	requireMirrored(t, []rune("cba"), []rune("bcab"))
	requireMirrored(t, []rune("xy"), []rune("yx"))
}

func TestDiffSymmetryRandomized(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(1, 2))
	randomRunes := func(alphabet string) []rune {
		out := make([]rune, r.IntN(10))
		for i := range out {
			out[i] = rune(alphabet[r.IntN(len(alphabet))])
		}
		return out
	}
	for range 5000 {
		alphabet := "abc"
		if r.IntN(2) == 0 {
			alphabet = "ab"
		}
		a, b := randomRunes(alphabet), randomRunes(alphabet)
		requireMirrored(t, a, b)

		edits := 0
		for _, d := range Diff(a, b) {
			edits += d.DelCount() + d.AddCount()
		}
		require.Equal(t, len(a)+len(b)-2*lcsLength(a, b), edits, "%q -> %q", string(a), string(b))
	}
}

func requireMirrored[T cmp.Ordered](t *testing.T, a, b []T) {
	t.Helper()
	forward := Diff(a, b)
	backward := Diff(b, a)
	require.Len(t, backward, len(forward), "%v <-> %v", a, b)
	for i := range forward {
		require.Equal(t, forward[i].Swap(), backward[i], "%v <-> %v", a, b)
	}
}

func lcsLength(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := range a {
		for j := range b {
			switch {
			case a[i] == b[j]:
				cur[j+1] = prev[j] + 1
			case prev[j+1] > cur[j]:
				cur[j+1] = prev[j+1]
			default:
				cur[j+1] = cur[j]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func TestDiffIsMinimal(t *testing.T) {
	t.Parallel()

	a := []rune("ABCABBA")
	b := []rune("CBABAC")
	edits := 0
	for _, d := range Diff(a, b) {
		edits += d.DelCount() + d.AddCount()
	}
	// LCS length is 4, so 3 deletions and 2 insertions.
	require.Equal(t, 5, edits)
}

func TestDiffOrderedAndDisjoint(t *testing.T) {
	t.Parallel()

	a := []rune("the quick brown fox jumps over the lazy dog")
	b := []rune("a quick brown cat leaps over lazy dogs")
	diffs := Diff(a, b)
	require.NotEmpty(t, diffs)
	for i := 1; i < len(diffs); i++ {
		require.GreaterOrEqual(t, diffs[i].DelStart, diffs[i-1].DelOnePast())
		require.GreaterOrEqual(t, diffs[i].AddStart, diffs[i-1].AddOnePast())
	}
	require.Equal(t, Diff(a, b), diffs)
}

func TestDifferenceAccessors(t *testing.T) {
	t.Parallel()

	add := Difference{DelStart: 3, DelEnd: None, AddStart: 4, AddEnd: 6}
	require.True(t, add.IsAddition())
	require.False(t, add.IsDeletion())
	require.Equal(t, 0, add.DelCount())
	require.Equal(t, 3, add.AddCount())
	require.Equal(t, 3, add.DelOnePast())
	require.Equal(t, 7, add.AddOnePast())
	require.True(t, add.Swap().IsDeletion())
}

func TestDiffFuncMatchesDiff(t *testing.T) {
	t.Parallel()

	a := lines("a\nb\nc\nd\n")
	b := lines("a\nc\nd\ne\n")
	got := DiffFunc(len(a), len(b), func(i, j int) bool { return a[i] == b[j] })
	require.Equal(t, Diff(a, b), got)
}
