package tokenize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/asynkron/hiertext/pkg/lcs"
	"github.com/asynkron/hiertext/pkg/textdoc"
)

func goDoc(text string) textdoc.Document {
	return textdoc.Parse("main.go", []byte(text))
}

func tokenDiff(t *testing.T, left, right string, opts Options) []lcs.Difference {
	t.Helper()
	a := Split(goDoc(left), opts)
	b := Split(goDoc(right), opts)
	return ToLines(a, b, lcs.DiffCompare(Keys(a), Keys(b), textdoc.Key.Compare))
}

func TestSplitLinesMode(t *testing.T) {
	t.Parallel()

	units := Split(goDoc("a\nb\n"), Options{})
	require.Len(t, units, 2)
	require.Equal(t, Unit{Key: textdoc.Key{Text: "b", EOL: "\n"}, StartLine: 1, EndLine: 1}, units[1])
}

func TestTokensIgnoreWhitespace(t *testing.T) {
	t.Parallel()

	opts := Options{Mode: Tokens, Language: "go"}
	require.Empty(t, tokenDiff(t, "x := 1\n", "x:=1\n", opts))
	require.Empty(t, tokenDiff(t, "x := 1\n", "x :=   1\n", opts))
	require.NotEmpty(t, tokenDiff(t, "x := 1\n", "x := 2\n", opts))
}

func TestTokensIdenticalDocuments(t *testing.T) {
	t.Parallel()

	src := "package main\n\n/** doc */\nfunc main() { // hi\n\tprintln(\"x\")\n}\n"
	for _, opts := range []Options{
		{Mode: Tokens, Language: "go"},
		{Mode: Tokens, Language: "go", IgnoreBlockComments: true, IgnoreDocComments: true, IgnoreLineComments: true},
		{Mode: Tokens},
	} {
		require.Empty(t, tokenDiff(t, src, src, opts))
	}
}

func TestTokensCommentToggles(t *testing.T) {
	t.Parallel()

	withLine := "x := 1 // note\n"
	plain := "x := 1\n"
	require.NotEmpty(t, tokenDiff(t, withLine, plain, Options{Mode: Tokens, Language: "go"}))
	require.Empty(t, tokenDiff(t, withLine, plain, Options{Mode: Tokens, Language: "go", IgnoreLineComments: true}))

	withDoc := "/** doc */\nx := 1\n"
	require.Empty(t, tokenDiff(t, withDoc, plain, Options{Mode: Tokens, Language: "go", IgnoreDocComments: true}))
	require.NotEmpty(t, tokenDiff(t, withDoc, plain, Options{Mode: Tokens, Language: "go", IgnoreBlockComments: true}))

	withBlock := "/* block */\nx := 1\n"
	require.Empty(t, tokenDiff(t, withBlock, plain, Options{Mode: Tokens, Language: "go", IgnoreBlockComments: true}))
	require.NotEmpty(t, tokenDiff(t, withBlock, plain, Options{Mode: Tokens, Language: "go", IgnoreDocComments: true}))
}

func TestTokensReportLineGranularity(t *testing.T) {
	t.Parallel()

	left := "a := 1\nb := 2\nc := 3\n"
	right := "a := 1\nb := 20\nc := 3\n"
	got := tokenDiff(t, left, right, Options{Mode: Tokens, Language: "go"})
	require.Equal(t, []lcs.Difference{{DelStart: 1, DelEnd: 1, AddStart: 1, AddEnd: 1}}, got)
}

func TestTokensIgnoredLines(t *testing.T) {
	t.Parallel()

	doc := goDoc("x := 1\n// stamp\n")
	doc.Lines[1].Key = textdoc.IgnoredKey
	units := Split(doc, Options{Mode: Tokens, Language: "go"})
	require.NotEmpty(t, units)
	last := units[len(units)-1]
	require.True(t, last.Key.Ignored)
	require.Equal(t, 1, last.StartLine)
}

func units(lines ...[]string) []Unit {
	var out []Unit
	for i, toks := range lines {
		for _, tok := range toks {
			out = append(out, Unit{Key: textdoc.TextKey(tok), StartLine: i, EndLine: i})
		}
	}
	return out
}

func TestToLinesInsertionInsideLine(t *testing.T) {
	t.Parallel()

	a := units([]string{"foo", "(", "a", ")"})
	b := units([]string{"foo", "(", "a", ",", "b", ")"})
	got := ToLines(a, b, lcs.DiffCompare(Keys(a), Keys(b), textdoc.Key.Compare))
	require.Equal(t, []lcs.Difference{{DelStart: 0, DelEnd: 0, AddStart: 0, AddEnd: 0}}, got)
}

func TestToLinesWholeLineInsertion(t *testing.T) {
	t.Parallel()

	a := units([]string{"x"}, []string{"y"})
	b := units([]string{"x"}, []string{"z"}, []string{"y"})
	got := ToLines(a, b, lcs.DiffCompare(Keys(a), Keys(b), textdoc.Key.Compare))
	require.Equal(t, []lcs.Difference{{DelStart: 1, DelEnd: lcs.None, AddStart: 1, AddEnd: 1}}, got)
}

func TestToLinesMergesSameLine(t *testing.T) {
	t.Parallel()

	a := units([]string{"p", "q", "r", "s"}, []string{"t"})
	b := units([]string{"p", "X", "r", "Y"}, []string{"t"})
	raw := lcs.DiffCompare(Keys(a), Keys(b), textdoc.Key.Compare)
	require.Len(t, raw, 2)
	got := ToLines(a, b, raw)
	require.Equal(t, []lcs.Difference{{DelStart: 0, DelEnd: 0, AddStart: 0, AddEnd: 0}}, got)
}

func TestToLinesPairsSharedLines(t *testing.T) {
	t.Parallel()

	// The unchanged "b" moves onto the changed line, so its old line changes too.
	a := units([]string{"a"}, []string{"b"})
	b := units([]string{"a", "c", "b"})
	got := ToLines(a, b, lcs.DiffCompare(Keys(a), Keys(b), textdoc.Key.Compare))
	require.Equal(t, []lcs.Difference{{DelStart: 0, DelEnd: 1, AddStart: 0, AddEnd: 0}}, got)
}

func TestToLinesMergesInsertionWithNextLine(t *testing.T) {
	t.Parallel()

	a := units([]string{"x"}, []string{"y"}, []string{"z", "w"})
	b := units([]string{"x"}, []string{"NEW"}, []string{"y"}, []string{"z", "q"})
	raw := lcs.DiffCompare(Keys(a), Keys(b), textdoc.Key.Compare)
	require.Len(t, raw, 2)
	got := ToLines(a, b, raw)
	require.Equal(t, []lcs.Difference{{DelStart: 1, DelEnd: 2, AddStart: 1, AddEnd: 3}}, got)
}

func TestToLinesMergedDeletionsKeepLineBetween(t *testing.T) {
	t.Parallel()

	a := units([]string{"x"}, []string{"A"}, []string{"y"}, []string{"B"}, []string{"z"})
	b := units([]string{"x"}, []string{"y"}, []string{"z"})
	got := ToLines(a, b, lcs.DiffCompare(Keys(a), Keys(b), textdoc.Key.Compare))
	require.Equal(t, []lcs.Difference{{DelStart: 1, DelEnd: 3, AddStart: 1, AddEnd: 1}}, got)
}

func TestToLinesKeepsDistantDifferences(t *testing.T) {
	t.Parallel()

	a := units([]string{"x"}, []string{"y"}, []string{"m"}, []string{"z", "w"})
	b := units([]string{"x"}, []string{"NEW"}, []string{"y"}, []string{"m"}, []string{"z", "q"})
	got := ToLines(a, b, lcs.DiffCompare(Keys(a), Keys(b), textdoc.Key.Compare))
	require.Equal(t, []lcs.Difference{
		{DelStart: 1, DelEnd: lcs.None, AddStart: 1, AddEnd: 1},
		{DelStart: 3, DelEnd: 3, AddStart: 4, AddEnd: 4},
	}, got)
}

func TestTokensUnscannableLineIsOneUnit(t *testing.T) {
	t.Parallel()

	opts := Options{Mode: Tokens, Language: "go"}
	doc := goDoc("x := 1\ny := @# 2\nz := 3\n")
	var onLine []Unit
	for _, u := range Split(doc, opts) {
		if u.StartLine == 1 {
			onLine = append(onLine, u)
		}
	}
	require.Equal(t, []Unit{{Key: doc.Lines[1].Key, StartLine: 1, EndLine: 1}}, onLine)

	// Whitespace counts again on such a line and the change stays on it.
	got := tokenDiff(t, "x := 1\ny := @# 2\nz := 3\n", "x := 1\ny := @#  2\nz := 3\n", opts)
	require.Equal(t, []lcs.Difference{{DelStart: 1, DelEnd: 1, AddStart: 1, AddEnd: 1}}, got)
	require.Empty(t, tokenDiff(t, "x := 1\ny := @# 2\n", "x :=   1\ny := @# 2\n", opts))
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	m, err := ParseMode("tokens")
	require.NoError(t, err)
	require.Equal(t, Tokens, m)
	_, err = ParseMode("words")
	require.Error(t, err)
}
