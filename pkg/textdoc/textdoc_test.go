package textdoc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitKeepsTerminators(t *testing.T) {
	t.Parallel()

	lines := Split([]byte("a\nb\r\nc\rd"))
	require.Len(t, lines, 4)
	require.Equal(t, []string{"a", "b", "c", "d"}, Texts(lines))
	require.Equal(t, "\n", lines[0].EOL)
	require.Equal(t, "\r\n", lines[1].EOL)
	require.Equal(t, "\r", lines[2].EOL)
	require.Equal(t, "", lines[3].EOL)
	require.Equal(t, "a\nb\r\nc\rd", string(Join(lines)))
}

func TestSplitEmpty(t *testing.T) {
	t.Parallel()

	require.Empty(t, Split(nil))
	lines := Split([]byte("\n"))
	require.Len(t, lines, 1)
	require.Equal(t, "", lines[0].Text)
}

func TestKeysIgnoreRawText(t *testing.T) {
	t.Parallel()

	a := Line{Text: "x = 1", Key: TextKey("x=1")}
	b := Line{Text: "x=1", Key: TextKey("x=1")}
	require.Equal(t, a.Key, b.Key)
	require.NotEqual(t, IgnoredKey, TextKey(""))

	terminated := Split([]byte("a\n"))[0].Key
	last := Split([]byte("a"))[0].Key
	require.NotEqual(t, terminated, last)
}

func TestKeyCompareAgreesWithEquality(t *testing.T) {
	t.Parallel()

	keys := []Key{IgnoredKey, TextKey(""), TextKey("a"), {Text: "a", EOL: "\n"}, TextKey("b")}
	for i, k := range keys {
		for j, o := range keys {
			c := k.Compare(o)
			require.Equal(t, k == o, c == 0, "%v vs %v", k, o)
			require.Equal(t, i < j, c < 0, "%v vs %v", k, o)
		}
	}
}

func TestIsBinary(t *testing.T) {
	t.Parallel()

	require.False(t, IsBinary([]byte("plain text\n")))
	require.True(t, IsBinary([]byte{'a', 0, 'b'}))

	late := make([]byte, BinarySniffLen+10)
	for i := range late {
		late[i] = 'x'
	}
	late[len(late)-1] = 0
	require.False(t, IsBinary(late))
}

func TestDecodeLatin1(t *testing.T) {
	t.Parallel()

	decoded, err := Decode([]byte{'c', 'a', 'f', 0xe9}, "iso-8859-1")
	require.NoError(t, err)
	require.Equal(t, "café", string(decoded))

	same, err := Decode([]byte("abc"), "")
	require.NoError(t, err)
	require.Equal(t, "abc", string(same))

	_, err = Decode([]byte("abc"), "no-such-charset")
	require.Error(t, err)
}

func TestDominantEOL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "\r\n", DominantEOL(Split([]byte("a\r\nb\r\nc\n"))))
	require.Equal(t, "\n", DominantEOL(nil))
}
