// Package textdoc holds the in-memory representation of a document as an
// ordered list of comparison units.
//
// Every Line keeps its raw text, its own terminator and a comparison Key.
// Equality between lines is defined by the Key only, so two lines with
// different text may compare equal once whitespace folding or equivalence
// rules have rewritten their keys.
package textdoc

import (
	"bytes"
	"strings"
)

// BinarySniffLen is the number of leading bytes inspected by IsBinary.
const BinarySniffLen = 8 << 10

// Key is the value lines are compared by. Ignored keys compare equal to each
// other and never to a key produced from real content. EOL takes part in
// equality so a missing or different terminator counts as a change.
type Key struct {
	Text    string
	EOL     string
	Ignored bool
}

// TextKey returns the plain comparison key for text.
func TextKey(text string) Key {
	return Key{Text: text}
}

// Compare orders keys by text, then terminator. Ignored keys sort first. It
// returns 0 exactly when the keys are equal.
func (k Key) Compare(o Key) int {
	if k.Ignored != o.Ignored {
		if k.Ignored {
			return -1
		}
		return 1
	}
	if c := strings.Compare(k.Text, o.Text); c != 0 {
		return c
	}
	return strings.Compare(k.EOL, o.EOL)
}

// IgnoredKey is the sentinel key assigned to lines swallowed by an
// equivalence rule without capture groups.
var IgnoredKey = Key{Ignored: true}

// Line is one physical line of a document.
type Line struct {
	Text string
	// EOL is "\n", "\r\n", "\r" or empty for a final unterminated line.
	EOL string
	Key Key
}

// Document is a named, fully materialized sequence of lines.
type Document struct {
	Path  string
	Lines []Line
}

// Split breaks data into lines, accepting LF, CRLF and lone CR terminators.
// Keys are initialised to the raw text and terminator.
func Split(data []byte) []Line {
	if len(data) == 0 {
		return nil
	}
	lines := make([]Line, 0, bytes.Count(data, []byte{'\n'})+1)
	start := 0
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '\n':
			lines = append(lines, newLine(string(data[start:i]), "\n"))
			start = i + 1
		case '\r':
			if i+1 < len(data) && data[i+1] == '\n' {
				lines = append(lines, newLine(string(data[start:i]), "\r\n"))
				i++
			} else {
				lines = append(lines, newLine(string(data[start:i]), "\r"))
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, newLine(string(data[start:]), ""))
	}
	return lines
}

func newLine(text, eol string) Line {
	return Line{Text: text, EOL: eol, Key: Key{Text: text, EOL: eol}}
}

// Parse builds a Document from raw bytes.
func Parse(path string, data []byte) Document {
	return Document{Path: path, Lines: Split(data)}
}

// FromStrings builds LF-terminated lines, mostly useful in tests.
func FromStrings(texts ...string) []Line {
	lines := make([]Line, len(texts))
	for i, text := range texts {
		lines[i] = newLine(text, "\n")
	}
	return lines
}

// Join concatenates lines together with their own terminators.
func Join(lines []Line) []byte {
	size := 0
	for _, line := range lines {
		size += len(line.Text) + len(line.EOL)
	}
	var buf bytes.Buffer
	buf.Grow(size)
	for _, line := range lines {
		buf.WriteString(line.Text)
		buf.WriteString(line.EOL)
	}
	return buf.Bytes()
}

// Bytes returns the exact byte content of the document.
func (d Document) Bytes() []byte {
	return Join(d.Lines)
}

// Len reports the number of lines.
func (d Document) Len() int {
	return len(d.Lines)
}

// Keys projects the comparison keys of the document.
func (d Document) Keys() []Key {
	keys := make([]Key, len(d.Lines))
	for i, line := range d.Lines {
		keys[i] = line.Key
	}
	return keys
}

// Texts projects the raw text of each line.
func Texts(lines []Line) []string {
	texts := make([]string, len(lines))
	for i, line := range lines {
		texts[i] = line.Text
	}
	return texts
}

// IsBinary reports whether data looks like binary content: a NUL byte within
// the first BinarySniffLen bytes.
func IsBinary(data []byte) bool {
	if len(data) > BinarySniffLen {
		data = data[:BinarySniffLen]
	}
	return bytes.IndexByte(data, 0) >= 0
}

// DominantEOL returns the most common terminator in lines, defaulting to "\n".
func DominantEOL(lines []Line) string {
	counts := map[string]int{}
	for _, line := range lines {
		if line.EOL != "" {
			counts[line.EOL]++
		}
	}
	best, bestCount := "\n", 0
	for _, eol := range []string{"\n", "\r\n", "\r"} {
		if counts[eol] > bestCount {
			best, bestCount = eol, counts[eol]
		}
	}
	return best
}

// TrimEOL removes one trailing terminator from s.
func TrimEOL(s string) (string, string) {
	switch {
	case strings.HasSuffix(s, "\r\n"):
		return s[:len(s)-2], "\r\n"
	case strings.HasSuffix(s, "\n"):
		return s[:len(s)-1], "\n"
	case strings.HasSuffix(s, "\r"):
		return s[:len(s)-1], "\r"
	}
	return s, ""
}
