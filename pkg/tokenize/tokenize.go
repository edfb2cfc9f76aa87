// Package tokenize splits documents into comparison units.
//
// Lines mode yields one unit per physical line. Tokens mode lexes the
// document with a chroma lexer and yields one unit per lexical token,
// dropping whitespace and, optionally, three classes of comments. Every unit
// remembers the lines it spans so token-level differences can be reported
// at line granularity.
package tokenize

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/asynkron/hiertext/pkg/textdoc"
)

// Mode selects the comparison granularity.
type Mode int

const (
	// Lines compares whole lines.
	Lines Mode = iota
	// Tokens compares language tokens.
	Tokens
)

// ParseMode maps a configuration value onto a Mode.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "line", "lines":
		return Lines, nil
	case "token", "tokens":
		return Tokens, nil
	}
	return Lines, fmt.Errorf("tokenize: unknown mode %q", value)
}

func (m Mode) String() string {
	if m == Tokens {
		return "tokens"
	}
	return "lines"
}

// Options configures tokenization.
type Options struct {
	Mode Mode
	// Language names a chroma lexer. When empty the lexer is chosen from the
	// document path, falling back to plain text.
	Language string

	IgnoreBlockComments bool
	IgnoreDocComments   bool
	IgnoreLineComments  bool
}

// Unit is one comparison unit and the 0-based line range it came from.
type Unit struct {
	Key       textdoc.Key
	StartLine int
	EndLine   int
}

// Split returns the comparison units of doc. Line keys must already be
// normalized; lines whose key is ignored become a single ignored unit.
func Split(doc textdoc.Document, opts Options) []Unit {
	if opts.Mode == Tokens {
		return tokens(doc, opts)
	}
	units := make([]Unit, len(doc.Lines))
	for i, line := range doc.Lines {
		units[i] = Unit{Key: line.Key, StartLine: i, EndLine: i}
	}
	return units
}

// Keys projects the comparison keys of units.
func Keys(units []Unit) []textdoc.Key {
	keys := make([]textdoc.Key, len(units))
	for i, u := range units {
		keys[i] = u.Key
	}
	return keys
}

// Lexer resolves the chroma lexer for a language name or document path.
func Lexer(language, path string) chroma.Lexer {
	var lexer chroma.Lexer
	if language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil && path != "" {
		lexer = lexers.Match(path)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return lexer
}

type commentClass int

const (
	notComment commentClass = iota
	lineComment
	blockComment
	docComment
)

func classify(tok chroma.Token) commentClass {
	if !tok.Type.InCategory(chroma.Comment) || tok.Type.InSubCategory(chroma.CommentPreproc) {
		return notComment
	}
	value := strings.TrimSpace(tok.Value)
	switch {
	case strings.HasPrefix(value, "/**") && value != "/**/":
		return docComment
	case tok.Type == chroma.CommentMultiline || strings.HasPrefix(value, "/*"):
		return blockComment
	}
	return lineComment
}

func (o Options) drops(class commentClass) bool {
	switch class {
	case lineComment:
		return o.IgnoreLineComments
	case blockComment:
		return o.IgnoreBlockComments
	case docComment:
		return o.IgnoreDocComments
	}
	return false
}

func tokens(doc textdoc.Document, opts Options) []Unit {
	if len(doc.Lines) == 0 {
		return nil
	}
	var src strings.Builder
	for _, line := range doc.Lines {
		if !line.Key.Ignored {
			src.WriteString(line.Key.Text)
		}
		src.WriteByte('\n')
	}

	buckets := make([][]Unit, len(doc.Lines))
	broken := make([]bool, len(doc.Lines))
	for i, line := range doc.Lines {
		if line.Key.Ignored {
			buckets[i] = []Unit{{Key: textdoc.IgnoredKey, StartLine: i, EndLine: i}}
		}
	}

	lexer := Lexer(opts.Language, doc.Path)
	it, err := lexer.Tokenise(nil, src.String())
	if err != nil {
		// Without a token stream every line is an opaque unit.
		return Split(doc, Options{Mode: Lines})
	}

	type span struct {
		tok        chroma.Token
		start, end int
	}
	var spans []span
	line := 0
	for tok := it(); tok != chroma.EOF; tok = it() {
		start := line
		newlines := strings.Count(tok.Value, "\n")
		end := start + newlines
		if strings.HasSuffix(tok.Value, "\n") {
			end--
		}
		if end < start {
			end = start
		}
		if end >= len(doc.Lines) {
			end = len(doc.Lines) - 1
		}
		if start < len(doc.Lines) {
			if tok.Type == chroma.Error {
				for l := start; l <= end; l++ {
					broken[l] = true
				}
			}
			spans = append(spans, span{tok: tok, start: start, end: end})
		}
		line += newlines
	}

	for _, sp := range spans {
		if touchesBroken(broken, sp.start, sp.end) {
			continue
		}
		if strings.TrimSpace(sp.tok.Value) == "" {
			continue
		}
		class := classify(sp.tok)
		if opts.drops(class) {
			continue
		}
		if class == notComment && sp.tok.Type.InCategory(chroma.Text) {
			buckets[sp.start] = appendWords(buckets[sp.start], sp.tok.Value, sp.start)
			continue
		}
		buckets[sp.start] = append(buckets[sp.start], Unit{
			Key:       textdoc.TextKey(strings.TrimRight(sp.tok.Value, "\n")),
			StartLine: sp.start,
			EndLine:   sp.end,
		})
	}

	var units []Unit
	for i, bucket := range buckets {
		if broken[i] && !doc.Lines[i].Key.Ignored {
			units = append(units, Unit{Key: doc.Lines[i].Key, StartLine: i, EndLine: i})
			continue
		}
		units = append(units, bucket...)
	}
	return units
}

func touchesBroken(broken []bool, start, end int) bool {
	for l := start; l <= end; l++ {
		if broken[l] {
			return true
		}
	}
	return false
}

// appendWords splits a text token into whitespace separated words, keeping
// track of the line each word sits on.
func appendWords(units []Unit, value string, line int) []Unit {
	for i, part := range strings.Split(value, "\n") {
		for _, word := range strings.Fields(part) {
			units = append(units, Unit{Key: textdoc.TextKey(word), StartLine: line + i, EndLine: line + i})
		}
	}
	return units
}
