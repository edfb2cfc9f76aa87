package equiv

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/asynkron/hiertext/pkg/textdoc"
)

// Whitespace selects how whitespace participates in comparison keys.
type Whitespace int

const (
	// WhitespaceExact compares whitespace byte for byte.
	WhitespaceExact Whitespace = iota
	// WhitespaceChange collapses runs of whitespace and trims both ends.
	WhitespaceChange
	// WhitespaceAll drops whitespace entirely.
	WhitespaceAll
)

// ParseWhitespace maps a configuration value onto a Whitespace mode.
func ParseWhitespace(value string) (Whitespace, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "exact":
		return WhitespaceExact, nil
	case "change", "collapse":
		return WhitespaceChange, nil
	case "all", "ignore":
		return WhitespaceAll, nil
	}
	return WhitespaceExact, fmt.Errorf("equiv: unknown whitespace mode %q", value)
}

func (w Whitespace) String() string {
	switch w {
	case WhitespaceChange:
		return "change"
	case WhitespaceAll:
		return "all"
	default:
		return "exact"
	}
}

// Normalizer computes comparison keys for the lines of a document.
type Normalizer struct {
	Rules      []Rule
	Whitespace Whitespace
	IgnoreCase bool
}

// Identity reports whether the normalizer leaves every key equal to its text.
func (n Normalizer) Identity() bool {
	return len(n.Rules) == 0 && n.Whitespace == WhitespaceExact && !n.IgnoreCase
}

// Apply rewrites the key of every line of doc in place.
func (n Normalizer) Apply(doc *textdoc.Document) error {
	if doc == nil || n.Identity() {
		return nil
	}
	rules, err := Select(n.Rules, doc.Path)
	if err != nil {
		return err
	}
	for i := range doc.Lines {
		key, err := n.key(rules, doc.Lines[i].Text, doc.Lines[i].EOL)
		if err != nil {
			return fmt.Errorf("equiv: %s line %d: %w", doc.Path, i+1, err)
		}
		doc.Lines[i].Key = key
	}
	return nil
}

// Key computes the comparison key of a single line of the document at path.
func (n Normalizer) Key(path, text string) (textdoc.Key, error) {
	rules, err := Select(n.Rules, path)
	if err != nil {
		return textdoc.Key{}, err
	}
	return n.key(rules, text, "")
}

// key folds text into a comparison key. The terminator only takes part when
// whitespace is compared exactly.
func (n Normalizer) key(rules []Rule, text, eol string) (textdoc.Key, error) {
	for _, rule := range rules {
		if groupCount(rule.Pattern) == 0 {
			ok, err := rule.Matches(text)
			if err != nil {
				return textdoc.Key{}, err
			}
			if ok {
				return textdoc.IgnoredKey, nil
			}
			continue
		}
		rewritten, _, err := Rewrite(rule.Pattern, text)
		if err != nil {
			return textdoc.Key{}, err
		}
		text = rewritten
	}
	text = FoldWhitespace(text, n.Whitespace)
	if n.IgnoreCase {
		text = strings.ToLower(text)
	}
	if n.Whitespace != WhitespaceExact {
		eol = ""
	}
	return textdoc.Key{Text: text, EOL: eol}, nil
}

// FoldWhitespace applies mode to text.
func FoldWhitespace(text string, mode Whitespace) string {
	switch mode {
	case WhitespaceChange:
		return strings.Join(strings.Fields(text), " ")
	case WhitespaceAll:
		var b strings.Builder
		b.Grow(len(text))
		for _, r := range text {
			if !unicode.IsSpace(r) {
				b.WriteRune(r)
			}
		}
		return b.String()
	}
	return text
}
