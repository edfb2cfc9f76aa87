// Package equiv redefines line and path equality through regular-expression
// rules.
//
// Equivalence rules rewrite a line's comparison key: a rule without capture
// groups turns any matching line into the ignored sentinel, a rule with
// groups replaces each match with the concatenation of its captured groups.
// Ignore rules are evaluated after diffing and drop differences whose lines
// all match. Patterns use .NET/Java compatible syntax via regexp2.
package equiv

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// DefaultMatchTimeout bounds a single regexp evaluation.
const DefaultMatchTimeout = 5 * time.Second

// Rule pairs a document path predicate with a line pattern. A nil Path
// applies to every document.
type Rule struct {
	Path    *regexp2.Regexp
	Pattern *regexp2.Regexp
}

// NewRule compiles a rule. An empty pathPattern matches every path.
func NewRule(pathPattern, pattern string) (Rule, error) {
	var rule Rule
	if strings.TrimSpace(pattern) == "" {
		return rule, fmt.Errorf("equiv: empty pattern")
	}
	re, err := Compile(pattern, false)
	if err != nil {
		return rule, err
	}
	rule.Pattern = re
	if pathPattern != "" {
		pathRe, err := Compile(pathPattern, false)
		if err != nil {
			return rule, err
		}
		rule.Path = pathRe
	}
	return rule, nil
}

// MustRule is NewRule that panics, for tests and static tables.
func MustRule(pathPattern, pattern string) Rule {
	rule, err := NewRule(pathPattern, pattern)
	if err != nil {
		panic(err)
	}
	return rule
}

// Compile compiles a pattern with the package timeout applied.
func Compile(pattern string, ignoreCase bool) (*regexp2.Regexp, error) {
	opts := regexp2.None
	if ignoreCase {
		opts |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, fmt.Errorf("equiv: compile %q: %w", pattern, err)
	}
	re.MatchTimeout = DefaultMatchTimeout
	return re, nil
}

// AppliesTo reports whether the rule's path predicate accepts path.
func (r Rule) AppliesTo(path string) (bool, error) {
	if r.Path == nil {
		return true, nil
	}
	ok, err := r.Path.MatchString(path)
	if err != nil {
		return false, fmt.Errorf("equiv: match path %q: %w", path, err)
	}
	return ok, nil
}

// Matches reports whether the rule's pattern matches anywhere in text.
func (r Rule) Matches(text string) (bool, error) {
	ok, err := r.Pattern.MatchString(text)
	if err != nil {
		return false, fmt.Errorf("equiv: match %q: %w", r.Pattern.String(), err)
	}
	return ok, nil
}

// Select returns the rules that apply to path, preserving order.
func Select(rules []Rule, path string) ([]Rule, error) {
	var selected []Rule
	for _, rule := range rules {
		ok, err := rule.AppliesTo(path)
		if err != nil {
			return nil, err
		}
		if ok {
			selected = append(selected, rule)
		}
	}
	return selected, nil
}

// groupCount returns the number of capture groups, excluding group 0.
func groupCount(re *regexp2.Regexp) int {
	return len(re.GetGroupNumbers()) - 1
}

// Rewrite replaces every match of re in text with the concatenation of its
// captured groups. matched reports whether re matched at all.
func Rewrite(re *regexp2.Regexp, text string) (result string, matched bool, err error) {
	m, err := re.FindStringMatch(text)
	if err != nil {
		return "", false, fmt.Errorf("equiv: match %q: %w", re.String(), err)
	}
	if m == nil {
		return text, false, nil
	}
	// regexp2 reports rune offsets.
	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for m != nil {
		b.WriteString(string(runes[last:m.Index]))
		for _, group := range m.Groups()[1:] {
			b.WriteString(group.String())
		}
		last = m.Index + m.Length
		m, err = re.FindNextMatch(m)
		if err != nil {
			return "", false, fmt.Errorf("equiv: match %q: %w", re.String(), err)
		}
	}
	b.WriteString(string(runes[last:]))
	return b.String(), true, nil
}
