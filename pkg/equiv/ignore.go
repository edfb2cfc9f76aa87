package equiv

import (
	"github.com/asynkron/hiertext/pkg/lcs"
	"github.com/asynkron/hiertext/pkg/textdoc"
)

// IgnoreFilter drops differences whose changed lines are all ignorable.
type IgnoreFilter struct {
	Rules []Rule
}

// Filter returns diffs without the entries where every line on both present
// sides matches at least one ignore rule applicable to that side's document.
func (f IgnoreFilter) Filter(left, right textdoc.Document, diffs []lcs.Difference) ([]lcs.Difference, error) {
	if len(f.Rules) == 0 || len(diffs) == 0 {
		return diffs, nil
	}
	leftRules, err := Select(f.Rules, left.Path)
	if err != nil {
		return nil, err
	}
	rightRules, err := Select(f.Rules, right.Path)
	if err != nil {
		return nil, err
	}
	if len(leftRules) == 0 && len(rightRules) == 0 {
		return diffs, nil
	}

	kept := make([]lcs.Difference, 0, len(diffs))
	for _, d := range diffs {
		ignorable, err := allMatch(leftRules, left.Lines, d.DelStart, d.DelEnd)
		if err != nil {
			return nil, err
		}
		if ignorable {
			ignorable, err = allMatch(rightRules, right.Lines, d.AddStart, d.AddEnd)
			if err != nil {
				return nil, err
			}
		}
		if !ignorable {
			kept = append(kept, d)
		}
	}
	return kept, nil
}

func allMatch(rules []Rule, lines []textdoc.Line, start, end int) (bool, error) {
	if end == lcs.None {
		return true, nil
	}
	for i := start; i <= end; i++ {
		ok, err := anyMatch(rules, lines[i].Text)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func anyMatch(rules []Rule, text string) (bool, error) {
	for _, rule := range rules {
		ok, err := rule.Matches(text)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
