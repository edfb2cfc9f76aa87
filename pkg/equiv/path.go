package equiv

import "github.com/dlclark/regexp2"

// PathRewriter normalizes tagged node paths. The first character of a path is
// a tag that is never rewritten; every rule runs in order on the remainder.
type PathRewriter struct {
	Rules []*regexp2.Regexp
}

// NewPathRewriter compiles patterns into a PathRewriter.
func NewPathRewriter(patterns ...string) (PathRewriter, error) {
	var rw PathRewriter
	for _, pattern := range patterns {
		re, err := Compile(pattern, false)
		if err != nil {
			return PathRewriter{}, err
		}
		rw.Rules = append(rw.Rules, re)
	}
	return rw, nil
}

// Normalize applies the rewrite rules to tagged.
func (p PathRewriter) Normalize(tagged string) (string, error) {
	if len(p.Rules) == 0 || tagged == "" {
		return tagged, nil
	}
	tag, rest := tagged[:1], tagged[1:]
	for _, re := range p.Rules {
		rewritten, _, err := Rewrite(re, rest)
		if err != nil {
			return "", err
		}
		rest = rewritten
	}
	return tag + rest, nil
}
