package tree

import (
	"runtime"
	"strings"

	"github.com/gobwas/glob"

	"github.com/asynkron/hiertext/internal/logging"
	"github.com/asynkron/hiertext/pkg/equiv"
)

// Options configure how hierarchies are loaded and traversed.
type Options struct {
	// Workers bounds the number of sibling tasks running at once. Zero
	// means GOMAXPROCS.
	Workers int
	// Sequential visits children one at a time in key order.
	Sequential bool
	// KeepGoing logs per-node failures and drops the node instead of
	// aborting the traversal.
	KeepGoing bool
	Logger    logging.Logger
	// Rewriter normalizes tagged paths into alignment keys.
	Rewriter equiv.PathRewriter
	// Exclude prunes nodes while children are listed.
	Exclude func(*Node) bool
}

func (o Options) workers() int {
	if o.Sequential {
		return 1
	}
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// ExcludeGlobs builds an Exclude predicate that matches node names, or
// paths when the pattern contains a slash, against glob patterns.
func ExcludeGlobs(patterns ...string) (func(*Node) bool, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	type matcher struct {
		g        glob.Glob
		wantPath bool
	}
	matchers := make([]matcher, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, matcher{g: g, wantPath: strings.Contains(pattern, "/")})
	}
	return func(n *Node) bool {
		for _, m := range matchers {
			subject := n.Source.Name()
			if m.wantPath {
				subject = n.Path
			}
			if m.g.Match(subject) {
				return true
			}
		}
		return false
	}, nil
}
