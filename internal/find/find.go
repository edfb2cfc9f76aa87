// Package find lists the nodes of a hierarchy that match name globs and
// kinds.
package find

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gobwas/glob"

	"github.com/asynkron/hiertext/pkg/tree"
)

// Options configure a listing.
type Options struct {
	// Names are glob patterns matched against node names. A node matches
	// when any pattern does; no patterns match everything.
	Names []string
	// Kinds restricts the listing to the given kinds. Empty lists all.
	Kinds []tree.Kind
	// MaxDepth stops descending below the given depth when positive. The
	// root has depth 0.
	MaxDepth int
	Tree     tree.Options
}

// ParseKinds maps the letters d (directory), a (archive) and f (document)
// onto kinds.
func ParseKinds(value string) ([]tree.Kind, error) {
	var kinds []tree.Kind
	for _, r := range strings.ReplaceAll(value, ",", "") {
		switch r {
		case 'd':
			kinds = append(kinds, tree.Directory)
		case 'a':
			kinds = append(kinds, tree.Archive)
		case 'f':
			kinds = append(kinds, tree.Document)
		default:
			return nil, fmt.Errorf("find: unknown kind %q", r)
		}
	}
	return kinds, nil
}

// Entry is one listed node.
type Entry struct {
	Label string
	Path  string
	Kind  tree.Kind
	// Size is the document size in bytes, -1 for containers.
	Size int64
}

// Finder holds compiled patterns.
type Finder struct {
	names []glob.Glob
	opts  Options
}

// New compiles the name patterns of opts.
func New(opts Options) (*Finder, error) {
	f := &Finder{opts: opts}
	for _, pattern := range opts.Names {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("find: pattern %q: %w", pattern, err)
		}
		f.names = append(f.names, g)
	}
	return f, nil
}

func (f *Finder) matches(n *tree.Node) bool {
	if len(f.opts.Kinds) > 0 {
		ok := false
		for _, k := range f.opts.Kinds {
			ok = ok || k == n.Kind
		}
		if !ok {
			return false
		}
	}
	if len(f.names) == 0 {
		return true
	}
	name := n.Source.Name()
	for _, g := range f.names {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Find lists the matching nodes of root, parents before children.
func (f *Finder) Find(ctx context.Context, root tree.Source) ([]Entry, error) {
	name := root.Name()
	return tree.Walk[Entry](ctx, tree.NewRoot(root), func(ctx context.Context, n *tree.Node) ([]Entry, bool, error) {
		descend := f.opts.MaxDepth <= 0 || depth(n) < f.opts.MaxDepth
		if !f.matches(n) {
			return nil, descend, nil
		}
		e := Entry{Label: tree.Label(name, n), Path: n.Path, Kind: n.Kind, Size: -1}
		if !n.Kind.HasChildren() {
			size, err := n.Size(ctx)
			if err != nil {
				return nil, false, err
			}
			e.Size = size
		}
		return []Entry{e}, descend, nil
	}, f.opts.Tree)
}

func depth(n *tree.Node) int {
	if n.Path == "" {
		return 0
	}
	return strings.Count(n.Path, "/") + 1
}

// Write prints one label per line. With long set, the kind and size come
// first.
func Write(w io.Writer, entries []Entry, long bool) error {
	for _, e := range entries {
		var err error
		if long {
			size := "-"
			if e.Size >= 0 {
				size = fmt.Sprint(e.Size)
			}
			_, err = fmt.Fprintf(w, "%-9s %10s %s\n", e.Kind, size, e.Label)
		} else {
			_, err = fmt.Fprintln(w, e.Label)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
