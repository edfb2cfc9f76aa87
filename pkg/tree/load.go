package tree

import (
	"context"
	"sort"
)

// Children lists, filters and keys the children of a container node,
// sorted by key. Documents have no children.
func (n *Node) Children(ctx context.Context, opts Options) ([]*Node, error) {
	if !n.Kind.HasChildren() {
		return nil, nil
	}
	sources, err := n.Source.Children(ctx)
	if err != nil {
		return nil, wrapPath("list", n.DisplayPath(), err)
	}
	children := make([]*Node, 0, len(sources))
	for _, src := range sources {
		child := n.child(src)
		if opts.Exclude != nil && opts.Exclude(child) {
			continue
		}
		key, err := opts.Rewriter.Normalize(child.Tagged())
		if err != nil {
			return nil, wrapPath("normalize", child.Path, err)
		}
		child.Key = key
		children = append(children, child)
	}
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].Key < children[j].Key
	})
	return children, nil
}

// Pair is one aligned position of two sorted child lists. Left or Right is
// nil when the key exists on one side only.
type Pair struct {
	Key   string
	Left  *Node
	Right *Node
}

// Align merges two key sorted node lists like a two pointer merge. When
// several nodes on one side share a key, they pair up in order and the
// surplus pairs with nil.
func Align(left, right []*Node) []Pair {
	pairs := make([]Pair, 0, max(len(left), len(right)))
	i, j := 0, 0
	for i < len(left) || j < len(right) {
		switch {
		case j == len(right) || (i < len(left) && left[i].Key < right[j].Key):
			pairs = append(pairs, Pair{Key: left[i].Key, Left: left[i]})
			i++
		case i == len(left) || right[j].Key < left[i].Key:
			pairs = append(pairs, Pair{Key: right[j].Key, Right: right[j]})
			j++
		default:
			pairs = append(pairs, Pair{Key: left[i].Key, Left: left[i], Right: right[j]})
			i++
			j++
		}
	}
	return pairs
}
