package tree

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/asynkron/hiertext/internal/logging"
)

// Visitor receives the outcome of aligning two hierarchies. Each method
// returns the results it produced for its position.
type Visitor[T any] interface {
	// Added handles a node present only in the right hierarchy.
	Added(ctx context.Context, right *Node) ([]T, error)
	// Deleted handles a node present only in the left hierarchy.
	Deleted(ctx context.Context, left *Node) ([]T, error)
	// KindChanged handles a container on one side facing a document on the
	// other. It is never recursed into.
	KindChanged(ctx context.Context, left, right *Node) ([]T, error)
	// LeafPair handles two documents sharing a key.
	LeafPair(ctx context.Context, left, right *Node) ([]T, error)
}

// Compare aligns the hierarchies below left and right and collects the
// visitor's results in key order. Matched containers are recursed into with
// one task per aligned child; every task of a container finishes before the
// container's result is returned. Walks started by the visitor share the
// comparison's worker slots.
func Compare[T any](ctx context.Context, left, right *Node, v Visitor[T], opts Options) ([]T, error) {
	ctx, sem := pool(ctx, opts)
	c := &comparer[T]{visitor: v, opts: opts, sem: sem, logger: logging.OrNoOp(opts.Logger)}
	return c.pair(ctx, left, right)
}

type comparer[T any] struct {
	visitor Visitor[T]
	opts    Options
	sem     *semaphore.Weighted
	logger  logging.Logger
}

func (c *comparer[T]) pair(ctx context.Context, left, right *Node) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		out []T
		err error
	)
	switch {
	case left == nil:
		out, err = c.visitor.Added(ctx, right)
	case right == nil:
		out, err = c.visitor.Deleted(ctx, left)
	case left.Kind.HasChildren() != right.Kind.HasChildren():
		out, err = c.visitor.KindChanged(ctx, left, right)
	case left.Kind.HasChildren():
		out, err = c.containers(ctx, left, right)
	default:
		out, err = c.visitor.LeafPair(ctx, left, right)
	}
	if err != nil {
		return nil, recoverNode(ctx, c.opts, c.logger, displayOf(left, right), err)
	}
	return out, nil
}

func (c *comparer[T]) containers(ctx context.Context, left, right *Node) ([]T, error) {
	leftChildren, err := left.Children(ctx, c.opts)
	if err != nil {
		return nil, err
	}
	rightChildren, err := right.Children(ctx, c.opts)
	if err != nil {
		return nil, err
	}
	pairs := Align(leftChildren, rightChildren)
	return each(ctx, c.sem, len(pairs), func(ctx context.Context, i int) ([]T, error) {
		return c.pair(ctx, pairs[i].Left, pairs[i].Right)
	})
}

// WalkFunc is called for every node of a hierarchy in key order. It
// returns the node's results and whether to descend into a container.
type WalkFunc[T any] func(ctx context.Context, n *Node) (out []T, descend bool, err error)

// Walk visits root and its descendants, parents before children, and
// collects the results in that order. Inside a running Compare or Walk it
// uses the enclosing worker slots instead of opts.Workers.
func Walk[T any](ctx context.Context, root *Node, fn WalkFunc[T], opts Options) ([]T, error) {
	ctx, sem := pool(ctx, opts)
	w := &walker[T]{fn: fn, opts: opts, sem: sem, logger: logging.OrNoOp(opts.Logger)}
	return w.node(ctx, root)
}

type walker[T any] struct {
	fn     WalkFunc[T]
	opts   Options
	sem    *semaphore.Weighted
	logger logging.Logger
}

func (w *walker[T]) node(ctx context.Context, n *Node) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := w.visit(ctx, n)
	if err != nil {
		return nil, recoverNode(ctx, w.opts, w.logger, n.DisplayPath(), err)
	}
	return out, nil
}

func (w *walker[T]) visit(ctx context.Context, n *Node) ([]T, error) {
	out, descend, err := w.fn(ctx, n)
	if err != nil || !descend || !n.Kind.HasChildren() {
		return out, err
	}
	children, err := n.Children(ctx, w.opts)
	if err != nil {
		return nil, err
	}
	below, err := each(ctx, w.sem, len(children), func(ctx context.Context, i int) ([]T, error) {
		return w.node(ctx, children[i])
	})
	if err != nil {
		return nil, err
	}
	return append(out, below...), nil
}

// recoverNode applies the keep-going policy to a node failure.
func recoverNode(ctx context.Context, opts Options, logger logging.Logger, path string, err error) error {
	if !opts.KeepGoing || ctx.Err() != nil {
		return err
	}
	logger.Error(ctx, "skipping "+path, err, logging.F("path", path))
	return nil
}

func displayOf(left, right *Node) string {
	if left != nil {
		return left.DisplayPath()
	}
	return right.DisplayPath()
}

type poolKey struct{}

// pool returns the worker slots carried by ctx, or creates them from opts
// and attaches them to the returned context. A nil semaphore means
// sequential.
func pool(ctx context.Context, opts Options) (context.Context, *semaphore.Weighted) {
	if sem, ok := ctx.Value(poolKey{}).(*semaphore.Weighted); ok {
		return ctx, sem
	}
	sem := newSemaphore(opts)
	return context.WithValue(ctx, poolKey{}, sem), sem
}

func newSemaphore(opts Options) *semaphore.Weighted {
	workers := opts.workers()
	if workers <= 1 {
		return nil
	}
	// The calling goroutine always works too, so it holds no slot.
	return semaphore.NewWeighted(int64(workers - 1))
}

// each runs fn for indexes [0,n) and concatenates the results in index
// order. A task runs on a new goroutine when a worker slot is free and on
// the calling goroutine otherwise, so nested containers never wait on
// slots held by their ancestors. The first error is returned once every
// started task has finished.
func each[T any](ctx context.Context, sem *semaphore.Weighted, n int, fn func(ctx context.Context, i int) ([]T, error)) ([]T, error) {
	results := make([][]T, n)
	if sem == nil {
		for i := 0; i < n; i++ {
			r, err := fn(ctx, i)
			if err != nil {
				return nil, err
			}
			results[i] = r
		}
		return flatten(results), nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	var inlineErr error
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		if sem.TryAcquire(1) {
			g.Go(func() error {
				defer sem.Release(1)
				r, err := fn(gctx, i)
				results[i] = r
				return err
			})
			continue
		}
		r, err := fn(gctx, i)
		if err != nil {
			inlineErr = err
			cancel()
			break
		}
		results[i] = r
	}
	waitErr := g.Wait()
	if inlineErr != nil {
		return nil, inlineErr
	}
	if waitErr != nil {
		return nil, waitErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return flatten(results), nil
}

func flatten[T any](parts [][]T) []T {
	var out []T
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
