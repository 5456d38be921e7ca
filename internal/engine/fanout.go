package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Settled is the outcome of one fan-out item. Either Value or Err is
// meaningful, never both.
type Settled[R any] struct {
	Value R
	Err   error
}

// mapLimit runs fn over items with at most limit workers and returns the
// settled outcomes in input order. Per-item failures never abort the batch;
// callers decide what a failed item means.
func mapLimit[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) []Settled[R] {
	results := make([]Settled[R], len(items))
	if len(items) == 0 {
		return results
	}
	if limit > len(items) {
		limit = len(items)
	}

	g := &errgroup.Group{}
	g.SetLimit(limit)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			v, err := fn(ctx, item)
			results[i] = Settled[R]{Value: v, Err: err}
			return nil
		})
	}
	g.Wait()
	return results
}
