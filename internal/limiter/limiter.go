// Package limiter runs a mapping function over a slice with a hard bound on
// in-flight calls while preserving input order.
package limiter

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Map applies fn to every item with at most max(1, concurrency) calls in
// flight and returns the results in input order. min(bound, len(items))
// workers are started; each claims the next unclaimed index from a shared
// counter and writes its result into that slot.
//
// The first error cancels the context passed to in-flight calls, stops
// further claims and is returned with a nil result slice.
func Map[T, R any](ctx context.Context, items []T, concurrency int, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}

	workers := max(1, concurrency)
	if workers > len(items) {
		workers = len(items)
	}

	g, gctx := errgroup.WithContext(ctx)
	var next atomic.Int64
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				i := int(next.Add(1) - 1)
				if i >= len(items) {
					return nil
				}
				r, err := fn(gctx, items[i])
				if err != nil {
					return err
				}
				results[i] = r
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
