// Package sweep runs a parameter-sweep optimization over a backtest
// Runner factory with bounded concurrency, grounded on
// golang.org/x/sync/errgroup's WithContext fan-out pattern (seen wired
// into a trading bot's own mode-runner in the retrieval pack).
package sweep

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Candidate is one parameter set to evaluate plus the result slot it
// writes into.
type Candidate[P any, R any] struct {
	Params P
	Result R
}

// Run evaluates eval(p) for every params in candidates, at most
// concurrency at a time, and returns one result per input in the same
// order. The first error aborts the remaining, not-yet-started work and
// is returned; results already computed are still returned alongside it.
func Run[P any, R any](ctx context.Context, candidates []P, concurrency int, eval func(context.Context, P) (R, error)) ([]R, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]R, len(candidates))
	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, concurrency)
	var failed atomic.Bool

	for i, p := range candidates {
		i, p := i, p
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			if failed.Load() {
				return nil
			}
			r, err := eval(ctx, p)
			if err != nil {
				failed.Store(true)
				return err
			}
			results[i] = r
			return nil
		})
	}
	err := g.Wait()
	return results, err
}
