// Package workpool runs independent, index-addressed units of work on a
// bounded number of goroutines.
package workpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool bounds the number of units in flight.
type Pool struct {
	workers int
}

// New returns a pool running at most workers units at a time. A
// non-positive value uses GOMAXPROCS.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{workers: workers}
}

// Workers returns the concurrency limit.
func (p *Pool) Workers() int {
	return p.workers
}

// Run calls fn once for every index in [0, n). Results are expected to be
// written by fn into index-addressed storage, so the caller can reassemble
// them in canonical order.
//
// Cancellation of ctx is not an error: units not yet started are skipped and
// units that finish after cancellation are not counted as done. done[i]
// reports whether unit i ran to completion. The first error returned by fn
// cancels the remaining units and is returned.
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) (done []bool, err error) {
	done = make([]bool, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if err := fn(gctx, i); err != nil {
				return err
			}
			if ctx.Err() == nil {
				done[i] = true
			}
			return nil
		})
	}
	return done, g.Wait()
}

// AllDone reports whether every unit completed.
func AllDone(done []bool) bool {
	for _, d := range done {
		if !d {
			return false
		}
	}
	return true
}
