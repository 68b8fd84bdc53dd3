// Package batch runs the same API call over many inputs with bounded
// concurrency. Unlike errgroup.WithContext, one failed item does not cancel
// the rest; every item gets its own result.
package batch

import (
	"context"
	"sync"
)

// DefaultConcurrency is used when a caller passes a non-positive limit.
const DefaultConcurrency = 4

// Pool bounds how many tasks run at once.
type Pool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

// NewPool creates a pool that runs at most limit tasks at a time.
func NewPool(limit int) *Pool {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	return &Pool{
		sem: make(chan struct{}, limit),
	}
}

// Go submits task. It is skipped if ctx ends before a slot frees up, and
// returns false when ctx had already ended at submission.
func (p *Pool) Go(ctx context.Context, task func(ctx context.Context)) bool {
	if ctx.Err() != nil {
		return false
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
		case <-ctx.Done():
			return
		}

		if ctx.Err() != nil {
			return
		}
		task(ctx)
	}()
	return true
}

// Wait blocks until all submitted tasks complete.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Result is the outcome for one input.
type Result[T, R any] struct {
	Input T
	Value R
	Err   error
	Ran   bool
}

// Apply calls fn for every input through a pool of the given size. Results
// come back in input order. Inputs skipped because ctx ended have Ran false
// and Err set to the context error. onDone, if set, is called after each
// completed item with the running count.
func Apply[T, R any](ctx context.Context, concurrency int, inputs []T, fn func(ctx context.Context, in T) (R, error), onDone func(done, total int)) []Result[T, R] {
	results := make([]Result[T, R], len(inputs))
	pool := NewPool(concurrency)

	var (
		mu   sync.Mutex
		done int
	)

	for i, in := range inputs {
		results[i].Input = in
		pool.Go(ctx, func(ctx context.Context) {
			v, err := fn(ctx, in)

			mu.Lock()
			results[i].Value = v
			results[i].Err = err
			results[i].Ran = true
			done++
			if onDone != nil {
				onDone(done, len(inputs))
			}
			mu.Unlock()
		})
	}

	pool.Wait()

	for i := range results {
		if !results[i].Ran {
			results[i].Err = ctx.Err()
		}
	}
	return results
}

// Failed returns the results that carry an error.
func Failed[T, R any](results []Result[T, R]) []Result[T, R] {
	var failed []Result[T, R]
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}
