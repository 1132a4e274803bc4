// Package worker runs per-record work on a fixed number of goroutines.
package worker

import (
	"context"
	"sync"
)

// Pool is a fixed-size goroutine pool fed through a bounded job channel.
type Pool[T any] struct {
	numWorkers int
	jobs       chan T
	process    func(ctx context.Context, job T)
	wg         sync.WaitGroup
}

// NewPool creates a pool; call Start before Submit.
func NewPool[T any](numWorkers, bufferSize int, process func(ctx context.Context, job T)) *Pool[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pool[T]{
		numWorkers: numWorkers,
		jobs:       make(chan T, bufferSize),
		process:    process,
	}
}

func (p *Pool[T]) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *Pool[T]) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.process(ctx, job)
		}
	}
}

// Submit blocks until the job is queued. It returns false if ctx ends first.
func (p *Pool[T]) Submit(ctx context.Context, job T) bool {
	select {
	case <-ctx.Done():
		return false
	case p.jobs <- job:
		return true
	}
}

// Stop closes the queue and waits for in-flight jobs.
func (p *Pool[T]) Stop() {
	close(p.jobs)
	p.wg.Wait()
}

// Map applies fn to every item on at most workers goroutines and returns the
// results in item order. The first error cancels the remaining work and is
// returned; so is cancellation of ctx.
func Map[T, R any](ctx context.Context, workers int, items []T, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return []R{}, ctx.Err()
	}
	if workers > len(items) {
		workers = len(items)
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	results := make([]R, len(items))
	pool := NewPool(workers, workers, func(ctx context.Context, i int) {
		if ctx.Err() != nil {
			return
		}
		r, err := fn(ctx, items[i])
		if err != nil {
			cancel(err)
			return
		}
		results[i] = r
	})
	pool.Start(ctx)
	for i := range items {
		if !pool.Submit(ctx, i) {
			break
		}
	}
	pool.Stop()

	if ctx.Err() != nil {
		return nil, context.Cause(ctx)
	}
	return results, nil
}
