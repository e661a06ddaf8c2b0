// Package workerpool bounds concurrent CPU-bound crypto work (scalar
// multiplication, Poseidon2 evaluation, Groth16 verification) across all
// dispatcher shards, so a burst of simultaneous OprfKeyId events cannot
// oversubscribe the machine. Grounded on golang.org/x/sync/semaphore, part
// of the ambient stack already pulled in by the teacher's dependency tree.
package workerpool

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool limits in-flight CPU-bound tasks to a fixed weight.
type Pool struct {
	sem *semaphore.Weighted
}

// New returns a Pool that admits at most concurrency tasks at once.
func New(concurrency int64) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pool{sem: semaphore.NewWeighted(concurrency)}
}

// Submit runs fn once a slot is free, blocking until one is available or
// ctx is cancelled.
func (p *Pool) Submit(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}

// Go runs fn in its own goroutine once a slot is free, delivering its
// error on the returned channel. Callers that need to fan out several
// tasks and collect results use this instead of Submit.
func (p *Pool) Go(ctx context.Context, fn func() error) <-chan error {
	result := make(chan error, 1)
	go func() {
		result <- p.Submit(ctx, fn)
	}()
	return result
}
