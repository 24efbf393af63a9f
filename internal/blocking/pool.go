// Package blocking bounds how many filesystem and git operations run at once.
// Callers on request goroutines hand their blocking work to a Pool instead of
// running it inline, so a burst of requests cannot pile up unbounded disk and
// network work.
package blocking

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Pool is a fixed number of slots for blocking work.
type Pool struct {
	sem  *semaphore.Weighted
	size int64
}

// NewPool creates a pool with size slots. Sizes below one are raised to one.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: int64(size)}
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return int(p.size)
}

// Do waits for a free slot and runs fn in it. It returns ctx.Err() if the
// context ends before a slot frees up; fn is not started in that case.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for blocking slot: %w", err)
	}
	defer p.sem.Release(1)

	return fn()
}

// Run is Do for work that produces a value.
func Run[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}
