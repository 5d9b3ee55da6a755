package service

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// WorkPool bounds the number of CPU-heavy jobs running at once.
type WorkPool struct {
	sem  *semaphore.Weighted
	size int
}

// NewWorkPool creates a pool running at most size jobs concurrently.
// A non-positive size selects runtime.NumCPU().
func NewWorkPool(size int) *WorkPool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &WorkPool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the pool's concurrency limit.
func (p *WorkPool) Size() int {
	return p.size
}

// Run executes fn on a pool slot and returns its result.
//
// Waiting for a slot and waiting for the result both honour ctx. When ctx
// ends while fn is running, Run returns ctx.Err() at once; fn finishes in
// the background and its result is handed to discard, if non-nil.
func Run[T any](ctx context.Context, p *WorkPool, fn func() T, discard func(T)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}

	done := make(chan T, 1)
	go func() {
		defer p.sem.Release(1)
		done <- fn()
	}()

	select {
	case v := <-done:
		return v, nil
	case <-ctx.Done():
		go func() {
			v := <-done
			if discard != nil {
				discard(v)
			}
		}()
		return zero, ctx.Err()
	}
}
