// Package syncpool provides a small bounded worker pool for fanning out
// concurrent remote fetches during page discovery, while leaving the rest
// of a sync cycle single-goroutine (spec's concurrency model bounds
// parallelism to the discovery phase only).
package syncpool

import (
	"context"
	"sync"
)

// WorkerPool caps how many goroutines Process may run at once.
type WorkerPool struct {
	workers int
}

// NewWorkerPool creates a pool of the given size, clamped to at least 1.
func NewWorkerPool(workers int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{workers: workers}
}

// Task pairs one input with the result fn produced for it.
type Task[T any, R any] struct {
	Input  T
	Result R
	Err    error
}

// Process runs fn over inputs using up to pool.workers goroutines at once,
// returning one Task per input in the same order inputs was given
// regardless of completion order. A cancelled ctx stops dispatching new
// work and workers exit once their current item finishes; items not yet
// started are left with their zero Result and a nil Err.
func Process[T any, R any](ctx context.Context, pool *WorkerPool, inputs []T, fn func(context.Context, T) (R, error)) []Task[T, R] {
	if len(inputs) == 0 {
		return nil
	}

	type indexedInput struct {
		index int
		input T
	}
	type indexedResult struct {
		index  int
		result R
		err    error
	}

	inputCh := make(chan indexedInput, len(inputs))
	resultCh := make(chan indexedResult, len(inputs))

	var wg sync.WaitGroup
	for i := 0; i < pool.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case item, ok := <-inputCh:
					if !ok {
						return
					}
					result, err := fn(ctx, item.input)
					resultCh <- indexedResult{index: item.index, result: result, err: err}
				}
			}
		}()
	}

	go func() {
		defer close(inputCh)
		for i, input := range inputs {
			select {
			case <-ctx.Done():
				return
			case inputCh <- indexedInput{index: i, input: input}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]Task[T, R], len(inputs))
	for i := range inputs {
		results[i].Input = inputs[i]
	}
	for result := range resultCh {
		results[result.index].Result = result.result
		results[result.index].Err = result.err
	}

	return results
}
