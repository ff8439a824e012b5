package util

import (
	"context"
	"sync"
)

// Each runs fn over inputs with at most workerLimit goroutines. A failing item
// never stops the others; the returned slice holds one error per input index
// (nil on success). Cancelling ctx stops feeding new items and marks the
// unfed ones with ctx.Err().
func Each[T any](ctx context.Context, inputs []T, workerLimit int, fn func(context.Context, T) error) []error {
	errs := make([]error, len(inputs))
	if len(inputs) == 0 {
		return errs
	}
	if workerLimit <= 0 {
		workerLimit = 1
	}
	if workerLimit > len(inputs) {
		workerLimit = len(inputs)
	}

	type task struct {
		idx  int
		item T
	}
	tasks := make(chan task)

	var wg sync.WaitGroup
	for i := 0; i < workerLimit; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				errs[t.idx] = fn(ctx, t.item)
			}
		}()
	}

	fed := 0
feed:
	for i, item := range inputs {
		select {
		case <-ctx.Done():
			break feed
		case tasks <- task{idx: i, item: item}:
			fed++
		}
	}
	close(tasks)
	wg.Wait()

	for i := fed; i < len(inputs); i++ {
		errs[i] = ctx.Err()
	}
	return errs
}

// CountErrors returns how many entries of errs are non-nil.
func CountErrors(errs []error) int {
	n := 0
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	return n
}
