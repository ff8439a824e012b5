package util

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestEachDoesNotAbortOnFailure(t *testing.T) {
	t.Parallel()

	inputs := []int{1, 2, 3, 4, 5, 6}
	var calls atomic.Int32
	errs := Each(context.Background(), inputs, 2, func(_ context.Context, n int) error {
		calls.Add(1)
		if n%2 == 0 {
			return errors.New("even")
		}
		return nil
	})

	if int(calls.Load()) != len(inputs) {
		t.Fatalf("calls = %d, want %d", calls.Load(), len(inputs))
	}
	for i, n := range inputs {
		if (errs[i] != nil) != (n%2 == 0) {
			t.Errorf("errs[%d] = %v for input %d", i, errs[i], n)
		}
	}
	if got := CountErrors(errs); got != 3 {
		t.Fatalf("CountErrors = %d, want 3", got)
	}
}

func TestEachBoundsConcurrency(t *testing.T) {
	t.Parallel()

	var running, peak atomic.Int32
	inputs := make([]int, 20)
	Each(context.Background(), inputs, 3, func(context.Context, int) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return nil
	})
	if peak.Load() > 3 {
		t.Fatalf("peak concurrency = %d, want <= 3", peak.Load())
	}
}

func TestEachCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	errs := Each(ctx, []int{1, 2, 3}, 1, func(context.Context, int) error { return nil })
	for i, err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("errs[%d] = %v", i, err)
		}
	}
}

func TestEachEmpty(t *testing.T) {
	t.Parallel()
	if errs := Each(context.Background(), []string(nil), 4, nil); len(errs) != 0 {
		t.Fatalf("len = %d", len(errs))
	}
}
