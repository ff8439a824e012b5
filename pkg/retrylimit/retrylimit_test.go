package retrylimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type statusErr int

func (s statusErr) Error() string   { return "status" }
func (s statusErr) StatusCode() int { return int(s) }

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialDelay:   time.Millisecond,
		MaxDelay:       2 * time.Millisecond,
		RateLimitDelay: time.Millisecond,
		Multiplier:     2,
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	}, nil, fastConfig(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryStopsOnFatal(t *testing.T) {
	t.Parallel()

	calls := 0
	base := errors.New("unknown channel")
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		return Fatal(base)
	}, nil, fastConfig(5))
	if !errors.Is(err, base) {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRetryGivesUp(t *testing.T) {
	t.Parallel()

	base := errors.New("down")
	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		return base
	}, nil, fastConfig(3))
	if !errors.Is(err, base) {
		t.Fatalf("err = %v, want wrapped base", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithRetryConfig(ctx, func() error { return nil }, nil, fastConfig(3))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestLimiterAdjusts(t *testing.T) {
	t.Parallel()

	lim := NewAdaptiveLimiter(4, 1, 8, 1, 0.5)
	lim.RateLimited()
	if got := lim.CurrentLimit(); got != 2 {
		t.Fatalf("after RateLimited limit = %v, want 2", got)
	}
	lim.Success()
	if got := lim.CurrentLimit(); got != 2 {
		t.Fatalf("Success right after an error should not raise, got %v", got)
	}
	lim.now = func() time.Time { return time.Now().Add(time.Minute) }
	lim.Success()
	if got := lim.CurrentLimit(); got != 3 {
		t.Fatalf("limit = %v, want 3", got)
	}
}

func TestClassifiers(t *testing.T) {
	t.Parallel()

	if !IsRateLimit(statusErr(429)) {
		t.Error("429 should be rate limit")
	}
	if !IsServerError(statusErr(503)) {
		t.Error("503 should be server error")
	}
	if IsServerError(statusErr(404)) || IsRateLimit(errors.New("x")) {
		t.Error("false positive")
	}
}
