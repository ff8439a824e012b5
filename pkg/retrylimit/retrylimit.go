// Package retrylimit provides an adaptive rate limiter and a retry loop for
// calls to rate-limited APIs such as the Discord REST endpoints.
//
//	lim := retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5)
//	cfg := retrylimit.DefaultRetryConfig()
//	cfg.MaxAttempts = 3
//	err := retrylimit.WithRetryConfig(ctx, func() error {
//	    return send()
//	}, lim, cfg)
package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"schedule-bot/pkg/logx"
)

// AdaptiveLimiter raises its rate after successes and cuts it after
// rate-limit or server errors. Safe for concurrent use.
type AdaptiveLimiter struct {
	mu        sync.RWMutex
	limiter   *rate.Limiter
	minLimit  rate.Limit
	maxLimit  rate.Limit
	stepUp    rate.Limit
	stepDown  float64
	lastError time.Time
	now       func() time.Time
}

// NewAdaptiveLimiter creates a limiter starting at initial requests per
// second, bounded by min and max. stepUp is added on success; stepDown
// multiplies the rate on failure (0.5 halves it).
func NewAdaptiveLimiter(initial, min, max rate.Limit, stepUp rate.Limit, stepDown float64) *AdaptiveLimiter {
	if initial < 1 {
		initial = 1
	}
	if min < 1 {
		min = 1
	}
	return &AdaptiveLimiter{
		limiter:  rate.NewLimiter(initial, max1(int(initial))),
		minLimit: min,
		maxLimit: max,
		stepUp:   stepUp,
		stepDown: stepDown,
		now:      time.Now,
	}
}

// Wait blocks until a token is available or ctx is done.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// Success nudges the rate up unless an error was seen in the last 10s.
func (a *AdaptiveLimiter) Success() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.now().Sub(a.lastError) > 10*time.Second {
		a.adjust(a.limiter.Limit() + a.stepUp)
	}
}

// RateLimited cuts the rate after an overload signal.
func (a *AdaptiveLimiter) RateLimited() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastError = a.now()
	a.adjust(rate.Limit(float64(a.limiter.Limit()) * a.stepDown))
}

// CurrentLimit returns the current requests per second.
func (a *AdaptiveLimiter) CurrentLimit() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return float64(a.limiter.Limit())
}

func (a *AdaptiveLimiter) adjust(next rate.Limit) {
	if next > a.maxLimit {
		next = a.maxLimit
	} else if next < a.minLimit {
		next = a.minLimit
	}
	if next != a.limiter.Limit() {
		a.limiter.SetLimit(next)
		a.limiter.SetBurst(max1(int(next)))
	}
}

// HTTPError is implemented by errors that carry an HTTP status code.
type HTTPError interface {
	error
	StatusCode() int
}

// FatalError stops the retry loop immediately.
type FatalError struct {
	Err error
}

func (f *FatalError) Error() string { return f.Err.Error() }
func (f *FatalError) Unwrap() error { return f.Err }

// Fatal marks err as not worth retrying.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

type RetryConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	RateLimitDelay time.Duration
	Multiplier     float64
	Jitter         bool
	Logger         logx.Logger
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    5,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		RateLimitDelay: time.Second,
		Multiplier:     2.0,
		Jitter:         true,
	}
}

// WithRetryConfig runs fn until it succeeds, returns a FatalError, ctx ends
// or cfg.MaxAttempts is used up. The last error is returned in the latter case.
func WithRetryConfig(ctx context.Context, fn func() error, lim *AdaptiveLimiter, cfg RetryConfig) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return err
			}
		}

		err := fn()
		if err == nil {
			if lim != nil {
				lim.Success()
			}
			if attempt > 1 {
				cfg.Logger.Debug("retry succeeded", logx.Int("attempt", attempt))
			}
			return nil
		}
		lastErr = err

		var fatal *FatalError
		if errors.As(err, &fatal) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := delay
		switch {
		case IsRateLimit(err):
			if lim != nil {
				lim.RateLimited()
			}
			wait = cfg.RateLimitDelay
		case IsServerError(err):
			if lim != nil {
				lim.RateLimited()
			}
		}
		if cfg.Jitter {
			wait = addJitter(wait)
		}
		cfg.Logger.Debug("retrying",
			logx.Int("attempt", attempt),
			logx.Duration("wait", wait),
			logx.Err(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("gave up after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// IsRateLimit reports a 429 anywhere in err's chain.
func IsRateLimit(err error) bool {
	var h HTTPError
	return errors.As(err, &h) && h.StatusCode() == http.StatusTooManyRequests
}

// IsServerError reports a 5xx anywhere in err's chain.
func IsServerError(err error) bool {
	var h HTTPError
	if !errors.As(err, &h) {
		return false
	}
	code := h.StatusCode()
	return code >= 500 && code < 600
}

// addJitter adds 0-25% to delay.
func addJitter(delay time.Duration) time.Duration {
	if delay < 4 {
		return delay
	}
	return delay + time.Duration(rand.Int64N(int64(delay/4)))
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
