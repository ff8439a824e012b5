package reminder

import (
	"context"

	"schedule-bot/pkg/logx"
	"schedule-bot/pkg/retrylimit"
)

// Limited rate-limits a notifier and retries transient failures a few times
// within one cycle. Errors wrapped with retrylimit.Fatal are not retried.
type Limited struct {
	next    Notifier
	limiter *retrylimit.AdaptiveLimiter
	cfg     retrylimit.RetryConfig
}

// NewLimited wraps next. attempts <= 0 means a single attempt.
func NewLimited(next Notifier, attempts int, log logx.Logger) *Limited {
	cfg := retrylimit.DefaultRetryConfig()
	cfg.MaxAttempts = attempts
	cfg.Logger = log.With(logx.String("component", "notifier"))
	return &Limited{
		next:    next,
		limiter: retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5),
		cfg:     cfg,
	}
}

func (l *Limited) Notify(ctx context.Context, n Notification) error {
	return retrylimit.WithRetryConfig(ctx, func() error {
		return l.next.Notify(ctx, n)
	}, l.limiter, l.cfg)
}
