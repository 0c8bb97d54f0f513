package translate

import (
	"context"
	"iter"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy bounds how often a call is attempted before the group is given up.
type RetryPolicy struct {
	Attempts int           // total attempts, including the first
	Delay    time.Duration // wait before the second attempt, doubled after each failure
	MaxDelay time.Duration
}

// DefaultRetryPolicy makes five attempts.
var DefaultRetryPolicy = RetryPolicy{Attempts: 5, Delay: time.Second, MaxDelay: 30 * time.Second}

type retryingClient struct {
	next   Client
	policy RetryPolicy
	logger *zap.Logger
}

// WithRetry wraps c so that failures before the first fragment are retried under p.
// Once a fragment has been yielded the call is committed and an error ends the stream.
func WithRetry(c Client, p RetryPolicy, logger *zap.Logger) Client {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &retryingClient{next: c, policy: p, logger: logger}
}

func (r *retryingClient) Name() string { return r.next.Name() }

func (r *retryingClient) Translate(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		delay := r.policy.Delay
		for attempt := 1; ; attempt++ {
			started := false
			var failure error
			for frag, err := range r.next.Translate(ctx, req) {
				if err != nil {
					failure = err
					break
				}
				started = true
				if !yield(frag, nil) {
					return
				}
			}
			if failure == nil {
				return
			}

			if started || attempt >= r.policy.Attempts || !Retriable(failure) {
				yield("", failure)
				return
			}

			r.logger.Warn("translation attempt failed, retrying",
				zap.String("engine", r.next.Name()),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(failure))

			if err := sleepWithCtx(ctx, delay); err != nil {
				yield("", err)
				return
			}
			delay *= 2
			if r.policy.MaxDelay > 0 && delay > r.policy.MaxDelay {
				delay = r.policy.MaxDelay
			}
		}
	}
}

func sleepWithCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
