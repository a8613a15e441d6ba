package httpclient

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"avinfo/internal/config"
)

// Policy bounds one logical call: Retries extra attempts, each limited to
// Timeout, sleeping Backoff × attempt between them.
type Policy struct {
	Retries int
	Timeout time.Duration
	Backoff time.Duration
}

const defaultTimeout = 8 * time.Second

// PolicyFromConfig converts the fetch settings into a Policy.
func PolicyFromConfig(f config.FetchConfig) Policy {
	return Policy{Retries: f.Retries, Timeout: f.Timeout(), Backoff: f.Backoff()}
}

func (p Policy) timeout() time.Duration {
	if p.Timeout <= 0 {
		return defaultTimeout
	}
	return p.Timeout
}

func (p Policy) maxTries() uint {
	if p.Retries < 0 {
		return 1
	}
	return uint(p.Retries) + 1
}

// linearBackOff waits step, 2×step, 3×step, ...
type linearBackOff struct {
	step    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.step * time.Duration(b.attempt)
}

func (b *linearBackOff) Reset() { b.attempt = 0 }

// Retry runs op under p. Each attempt gets its own deadline derived from ctx.
// Errors wrapped with backoff.Permanent stop the loop and are returned
// unwrapped; otherwise the last attempt's error is returned.
func Retry[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	return retry(ctx, p, op, nil)
}

func retry[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error), notify backoff.Notify) (T, error) {
	attempt := func() (T, error) {
		actx, cancel := context.WithTimeout(ctx, p.timeout())
		defer cancel()
		return op(actx)
	}
	opts := []backoff.RetryOption{
		backoff.WithBackOff(&linearBackOff{step: p.Backoff}),
		backoff.WithMaxTries(p.maxTries()),
		backoff.WithMaxElapsedTime(0),
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(notify))
	}
	return backoff.Retry(ctx, attempt, opts...)
}
