// Package retry is the bounded retry primitive shared by every provider.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	// MaxAttempts caps Policy.Attempts whatever the configuration says.
	MaxAttempts = 10

	defaultAttempts       = 3
	defaultBaseDelay      = 250 * time.Millisecond
	defaultMaxDelay       = 4 * time.Second
	defaultAttemptTimeout = 15 * time.Second
	defaultCeiling        = 30 * time.Second
)

// Policy bounds one provider's retries. Attempt n (n >= 2) waits
// BaseDelay*2^(n-2), capped at MaxDelay. Each attempt gets AttemptTimeout
// and the whole call never runs past Ceiling.
type Policy struct {
	Attempts       int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
	Ceiling        time.Duration
}

// Normalized fills zero fields with defaults and clamps Attempts.
func (p Policy) Normalized() Policy {
	if p.Attempts <= 0 {
		p.Attempts = defaultAttempts
	}
	if p.Attempts > MaxAttempts {
		p.Attempts = MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultBaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = max(defaultMaxDelay, p.BaseDelay)
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = defaultAttemptTimeout
	}
	if p.Ceiling <= 0 {
		p.Ceiling = defaultCeiling
	}
	return p
}

// Delay is the wait before the given attempt (1-based). Attempt 1 never waits.
func (p Policy) Delay(attempt int) time.Duration {
	p = p.Normalized()
	if attempt <= 1 {
		return 0
	}
	d := p.BaseDelay
	for i := 2; i < attempt && d < p.MaxDelay; i++ {
		d *= 2
	}
	return min(d, p.MaxDelay)
}

// Op is one attempt. ctx carries the per-attempt timeout.
type Op[T any] func(ctx context.Context, attempt int) (T, error)

// Notify is called before sleeping ahead of the next attempt.
type Notify func(attempt int, err error, next time.Duration)

// Permanent marks err as not worth retrying.
func Permanent(err error) error { return backoff.Permanent(err) }

// Do runs op until it succeeds, returns a Permanent error, runs out of
// attempts, or the ceiling passes. On failure it returns the last error op
// produced, unwrapped from any Permanent marker.
func Do[T any](ctx context.Context, p Policy, op Op[T], notify Notify) (T, error) {
	p = p.Normalized()
	ctx, cancel := context.WithTimeout(ctx, p.Ceiling)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = p.MaxDelay

	var (
		attempt int
		lastErr error
	)
	res, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		actx, acancel := context.WithTimeout(ctx, p.AttemptTimeout)
		defer acancel()
		v, err := op(actx, attempt)
		if err != nil {
			lastErr = err
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(p.Attempts)),
		backoff.WithMaxElapsedTime(p.Ceiling),
		backoff.WithNotify(func(err error, next time.Duration) {
			if notify != nil {
				notify(attempt, err, next)
			}
		}),
	)
	if err == nil {
		return res, nil
	}
	// Ceiling or caller cancellation while sleeping: report what the
	// upstream actually did rather than the bare context error.
	if lastErr != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		err = lastErr
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	var zero T
	return zero, err
}
