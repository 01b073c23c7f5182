// Package ratelimit wraps a provider so it cannot hammer its upstream.
package ratelimit

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/chamatitus-cpu/luse-price-api/internal/market"
	"github.com/chamatitus-cpu/luse-price-api/internal/provider"
)

// ErrLimited is reported when a call is refused by the limiter.
var ErrLimited = errors.New("rate limited")

// Provider gates calls to P through a token bucket. A call over the limit
// fails at once as a transport failure so the chain moves to the next
// source instead of waiting.
type Provider struct {
	P       provider.Provider
	Limiter *rate.Limiter
}

// PerMinute builds a limiter allowing n calls per minute with the given burst.
// n <= 0 means unlimited.
func PerMinute(n, burst int) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), burst)
}

func (l *Provider) Name() string { return l.P.Name() }

func (l *Provider) Fetch(ctx context.Context) ([]market.Row, error) {
	if l.Limiter != nil && !l.Limiter.Allow() {
		return nil, provider.Transport(l.P.Name(), ErrLimited)
	}
	return l.P.Fetch(ctx)
}
