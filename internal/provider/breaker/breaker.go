// Package breaker stops calling a source that keeps failing and lets the
// chain skip it until a cooldown has passed.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/chamatitus-cpu/luse-price-api/internal/market"
	"github.com/chamatitus-cpu/luse-price-api/internal/provider"
)

type Config struct {
	// Failures is the count of consecutive failures that opens the breaker.
	Failures uint32
	// Cooldown is how long the breaker stays open before a trial call.
	Cooldown time.Duration
	Logger   *slog.Logger
}

// Provider short-circuits P while its breaker is open.
type Provider struct {
	p  provider.Provider
	cb *gobreaker.CircuitBreaker
}

func New(p provider.Provider, cfg Config) *Provider {
	if cfg.Failures == 0 {
		cfg.Failures = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	failures := cfg.Failures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        p.Name(),
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("provider breaker state changed", "provider", name, "from", from.String(), "to", to.String())
		},
	})
	return &Provider{p: p, cb: cb}
}

func (b *Provider) Name() string { return b.p.Name() }

// State reports the breaker state, for logs and tests.
func (b *Provider) State() gobreaker.State { return b.cb.State() }

func (b *Provider) Fetch(ctx context.Context) ([]market.Row, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.p.Fetch(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, provider.Transport(b.p.Name(), err)
	}
	if err != nil {
		return nil, err
	}
	rows, _ := v.([]market.Row)
	return rows, nil
}
