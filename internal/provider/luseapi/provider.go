package luseapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chamatitus-cpu/luse-price-api/internal/httpx"
	"github.com/chamatitus-cpu/luse-price-api/internal/market"
	"github.com/chamatitus-cpu/luse-price-api/internal/provider"
	"github.com/chamatitus-cpu/luse-price-api/internal/retry"
)

var errNoRows = errors.New("no usable rows")

type Config struct {
	Name       string
	MinFields  int // non-blank canonical fields a record needs
	Identities httpx.Identities
	Retry      retry.Policy
	Logger     *slog.Logger
}

// Provider adapts Client to provider.Provider.
type Provider struct {
	cfg    Config
	client *Client
}

func New(cfg Config, client *Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "luse-api"
	}
	if cfg.MinFields <= 0 {
		cfg.MinFields = 2
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Provider{cfg: cfg, client: client}
}

func (p *Provider) Name() string { return p.cfg.Name }

func (p *Provider) Fetch(ctx context.Context) ([]market.Row, error) {
	name := p.cfg.Name
	recs, err := retry.Do(ctx, p.cfg.Retry, func(ctx context.Context, attempt int) ([]Security, error) {
		recs, err := p.client.GetSecurities(ctx, WithUserAgent(p.cfg.Identities.For(attempt)))
		switch {
		case errors.Is(err, ErrDecode):
			return nil, retry.Permanent(provider.Parse(name, err))
		case err != nil:
			return nil, provider.Transport(name, err)
		}
		return recs, nil
	}, func(attempt int, err error, next time.Duration) {
		p.cfg.Logger.Debug("provider attempt failed", "provider", name, "attempt", attempt, "retry_in", next, "error", err)
	})
	if err != nil {
		return nil, err
	}

	rows := make([]market.Row, 0, len(recs))
	for _, rec := range recs {
		if row, ok := market.FromRecord(rec, market.RecordAliases, p.cfg.MinFields); ok {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, provider.Validation(name, fmt.Errorf("%w in %d records", errNoRows, len(recs)))
	}
	return rows, nil
}
