// Package app assembles the provider chain from configuration.
package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/chamatitus-cpu/luse-price-api/internal/cache"
	"github.com/chamatitus-cpu/luse-price-api/internal/chain"
	"github.com/chamatitus-cpu/luse-price-api/internal/config"
	"github.com/chamatitus-cpu/luse-price-api/internal/httpx"
	"github.com/chamatitus-cpu/luse-price-api/internal/metrics"
	"github.com/chamatitus-cpu/luse-price-api/internal/provider"
	"github.com/chamatitus-cpu/luse-price-api/internal/provider/breaker"
	"github.com/chamatitus-cpu/luse-price-api/internal/provider/htmltable"
	"github.com/chamatitus-cpu/luse-price-api/internal/provider/luseapi"
	"github.com/chamatitus-cpu/luse-price-api/internal/provider/ratelimit"
)

// App owns the long-lived service state.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Cache    *cache.Slot
	Resolver *chain.Resolver
	// Providers holds every enabled provider, decorated, by name.
	Providers map[string]provider.Provider
}

type Option func(*options)

type options struct {
	clock   func() time.Time
	http    httpx.Doer
	metrics *metrics.Metrics
}

// WithClock replaces the resolver's time source.
func WithClock(now func() time.Time) Option { return func(o *options) { o.clock = now } }

// WithHTTP replaces the outbound HTTP client.
func WithHTTP(d httpx.Doer) Option { return func(o *options) { o.http = d } }

func WithMetrics(m *metrics.Metrics) Option { return func(o *options) { o.metrics = m } }

// New builds every enabled provider and the resolver in front of them.
func New(cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = metrics.New()
	}

	hc := httpx.New(cfg.RequestTimeout())
	if o.http != nil {
		hc.HTTP = o.http
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Metrics:   o.metrics,
		Cache:     cache.New(cfg.CacheTTL()),
		Providers: map[string]provider.Provider{},
	}

	var descs []chain.Descriptor
	for _, pc := range cfg.Enabled() {
		p, err := Build(pc, cfg.Identities, hc, logger)
		if err != nil {
			return nil, err
		}
		a.Providers[pc.Name] = p
		descs = append(descs, chain.Descriptor{Provider: p, Rank: pc.Rank, MinRows: pc.MinRows})
	}
	if len(descs) == 0 {
		logger.Warn("no providers enabled; every request will be served the fallback table")
	}

	a.Resolver = chain.New(a.Cache, descs,
		chain.WithClock(o.clock),
		chain.WithMetrics(o.metrics),
		chain.WithTimeout(cfg.ResolveTimeout()),
		chain.WithLogger(logger),
	)
	logger.Info("provider chain ready", "order", a.Resolver.Sources(), "cache_ttl", cfg.CacheTTL())
	return a, nil
}

// Build constructs one provider of the configured kind and wraps it with the
// breaker and rate limiter its settings ask for.
func Build(pc config.Provider, identities []string, hc *httpx.Client, logger *slog.Logger) (provider.Provider, error) {
	ids := httpx.Identities(identities)
	log := logger.With(slog.String("provider", pc.Name))

	var p provider.Provider
	switch pc.Kind {
	case config.KindStructuredJSON:
		client := luseapi.NewClient(
			luseapi.WithURL(pc.URL),
			luseapi.WithHTTPClient(hc),
			luseapi.WithRecordsKey(pc.RecordsKey),
			luseapi.WithHeader(toHeader(pc.Headers)),
		)
		p = luseapi.New(luseapi.Config{
			Name:       pc.Name,
			Identities: ids,
			Retry:      pc.RetryPolicy(),
			Logger:     log,
		}, client)

	case config.KindHTMLMaxHeader, config.KindHTMLKeyword:
		policy := htmltable.MaxHeader
		if pc.Kind == config.KindHTMLKeyword {
			policy = htmltable.Keyword
		}
		cols, err := pc.ColumnMap()
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", pc.Name, err)
		}
		p = htmltable.New(htmltable.Config{
			Name:       pc.Name,
			URL:        pc.URL,
			Policy:     policy,
			Columns:    cols,
			MinCells:   pc.MinCells,
			Headers:    pc.Headers,
			Identities: ids,
			Retry:      pc.RetryPolicy(),
			Logger:     log,
		}, hc)

	default:
		return nil, fmt.Errorf("provider %s: unknown kind %q", pc.Name, pc.Kind)
	}

	if pc.BreakerFailures > 0 {
		p = breaker.New(p, breaker.Config{
			Failures: uint32(pc.BreakerFailures),
			Cooldown: time.Duration(pc.BreakerCooldownSec) * time.Second,
			Logger:   log,
		})
	}
	if pc.MaxRequestsPerMinute > 0 {
		p = &ratelimit.Provider{P: p, Limiter: ratelimit.PerMinute(pc.MaxRequestsPerMinute, pc.Burst)}
	}
	return p, nil
}

func toHeader(m map[string]string) http.Header {
	h := http.Header{}
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}
