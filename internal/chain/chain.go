// Package chain resolves the current listing by walking an ordered list of
// providers, caching the first good answer and falling back to a static
// table when every provider fails.
//
// Resolve never fails: the caller always gets a table and the name of the
// source that produced it.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/chamatitus-cpu/luse-price-api/internal/cache"
	"github.com/chamatitus-cpu/luse-price-api/internal/market"
	"github.com/chamatitus-cpu/luse-price-api/internal/metrics"
	"github.com/chamatitus-cpu/luse-price-api/internal/provider"
)

// FallbackSource names the static table in results and logs.
const FallbackSource = "fallback"

// ErrChainExhausted wraps the joined provider errors when none succeeded.
var ErrChainExhausted = errors.New("all providers failed")

// Descriptor places a provider in the chain.
type Descriptor struct {
	Provider provider.Provider
	// Rank orders the chain, lowest first. Equal ranks keep list order.
	Rank int
	// MinRows is the fewest rows that count as a success. Values below 1
	// are treated as 1.
	MinRows int
}

// Result is one answer. Rows is shared with the cache and must not be
// modified.
type Result struct {
	Rows       market.Table
	Source     string
	ResolvedAt time.Time
	Cached     bool
}

type Option func(*Resolver)

// WithClock replaces time.Now for cache and timestamp decisions.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithTimeout bounds one walk of the chain. Zero means no bound beyond the
// providers' own retry ceilings.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// Resolver is safe for concurrent use. Concurrent misses share one walk.
type Resolver struct {
	slot    *cache.Slot
	descs   []Descriptor
	now     func() time.Time
	metrics *metrics.Metrics
	timeout time.Duration
	logger  *slog.Logger

	sf singleflight.Group
}

func New(slot *cache.Slot, descs []Descriptor, opts ...Option) *Resolver {
	ds := make([]Descriptor, 0, len(descs))
	for _, d := range descs {
		if d.Provider == nil {
			continue
		}
		if d.MinRows < 1 {
			d.MinRows = 1
		}
		ds = append(ds, d)
	}
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].Rank < ds[j].Rank })

	r := &Resolver{
		slot:   slot,
		descs:  ds,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.slot == nil {
		r.slot = cache.New(0)
	}
	return r
}

// Sources returns the provider names in the order they are tried.
func (r *Resolver) Sources() []string {
	out := make([]string, len(r.descs))
	for i, d := range r.descs {
		out[i] = d.Provider.Name()
	}
	return out
}

// Resolve returns the cached table if it is fresh, otherwise walks the chain.
// The walk is detached from ctx cancellation so a client hanging up does not
// abort a resolution other callers are waiting on.
func (r *Resolver) Resolve(ctx context.Context) Result {
	if e, ok := r.slot.Get(r.now()); ok {
		r.metrics.CacheHit()
		return fromEntry(e, true)
	}
	v, _, _ := r.sf.Do("table", func() (any, error) {
		// A walk that finished after the check above already filled the slot.
		if e, ok := r.slot.Get(r.now()); ok {
			r.metrics.CacheHit()
			return fromEntry(e, true), nil
		}
		return r.walk(ctx), nil
	})
	return v.(Result)
}

func (r *Resolver) walk(ctx context.Context) Result {
	ctx = context.WithoutCancel(ctx)
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	var errs []error
	for _, d := range r.descs {
		name := d.Provider.Name()
		rows, err := d.Provider.Fetch(ctx)
		if err == nil && len(rows) < d.MinRows {
			err = provider.Validation(name, fmt.Errorf("got %d rows, need %d", len(rows), d.MinRows))
		}
		if err != nil {
			kind := provider.KindOf(err)
			r.metrics.ProviderFetch(name, kind.String())
			r.logger.Warn("provider failed", "provider", name, "kind", kind.String(), "error", err)
			errs = append(errs, err)
			continue
		}

		r.metrics.ProviderFetch(name, "ok")
		e := cache.Entry{Rows: market.Table(rows).Clone(), Source: name, At: r.now()}
		r.slot.Set(e)
		r.metrics.Resolved(name, time.Since(start))
		r.logger.Info("table resolved", "source", name, "rows", len(rows), "took", time.Since(start))
		return fromEntry(e, false)
	}

	err := fmt.Errorf("%w: %w", ErrChainExhausted, errors.Join(errs...))
	r.logger.Error("serving fallback table", "providers", len(r.descs), "error", err)
	e := cache.Entry{Rows: market.Fallback(), Source: FallbackSource, At: r.now()}
	r.slot.Set(e)
	r.metrics.Resolved(FallbackSource, time.Since(start))
	return fromEntry(e, false)
}

func fromEntry(e cache.Entry, cached bool) Result {
	return Result{Rows: e.Rows, Source: e.Source, ResolvedAt: e.At, Cached: cached}
}
