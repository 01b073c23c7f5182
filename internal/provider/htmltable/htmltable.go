// Package htmltable scrapes the listing out of an HTML page.
package htmltable

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/chamatitus-cpu/luse-price-api/internal/httpx"
	"github.com/chamatitus-cpu/luse-price-api/internal/market"
	"github.com/chamatitus-cpu/luse-price-api/internal/provider"
	"github.com/chamatitus-cpu/luse-price-api/internal/retry"
	"github.com/chamatitus-cpu/luse-price-api/internal/tabledetect"
)

// Policy selects how the target table is found on the page.
type Policy int

const (
	// MaxHeader takes the table with the most header cells and reads it
	// with the configured fixed column layout.
	MaxHeader Policy = iota
	// Keyword takes the first table whose header names ticker, company and
	// price, and reads columns from that header.
	Keyword
)

var (
	errMissingURL = errors.New("missing URL")
	errNoRows     = errors.New("no usable rows")
)

// Config controls one scraping provider.
type Config struct {
	Name       string
	URL        string
	Policy     Policy
	Columns    market.Columns // used by MaxHeader only
	MinCells   int
	Headers    map[string]string
	Identities httpx.Identities
	Retry      retry.Policy
	Logger     *slog.Logger
}

// Provider fetches a page and turns its market table into rows.
type Provider struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "html"
	}
	if cfg.Policy == MaxHeader && cfg.Columns == (market.Columns{}) {
		cfg.Columns = market.ListingColumns
	}
	if cfg.MinCells <= 0 {
		cfg.MinCells = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return p.cfg.Name }

func (p *Provider) Fetch(ctx context.Context) ([]market.Row, error) {
	name := p.cfg.Name
	if p.cfg.URL == "" {
		return nil, provider.Validation(name, errMissingURL)
	}

	body, err := retry.Do(ctx, p.cfg.Retry, func(ctx context.Context, attempt int) ([]byte, error) {
		b, err := p.client.Get(ctx, p.cfg.URL, p.header(attempt))
		if err != nil {
			return nil, provider.Transport(name, err)
		}
		return b, nil
	}, func(attempt int, err error, next time.Duration) {
		p.cfg.Logger.Debug("provider attempt failed", "provider", name, "attempt", attempt, "retry_in", next, "error", err)
	})
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, provider.Parse(name, fmt.Errorf("parsing html: %w", err))
	}

	var (
		table *goquery.Selection
		cols  = p.cfg.Columns
	)
	switch p.cfg.Policy {
	case Keyword:
		table, cols, err = tabledetect.ByKeywords(doc)
	default:
		table, err = tabledetect.MaxHeader(doc)
	}
	if err != nil {
		return nil, provider.Validation(name, err)
	}

	rows := make([]market.Row, 0, 64)
	for _, cells := range tabledetect.DataRows(table) {
		if row, ok := market.FromCells(cells, cols, p.cfg.MinCells); ok {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, provider.Validation(name, errNoRows)
	}
	return rows, nil
}

func (p *Provider) header(attempt int) http.Header {
	h := p.cfg.Identities.Header(attempt)
	h.Set("Accept", "text/html,application/xhtml+xml")
	for k, v := range p.cfg.Headers {
		h.Set(k, v)
	}
	return h
}
