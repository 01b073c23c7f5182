// Package config loads service settings from defaults, an optional
// JSON/YAML/TOML file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/chamatitus-cpu/luse-price-api/internal/logging"
	"github.com/chamatitus-cpu/luse-price-api/internal/market"
	"github.com/chamatitus-cpu/luse-price-api/internal/retry"
)

// Provider kinds.
const (
	KindStructuredJSON = "structured_json"
	KindHTMLMaxHeader  = "html_max_header"
	KindHTMLKeyword    = "html_keyword"
)

var kinds = []string{KindStructuredJSON, KindHTMLMaxHeader, KindHTMLKeyword}

type Server struct {
	Port              string `mapstructure:"port"`
	RequestTimeoutSec int    `mapstructure:"request_timeout_sec"`
	// ResolveTimeoutSec bounds one walk of the provider chain.
	ResolveTimeoutSec int `mapstructure:"resolve_timeout_sec"`
}

type Cache struct {
	TTLSec int `mapstructure:"ttl_sec"`
}

// Provider configures one upstream source.
type Provider struct {
	Name    string `mapstructure:"name"`
	Kind    string `mapstructure:"kind"`
	Enabled bool   `mapstructure:"enabled"`
	Rank    int    `mapstructure:"rank"`
	URL     string `mapstructure:"url"`

	MinRows  int `mapstructure:"min_rows"`
	MinCells int `mapstructure:"min_cells"`

	Attempts          int `mapstructure:"attempts"`
	BaseDelayMS       int `mapstructure:"base_delay_ms"`
	MaxDelayMS        int `mapstructure:"max_delay_ms"`
	AttemptTimeoutSec int `mapstructure:"attempt_timeout_sec"`
	CeilingSec        int `mapstructure:"ceiling_sec"`

	// Columns maps canonical column names to cell indexes (html_max_header).
	Columns map[string]int `mapstructure:"columns"`
	// RecordsKey is the dotted path to the records array (structured_json).
	RecordsKey string `mapstructure:"records_key"`

	MaxRequestsPerMinute int `mapstructure:"max_requests_per_minute"`
	Burst                int `mapstructure:"burst"`
	BreakerFailures      int `mapstructure:"breaker_failures"`
	BreakerCooldownSec   int `mapstructure:"breaker_cooldown_sec"`

	Headers map[string]string `mapstructure:"headers"`
}

type Config struct {
	Server     Server         `mapstructure:"server"`
	Cache      Cache          `mapstructure:"cache"`
	Log        logging.Config `mapstructure:"log"`
	Identities []string       `mapstructure:"identities"`
	Providers  []Provider     `mapstructure:"providers"`
}

// DefaultIdentities is the outbound User-Agent rotation.
var DefaultIdentities = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
}

func listingColumns() map[string]int {
	return map[string]int{"company": 0, "ticker": 1, "last": 2, "change": 3, "volume": 4, "value": 5}
}

func Default() Config {
	return Config{
		Server:     Server{Port: "8080", RequestTimeoutSec: 10, ResolveTimeoutSec: 90},
		Cache:      Cache{TTLSec: 300},
		Log:        logging.Default(),
		Identities: slices.Clone(DefaultIdentities),
		Providers: []Provider{
			{
				Name:                 "luse-api",
				Kind:                 KindStructuredJSON,
				Enabled:              true,
				Rank:                 1,
				URL:                  "https://www.luse.co.zm/api/securities",
				MinRows:              1,
				MaxRequestsPerMinute: 30,
				Burst:                2,
				BreakerFailures:      5,
				BreakerCooldownSec:   120,
			},
			{
				Name:                 "luse-market-data",
				Kind:                 KindHTMLMaxHeader,
				Enabled:              true,
				Rank:                 2,
				URL:                  "https://www.luse.co.zm/trading/market-data/",
				MinRows:              1,
				MinCells:             3,
				Columns:              listingColumns(),
				MaxRequestsPerMinute: 30,
				Burst:                2,
				BreakerFailures:      5,
				BreakerCooldownSec:   120,
			},
			{
				Name:     "luse-mirror",
				Kind:     KindHTMLKeyword,
				Enabled:  false,
				Rank:     3,
				MinRows:  1,
				MinCells: 3,
			},
			{
				Name:                 "african-markets",
				Kind:                 KindHTMLKeyword,
				Enabled:              true,
				Rank:                 4,
				URL:                  "https://www.african-markets.com/en/stock-markets/luse/listed-companies",
				MinRows:              3,
				MinCells:             3,
				MaxRequestsPerMinute: 10,
				Burst:                1,
				BreakerFailures:      5,
				BreakerCooldownSec:   300,
			},
		},
	}
}

// Load reads config from path, which must exist when given. If path is
// empty, config.json, config.yaml and config.toml are tried in the working
// directory; with none present the defaults are used. Environment variables
// override both.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("LUSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	explicit := path != ""
	if !explicit {
		for _, candidate := range []string{"config.json", "config.yaml", "config.toml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			// A discovered candidate may vanish between Stat and read.
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.ZeroFields = true
	}); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(&cfg)
	cfg.fillProviderDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// setDefaults registers the scalar keys so LUSE_-prefixed env vars reach them.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.request_timeout_sec", cfg.Server.RequestTimeoutSec)
	v.SetDefault("server.resolve_timeout_sec", cfg.Server.ResolveTimeoutSec)
	v.SetDefault("cache.ttl_sec", cfg.Cache.TTLSec)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.output", cfg.Log.Output)
	v.SetDefault("log.file_path", cfg.Log.FilePath)
	v.SetDefault("log.max_size_mb", cfg.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", cfg.Log.MaxBackups)
	v.SetDefault("log.max_age_days", cfg.Log.MaxAgeDays)
	v.SetDefault("log.compress", cfg.Log.Compress)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Server.RequestTimeoutSec = x
		}
	}
	if v := os.Getenv("CACHE_TTL_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Cache.TTLSec = x
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LUSE_IDENTITIES"); v != "" {
		cfg.Identities = splitList(v, "|")
	}
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if v := os.Getenv(envName(p.Name) + "_URL"); v != "" {
			p.URL = v
			p.Enabled = true
		}
	}
	if v := os.Getenv("PROVIDER_ORDER"); v != "" {
		cfg.reorder(splitList(v, ","))
	}
}

// reorder ranks the named providers in the given order and disables the rest.
func (c *Config) reorder(names []string) {
	for i := range c.Providers {
		p := &c.Providers[i]
		idx := slices.Index(names, p.Name)
		if idx < 0 {
			p.Enabled = false
			continue
		}
		p.Enabled = true
		p.Rank = idx + 1
	}
}

func (c *Config) fillProviderDefaults() {
	for i := range c.Providers {
		p := &c.Providers[i]
		if p.MinRows <= 0 {
			p.MinRows = 1
		}
		if p.MinCells <= 0 {
			p.MinCells = 3
		}
		if p.Kind == KindHTMLMaxHeader && len(p.Columns) == 0 {
			p.Columns = listingColumns()
		}
	}
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is empty"))
	}
	if c.Cache.TTLSec <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl_sec must be positive, got %d", c.Cache.TTLSec))
	}
	seen := map[string]bool{}
	for i, p := range c.Providers {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("providers[%d]: name is empty", i))
			continue
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Errorf("providers[%d]: duplicate name %q", i, p.Name))
		}
		seen[p.Name] = true
		if !slices.Contains(kinds, p.Kind) {
			errs = append(errs, fmt.Errorf("provider %s: unknown kind %q", p.Name, p.Kind))
		}
		if p.Enabled && p.URL == "" {
			errs = append(errs, fmt.Errorf("provider %s: enabled without url", p.Name))
		}
		if _, err := p.ColumnMap(); err != nil {
			errs = append(errs, fmt.Errorf("provider %s: %w", p.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Enabled returns the enabled providers in rank order.
func (c Config) Enabled() []Provider {
	var out []Provider
	for _, p := range c.Providers {
		if p.Enabled {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b Provider) int { return a.Rank - b.Rank })
	return out
}

// Find returns the provider with the given name.
func (c Config) Find(name string) (Provider, bool) {
	for _, p := range c.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return Provider{}, false
}

func (c Config) CacheTTL() time.Duration { return time.Duration(c.Cache.TTLSec) * time.Second }

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSec) * time.Second
}

func (c Config) ResolveTimeout() time.Duration {
	return time.Duration(c.Server.ResolveTimeoutSec) * time.Second
}

// RetryPolicy converts the provider's retry fields. Zero fields take the
// retry package defaults.
func (p Provider) RetryPolicy() retry.Policy {
	return retry.Policy{
		Attempts:       p.Attempts,
		BaseDelay:      time.Duration(p.BaseDelayMS) * time.Millisecond,
		MaxDelay:       time.Duration(p.MaxDelayMS) * time.Millisecond,
		AttemptTimeout: time.Duration(p.AttemptTimeoutSec) * time.Second,
		Ceiling:        time.Duration(p.CeilingSec) * time.Second,
	}.Normalized()
}

// ColumnMap converts Columns to market.Columns. Names match the header
// labels case-insensitively.
func (p Provider) ColumnMap() (market.Columns, error) {
	cols := market.NoColumns()
	for name, idx := range p.Columns {
		f, ok := fieldByName(name)
		if !ok {
			return cols, fmt.Errorf("unknown column %q", name)
		}
		if idx < 0 {
			return cols, fmt.Errorf("column %q: negative index %d", name, idx)
		}
		cols[f] = idx
	}
	return cols, nil
}

func fieldByName(name string) (market.Field, bool) {
	for i, h := range market.Header {
		if strings.EqualFold(h, name) {
			return market.Field(i), true
		}
	}
	return 0, false
}

func envName(provider string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(provider))
}

func splitList(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
