package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/chamatitus-cpu/luse-price-api/internal/app"
	"github.com/chamatitus-cpu/luse-price-api/internal/config"
	"github.com/chamatitus-cpu/luse-price-api/internal/httpx"
	"github.com/chamatitus-cpu/luse-price-api/internal/logging"
	"github.com/chamatitus-cpu/luse-price-api/internal/market"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath   string
		providerName string
		timeout      time.Duration
		verbose      bool
	)
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config file (json, yaml or toml)")
	flag.StringVar(&providerName, "provider", "", "run only this provider instead of the full chain")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
	flag.BoolVar(&verbose, "v", false, "log to stderr")
	flag.Parse()

	if err := run(os.Stdout, os.Stderr, configPath, providerName, timeout, verbose); err != nil {
		fmt.Fprintf(os.Stderr, "fetch: %v\n", err)
		os.Exit(1)
	}
}

func run(stdout, stderr io.Writer, configPath, providerName string, timeout time.Duration, verbose bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logCfg := cfg.Log
	logCfg.Output = "stdout"
	if !verbose {
		logCfg.Level = "error"
	}
	logger, err := logging.New(logCfg, stderr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var (
		rows   market.Table
		source string
	)
	if providerName != "" {
		pc, ok := cfg.Find(providerName)
		if !ok {
			return fmt.Errorf("unknown provider %q (have %s)", providerName, strings.Join(names(cfg), ", "))
		}
		a, err := app.New(cfg, logger)
		if err != nil {
			return err
		}
		p, ok := a.Providers[pc.Name]
		if !ok {
			// Disabled in config; build it anyway for a one-off run.
			if p, err = app.Build(pc, cfg.Identities, httpx.New(cfg.RequestTimeout()), logger); err != nil {
				return err
			}
		}
		got, err := p.Fetch(ctx)
		if err != nil {
			return err
		}
		rows, source = got, pc.Name
	} else {
		a, err := app.New(cfg, logger)
		if err != nil {
			return err
		}
		res := a.Resolver.Resolve(ctx)
		rows, source = res.Rows, res.Source
	}

	logger.Info("fetched", slog.String("source", source), slog.Int("rows", len(rows)))
	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func names(cfg config.Config) []string {
	out := make([]string, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		out = append(out, p.Name)
	}
	return out
}
