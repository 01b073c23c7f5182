package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/chamatitus-cpu/luse-price-api/internal/chain"
	"github.com/chamatitus-cpu/luse-price-api/internal/logging"
	"github.com/chamatitus-cpu/luse-price-api/internal/metrics"
)

const banner = "LuSE price API. Use /prices/table\n"

type resolver interface {
	Resolve(ctx context.Context) chain.Result
}

type server struct {
	resolver resolver
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func newServer(r resolver, m *metrics.Metrics, l *slog.Logger) *server {
	if l == nil {
		l = slog.Default()
	}
	return &server{resolver: r, metrics: m, logger: l}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /prices/table", s.handleTable)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(banner))
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", s.metrics.Handler())

	return withRequestID(s.accessLog(withJSONHeaders(withGzip(s.recoverPanic(mux)))))
}

// handleTable serves the resolved table. It answers 200 even when the table
// is the static fallback.
func (s *server) handleTable(w http.ResponseWriter, r *http.Request) {
	res := s.resolver.Resolve(r.Context())
	body, err := json.Marshal(res.Rows)
	if err != nil {
		logging.FromContext(r.Context(), s.logger).Error("encoding table", "source", res.Source, "error", err)
		writeServerError(w)
		return
	}

	h := w.Header()
	h.Set("X-Data-Source", res.Source)
	h.Set("X-Resolved-At", res.ResolvedAt.UTC().Format(time.RFC3339))
	if res.Cached {
		h.Set("X-Cache", "HIT")
	} else {
		h.Set("X-Cache", "MISS")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeServerError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":"server error"}`))
}
