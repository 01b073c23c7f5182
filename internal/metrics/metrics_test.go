package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Code, rec.Body.String()
}

func TestMetrics_Exposition(t *testing.T) {
	t.Parallel()

	m := New()
	m.ProviderFetch("luse-api", "transport")
	m.ProviderFetch("luse-api", "transport")
	m.ProviderFetch("luse-market-data", "ok")
	m.Resolved("luse-market-data", 120*time.Millisecond)
	m.CacheHit()
	m.HTTPRequest("/prices/table", http.StatusOK)

	code, body := scrape(t, m)
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, `luse_provider_fetches_total{outcome="transport",provider="luse-api"} 2`)
	require.Contains(t, body, `luse_provider_fetches_total{outcome="ok",provider="luse-market-data"} 1`)
	require.Contains(t, body, `luse_chain_resolutions_total{source="luse-market-data"} 1`)
	require.Contains(t, body, "luse_chain_cache_hits_total 1")
	require.Contains(t, body, "luse_chain_resolution_duration_seconds_count 1")
	require.Contains(t, body, `luse_http_requests_total{code="200",route="/prices/table"} 1`)
	require.Contains(t, body, "go_goroutines")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	require.NotPanics(t, func() {
		m.ProviderFetch("a", "ok")
		m.Resolved("a", time.Second)
		m.CacheHit()
		m.HTTPRequest("/", http.StatusOK)
	})
	code, _ := scrape(t, m)
	require.Equal(t, http.StatusNotFound, code)
}
