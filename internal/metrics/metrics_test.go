package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazz-dev/easycheck/internal/checker"
	"github.com/hazz-dev/easycheck/internal/metrics"
	"github.com/hazz-dev/easycheck/internal/state"
)

func TestObserveCycle(t *testing.T) {
	m := metrics.New()
	results := []checker.Result{
		{Check: "http endpoint check http://x", Status: checker.StatusUp, ResponseTime: 10 * time.Millisecond},
		{Check: "network connection check x:1", Status: checker.StatusDown, Reason: checker.ReasonConnectionRefused},
	}

	m.ObserveCycle(results, state.FromResults(results, time.Now()), 20*time.Millisecond)

	expected := `
# HELP easycheck_healthy 1 if the last check cycle was available, 0 otherwise
# TYPE easycheck_healthy gauge
easycheck_healthy 0
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "easycheck_healthy"))

	n, err := testutil.GatherAndCount(m.Registry(), "easycheck_check_results_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	m.ObserveCycle(nil, state.Snapshot{Status: state.Available}, time.Millisecond)
	expected = strings.Replace(expected, "easycheck_healthy 0", "easycheck_healthy 1", 1)
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "easycheck_healthy"))
}

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	expected := `
# HELP easycheck_http_requests_total Total number of HTTP requests
# TYPE easycheck_http_requests_total counter
easycheck_http_requests_total{handler="/",method="GET",status_code="503"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "easycheck_http_requests_total"))
}

func TestHandler_ServesExposition(t *testing.T) {
	m := metrics.New()
	m.ObserveVerdict("maintenance", state.Unavailable)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `easycheck_http_verdicts_total{source="maintenance",status="unavailable"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
