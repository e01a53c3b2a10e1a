package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenbank/transfers/internal/infrastructure/observability"
)

func TestMetrics_RecordsRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("test", reg)

	r := chi.NewRouter()
	r.Use(Metrics(metrics))
	r.Get("/api/v1/accounts/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	families, err := reg.Gather()
	require.NoError(t, err)

	var foundTotal, foundDuration bool
	for _, mf := range families {
		switch mf.GetName() {
		case "test_http_requests_total":
			foundTotal = true
			require.Len(t, mf.Metric, 1)
			// Labeled by the route pattern, not the raw path.
			labels := map[string]string{}
			for _, lp := range mf.Metric[0].Label {
				labels[lp.GetName()] = lp.GetValue()
			}
			assert.Equal(t, "/api/v1/accounts/{id}", labels["path"])
			assert.Equal(t, "GET", labels["method"])
			assert.Equal(t, "200", labels["status"])
		case "test_http_request_duration_seconds":
			foundDuration = true
		}
	}
	assert.True(t, foundTotal, "http_requests_total not recorded")
	assert.True(t, foundDuration, "http_request_duration_seconds not recorded")
}

func TestMetrics_RecordsErrorStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("test", reg)

	r := chi.NewRouter()
	r.Use(Metrics(metrics))
	r.Get("/boom", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != "test_http_requests_total" {
			continue
		}
		for _, lp := range mf.Metric[0].Label {
			if lp.GetName() == "status" {
				assert.Equal(t, "500", lp.GetValue())
			}
		}
	}
}
