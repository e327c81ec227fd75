package httpserver_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/pushkit/pkg/httpserver"
)

func TestMetricsMiddleware(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics := httpserver.NewMetrics(reg)

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/silent", func(http.ResponseWriter, *http.Request) {})

	for _, path := range []string{"/users/1", "/users/2", "/silent"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2, testutil.CollectAndCount(reg, "pushkit_http_requests_total"))
	assert.Equal(t, 2, testutil.CollectAndCount(reg, "pushkit_http_request_duration_seconds"))

	families, err := reg.Gather()
	assert.NoError(t, err)

	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "pushkit_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			counts[labels["path"]+" "+labels["status"]] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{
		"/users/{id} 204": 2,
		"/silent 200":     1,
	}, counts)
}
