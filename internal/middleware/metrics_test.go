package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"marketplace/internal/metrics"
)

func TestMetricsCountsByRoutePattern(t *testing.T) {
	m := metrics.NewCollector()

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/api/categories/{id}/path", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/categories/"+id+"/path", nil))
	}

	got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "/api/categories/{id}/path", "200"))
	assert.Equal(t, float64(3), got)
}

func TestMetricsNilCollector(t *testing.T) {
	handler := Metrics(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	assert.NotPanics(t, func() { handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil)) })
	assert.Equal(t, http.StatusTeapot, rr.Code)
}
