package middleware

import (
	"net/http"

	"marketplace/internal/metrics"
)

// Metrics counts requests by method, route pattern and status.
func Metrics(m *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := wrap(w)
			next.ServeHTTP(wrapped, r)
			m.ObserveRequest(r.Method, routePattern(r), wrapped.statusCode)
		})
	}
}
