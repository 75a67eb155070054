// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router tests verify the HTTP routing configuration, middleware
// chains, and the health endpoint.
package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/category"
	"marketplace/internal/handlers"
	"marketplace/internal/location"
	"marketplace/internal/metrics"
	"marketplace/internal/middleware"
	"marketplace/internal/models"
	"marketplace/internal/store"
)

type stubCategories struct{}

func (stubCategories) Tree(context.Context, bool) ([]models.Category, error) {
	return []models.Category{{ID: uuid.New(), Name: "Vehicles", Slug: "vehicles"}}, nil
}
func (stubCategories) Create(context.Context, category.CreateInput) (*models.Category, error) {
	return &models.Category{}, nil
}
func (stubCategories) Update(context.Context, uuid.UUID, category.UpdateInput) (*models.Category, error) {
	return &models.Category{}, nil
}
func (stubCategories) Delete(context.Context, uuid.UUID) error             { return nil }
func (stubCategories) Reorder(context.Context, []store.ReorderItem) error { return nil }
func (stubCategories) Path(context.Context, uuid.UUID) ([]models.Category, error) {
	return nil, nil
}
func (stubCategories) ValidateAttributes(context.Context, uuid.UUID, map[string]any) (map[string]string, error) {
	return nil, nil
}
func (stubCategories) SetIcon(context.Context, uuid.UUID, string) (*models.Category, string, error) {
	return &models.Category{}, "", nil
}

type stubLocations struct{}

func (stubLocations) Suggestions(_ context.Context, input string, _ int) (*location.SuggestionResult, error) {
	return &location.SuggestionResult{Data: []location.Suggestion{}, Source: location.SourceNone, QueryLength: len(input)}, nil
}
func (stubLocations) Geocode(context.Context, string) (*location.GeocodeResult, error) {
	return nil, nil
}
func (stubLocations) Popular(context.Context, int) (*location.PopularResult, error) {
	return &location.PopularResult{Data: []location.Suggestion{}, Source: location.SourceConfig}, nil
}
func (stubLocations) Enrich(_ context.Context, in location.LocationData) (location.LocationData, error) {
	return in, nil
}

func newTestRouter(t *testing.T, m *metrics.Collector, rl *middleware.RateLimiter) http.Handler {
	t.Helper()
	return New(Deps{
		Categories:  handlers.NewCategories(stubCategories{}, nil),
		Locations:   handlers.NewLocations(stubLocations{}),
		Metrics:     m,
		RateLimiter: rl,
	})
}

func serve(h http.Handler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = "192.0.2.10:4321"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthHandler(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/health", nil)

	healthHandler(w, r)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("content-type: got %q, want %q", ct, "application/json")
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field: got %q, want %q", body["status"], "ok")
	}
}

func TestRoutesWired(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/api/categories/tree", http.StatusOK},
		{"GET", "/api/categories/" + uuid.NewString() + "/path", http.StatusOK},
		{"DELETE", "/api/categories/" + uuid.NewString(), http.StatusNoContent},
		{"POST", "/api/categories/" + uuid.NewString() + "/icon", http.StatusServiceUnavailable},
		{"GET", "/api/locations/suggest?q=riga", http.StatusOK},
		{"GET", "/api/locations/popular", http.StatusOK},
		{"GET", "/api/locations/geocode?address=Atlantis", http.StatusNotFound},
		{"GET", "/api/unknown", http.StatusNotFound},
		{"PUT", "/api/categories/tree", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := serve(h, tt.method, tt.path, nil)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}
}

func TestEnrichRoute(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	rr := serve(h, "POST", "/api/locations/enrich", strings.NewReader(`{"city":"Riga"}`))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"data":{"city":"Riga","enriched":false}}`, rr.Body.String())
}

func TestSecurityHeadersApplied(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	rr := serve(h, "GET", "/api/categories/tree", nil)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}

func TestCORSPreflight(t *testing.T) {
	h := New(Deps{
		Categories:     handlers.NewCategories(stubCategories{}, nil),
		Locations:      handlers.NewLocations(stubLocations{}),
		AllowedOrigins: []string{"https://market.example"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/locations/suggest?q=riga", nil)
	req.Header.Set("Origin", "https://market.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "https://market.example", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/categories/tree", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.NewCollector()
	h := newTestRouter(t, m, nil)

	serve(h, "GET", "/api/categories/tree", nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/categories/tree", "200")))

	rr := serve(h, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "marketplace_http_requests_total")
}

func TestMetricsDisabled(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	rr := serve(h, "GET", "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLocationRoutesRateLimited(t *testing.T) {
	rl := middleware.NewRateLimiter(2, time.Minute)
	t.Cleanup(rl.Stop)
	h := newTestRouter(t, nil, rl)

	for i := 0; i < 2; i++ {
		rr := serve(h, "GET", "/api/locations/suggest?q=riga", nil)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := serve(h, "GET", "/api/locations/suggest?q=riga", nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	rr = serve(h, "GET", "/api/categories/tree", nil)
	assert.Equal(t, http.StatusOK, rr.Code, "category routes are not limited")
}
