// Package router sets up all HTTP routes and middleware chains for the
// marketplace API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"marketplace/internal/handlers"
	"marketplace/internal/metrics"
	"marketplace/internal/middleware"
)

// Deps are the handlers and shared services the routes need.
type Deps struct {
	Categories *handlers.Categories
	Locations  *handlers.Locations
	Metrics    *metrics.Collector
	// RateLimiter guards the location routes. Nil disables limiting.
	RateLimiter *middleware.RateLimiter
	// AllowedOrigins are the browser origins allowed by CORS. Empty
	// disables the CORS handler.
	AllowedOrigins []string
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Metrics(d.Metrics))
	r.Use(middleware.SecureHeaders)
	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", healthHandler)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/categories", func(r chi.Router) {
			c := d.Categories
			r.Get("/tree", c.Tree)
			r.Post("/", c.Create)
			r.Post("/reorder", c.Reorder)
			r.Patch("/{id}", c.Update)
			r.Delete("/{id}", c.Delete)
			r.Get("/{id}/path", c.Path)
			r.Post("/{id}/attributes/validate", c.ValidateAttributes)
			r.Post("/{id}/icon", c.UploadIcon)
		})

		r.Route("/locations", func(r chi.Router) {
			if d.RateLimiter != nil {
				r.Use(d.RateLimiter.Middleware)
			}
			l := d.Locations
			r.Get("/suggest", l.Suggest)
			r.Get("/geocode", l.Geocode)
			r.Get("/popular", l.Popular)
			r.Post("/enrich", l.Enrich)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
