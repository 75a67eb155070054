package handlers

import (
	"context"
	"net/http"
	"strings"

	"marketplace/internal/location"
)

// LocationService is the location engine as seen by the API.
type LocationService interface {
	Suggestions(ctx context.Context, input string, limit int) (*location.SuggestionResult, error)
	Geocode(ctx context.Context, address string) (*location.GeocodeResult, error)
	Popular(ctx context.Context, limit int) (*location.PopularResult, error)
	Enrich(ctx context.Context, in location.LocationData) (location.LocationData, error)
}

// Locations serves the location API.
type Locations struct {
	engine LocationService
}

// NewLocations creates the location handlers.
func NewLocations(engine LocationService) *Locations {
	return &Locations{engine: engine}
}

type limitQuery struct {
	Limit int `json:"limit" validate:"gte=0,lte=50"`
}

type suggestQuery struct {
	Query string `json:"q" validate:"max=200"`
}

// readLimit parses and checks ?limit=. Zero means the engine default.
func readLimit(w http.ResponseWriter, r *http.Request) (limitQuery, bool) {
	n, ok := queryInt(r, "limit", 0)
	if !ok {
		writeFieldErrors(w, map[string]string{"limit": "The limit field must be an integer."})
		return limitQuery{}, false
	}
	q := limitQuery{Limit: n}
	return q, validStruct(w, &q)
}

// Suggest returns ranked suggestions for ?q=.
func (h *Locations) Suggest(w http.ResponseWriter, r *http.Request) {
	lq, ok := readLimit(w, r)
	if !ok {
		return
	}
	q := suggestQuery{Query: r.URL.Query().Get("q")}
	if !validStruct(w, &q) {
		return
	}
	res, err := h.engine.Suggestions(r.Context(), q.Query, lq.Limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Geocode resolves ?address= to coordinates.
func (h *Locations) Geocode(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		writeFieldErrors(w, map[string]string{"address": "The address field is required."})
		return
	}
	res, err := h.engine.Geocode(r.Context(), address)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if res == nil {
		writeError(w, http.StatusNotFound, "Location not found.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": res})
}

// Popular returns the locations offered before the user types.
func (h *Locations) Popular(w http.ResponseWriter, r *http.Request) {
	lq, ok := readLimit(w, r)
	if !ok {
		return
	}
	res, err := h.engine.Popular(r.Context(), lq.Limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Enrich fills in coordinates and address parts for a submitted location.
func (h *Locations) Enrich(w http.ResponseWriter, r *http.Request) {
	var in location.LocationData
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := h.engine.Enrich(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}
