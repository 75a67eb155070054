// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handlers_test.go provides the service fakes and the router used by the
// handler tests.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"marketplace/internal/category"
	"marketplace/internal/location"
	"marketplace/internal/models"
	"marketplace/internal/store"
)

// fakeCategories records the last call and returns canned results.
type fakeCategories struct {
	err error

	tree       []models.Category
	treeActive *bool
	created    category.CreateInput
	updated    category.UpdateInput
	deleted    uuid.UUID
	reordered  []store.ReorderItem
	path       []models.Category
	attrErrs   map[string]string
	attrData   map[string]any
	icon       string
	prevIcon   string
}

func (f *fakeCategories) Tree(_ context.Context, activeOnly bool) ([]models.Category, error) {
	f.treeActive = &activeOnly
	return f.tree, f.err
}

func (f *fakeCategories) Create(_ context.Context, in category.CreateInput) (*models.Category, error) {
	f.created = in
	if f.err != nil {
		return nil, f.err
	}
	return &models.Category{ID: uuid.New(), Name: in.Name, Slug: in.Slug, IsActive: true}, nil
}

func (f *fakeCategories) Update(_ context.Context, id uuid.UUID, in category.UpdateInput) (*models.Category, error) {
	f.updated = in
	if f.err != nil {
		return nil, f.err
	}
	c := &models.Category{ID: id}
	if in.Name != nil {
		c.Name = *in.Name
	}
	return c, nil
}

func (f *fakeCategories) Delete(_ context.Context, id uuid.UUID) error {
	f.deleted = id
	return f.err
}

func (f *fakeCategories) Reorder(_ context.Context, items []store.ReorderItem) error {
	f.reordered = items
	return f.err
}

func (f *fakeCategories) Path(_ context.Context, _ uuid.UUID) ([]models.Category, error) {
	return f.path, f.err
}

func (f *fakeCategories) ValidateAttributes(_ context.Context, _ uuid.UUID, data map[string]any) (map[string]string, error) {
	f.attrData = data
	return f.attrErrs, f.err
}

func (f *fakeCategories) SetIcon(_ context.Context, id uuid.UUID, icon string) (*models.Category, string, error) {
	f.icon = icon
	if f.err != nil {
		return nil, "", f.err
	}
	return &models.Category{ID: id, Icon: icon}, f.prevIcon, nil
}

// fakeIcons stores uploads in memory.
type fakeIcons struct {
	uploadErr error
	objects   map[string][]byte
	deleted   []string
}

func newFakeIcons() *fakeIcons { return &fakeIcons{objects: map[string][]byte{}} }

func (f *fakeIcons) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	data, _ := io.ReadAll(body)
	f.objects[key] = data
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeIcons) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

func (f *fakeIcons) ExtractKey(rawURL string) (string, bool) {
	return strings.CutPrefix(rawURL, "https://cdn.example.com/")
}

// fakeLocations returns canned engine results.
type fakeLocations struct {
	err error

	query    string
	limit    int
	suggest  *location.SuggestionResult
	geocode  *location.GeocodeResult
	popular  *location.PopularResult
	enriched location.LocationData
}

func (f *fakeLocations) Suggestions(_ context.Context, input string, limit int) (*location.SuggestionResult, error) {
	f.query, f.limit = input, limit
	return f.suggest, f.err
}

func (f *fakeLocations) Geocode(_ context.Context, address string) (*location.GeocodeResult, error) {
	f.query = address
	return f.geocode, f.err
}

func (f *fakeLocations) Popular(_ context.Context, limit int) (*location.PopularResult, error) {
	f.limit = limit
	return f.popular, f.err
}

func (f *fakeLocations) Enrich(_ context.Context, in location.LocationData) (location.LocationData, error) {
	if f.err != nil {
		return in, f.err
	}
	out := in
	out.Enriched = true
	out.Country = "Latvia"
	f.enriched = out
	return out, nil
}

// newTestRouter mounts the handlers the way the router package does.
func newTestRouter(c *Categories, l *Locations) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/tree", c.Tree)
		r.Post("/", c.Create)
		r.Post("/reorder", c.Reorder)
		r.Patch("/{id}", c.Update)
		r.Delete("/{id}", c.Delete)
		r.Get("/{id}/path", c.Path)
		r.Post("/{id}/attributes/validate", c.ValidateAttributes)
		r.Post("/{id}/icon", c.UploadIcon)
	})
	if l != nil {
		r.Route("/api/locations", func(r chi.Router) {
			r.Get("/suggest", l.Suggest)
			r.Get("/geocode", l.Geocode)
			r.Get("/popular", l.Popular)
			r.Post("/enrich", l.Enrich)
		})
	}
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBodyMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m), "body: %s", rr.Body.String())
	return m
}
