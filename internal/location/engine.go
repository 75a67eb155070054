// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package location suggests and resolves places by blending three sources:
// the configured gazetteer, the local cities table and an external
// geocoding provider. Results are cached in the location_cache table.
package location

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/blake2b"

	"marketplace/internal/gazetteer"
	"marketplace/internal/geocoder"
	"marketplace/internal/metrics"
	"marketplace/internal/models"
	"marketplace/internal/slug"
)

const (
	// DefaultLimit is used when a caller asks for zero suggestions.
	DefaultLimit = 10
	// MaxLimit caps a single suggestion request.
	MaxLimit = 50

	geocodeTTLFactor = 24
	popularTTLFactor = 6
)

// Cities is the local city lookup.
type Cities interface {
	SearchByName(ctx context.Context, q string, limit int) ([]models.City, error)
	FindWithCoordinates(ctx context.Context, q string) (*models.City, error)
	Popular(ctx context.Context, limit int) ([]models.City, error)
	FindByID(ctx context.Context, id int64) (*models.City, error)
}

// Cache persists lookup results. Get returns nil for a missing or expired
// key.
type Cache interface {
	Get(ctx context.Context, key string) (*models.LocationCache, error)
	Put(ctx context.Context, c *models.LocationCache) error
}

// Provider is the external geocoding service.
type Provider interface {
	Enabled() bool
	Autocomplete(ctx context.Context, input string, opts geocoder.SearchOptions) ([]geocoder.Prediction, error)
	PlaceDetails(ctx context.Context, placeID string) (*geocoder.Place, error)
	Geocode(ctx context.Context, address string, opts geocoder.SearchOptions) (*geocoder.Place, error)
}

// Engine answers suggestion, geocode and popular-location requests.
type Engine struct {
	cfg      *gazetteer.Config
	cities   Cities
	cache    Cache
	provider Provider
	metrics  *metrics.Collector
	tiers    []Tier
	now      func() time.Time
}

// NewEngine creates an engine. provider may be nil, which disables the
// external tier.
func NewEngine(cfg *gazetteer.Config, cities Cities, cache Cache, provider Provider, m *metrics.Collector) *Engine {
	e := &Engine{
		cfg:      cfg,
		cities:   cities,
		cache:    cache,
		provider: provider,
		metrics:  m,
		now:      time.Now,
	}
	e.tiers = []Tier{
		&configTier{cfg: cfg},
		&localTier{cities: cities},
		&externalTier{cfg: cfg, provider: provider, metrics: m},
	}
	return e
}

// DetectRegion returns the name of the search region for input.
func (e *Engine) DetectRegion(input string) string {
	return detectRegion(e.cfg, input).Name
}

// Suggestions returns up to limit ranked suggestions for a partial query.
// Queries shorter than the configured minimum return an empty result
// without touching any tier.
func (e *Engine) Suggestions(ctx context.Context, input string, limit int) (*SuggestionResult, error) {
	input = strings.TrimSpace(input)
	limit = clampLimit(limit)
	qlen := utf8.RuneCountInString(input)

	if qlen < e.cfg.Settings.MinQueryLength {
		return &SuggestionResult{Data: []Suggestion{}, Source: SourceNone, QueryLength: qlen}, nil
	}

	key := "autocomplete:" + hashKey(strings.ToLower(input)+"|"+strconv.Itoa(limit))
	var cached SuggestionResult
	if e.readCache(ctx, key, "autocomplete", &cached) {
		return &cached, nil
	}

	var (
		all    []Suggestion
		counts SourceCounts
	)
	remaining := limit
	for _, t := range e.tiers {
		if remaining <= 0 {
			break
		}
		found, err := t.Search(ctx, input, remaining)
		if err != nil {
			slog.Warn("location tier failed", "source", t.Source(), "query", input, "error", err)
			continue
		}
		e.metrics.ObserveTier(t.Source(), len(found))
		switch t.Source() {
		case SourceConfig:
			counts.Config = len(found)
		case SourceLocal:
			counts.Local = len(found)
		case SourceExternal:
			counts.External = len(found)
		}
		all = append(all, found...)
		remaining -= len(found)
	}

	data := merge(all, limit)
	result := &SuggestionResult{
		Data:        data,
		Source:      summarize(data),
		Counts:      counts,
		Region:      e.DetectRegion(input),
		QueryLength: qlen,
	}
	e.writeCache(ctx, key, input, models.LocationCacheAutocomplete, result.Source, result, e.cfg.Settings.CacheTTL)
	return result, nil
}

var sourceWeights = map[string]int{
	SourceConfig:   3,
	SourceLocal:    2,
	SourceExternal: 1,
}

// merge orders suggestions by source weight, then by shorter main text,
// drops later entries whose main text repeats an earlier one and
// truncates to limit.
func merge(in []Suggestion, limit int) []Suggestion {
	sorted := make([]Suggestion, len(in))
	copy(sorted, in)
	sort.SliceStable(sorted, func(i, j int) bool {
		wi, wj := sourceWeights[sorted[i].Source], sourceWeights[sorted[j].Source]
		if wi != wj {
			return wi > wj
		}
		return utf8.RuneCountInString(sorted[i].MainText) < utf8.RuneCountInString(sorted[j].MainText)
	})

	out := make([]Suggestion, 0, min(len(sorted), limit))
	seen := make(map[string]bool, len(sorted))
	for _, s := range sorted {
		if len(out) >= limit {
			break
		}
		key := slug.Fold(s.MainText)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// summarize names the single contributing source, "hybrid" for several
// and "none" for an empty result.
func summarize(data []Suggestion) string {
	source := SourceNone
	for _, s := range data {
		switch source {
		case SourceNone:
			source = s.Source
		case s.Source:
		default:
			return SourceHybrid
		}
	}
	return source
}

// Geocode resolves an address, trying the cache, the gazetteer, the
// provider and the cities table in that order. Returns nil when nothing
// matches.
func (e *Engine) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, nil
	}

	key := "geocode:" + hashKey(strings.ToLower(address))
	var cached GeocodeResult
	if e.readCache(ctx, key, "geocode", &cached) {
		return &cached, nil
	}

	ttl := e.cfg.Settings.CacheTTL

	if l, _, ok := bestLocation(e.cfg, slug.Fold(address)); ok {
		res := &GeocodeResult{
			Name:             l.Name,
			FormattedAddress: l.Description(),
			Lat:              l.Lat,
			Lng:              l.Lng,
			City:             l.Name,
			State:            l.State,
			Country:          l.Country,
			Source:           SourceConfigGeocoding,
		}
		e.writeCache(ctx, key, address, models.LocationCacheGeocode, SourceConfig, res, ttl)
		return res, nil
	}

	if e.provider != nil && e.provider.Enabled() {
		region := detectRegion(e.cfg, address)
		var s gazetteer.Search
		if len(region.Searches) > 0 {
			s = region.Searches[0]
		}
		place, err := e.provider.Geocode(ctx, address, searchOptions(region, s))
		switch {
		case err != nil:
			slog.Warn("location provider geocode failed", "address", address, "error", err)
			e.metrics.ObserveProviderError("geocode")
		case place != nil:
			name := place.Name
			if name == "" {
				name = place.City
			}
			res := &GeocodeResult{
				Name:             name,
				FormattedAddress: place.FormattedAddress,
				Lat:              place.Lat,
				Lng:              place.Lng,
				City:             place.City,
				State:            place.State,
				Country:          place.Country,
				PlaceID:          place.PlaceID,
				Region:           region.Name,
				Source:           SourceExternal,
			}
			e.writeCache(ctx, key, address, models.LocationCacheGeocode, SourceExternal, res, ttl*geocodeTTLFactor)
			return res, nil
		}
	}

	city, err := e.cities.FindWithCoordinates(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", address, err)
	}
	if city == nil {
		return nil, nil
	}
	desc, _ := cityDescription(city)
	return &GeocodeResult{
		Name:             city.Name,
		FormattedAddress: desc,
		Lat:              *city.Latitude,
		Lng:              *city.Longitude,
		City:             city.Name,
		State:            city.StateName,
		Country:          city.CountryName,
		CityID:           city.ID,
		Source:           SourceLocalDatabase,
	}, nil
}

// Popular returns configured locations by priority, topped up with the
// cities most users live in.
func (e *Engine) Popular(ctx context.Context, limit int) (*PopularResult, error) {
	limit = clampLimit(limit)
	key := "popular_locations:" + strconv.Itoa(limit)

	var cached PopularResult
	if e.readCache(ctx, key, "popular", &cached) {
		return &cached, nil
	}

	configured := make([]gazetteer.Location, len(e.cfg.Locations))
	copy(configured, e.cfg.Locations)
	sort.SliceStable(configured, func(i, j int) bool { return configured[i].Priority > configured[j].Priority })

	data := make([]Suggestion, 0, limit)
	seen := make(map[string]bool)
	for _, l := range configured {
		if len(data) >= limit {
			break
		}
		seen[slug.Fold(l.Name)] = true
		data = append(data, configSuggestion(scored{loc: l, score: score(l, MatchExact, e.cfg.Settings)}))
	}

	if remaining := limit - len(data); remaining > 0 {
		cities, err := e.cities.Popular(ctx, remaining+len(data))
		if err != nil {
			return nil, fmt.Errorf("popular locations: %w", err)
		}
		for i := range cities {
			if len(data) >= limit {
				break
			}
			if seen[slug.Fold(cities[i].Name)] {
				continue
			}
			seen[slug.Fold(cities[i].Name)] = true
			data = append(data, citySuggestion(&cities[i]))
		}
	}

	res := &PopularResult{Data: data, Source: summarize(data), CachedAt: e.now().UTC()}
	e.writeCache(ctx, key, "", models.LocationCachePopular, res.Source, res, e.cfg.Settings.CacheTTL*popularTTLFactor)
	return res, nil
}

// Enrich fills coordinates and address parts into a submitted location.
// Provider failures leave the input unchanged.
func (e *Engine) Enrich(ctx context.Context, in LocationData) (LocationData, error) {
	out := in
	switch {
	case in.PlaceID != "" && e.provider != nil && e.provider.Enabled():
		place, err := e.provider.PlaceDetails(ctx, in.PlaceID)
		if err != nil {
			slog.Warn("location provider details failed", "place_id", in.PlaceID, "error", err)
			e.metrics.ObserveProviderError("details")
			return in, nil
		}
		if place == nil {
			return in, nil
		}
		lat, lng := place.Lat, place.Lng
		out.Lat, out.Lng = &lat, &lng
		out.FormattedAddress = place.FormattedAddress
		out.City = firstNonEmpty(place.City, out.City)
		out.State = firstNonEmpty(place.State, out.State)
		out.Country = firstNonEmpty(place.Country, out.Country)
		out.Name = firstNonEmpty(out.Name, place.Name)
		out.Enriched = true

	case in.CityID != 0:
		city, err := e.cities.FindByID(ctx, in.CityID)
		if err != nil {
			return in, fmt.Errorf("enrich city %d: %w", in.CityID, err)
		}
		if city == nil {
			return in, nil
		}
		out.Name = firstNonEmpty(out.Name, city.Name)
		out.City = city.Name
		out.State = city.StateName
		out.Country = city.CountryName
		out.FormattedAddress, _ = cityDescription(city)
		if city.HasCoordinates() {
			out.Lat, out.Lng = city.Latitude, city.Longitude
		}
		out.Enriched = true

	case in.Source == SourceConfig:
		return in, nil

	case in.Address != "" || in.Description != "":
		res, err := e.Geocode(ctx, firstNonEmpty(in.Address, in.Description))
		if err != nil {
			return in, err
		}
		if res == nil {
			return in, nil
		}
		lat, lng := res.Lat, res.Lng
		out.Lat, out.Lng = &lat, &lng
		out.FormattedAddress = res.FormattedAddress
		out.Name = firstNonEmpty(out.Name, res.Name)
		out.City = firstNonEmpty(res.City, out.City)
		out.State = firstNonEmpty(res.State, out.State)
		out.Country = firstNonEmpty(res.Country, out.Country)
		out.Enriched = true
	}
	return out, nil
}

// readCache decodes a live cache entry into dst. Cache failures are logged
// and treated as a miss.
func (e *Engine) readCache(ctx context.Context, key, kind string, dst any) bool {
	if e.cache == nil {
		return false
	}
	row, err := e.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("location cache read failed", "key", key, "error", err)
		return false
	}
	if row == nil {
		e.metrics.ObserveLocationCache(kind, false)
		return false
	}
	if err := json.Unmarshal(row.Data, dst); err != nil {
		slog.Warn("location cache entry undecodable", "key", key, "error", err)
		return false
	}
	e.metrics.ObserveLocationCache(kind, true)
	return true
}

func (e *Engine) writeCache(ctx context.Context, key, query string, typ models.LocationCacheType, source string, v any, ttl time.Duration) {
	if e.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("location cache encode failed", "key", key, "error", err)
		return
	}
	row := &models.LocationCache{
		CacheKey:  key,
		Query:     query,
		Type:      typ,
		Data:      data,
		Source:    source,
		ExpiresAt: e.now().Add(ttl),
	}
	if err := e.cache.Put(ctx, row); err != nil {
		slog.Warn("location cache write failed", "key", key, "error", err)
	}
}

// hashKey returns a fixed length hex digest of s.
func hashKey(s string) string {
	sum := blake2b.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
