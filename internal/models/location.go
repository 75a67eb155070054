// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"time"
)

// City is the local suggestion tier's unit of data.
type City struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	StateID    *int64   `json:"state_id"`
	CountryID  int64    `json:"country_id"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Population int64    `json:"population"`
	IsActive   bool     `json:"is_active"`

	// Joined display fields, populated by CityStore queries.
	StateName   string `json:"state_name,omitempty"`
	CountryName string `json:"country_name,omitempty"`
	UserCount   int    `json:"user_count,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are known.
func (c *City) HasCoordinates() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// LocationCacheType classifies what a location_cache row holds.
type LocationCacheType string

const (
	LocationCacheAutocomplete LocationCacheType = "autocomplete"
	LocationCacheGeocode      LocationCacheType = "geocode"
	LocationCachePopular      LocationCacheType = "popular"
)

// LocationCache is a persisted, time-boxed location lookup result.
// A row is only valid while the current time is before ExpiresAt.
type LocationCache struct {
	ID        int64             `json:"id"`
	CacheKey  string            `json:"cache_key"`
	Query     string            `json:"query"`
	Type      LocationCacheType `json:"type"`
	Data      json.RawMessage   `json:"data"`
	Source    string            `json:"source"`
	ExpiresAt time.Time         `json:"expires_at"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Expired reports whether the row is no longer valid at the given time.
func (c *LocationCache) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
