package location

import "time"

// Source tiers, in the order they are consulted.
const (
	SourceConfig   = "config"
	SourceLocal    = "local"
	SourceExternal = "external"

	// SourceNone and SourceHybrid summarize a merged result.
	SourceNone   = "none"
	SourceHybrid = "hybrid"

	// Geocode result sources.
	SourceConfigGeocoding = "config_geocoding"
	SourceLocalDatabase   = "local_database"
)

// Suggestion is one ranked place offered for a partial query.
type Suggestion struct {
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	MainText      string         `json:"main_text"`
	SecondaryText string         `json:"secondary_text"`
	Type          string         `json:"type"`
	Source        string         `json:"source"`
	Data          SuggestionData `json:"data"`
}

// SuggestionData is the source specific payload of a suggestion.
type SuggestionData struct {
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
	Population int64    `json:"population,omitempty"`
	Country    string   `json:"country,omitempty"`
	State      string   `json:"state,omitempty"`
	CityID     int64    `json:"city_id,omitempty"`
	PlaceID    string   `json:"place_id,omitempty"`
	Types      []string `json:"types,omitempty"`
	MatchType  string   `json:"match_type,omitempty"`
	Score      float64  `json:"score,omitempty"`
}

// SourceCounts is how many suggestions each tier produced before merging.
type SourceCounts struct {
	Config   int `json:"config"`
	Local    int `json:"local"`
	External int `json:"external"`
}

// SuggestionResult is the response of Suggestions, cached as a whole.
type SuggestionResult struct {
	Data        []Suggestion `json:"data"`
	Source      string       `json:"source"`
	Counts      SourceCounts `json:"counts"`
	Region      string       `json:"region,omitempty"`
	QueryLength int          `json:"query_length"`
}

// GeocodeResult is a resolved address.
type GeocodeResult struct {
	Name             string  `json:"name"`
	FormattedAddress string  `json:"formatted_address"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	City             string  `json:"city,omitempty"`
	State            string  `json:"state,omitempty"`
	Country          string  `json:"country,omitempty"`
	PlaceID          string  `json:"place_id,omitempty"`
	CityID           int64   `json:"city_id,omitempty"`
	Region           string  `json:"region,omitempty"`
	Source           string  `json:"source"`
}

// PopularResult is the response of Popular.
type PopularResult struct {
	Data     []Suggestion `json:"data"`
	Source   string       `json:"source"`
	CachedAt time.Time    `json:"cached_at"`
}

// LocationData is a location attached to a listing or profile, as
// submitted by a client. Enrich fills in what it can resolve.
type LocationData struct {
	PlaceID          string   `json:"place_id,omitempty"`
	CityID           int64    `json:"city_id,omitempty"`
	Source           string   `json:"source,omitempty"`
	Address          string   `json:"address,omitempty"`
	Description      string   `json:"description,omitempty"`
	Name             string   `json:"name,omitempty"`
	FormattedAddress string   `json:"formatted_address,omitempty"`
	City             string   `json:"city,omitempty"`
	State            string   `json:"state,omitempty"`
	Country          string   `json:"country,omitempty"`
	Lat              *float64 `json:"lat,omitempty"`
	Lng              *float64 `json:"lng,omitempty"`
	Enriched         bool     `json:"enriched"`
}
