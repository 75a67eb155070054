// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package geocoder is a client for a Google Places compatible geocoding
// provider: text autocomplete, place details and address geocoding. Every
// call runs under its own timeout and behind a circuit breaker, so a slow or
// failing provider costs a bounded amount of time per request.
package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// ErrDisabled is returned by every call when no API key is configured.
var ErrDisabled = errors.New("geocoder: no API key configured")

// ProviderError is a non-OK answer from the provider.
type ProviderError struct {
	Operation  string
	HTTPStatus int
	Status     string
	Message    string
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("geocoder %s: status %s", e.Operation, e.Status)
	if e.HTTPStatus != 0 && e.HTTPStatus != http.StatusOK {
		msg += fmt.Sprintf(" (http %d)", e.HTTPStatus)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Config holds the provider credentials and call limits.
type Config struct {
	APIKey   string
	BaseURL  string
	Language string
	Timeout  time.Duration

	// Breaker trips once at least BreakerMinRequests calls were made in
	// the window and the failure ratio reaches BreakerFailureRatio. It stays
	// open for BreakerOpenTimeout.
	BreakerMinRequests  uint32
	BreakerFailureRatio float64
	BreakerOpenTimeout  time.Duration
}

const defaultBaseURL = "https://maps.googleapis.com/maps/api"

// Client calls the geocoding provider.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// New creates a client. A nil httpClient uses a default client.
func New(cfg Config, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.BreakerMinRequests == 0 {
		cfg.BreakerMinRequests = 5
	}
	if cfg.BreakerFailureRatio <= 0 {
		cfg.BreakerFailureRatio = 0.6
	}
	if cfg.BreakerOpenTimeout <= 0 {
		cfg.BreakerOpenTimeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "geocoder",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.BreakerFailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Client{cfg: cfg, http: httpClient, breaker: breaker}
}

// Enabled reports whether the client has credentials.
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.APIKey != ""
}

// Bias restricts results towards a circle.
type Bias struct {
	Lat    float64
	Lng    float64
	Radius int
}

// SearchOptions filter autocomplete and geocode calls.
type SearchOptions struct {
	Types      string
	Components string
	Bias       *Bias
	// LocationBias is a raw provider bias such as "circle:500000@56.88,24.60".
	// It replaces Bias on autocomplete requests when set.
	LocationBias string
}

// Prediction is one autocomplete match.
type Prediction struct {
	PlaceID       string   `json:"place_id"`
	Description   string   `json:"description"`
	MainText      string   `json:"main_text"`
	SecondaryText string   `json:"secondary_text"`
	Types         []string `json:"types"`
}

// Place is a resolved place with coordinates and address parts.
type Place struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name,omitempty"`
	FormattedAddress string   `json:"formatted_address"`
	Lat              float64  `json:"lat"`
	Lng              float64  `json:"lng"`
	City             string   `json:"city,omitempty"`
	State            string   `json:"state,omitempty"`
	Country          string   `json:"country,omitempty"`
	CountryCode      string   `json:"country_code,omitempty"`
	Types            []string `json:"types,omitempty"`
}

// Autocomplete returns predictions for a partial text query.
func (c *Client) Autocomplete(ctx context.Context, input string, opts SearchOptions) ([]Prediction, error) {
	params := url.Values{}
	params.Set("input", input)
	opts.apply(params)

	var resp autocompleteResponse
	if err := c.get(ctx, "autocomplete", "/place/autocomplete/json", params, &resp); err != nil {
		return nil, err
	}

	out := make([]Prediction, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		main := p.StructuredFormatting.MainText
		if main == "" {
			main, _, _ = strings.Cut(p.Description, ",")
		}
		out = append(out, Prediction{
			PlaceID:       p.PlaceID,
			Description:   p.Description,
			MainText:      main,
			SecondaryText: p.StructuredFormatting.SecondaryText,
			Types:         p.Types,
		})
	}
	return out, nil
}

// PlaceDetails resolves a place id. Returns nil if the provider knows no
// such place.
func (c *Client) PlaceDetails(ctx context.Context, placeID string) (*Place, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "place_id,name,formatted_address,geometry,address_component,type")

	var resp detailsResponse
	if err := c.get(ctx, "details", "/place/details/json", params, &resp); err != nil {
		return nil, err
	}
	if resp.Result == nil {
		return nil, nil
	}
	p := resp.Result.place()
	return &p, nil
}

// Geocode resolves a free-text address to its best match. Returns nil when
// nothing matches.
func (c *Client) Geocode(ctx context.Context, address string, opts SearchOptions) (*Place, error) {
	params := url.Values{}
	params.Set("address", address)
	if opts.Components != "" {
		params.Set("components", opts.Components)
	}
	if opts.Bias != nil {
		params.Set("bounds", opts.Bias.bounds())
	}

	var resp geocodeResponse
	if err := c.get(ctx, "geocode", "/geocode/json", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	p := resp.Results[0].place()
	return &p, nil
}

func (o SearchOptions) apply(params url.Values) {
	if o.Types != "" {
		params.Set("types", o.Types)
	}
	if o.Components != "" {
		params.Set("components", o.Components)
	}
	switch {
	case o.LocationBias != "":
		params.Set("locationbias", o.LocationBias)
	case o.Bias != nil:
		params.Set("location", formatLatLng(o.Bias.Lat, o.Bias.Lng))
		params.Set("radius", strconv.Itoa(o.Bias.Radius))
	}
}

// bounds approximates the bias circle with a lat/lng box.
func (b Bias) bounds() string {
	dLat := float64(b.Radius) / 111_320
	dLng := dLat * 1.6
	return formatLatLng(b.Lat-dLat, b.Lng-dLng) + "|" + formatLatLng(b.Lat+dLat, b.Lng+dLng)
}

func formatLatLng(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', 6, 64) + "," + strconv.FormatFloat(lng, 'f', 6, 64)
}

// statusEnvelope is embedded by every provider response.
type statusEnvelope struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

func (s statusEnvelope) envelope() statusEnvelope { return s }

type enveloped interface{ envelope() statusEnvelope }

// get performs one GET under the per-call timeout and the breaker, and
// decodes the body into out. ZERO_RESULTS and NOT_FOUND are not errors.
func (c *Client) get(ctx context.Context, op, path string, params url.Values, out enveloped) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	params.Set("key", c.cfg.APIKey)
	if c.cfg.Language != "" {
		params.Set("language", c.cfg.Language)
	}
	endpoint := c.cfg.BaseURL + path + "?" + params.Encode()

	_, err := c.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("geocoder %s request: %w", op, err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("geocoder %s http: %w", op, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("geocoder %s read body: %w", op, err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &ProviderError{
				Operation:  op,
				HTTPStatus: resp.StatusCode,
				Status:     http.StatusText(resp.StatusCode),
				Message:    strings.TrimSpace(string(body)),
			}
		}
		if err := json.Unmarshal(body, out); err != nil {
			return nil, fmt.Errorf("geocoder %s decode: %w", op, err)
		}

		switch env := out.envelope(); env.Status {
		case "OK", "ZERO_RESULTS", "NOT_FOUND":
			return nil, nil
		default:
			return nil, &ProviderError{Operation: op, HTTPStatus: resp.StatusCode, Status: env.Status, Message: env.ErrorMessage}
		}
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("geocoder %s: %w", op, err)
	}
	return err
}

// --- Provider wire types ---

type autocompleteResponse struct {
	statusEnvelope
	Predictions []struct {
		PlaceID              string `json:"place_id"`
		Description          string `json:"description"`
		StructuredFormatting struct {
			MainText      string `json:"main_text"`
			SecondaryText string `json:"secondary_text"`
		} `json:"structured_formatting"`
		Types []string `json:"types"`
	} `json:"predictions"`
}

type addressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type placeResult struct {
	PlaceID          string `json:"place_id"`
	Name             string `json:"name"`
	FormattedAddress string `json:"formatted_address"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	AddressComponents []addressComponent `json:"address_components"`
	Types             []string           `json:"types"`
}

func (r placeResult) place() Place {
	p := Place{
		PlaceID:          r.PlaceID,
		Name:             r.Name,
		FormattedAddress: r.FormattedAddress,
		Lat:              r.Geometry.Location.Lat,
		Lng:              r.Geometry.Location.Lng,
		Types:            r.Types,
	}
	for _, ac := range r.AddressComponents {
		for _, t := range ac.Types {
			switch t {
			case "locality":
				p.City = ac.LongName
			case "administrative_area_level_1":
				p.State = ac.LongName
			case "country":
				p.Country = ac.LongName
				p.CountryCode = ac.ShortName
			}
		}
	}
	return p
}

type detailsResponse struct {
	statusEnvelope
	Result *placeResult `json:"result"`
}

type geocodeResponse struct {
	statusEnvelope
	Results []placeResult `json:"results"`
}
