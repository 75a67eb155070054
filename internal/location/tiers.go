package location

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"marketplace/internal/gazetteer"
	"marketplace/internal/geocoder"
	"marketplace/internal/metrics"
	"marketplace/internal/models"
	"marketplace/internal/slug"
)

// Tier is one suggestion source. Search returns at most budget suggestions.
type Tier interface {
	Source() string
	Search(ctx context.Context, input string, budget int) ([]Suggestion, error)
}

// --- Config tier ---

type configTier struct {
	cfg *gazetteer.Config
}

func (t *configTier) Source() string { return SourceConfig }

type scored struct {
	loc   gazetteer.Location
	match MatchType
	score float64
}

// Search scans configured locations in file order and stops at budget
// matches, then orders them by score.
func (t *configTier) Search(_ context.Context, input string, budget int) ([]Suggestion, error) {
	q := slug.Fold(input)
	var matches []scored
	for _, l := range t.cfg.Locations {
		if len(matches) >= budget {
			break
		}
		m, ok := matchLocation(l, q)
		if !ok {
			continue
		}
		matches = append(matches, scored{loc: l, match: m, score: score(l, m, t.cfg.Settings)})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	out := make([]Suggestion, 0, len(matches))
	for _, m := range matches {
		out = append(out, configSuggestion(m))
	}
	return out, nil
}

func configSuggestion(m scored) Suggestion {
	l := m.loc
	lat, lng := l.Lat, l.Lng
	return Suggestion{
		ID:            l.ID(),
		Description:   l.Description(),
		MainText:      l.Name,
		SecondaryText: l.Secondary(),
		Type:          l.Type,
		Source:        SourceConfig,
		Data: SuggestionData{
			Lat:        &lat,
			Lng:        &lng,
			Population: l.Population,
			Country:    l.Country,
			State:      l.State,
			MatchType:  string(m.match),
			Score:      m.score,
		},
	}
}

// bestLocation returns the highest scoring configured location for q.
// Queries shorter than the minimum length and country-only matches never
// resolve to a location.
func bestLocation(cfg *gazetteer.Config, q string) (gazetteer.Location, MatchType, bool) {
	if utf8.RuneCountInString(q) < cfg.Settings.MinQueryLength {
		return gazetteer.Location{}, "", false
	}
	var best *scored
	for _, l := range cfg.Locations {
		m, ok := matchLocation(l, q)
		if !ok || m == MatchCountry {
			continue
		}
		s := score(l, m, cfg.Settings)
		if best == nil || s > best.score {
			best = &scored{loc: l, match: m, score: s}
		}
	}
	if best == nil {
		return gazetteer.Location{}, "", false
	}
	return best.loc, best.match, true
}

// --- Local tier ---

type localTier struct {
	cities Cities
}

func (t *localTier) Source() string { return SourceLocal }

func (t *localTier) Search(ctx context.Context, input string, budget int) ([]Suggestion, error) {
	cities, err := t.cities.SearchByName(ctx, input, budget)
	if err != nil {
		return nil, fmt.Errorf("local tier: %w", err)
	}
	out := make([]Suggestion, 0, len(cities))
	for i := range cities {
		out = append(out, citySuggestion(&cities[i]))
	}
	return out, nil
}

func cityDescription(c *models.City) (description, secondary string) {
	var parts []string
	if c.StateName != "" && c.StateName != c.Name {
		parts = append(parts, c.StateName)
	}
	if c.CountryName != "" {
		parts = append(parts, c.CountryName)
	}
	secondary = strings.Join(parts, ", ")
	if secondary == "" {
		return c.Name, ""
	}
	return c.Name + ", " + secondary, secondary
}

func citySuggestion(c *models.City) Suggestion {
	desc, secondary := cityDescription(c)
	return Suggestion{
		ID:            "city_" + strconv.FormatInt(c.ID, 10),
		Description:   desc,
		MainText:      c.Name,
		SecondaryText: secondary,
		Type:          "city",
		Source:        SourceLocal,
		Data: SuggestionData{
			Lat:        c.Latitude,
			Lng:        c.Longitude,
			Population: c.Population,
			Country:    c.CountryName,
			State:      c.StateName,
			CityID:     c.ID,
		},
	}
}

// --- External tier ---

type externalTier struct {
	cfg      *gazetteer.Config
	provider Provider
	metrics  *metrics.Collector
}

func (t *externalTier) Source() string { return SourceExternal }

// Search runs the detected region's search configurations in order until
// the budget is filled. A failing configuration is logged and skipped.
func (t *externalTier) Search(ctx context.Context, input string, budget int) ([]Suggestion, error) {
	if t.provider == nil || !t.provider.Enabled() {
		return nil, nil
	}
	if utf8.RuneCountInString(input) < t.cfg.Settings.MinQueryLength {
		return nil, nil
	}

	region := detectRegion(t.cfg, input)
	searches := region.Searches
	if len(searches) == 0 {
		searches = []gazetteer.Search{{}}
	}

	var out []Suggestion
	seen := make(map[string]bool)
	for _, s := range searches {
		if len(out) >= budget {
			break
		}
		preds, err := t.provider.Autocomplete(ctx, input, searchOptions(region, s))
		if err != nil {
			slog.Warn("location provider search failed",
				"region", region.Name, "types", s.Types, "components", s.Components, "error", err)
			t.metrics.ObserveProviderError("autocomplete")
			continue
		}
		for _, p := range preds {
			if len(out) >= budget {
				break
			}
			key := slug.Fold(p.MainText)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, predictionSuggestion(p))
		}
	}
	return out, nil
}

func searchOptions(region gazetteer.Region, s gazetteer.Search) geocoder.SearchOptions {
	opts := geocoder.SearchOptions{Types: s.Types, Components: s.Components, LocationBias: region.Bias}
	if region.Radius > 0 {
		opts.Bias = &geocoder.Bias{Lat: region.Center.Lat, Lng: region.Center.Lng, Radius: region.Radius}
	}
	return opts
}

func predictionSuggestion(p geocoder.Prediction) Suggestion {
	typ := "place"
	if len(p.Types) > 0 {
		typ = p.Types[0]
	}
	return Suggestion{
		ID:            p.PlaceID,
		Description:   p.Description,
		MainText:      p.MainText,
		SecondaryText: p.SecondaryText,
		Type:          typ,
		Source:        SourceExternal,
		Data: SuggestionData{
			PlaceID: p.PlaceID,
			Types:   p.Types,
		},
	}
}
