package location

import (
	"math"
	"strings"
	"unicode/utf8"

	"marketplace/internal/gazetteer"
	"marketplace/internal/slug"
)

// MatchType says how a configured location matched the query.
type MatchType string

const (
	MatchExact      MatchType = "exact"
	MatchStartsWith MatchType = "starts_with"
	MatchContains   MatchType = "contains"
	MatchCountry    MatchType = "country"
	MatchAlias      MatchType = "alias"
)

// matchWeights rank match types. A country match is worth half a contains
// match.
var matchWeights = map[MatchType]float64{
	MatchExact:      1000,
	MatchStartsWith: 500,
	MatchContains:   200,
	MatchAlias:      200,
	MatchCountry:    100,
}

// matchLocation tests the folded query against a location in order:
// name exact, name prefix, name substring, country substring, then any
// alias equal to, starting with or containing the query.
func matchLocation(l gazetteer.Location, q string) (MatchType, bool) {
	name := slug.Fold(l.Name)
	switch {
	case name == q:
		return MatchExact, true
	case strings.HasPrefix(name, q):
		return MatchStartsWith, true
	case strings.Contains(name, q):
		return MatchContains, true
	case l.Country != "" && strings.Contains(slug.Fold(l.Country), q):
		return MatchCountry, true
	}
	for _, a := range l.Aliases {
		if strings.Contains(slug.Fold(a), q) {
			return MatchAlias, true
		}
	}
	return "", false
}

// score ranks a configured match. Larger is better.
func score(l gazetteer.Location, m MatchType, s gazetteer.Settings) float64 {
	v := matchWeights[m]
	if l.Population > 0 {
		v += math.Log10(float64(l.Population)) * s.PopulationFactor
	}
	v += float64(l.Priority) * 2
	if s.BoostLocal {
		v += s.LocalBoostFactor
	}
	if bonus := s.NameLengthBonus - utf8.RuneCountInString(l.Name); bonus > 0 {
		v += float64(bonus)
	}
	return v
}
