package location

import (
	"strings"

	"marketplace/internal/gazetteer"
	"marketplace/internal/slug"
)

// detectRegion picks the search region for input. The first rule that
// matches wins: a region country named in the input, the country of a
// configured location matching the input, a region keyword in the input,
// then the default region.
func detectRegion(cfg *gazetteer.Config, input string) gazetteer.Region {
	q := slug.Fold(input)

	for _, r := range cfg.Regions {
		for _, c := range r.Countries {
			if strings.Contains(q, slug.Fold(c)) {
				return r
			}
		}
	}

	if q != "" {
		for _, l := range cfg.Locations {
			m, ok := matchLocation(l, q)
			if !ok || m == MatchCountry || m == MatchContains {
				continue
			}
			for _, r := range cfg.Regions {
				if r.HasCountry(l.Country) {
					return r
				}
			}
		}
	}

	for _, r := range cfg.Regions {
		for _, k := range r.Keywords {
			if strings.Contains(q, slug.Fold(k)) {
				return r
			}
		}
	}

	if r, ok := cfg.Region(cfg.Settings.DefaultRegion); ok {
		return r
	}
	return gazetteer.Region{Name: cfg.Settings.DefaultRegion}
}
