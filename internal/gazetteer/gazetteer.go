// Package gazetteer loads the static location configuration: the popular
// locations offered before any lookup, the named search regions and the
// ranking settings. It is read once at startup and shared read-only.
package gazetteer

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"marketplace/internal/slug"
)

//go:embed default.yaml
var defaultYAML []byte

// Settings tune suggestion ranking and caching.
type Settings struct {
	MinQueryLength   int           `yaml:"min_query_length"`
	PopulationFactor float64       `yaml:"population_factor"`
	BoostLocal       bool          `yaml:"boost_local"`
	LocalBoostFactor float64       `yaml:"local_boost_factor"`
	NameLengthBonus  int           `yaml:"name_length_bonus"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
	DefaultRegion    string        `yaml:"default_region"`
}

// Location is one configured popular place.
type Location struct {
	Name       string   `yaml:"name"`
	Country    string   `yaml:"country"`
	State      string   `yaml:"state"`
	Type       string   `yaml:"type"`
	Lat        float64  `yaml:"lat"`
	Lng        float64  `yaml:"lng"`
	Population int64    `yaml:"population"`
	Priority   int      `yaml:"priority"`
	Aliases    []string `yaml:"aliases"`
}

// ID returns the stable suggestion id of the location, e.g. "config_riga".
func (l Location) ID() string {
	return "config_" + slug.Generate(l.Name)
}

// Description returns the full display string, e.g. "Riga, Rīga, Latvia".
func (l Location) Description() string {
	parts := []string{l.Name}
	if l.State != "" && l.State != l.Name {
		parts = append(parts, l.State)
	}
	if l.Country != "" {
		parts = append(parts, l.Country)
	}
	return strings.Join(parts, ", ")
}

// Secondary returns the display string without the name.
func (l Location) Secondary() string {
	return strings.TrimPrefix(strings.TrimPrefix(l.Description(), l.Name), ", ")
}

// Point is a latitude/longitude pair.
type Point struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

// Search is one provider query configuration within a region.
type Search struct {
	Types      string `yaml:"types"`
	Components string `yaml:"components"`
}

// Region groups countries that are searched together.
type Region struct {
	Name      string   `yaml:"name"`
	Countries []string `yaml:"countries"`
	Keywords  []string `yaml:"keywords"`
	Center    Point    `yaml:"center"`
	Radius    int      `yaml:"radius"`
	Bias      string   `yaml:"bias"`
	Searches  []Search `yaml:"searches"`
}

// HasCountry reports whether country belongs to the region, ignoring case
// and accents.
func (r Region) HasCountry(country string) bool {
	c := slug.Fold(country)
	for _, rc := range r.Countries {
		if slug.Fold(rc) == c {
			return true
		}
	}
	return false
}

// Config is the loaded gazetteer. Treat it as immutable once loaded.
type Config struct {
	Settings  Settings   `yaml:"settings"`
	Locations []Location `yaml:"locations"`
	Regions   []Region   `yaml:"regions"`
}

// Region returns the named region.
func (c *Config) Region(name string) (Region, bool) {
	for _, r := range c.Regions {
		if r.Name == name {
			return r, true
		}
	}
	return Region{}, false
}

// Default returns the embedded configuration.
func Default() (*Config, error) {
	return Parse(defaultYAML)
}

// Load reads the configuration file at path, or the embedded default when
// path is empty.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locations file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("locations file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a YAML configuration, filling defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode gazetteer: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Settings.MinQueryLength <= 0 {
		c.Settings.MinQueryLength = 2
	}
	if c.Settings.CacheTTL <= 0 {
		c.Settings.CacheTTL = time.Hour
	}
	for i := range c.Locations {
		if c.Locations[i].Type == "" {
			c.Locations[i].Type = "city"
		}
	}
	if c.Settings.DefaultRegion == "" && len(c.Regions) > 0 {
		c.Settings.DefaultRegion = c.Regions[0].Name
	}
}

func (c *Config) validate() error {
	var errs []error
	seen := make(map[string]bool)
	for i, l := range c.Locations {
		if strings.TrimSpace(l.Name) == "" {
			errs = append(errs, fmt.Errorf("location %d: name is required", i))
			continue
		}
		id := l.ID()
		if seen[id] {
			errs = append(errs, fmt.Errorf("location %q: duplicate id %s", l.Name, id))
		}
		seen[id] = true
	}
	for i, r := range c.Regions {
		if r.Name == "" {
			errs = append(errs, fmt.Errorf("region %d: name is required", i))
		}
	}
	if c.Settings.DefaultRegion != "" {
		if _, ok := c.Region(c.Settings.DefaultRegion); !ok {
			errs = append(errs, fmt.Errorf("default region %q is not defined", c.Settings.DefaultRegion))
		}
	}
	return errors.Join(errs...)
}
