package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// seedCategory is one row of the development category tree. Children are
// inserted after their parent so the parent id is known.
type seedCategory struct {
	name       string
	slug       string
	icon       string
	attributes string
	featured   bool
	children   []seedCategory
}

var seedCategories = []seedCategory{
	{
		name: "Electronics", slug: "electronics", icon: "cpu", featured: true,
		children: []seedCategory{{
			name: "Phones", slug: "phones", icon: "phone",
			children: []seedCategory{{
				name: "Smartphones", slug: "smartphones", icon: "smartphone",
				attributes: `{
					"brand": {"type": "select", "label": "Brand", "required": true, "options": ["Apple", "Samsung", "Google", "Xiaomi"]},
					"storage_gb": {"type": "number", "label": "Storage (GB)"},
					"seller_email": {"type": "email", "label": "Seller email"}
				}`,
				children: []seedCategory{{
					name: "Android Phones", slug: "android-phones",
					children: []seedCategory{{
						name: "Samsung Galaxy", slug: "samsung-galaxy",
					}},
				}},
			}},
		}},
	},
	{
		name: "Vehicles", slug: "vehicles", icon: "car", featured: true,
		children: []seedCategory{{
			name: "Cars", slug: "cars",
			attributes: `{
				"make": {"type": "text", "label": "Make", "required": true, "max": 50},
				"year": {"type": "number", "label": "Year", "required": true, "min": 4, "max": 4},
				"video_url": {"type": "url", "label": "Video link"}
			}`,
		}},
	},
	{name: "Real Estate", slug: "real-estate", icon: "home"},
}

type seedCity struct {
	name       string
	state      string
	lat, lng   *float64
	population int64
}

type seedCountry struct {
	name   string
	code   string
	cities []seedCity
}

func coord(v float64) *float64 { return &v }

var seedGeography = []seedCountry{
	{name: "Latvia", code: "LV", cities: []seedCity{
		{name: "Rīga", state: "Rīga", lat: coord(56.9496), lng: coord(24.1052), population: 605802},
		{name: "Daugavpils", state: "Latgale", lat: coord(55.8714), lng: coord(26.5161), population: 79120},
		{name: "Liepāja", state: "Kurzeme", lat: coord(56.5047), lng: coord(21.0108), population: 67964},
		{name: "Jūrmala", state: "Rīga", lat: coord(56.9680), lng: coord(23.7704), population: 49325},
		{name: "Ogre", state: "Vidzeme", population: 23000},
	}},
	{name: "Lithuania", code: "LT", cities: []seedCity{
		{name: "Vilnius", state: "Vilnius County", lat: coord(54.6872), lng: coord(25.2797), population: 588412},
		{name: "Kaunas", state: "Kaunas County", lat: coord(54.8985), lng: coord(23.9036), population: 289380},
	}},
	{name: "Estonia", code: "EE", cities: []seedCity{
		{name: "Tallinn", state: "Harju County", lat: coord(59.4370), lng: coord(24.7536), population: 454000},
		{name: "Tartu", state: "Tartu County", lat: coord(58.3776), lng: coord(26.7290), population: 91000},
	}},
	{name: "Germany", code: "DE", cities: []seedCity{
		{name: "Berlin", state: "Berlin", lat: coord(52.5200), lng: coord(13.4050), population: 3645000},
		{name: "Munich", state: "Bavaria", lat: coord(48.1351), lng: coord(11.5820), population: 1488000},
	}},
}

// Seed populates the database with development data: a category tree five
// levels deep with attribute schemas, and Baltic/German reference cities.
// Each group is skipped when its table already has rows.
func Seed(db *sql.DB) error {
	if err := seedCategoryTree(db); err != nil {
		return err
	}
	return seedCities(db)
}

func seedCategoryTree(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM categories").Scan(&count); err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}
	if count > 0 {
		slog.Info("categories already seeded, skipping")
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed begin tx: %w", err)
	}
	defer tx.Rollback()

	for i, c := range seedCategories {
		if err := insertSeedCategory(tx, c, nil, i); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit categories: %w", err)
	}

	slog.Info("database seeded with category tree", "roots", len(seedCategories))
	return nil
}

func insertSeedCategory(tx *sql.Tx, c seedCategory, parentID *uuid.UUID, order int) error {
	attrs := c.attributes
	if attrs == "" {
		attrs = "{}"
	}

	var id uuid.UUID
	err := tx.QueryRow(`
		INSERT INTO categories (name, slug, icon, parent_id, sort_order, is_featured, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
		RETURNING id
	`, c.name, c.slug, c.icon, parentID, order, c.featured, attrs).Scan(&id)
	if err != nil {
		return fmt.Errorf("seed insert category %s: %w", c.slug, err)
	}

	for i, child := range c.children {
		if err := insertSeedCategory(tx, child, &id, i); err != nil {
			return err
		}
	}
	return nil
}

func seedCities(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM countries").Scan(&count); err != nil {
		return fmt.Errorf("seed check countries: %w", err)
	}
	if count > 0 {
		slog.Info("geography already seeded, skipping")
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed begin tx: %w", err)
	}
	defer tx.Rollback()

	var cities int
	for _, country := range seedGeography {
		var countryID int64
		if err := tx.QueryRow(
			`INSERT INTO countries (name, code) VALUES ($1, $2) RETURNING id`,
			country.name, country.code,
		).Scan(&countryID); err != nil {
			return fmt.Errorf("seed insert country %s: %w", country.code, err)
		}

		states := make(map[string]int64)
		for _, city := range country.cities {
			stateID, ok := states[city.state]
			if !ok {
				if err := tx.QueryRow(
					`INSERT INTO states (country_id, name) VALUES ($1, $2) RETURNING id`,
					countryID, city.state,
				).Scan(&stateID); err != nil {
					return fmt.Errorf("seed insert state %s: %w", city.state, err)
				}
				states[city.state] = stateID
			}

			if _, err := tx.Exec(`
				INSERT INTO cities (name, state_id, country_id, latitude, longitude, population)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, city.name, stateID, countryID, city.lat, city.lng, city.population); err != nil {
				return fmt.Errorf("seed insert city %s: %w", city.name, err)
			}
			cities++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit geography: %w", err)
	}

	slog.Info("database seeded with reference cities", "cities", cities)
	return nil
}
