// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"marketplace/internal/models"
)

// CityStore reads the city reference tables used as the local location tier.
type CityStore struct {
	db *sql.DB
}

// NewCityStore returns a new CityStore.
func NewCityStore(db *sql.DB) *CityStore {
	return &CityStore{db: db}
}

const cityColumns = `c.id, c.name, c.state_id, c.country_id, c.latitude, c.longitude,
	c.population, c.is_active, COALESCE(s.name, ''), co.name`

const cityJoins = `FROM cities c
	LEFT JOIN states s ON s.id = c.state_id
	JOIN countries co ON co.id = c.country_id`

func scanCity(scanner interface{ Scan(...any) error }, extra ...any) (*models.City, error) {
	var c models.City
	dest := []any{
		&c.ID, &c.Name, &c.StateID, &c.CountryID, &c.Latitude, &c.Longitude,
		&c.Population, &c.IsActive, &c.StateName, &c.CountryName,
	}
	if err := scanner.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &c, nil
}

// likeEscaper escapes LIKE metacharacters so user input matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// SearchByName returns active cities whose name contains q, ignoring case,
// largest population first.
func (s *CityStore) SearchByName(ctx context.Context, q string, limit int) ([]models.City, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cityColumns+` `+cityJoins+`
		WHERE c.is_active = TRUE AND c.name ILIKE $1
		ORDER BY c.population DESC
		LIMIT $2
	`, containsPattern(q), limit)
	if err != nil {
		return nil, fmt.Errorf("search cities: %w", err)
	}
	defer rows.Close()

	var items []models.City
	for rows.Next() {
		c, err := scanCity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan city: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// FindWithCoordinates returns the most populous active city whose name
// contains q and that has both coordinates set. Returns nil if none match.
func (s *CityStore) FindWithCoordinates(ctx context.Context, q string) (*models.City, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+cityColumns+` `+cityJoins+`
		WHERE c.is_active = TRUE AND c.name ILIKE $1
		  AND c.latitude IS NOT NULL AND c.longitude IS NOT NULL
		ORDER BY c.population DESC
		LIMIT 1
	`, containsPattern(q))
	c, err := scanCity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find city with coordinates: %w", err)
	}
	return c, nil
}

// Popular returns active cities ranked by how many users live there, then by
// population.
func (s *CityStore) Popular(ctx context.Context, limit int) ([]models.City, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cityColumns+`, COUNT(u.id) AS user_count `+cityJoins+`
		LEFT JOIN users u ON u.city_id = c.id
		WHERE c.is_active = TRUE
		GROUP BY c.id, s.name, co.name
		ORDER BY user_count DESC, c.population DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("popular cities: %w", err)
	}
	defer rows.Close()

	var items []models.City
	for rows.Next() {
		var users int
		c, err := scanCity(rows, &users)
		if err != nil {
			return nil, fmt.Errorf("scan city: %w", err)
		}
		c.UserCount = users
		items = append(items, *c)
	}
	return items, rows.Err()
}

// FindByID returns a city joined with its state and country names.
// Returns nil if not found.
func (s *CityStore) FindByID(ctx context.Context, id int64) (*models.City, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cityColumns+` `+cityJoins+` WHERE c.id = $1`, id)
	c, err := scanCity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find city by id: %w", err)
	}
	return c, nil
}
