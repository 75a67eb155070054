// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// location_cache.go persists resolved location lookups. Rows expire lazily:
// reads ignore them once expires_at has passed and the next write for the
// same key overwrites them. Nothing purges them in the background.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/models"
)

// LocationCacheStore handles location_cache reads and upserts.
type LocationCacheStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewLocationCacheStore creates a new LocationCacheStore.
func NewLocationCacheStore(db *sql.DB) *LocationCacheStore {
	return &LocationCacheStore{db: db, now: time.Now}
}

// Get returns the cached row for key, or nil when there is none or it has
// expired.
func (s *LocationCacheStore) Get(ctx context.Context, key string) (*models.LocationCache, error) {
	var (
		c    models.LocationCache
		data []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, cache_key, query, type, data, source, expires_at, created_at, updated_at
		FROM location_cache
		WHERE cache_key = $1 AND expires_at > $2
	`, key, s.now()).Scan(
		&c.ID, &c.CacheKey, &c.Query, &c.Type, &data, &c.Source,
		&c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get location cache: %w", err)
	}
	c.Data = data
	return &c, nil
}

// Put inserts the row or overwrites the existing row with the same key.
func (s *LocationCacheStore) Put(ctx context.Context, c *models.LocationCache) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO location_cache (cache_key, query, type, data, source, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cache_key) DO UPDATE SET
			query = EXCLUDED.query,
			type = EXCLUDED.type,
			data = EXCLUDED.data,
			source = EXCLUDED.source,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
	`, c.CacheKey, c.Query, string(c.Type), string(c.Data), c.Source, c.ExpiresAt)
	if err != nil {
		return fmt.Errorf("put location cache %s: %w", c.CacheKey, err)
	}
	return nil
}
