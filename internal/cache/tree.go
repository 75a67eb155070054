// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// tree.go provides a Valkey-backed cache of the assembled category tree.
// The tree is rebuilt from the database on a miss and dropped (not
// refreshed) whenever a category is created, updated, deleted or reordered.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"marketplace/internal/models"
)

const (
	// treeKeyPrefix is the Valkey key prefix for cached category trees.
	treeKeyPrefix = "categories:tree:"

	// DefaultTreeTTL is how long an assembled tree stays cached.
	DefaultTreeTTL = time.Hour
)

// CategoryTreeCache stores assembled category trees in Valkey.
type CategoryTreeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCategoryTreeCache creates a tree cache backed by the given Valkey client.
func NewCategoryTreeCache(client *redis.Client, ttl time.Duration) *CategoryTreeCache {
	if ttl == 0 {
		ttl = DefaultTreeTTL
	}
	return &CategoryTreeCache{client: client, ttl: ttl}
}

// TreeKey returns the cache key for the full or the active-only tree.
func TreeKey(activeOnly bool) string {
	if activeOnly {
		return treeKeyPrefix + "active"
	}
	return treeKeyPrefix + "all"
}

// Get returns the cached tree. A miss, a Valkey error or an undecodable
// payload all report false.
func (tc *CategoryTreeCache) Get(ctx context.Context, activeOnly bool) ([]models.Category, bool) {
	key := TreeKey(activeOnly)
	val, err := tc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("category tree cache get error", "key", key, "error", err)
		return nil, false
	}

	var tree []models.Category
	if err := json.Unmarshal(val, &tree); err != nil {
		slog.Warn("category tree cache decode error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("category tree cache hit", "key", key)
	return tree, true
}

// Set stores an assembled tree with the configured TTL.
func (tc *CategoryTreeCache) Set(ctx context.Context, activeOnly bool, tree []models.Category) {
	key := TreeKey(activeOnly)
	val, err := json.Marshal(tree)
	if err != nil {
		slog.Warn("category tree cache encode error", "key", key, "error", err)
		return
	}
	if err := tc.client.Set(ctx, key, val, tc.ttl).Err(); err != nil {
		slog.Warn("category tree cache set error", "key", key, "error", err)
	}
}

// InvalidateAll removes every cached tree variant by scanning for the prefix.
func (tc *CategoryTreeCache) InvalidateAll(ctx context.Context) {
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := tc.client.Scan(ctx, cursor, treeKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("category tree cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := tc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("category tree cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	slog.Debug("category tree cache cleared", "deleted", deleted)
}
