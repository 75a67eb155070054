// store_test.go provides the shared helpers for store tests: a sqlmock-backed
// *sql.DB for query-level tests and a real database for integration tests,
// which are skipped if PostgreSQL is not available.
package store

import (
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"

	"marketplace/internal/database"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "marketplace")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "marketplace")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// cleanCategories removes test categories by slug, children first.
func cleanCategories(t *testing.T, db *sql.DB, slugs ...string) {
	t.Helper()
	for i := len(slugs) - 1; i >= 0; i-- {
		db.Exec("DELETE FROM categories WHERE slug = $1", slugs[i])
	}
}

// newMock returns a sqlmock database whose expectations are checked when
// the test ends.
func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err, "failed to create sqlmock")
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet(), "sqlmock expectations were not met")
		db.Close()
	})
	return db, mock
}

var categoryMockColumns = []string{
	"id", "name", "slug", "description", "parent_id", "icon", "color", "sort_order",
	"is_active", "is_featured", "meta_title", "meta_description", "attributes",
	"validation_rules", "created_at", "updated_at",
}

// categoryRow builds one mock categories row. parent may be nil.
func categoryRow(rows *sqlmock.Rows, id uuid.UUID, name, slug string, parent *uuid.UUID, attrs string) *sqlmock.Rows {
	var parentVal any
	if parent != nil {
		parentVal = parent.String()
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return rows.AddRow(
		id.String(), name, slug, "", parentVal, "", "", 0,
		true, false, "", "", []byte(attrs), nil, now, now,
	)
}
