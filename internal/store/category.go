// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/models"
)

// CategoryStore manages categories in the database.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `id, name, slug, description, parent_id, icon, color, sort_order,
	is_active, is_featured, meta_title, meta_description, attributes, validation_rules,
	created_at, updated_at`

// scanCategory scans a row into a Category struct, decoding the JSONB
// attribute schema.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var (
		c     models.Category
		attrs []byte
		rules []byte
	)
	err := scanner.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description, &c.ParentID, &c.Icon, &c.Color,
		&c.SortOrder, &c.IsActive, &c.IsFeatured, &c.MetaTitle, &c.MetaDescription,
		&attrs, &rules, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &c.Attributes); err != nil {
			return nil, fmt.Errorf("decode attributes of %s: %w", c.ID, err)
		}
	}
	if len(rules) > 0 {
		c.ValidationRules = json.RawMessage(rules)
	}
	return &c, nil
}

// encodeJSON prepares the JSONB columns for writing. A nil attribute map is
// stored as an empty object and empty validation rules as NULL.
func encodeJSON(c *models.Category) (attrs string, rules any, err error) {
	attrs = "{}"
	if len(c.Attributes) > 0 {
		b, err := json.Marshal(c.Attributes)
		if err != nil {
			return "", nil, fmt.Errorf("encode attributes: %w", err)
		}
		attrs = string(b)
	}
	if len(c.ValidationRules) > 0 {
		rules = string(c.ValidationRules)
	}
	return attrs, rules, nil
}

// List returns all categories ordered by sort_order then name. When
// activeOnly is set, inactive rows are left out.
func (s *CategoryStore) List(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	query := `SELECT ` + categoryColumns + `,
		(SELECT COUNT(*) FROM listings l WHERE l.category_id = categories.id) AS listing_count
		FROM categories`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY sort_order, name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		var listings int
		c, err := scanCategory(countScanner{rows, &listings})
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.ListingCount = listings
		items = append(items, *c)
	}
	return items, rows.Err()
}

// countScanner appends a trailing listing_count column to a category scan.
type countScanner struct {
	rows interface{ Scan(...any) error }
	n    *int
}

func (s countScanner) Scan(dest ...any) error {
	return s.rows.Scan(append(dest, s.n)...)
}

// Children returns the direct children of a category in display order.
func (s *CategoryStore) Children(ctx context.Context, parentID uuid.UUID) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE parent_id = $1 ORDER BY sort_order, name`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list category children: %w", err)
	}
	defer rows.Close()

	items := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// Create inserts a new category and returns it. A slug that is already
// taken yields ErrDuplicateSlug.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	attrs, rules, err := encodeJSON(c)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, slug, description, parent_id, icon, color, sort_order,
			is_active, is_featured, meta_title, meta_description, attributes, validation_rules)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+categoryColumns,
		c.Name, c.Slug, c.Description, c.ParentID, c.Icon, c.Color, c.SortOrder,
		c.IsActive, c.IsFeatured, c.MetaTitle, c.MetaDescription, attrs, rules,
	)
	result, err := scanCategory(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create category %q: %w", c.Slug, ErrDuplicateSlug)
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return result, nil
}

// Update writes every mutable column of an existing category.
func (s *CategoryStore) Update(ctx context.Context, c *models.Category) error {
	attrs, rules, err := encodeJSON(c)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE categories SET
			name = $1, slug = $2, description = $3, parent_id = $4, icon = $5, color = $6,
			sort_order = $7, is_active = $8, is_featured = $9, meta_title = $10,
			meta_description = $11, attributes = $12, validation_rules = $13, updated_at = NOW()
		WHERE id = $14
	`, c.Name, c.Slug, c.Description, c.ParentID, c.Icon, c.Color, c.SortOrder,
		c.IsActive, c.IsFeatured, c.MetaTitle, c.MetaDescription, attrs, rules, c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update category %q: %w", c.Slug, ErrDuplicateSlug)
		}
		return fmt.Errorf("update category: %w", err)
	}
	return expectAffected(res, "update category", c.ID)
}

// Delete removes a category by ID.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return expectAffected(res, "delete category", id)
}

// CountChildren returns the number of direct children of a category.
func (s *CategoryStore) CountChildren(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE parent_id = $1`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count category children: %w", err)
	}
	return n, nil
}

// CountListings returns the number of listings attached to a category.
func (s *CategoryStore) CountListings(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings WHERE category_id = $1`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count category listings: %w", err)
	}
	return n, nil
}

// ReorderItem represents a single item in a reorder request.
type ReorderItem struct {
	ID        uuid.UUID `json:"id" validate:"required"`
	SortOrder int       `json:"sort_order" validate:"gte=0"`
}

// Reorder updates sort_order for multiple categories in a transaction.
// Either every row is updated or none is; an unknown id rolls the whole
// batch back with ErrNotFound.
func (s *CategoryStore) Reorder(ctx context.Context, items []ReorderItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE categories SET sort_order = $1, updated_at = $2
		WHERE id = $3`)
	if err != nil {
		return fmt.Errorf("prepare reorder: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, item := range items {
		res, err := stmt.ExecContext(ctx, item.SortOrder, now, item.ID)
		if err != nil {
			return fmt.Errorf("reorder category %s: %w", item.ID, err)
		}
		if err := expectAffected(res, "reorder category", item.ID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SetIcon replaces the icon reference of a category.
func (s *CategoryStore) SetIcon(ctx context.Context, id uuid.UUID, icon string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET icon = $1, updated_at = NOW() WHERE id = $2`, icon, id)
	if err != nil {
		return fmt.Errorf("set category icon: %w", err)
	}
	return expectAffected(res, "set category icon", id)
}

// expectAffected turns a zero-row write into ErrNotFound.
func expectAffected(res sql.Result, op string, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	return nil
}
