// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/models"
)

func TestCategoryStoreFindByID(t *testing.T) {
	db, mock := newMock(t)
	s := NewCategoryStore(db)

	id := uuid.New()
	parent := uuid.New()
	rows := categoryRow(sqlmock.NewRows(categoryMockColumns), id, "Smartphones", "smartphones", &parent,
		`{"brand": {"type": "SELECT", "required": true, "options": ["Apple", "Samsung"]}}`)
	mock.ExpectQuery(`SELECT .+ FROM categories WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(rows)

	c, err := s.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, id, c.ID)
	require.NotNil(t, c.ParentID)
	assert.Equal(t, parent, *c.ParentID)
	require.Contains(t, c.Attributes, "brand")
	assert.Equal(t, models.AttributeSelect, c.Attributes["brand"].Type)
	assert.True(t, c.Attributes["brand"].Required)
	assert.Nil(t, c.ValidationRules)
}

func TestCategoryStoreFindByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	s := NewCategoryStore(db)

	id := uuid.New()
	mock.ExpectQuery(`SELECT .+ FROM categories WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(categoryMockColumns))

	c, err := s.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestCategoryStoreListActiveOnly(t *testing.T) {
	db, mock := newMock(t)
	s := NewCategoryStore(db)

	rows := sqlmock.NewRows(append(categoryMockColumns, "listing_count"))
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows.AddRow(uuid.NewString(), "Electronics", "electronics", "", nil, "", "", 0,
		true, false, "", "", []byte(`{}`), nil, now, now, 0)
	rows.AddRow(uuid.NewString(), "Vehicles", "vehicles", "", nil, "", "", 1,
		true, false, "", "", []byte(`{}`), nil, now, now, 7)
	mock.ExpectQuery(`(?s)SELECT .+COUNT\(\*\) FROM listings l WHERE l.category_id = categories.id.+FROM categories WHERE is_active = TRUE ORDER BY sort_order, name`).
		WillReturnRows(rows)

	items, err := s.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "electronics", items[0].Slug)
	assert.Empty(t, items[0].Attributes)
	assert.Equal(t, 0, items[0].ListingCount)
	assert.Equal(t, 7, items[1].ListingCount)
}

func TestCategoryStoreChildren(t *testing.T) {
	db, mock := newMock(t)
	s := NewCategoryStore(db)

	parent := uuid.New()
	mock.ExpectQuery(`FROM categories WHERE parent_id = \$1 ORDER BY sort_order, name`).
		WithArgs(parent).
		WillReturnRows(categoryRow(sqlmock.NewRows(categoryMockColumns), uuid.New(), "Phones", "phones", &parent, `{}`))

	items, err := s.Children(context.Background(), parent)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, parent, *items[0].ParentID)
}

func TestCategoryStoreChildrenNoneIsEmptySlice(t *testing.T) {
	db, mock := newMock(t)
	s := NewCategoryStore(db)

	mock.ExpectQuery(`WHERE parent_id = \$1`).
		WillReturnRows(sqlmock.NewRows(categoryMockColumns))

	items, err := s.Children(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestCategoryStoreCreateDuplicateSlug(t *testing.T) {
	db, mock := newMock(t)
	s := NewCategoryStore(db)

	mock.ExpectQuery(`INSERT INTO categories`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "categories_slug_key"})

	c, err := s.Create(context.Background(), &models.Category{Name: "Phones", Slug: "phones"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateSlug), "want ErrDuplicateSlug, got %v", err)
	assert.Nil(t, c)
}

func TestCategoryStoreCreateEncodesAttributes(t *testing.T) {
	db, mock := newMock(t)
	s := NewCategoryStore(db)

	id := uuid.New()
	in := &models.Category{
		Name:     "Cars",
		Slug:     "cars",
		IsActive: true,
		Attributes: map[string]models.AttributeSchema{
			"make": {Type: models.AttributeText, Required: true},
		},
	}
	mock.ExpectQuery(`INSERT INTO categories`).
		WithArgs("Cars", "cars", "", nil, "", "", 0, true, false, "", "",
			`{"make":{"type":"text","label":"","required":true}}`, nil).
		WillReturnRows(categoryRow(sqlmock.NewRows(categoryMockColumns), id, "Cars", "cars", nil,
			`{"make":{"type":"text","label":"","required":true}}`))

	c, err := s.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, id, c.ID)
	assert.True(t, c.Attributes["make"].Required)
}

func TestCategoryStoreUpdateMissingRow(t *testing.T) {
	db, mock := newMock(t)
	s := NewCategoryStore(db)

	mock.ExpectExec(`UPDATE categories SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Update(context.Background(), &models.Category{ID: uuid.New(), Name: "Gone", Slug: "gone"})
	assert.True(t, errors.Is(err, ErrNotFound), "want ErrNotFound, got %v", err)
}

func TestCategoryStoreCounts(t *testing.T) {
	db, mock := newMock(t)
	s := NewCategoryStore(db)
	id := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM categories WHERE parent_id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM listings WHERE category_id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	children, err := s.CountChildren(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, children)

	listings, err := s.CountListings(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 0, listings)
}

func TestCategoryStoreReorderCommits(t *testing.T) {
	db, mock := newMock(t)
	s := NewCategoryStore(db)

	a, b := uuid.New(), uuid.New()
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`UPDATE categories SET sort_order`)
	prep.ExpectExec().WithArgs(1, sqlmock.AnyArg(), a).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(0, sqlmock.AnyArg(), b).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.Reorder(context.Background(), []ReorderItem{{ID: a, SortOrder: 1}, {ID: b, SortOrder: 0}})
	require.NoError(t, err)
}

func TestCategoryStoreReorderUnknownIDRollsBack(t *testing.T) {
	db, mock := newMock(t)
	s := NewCategoryStore(db)

	a, missing := uuid.New(), uuid.New()
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`UPDATE categories SET sort_order`)
	prep.ExpectExec().WithArgs(1, sqlmock.AnyArg(), a).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(2, sqlmock.AnyArg(), missing).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.Reorder(context.Background(), []ReorderItem{{ID: a, SortOrder: 1}, {ID: missing, SortOrder: 2}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound), "want ErrNotFound, got %v", err)
}

func TestCategoryStoreSetIcon(t *testing.T) {
	db, mock := newMock(t)
	s := NewCategoryStore(db)
	id := uuid.New()

	mock.ExpectExec(`UPDATE categories SET icon = \$1`).
		WithArgs("https://cdn.example.com/icons/phones.png", id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.SetIcon(context.Background(), id, "https://cdn.example.com/icons/phones.png"))
}

// TestCategoryStoreDuplicateSlugIntegration checks the real unique
// constraint: a second category with the same name and slug is rejected.
func TestCategoryStoreDuplicateSlugIntegration(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()
	t.Cleanup(func() { cleanCategories(t, db, "test-dup-slug") })

	_, err := s.Create(ctx, &models.Category{Name: "Test Dup Slug", Slug: "test-dup-slug", IsActive: true})
	require.NoError(t, err)

	_, err = s.Create(ctx, &models.Category{Name: "Test Dup Slug", Slug: "test-dup-slug", IsActive: true})
	assert.True(t, errors.Is(err, ErrDuplicateSlug), "want ErrDuplicateSlug, got %v", err)
}

func TestCategoryStoreReorderIntegration(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()
	t.Cleanup(func() { cleanCategories(t, db, "test-reorder-a", "test-reorder-b") })

	a, err := s.Create(ctx, &models.Category{Name: "A", Slug: "test-reorder-a", SortOrder: 0, IsActive: true})
	require.NoError(t, err)
	b, err := s.Create(ctx, &models.Category{Name: "B", Slug: "test-reorder-b", SortOrder: 1, IsActive: true})
	require.NoError(t, err)

	// The unknown id must roll back the update to a.
	err = s.Reorder(ctx, []ReorderItem{{ID: a.ID, SortOrder: 9}, {ID: uuid.New(), SortOrder: 1}})
	require.ErrorIs(t, err, ErrNotFound)

	got, err := s.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.SortOrder)

	require.NoError(t, s.Reorder(ctx, []ReorderItem{{ID: a.ID, SortOrder: 5}, {ID: b.ID, SortOrder: 4}}))
	got, err = s.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.SortOrder)
}
