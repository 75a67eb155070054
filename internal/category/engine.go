// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package category maintains the listing category hierarchy: tree assembly,
// parent changes without cycles, guarded deletes, breadcrumbs and the
// per-category attribute schemas that listings are validated against.
package category

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"marketplace/internal/metrics"
	"marketplace/internal/models"
	"marketplace/internal/slug"
	"marketplace/internal/store"
)

// MaxDepth bounds every ancestor walk. A chain longer than this is treated
// as corrupt rather than followed forever.
const MaxDepth = 1000

// Store is the persistence the engine needs. *store.CategoryStore
// implements it.
type Store interface {
	List(ctx context.Context, activeOnly bool) ([]models.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	Children(ctx context.Context, parentID uuid.UUID) ([]models.Category, error)
	Create(ctx context.Context, c *models.Category) (*models.Category, error)
	Update(ctx context.Context, c *models.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountChildren(ctx context.Context, id uuid.UUID) (int, error)
	CountListings(ctx context.Context, id uuid.UUID) (int, error)
	Reorder(ctx context.Context, items []store.ReorderItem) error
	SetIcon(ctx context.Context, id uuid.UUID, icon string) error
}

// TreeCache caches assembled trees. *cache.CategoryTreeCache implements it.
type TreeCache interface {
	Get(ctx context.Context, activeOnly bool) ([]models.Category, bool)
	Set(ctx context.Context, activeOnly bool, tree []models.Category)
	InvalidateAll(ctx context.Context)
}

// Engine implements the category operations.
type Engine struct {
	store   Store
	cache   TreeCache
	metrics *metrics.Collector
}

// NewEngine creates a category engine. cache and m may be nil.
func NewEngine(s Store, cache TreeCache, m *metrics.Collector) *Engine {
	return &Engine{store: s, cache: cache, metrics: m}
}

// CreateInput is the data accepted by Create.
type CreateInput struct {
	Name            string                            `json:"name" validate:"required,max=255"`
	Slug            string                            `json:"slug" validate:"omitempty,max=255"`
	Description     string                            `json:"description"`
	ParentID        *uuid.UUID                        `json:"parent_id"`
	Icon            string                            `json:"icon" validate:"max=500"`
	Color           string                            `json:"color" validate:"max=32"`
	SortOrder       int                               `json:"sort_order" validate:"gte=0"`
	IsActive        *bool                             `json:"is_active"`
	IsFeatured      bool                              `json:"is_featured"`
	MetaTitle       string                            `json:"meta_title" validate:"max=255"`
	MetaDescription string                            `json:"meta_description" validate:"max=500"`
	Attributes      map[string]models.AttributeSchema `json:"attributes"`
	ValidationRules json.RawMessage                   `json:"validation_rules"`
}

// UpdateInput is the data accepted by Update. Nil fields are left unchanged.
// A nil ParentID keeps the current parent; DetachParent moves the category
// to the root level.
type UpdateInput struct {
	Name            *string                            `json:"name" validate:"omitempty,min=1,max=255"`
	Slug            *string                            `json:"slug" validate:"omitempty,min=1,max=255"`
	Description     *string                            `json:"description"`
	ParentID        *uuid.UUID                         `json:"parent_id"`
	DetachParent    bool                               `json:"detach_parent"`
	Icon            *string                            `json:"icon" validate:"omitempty,max=500"`
	Color           *string                            `json:"color" validate:"omitempty,max=32"`
	SortOrder       *int                               `json:"sort_order" validate:"omitempty,gte=0"`
	IsActive        *bool                              `json:"is_active"`
	IsFeatured      *bool                              `json:"is_featured"`
	MetaTitle       *string                            `json:"meta_title" validate:"omitempty,max=255"`
	MetaDescription *string                            `json:"meta_description" validate:"omitempty,max=500"`
	Attributes      *map[string]models.AttributeSchema `json:"attributes"`
	ValidationRules json.RawMessage                    `json:"validation_rules"`
}

// Tree returns the root categories with their descendants attached, each
// level ordered by sort order then name. With activeOnly, inactive
// categories and everything below them are left out.
func (e *Engine) Tree(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	if e.cache != nil {
		if tree, ok := e.cache.Get(ctx, activeOnly); ok {
			e.metrics.ObserveTreeCache(true)
			return tree, nil
		}
		e.metrics.ObserveTreeCache(false)
	}

	flat, err := e.store.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	tree := buildTree(flat)

	if e.cache != nil {
		e.cache.Set(ctx, activeOnly, tree)
	}
	return tree, nil
}

// buildTree nests a flat, already ordered list under its parents. Rows whose
// parent is absent from the list (filtered out as inactive) are dropped
// together with their subtrees.
func buildTree(flat []models.Category) []models.Category {
	byParent := make(map[uuid.UUID][]models.Category)
	var roots []models.Category
	for _, c := range flat {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		byParent[*c.ParentID] = append(byParent[*c.ParentID], c)
	}

	var attach func(nodes []models.Category, depth int) []models.Category
	attach = func(nodes []models.Category, depth int) []models.Category {
		if depth > MaxDepth {
			return nil
		}
		out := make([]models.Category, 0, len(nodes))
		for _, c := range nodes {
			c.Depth = depth
			c.Children = attach(byParent[c.ID], depth+1)
			out = append(out, c)
		}
		return out
	}

	tree := attach(roots, 0)
	if tree == nil {
		tree = []models.Category{}
	}
	return tree
}

// Create validates the parent, derives the slug when none is given and
// stores the category.
func (e *Engine) Create(ctx context.Context, in CreateInput) (*models.Category, error) {
	var parent *models.Category
	if in.ParentID != nil {
		p, err := e.store.FindByID(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, &NotFoundError{Entity: "parent category", ID: in.ParentID.String()}
		}
		parent = p
	}

	s := in.Slug
	if s == "" {
		s = slug.Generate(in.Name)
		if s == "" {
			return nil, &InvalidOperationError{Reason: fmt.Sprintf("cannot derive a slug from name %q", in.Name)}
		}
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	created, err := e.store.Create(ctx, &models.Category{
		Name:            in.Name,
		Slug:            s,
		Description:     in.Description,
		ParentID:        in.ParentID,
		Icon:            in.Icon,
		Color:           in.Color,
		SortOrder:       in.SortOrder,
		IsActive:        active,
		IsFeatured:      in.IsFeatured,
		MetaTitle:       in.MetaTitle,
		MetaDescription: in.MetaDescription,
		Attributes:      in.Attributes,
		ValidationRules: in.ValidationRules,
	})
	if err != nil {
		return nil, err
	}
	e.invalidate(ctx, "create", created.ID)

	if parent != nil {
		depth, err := e.depth(ctx, parent)
		if err != nil {
			return nil, err
		}
		created.Parent = parent
		created.Depth = depth + 1
	}
	created.Children = []models.Category{}

	slog.Info("category created", "id", created.ID, "slug", created.Slug)
	return created, nil
}

// Update applies the non-nil fields of in. Changing the parent is rejected
// when it would make the category its own ancestor.
func (e *Engine) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*models.Category, error) {
	c, err := e.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &NotFoundError{Entity: "category", ID: id.String()}
	}

	if in.DetachParent && in.ParentID != nil {
		return nil, &InvalidOperationError{Reason: "detach_parent and parent_id cannot be combined"}
	}

	switch {
	case in.DetachParent:
		c.ParentID = nil
	case in.ParentID != nil && !sameParent(c.ParentID, in.ParentID):
		if err := e.checkParent(ctx, id, *in.ParentID); err != nil {
			return nil, err
		}
		newParent := *in.ParentID
		c.ParentID = &newParent
	}

	// Slugs are permanent: a rename only derives one when none is stored.
	if in.Name != nil && *in.Name != c.Name {
		c.Name = *in.Name
		if c.Slug == "" {
			c.Slug = slug.Generate(c.Name)
		}
	}
	if in.Slug != nil {
		c.Slug = *in.Slug
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Icon != nil {
		c.Icon = *in.Icon
	}
	if in.Color != nil {
		c.Color = *in.Color
	}
	if in.SortOrder != nil {
		c.SortOrder = *in.SortOrder
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if in.IsFeatured != nil {
		c.IsFeatured = *in.IsFeatured
	}
	if in.MetaTitle != nil {
		c.MetaTitle = *in.MetaTitle
	}
	if in.MetaDescription != nil {
		c.MetaDescription = *in.MetaDescription
	}
	if in.Attributes != nil {
		c.Attributes = *in.Attributes
	}
	if in.ValidationRules != nil {
		c.ValidationRules = in.ValidationRules
	}

	if err := e.store.Update(ctx, c); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &NotFoundError{Entity: "category", ID: id.String()}
		}
		return nil, err
	}
	e.invalidate(ctx, "update", id)

	return e.hydrate(ctx, id)
}

// checkParent rejects parentID when it is the category itself, does not
// exist, or has the category among its ancestors.
func (e *Engine) checkParent(ctx context.Context, id, parentID uuid.UUID) error {
	if parentID == id {
		return &InvalidOperationError{Reason: "a category cannot be its own parent"}
	}

	cur, err := e.store.FindByID(ctx, parentID)
	if err != nil {
		return err
	}
	if cur == nil {
		return &NotFoundError{Entity: "parent category", ID: parentID.String()}
	}

	for hops := 0; ; hops++ {
		if hops >= MaxDepth {
			return &InvalidOperationError{Reason: fmt.Sprintf("ancestor chain of %s exceeds %d levels", parentID, MaxDepth)}
		}
		if cur.ID == id {
			return &InvalidOperationError{Reason: "moving the category under its own descendant would create a cycle"}
		}
		if cur.ParentID == nil {
			return nil
		}
		next, err := e.store.FindByID(ctx, *cur.ParentID)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		cur = next
	}
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Delete removes a leaf category that has no listings.
func (e *Engine) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := e.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return &NotFoundError{Entity: "category", ID: id.String()}
	}

	children, err := e.store.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return &ConflictError{Reason: HasChildren, Count: children}
	}

	listings, err := e.store.CountListings(ctx, id)
	if err != nil {
		return err
	}
	if listings > 0 {
		return &ConflictError{Reason: HasListings, Count: listings}
	}

	if err := e.store.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &NotFoundError{Entity: "category", ID: id.String()}
		}
		return err
	}
	e.invalidate(ctx, "delete", id)

	slog.Info("category deleted", "id", id, "slug", c.Slug)
	return nil
}

// Reorder applies every sort order change atomically.
func (e *Engine) Reorder(ctx context.Context, items []store.ReorderItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := e.store.Reorder(ctx, items); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &NotFoundError{Entity: "category"}
		}
		return err
	}
	e.invalidate(ctx, "reorder", uuid.Nil)
	return nil
}

// Path returns the breadcrumb from the root down to the category itself.
func (e *Engine) Path(ctx context.Context, id uuid.UUID) ([]models.Category, error) {
	c, err := e.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &NotFoundError{Entity: "category", ID: id.String()}
	}

	ancestors, err := e.ancestors(ctx, c)
	if err != nil {
		return nil, err
	}

	path := make([]models.Category, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		path = append(path, ancestors[i])
	}
	path = append(path, *c)
	for i := range path {
		path[i].Depth = i
	}
	return path, nil
}

// ancestors walks the parent chain of c, nearest parent first.
func (e *Engine) ancestors(ctx context.Context, c *models.Category) ([]models.Category, error) {
	var chain []models.Category
	cur := c
	for cur.ParentID != nil {
		if len(chain) >= MaxDepth {
			return nil, &InvalidOperationError{Reason: fmt.Sprintf("ancestor chain of %s exceeds %d levels", c.ID, MaxDepth)}
		}
		p, err := e.store.FindByID(ctx, *cur.ParentID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			break
		}
		chain = append(chain, *p)
		cur = p
	}
	return chain, nil
}

func (e *Engine) depth(ctx context.Context, c *models.Category) (int, error) {
	chain, err := e.ancestors(ctx, c)
	if err != nil {
		return 0, err
	}
	return len(chain), nil
}

// ValidateAttributes checks submitted listing data against the category's
// attribute schema. The returned map is empty when the data is valid.
func (e *Engine) ValidateAttributes(ctx context.Context, id uuid.UUID, data map[string]any) (map[string]string, error) {
	c, err := e.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &NotFoundError{Entity: "category", ID: id.String()}
	}
	return ValidateAll(c.Attributes, data), nil
}

// SetIcon stores a new icon reference for the category and returns the
// updated category along with the icon it replaced.
func (e *Engine) SetIcon(ctx context.Context, id uuid.UUID, icon string) (*models.Category, string, error) {
	current, err := e.store.FindByID(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("set icon: %w", err)
	}
	if current == nil {
		return nil, "", &NotFoundError{Entity: "category", ID: id.String()}
	}

	if err := e.store.SetIcon(ctx, id, icon); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", &NotFoundError{Entity: "category", ID: id.String()}
		}
		return nil, "", err
	}
	e.invalidate(ctx, "set_icon", id)
	c, err := e.hydrate(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return c, current.Icon, nil
}

// hydrate loads a category with its parent, children, depth and listing
// count.
func (e *Engine) hydrate(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := e.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &NotFoundError{Entity: "category", ID: id.String()}
	}

	ancestors, err := e.ancestors(ctx, c)
	if err != nil {
		return nil, err
	}
	if len(ancestors) > 0 {
		parent := ancestors[0]
		c.Parent = &parent
	}
	c.Depth = len(ancestors)

	children, err := e.store.Children(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Children = children

	listings, err := e.store.CountListings(ctx, id)
	if err != nil {
		return nil, err
	}
	c.ListingCount = listings
	return c, nil
}

// invalidate drops the cached trees. Failures are logged by the cache and
// never fail the write that triggered them.
func (e *Engine) invalidate(ctx context.Context, action string, id uuid.UUID) {
	if e.cache == nil {
		return
	}
	e.cache.InvalidateAll(ctx)
	slog.Debug("category tree invalidated", "action", action, "id", id)
}
