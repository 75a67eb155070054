package category

import (
	"fmt"

	"marketplace/internal/store"
)

// ErrDuplicateSlug is returned when a create or update would reuse a slug.
// Slugs are never suffixed automatically.
var ErrDuplicateSlug = store.ErrDuplicateSlug

// NotFoundError reports a referenced category (or parent) that does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// InvalidOperationError reports a change that would break the tree, such as
// a category becoming its own ancestor.
type InvalidOperationError struct {
	Reason string
}

func (e *InvalidOperationError) Error() string {
	return "invalid operation: " + e.Reason
}

// ConflictReason says why a delete was blocked.
type ConflictReason string

const (
	HasChildren ConflictReason = "has_children"
	HasListings ConflictReason = "has_listings"
)

// ConflictError reports a delete blocked by dependent rows.
type ConflictError struct {
	Reason ConflictReason
	Count  int
}

func (e *ConflictError) Error() string {
	switch e.Reason {
	case HasChildren:
		return fmt.Sprintf("cannot delete category with %d subcategories", e.Count)
	case HasListings:
		return fmt.Sprintf("cannot delete category with %d listings", e.Count)
	}
	return "cannot delete category"
}
