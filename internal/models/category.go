// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category represents a node in the listing category hierarchy.
// Listings are attached to exactly one category.
type Category struct {
	ID              uuid.UUID                  `json:"id"`
	Name            string                     `json:"name"`
	Slug            string                     `json:"slug"`
	Description     string                     `json:"description"`
	ParentID        *uuid.UUID                 `json:"parent_id"`
	Icon            string                     `json:"icon"`
	Color           string                     `json:"color"`
	SortOrder       int                        `json:"sort_order"`
	IsActive        bool                       `json:"is_active"`
	IsFeatured      bool                       `json:"is_featured"`
	MetaTitle       string                     `json:"meta_title"`
	MetaDescription string                     `json:"meta_description"`
	Attributes      map[string]AttributeSchema `json:"attributes"`
	ValidationRules json.RawMessage            `json:"validation_rules,omitempty"`
	CreatedAt       time.Time                  `json:"created_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`

	// Virtual fields populated by the store and the category engine.
	Parent       *Category  `json:"parent,omitempty"`
	Children     []Category `json:"children,omitempty"`
	Depth        int        `json:"depth"`
	ListingCount int        `json:"listing_count"`
}

// AttributeType is the variant tag of a dynamic listing attribute.
type AttributeType string

const (
	AttributeText   AttributeType = "text"
	AttributeNumber AttributeType = "number"
	AttributeSelect AttributeType = "select"
	AttributeEmail  AttributeType = "email"
	AttributeURL    AttributeType = "url"
)

// UnmarshalJSON normalises the type tag. Tags this service does not know
// (textarea, checkbox, date...) are treated as free text.
func (t *AttributeType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch v := AttributeType(strings.ToLower(strings.TrimSpace(s))); v {
	case AttributeNumber, AttributeSelect, AttributeEmail, AttributeURL:
		*t = v
	default:
		*t = AttributeText
	}
	return nil
}

// AttributeSchema describes one category-specific listing attribute.
// Min and Max bound the length of the submitted value.
type AttributeSchema struct {
	Type     AttributeType `json:"type"`
	Label    string        `json:"label"`
	Required bool          `json:"required"`
	Options  []string      `json:"options,omitempty"`
	Min      *int          `json:"min,omitempty"`
	Max      *int          `json:"max,omitempty"`
}

// DisplayLabel returns the label used in validation messages, falling back
// to the attribute key.
func (a AttributeSchema) DisplayLabel(key string) string {
	if a.Label != "" {
		return a.Label
	}
	return strings.ReplaceAll(key, "_", " ")
}
