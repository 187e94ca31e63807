package models

import (
	"strings"
	"time"

	"github.com/catalog-approvals/backend/internal/apperr"
)

const CollectionCategories = "categories"

// Categories form a tree of at most three levels. Products reference them
// by name in the matching level_N_category column.
const (
	MinCategoryLevel = 1
	MaxCategoryLevel = 3
)

type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	ParentID    *int64    `json:"parent_id,omitempty"`
	Level       int       `json:"level"`
	Description *string   `json:"description,omitempty"`
	SortOrder   int       `json:"sort_order"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Values snapshots the category for ledger prior/new values.
func (c *Category) Values() map[string]any {
	var parent any
	if c.ParentID != nil {
		parent = *c.ParentID
	}
	return map[string]any{
		"id":          c.ID,
		"name":        c.Name,
		"parent_id":   parent,
		"level":       c.Level,
		"description": derefString(c.Description),
		"sort_order":  c.SortOrder,
		"is_active":   c.IsActive,
	}
}

// CategoryInput is the writable part of a category.
type CategoryInput struct {
	Name        string  `json:"name"`
	ParentID    *int64  `json:"parent_id,omitempty"`
	Level       int     `json:"level"`
	Description *string `json:"description,omitempty"`
	SortOrder   int     `json:"sort_order"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// Normalize trims text fields and checks the shape of the input on its own.
// Whether the parent exists and sits one level up is checked against the
// store.
func (in CategoryInput) Normalize() (CategoryInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, apperr.Validation("name", "cannot be empty")
	}
	if in.Level < MinCategoryLevel || in.Level > MaxCategoryLevel {
		return in, apperr.Validation("level", "must be between %d and %d", MinCategoryLevel, MaxCategoryLevel)
	}
	if in.Level == MinCategoryLevel && in.ParentID != nil {
		return in, apperr.Validation("parent_id", "top-level categories have no parent")
	}
	if in.Level > MinCategoryLevel && in.ParentID == nil {
		return in, apperr.Validation("parent_id", "level %d categories need a parent", in.Level)
	}
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		if d == "" {
			in.Description = nil
		} else {
			in.Description = &d
		}
	}
	return in, nil
}

// ProductColumnForLevel names the product column holding categories of the
// given level.
func ProductColumnForLevel(level int) string {
	switch level {
	case 1:
		return FieldLevel1Category
	case 2:
		return FieldLevel2Category
	case 3:
		return FieldLevel3Category
	}
	return ""
}
