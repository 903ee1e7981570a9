// Package domain provides shared business-logic types: list filtering,
// pagination and lifecycle hooks.
package domain

import (
	"context"

	"shoplist/internal/core/id"
)

// --- Filter & Pagination ---

// ListFilter contains common filtering options for list operations.
//
// Trashed selects which half of the active/trash partition a query returns.
// Every non-purged record is in exactly one of the two sets.
type ListFilter struct {
	// Trashed selects trash-only (true) or active-only (false) records
	Trashed bool

	// OwnerID scopes results to a single owner; nil means all owners
	// (admin trash views)
	OwnerID *id.ID

	// ListID scopes item queries to a parent list
	ListID *id.ID

	// Search performs substring search on the entity's name field
	Search string

	// OrderBy specifies sorting (e.g., "created_at", "-deleted_at")
	OrderBy string

	// Pagination
	Limit  int
	Offset int
}

// DefaultListFilter returns sensible defaults.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit: 50,
	}
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// --- Hooks ---

// HookEvent represents lifecycle event type.
type HookEvent string

const (
	BeforeCreate HookEvent = "before_create"
	AfterCreate  HookEvent = "after_create"
	BeforeUpdate HookEvent = "before_update"
	AfterUpdate  HookEvent = "after_update"
	BeforeTrash  HookEvent = "before_trash"
	AfterTrash   HookEvent = "after_trash"
	AfterRestore HookEvent = "after_restore"
	AfterPurge   HookEvent = "after_purge"
)

// Hook is a function that runs at specific lifecycle points.
type Hook[T any] func(ctx context.Context, entity T) error

// HookRegistry stores lifecycle hooks for an entity type.
type HookRegistry[T any] struct {
	hooks map[HookEvent][]Hook[T]
}

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry[T any]() *HookRegistry[T] {
	return &HookRegistry[T]{
		hooks: make(map[HookEvent][]Hook[T]),
	}
}

// On registers a hook for the specified event.
func (r *HookRegistry[T]) On(event HookEvent, hook Hook[T]) {
	r.hooks[event] = append(r.hooks[event], hook)
}

// Run executes all hooks for the specified event.
func (r *HookRegistry[T]) Run(ctx context.Context, event HookEvent, entity T) error {
	for _, hook := range r.hooks[event] {
		if err := hook(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}
