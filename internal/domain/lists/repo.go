package lists

import (
	"context"
	"time"

	"shoplist/internal/core/id"
	"shoplist/internal/domain"
)

// Repository defines persistence operations for lists.
type Repository interface {
	// Create inserts a new list
	Create(ctx context.Context, list *List) error

	// GetByID retrieves a list in any lifecycle state
	GetByID(ctx context.Context, listID id.ID) (*List, error)

	// GetForUpdate retrieves a list with a row lock for read-modify-write
	GetForUpdate(ctx context.Context, listID id.ID) (*List, error)

	// GetByShareToken retrieves an active, shared list by its share token
	GetByShareToken(ctx context.Context, token string) (*List, error)

	// Update persists content changes with a conditional write gated on the
	// list's current version. The stored version advances by exactly 1; a
	// lost race surfaces as a conflict error carrying the fresh version.
	Update(ctx context.Context, list *List) error

	// Trash soft-deletes the list. Conditional on the list being active;
	// an already-trashed list reports not-found.
	Trash(ctx context.Context, listID id.ID, at time.Time) error

	// Restore returns a trashed list to the active state. Conditional on
	// the list being trashed; an active list reports not-found.
	Restore(ctx context.Context, listID id.ID) error

	// Purge removes a trashed list permanently.
	Purge(ctx context.Context, listID id.ID) error

	// List retrieves lists for one half of the active/trash partition.
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*List], error)
}

// ItemCascader propagates list lifecycle transitions to the list's items.
// Implemented by the item repository; every call runs in the same unit of
// work as the parent transition.
type ItemCascader interface {
	// TrashByList soft-deletes all active items of the list, tagging them
	// as trashed via the parent cascade. Returns the number of items trashed.
	TrashByList(ctx context.Context, listID id.ID, at time.Time) (int64, error)

	// RestoreByList restores items trashed by the parent cascade. Items
	// the user had trashed individually before the list stay in the trash.
	RestoreByList(ctx context.Context, listID id.ID) (int64, error)

	// PurgeByList permanently removes all items of the list regardless of
	// their own trashed state.
	PurgeByList(ctx context.Context, listID id.ID) (int64, error)
}
