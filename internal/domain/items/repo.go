package items

import (
	"context"
	"time"

	"shoplist/internal/core/id"
	"shoplist/internal/domain"
)

// Repository defines persistence operations for items.
//
// The by-list methods implement the parent cascade and satisfy
// lists.ItemCascader; they must run inside the caller's transaction.
type Repository interface {
	// Create inserts a new item
	Create(ctx context.Context, item *Item) error

	// GetByID retrieves an item in any lifecycle state
	GetByID(ctx context.Context, itemID id.ID) (*Item, error)

	// GetForUpdate retrieves an item with a row lock for read-modify-write
	GetForUpdate(ctx context.Context, itemID id.ID) (*Item, error)

	// Update persists content changes with a conditional write gated on
	// the item's current version.
	Update(ctx context.Context, item *Item) error

	// Trash soft-deletes a single active item (a direct, user-initiated
	// delete, not tagged as a cascade).
	Trash(ctx context.Context, itemID id.ID, at time.Time) error

	// Restore returns an individually trashed item to the active state.
	Restore(ctx context.Context, itemID id.ID) error

	// Purge removes a trashed item permanently.
	Purge(ctx context.Context, itemID id.ID) error

	// TrashChecked soft-deletes all checked active items of a list and
	// returns the count (direct deletes, not cascade-tagged).
	TrashChecked(ctx context.Context, listID id.ID, at time.Time) (int64, error)

	// List retrieves items for one half of the active/trash partition,
	// ordered by OrderIndex for active views.
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Item], error)

	// --- Parent cascade (lists.ItemCascader) ---

	TrashByList(ctx context.Context, listID id.ID, at time.Time) (int64, error)
	RestoreByList(ctx context.Context, listID id.ID) (int64, error)
	PurgeByList(ctx context.Context, listID id.ID) (int64, error)
}
