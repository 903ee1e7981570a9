package record_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"shoplist/internal/core/id"
	"shoplist/internal/domain"
	"shoplist/internal/domain/items"
	"shoplist/internal/domain/lists"
	"shoplist/internal/infrastructure/storage/postgres"
)

// Compile-time checks: the item repo also serves as the cascade arm of the
// list lifecycle.
var (
	_ items.Repository   = (*ItemRepo)(nil)
	_ lists.ItemCascader = (*ItemRepo)(nil)
)

// ItemRepo is the PostgreSQL repository for shopping list items.
type ItemRepo struct {
	*BaseRecordRepo[*items.Item]
}

// NewItemRepo creates a new item repository.
func NewItemRepo(txm *postgres.TxManager) *ItemRepo {
	base := NewBaseRecordRepo(
		txm,
		"item",
		"items",
		postgres.ExtractDBColumns[items.Item](),
		func() *items.Item { return &items.Item{} },
	)
	// direct trash and restore always clear the cascade tag
	base.trashSet = map[string]any{"deleted_via_parent": false}
	base.restoreSet = map[string]any{"deleted_via_parent": false}
	return &ItemRepo{BaseRecordRepo: base}
}

// TrashChecked soft-deletes all checked active items of a list.
func (r *ItemRepo) TrashChecked(ctx context.Context, listID id.ID, at time.Time) (int64, error) {
	q := r.Builder().
		Update("items").
		Set("deleted_at", at).
		Set("deleted_via_parent", false).
		Where(squirrel.Eq{"list_id": listID}).
		Where(squirrel.Eq{"is_checked": true}).
		Where(squirrel.Eq{"deleted_at": nil})

	return r.execCount(ctx, q, "trash checked items")
}

// TrashByList soft-deletes all active items of the list, tagging them as
// cascade deletes so a list restore can tell them apart from items the user
// trashed individually.
func (r *ItemRepo) TrashByList(ctx context.Context, listID id.ID, at time.Time) (int64, error) {
	q := r.Builder().
		Update("items").
		Set("deleted_at", at).
		Set("deleted_via_parent", true).
		Where(squirrel.Eq{"list_id": listID}).
		Where(squirrel.Eq{"deleted_at": nil})

	return r.execCount(ctx, q, "trash items by list")
}

// RestoreByList restores items that the parent cascade trashed.
func (r *ItemRepo) RestoreByList(ctx context.Context, listID id.ID) (int64, error) {
	q := r.Builder().
		Update("items").
		Set("deleted_at", nil).
		Set("deleted_via_parent", false).
		Where(squirrel.Eq{"list_id": listID}).
		Where(squirrel.NotEq{"deleted_at": nil}).
		Where(squirrel.Eq{"deleted_via_parent": true})

	return r.execCount(ctx, q, "restore items by list")
}

// PurgeByList removes all items of the list regardless of their own state.
func (r *ItemRepo) PurgeByList(ctx context.Context, listID id.ID) (int64, error) {
	q := r.Builder().
		Delete("items").
		Where(squirrel.Eq{"list_id": listID})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge items by list: %w", err)
	}
	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("purge items by list: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *ItemRepo) execCount(ctx context.Context, q squirrel.UpdateBuilder, op string) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s: %w", op, err)
	}
	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return result.RowsAffected(), nil
}

// List retrieves items for one half of the active/trash partition. Owner
// scoping goes through the parent list.
func (r *ItemRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*items.Item], error) {
	q := r.baseSelect()

	if filter.Trashed {
		q = q.Where(squirrel.NotEq{"items.deleted_at": nil})
	} else {
		q = q.Where(squirrel.Eq{"items.deleted_at": nil})
	}
	if filter.ListID != nil {
		q = q.Where(squirrel.Eq{"items.list_id": *filter.ListID})
	}
	if filter.OwnerID != nil {
		q = q.Join("lists ON lists.id = items.list_id").
			Where(squirrel.Eq{"lists.owner_id": *filter.OwnerID})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"items.name": "%" + filter.Search + "%"})
	}

	defaultOrder := "order_index"
	if filter.Trashed {
		defaultOrder = "-deleted_at"
	}
	return runList(ctx, r.BaseRecordRepo, q, filter, defaultOrder)
}
