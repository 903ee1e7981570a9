// Package record_repo provides PostgreSQL repositories for versioned
// soft-delete records (lists and items).
package record_repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"shoplist/internal/core/apperror"
	"shoplist/internal/core/id"
	"shoplist/internal/domain"
	"shoplist/internal/infrastructure/storage/postgres"
)

// BaseRecordRepo provides common operations for versioned soft-delete
// records. Embed this in concrete repositories.
//
// Update is a conditional write: the SET clause bumps the version by one
// while the WHERE clause pins the version the caller loaded. Two writers
// racing on the same version produce exactly one affected row; the loser
// resolves the zero-row result into a conflict carrying the fresh version.
type BaseRecordRepo[T any] struct {
	txm        *postgres.TxManager
	entityName string
	tableName  string
	selectCols []string
	newFn      func() T

	// extra columns written on lifecycle transitions (e.g. clearing the
	// cascade tag on item trash/restore)
	trashSet   map[string]any
	restoreSet map[string]any
}

// NewBaseRecordRepo creates a new base record repository.
func NewBaseRecordRepo[T any](
	txm *postgres.TxManager,
	entityName, tableName string,
	selectCols []string,
	newFn func() T,
) *BaseRecordRepo[T] {
	return &BaseRecordRepo[T]{
		txm:        txm,
		entityName: entityName,
		tableName:  tableName,
		selectCols: selectCols,
		newFn:      newFn,
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *BaseRecordRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseRecordRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

// baseSelect qualifies columns with the table name so joined queries stay
// unambiguous.
func (r *BaseRecordRepo[T]) baseSelect() squirrel.SelectBuilder {
	cols := make([]string, len(r.selectCols))
	for i, col := range r.selectCols {
		cols[i] = r.tableName + "." + col
	}
	return r.Builder().
		Select(cols...).
		From(r.tableName)
}

// Create inserts a new entity using its "db" tags.
func (r *BaseRecordRepo[T]) Create(ctx context.Context, entity T) error {
	data := postgres.StructToMap(entity)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}

	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	q := r.Builder().
		Insert(r.tableName).
		SetMap(filteredData)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}
	return nil
}

// GetByID retrieves an entity by ID, regardless of lifecycle state.
func (r *BaseRecordRepo[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	return r.getOne(ctx, entityID, false)
}

// GetForUpdate retrieves an entity with a row lock. Must run inside a
// transaction; the lock is what serializes concurrent read-modify-write
// sequences on the same record.
func (r *BaseRecordRepo[T]) GetForUpdate(ctx context.Context, entityID id.ID) (T, error) {
	return r.getOne(ctx, entityID, true)
}

func (r *BaseRecordRepo[T]) getOne(ctx context.Context, entityID id.ID, forUpdate bool) (T, error) {
	entity := r.newFn()

	q := r.baseSelect().
		Where(squirrel.Eq{"id": entityID}).
		Limit(1)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity, apperror.NewNotFound(r.entityName, entityID.String())
		}
		return entity, fmt.Errorf("get by id: %w", err)
	}
	return entity, nil
}

// Update modifies an active entity with optimistic locking.
func (r *BaseRecordRepo[T]) Update(ctx context.Context, entity T) error {
	data := postgres.StructToMap(entity)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}

	entityID, ok := data["id"]
	if !ok {
		return fmt.Errorf("entity has no 'id' field with db tag")
	}
	version, ok := data["version"].(int)
	if !ok {
		return fmt.Errorf("entity has no 'version' field or it is not an int")
	}

	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		switch col {
		case "id", "created_at":
			continue // immutable
		case "version", "deleted_at":
			continue // managed by the repo, not by content updates
		}
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}
	filteredData["updated_at"] = time.Now().UTC()

	q := r.Builder().
		Update(r.tableName).
		SetMap(filteredData).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": entityID}).
		Where(squirrel.Eq{"version": version}). // optimistic lock
		Where(squirrel.Eq{"deleted_at": nil})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.tableName, err)
	}

	if result.RowsAffected() == 0 {
		return r.resolveConflict(ctx, entityID, version)
	}
	return nil
}

// resolveConflict distinguishes why a conditional write touched no rows:
// the record is gone or trashed (not found) or the stored version moved on
// (conflict, reported with the fresh version).
func (r *BaseRecordRepo[T]) resolveConflict(ctx context.Context, entityID any, expected int) error {
	q := r.Builder().
		Select("version", "deleted_at").
		From(r.tableName).
		Where(squirrel.Eq{"id": entityID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build conflict probe: %w", err)
	}

	var current int
	var deletedAt *time.Time
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&current, &deletedAt); err != nil {
		return apperror.NewNotFound(r.entityName, fmt.Sprintf("%v", entityID))
	}
	if deletedAt != nil {
		return apperror.NewNotFound(r.entityName, fmt.Sprintf("%v", entityID))
	}
	return apperror.NewVersionConflict(r.entityName, entityID, current, expected)
}

// Trash soft-deletes an active entity. The version is untouched: lifecycle
// transitions are not content edits.
func (r *BaseRecordRepo[T]) Trash(ctx context.Context, entityID id.ID, at time.Time) error {
	q := r.Builder().
		Update(r.tableName).
		Set("deleted_at", at).
		Where(squirrel.Eq{"id": entityID}).
		Where(squirrel.Eq{"deleted_at": nil})
	for col, val := range r.trashSet {
		q = q.Set(col, val)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build trash: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("trash %s: %w", r.tableName, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, entityID.String())
	}
	return nil
}

// Restore returns a trashed entity to the active state.
func (r *BaseRecordRepo[T]) Restore(ctx context.Context, entityID id.ID) error {
	q := r.Builder().
		Update(r.tableName).
		Set("deleted_at", nil).
		Where(squirrel.Eq{"id": entityID}).
		Where(squirrel.NotEq{"deleted_at": nil})
	for col, val := range r.restoreSet {
		q = q.Set(col, val)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build restore: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("restore %s: %w", r.tableName, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, entityID.String())
	}
	return nil
}

// Purge removes an entity physically.
func (r *BaseRecordRepo[T]) Purge(ctx context.Context, entityID id.ID) error {
	q := r.Builder().
		Delete(r.tableName).
		Where(squirrel.Eq{"id": entityID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.tableName, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, entityID.String())
	}
	return nil
}

// runList counts, orders, paginates and scans a prepared SELECT.
func runList[T any](
	ctx context.Context,
	r *BaseRecordRepo[T],
	q squirrel.SelectBuilder,
	filter domain.ListFilter,
	defaultOrder string,
) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	countQ := r.Builder().
		Select("COUNT(*)").
		FromSelect(q, "sub")

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}

	querier := r.querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy, err := r.parseOrderBy(filter.OrderBy, defaultOrder)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list: %w", err)
	}
	return result, nil
}

// parseOrderBy validates the requested ordering against the column
// whitelist. A leading "-" requests descending order.
func (r *BaseRecordRepo[T]) parseOrderBy(orderBy, defaultOrder string) (string, error) {
	if orderBy == "" {
		orderBy = defaultOrder
	}

	col := orderBy
	dir := "ASC"
	if strings.HasPrefix(col, "-") {
		col = col[1:]
		dir = "DESC"
	}

	for _, valid := range r.selectCols {
		if col == valid {
			return r.tableName + "." + col + " " + dir, nil
		}
	}
	return "", apperror.NewValidation("invalid order column").
		WithDetail("order_by", orderBy)
}
