package record_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"shoplist/internal/core/apperror"
	"shoplist/internal/domain"
	"shoplist/internal/domain/lists"
	"shoplist/internal/infrastructure/storage/postgres"
)

// Compile-time check.
var _ lists.Repository = (*ListRepo)(nil)

// ListRepo is the PostgreSQL repository for shopping lists.
type ListRepo struct {
	*BaseRecordRepo[*lists.List]
}

// NewListRepo creates a new list repository.
func NewListRepo(txm *postgres.TxManager) *ListRepo {
	return &ListRepo{
		BaseRecordRepo: NewBaseRecordRepo(
			txm,
			"list",
			"lists",
			postgres.ExtractDBColumns[lists.List](),
			func() *lists.List { return &lists.List{} },
		),
	}
}

// GetByShareToken retrieves an active, shared list by its share token.
func (r *ListRepo) GetByShareToken(ctx context.Context, token string) (*lists.List, error) {
	list := &lists.List{}

	q := r.baseSelect().
		Where(squirrel.Eq{"share_token": token}).
		Where(squirrel.Eq{"is_shared": true}).
		Where(squirrel.Eq{"deleted_at": nil}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), list, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("list", token)
		}
		return nil, fmt.Errorf("get by share token: %w", err)
	}
	return list, nil
}

// List retrieves lists for one half of the active/trash partition.
func (r *ListRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*lists.List], error) {
	q := r.baseSelect()

	if filter.Trashed {
		q = q.Where(squirrel.NotEq{"deleted_at": nil})
	} else {
		q = q.Where(squirrel.Eq{"deleted_at": nil})
	}
	if filter.OwnerID != nil {
		q = q.Where(squirrel.Eq{"owner_id": *filter.OwnerID})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"title": "%" + filter.Search + "%"})
	}

	defaultOrder := "created_at"
	if filter.Trashed {
		defaultOrder = "-deleted_at"
	}
	return runList(ctx, r.BaseRecordRepo, q, filter, defaultOrder)
}
