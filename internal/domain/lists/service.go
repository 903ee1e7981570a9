package lists

import (
	"context"
	"time"

	"shoplist/internal/core/apperror"
	appctx "shoplist/internal/core/context"
	"shoplist/internal/core/id"
	"shoplist/internal/core/tx"
	"shoplist/internal/domain"
	"shoplist/pkg/logger"
)

// UpdatePatch describes a content change to a list. Nil fields are left
// untouched. Identity, version and lifecycle state cannot be patched.
type UpdatePatch struct {
	Title    *string
	IsShared *bool
}

// Service provides business logic for shopping lists: versioned updates and
// the trash lifecycle with item cascades.
type Service struct {
	repo      Repository
	items     ItemCascader
	txManager tx.Manager
	hooks     *domain.HookRegistry[*List]

	// now is injectable for tests
	now func() time.Time
}

// NewService creates a new list service.
func NewService(repo Repository, items ItemCascader, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		items:     items,
		txManager: txManager,
		hooks:     domain.NewHookRegistry[*List](),
		now:       time.Now,
	}
}

// Hooks returns the hook registry for external registration.
func (s *Service) Hooks() *domain.HookRegistry[*List] {
	return s.hooks
}

// authorize checks that the caller owns the list or is an administrator.
// Caller identity comes from the request context, never from ambient state.
func (s *Service) authorize(ctx context.Context, list *List) error {
	user := appctx.GetUser(ctx)
	if user == nil {
		return apperror.NewUnauthorized("authentication required")
	}
	if user.IsAdmin {
		return nil
	}
	callerID, err := id.Parse(user.UserID)
	if err != nil || !list.IsOwnedBy(callerID) {
		return apperror.NewForbidden("you do not own this list").
			WithDetail("list_id", list.ID.String())
	}
	return nil
}

// Create validates and persists a new list.
func (s *Service) Create(ctx context.Context, title string, shared bool) (*List, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("authentication required")
	}
	ownerID, err := id.Parse(user.UserID)
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid user identity")
	}

	list := New(title, ownerID)
	list.IsShared = shared

	if err := list.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.hooks.Run(ctx, domain.BeforeCreate, list); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, list)
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.Run(ctx, domain.AfterCreate, list); err != nil {
		logger.Warn(ctx, "after-create hook failed", "list_id", list.ID, "error", err)
	}

	logger.Info(ctx, "list created", "list_id", list.ID, "owner_id", ownerID)
	return list, nil
}

// Get retrieves an active list. Trashed lists are reported as not found so
// that callers cannot distinguish them from purged ones.
func (s *Service) Get(ctx context.Context, listID id.ID) (*List, error) {
	list, err := s.repo.GetByID(ctx, listID)
	if err != nil {
		return nil, err
	}
	if list.IsTrashed() {
		return nil, apperror.NewNotFound("list", listID.String())
	}
	if err := s.authorize(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetShared retrieves an active, shared list by its share token.
// No authentication is required; the token is the capability.
func (s *Service) GetShared(ctx context.Context, token string) (*List, error) {
	return s.repo.GetByShareToken(ctx, token)
}

// Update applies a content patch guarded by optimistic locking.
//
// expectedVersion semantics: nil applies unconditionally (the version still
// advances), a non-positive value is rejected as malformed input, and a
// mismatch against the freshly loaded record is a conflict carrying both
// versions. The load and the conditional write share one transaction, so a
// concurrent updater either blocks on the row lock and then fails the
// version check, or loses the conditional write inside the repository.
func (s *Service) Update(ctx context.Context, listID id.ID, patch UpdatePatch, expectedVersion *int) (*List, error) {
	var updated *List

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		list, err := s.repo.GetForUpdate(ctx, listID)
		if err != nil {
			return err
		}
		if list.IsTrashed() {
			return apperror.NewNotFound("list", listID.String())
		}
		if err := s.authorize(ctx, list); err != nil {
			return err
		}
		if err := list.CheckVersion("list", expectedVersion); err != nil {
			return err
		}

		if patch.Title != nil {
			list.Title = *patch.Title
		}
		if patch.IsShared != nil {
			list.SetShared(*patch.IsShared)
		}
		if err := list.Validate(ctx); err != nil {
			return err
		}
		if err := s.hooks.Run(ctx, domain.BeforeUpdate, list); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, list); err != nil {
			return err
		}
		updated = list
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.Run(ctx, domain.AfterUpdate, updated); err != nil {
		logger.Warn(ctx, "after-update hook failed", "list_id", updated.ID, "error", err)
	}

	logger.Info(ctx, "list updated", "list_id", updated.ID, "version", updated.Version)
	return updated, nil
}

// SoftDelete moves an active list and all its active items to the trash in
// one transaction. A second delete of the same list reports not-found, never
// a silent success, which guards against double cascades.
func (s *Service) SoftDelete(ctx context.Context, listID id.ID) (*List, error) {
	var trashed *List

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		list, err := s.repo.GetForUpdate(ctx, listID)
		if err != nil {
			return err
		}
		if list.IsTrashed() {
			return apperror.NewNotFound("list", listID.String())
		}
		if err := s.authorize(ctx, list); err != nil {
			return err
		}
		if err := s.hooks.Run(ctx, domain.BeforeTrash, list); err != nil {
			return err
		}

		at := s.now().UTC()
		if err := s.repo.Trash(ctx, listID, at); err != nil {
			return err
		}
		count, err := s.items.TrashByList(ctx, listID, at)
		if err != nil {
			return err
		}

		list.MarkTrashed(at)
		trashed = list
		logger.Info(ctx, "list trashed", "list_id", listID, "cascaded_items", count)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.Run(ctx, domain.AfterTrash, trashed); err != nil {
		logger.Warn(ctx, "after-trash hook failed", "list_id", trashed.ID, "error", err)
	}
	return trashed, nil
}

// Restore returns a trashed list to the active state, together with the
// items its deletion cascaded into. Items trashed individually before the
// list stay in the trash. Restoring an active list reports not-found.
func (s *Service) Restore(ctx context.Context, listID id.ID) (*List, error) {
	var restored *List

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		list, err := s.repo.GetForUpdate(ctx, listID)
		if err != nil {
			return err
		}
		if !list.IsTrashed() {
			return apperror.NewNotFound("list", listID.String())
		}
		if err := s.authorize(ctx, list); err != nil {
			return err
		}

		if err := s.repo.Restore(ctx, listID); err != nil {
			return err
		}
		count, err := s.items.RestoreByList(ctx, listID)
		if err != nil {
			return err
		}

		list.ClearTrashed()
		restored = list
		logger.Info(ctx, "list restored", "list_id", listID, "restored_items", count)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.Run(ctx, domain.AfterRestore, restored); err != nil {
		logger.Warn(ctx, "after-restore hook failed", "list_id", restored.ID, "error", err)
	}
	return restored, nil
}

// Purge permanently removes a trashed list and every one of its items,
// regardless of the items' own trashed state. Purging an active list is
// rejected: it must be trashed first. Admin only.
func (s *Service) Purge(ctx context.Context, listID id.ID) error {
	if !appctx.IsAdmin(ctx) {
		return apperror.NewForbidden("only administrators may purge records")
	}

	var purged *List

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		list, err := s.repo.GetForUpdate(ctx, listID)
		if err != nil {
			return err
		}
		if !list.IsTrashed() {
			return apperror.NewNotTrashed("list", listID.String())
		}

		count, err := s.items.PurgeByList(ctx, listID)
		if err != nil {
			return err
		}
		if err := s.repo.Purge(ctx, listID); err != nil {
			return err
		}

		purged = list
		logger.Info(ctx, "list purged", "list_id", listID, "purged_items", count)
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.hooks.Run(ctx, domain.AfterPurge, purged); err != nil {
		logger.Warn(ctx, "after-purge hook failed", "list_id", purged.ID, "error", err)
	}
	return nil
}

// ListActive returns the caller's active lists. Admins may pass an explicit
// owner scope through the filter; everyone else is pinned to their own lists.
func (s *Service) ListActive(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*List], error) {
	filter.Trashed = false
	return s.list(ctx, filter)
}

// ListTrashed returns trashed lists. Admins see all users' trash unless they
// scope the filter; regular users see only their own.
func (s *Service) ListTrashed(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*List], error) {
	filter.Trashed = true
	return s.list(ctx, filter)
}

func (s *Service) list(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*List], error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return domain.ListResult[*List]{}, apperror.NewUnauthorized("authentication required")
	}
	if !user.IsAdmin {
		callerID, err := id.Parse(user.UserID)
		if err != nil {
			return domain.ListResult[*List]{}, apperror.NewUnauthorized("invalid user identity")
		}
		filter.OwnerID = &callerID
	}
	if filter.Limit <= 0 {
		filter.Limit = domain.DefaultListFilter().Limit
	}
	return s.repo.List(ctx, filter)
}
