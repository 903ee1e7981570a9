package items

import (
	"context"
	"time"

	"shoplist/internal/core/apperror"
	appctx "shoplist/internal/core/context"
	"shoplist/internal/core/id"
	"shoplist/internal/core/tx"
	"shoplist/internal/domain"
	"shoplist/internal/domain/lists"
	"shoplist/pkg/logger"
)

// UpdatePatch describes a content change to an item. Nil fields are left
// untouched. Identity, version and lifecycle state cannot be patched.
type UpdatePatch struct {
	Name       *string
	Quantity   *string
	IsChecked  *bool
	OrderIndex *int
}

// Service provides business logic for items. Ownership is derived from the
// parent list: whoever may touch the list may touch its items.
type Service struct {
	repo      Repository
	listRepo  lists.Repository
	txManager tx.Manager
	hooks     *domain.HookRegistry[*Item]

	now func() time.Time
}

// NewService creates a new item service.
func NewService(repo Repository, listRepo lists.Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		listRepo:  listRepo,
		txManager: txManager,
		hooks:     domain.NewHookRegistry[*Item](),
		now:       time.Now,
	}
}

// Hooks returns the hook registry for external registration.
func (s *Service) Hooks() *domain.HookRegistry[*Item] {
	return s.hooks
}

// parentList loads the owning list and checks the caller may act on it.
// A trashed parent is reported as not-found: its children are unreachable.
func (s *Service) parentList(ctx context.Context, listID id.ID) (*lists.List, error) {
	list, err := s.listRepo.GetByID(ctx, listID)
	if err != nil {
		return nil, err
	}
	if err := s.checkParent(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// checkParent enforces the liveness and ownership rules on a loaded list.
func (s *Service) checkParent(ctx context.Context, list *lists.List) error {
	if list.IsTrashed() {
		return apperror.NewNotFound("list", list.ID.String())
	}
	user := appctx.GetUser(ctx)
	if user == nil {
		return apperror.NewUnauthorized("authentication required")
	}
	if !user.IsAdmin {
		callerID, err := id.Parse(user.UserID)
		if err != nil || !list.IsOwnedBy(callerID) {
			return apperror.NewForbidden("you do not own this list").
				WithDetail("list_id", list.ID.String())
		}
	}
	return nil
}

// Create validates and persists a new item on an active list. The parent is
// locked and re-checked in the same transaction as the insert; a concurrent
// list trash either sees the new item or makes the insert fail.
func (s *Service) Create(ctx context.Context, listID id.ID, name, quantity string, orderIndex int) (*Item, error) {
	item := New(listID, name, quantity)
	item.OrderIndex = orderIndex

	if err := item.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.hooks.Run(ctx, domain.BeforeCreate, item); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		list, err := s.listRepo.GetForUpdate(ctx, listID)
		if err != nil {
			return err
		}
		if err := s.checkParent(ctx, list); err != nil {
			return err
		}
		return s.repo.Create(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.Run(ctx, domain.AfterCreate, item); err != nil {
		logger.Warn(ctx, "after-create hook failed", "item_id", item.ID, "error", err)
	}
	return item, nil
}

// Get retrieves an active item. Trashed items report not-found.
func (s *Service) Get(ctx context.Context, itemID id.ID) (*Item, error) {
	item, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.IsTrashed() {
		return nil, apperror.NewNotFound("item", itemID.String())
	}
	if _, err := s.parentList(ctx, item.ListID); err != nil {
		return nil, err
	}
	return item, nil
}

// Update applies a content patch guarded by optimistic locking. Semantics
// mirror the list update: nil expectedVersion is unconditional, non-positive
// is malformed, mismatch conflicts with both versions attached.
func (s *Service) Update(ctx context.Context, itemID id.ID, patch UpdatePatch, expectedVersion *int) (*Item, error) {
	var updated *Item

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		item, err := s.repo.GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if item.IsTrashed() {
			return apperror.NewNotFound("item", itemID.String())
		}
		if _, err := s.parentList(ctx, item.ListID); err != nil {
			return err
		}
		if err := item.CheckVersion("item", expectedVersion); err != nil {
			return err
		}

		if patch.Name != nil {
			item.Name = *patch.Name
		}
		if patch.Quantity != nil {
			item.Quantity = *patch.Quantity
		}
		if patch.IsChecked != nil {
			item.IsChecked = *patch.IsChecked
		}
		if patch.OrderIndex != nil {
			item.OrderIndex = *patch.OrderIndex
		}
		if err := item.Validate(ctx); err != nil {
			return err
		}
		if err := s.hooks.Run(ctx, domain.BeforeUpdate, item); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, item); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.Run(ctx, domain.AfterUpdate, updated); err != nil {
		logger.Warn(ctx, "after-update hook failed", "item_id", updated.ID, "error", err)
	}
	return updated, nil
}

// SoftDelete moves a single active item to the trash. Deleting an already
// trashed item reports not-found.
func (s *Service) SoftDelete(ctx context.Context, itemID id.ID) (*Item, error) {
	var trashed *Item

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		item, err := s.repo.GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if item.IsTrashed() {
			return apperror.NewNotFound("item", itemID.String())
		}
		if _, err := s.parentList(ctx, item.ListID); err != nil {
			return err
		}
		if err := s.hooks.Run(ctx, domain.BeforeTrash, item); err != nil {
			return err
		}

		at := s.now().UTC()
		if err := s.repo.Trash(ctx, itemID, at); err != nil {
			return err
		}
		item.MarkTrashed(at)
		trashed = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.Run(ctx, domain.AfterTrash, trashed); err != nil {
		logger.Warn(ctx, "after-trash hook failed", "item_id", trashed.ID, "error", err)
	}
	return trashed, nil
}

// Restore returns an individually trashed item to the active state. The
// parent list must be active: a child cannot be active under a trashed
// parent. Restoring an active item reports not-found.
func (s *Service) Restore(ctx context.Context, itemID id.ID) (*Item, error) {
	var restored *Item

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		item, err := s.repo.GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if !item.IsTrashed() {
			return apperror.NewNotFound("item", itemID.String())
		}
		if _, err := s.parentList(ctx, item.ListID); err != nil {
			return err
		}

		if err := s.repo.Restore(ctx, itemID); err != nil {
			return err
		}
		item.ClearTrashed()
		item.DeletedViaParent = false
		restored = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.Run(ctx, domain.AfterRestore, restored); err != nil {
		logger.Warn(ctx, "after-restore hook failed", "item_id", restored.ID, "error", err)
	}
	return restored, nil
}

// Purge permanently removes a trashed item. Purging an active item is
// rejected: it must be trashed first. Admin only.
func (s *Service) Purge(ctx context.Context, itemID id.ID) error {
	if !appctx.IsAdmin(ctx) {
		return apperror.NewForbidden("only administrators may purge records")
	}

	var purged *Item

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		item, err := s.repo.GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if !item.IsTrashed() {
			return apperror.NewNotTrashed("item", itemID.String())
		}
		if err := s.repo.Purge(ctx, itemID); err != nil {
			return err
		}
		purged = item
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.hooks.Run(ctx, domain.AfterPurge, purged); err != nil {
		logger.Warn(ctx, "after-purge hook failed", "item_id", purged.ID, "error", err)
	}
	return nil
}

// ClearChecked soft-deletes every checked active item of a list and reports
// how many were trashed. These are direct deletes: a later list restore will
// not resurrect them.
func (s *Service) ClearChecked(ctx context.Context, listID id.ID) (int64, error) {
	var count int64

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.parentList(ctx, listID); err != nil {
			return err
		}
		var err error
		count, err = s.repo.TrashChecked(ctx, listID, s.now().UTC())
		return err
	})
	if err != nil {
		return 0, err
	}

	logger.Info(ctx, "checked items cleared", "list_id", listID, "count", count)
	return count, nil
}

// ListActive returns the active items of a list, ordered for display.
func (s *Service) ListActive(ctx context.Context, listID id.ID, filter domain.ListFilter) (domain.ListResult[*Item], error) {
	if _, err := s.parentList(ctx, listID); err != nil {
		return domain.ListResult[*Item]{}, err
	}
	filter.Trashed = false
	filter.ListID = &listID
	if filter.Limit <= 0 {
		filter.Limit = domain.DefaultListFilter().Limit
	}
	return s.repo.List(ctx, filter)
}

// ListTrashed returns trashed items. Regular users see items of their own
// lists only; admins see everything unless they scope the filter.
func (s *Service) ListTrashed(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Item], error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return domain.ListResult[*Item]{}, apperror.NewUnauthorized("authentication required")
	}
	if !user.IsAdmin {
		callerID, err := id.Parse(user.UserID)
		if err != nil {
			return domain.ListResult[*Item]{}, apperror.NewUnauthorized("invalid user identity")
		}
		filter.OwnerID = &callerID
	}
	filter.Trashed = true
	if filter.Limit <= 0 {
		filter.Limit = domain.DefaultListFilter().Limit
	}
	return s.repo.List(ctx, filter)
}
