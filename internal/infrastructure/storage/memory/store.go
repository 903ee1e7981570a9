// Package memory provides an in-process storage backend. It implements the
// same repository contracts as the postgres backend, including conditional
// version-gated writes and transactional rollback, and serves development
// mode and the domain test suites.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"shoplist/internal/core/apperror"
	"shoplist/internal/core/id"
	"shoplist/internal/domain"
	"shoplist/internal/domain/auth"
	"shoplist/internal/domain/items"
	"shoplist/internal/domain/lists"
)

type txKey struct{}

var (
	_ lists.Repository    = (*listRepo)(nil)
	_ items.Repository    = (*itemRepo)(nil)
	_ lists.ItemCascader  = (*itemRepo)(nil)
	_ auth.UserRepository = (*userRepo)(nil)
)

// Store holds all records behind one mutex. Writes are copy-on-write: a
// mutation replaces the map entry with a fresh clone, so a transaction
// snapshot is a shallow copy of the maps.
type Store struct {
	mu    sync.Mutex
	lists map[id.ID]*lists.List
	items map[id.ID]*items.Item
	users map[id.ID]*auth.User
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		lists: make(map[id.ID]*lists.List),
		items: make(map[id.ID]*items.Item),
		users: make(map[id.ID]*auth.User),
	}
}

// RunInTransaction implements tx.Manager. The store lock is held for the
// whole function, so a transaction observes and produces a consistent state.
// If fn fails, the pre-transaction snapshot is restored: partial cascades
// never survive.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	listSnap := make(map[id.ID]*lists.List, len(s.lists))
	for k, v := range s.lists {
		listSnap[k] = v
	}
	itemSnap := make(map[id.ID]*items.Item, len(s.items))
	for k, v := range s.items {
		itemSnap[k] = v
	}
	userSnap := make(map[id.ID]*auth.User, len(s.users))
	for k, v := range s.users {
		userSnap[k] = v
	}

	if err := fn(context.WithValue(ctx, txKey{}, struct{}{})); err != nil {
		s.lists = listSnap
		s.items = itemSnap
		s.users = userSnap
		return err
	}
	return nil
}

// withLock runs fn under the store lock unless the context already carries
// a transaction, in which case the lock is held by RunInTransaction.
func (s *Store) withLock(ctx context.Context, fn func() error) error {
	if ctx.Value(txKey{}) != nil {
		return fn()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// Lists returns the list repository view of the store.
func (s *Store) Lists() lists.Repository { return &listRepo{s: s} }

// Items returns the item repository view of the store.
func (s *Store) Items() items.Repository { return &itemRepo{s: s} }

// Users returns the user repository view of the store.
func (s *Store) Users() auth.UserRepository { return &userRepo{s: s} }

// Ping always succeeds; the store lives in process memory.
func (s *Store) Ping(ctx context.Context) error { return nil }

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneList(l *lists.List) *lists.List {
	c := *l
	c.DeletedAt = cloneTime(l.DeletedAt)
	return &c
}

func cloneItem(i *items.Item) *items.Item {
	c := *i
	c.DeletedAt = cloneTime(i.DeletedAt)
	return &c
}

// --- list repository ---

type listRepo struct {
	s *Store
}

func (r *listRepo) Create(ctx context.Context, list *lists.List) error {
	return r.s.withLock(ctx, func() error {
		if _, ok := r.s.lists[list.ID]; ok {
			return apperror.NewDuplicate("list", "id", list.ID.String())
		}
		r.s.lists[list.ID] = cloneList(list)
		return nil
	})
}

func (r *listRepo) GetByID(ctx context.Context, listID id.ID) (*lists.List, error) {
	var out *lists.List
	err := r.s.withLock(ctx, func() error {
		stored, ok := r.s.lists[listID]
		if !ok {
			return apperror.NewNotFound("list", listID.String())
		}
		out = cloneList(stored)
		return nil
	})
	return out, err
}

// GetForUpdate is GetByID here: the store lock already serializes writers
// the way a row lock would.
func (r *listRepo) GetForUpdate(ctx context.Context, listID id.ID) (*lists.List, error) {
	return r.GetByID(ctx, listID)
}

func (r *listRepo) GetByShareToken(ctx context.Context, token string) (*lists.List, error) {
	var out *lists.List
	err := r.s.withLock(ctx, func() error {
		for _, stored := range r.s.lists {
			if stored.IsShared && !stored.IsTrashed() && stored.ShareToken == token {
				out = cloneList(stored)
				return nil
			}
		}
		return apperror.NewNotFound("list", token)
	})
	return out, err
}

func (r *listRepo) Update(ctx context.Context, list *lists.List) error {
	return r.s.withLock(ctx, func() error {
		stored, ok := r.s.lists[list.ID]
		if !ok || stored.IsTrashed() {
			return apperror.NewNotFound("list", list.ID.String())
		}
		if stored.Version != list.Version {
			return apperror.NewVersionConflict("list", list.ID.String(), stored.Version, list.Version)
		}
		list.Touch()
		r.s.lists[list.ID] = cloneList(list)
		return nil
	})
}

func (r *listRepo) Trash(ctx context.Context, listID id.ID, at time.Time) error {
	return r.s.withLock(ctx, func() error {
		stored, ok := r.s.lists[listID]
		if !ok || stored.IsTrashed() {
			return apperror.NewNotFound("list", listID.String())
		}
		c := cloneList(stored)
		c.MarkTrashed(at)
		r.s.lists[listID] = c
		return nil
	})
}

func (r *listRepo) Restore(ctx context.Context, listID id.ID) error {
	return r.s.withLock(ctx, func() error {
		stored, ok := r.s.lists[listID]
		if !ok || !stored.IsTrashed() {
			return apperror.NewNotFound("list", listID.String())
		}
		c := cloneList(stored)
		c.ClearTrashed()
		r.s.lists[listID] = c
		return nil
	})
}

func (r *listRepo) Purge(ctx context.Context, listID id.ID) error {
	return r.s.withLock(ctx, func() error {
		if _, ok := r.s.lists[listID]; !ok {
			return apperror.NewNotFound("list", listID.String())
		}
		delete(r.s.lists, listID)
		return nil
	})
}

func (r *listRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*lists.List], error) {
	var matched []*lists.List
	err := r.s.withLock(ctx, func() error {
		for _, stored := range r.s.lists {
			if stored.IsTrashed() != filter.Trashed {
				continue
			}
			if filter.OwnerID != nil && stored.OwnerID != *filter.OwnerID {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(stored.Title), strings.ToLower(filter.Search)) {
				continue
			}
			matched = append(matched, cloneList(stored))
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[*lists.List]{}, err
	}

	if filter.Trashed {
		sort.Slice(matched, func(i, j int) bool {
			return matched[i].DeletedAt.After(*matched[j].DeletedAt)
		})
	} else {
		sort.Slice(matched, func(i, j int) bool {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		})
	}
	return paginate(matched, filter), nil
}

// --- item repository ---

type itemRepo struct {
	s *Store
}

func (r *itemRepo) Create(ctx context.Context, item *items.Item) error {
	return r.s.withLock(ctx, func() error {
		if _, ok := r.s.items[item.ID]; ok {
			return apperror.NewDuplicate("item", "id", item.ID.String())
		}
		// The parent must exist and be active.
		parent, ok := r.s.lists[item.ListID]
		if !ok || parent.IsTrashed() {
			return apperror.NewNotFound("list", item.ListID.String())
		}
		r.s.items[item.ID] = cloneItem(item)
		return nil
	})
}

func (r *itemRepo) GetByID(ctx context.Context, itemID id.ID) (*items.Item, error) {
	var out *items.Item
	err := r.s.withLock(ctx, func() error {
		stored, ok := r.s.items[itemID]
		if !ok {
			return apperror.NewNotFound("item", itemID.String())
		}
		out = cloneItem(stored)
		return nil
	})
	return out, err
}

func (r *itemRepo) GetForUpdate(ctx context.Context, itemID id.ID) (*items.Item, error) {
	return r.GetByID(ctx, itemID)
}

func (r *itemRepo) Update(ctx context.Context, item *items.Item) error {
	return r.s.withLock(ctx, func() error {
		stored, ok := r.s.items[item.ID]
		if !ok || stored.IsTrashed() {
			return apperror.NewNotFound("item", item.ID.String())
		}
		if stored.Version != item.Version {
			return apperror.NewVersionConflict("item", item.ID.String(), stored.Version, item.Version)
		}
		item.Touch()
		r.s.items[item.ID] = cloneItem(item)
		return nil
	})
}

func (r *itemRepo) Trash(ctx context.Context, itemID id.ID, at time.Time) error {
	return r.s.withLock(ctx, func() error {
		stored, ok := r.s.items[itemID]
		if !ok || stored.IsTrashed() {
			return apperror.NewNotFound("item", itemID.String())
		}
		c := cloneItem(stored)
		c.MarkTrashed(at)
		c.DeletedViaParent = false
		r.s.items[itemID] = c
		return nil
	})
}

func (r *itemRepo) Restore(ctx context.Context, itemID id.ID) error {
	return r.s.withLock(ctx, func() error {
		stored, ok := r.s.items[itemID]
		if !ok || !stored.IsTrashed() {
			return apperror.NewNotFound("item", itemID.String())
		}
		c := cloneItem(stored)
		c.ClearTrashed()
		c.DeletedViaParent = false
		r.s.items[itemID] = c
		return nil
	})
}

func (r *itemRepo) Purge(ctx context.Context, itemID id.ID) error {
	return r.s.withLock(ctx, func() error {
		if _, ok := r.s.items[itemID]; !ok {
			return apperror.NewNotFound("item", itemID.String())
		}
		delete(r.s.items, itemID)
		return nil
	})
}

func (r *itemRepo) TrashChecked(ctx context.Context, listID id.ID, at time.Time) (int64, error) {
	var count int64
	err := r.s.withLock(ctx, func() error {
		for itemID, stored := range r.s.items {
			if stored.ListID != listID || stored.IsTrashed() || !stored.IsChecked {
				continue
			}
			c := cloneItem(stored)
			c.MarkTrashed(at)
			c.DeletedViaParent = false
			r.s.items[itemID] = c
			count++
		}
		return nil
	})
	return count, err
}

func (r *itemRepo) TrashByList(ctx context.Context, listID id.ID, at time.Time) (int64, error) {
	var count int64
	err := r.s.withLock(ctx, func() error {
		for itemID, stored := range r.s.items {
			if stored.ListID != listID || stored.IsTrashed() {
				continue
			}
			c := cloneItem(stored)
			c.MarkTrashed(at)
			c.DeletedViaParent = true
			r.s.items[itemID] = c
			count++
		}
		return nil
	})
	return count, err
}

func (r *itemRepo) RestoreByList(ctx context.Context, listID id.ID) (int64, error) {
	var count int64
	err := r.s.withLock(ctx, func() error {
		for itemID, stored := range r.s.items {
			if stored.ListID != listID || !stored.IsTrashed() || !stored.DeletedViaParent {
				continue
			}
			c := cloneItem(stored)
			c.ClearTrashed()
			c.DeletedViaParent = false
			r.s.items[itemID] = c
			count++
		}
		return nil
	})
	return count, err
}

func (r *itemRepo) PurgeByList(ctx context.Context, listID id.ID) (int64, error) {
	var count int64
	err := r.s.withLock(ctx, func() error {
		for itemID, stored := range r.s.items {
			if stored.ListID != listID {
				continue
			}
			delete(r.s.items, itemID)
			count++
		}
		return nil
	})
	return count, err
}

func (r *itemRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*items.Item], error) {
	var matched []*items.Item
	err := r.s.withLock(ctx, func() error {
		for _, stored := range r.s.items {
			if stored.IsTrashed() != filter.Trashed {
				continue
			}
			if filter.ListID != nil && stored.ListID != *filter.ListID {
				continue
			}
			if filter.OwnerID != nil {
				parent, ok := r.s.lists[stored.ListID]
				if !ok || parent.OwnerID != *filter.OwnerID {
					continue
				}
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(stored.Name), strings.ToLower(filter.Search)) {
				continue
			}
			matched = append(matched, cloneItem(stored))
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[*items.Item]{}, err
	}

	if filter.Trashed {
		sort.Slice(matched, func(i, j int) bool {
			return matched[i].DeletedAt.After(*matched[j].DeletedAt)
		})
	} else {
		sort.Slice(matched, func(i, j int) bool {
			if matched[i].OrderIndex != matched[j].OrderIndex {
				return matched[i].OrderIndex < matched[j].OrderIndex
			}
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		})
	}
	return paginate(matched, filter), nil
}

// --- user repository ---

type userRepo struct {
	s *Store
}

func cloneUser(u *auth.User) *auth.User {
	c := *u
	c.LastLoginAt = cloneTime(u.LastLoginAt)
	return &c
}

func (r *userRepo) Create(ctx context.Context, user *auth.User) error {
	return r.s.withLock(ctx, func() error {
		for _, stored := range r.s.users {
			if strings.EqualFold(stored.Username, user.Username) {
				return apperror.NewDuplicate("user", "username", user.Username)
			}
			if strings.EqualFold(stored.Email, user.Email) {
				return apperror.NewDuplicate("user", "email", user.Email)
			}
		}
		r.s.users[user.ID] = cloneUser(user)
		return nil
	})
}

func (r *userRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	var out *auth.User
	err := r.s.withLock(ctx, func() error {
		stored, ok := r.s.users[userID]
		if !ok {
			return apperror.NewNotFound("user", userID.String())
		}
		out = cloneUser(stored)
		return nil
	})
	return out, err
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	var out *auth.User
	err := r.s.withLock(ctx, func() error {
		for _, stored := range r.s.users {
			if strings.EqualFold(stored.Username, username) {
				out = cloneUser(stored)
				return nil
			}
		}
		return apperror.NewNotFound("user", username)
	})
	return out, err
}

func (r *userRepo) Update(ctx context.Context, user *auth.User) error {
	return r.s.withLock(ctx, func() error {
		if _, ok := r.s.users[user.ID]; !ok {
			return apperror.NewNotFound("user", user.ID.String())
		}
		r.s.users[user.ID] = cloneUser(user)
		return nil
	})
}

func (r *userRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var found bool
	err := r.s.withLock(ctx, func() error {
		for _, stored := range r.s.users {
			if strings.EqualFold(stored.Username, username) {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *userRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var found bool
	err := r.s.withLock(ctx, func() error {
		for _, stored := range r.s.users {
			if strings.EqualFold(stored.Email, email) {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func paginate[T any](matched []T, filter domain.ListFilter) domain.ListResult[T] {
	total := int64(len(matched))
	start := filter.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return domain.ListResult[T]{
		Items:      matched[start:end],
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
}
