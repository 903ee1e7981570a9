package lists_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplist/internal/core/apperror"
	appctx "shoplist/internal/core/context"
	"shoplist/internal/core/id"
	"shoplist/internal/domain"
	"shoplist/internal/domain/items"
	"shoplist/internal/domain/lists"
	"shoplist/internal/infrastructure/storage/memory"
)

type testEnv struct {
	store    *memory.Store
	lists    *lists.Service
	items    *items.Service
	ownerID  id.ID
	owner    context.Context
	stranger context.Context
	admin    context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	listSvc := lists.NewService(store.Lists(), store.Items(), store)
	itemSvc := items.NewService(store.Items(), store.Lists(), store)

	ownerID := id.New()
	owner := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:   ownerID.String(),
		Username: "alice",
	})
	stranger := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:   id.New().String(),
		Username: "mallory",
	})
	admin := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:   id.New().String(),
		Username: "root",
		IsAdmin:  true,
	})

	return &testEnv{
		store:    store,
		lists:    listSvc,
		items:    itemSvc,
		ownerID:  ownerID,
		owner:    owner,
		stranger: stranger,
		admin:    admin,
	}
}

func (e *testEnv) mustCreateList(t *testing.T, title string) *lists.List {
	t.Helper()
	list, err := e.lists.Create(e.owner, title, false)
	require.NoError(t, err)
	return list
}

func (e *testEnv) mustCreateItem(t *testing.T, listID id.ID, name string) *items.Item {
	t.Helper()
	item, err := e.items.Create(e.owner, listID, name, "", 0)
	require.NoError(t, err)
	return item
}

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }

func TestCreate_StartsAtVersionOne(t *testing.T) {
	env := newTestEnv(t)

	list := env.mustCreateList(t, "Groceries")
	assert.Equal(t, 1, list.Version)
	assert.Nil(t, list.DeletedAt)
	assert.Equal(t, env.ownerID, list.OwnerID)

	got, err := env.lists.Get(env.owner, list.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
}

func TestUpdate_MatchingVersionAdvancesByOne(t *testing.T) {
	env := newTestEnv(t)
	list := env.mustCreateList(t, "Groceries")

	updated, err := env.lists.Update(env.owner, list.ID, lists.UpdatePatch{Title: strPtr("Weekend groceries")}, intPtr(1))
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "Weekend groceries", updated.Title)
}

func TestUpdate_NilVersionIsUnconditionalButStillAdvances(t *testing.T) {
	env := newTestEnv(t)
	list := env.mustCreateList(t, "Groceries")

	updated, err := env.lists.Update(env.owner, list.ID, lists.UpdatePatch{Title: strPtr("renamed")}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)

	updated, err = env.lists.Update(env.owner, list.ID, lists.UpdatePatch{Title: strPtr("renamed again")}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Version)
}

func TestUpdate_StaleVersionConflicts(t *testing.T) {
	env := newTestEnv(t)
	list := env.mustCreateList(t, "Groceries")

	_, err := env.lists.Update(env.owner, list.ID, lists.UpdatePatch{Title: strPtr("first writer")}, intPtr(1))
	require.NoError(t, err)

	_, err = env.lists.Update(env.owner, list.ID, lists.UpdatePatch{Title: strPtr("second writer")}, intPtr(1))
	require.Error(t, err)
	require.True(t, apperror.IsConcurrentModification(err))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 2, appErr.Details["current_version"])
	assert.Equal(t, 1, appErr.Details["expected_version"])

	// the losing write left no trace
	got, err := env.lists.Get(env.owner, list.ID)
	require.NoError(t, err)
	assert.Equal(t, "first writer", got.Title)
	assert.Equal(t, 2, got.Version)
}

func TestUpdate_NonPositiveVersionIsMalformed(t *testing.T) {
	env := newTestEnv(t)
	list := env.mustCreateList(t, "Groceries")

	for _, v := range []int{0, -1} {
		_, err := env.lists.Update(env.owner, list.ID, lists.UpdatePatch{Title: strPtr("x")}, intPtr(v))
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err), "expectedVersion %d should be rejected as malformed", v)
		assert.False(t, apperror.IsConcurrentModification(err))
	}

	// nothing was written
	got, err := env.lists.Get(env.owner, list.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
}

func TestUpdate_ConcurrentSameVersion_ExactlyOneWinner(t *testing.T) {
	env := newTestEnv(t)
	list := env.mustCreateList(t, "Groceries")

	const writers = 16
	var wg sync.WaitGroup
	errs := make([]error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			title := "writer"
			_, errs[i] = env.lists.Update(env.owner, list.ID, lists.UpdatePatch{Title: &title}, intPtr(1))
		}(i)
	}
	wg.Wait()

	var won, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case apperror.IsConcurrentModification(err):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, writers-1, conflicted)

	got, err := env.lists.Get(env.owner, list.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
}

func TestUpdate_TrashedListReportsNotFound(t *testing.T) {
	env := newTestEnv(t)
	list := env.mustCreateList(t, "Groceries")

	_, err := env.lists.SoftDelete(env.owner, list.ID)
	require.NoError(t, err)

	_, err = env.lists.Update(env.owner, list.ID, lists.UpdatePatch{Title: strPtr("x")}, intPtr(1))
	assert.True(t, apperror.IsNotFound(err))
}

func TestSetShared_RotatesShareToken(t *testing.T) {
	env := newTestEnv(t)
	list := env.mustCreateList(t, "Groceries")
	original := list.ShareToken

	shared, err := env.lists.Update(env.owner, list.ID, lists.UpdatePatch{IsShared: boolPtr(true)}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, original, shared.ShareToken)

	// anonymous access works through the fresh token only
	got, err := env.lists.GetShared(context.Background(), shared.ShareToken)
	require.NoError(t, err)
	assert.Equal(t, list.ID, got.ID)

	_, err = env.lists.GetShared(context.Background(), original)
	assert.True(t, apperror.IsNotFound(err))

	unshared, err := env.lists.Update(env.owner, list.ID, lists.UpdatePatch{IsShared: boolPtr(false)}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, shared.ShareToken, unshared.ShareToken)

	_, err = env.lists.GetShared(context.Background(), shared.ShareToken)
	assert.True(t, apperror.IsNotFound(err))
}

func boolPtr(v bool) *bool { return &v }

func TestSoftDelete_CascadesToAllActiveItems(t *testing.T) {
	env := newTestEnv(t)
	list := env.mustCreateList(t, "Groceries")
	for _, name := range []string{"milk", "bread", "eggs"} {
		env.mustCreateItem(t, list.ID, name)
	}

	trashed, err := env.lists.SoftDelete(env.owner, list.ID)
	require.NoError(t, err)
	require.NotNil(t, trashed.DeletedAt)
	// lifecycle transitions never touch the version counter
	assert.Equal(t, 1, trashed.Version)

	res, err := env.items.ListTrashed(env.owner, domain.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.TotalCount)

	// the active view no longer knows the list
	_, err = env.lists.Get(env.owner, list.ID)
	assert.True(t, apperror.IsNotFound(err))
}

// cascadeFault lets the real cascade run, then fails the transaction.
type cascadeFault struct {
	lists.ItemCascader
}

func (c cascadeFault) TrashByList(ctx context.Context, listID id.ID, at time.Time) (int64, error) {
	if _, err := c.ItemCascader.TrashByList(ctx, listID, at); err != nil {
		return 0, err
	}
	return 0, errors.New("cascade interrupted")
}

func TestSoftDelete_CascadeFailureRollsBackEverything(t *testing.T) {
	env := newTestEnv(t)
	list := env.mustCreateList(t, "Groceries")
	env.mustCreateItem(t, list.ID, "milk")
	env.mustCreateItem(t, list.ID, "eggs")

	faulty := lists.NewService(env.store.Lists(), cascadeFault{env.store.Items()}, env.store)
	_, err := faulty.SoftDelete(env.owner, list.ID)
	require.Error(t, err)

	// All-or-nothing: the list and every item come out untouched.
	got, err := env.lists.Get(env.owner, list.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DeletedAt)
	assert.Equal(t, 1, got.Version)

	active, err := env.items.ListActive(env.owner, list.ID, domain.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, active.Items, 2)

	trashed, err := env.items.ListTrashed(env.owner, domain.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, trashed.Items)
}

func TestSoftDelete_Twice_ReportsNotFound(t *testing.T) {
	env := newTestEnv(t)
	list := env.mustCreateList(t, "Groceries")

	_, err := env.lists.SoftDelete(env.owner, list.ID)
	require.NoError(t, err)

	_, err = env.lists.SoftDelete(env.owner, list.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestRestore_BringsBackOnlyCascadedItems(t *testing.T) {
	env := newTestEnv(t)
	list := env.mustCreateList(t, "Groceries")
	kept := env.mustCreateItem(t, list.ID, "milk")
	removed := env.mustCreateItem(t, list.ID, "bread")

	// user trashes one item individually, then the whole list
	_, err := env.items.SoftDelete(env.owner, removed.ID)
	require.NoError(t, err)
	_, err = env.lists.SoftDelete(env.owner, list.ID)
	require.NoError(t, err)

	restored, err := env.lists.Restore(env.owner, list.ID)
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)
	assert.Equal(t, 1, restored.Version)

	// the cascaded item is back, the individually trashed one is not
	got, err := env.items.Get(env.owner, kept.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DeletedAt)

	_, err = env.items.Get(env.owner, removed.ID)
	assert.True(t, apperror.IsNotFound(err))

	res, err := env.items.ListTrashed(env.owner, domain.ListFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.TotalCount)
	assert.Equal(t, removed.ID, res.Items[0].ID)
}

func TestRestore_ActiveList_ReportsNotFound(t *testing.T) {
	env := newTestEnv(t)
	list := env.mustCreateList(t, "Groceries")

	_, err := env.lists.Restore(env.owner, list.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestPurge_ActiveListRejected(t *testing.T) {
	env := newTestEnv(t)
	list := env.mustCreateList(t, "Groceries")

	err := env.lists.Purge(env.admin, list.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsNotTrashed(err))
	assert.Equal(t, 422, apperror.GetHTTPStatus(err))

	// the record is untouched
	got, err := env.lists.Get(env.owner, list.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DeletedAt)
}

func TestPurge_RemovesListAndAllItems(t *testing.T) {
	env := newTestEnv(t)
	list := env.mustCreateList(t, "Groceries")
	item := env.mustCreateItem(t, list.ID, "milk")
	// one item already individually trashed, purge still takes it
	gone := env.mustCreateItem(t, list.ID, "bread")
	_, err := env.items.SoftDelete(env.owner, gone.ID)
	require.NoError(t, err)

	_, err = env.lists.SoftDelete(env.owner, list.ID)
	require.NoError(t, err)

	require.NoError(t, env.lists.Purge(env.admin, list.ID))

	_, err = env.lists.Get(env.admin, list.ID)
	assert.True(t, apperror.IsNotFound(err))
	_, err = env.items.Get(env.admin, item.ID)
	assert.True(t, apperror.IsNotFound(err))

	res, err := env.items.ListTrashed(env.admin, domain.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.TotalCount)
}

func TestPurge_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	list := env.mustCreateList(t, "Groceries")
	_, err := env.lists.SoftDelete(env.owner, list.ID)
	require.NoError(t, err)

	err = env.lists.Purge(env.owner, list.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)
}

func TestActiveAndTrashViewsPartition(t *testing.T) {
	env := newTestEnv(t)
	active := env.mustCreateList(t, "Groceries")
	trashed := env.mustCreateList(t, "Hardware store")
	_, err := env.lists.SoftDelete(env.owner, trashed.ID)
	require.NoError(t, err)

	activeRes, err := env.lists.ListActive(env.owner, domain.ListFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), activeRes.TotalCount)
	assert.Equal(t, active.ID, activeRes.Items[0].ID)

	trashRes, err := env.lists.ListTrashed(env.owner, domain.ListFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), trashRes.TotalCount)
	assert.Equal(t, trashed.ID, trashRes.Items[0].ID)
}

func TestListViews_ScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	env.mustCreateList(t, "Groceries")

	res, err := env.lists.ListActive(env.stranger, domain.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.TotalCount)

	// admins see everything
	res, err = env.lists.ListActive(env.admin, domain.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.TotalCount)
}

func TestStranger_CannotTouchForeignList(t *testing.T) {
	env := newTestEnv(t)
	list := env.mustCreateList(t, "Groceries")

	_, err := env.lists.Update(env.stranger, list.ID, lists.UpdatePatch{Title: strPtr("mine now")}, nil)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)

	_, err = env.lists.SoftDelete(env.stranger, list.ID)
	require.Error(t, err)
}

// Full lifecycle walk: trash with cascade, restore with cascade, trash
// again, purge. Versions are untouched throughout.
func TestLifecycle_TrashRestoreTrashPurge(t *testing.T) {
	env := newTestEnv(t)
	list := env.mustCreateList(t, "Groceries")
	item := env.mustCreateItem(t, list.ID, "milk")

	_, err := env.lists.SoftDelete(env.owner, list.ID)
	require.NoError(t, err)
	restored, err := env.lists.Restore(env.owner, list.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, restored.Version)

	got, err := env.items.Get(env.owner, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)

	_, err = env.lists.SoftDelete(env.owner, list.ID)
	require.NoError(t, err)
	require.NoError(t, env.lists.Purge(env.admin, list.ID))

	_, err = env.lists.Get(env.admin, list.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestCreate_ValidationFailures(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.lists.Create(env.owner, "", false)
	assert.True(t, apperror.IsValidation(err))

	_, err = env.lists.Create(env.owner, "   ", false)
	assert.True(t, apperror.IsValidation(err))

	_, err = env.lists.Create(context.Background(), "Groceries", false)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
}
