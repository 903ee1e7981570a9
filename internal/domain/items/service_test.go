package items_test

import (
	"context"
	"sync"
	"testing"

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
	store *memory.Store
	lists *lists.Service
	items *items.Service
	owner context.Context
	admin context.Context
	list  *lists.List
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	listSvc := lists.NewService(store.Lists(), store.Items(), store)
	itemSvc := items.NewService(store.Items(), store.Lists(), store)

	owner := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:   id.New().String(),
		Username: "alice",
	})
	admin := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:   id.New().String(),
		Username: "root",
		IsAdmin:  true,
	})

	list, err := listSvc.Create(owner, "Groceries", false)
	require.NoError(t, err)

	return &testEnv{
		store: store,
		lists: listSvc,
		items: itemSvc,
		owner: owner,
		admin: admin,
		list:  list,
	}
}

func (e *testEnv) mustCreateItem(t *testing.T, name string) *items.Item {
	t.Helper()
	item, err := e.items.Create(e.owner, e.list.ID, name, "", 0)
	require.NoError(t, err)
	return item
}

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }

func TestCreate_DefaultsAndVersion(t *testing.T) {
	env := newTestEnv(t)

	item, err := env.items.Create(env.owner, env.list.ID, "milk", "", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, item.Version)
	assert.Equal(t, "1", item.Quantity)
	assert.Equal(t, 3, item.OrderIndex)
	assert.False(t, item.IsChecked)
}

func TestCreate_OnTrashedList_ReportsNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.lists.SoftDelete(env.owner, env.list.ID)
	require.NoError(t, err)

	_, err = env.items.Create(env.owner, env.list.ID, "milk", "", 0)
	assert.True(t, apperror.IsNotFound(err))
}

func TestCreate_ListTrashedBetweenValidationAndInsert_Rejected(t *testing.T) {
	env := newTestEnv(t)

	// The list goes to trash after the request is validated but before the
	// insert transaction starts, like a racing delete that commits first.
	env.items.Hooks().On(domain.BeforeCreate, func(ctx context.Context, _ *items.Item) error {
		_, err := env.lists.SoftDelete(ctx, env.list.ID)
		return err
	})

	_, err := env.items.Create(env.owner, env.list.ID, "milk", "", 0)
	assert.True(t, apperror.IsNotFound(err))

	// No orphan may survive: restoring the list must bring back nothing.
	_, err = env.lists.Restore(env.owner, env.list.ID)
	require.NoError(t, err)
	res, err := env.items.ListActive(env.owner, env.list.ID, domain.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestUpdate_VersionGate(t *testing.T) {
	env := newTestEnv(t)
	item := env.mustCreateItem(t, "milk")

	updated, err := env.items.Update(env.owner, item.ID, items.UpdatePatch{Quantity: strPtr("2")}, intPtr(1))
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "2", updated.Quantity)

	_, err = env.items.Update(env.owner, item.ID, items.UpdatePatch{Quantity: strPtr("3")}, intPtr(1))
	require.Error(t, err)
	require.True(t, apperror.IsConcurrentModification(err))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 2, appErr.Details["current_version"])
	assert.Equal(t, 1, appErr.Details["expected_version"])
}

func TestUpdate_ConcurrentCheckToggles_ExactlyOneWinner(t *testing.T) {
	env := newTestEnv(t)
	item := env.mustCreateItem(t, "milk")

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.items.Update(env.owner, item.ID, items.UpdatePatch{IsChecked: boolPtr(true)}, intPtr(1))
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			require.True(t, apperror.IsConcurrentModification(err))
		}
	}
	assert.Equal(t, 1, won)

	got, err := env.items.Get(env.owner, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.True(t, got.IsChecked)
}

func TestSoftDelete_ThenDoubleDelete(t *testing.T) {
	env := newTestEnv(t)
	item := env.mustCreateItem(t, "milk")

	trashed, err := env.items.SoftDelete(env.owner, item.ID)
	require.NoError(t, err)
	require.NotNil(t, trashed.DeletedAt)
	assert.Equal(t, 1, trashed.Version)

	_, err = env.items.SoftDelete(env.owner, item.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestRestore_IndividuallyTrashedItem(t *testing.T) {
	env := newTestEnv(t)
	item := env.mustCreateItem(t, "milk")

	_, err := env.items.SoftDelete(env.owner, item.ID)
	require.NoError(t, err)

	restored, err := env.items.Restore(env.owner, item.ID)
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)
	assert.Equal(t, 1, restored.Version)
}

func TestRestore_UnderTrashedParent_Rejected(t *testing.T) {
	env := newTestEnv(t)
	item := env.mustCreateItem(t, "milk")

	_, err := env.items.SoftDelete(env.owner, item.ID)
	require.NoError(t, err)
	_, err = env.lists.SoftDelete(env.owner, env.list.ID)
	require.NoError(t, err)

	// a child cannot become active under a trashed parent
	_, err = env.items.Restore(env.owner, item.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestPurge_Item(t *testing.T) {
	env := newTestEnv(t)
	item := env.mustCreateItem(t, "milk")

	// active items cannot be purged
	err := env.items.Purge(env.admin, item.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsNotTrashed(err))
	assert.Equal(t, 422, apperror.GetHTTPStatus(err))

	_, err = env.items.SoftDelete(env.owner, item.ID)
	require.NoError(t, err)

	// and only admins may purge
	err = env.items.Purge(env.owner, item.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)

	require.NoError(t, env.items.Purge(env.admin, item.ID))
	_, err = env.items.Get(env.admin, item.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestClearChecked(t *testing.T) {
	env := newTestEnv(t)
	milk := env.mustCreateItem(t, "milk")
	bread := env.mustCreateItem(t, "bread")
	env.mustCreateItem(t, "eggs")

	for _, it := range []*items.Item{milk, bread} {
		_, err := env.items.Update(env.owner, it.ID, items.UpdatePatch{IsChecked: boolPtr(true)}, nil)
		require.NoError(t, err)
	}

	count, err := env.items.ClearChecked(env.owner, env.list.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	res, err := env.items.ListActive(env.owner, env.list.ID, domain.ListFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.TotalCount)
	assert.Equal(t, "eggs", res.Items[0].Name)

	// cleared items were direct deletes: a list restore round trip must
	// not resurrect them
	_, err = env.lists.SoftDelete(env.owner, env.list.ID)
	require.NoError(t, err)
	_, err = env.lists.Restore(env.owner, env.list.ID)
	require.NoError(t, err)

	res, err = env.items.ListActive(env.owner, env.list.ID, domain.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.TotalCount)
}

func TestListActive_OrderedByOrderIndex(t *testing.T) {
	env := newTestEnv(t)
	order := map[string]int{"third": 2, "first": 0, "second": 1}
	for name, idx := range order {
		_, err := env.items.Create(env.owner, env.list.ID, name, "", idx)
		require.NoError(t, err)
	}

	res, err := env.items.ListActive(env.owner, env.list.ID, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, "first", res.Items[0].Name)
	assert.Equal(t, "second", res.Items[1].Name)
	assert.Equal(t, "third", res.Items[2].Name)
}

func TestValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.items.Create(env.owner, env.list.ID, "", "", 0)
	assert.True(t, apperror.IsValidation(err))

	_, err = env.items.Update(env.owner, env.mustCreateItem(t, "milk").ID, items.UpdatePatch{Name: strPtr("  ")}, nil)
	assert.True(t, apperror.IsValidation(err))
}
