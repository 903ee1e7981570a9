package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"shoplist/internal/core/entity"
	"shoplist/internal/core/id"
	"shoplist/internal/domain/items"
	"shoplist/internal/domain/lists"
)

func TestExtractDBColumns_List(t *testing.T) {
	cols := ExtractDBColumns[lists.List]()

	expected := []string{
		"id", "version", "deleted_at", "created_at", "updated_at",
		"title", "owner_id", "is_shared", "share_token",
	}
	for _, col := range expected {
		assert.Contains(t, cols, col)
	}
}

func TestExtractDBColumns_Item_SkipsUntaggedFields(t *testing.T) {
	cols := ExtractDBColumns[items.Item]()

	assert.Contains(t, cols, "deleted_via_parent")
	assert.Contains(t, cols, "order_index")
	assert.NotContains(t, cols, "")
	assert.NotContains(t, cols, "-")
}

func TestStructToMap_FlattensEmbeddedBase(t *testing.T) {
	now := time.Now().UTC()
	list := lists.List{
		Base: entity.Base{
			ID:        id.New(),
			Version:   4,
			DeletedAt: &now,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Title:    "Groceries",
		OwnerID:  id.New(),
		IsShared: true,
	}

	m := StructToMap(list)

	assert.Equal(t, list.ID, m["id"])
	assert.Equal(t, 4, m["version"])
	assert.Equal(t, &now, m["deleted_at"])
	assert.Equal(t, "Groceries", m["title"])
	assert.Equal(t, list.OwnerID, m["owner_id"])
	assert.Equal(t, true, m["is_shared"])
}

func TestStructToMap_NilPointer(t *testing.T) {
	var list *lists.List
	assert.Nil(t, StructToMap(list))
}
