// Package items provides the shopping list item: a child record whose trash
// lifecycle is coupled to its owning list.
package items

import (
	"context"
	"strings"

	"shoplist/internal/core/apperror"
	"shoplist/internal/core/entity"
	"shoplist/internal/core/id"
)

// MaxNameLen bounds the item name length.
const MaxNameLen = 200

// MaxQuantityLen bounds the free-text quantity field.
const MaxQuantityLen = 50

// Item represents a single entry on a shopping list.
type Item struct {
	entity.Base

	// ListID references the owning list (the parent identity)
	ListID id.ID `db:"list_id" json:"listId"`

	// Name is the display name
	Name string `db:"name" json:"name"`

	// Quantity is free text ("2", "1 Packung", "500g")
	Quantity string `db:"quantity" json:"quantity"`

	// IsChecked marks the item as bought
	IsChecked bool `db:"is_checked" json:"isChecked"`

	// OrderIndex controls display ordering within the list
	OrderIndex int `db:"order_index" json:"orderIndex"`

	// DeletedViaParent tags items trashed by a list cascade, as opposed to
	// items the user trashed individually. Restoring the list only brings
	// back cascade-tagged items.
	DeletedViaParent bool `db:"deleted_via_parent" json:"-"`
}

// New creates a new Item belonging to listID.
func New(listID id.ID, name, quantity string) *Item {
	if quantity == "" {
		quantity = "1"
	}
	return &Item{
		Base:     entity.NewBase(),
		ListID:   listID,
		Name:     name,
		Quantity: quantity,
	}
}

// Validate implements entity.Validatable.
func (i *Item) Validate(ctx context.Context) error {
	name := strings.TrimSpace(i.Name)
	if name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if len(name) > MaxNameLen {
		return apperror.NewValidation("name is too long").
			WithDetail("field", "name").
			WithDetail("max_length", MaxNameLen)
	}
	if len(i.Quantity) > MaxQuantityLen {
		return apperror.NewValidation("quantity is too long").
			WithDetail("field", "quantity").
			WithDetail("max_length", MaxQuantityLen)
	}
	if id.IsNil(i.ListID) {
		return apperror.NewValidation("list is required").
			WithDetail("field", "listId")
	}
	return nil
}
