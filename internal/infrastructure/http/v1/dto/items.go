package dto

import (
	"time"

	"shoplist/internal/domain/items"
)

// ItemResponse contains item fields.
type ItemResponse struct {
	ID         string     `json:"id"`
	ListID     string     `json:"listId"`
	Name       string     `json:"name"`
	Quantity   string     `json:"quantity"`
	IsChecked  bool       `json:"isChecked"`
	OrderIndex int        `json:"orderIndex"`
	Version    int        `json:"version"`
	DeletedAt  *time.Time `json:"deletedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// FromItem creates ItemResponse from a domain item.
func FromItem(i *items.Item) ItemResponse {
	return ItemResponse{
		ID:         i.ID.String(),
		ListID:     i.ListID.String(),
		Name:       i.Name,
		Quantity:   i.Quantity,
		IsChecked:  i.IsChecked,
		OrderIndex: i.OrderIndex,
		Version:    i.Version,
		DeletedAt:  i.DeletedAt,
		CreatedAt:  i.CreatedAt,
		UpdatedAt:  i.UpdatedAt,
	}
}

// CreateItemRequest for creating items.
type CreateItemRequest struct {
	Name       string `json:"name" binding:"required"`
	Quantity   string `json:"quantity"`
	OrderIndex int    `json:"orderIndex"`
}

// UpdateItemRequest for updating items.
type UpdateItemRequest struct {
	Name            *string `json:"name"`
	Quantity        *string `json:"quantity"`
	IsChecked       *bool   `json:"isChecked"`
	OrderIndex      *int    `json:"orderIndex"`
	ExpectedVersion *int    `json:"expectedVersion"`
}
