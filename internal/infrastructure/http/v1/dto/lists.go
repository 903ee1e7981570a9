package dto

import (
	"time"

	"shoplist/internal/domain/lists"
)

// ListRecordResponse contains shopping list fields.
type ListRecordResponse struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	OwnerID    string     `json:"ownerId"`
	IsShared   bool       `json:"isShared"`
	ShareToken string     `json:"shareToken,omitempty"`
	Version    int        `json:"version"`
	DeletedAt  *time.Time `json:"deletedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// FromList creates ListRecordResponse from a domain list.
func FromList(l *lists.List) ListRecordResponse {
	resp := ListRecordResponse{
		ID:        l.ID.String(),
		Title:     l.Title,
		OwnerID:   l.OwnerID.String(),
		IsShared:  l.IsShared,
		Version:   l.Version,
		DeletedAt: l.DeletedAt,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
	if l.IsShared {
		resp.ShareToken = l.ShareToken
	}
	return resp
}

// SharedListResponse is the anonymous view of a shared list. It hides the
// owner and the version machinery.
type SharedListResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// FromSharedList creates SharedListResponse.
func FromSharedList(l *lists.List) SharedListResponse {
	return SharedListResponse{
		ID:    l.ID.String(),
		Title: l.Title,
	}
}

// CreateListRequest for creating lists.
type CreateListRequest struct {
	Title    string `json:"title" binding:"required"`
	IsShared bool   `json:"isShared"`
}

// UpdateListRequest for updating lists. ExpectedVersion is the version the
// client last saw; omitting it makes the update unconditional.
type UpdateListRequest struct {
	Title           *string `json:"title"`
	IsShared        *bool   `json:"isShared"`
	ExpectedVersion *int    `json:"expectedVersion"`
}
