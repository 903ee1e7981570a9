// Package lists provides the shopping list aggregate: the parent record of
// items, owned by a user and optionally shared through an opaque token.
package lists

import (
	"context"
	"strings"

	"shoplist/internal/core/apperror"
	"shoplist/internal/core/entity"
	"shoplist/internal/core/id"
)

// MaxTitleLen bounds the list title length.
const MaxTitleLen = 200

// List represents a shopping list.
type List struct {
	entity.Base

	// Title is the display name
	Title string `db:"title" json:"title"`

	// OwnerID references the owning user
	OwnerID id.ID `db:"owner_id" json:"ownerId"`

	// IsShared enables anonymous read access via ShareToken
	IsShared bool `db:"is_shared" json:"isShared"`

	// ShareToken is the opaque token embedded in share URLs. It is
	// regenerated whenever IsShared flips so stale URLs stop working.
	ShareToken string `db:"share_token" json:"shareToken"`
}

// New creates a new List owned by ownerID.
func New(title string, ownerID id.ID) *List {
	return &List{
		Base:       entity.NewBase(),
		Title:      title,
		OwnerID:    ownerID,
		ShareToken: id.NewShareToken(),
	}
}

// Validate implements entity.Validatable.
func (l *List) Validate(ctx context.Context) error {
	title := strings.TrimSpace(l.Title)
	if title == "" {
		return apperror.NewValidation("title is required").
			WithDetail("field", "title")
	}
	if len(title) > MaxTitleLen {
		return apperror.NewValidation("title is too long").
			WithDetail("field", "title").
			WithDetail("max_length", MaxTitleLen)
	}
	if id.IsNil(l.OwnerID) {
		return apperror.NewValidation("owner is required").
			WithDetail("field", "ownerId")
	}
	return nil
}

// SetShared toggles sharing. Flipping the flag in either direction rotates
// the share token, invalidating previously handed-out URLs.
func (l *List) SetShared(shared bool) {
	if l.IsShared != shared {
		l.ShareToken = id.NewShareToken()
	}
	l.IsShared = shared
}

// IsOwnedBy reports whether userID owns this list.
func (l *List) IsOwnedBy(userID id.ID) bool {
	return l.OwnerID == userID
}
