// Package entity defines the base record shape shared by all owned entities:
// an optimistic-locking version counter and a trash lifecycle driven by a
// nullable deletion timestamp.
package entity

import (
	"context"
	"time"

	"shoplist/internal/core/apperror"
	"shoplist/internal/core/id"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without database access).
type Validatable interface {
	// Validate checks entity invariants.
	// Returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}

// Lifecycle reports and mutates the trash state of a record.
// Implemented by Base; repositories rely on it for cascade handling.
type Lifecycle interface {
	IsTrashed() bool
	MarkTrashed(at time.Time)
	ClearTrashed()
}

// Base contains common fields for all owned records (lists, items).
//
// Version implements optimistic locking: it starts at 1 and advances by
// exactly 1 on every successful content update. Trash transitions
// (MarkTrashed/ClearTrashed) deliberately leave Version untouched - lifecycle
// state is not content, and mixing the two would make a restore look like a
// lost update to concurrent editors.
type Base struct {
	// ID is the primary key (UUIDv7), immutable after creation
	ID id.ID `db:"id" json:"id"`

	// Version for optimistic locking (incremented on each content update)
	Version int `db:"version" json:"version"`

	// DeletedAt is nil while the record is active and carries the trash
	// timestamp once it has been soft-deleted. Purged records simply no
	// longer exist; there is no third value of this field.
	DeletedAt *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`

	// Audit timestamps
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewBase creates a new Base with generated ID, version 1 and active state.
func NewBase() Base {
	now := time.Now().UTC()
	return Base{
		ID:        id.New(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch increments version and refreshes UpdatedAt. Called exactly once per
// successful content update, never on trash transitions.
func (b *Base) Touch() {
	b.Version++
	b.UpdatedAt = time.Now().UTC()
}

// CheckVersion validates a caller-supplied expected version against the
// record's current version.
//
// A nil expected version skips the check entirely (unconditional overwrite,
// kept for backward compatibility with clients that predate versioning).
// A non-positive value is a malformed request, not a conflict. A mismatch is
// reported with both versions so the caller can re-fetch and retry.
func (b *Base) CheckVersion(entityName string, expected *int) error {
	if expected == nil {
		return nil
	}
	if *expected < 1 {
		return apperror.NewValidation("version must be a positive integer").
			WithDetail("field", "version").
			WithDetail("value", *expected)
	}
	if *expected != b.Version {
		return apperror.NewVersionConflict(entityName, b.ID.String(), b.Version, *expected)
	}
	return nil
}

// IsTrashed reports whether the record is soft-deleted.
func (b *Base) IsTrashed() bool {
	return b.DeletedAt != nil
}

// MarkTrashed records the trash timestamp. Version is not touched.
func (b *Base) MarkTrashed(at time.Time) {
	at = at.UTC()
	b.DeletedAt = &at
}

// ClearTrashed returns the record to the active state. Version is not touched.
func (b *Base) ClearTrashed() {
	b.DeletedAt = nil
}
