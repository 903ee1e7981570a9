package entity

import (
	"testing"
	"time"

	"shoplist/internal/core/apperror"
)

func intPtr(v int) *int { return &v }

func TestNewBase(t *testing.T) {
	b := NewBase()

	if b.Version != 1 {
		t.Errorf("new record version = %d, want 1", b.Version)
	}
	if b.DeletedAt != nil {
		t.Errorf("new record must be active, got DeletedAt = %v", b.DeletedAt)
	}
	if b.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("new record must have a generated ID")
	}
}

func TestTouch_IncrementsByExactlyOne(t *testing.T) {
	b := NewBase()

	for want := 2; want <= 5; want++ {
		b.Touch()
		if b.Version != want {
			t.Fatalf("after Touch version = %d, want %d", b.Version, want)
		}
	}
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		expected *int
		wantCode string
	}{
		{name: "nil skips check", current: 7, expected: nil, wantCode: ""},
		{name: "matching version passes", current: 3, expected: intPtr(3), wantCode: ""},
		{name: "zero is malformed", current: 1, expected: intPtr(0), wantCode: apperror.CodeValidation},
		{name: "negative is malformed", current: 1, expected: intPtr(-5), wantCode: apperror.CodeValidation},
		{name: "stale version conflicts", current: 4, expected: intPtr(3), wantCode: apperror.CodeConcurrentModification},
		{name: "future version conflicts", current: 1, expected: intPtr(6), wantCode: apperror.CodeConcurrentModification},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBase()
			b.Version = tt.current

			err := b.CheckVersion("record", tt.expected)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			appErr, ok := apperror.AsAppError(err)
			if !ok {
				t.Fatalf("expected AppError, got %T: %v", err, err)
			}
			if appErr.Code != tt.wantCode {
				t.Errorf("error code = %s, want %s", appErr.Code, tt.wantCode)
			}
		})
	}
}

func TestCheckVersion_ConflictCarriesBothVersions(t *testing.T) {
	b := NewBase()
	b.Version = 2

	err := b.CheckVersion("list", intPtr(1))
	appErr, ok := apperror.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %v", err)
	}
	if got := appErr.Details["current_version"]; got != 2 {
		t.Errorf("current_version = %v, want 2", got)
	}
	if got := appErr.Details["expected_version"]; got != 1 {
		t.Errorf("expected_version = %v, want 1", got)
	}
}

func TestTrashTransitions_DoNotTouchVersion(t *testing.T) {
	b := NewBase()
	b.Touch() // version 2

	b.MarkTrashed(time.Now())
	if !b.IsTrashed() {
		t.Fatal("record must report trashed after MarkTrashed")
	}
	if b.Version != 2 {
		t.Errorf("trash changed version to %d, want 2", b.Version)
	}

	b.ClearTrashed()
	if b.IsTrashed() {
		t.Fatal("record must be active after ClearTrashed")
	}
	if b.Version != 2 {
		t.Errorf("restore changed version to %d, want 2", b.Version)
	}
}

func TestMarkTrashed_StoresUTC(t *testing.T) {
	b := NewBase()
	loc := time.FixedZone("UTC+3", 3*3600)
	b.MarkTrashed(time.Date(2026, 1, 15, 12, 0, 0, 0, loc))

	if b.DeletedAt.Location() != time.UTC {
		t.Errorf("DeletedAt location = %v, want UTC", b.DeletedAt.Location())
	}
	if b.DeletedAt.Hour() != 9 {
		t.Errorf("DeletedAt hour = %d, want 9 (12:00 UTC+3)", b.DeletedAt.Hour())
	}
}
