package record_repo

import (
	"testing"
	"time"

	"github.com/Masterminds/squirrel"

	"shoplist/internal/core/id"
)

func newTestRepo() *BaseRecordRepo[any] {
	return NewBaseRecordRepo[any](nil, "record", "records",
		[]string{"id", "version", "deleted_at", "name", "created_at", "updated_at"},
		func() any { return nil })
}

func TestUpdate_SQLGatesOnVersionAndActiveState(t *testing.T) {
	repo := newTestRepo()
	entityID := id.New()

	q := repo.Builder().
		Update(repo.tableName).
		Set("name", "renamed").
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": entityID}).
		Where(squirrel.Eq{"version": 3}).
		Where(squirrel.Eq{"deleted_at": nil})

	sql, args, err := q.ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}

	wantSQL := "UPDATE records SET name = $1, version = version + 1 WHERE id = $2 AND version = $3 AND deleted_at IS NULL"
	if sql != wantSQL {
		t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", wantSQL, sql)
	}
	if len(args) != 3 || args[2] != 3 {
		t.Errorf("Args mismatch: %v", args)
	}
}

func TestTrash_SQLOnlyTouchesActiveRows(t *testing.T) {
	repo := newTestRepo()
	entityID := id.New()
	at := time.Now().UTC()

	q := repo.Builder().
		Update(repo.tableName).
		Set("deleted_at", at).
		Where(squirrel.Eq{"id": entityID}).
		Where(squirrel.Eq{"deleted_at": nil})

	sql, _, err := q.ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}

	wantSQL := "UPDATE records SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL"
	if sql != wantSQL {
		t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", wantSQL, sql)
	}
}

func TestRestore_SQLOnlyTouchesTrashedRows(t *testing.T) {
	repo := newTestRepo()
	entityID := id.New()

	q := repo.Builder().
		Update(repo.tableName).
		Set("deleted_at", nil).
		Where(squirrel.Eq{"id": entityID}).
		Where(squirrel.NotEq{"deleted_at": nil})

	sql, _, err := q.ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}

	wantSQL := "UPDATE records SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NOT NULL"
	if sql != wantSQL {
		t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", wantSQL, sql)
	}
}

func TestGetForUpdate_SQLAddsRowLock(t *testing.T) {
	repo := newTestRepo()
	entityID := id.New()

	q := repo.baseSelect().
		Where(squirrel.Eq{"id": entityID}).
		Limit(1).
		Suffix("FOR UPDATE")

	sql, _, err := q.ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}

	wantSQL := "SELECT records.id, records.version, records.deleted_at, records.name, records.created_at, records.updated_at FROM records WHERE id = $1 LIMIT 1 FOR UPDATE"
	if sql != wantSQL {
		t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", wantSQL, sql)
	}
}

func TestParseOrderBy(t *testing.T) {
	repo := newTestRepo()

	tests := []struct {
		in      string
		def     string
		want    string
		wantErr bool
	}{
		{in: "", def: "created_at", want: "records.created_at ASC"},
		{in: "name", def: "created_at", want: "records.name ASC"},
		{in: "-deleted_at", def: "created_at", want: "records.deleted_at DESC"},
		{in: "password; DROP TABLE records", def: "created_at", wantErr: true},
		{in: "unknown_col", def: "created_at", wantErr: true},
	}

	for _, tt := range tests {
		got, err := repo.parseOrderBy(tt.in, tt.def)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseOrderBy(%q): expected error, got %q", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseOrderBy(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseOrderBy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
