package db_test

import (
	"context"
	"testing"

	appdb "github.com/fiverrclaw/fiverrclaw/db"
	"github.com/fiverrclaw/fiverrclaw/internal/db"
)

func TestMigrateAppliesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	d, err := db.New(ctx, "file:migrate_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	defer d.Close()

	if err := db.Migrate(ctx, d, appdb.Migrations); err != nil {
		t.Fatalf("first Migrate: %v", err)
	}

	// all tables exist
	for _, table := range []string{"agents", "workers", "jobs", "comments"} {
		var name string
		row := d.QueryRow(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table)
		if err := row.Scan(&name); err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	// running again must not error or re-apply
	if err := db.Migrate(ctx, d, appdb.Migrations); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	var applied int
	row := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations`)
	if err := row.Scan(&applied); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if applied != 1 {
		t.Errorf("applied migrations = %d, want 1", applied)
	}
}
