package gormrepo

import (
	"io/fs"
	"testing"
	"testing/fstest"
)

func TestMigrationNames_SortedSQLOnly(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_b.sql":      {Data: []byte("SELECT 1;")},
		"0001_a.sql":      {Data: []byte("SELECT 1;")},
		"README.md":       {Data: []byte("notes")},
		"nested/0003.sql": {Data: []byte("SELECT 1;")},
	}
	got, err := migrationNames(fsys)
	if err != nil {
		t.Fatalf("migrationNames error: %v", err)
	}
	if len(got) != 2 || got[0] != "0001_a.sql" || got[1] != "0002_b.sql" {
		t.Fatalf("unexpected migration order: %v", got)
	}
}

func TestMigrationNames_BundledSchema(t *testing.T) {
	got, err := migrationNames(mustSub(t))
	if err != nil {
		t.Fatalf("migrationNames error: %v", err)
	}
	if len(got) == 0 || got[0] != "0001_world_slots.sql" {
		t.Fatalf("expected bundled world_slots migration, got %v", got)
	}
}

func mustSub(t *testing.T) fs.FS {
	t.Helper()
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	return sub
}
