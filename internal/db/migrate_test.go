package db

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadMigrationsOrdersAndSkips(t *testing.T) {
	source := fstest.MapFS{
		"010_indices.sql": {Data: []byte("CREATE INDEX x ON y (z);")},
		"002_extra.sql":   {Data: []byte("SELECT 2;")},
		"README.md":       {Data: []byte("docs")},
		"rascunho.sql":    {Data: []byte("SELECT 0;")},
	}

	migrations, err := LoadMigrations(source)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 2 || migrations[1].Version != 10 {
		t.Fatalf("unexpected order: %+v", migrations)
	}
}

func TestLoadMigrationsRejectsDuplicateVersion(t *testing.T) {
	source := fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"1_b.sql":   {Data: []byte("SELECT 1;")},
	}
	if _, err := LoadMigrations(source); err == nil {
		t.Fatalf("expected duplicate version error")
	}
}

func TestEmbeddedInitMigration(t *testing.T) {
	m := NewMigrator(nil)
	migrations, err := LoadMigrations(m.source)
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	if len(migrations) == 0 || migrations[0].Version != 1 {
		t.Fatalf("expected 001_init first, got %+v", migrations)
	}
	for _, table := range []string{"users", "cities", "collaborators", "patients", "procedures", "events", "patient_progress", "activity_logs"} {
		if !strings.Contains(migrations[0].SQL, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Fatalf("init migration missing table %s", table)
		}
	}
	if !strings.Contains(migrations[0].SQL, "status <> 'deactivated' OR deactivation_reason IS NOT NULL") {
		t.Fatalf("init migration missing deactivation check")
	}
}
