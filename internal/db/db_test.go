package db

import (
	"strings"
	"testing"
)

func TestDSN(t *testing.T) {
	got := dsn("inventory.sqlite3")
	for _, want := range []string{"_pragma=journal_mode(WAL)", "_pragma=foreign_keys(1)", "_txlock=immediate"} {
		if !strings.Contains(got, want) {
			t.Errorf("dsn missing %q: %s", want, got)
		}
	}
	if !strings.HasPrefix(got, "inventory.sqlite3?") {
		t.Errorf("unexpected dsn prefix: %s", got)
	}

	mem := dsn(":memory:")
	if strings.Contains(mem, "journal_mode") {
		t.Errorf("memory dsn should skip WAL: %s", mem)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	database := NewTestDB(t)
	if err := Migrate(database); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	var count int
	if err := database.Get(&count, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'alerts'`); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected alerts table, got count %d", count)
	}
}
