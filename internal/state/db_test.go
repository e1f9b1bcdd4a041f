package state

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// tempDBPath returns a path to a temp database file.
func tempDBPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "test.db")
}

// setupTestDB creates a new temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestOpen(t *testing.T) {
	path := tempDBPath(t)
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if db.Driver() != DriverSQLite {
		t.Errorf("Driver() = %q, want %q", db.Driver(), DriverSQLite)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("database file does not exist at %s", path)
	}
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")
	path := filepath.Join(nested, "test.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(nested); os.IsNotExist(err) {
		t.Errorf("parent directories not created: %s", nested)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	// On Linux, we can't create files under /proc.
	_, err := Open("/proc/nonexistent/test.db")
	if err == nil {
		t.Error("expected error opening db at invalid path")
	}
}

func TestOpenWithDriver_Unsupported(t *testing.T) {
	_, err := OpenWithDriver("postgres", tempDBPath(t))
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestClose(t *testing.T) {
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	_, err = db.queryContext(context.Background(), "SELECT 1")
	if err == nil {
		t.Error("expected error after close, got nil")
	}
}

func TestMigrate(t *testing.T) {
	db := setupTestDB(t)

	tables := []string{"schema_version", "profiles", "tasks", "subtasks"}
	for _, table := range tables {
		var count int
		row := db.queryRowContext(context.Background(), "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table)
		if err := row.Scan(&count); err != nil {
			t.Errorf("failed to check table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	for i := 0; i < 3; i++ {
		if err := db.Migrate(); err != nil {
			t.Fatalf("Migrate (iteration %d) failed: %v", i, err)
		}
	}

	var version int
	row := db.queryRowContext(context.Background(), "SELECT MAX(version) FROM schema_version")
	if err := row.Scan(&version); err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != 3 {
		t.Errorf("schema version = %d, want 3", version)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	db := setupTestDB(t)

	err := db.Transaction(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO subtasks (id, task_id, depth, title, difficulty, estimated_minutes, created_at)
			VALUES ('s1', 'no-such-task', 0, 'orphan', 'easy', 10, '2026-01-01T00:00:00Z')`)
		return err
	})
	if err == nil {
		t.Fatal("expected foreign key violation for orphan subtask")
	}
}

func TestTransaction_Rollback(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO profiles (user_id, updated_at) VALUES ('u1', '2026-01-01T00:00:00Z')`)
		if err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction error = %v, want boom", err)
	}

	var count int
	if err := db.queryRowContext(ctx, "SELECT COUNT(*) FROM profiles").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d after rollback, want 0", count)
	}
}

func TestDefaultDBPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")

	path := DefaultDBPath()
	expected := "/custom/data/stepwise/stepwise.db"
	if path != expected {
		t.Errorf("DefaultDBPath() = %q, want %q", path, expected)
	}
}

func TestFormatAndParseTime(t *testing.T) {
	original := time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)
	parsed, err := parseTime(formatTime(original))
	if err != nil {
		t.Fatalf("parseTime failed: %v", err)
	}
	if !parsed.Equal(original) {
		t.Errorf("parsed time = %v, want %v", parsed, original)
	}
}

func TestParseNullableTime(t *testing.T) {
	if got := parseNullableTime(sql.NullString{Valid: false}); got != nil {
		t.Errorf("parseNullableTime(invalid) = %v, want nil", got)
	}
	if got := parseNullableTime(sql.NullString{String: "garbage", Valid: true}); got != nil {
		t.Errorf("parseNullableTime(garbage) = %v, want nil", got)
	}
	got := parseNullableTime(sql.NullString{String: "2026-06-15T10:30:00Z", Valid: true})
	if got == nil || got.Year() != 2026 {
		t.Errorf("parseNullableTime(valid) = %v", got)
	}
}

func TestNullableInt(t *testing.T) {
	if v := nullableInt(nil); v.Valid {
		t.Error("nullableInt(nil) should be NULL")
	}
	n := 7
	if got := parseNullableInt(nullableInt(&n)); got == nil || *got != 7 {
		t.Errorf("round trip = %v, want 7", got)
	}
}
