package migration

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
)

func TestManager_RunMigrations_AppliesOnce(t *testing.T) {
	t.Parallel()

	db, err := Open(InMemoryTestSQLiteConfig())
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	fsys := fstest.MapFS{
		"m/001_notes.sql": {Data: []byte("CREATE TABLE notes (id TEXT PRIMARY KEY, body TEXT NOT NULL);")},
		"m/002_seed.sql":  {Data: []byte("INSERT INTO notes (id, body) VALUES ('n1', 'hello');")},
	}
	manager := NewManager(NewScanner(fsys, "m"), NewSQLiteExecutor(db), nil)
	ctx := context.Background()

	if err := manager.RunMigrations(ctx); err != nil {
		t.Fatalf("first RunMigrations returned error: %v", err)
	}
	if err := manager.RunMigrations(ctx); err != nil {
		t.Fatalf("second RunMigrations returned error: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notes").Scan(&count); err != nil {
		t.Fatalf("count notes: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected seed to run once, got %d rows", count)
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.CurrentVersion != "002" || len(status.Pending) != 0 || len(status.Applied) != 2 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestManager_RunMigrations_StopsOnFailure(t *testing.T) {
	t.Parallel()

	db, err := Open(InMemoryTestSQLiteConfig())
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	fsys := fstest.MapFS{
		"m/001_ok.sql":     {Data: []byte("CREATE TABLE ok (id TEXT);")},
		"m/002_broken.sql": {Data: []byte("CREATE TABLE broken (id TEXT);\nINSERT INTO missing VALUES (1);")},
	}
	manager := NewManager(NewScanner(fsys, "m"), NewSQLiteExecutor(db), nil)
	ctx := context.Background()

	err = manager.RunMigrations(ctx)
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}

	// The failing migration is rolled back as a whole.
	var name string
	err = db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'broken'").Scan(&name)
	if err == nil {
		t.Fatalf("expected table broken to be rolled back")
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.CurrentVersion != "001" || len(status.Pending) != 1 {
		t.Fatalf("unexpected status after failure: %+v", status)
	}
}

func TestManager_Status_DetectsEditedMigration(t *testing.T) {
	t.Parallel()

	db, err := Open(InMemoryTestSQLiteConfig())
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	original := fstest.MapFS{"m/001_t.sql": {Data: []byte("CREATE TABLE t (id TEXT);")}}
	if err := NewManager(NewScanner(original, "m"), NewSQLiteExecutor(db), nil).RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations returned error: %v", err)
	}

	edited := fstest.MapFS{"m/001_t.sql": {Data: []byte("CREATE TABLE t (id TEXT, extra TEXT);")}}
	_, err = NewManager(NewScanner(edited, "m"), NewSQLiteExecutor(db), nil).Status(ctx)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}
