package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/meeting-scheduler/internal/persistence/storetest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "calendar.db")
	store, err := Open(context.Background(), migration.TempFileTestSQLiteConfig(dbPath), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_CalendarStoreContract(t *testing.T) {
	t.Parallel()

	storetest.Run(t, func(t *testing.T) persistence.CalendarStore {
		return openTestStore(t)
	})
}

func TestStore_InMemoryDatabase(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := Open(ctx, migration.InMemoryTestSQLiteConfig(), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	status, err := MigrationStatus(ctx, store.Pool(), nil)
	if err != nil {
		t.Fatalf("MigrationStatus failed: %v", err)
	}
	if status.CurrentVersion != "001" || len(status.Pending) != 0 {
		t.Fatalf("unexpected migration status: %+v", status)
	}
}

func TestStore_ReopenKeepsData(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "calendar.db")
	config := migration.TempFileTestSQLiteConfig(dbPath)

	first, err := Open(ctx, config, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	created := time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)
	if err := first.CreateUser(ctx, storetest.User("alice", "alice@example.com", created)); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	first.Close()

	second, err := Open(ctx, config, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	user, err := second.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUser after reopen failed: %v", err)
	}
	if !user.CreatedAt.Equal(created) {
		t.Fatalf("expected created_at %v, got %v", created, user.CreatedAt)
	}
}

func TestStore_RejectsInvalidRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	created := time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)

	user := storetest.User("alice", "alice@example.com", created)
	user.WorkStartHour, user.WorkEndHour = 18, 9
	if err := store.CreateUser(ctx, user); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for inverted work hours, got %v", err)
	}

	if err := store.CreateUser(ctx, storetest.User("bob", "bob@example.com", created)); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	meeting := storetest.Meeting("m1", "bob", created, time.Hour)
	meeting.Type = "brainstorm"
	if err := store.CreateMeeting(ctx, meeting); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for unknown type, got %v", err)
	}
}

func TestTimeLayoutSortsChronologically(t *testing.T) {
	t.Parallel()

	// 09:00 PST is 17:00 UTC, so it sorts after 10:00 UTC.
	pacific := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.FixedZone("PST", -8*3600))
	utc := time.Date(2024, time.March, 4, 10, 0, 0, 500, time.UTC)
	if formatTime(utc) >= formatTime(pacific) {
		t.Fatalf("expected %s < %s", formatTime(utc), formatTime(pacific))
	}
	parsed, err := parseTime("start_time", formatTime(pacific))
	if err != nil {
		t.Fatalf("parseTime failed: %v", err)
	}
	if !parsed.Equal(pacific) {
		t.Fatalf("expected %v, got %v", pacific, parsed)
	}
}
