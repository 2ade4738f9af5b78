package testfixtures

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/meeting-scheduler/internal/persistence/sqlite"
	"github.com/example/meeting-scheduler/internal/persistence/sqlite/migration"
)

// NewSQLiteStore opens a migrated in-memory SQLite store that is closed when
// the test finishes.
func NewSQLiteStore(tb testing.TB) *sqlite.Store {
	tb.Helper()
	return openSQLiteStore(tb, migration.InMemoryTestSQLiteConfig())
}

// NewSQLiteFileStore is NewSQLiteStore backed by a file in a temporary
// directory, for tests that need several connections or a reopen.
func NewSQLiteFileStore(tb testing.TB) (*sqlite.Store, string) {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "scheduler.db")
	return openSQLiteStore(tb, migration.TempFileTestSQLiteConfig(path)), path
}

func openSQLiteStore(tb testing.TB, config migration.SQLiteConfig) *sqlite.Store {
	tb.Helper()

	logger := slog.New(slog.DiscardHandler)
	store, err := sqlite.Open(context.Background(), config, logger)
	if err != nil {
		tb.Fatalf("failed to open sqlite store: %v", err)
	}
	tb.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
