// Package sqlite persists the calendar in a SQLite database through the pure
// Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store implements persistence.CalendarStore on top of a SQLite connection pool.
type Store struct {
	*UserRepository
	*MeetingRepository
	*ParticipantRepository
	*AvailabilityRepository

	pool *ConnectionPool
}

var _ persistence.CalendarStore = (*Store)(nil)

// Open connects to the database described by config and applies pending migrations.
func Open(ctx context.Context, config migration.SQLiteConfig, logger *slog.Logger) (*Store, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, err
	}
	return NewStore(pool), nil
}

// NewStore wraps an already migrated pool.
func NewStore(pool *ConnectionPool) *Store {
	return &Store{
		UserRepository:         NewUserRepository(pool),
		MeetingRepository:      NewMeetingRepository(pool),
		ParticipantRepository:  NewParticipantRepository(pool),
		AvailabilityRepository: NewAvailabilityRepository(pool),
		pool:                   pool,
	}
}

// Migrate applies the embedded schema migrations to pool.
func Migrate(ctx context.Context, pool *ConnectionPool, logger *slog.Logger) error {
	manager := migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(pool.DB()),
		logger,
	)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migrate calendar schema: %w", err)
	}
	return nil
}

// MigrationStatus reports applied and pending schema versions.
func MigrationStatus(ctx context.Context, pool *ConnectionPool, logger *slog.Logger) (migration.Status, error) {
	manager := migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(pool.DB()),
		logger,
	)
	return manager.Status(ctx)
}

// Pool exposes the underlying connection pool.
func (s *Store) Pool() *ConnectionPool {
	return s.pool
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}
