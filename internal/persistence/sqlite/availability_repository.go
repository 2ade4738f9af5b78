package sqlite

import (
	"context"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
)

const availabilityColumns = `id, user_id, start_time, end_time, timezone, is_available, priority, reason,
	is_recurring, recurrence_pattern, created_at`

// AvailabilityRepository implements persistence.AvailabilityRepository using SQLite
type AvailabilityRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

// NewAvailabilityRepository creates a new SQLite availability repository
func NewAvailabilityRepository(pool *ConnectionPool) *AvailabilityRepository {
	return &AvailabilityRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    time.Now,
	}
}

// CreateAvailability stores a window for an existing user.
func (r *AvailabilityRepository) CreateAvailability(ctx context.Context, window persistence.AvailabilityWindow) error {
	if window.ID == "" || !window.End.After(window.Start) {
		return persistence.ErrConstraintViolation
	}
	if window.CreatedAt.IsZero() {
		window.CreatedAt = r.now()
	}

	query := `INSERT INTO availability_windows (` + availabilityColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.helper.Exec(ctx, query,
		window.ID,
		window.UserID,
		formatTime(window.Start),
		formatTime(window.End),
		window.Timezone,
		boolToInt(window.IsAvailable),
		window.Priority,
		window.Reason,
		boolToInt(window.IsRecurring),
		window.RecurrencePattern,
		formatTime(window.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// ListAvailability returns one-off windows overlapping the filter window and
// recurring windows whose series starts before it ends, ordered by start then ID.
func (r *AvailabilityRepository) ListAvailability(ctx context.Context, filter persistence.AvailabilityFilter) ([]persistence.AvailabilityWindow, error) {
	query := `
		SELECT ` + availabilityColumns + `
		FROM availability_windows
		WHERE user_id = ?
			AND start_time < ?
			AND (is_recurring = 1 OR end_time > ?)
	`
	args := []any{filter.UserID, formatTime(filter.Window.End), formatTime(filter.Window.Start)}
	if filter.OnlyUnavailable {
		query += " AND is_available = 0"
	}
	query += " ORDER BY start_time ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	windows := make([]persistence.AvailabilityWindow, 0)
	for rows.Next() {
		var (
			window                         persistence.AvailabilityWindow
			isAvailable, isRecurring       int
			startStr, endStr, createdAtStr string
		)
		if err := rows.Scan(
			&window.ID,
			&window.UserID,
			&startStr,
			&endStr,
			&window.Timezone,
			&isAvailable,
			&window.Priority,
			&window.Reason,
			&isRecurring,
			&window.RecurrencePattern,
			&createdAtStr,
		); err != nil {
			return nil, r.mapper.MapError(err)
		}
		window.IsAvailable = isAvailable != 0
		window.IsRecurring = isRecurring != 0
		if window.Start, err = parseTime("start_time", startStr); err != nil {
			return nil, err
		}
		if window.End, err = parseTime("end_time", endStr); err != nil {
			return nil, err
		}
		if window.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
			return nil, err
		}
		windows = append(windows, window)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return windows, nil
}
