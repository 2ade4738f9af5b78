package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
)

const userColumns = `id, name, email, role, timezone, work_start_hour, work_end_hour, work_days,
	max_meetings_per_day, preferred_meeting_duration, buffer_time, created_at, updated_at`

// UserRepository implements persistence.UserRepository using SQLite
type UserRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

// NewUserRepository creates a new SQLite user repository
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    time.Now,
	}
}

// CreateUser inserts a new user. Zero timestamps are filled with the current time.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.now()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.helper.Exec(ctx, query,
		user.ID,
		user.Name,
		normalizeEmail(user.Email),
		string(user.Role),
		user.Timezone,
		user.WorkStartHour,
		user.WorkEndHour,
		persistence.FormatWorkDays(user.WorkDays),
		user.MaxMeetingsPerDay,
		user.PreferredMeetingDuration,
		user.BufferTime,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateUser replaces the mutable profile fields of an existing user.
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" {
		return persistence.ErrNotFound
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = r.now()
	}

	query := `
		UPDATE users
		SET name = ?, email = ?, role = ?, timezone = ?, work_start_hour = ?, work_end_hour = ?,
			work_days = ?, max_meetings_per_day = ?, preferred_meeting_duration = ?, buffer_time = ?,
			updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		user.Name,
		normalizeEmail(user.Email),
		string(user.Role),
		user.Timezone,
		user.WorkStartHour,
		user.WorkEndHour,
		persistence.FormatWorkDays(user.WorkDays),
		user.MaxMeetingsPerDay,
		user.PreferredMeetingDuration,
		user.BufferTime,
		formatTime(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetUser retrieves a user by ID from the database
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email address, ignoring case.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	if email == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, normalizeEmail(email))
	user, err := scanUser(row)
	if err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}
	return user, nil
}

// ListUsers returns the requested users, or every user when ids is nil,
// ordered by creation timestamp then ID.
func (r *UserRepository) ListUsers(ctx context.Context, ids []string) ([]persistence.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if ids != nil {
		if len(ids) == 0 {
			return []persistence.User{}, nil
		}
		query += ` WHERE id IN (` + placeholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	users := make([]persistence.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return users, nil
}

func scanUser(row rowScanner) (persistence.User, error) {
	var (
		user                     persistence.User
		role, workDays           string
		createdAtStr, updatedStr string
	)
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&role,
		&user.Timezone,
		&user.WorkStartHour,
		&user.WorkEndHour,
		&workDays,
		&user.MaxMeetingsPerDay,
		&user.PreferredMeetingDuration,
		&user.BufferTime,
		&createdAtStr,
		&updatedStr,
	)
	if err != nil {
		return persistence.User{}, err
	}

	user.Role = persistence.Role(role)
	if user.WorkDays, err = persistence.ParseWorkDays(workDays); err != nil {
		return persistence.User{}, fmt.Errorf("user %s: %w", user.ID, err)
	}
	if user.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTime("updated_at", updatedStr); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// normalizeEmail normalizes email addresses for consistent storage and lookup
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
