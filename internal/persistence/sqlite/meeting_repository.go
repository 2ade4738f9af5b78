package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
)

const meetingColumns = `id, title, description, meeting_type, start_time, end_time, timezone, location,
	meeting_url, agenda, organizer_id, status, effectiveness_score, productivity_rating, engagement_level,
	created_at, updated_at`

// MeetingRepository implements persistence.MeetingRepository using SQLite
type MeetingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

// NewMeetingRepository creates a new SQLite meeting repository
func NewMeetingRepository(pool *ConnectionPool) *MeetingRepository {
	return &MeetingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    time.Now,
	}
}

// CreateMeeting inserts a meeting without participants.
func (r *MeetingRepository) CreateMeeting(ctx context.Context, meeting persistence.Meeting) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		return r.insertMeeting(ctx, tx, meeting)
	})
}

// ScheduleMeeting inserts a meeting and its participants in one transaction.
func (r *MeetingRepository) ScheduleMeeting(ctx context.Context, meeting persistence.Meeting, participants []persistence.Participant) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := r.insertMeeting(ctx, tx, meeting); err != nil {
			return err
		}
		for _, participant := range participants {
			participant.MeetingID = meeting.ID
			if err := insertParticipant(ctx, r.helper, tx, participant); err != nil {
				return r.mapper.MapError(err)
			}
		}
		return nil
	})
}

func (r *MeetingRepository) insertMeeting(ctx context.Context, tx *sql.Tx, meeting persistence.Meeting) error {
	if meeting.ID == "" || !meeting.End.After(meeting.Start) {
		return persistence.ErrConstraintViolation
	}
	if meeting.Status == "" {
		meeting.Status = persistence.MeetingStatusScheduled
	}
	if meeting.CreatedAt.IsZero() {
		meeting.CreatedAt = r.now()
	}
	if meeting.UpdatedAt.IsZero() {
		meeting.UpdatedAt = meeting.CreatedAt
	}

	query := `INSERT INTO meetings (` + meetingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.helper.ExecTx(ctx, tx, query,
		meeting.ID,
		meeting.Title,
		meeting.Description,
		string(meeting.Type),
		formatTime(meeting.Start),
		formatTime(meeting.End),
		meeting.Timezone,
		meeting.Location,
		meeting.MeetingURL,
		meeting.Agenda,
		meeting.OrganizerID,
		string(meeting.Status),
		nullableFloat(meeting.EffectivenessScore),
		nullableFloat(meeting.ProductivityRating),
		nullableFloat(meeting.EngagementLevel),
		formatTime(meeting.CreatedAt),
		formatTime(meeting.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateMeeting replaces every mutable column of an existing meeting.
func (r *MeetingRepository) UpdateMeeting(ctx context.Context, meeting persistence.Meeting) error {
	if !meeting.End.After(meeting.Start) {
		return persistence.ErrConstraintViolation
	}
	if meeting.UpdatedAt.IsZero() {
		meeting.UpdatedAt = r.now()
	}

	query := `
		UPDATE meetings
		SET title = ?, description = ?, meeting_type = ?, start_time = ?, end_time = ?, timezone = ?,
			location = ?, meeting_url = ?, agenda = ?, organizer_id = ?, status = ?,
			effectiveness_score = ?, productivity_rating = ?, engagement_level = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		meeting.Title,
		meeting.Description,
		string(meeting.Type),
		formatTime(meeting.Start),
		formatTime(meeting.End),
		meeting.Timezone,
		meeting.Location,
		meeting.MeetingURL,
		meeting.Agenda,
		meeting.OrganizerID,
		string(meeting.Status),
		nullableFloat(meeting.EffectivenessScore),
		nullableFloat(meeting.ProductivityRating),
		nullableFloat(meeting.EngagementLevel),
		formatTime(meeting.UpdatedAt),
		meeting.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetMeeting retrieves a meeting by ID.
func (r *MeetingRepository) GetMeeting(ctx context.Context, id string) (persistence.Meeting, error) {
	if id == "" {
		return persistence.Meeting{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id)
	meeting, err := scanMeeting(row)
	if err != nil {
		return persistence.Meeting{}, r.mapper.MapError(err)
	}
	return meeting, nil
}

// ListMeetings returns meetings matching filter ordered by start time then ID.
func (r *MeetingRepository) ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.OrganizerID != "" {
		conditions = append(conditions, "m.organizer_id = ?")
		args = append(args, filter.OrganizerID)
	}
	if filter.UserID != "" {
		conditions = append(conditions, `(m.organizer_id = ? OR EXISTS (
			SELECT 1 FROM meeting_participants p WHERE p.meeting_id = m.id AND p.user_id = ?))`)
		args = append(args, filter.UserID, filter.UserID)
	}
	if filter.Window != nil {
		if filter.Match == persistence.MatchStart {
			conditions = append(conditions, "m.start_time >= ? AND m.start_time < ?")
			args = append(args, formatTime(filter.Window.Start), formatTime(filter.Window.End))
		} else {
			conditions = append(conditions, "m.start_time < ? AND m.end_time > ?")
			args = append(args, formatTime(filter.Window.End), formatTime(filter.Window.Start))
		}
	}
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, "m.status IN ("+placeholders(len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, string(status))
		}
	}

	query := `SELECT ` + prefixColumns("m", meetingColumns) + ` FROM meetings m`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY m.start_time ASC, m.id ASC"
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, filter.Offset)
	}

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	meetings := make([]persistence.Meeting, 0)
	for rows.Next() {
		meeting, err := scanMeeting(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		meetings = append(meetings, meeting)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return meetings, nil
}

// CountMeetingsOnDay counts the user's scheduled meetings starting inside day.
func (r *MeetingRepository) CountMeetingsOnDay(ctx context.Context, userID string, day persistence.TimeRange) (int, error) {
	query := `
		SELECT COUNT(*) FROM meetings m
		WHERE m.status = ?
			AND m.start_time >= ? AND m.start_time < ?
			AND (m.organizer_id = ? OR EXISTS (
				SELECT 1 FROM meeting_participants p WHERE p.meeting_id = m.id AND p.user_id = ?))
	`
	var count int
	err := r.helper.QueryRow(ctx, query,
		string(persistence.MeetingStatusScheduled),
		formatTime(day.Start),
		formatTime(day.End),
		userID,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

// UpdateMeetingScores writes the non-nil scores onto a meeting.
func (r *MeetingRepository) UpdateMeetingScores(ctx context.Context, meetingID string, scores persistence.MeetingScores) error {
	query := `
		UPDATE meetings
		SET effectiveness_score = COALESCE(?, effectiveness_score),
			productivity_rating = COALESCE(?, productivity_rating),
			engagement_level = COALESCE(?, engagement_level),
			updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		nullableFloat(scores.Effectiveness),
		nullableFloat(scores.Productivity),
		nullableFloat(scores.Engagement),
		formatTime(r.now()),
		meetingID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func scanMeeting(row rowScanner) (persistence.Meeting, error) {
	var (
		meeting                                  persistence.Meeting
		meetingType, status                      string
		startStr, endStr, createdStr, updatedStr string
		effectiveness, productivity, engagement  sql.NullFloat64
	)
	err := row.Scan(
		&meeting.ID,
		&meeting.Title,
		&meeting.Description,
		&meetingType,
		&startStr,
		&endStr,
		&meeting.Timezone,
		&meeting.Location,
		&meeting.MeetingURL,
		&meeting.Agenda,
		&meeting.OrganizerID,
		&status,
		&effectiveness,
		&productivity,
		&engagement,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return persistence.Meeting{}, err
	}

	meeting.Type = persistence.MeetingType(meetingType)
	meeting.Status = persistence.MeetingStatus(status)
	meeting.EffectivenessScore = floatFromNull(effectiveness)
	meeting.ProductivityRating = floatFromNull(productivity)
	meeting.EngagementLevel = floatFromNull(engagement)
	if meeting.Start, err = parseTime("start_time", startStr); err != nil {
		return persistence.Meeting{}, err
	}
	if meeting.End, err = parseTime("end_time", endStr); err != nil {
		return persistence.Meeting{}, err
	}
	if meeting.CreatedAt, err = parseTime("created_at", createdStr); err != nil {
		return persistence.Meeting{}, err
	}
	if meeting.UpdatedAt, err = parseTime("updated_at", updatedStr); err != nil {
		return persistence.Meeting{}, err
	}
	return meeting, nil
}

// prefixColumns qualifies a comma separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
