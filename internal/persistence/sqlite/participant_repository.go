package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/meeting-scheduler/internal/persistence"
)

const participantColumns = `meeting_id, user_id, is_required, response_status, attended,
	participation_level, contribution_score, responded_at`

// ParticipantRepository implements persistence.ParticipantRepository using SQLite
type ParticipantRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewParticipantRepository creates a new SQLite participant repository
func NewParticipantRepository(pool *ConnectionPool) *ParticipantRepository {
	return &ParticipantRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// AddParticipant attaches a user to a meeting.
func (r *ParticipantRepository) AddParticipant(ctx context.Context, participant persistence.Participant) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		return r.mapper.MapError(insertParticipant(ctx, r.helper, tx, participant))
	})
}

func insertParticipant(ctx context.Context, helper *QueryHelper, tx *sql.Tx, participant persistence.Participant) error {
	if participant.ResponseStatus == "" {
		participant.ResponseStatus = persistence.ResponsePending
	}
	query := `INSERT INTO meeting_participants (` + participantColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := helper.ExecTx(ctx, tx, query, participantArgs(participant)...)
	return err
}

// UpdateParticipant replaces the response and attendance data of a participant.
func (r *ParticipantRepository) UpdateParticipant(ctx context.Context, participant persistence.Participant) error {
	args := participantArgs(participant)
	query := `
		UPDATE meeting_participants
		SET is_required = ?, response_status = ?, attended = ?, participation_level = ?,
			contribution_score = ?, responded_at = ?
		WHERE meeting_id = ? AND user_id = ?
	`
	result, err := r.helper.Exec(ctx, query, append(args[2:], args[0], args[1])...)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// ListParticipants returns a meeting's participants in insertion order.
func (r *ParticipantRepository) ListParticipants(ctx context.Context, meetingID string) ([]persistence.Participant, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT `+participantColumns+` FROM meeting_participants WHERE meeting_id = ? ORDER BY rowid ASC`,
		meetingID,
	)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	participants := make([]persistence.Participant, 0)
	for rows.Next() {
		var (
			participant     persistence.Participant
			isRequired      int
			responseStatus  string
			attended        sql.NullBool
			level, score    sql.NullFloat64
			respondedAtNull sql.NullString
		)
		if err := rows.Scan(
			&participant.MeetingID,
			&participant.UserID,
			&isRequired,
			&responseStatus,
			&attended,
			&level,
			&score,
			&respondedAtNull,
		); err != nil {
			return nil, r.mapper.MapError(err)
		}

		participant.IsRequired = isRequired != 0
		participant.ResponseStatus = persistence.ResponseStatus(responseStatus)
		if attended.Valid {
			value := attended.Bool
			participant.Attended = &value
		}
		participant.ParticipationLevel = floatFromNull(level)
		participant.ContributionScore = floatFromNull(score)
		if respondedAtNull.Valid {
			respondedAt, err := parseTime("responded_at", respondedAtNull.String)
			if err != nil {
				return nil, err
			}
			participant.RespondedAt = &respondedAt
		}
		participants = append(participants, participant)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return participants, nil
}

func participantArgs(participant persistence.Participant) []any {
	var attended sql.NullBool
	if participant.Attended != nil {
		attended = sql.NullBool{Bool: *participant.Attended, Valid: true}
	}
	var respondedAt sql.NullString
	if participant.RespondedAt != nil {
		respondedAt = sql.NullString{String: formatTime(*participant.RespondedAt), Valid: true}
	}
	return []any{
		participant.MeetingID,
		participant.UserID,
		boolToInt(participant.IsRequired),
		string(participant.ResponseStatus),
		attended,
		nullableFloat(participant.ParticipationLevel),
		nullableFloat(participant.ContributionScore),
		respondedAt,
	}
}
