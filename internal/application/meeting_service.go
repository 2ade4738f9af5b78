package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/scheduler"
	"github.com/example/meeting-scheduler/internal/timezone"
)

// Meeting listing bounds.
const (
	DefaultMeetingPageSize = 100
	MaxMeetingPageSize     = 500
	maxMeetingMinutes      = 24 * 60
)

// MeetingRepository captures the persistence operations needed by the meeting service.
type MeetingRepository interface {
	GetUser(ctx context.Context, id string) (persistence.User, error)
	ListUsers(ctx context.Context, ids []string) ([]persistence.User, error)
	ScheduleMeeting(ctx context.Context, meeting persistence.Meeting, participants []persistence.Participant) error
	GetMeeting(ctx context.Context, id string) (persistence.Meeting, error)
	UpdateMeeting(ctx context.Context, meeting persistence.Meeting) error
	ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error)
	ListParticipants(ctx context.Context, meetingID string) ([]persistence.Participant, error)
	UpdateParticipant(ctx context.Context, participant persistence.Participant) error
}

// ConflictDetector reports why a user cannot attend an interval.
type ConflictDetector interface {
	DetectConflicts(ctx context.Context, userID string, start, end time.Time) ([]scheduler.Conflict, error)
}

// MeetingService coordinates meeting creation, lifecycle, and participation.
type MeetingService struct {
	meetings    MeetingRepository
	conflicts   ConflictDetector
	zones       *timezone.Resolver
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMeetingService wires dependencies for the meeting service.
func NewMeetingService(meetings MeetingRepository, conflicts ConflictDetector, idGenerator func() string, now func() time.Time) *MeetingService {
	return NewMeetingServiceWithLogger(meetings, conflicts, idGenerator, now, nil)
}

// NewMeetingServiceWithLogger wires dependencies for the meeting service with a specific logger.
func NewMeetingServiceWithLogger(meetings MeetingRepository, conflicts ConflictDetector, idGenerator func() string, now func() time.Time, logger *slog.Logger) *MeetingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &MeetingService{
		meetings:    meetings,
		conflicts:   conflicts,
		zones:       timezone.Default,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *MeetingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MeetingService", operation, attrs...)
}

func (s *MeetingService) ready() error {
	if s == nil {
		return fmt.Errorf("MeetingService is nil")
	}
	if s.meetings == nil {
		return fmt.Errorf("meeting repository not configured")
	}
	return nil
}

// CreateMeeting checks every participant for conflicts and then stores the
// meeting with its participants. Conflicts are reported, never enforced: two
// overlapping requests may both succeed.
func (s *MeetingService) CreateMeeting(ctx context.Context, input MeetingInput) (result CreateMeetingResult, err error) {
	if err = s.ready(); err != nil {
		return CreateMeetingResult{}, err
	}
	if s.conflicts == nil {
		return CreateMeetingResult{}, fmt.Errorf("conflict detector not configured")
	}

	input = normalizeMeetingInput(input)
	logger := s.loggerWith(ctx, "CreateMeeting",
		"organizer_id", input.OrganizerID,
		"participants", len(input.ParticipantIDs),
	)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "meeting creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if len(result.Conflicts) > 0 {
			logger.WarnContext(ctx, "meeting created with conflicts", "meeting_id", result.Meeting.ID, "conflicts", len(result.Conflicts))
			return
		}
		logger.InfoContext(ctx, "meeting created", "meeting_id", result.Meeting.ID)
	}()

	meetingType, vErr := s.validateMeetingInput(input)
	if vErr.HasErrors() {
		return CreateMeetingResult{}, vErr
	}

	organizer, err := s.meetings.GetUser(ctx, input.OrganizerID)
	if err != nil {
		return CreateMeetingResult{}, mapStoreError(err, "organizer", input.OrganizerID)
	}
	if err = s.requireUsers(ctx, input.ParticipantIDs); err != nil {
		return CreateMeetingResult{}, err
	}

	start := input.Start
	end := start.Add(time.Duration(input.DurationMinutes) * time.Minute)

	var conflicts []scheduler.Conflict
	for _, participantID := range input.ParticipantIDs {
		found, detectErr := s.conflicts.DetectConflicts(ctx, participantID, start, end)
		if detectErr != nil {
			return CreateMeetingResult{}, fmt.Errorf("detect conflicts for %s: %w", participantID, detectErr)
		}
		conflicts = append(conflicts, found...)
	}

	zone := input.Timezone
	if zone == "" {
		zone = organizer.Timezone
	}

	now := s.now()
	meeting := persistence.Meeting{
		ID:          s.idGenerator(),
		Title:       input.Title,
		Description: input.Description,
		Type:        meetingType,
		Start:       start,
		End:         end,
		Timezone:    zone,
		Location:    input.Location,
		MeetingURL:  input.MeetingURL,
		Agenda:      input.Agenda,
		OrganizerID: organizer.ID,
		Status:      persistence.MeetingStatusScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	participants := make([]persistence.Participant, 0, len(input.ParticipantIDs))
	for _, participantID := range input.ParticipantIDs {
		participants = append(participants, persistence.Participant{
			MeetingID:      meeting.ID,
			UserID:         participantID,
			IsRequired:     true,
			ResponseStatus: persistence.ResponsePending,
		})
	}

	if err = s.meetings.ScheduleMeeting(ctx, meeting, participants); err != nil {
		return CreateMeetingResult{}, mapStoreError(err, "meeting", meeting.ID)
	}

	result = CreateMeetingResult{
		MeetingDetails: MeetingDetails{Meeting: meeting, Participants: participants},
		Conflicts:      conflicts,
	}
	return result, nil
}

// GetMeeting returns a meeting with its participants.
func (s *MeetingService) GetMeeting(ctx context.Context, id string) (MeetingDetails, error) {
	if err := s.ready(); err != nil {
		return MeetingDetails{}, err
	}
	meeting, err := s.meetings.GetMeeting(ctx, id)
	if err != nil {
		return MeetingDetails{}, mapStoreError(err, "meeting", id)
	}
	participants, err := s.meetings.ListParticipants(ctx, id)
	if err != nil {
		return MeetingDetails{}, fmt.Errorf("list participants of %s: %w", id, err)
	}
	return MeetingDetails{Meeting: meeting, Participants: participants}, nil
}

// ListMeetings pages through meetings, optionally restricted to one user's
// calendar, in start time order.
func (s *MeetingService) ListMeetings(ctx context.Context, params ListMeetingsParams) ([]persistence.Meeting, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	vErr := &ValidationError{}
	if params.Limit < 0 || params.Limit > MaxMeetingPageSize {
		vErr.add("limit", fmt.Sprintf("limit must be between 0 and %d", MaxMeetingPageSize))
	}
	if params.Offset < 0 {
		vErr.add("offset", "offset must not be negative")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	limit := params.Limit
	if limit == 0 {
		limit = DefaultMeetingPageSize
	}
	userID := strings.TrimSpace(params.UserID)
	if userID != "" {
		if _, err := s.meetings.GetUser(ctx, userID); err != nil {
			return nil, mapStoreError(err, "user", userID)
		}
	}

	return s.meetings.ListMeetings(ctx, persistence.MeetingFilter{
		UserID: userID,
		Limit:  limit,
		Offset: params.Offset,
	})
}

// TransitionMeetingStatus moves a meeting along its lifecycle:
// scheduled to in_progress or cancelled, in_progress to completed or cancelled.
func (s *MeetingService) TransitionMeetingStatus(ctx context.Context, id, status string) (meeting persistence.Meeting, err error) {
	if err = s.ready(); err != nil {
		return persistence.Meeting{}, err
	}

	logger := s.loggerWith(ctx, "TransitionMeetingStatus", "meeting_id", id, "status", status)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "status transition rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meeting status changed")
	}()

	next, parseErr := persistence.ParseMeetingStatus(status)
	if parseErr != nil {
		return persistence.Meeting{}, fieldError("status", "status must be one of scheduled, in_progress, completed, cancelled")
	}

	meeting, err = s.meetings.GetMeeting(ctx, id)
	if err != nil {
		return persistence.Meeting{}, mapStoreError(err, "meeting", id)
	}
	if !meeting.Status.CanTransitionTo(next) {
		return persistence.Meeting{}, fieldError("status", fmt.Sprintf("cannot move a %s meeting to %s", meeting.Status, next))
	}

	meeting.Status = next
	meeting.UpdatedAt = s.now()
	if err = s.meetings.UpdateMeeting(ctx, meeting); err != nil {
		return persistence.Meeting{}, mapStoreError(err, "meeting", id)
	}
	return meeting, nil
}

// RecordParticipation stores a participant's response and attendance data.
func (s *MeetingService) RecordParticipation(ctx context.Context, meetingID, userID string, input ParticipationInput) (participant persistence.Participant, err error) {
	if err = s.ready(); err != nil {
		return persistence.Participant{}, err
	}

	logger := s.loggerWith(ctx, "RecordParticipation", "meeting_id", meetingID, "user_id", userID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "participation rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "participation recorded", "response_status", participant.ResponseStatus)
	}()

	vErr := &ValidationError{}
	var response persistence.ResponseStatus
	if strings.TrimSpace(input.ResponseStatus) != "" {
		parsed, parseErr := persistence.ParseResponseStatus(input.ResponseStatus)
		if parseErr != nil {
			vErr.add("response_status", "response status must be one of pending, accepted, declined, tentative")
		}
		response = parsed
	}
	checkLevel(vErr, "participation_level", input.ParticipationLevel)
	checkLevel(vErr, "contribution_score", input.ContributionScore)
	if vErr.HasErrors() {
		return persistence.Participant{}, vErr
	}

	if _, err = s.meetings.GetMeeting(ctx, meetingID); err != nil {
		return persistence.Participant{}, mapStoreError(err, "meeting", meetingID)
	}
	participants, err := s.meetings.ListParticipants(ctx, meetingID)
	if err != nil {
		return persistence.Participant{}, fmt.Errorf("list participants of %s: %w", meetingID, err)
	}
	found := false
	for _, candidate := range participants {
		if candidate.UserID == userID {
			participant = candidate
			found = true
			break
		}
	}
	if !found {
		return persistence.Participant{}, notFound("participant", userID)
	}

	if response != "" && response != participant.ResponseStatus {
		participant.ResponseStatus = response
		if response != persistence.ResponsePending {
			respondedAt := s.now()
			participant.RespondedAt = &respondedAt
		}
	}
	if input.Attended != nil {
		attended := *input.Attended
		participant.Attended = &attended
	}
	if input.ParticipationLevel != nil {
		level := *input.ParticipationLevel
		participant.ParticipationLevel = &level
	}
	if input.ContributionScore != nil {
		score := *input.ContributionScore
		participant.ContributionScore = &score
	}

	if err = s.meetings.UpdateParticipant(ctx, participant); err != nil {
		return persistence.Participant{}, mapStoreError(err, "participant", userID)
	}
	return participant, nil
}

func normalizeMeetingInput(input MeetingInput) MeetingInput {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Type = strings.TrimSpace(input.Type)
	input.Timezone = strings.TrimSpace(input.Timezone)
	input.Location = strings.TrimSpace(input.Location)
	input.MeetingURL = strings.TrimSpace(input.MeetingURL)
	input.OrganizerID = strings.TrimSpace(input.OrganizerID)
	input.ParticipantIDs = uniqueIDs(input.ParticipantIDs)
	return input
}

func (s *MeetingService) validateMeetingInput(input MeetingInput) (persistence.MeetingType, *ValidationError) {
	vErr := &ValidationError{}

	if input.Title == "" {
		vErr.add("title", "title is required")
	}

	meetingType := persistence.MeetingTypeTeam
	if input.Type != "" {
		parsed, err := persistence.ParseMeetingType(input.Type)
		if err != nil {
			vErr.add("meeting_type", "meeting type is not recognized")
		}
		meetingType = parsed
	}

	if input.Start.IsZero() {
		vErr.add("start_time", "start time is required")
	}
	if input.DurationMinutes <= 0 || input.DurationMinutes > maxMeetingMinutes {
		vErr.add("duration_minutes", "duration must be between 1 and 1440 minutes")
	}
	if input.OrganizerID == "" {
		vErr.add("organizer_id", "organizer is required")
	}
	if input.Timezone != "" {
		if _, err := s.zones.Resolve(input.Timezone); err != nil {
			vErr.add("timezone", "timezone is not a known IANA zone")
		}
	}

	return meetingType, vErr
}

// requireUsers fails with ErrNotFound naming every id that has no user.
func (s *MeetingService) requireUsers(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	users, err := s.meetings.ListUsers(ctx, ids)
	if err != nil {
		return fmt.Errorf("load participants: %w", err)
	}
	known := make(map[string]bool, len(users))
	for _, user := range users {
		known[user.ID] = true
	}
	var missing []string
	for _, id := range ids {
		if !known[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: participants %s", ErrNotFound, strings.Join(missing, ", "))
	}
	return nil
}

func checkLevel(vErr *ValidationError, field string, value *float64) {
	if value == nil {
		return
	}
	if *value < 0 || *value > 10 {
		vErr.add(field, "must be between 0 and 10")
	}
}

// uniqueIDs trims ids and drops blanks and repeats, keeping first occurrences.
func uniqueIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
