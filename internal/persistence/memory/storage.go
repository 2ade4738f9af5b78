// Package memory provides an in-process calendar store used by tests and by
// deployments configured with an in-memory database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
)

// Storage keeps users, meetings, participants and availability in maps.
type Storage struct {
	mu           sync.RWMutex
	users        map[string]persistence.User
	meetings     map[string]persistence.Meeting
	participants map[string][]persistence.Participant
	availability map[string]persistence.AvailabilityWindow
	now          func() time.Time
}

var _ persistence.CalendarStore = (*Storage)(nil)

// New returns an empty Storage.
func New() *Storage {
	return &Storage{
		users:        make(map[string]persistence.User),
		meetings:     make(map[string]persistence.Meeting),
		participants: make(map[string][]persistence.Participant),
		availability: make(map[string]persistence.AvailabilityWindow),
		now:          time.Now,
	}
}

// Close releases resources held by the storage. No-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// Ping reports the store as reachable.
func (s *Storage) Ping(context.Context) error {
	return nil
}

// --- users ---

// CreateUser stores a new user.
func (s *Storage) CreateUser(_ context.Context, user persistence.User) error {
	if user.ID == "" {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("memory: user %s: %w", user.ID, persistence.ErrDuplicate)
	}
	if err := s.ensureUniqueEmailLocked(user.ID, user.Email); err != nil {
		return err
	}

	s.users[user.ID] = cloneUser(user)
	return nil
}

// UpdateUser replaces an existing user.
func (s *Storage) UpdateUser(_ context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return persistence.ErrNotFound
	}
	if err := s.ensureUniqueEmailLocked(user.ID, user.Email); err != nil {
		return err
	}

	s.users[user.ID] = cloneUser(user)
	return nil
}

// GetUser retrieves a user by ID.
func (s *Storage) GetUser(_ context.Context, id string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return cloneUser(user), nil
}

// GetUserByEmail retrieves a user by email address, ignoring case.
func (s *Storage) GetUserByEmail(_ context.Context, email string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lower := normalizeEmail(email)
	for _, user := range s.users {
		if normalizeEmail(user.Email) == lower {
			return cloneUser(user), nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

// ListUsers returns the requested users, or every user when ids is nil,
// ordered by creation time then id.
func (s *Storage) ListUsers(_ context.Context, ids []string) ([]persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]persistence.User, 0, len(s.users))
	if ids == nil {
		for _, user := range s.users {
			users = append(users, cloneUser(user))
		}
	} else {
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if user, ok := s.users[id]; ok {
				users = append(users, cloneUser(user))
			}
		}
	}

	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (s *Storage) ensureUniqueEmailLocked(id, email string) error {
	normalized := normalizeEmail(email)
	for existingID, user := range s.users {
		if existingID == id {
			continue
		}
		if normalizeEmail(user.Email) == normalized {
			return fmt.Errorf("memory: email %s: %w", email, persistence.ErrDuplicate)
		}
	}
	return nil
}

// --- meetings ---

// CreateMeeting stores a new meeting. The organizer must exist.
func (s *Storage) CreateMeeting(_ context.Context, meeting persistence.Meeting) error {
	if meeting.ID == "" || !meeting.End.After(meeting.Start) {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.meetings[meeting.ID]; ok {
		return fmt.Errorf("memory: meeting %s: %w", meeting.ID, persistence.ErrDuplicate)
	}
	if _, ok := s.users[meeting.OrganizerID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	s.meetings[meeting.ID] = cloneMeeting(meeting)
	return nil
}

// ScheduleMeeting stores a meeting and its participants in one step. Nothing
// is stored when any row is rejected.
func (s *Storage) ScheduleMeeting(_ context.Context, meeting persistence.Meeting, participants []persistence.Participant) error {
	if meeting.ID == "" || !meeting.End.After(meeting.Start) {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.meetings[meeting.ID]; ok {
		return fmt.Errorf("memory: meeting %s: %w", meeting.ID, persistence.ErrDuplicate)
	}
	if _, ok := s.users[meeting.OrganizerID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	rows := make([]persistence.Participant, 0, len(participants))
	seen := make(map[string]struct{}, len(participants))
	for _, participant := range participants {
		if _, ok := s.users[participant.UserID]; !ok {
			return persistence.ErrForeignKeyViolation
		}
		if _, dup := seen[participant.UserID]; dup {
			return fmt.Errorf("memory: participant %s: %w", participant.UserID, persistence.ErrDuplicate)
		}
		seen[participant.UserID] = struct{}{}
		participant.MeetingID = meeting.ID
		rows = append(rows, cloneParticipant(participant))
	}

	s.meetings[meeting.ID] = cloneMeeting(meeting)
	if len(rows) > 0 {
		s.participants[meeting.ID] = rows
	}
	return nil
}

// UpdateMeeting replaces an existing meeting.
func (s *Storage) UpdateMeeting(_ context.Context, meeting persistence.Meeting) error {
	if !meeting.End.After(meeting.Start) {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.meetings[meeting.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.meetings[meeting.ID] = cloneMeeting(meeting)
	return nil
}

// GetMeeting retrieves a meeting by ID.
func (s *Storage) GetMeeting(_ context.Context, id string) (persistence.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meeting, ok := s.meetings[id]
	if !ok {
		return persistence.Meeting{}, persistence.ErrNotFound
	}
	return cloneMeeting(meeting), nil
}

// ListMeetings returns meetings matching filter ordered by start then id.
func (s *Storage) ListMeetings(_ context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meetings := make([]persistence.Meeting, 0)
	for _, meeting := range s.meetings {
		if !s.matchesLocked(meeting, filter) {
			continue
		}
		meetings = append(meetings, cloneMeeting(meeting))
	}
	sortMeetings(meetings)
	return paginate(meetings, filter.Offset, filter.Limit), nil
}

// CountMeetingsOnDay counts the user's scheduled meetings starting inside day.
func (s *Storage) CountMeetingsOnDay(_ context.Context, userID string, day persistence.TimeRange) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, meeting := range s.meetings {
		if meeting.Status != persistence.MeetingStatusScheduled || !day.Contains(meeting.Start) {
			continue
		}
		if s.involvesLocked(meeting, userID) {
			count++
		}
	}
	return count, nil
}

// UpdateMeetingScores writes the non-nil scores onto a meeting.
func (s *Storage) UpdateMeetingScores(_ context.Context, meetingID string, scores persistence.MeetingScores) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meeting, ok := s.meetings[meetingID]
	if !ok {
		return persistence.ErrNotFound
	}
	if scores.Effectiveness != nil {
		meeting.EffectivenessScore = floatPtr(*scores.Effectiveness)
	}
	if scores.Productivity != nil {
		meeting.ProductivityRating = floatPtr(*scores.Productivity)
	}
	if scores.Engagement != nil {
		meeting.EngagementLevel = floatPtr(*scores.Engagement)
	}
	meeting.UpdatedAt = s.now().UTC()
	s.meetings[meetingID] = meeting
	return nil
}

func (s *Storage) matchesLocked(meeting persistence.Meeting, filter persistence.MeetingFilter) bool {
	if filter.OrganizerID != "" && meeting.OrganizerID != filter.OrganizerID {
		return false
	}
	if filter.UserID != "" && !s.involvesLocked(meeting, filter.UserID) {
		return false
	}
	return filter.MatchesStatus(meeting.Status) && filter.MatchesWindow(meeting.Start, meeting.End)
}

func (s *Storage) involvesLocked(meeting persistence.Meeting, userID string) bool {
	if meeting.OrganizerID == userID {
		return true
	}
	for _, participant := range s.participants[meeting.ID] {
		if participant.UserID == userID {
			return true
		}
	}
	return false
}

// --- participants ---

// AddParticipant attaches a user to a meeting.
func (s *Storage) AddParticipant(_ context.Context, participant persistence.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.meetings[participant.MeetingID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	if _, ok := s.users[participant.UserID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	for _, existing := range s.participants[participant.MeetingID] {
		if existing.UserID == participant.UserID {
			return fmt.Errorf("memory: participant %s: %w", participant.UserID, persistence.ErrDuplicate)
		}
	}
	s.participants[participant.MeetingID] = append(s.participants[participant.MeetingID], cloneParticipant(participant))
	return nil
}

// UpdateParticipant replaces an existing participant row.
func (s *Storage) UpdateParticipant(_ context.Context, participant persistence.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.participants[participant.MeetingID]
	for i := range rows {
		if rows[i].UserID == participant.UserID {
			rows[i] = cloneParticipant(participant)
			return nil
		}
	}
	return persistence.ErrNotFound
}

// ListParticipants returns a meeting's participants in insertion order.
func (s *Storage) ListParticipants(_ context.Context, meetingID string) ([]persistence.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.participants[meetingID]
	participants := make([]persistence.Participant, 0, len(rows))
	for _, row := range rows {
		participants = append(participants, cloneParticipant(row))
	}
	return participants, nil
}

// --- availability ---

// CreateAvailability stores a window for an existing user.
func (s *Storage) CreateAvailability(_ context.Context, window persistence.AvailabilityWindow) error {
	if window.ID == "" || !window.End.After(window.Start) {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[window.UserID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	if _, ok := s.availability[window.ID]; ok {
		return fmt.Errorf("memory: availability %s: %w", window.ID, persistence.ErrDuplicate)
	}
	s.availability[window.ID] = window
	return nil
}

// ListAvailability returns windows relevant to filter ordered by start then id.
func (s *Storage) ListAvailability(_ context.Context, filter persistence.AvailabilityFilter) ([]persistence.AvailabilityWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	windows := make([]persistence.AvailabilityWindow, 0)
	for _, window := range s.availability {
		if window.UserID != filter.UserID {
			continue
		}
		if filter.OnlyUnavailable && window.IsAvailable {
			continue
		}
		if window.IsRecurring {
			if !window.Start.Before(filter.Window.End) {
				continue
			}
		} else if !filter.Window.Overlaps(persistence.TimeRange{Start: window.Start, End: window.End}) {
			continue
		}
		windows = append(windows, window)
	}
	sort.Slice(windows, func(i, j int) bool {
		if windows[i].Start.Equal(windows[j].Start) {
			return windows[i].ID < windows[j].ID
		}
		return windows[i].Start.Before(windows[j].Start)
	})
	return windows, nil
}

// --- helpers ---

func cloneUser(user persistence.User) persistence.User {
	clone := user
	if user.WorkDays != nil {
		clone.WorkDays = append([]time.Weekday(nil), user.WorkDays...)
	}
	return clone
}

func cloneMeeting(meeting persistence.Meeting) persistence.Meeting {
	clone := meeting
	clone.EffectivenessScore = copyFloat(meeting.EffectivenessScore)
	clone.ProductivityRating = copyFloat(meeting.ProductivityRating)
	clone.EngagementLevel = copyFloat(meeting.EngagementLevel)
	return clone
}

func cloneParticipant(participant persistence.Participant) persistence.Participant {
	clone := participant
	if participant.Attended != nil {
		attended := *participant.Attended
		clone.Attended = &attended
	}
	clone.ParticipationLevel = copyFloat(participant.ParticipationLevel)
	clone.ContributionScore = copyFloat(participant.ContributionScore)
	if participant.RespondedAt != nil {
		respondedAt := *participant.RespondedAt
		clone.RespondedAt = &respondedAt
	}
	return clone
}

func copyFloat(value *float64) *float64 {
	if value == nil {
		return nil
	}
	return floatPtr(*value)
}

func floatPtr(value float64) *float64 {
	return &value
}

func sortMeetings(meetings []persistence.Meeting) {
	sort.Slice(meetings, func(i, j int) bool {
		if meetings[i].Start.Equal(meetings[j].Start) {
			return meetings[i].ID < meetings[j].ID
		}
		return meetings[i].Start.Before(meetings[j].Start)
	})
}

func paginate(meetings []persistence.Meeting, offset, limit int) []persistence.Meeting {
	if offset > 0 {
		if offset >= len(meetings) {
			return []persistence.Meeting{}
		}
		meetings = meetings[offset:]
	}
	if limit > 0 && len(meetings) > limit {
		meetings = meetings[:limit]
	}
	return meetings
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
