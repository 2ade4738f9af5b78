package persistence

import (
	"context"
	"time"
)

// UserRepository exposes operations for users. Users are never deleted.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	// ListUsers returns the users with the given ids, skipping unknown ids.
	// A nil slice returns every user ordered by creation time.
	ListUsers(ctx context.Context, ids []string) ([]User, error)
}

// WindowMatch selects how a meeting is matched against a filter window.
type WindowMatch int

const (
	// MatchOverlap keeps meetings whose interval intersects the window.
	MatchOverlap WindowMatch = iota
	// MatchStart keeps meetings that start inside the window.
	MatchStart
)

// MeetingFilter narrows meeting queries. Zero values mean "no restriction".
type MeetingFilter struct {
	// UserID keeps meetings the user organizes or participates in.
	UserID string
	// OrganizerID keeps meetings organized by the user.
	OrganizerID string
	Window      *TimeRange
	Match       WindowMatch
	Statuses    []MeetingStatus
	Limit       int
	Offset      int
}

// MatchesStatus reports whether status passes the filter.
func (f MeetingFilter) MatchesStatus(status MeetingStatus) bool {
	if len(f.Statuses) == 0 {
		return true
	}
	for _, candidate := range f.Statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

// MatchesWindow reports whether the meeting interval passes the window filter.
func (f MeetingFilter) MatchesWindow(start, end time.Time) bool {
	if f.Window == nil {
		return true
	}
	if f.Match == MatchStart {
		return f.Window.Contains(start)
	}
	return f.Window.Overlaps(TimeRange{Start: start, End: end})
}

// MeetingRepository stores meetings. Results are ordered by start time then id.
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, meeting Meeting) error
	// ScheduleMeeting stores a meeting together with its participants atomically.
	ScheduleMeeting(ctx context.Context, meeting Meeting, participants []Participant) error
	UpdateMeeting(ctx context.Context, meeting Meeting) error
	GetMeeting(ctx context.Context, id string) (Meeting, error)
	ListMeetings(ctx context.Context, filter MeetingFilter) ([]Meeting, error)
	// CountMeetingsOnDay counts the user's scheduled meetings starting inside day.
	CountMeetingsOnDay(ctx context.Context, userID string, day TimeRange) (int, error)
	UpdateMeetingScores(ctx context.Context, meetingID string, scores MeetingScores) error
}

// ParticipantRepository stores meeting participants.
type ParticipantRepository interface {
	AddParticipant(ctx context.Context, participant Participant) error
	UpdateParticipant(ctx context.Context, participant Participant) error
	ListParticipants(ctx context.Context, meetingID string) ([]Participant, error)
}

// AvailabilityFilter narrows availability queries for one user.
type AvailabilityFilter struct {
	UserID          string
	Window          TimeRange
	OnlyUnavailable bool
}

// AvailabilityRepository stores availability windows.
type AvailabilityRepository interface {
	CreateAvailability(ctx context.Context, window AvailabilityWindow) error
	// ListAvailability returns one-off windows overlapping the filter window and
	// recurring windows whose series starts before the window ends.
	ListAvailability(ctx context.Context, filter AvailabilityFilter) ([]AvailabilityWindow, error)
}

// CalendarStore aggregates every repository the scheduler consumes.
type CalendarStore interface {
	UserRepository
	MeetingRepository
	ParticipantRepository
	AvailabilityRepository
}
