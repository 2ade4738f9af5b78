package persistence

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Role classifies a user account.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
	RoleGuest    Role = "guest"
)

// ParseRole converts a serialized token into a Role.
func ParseRole(token string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(token))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleManager:
		return RoleManager, nil
	case RoleEmployee, "":
		return RoleEmployee, nil
	case RoleGuest:
		return RoleGuest, nil
	}
	return "", fmt.Errorf("unknown role %q", token)
}

// MeetingType is the fixed enumeration of meeting kinds.
type MeetingType string

const (
	MeetingTypeOneOnOne  MeetingType = "one_on_one"
	MeetingTypeTeam      MeetingType = "team_meeting"
	MeetingTypeAllHands  MeetingType = "all_hands"
	MeetingTypeClient    MeetingType = "client_meeting"
	MeetingTypeInterview MeetingType = "interview"
	MeetingTypeTraining  MeetingType = "training"
)

// MeetingTypes lists every meeting type in declaration order.
var MeetingTypes = []MeetingType{
	MeetingTypeOneOnOne,
	MeetingTypeTeam,
	MeetingTypeAllHands,
	MeetingTypeClient,
	MeetingTypeInterview,
	MeetingTypeTraining,
}

// ParseMeetingType converts a serialized token into a MeetingType.
func ParseMeetingType(token string) (MeetingType, error) {
	normalized := MeetingType(strings.ToLower(strings.TrimSpace(token)))
	for _, candidate := range MeetingTypes {
		if candidate == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unknown meeting type %q", token)
}

// MeetingStatus tracks the lifecycle of a meeting.
type MeetingStatus string

const (
	MeetingStatusScheduled  MeetingStatus = "scheduled"
	MeetingStatusInProgress MeetingStatus = "in_progress"
	MeetingStatusCompleted  MeetingStatus = "completed"
	MeetingStatusCancelled  MeetingStatus = "cancelled"
)

// ParseMeetingStatus converts a serialized token into a MeetingStatus.
func ParseMeetingStatus(token string) (MeetingStatus, error) {
	switch MeetingStatus(strings.ToLower(strings.TrimSpace(token))) {
	case MeetingStatusScheduled:
		return MeetingStatusScheduled, nil
	case MeetingStatusInProgress:
		return MeetingStatusInProgress, nil
	case MeetingStatusCompleted:
		return MeetingStatusCompleted, nil
	case MeetingStatusCancelled:
		return MeetingStatusCancelled, nil
	}
	return "", fmt.Errorf("unknown meeting status %q", token)
}

// Terminal reports whether no further transitions are allowed.
func (s MeetingStatus) Terminal() bool {
	return s == MeetingStatusCompleted || s == MeetingStatusCancelled
}

// CanTransitionTo reports whether moving from s to next is a legal lifecycle step.
func (s MeetingStatus) CanTransitionTo(next MeetingStatus) bool {
	switch s {
	case MeetingStatusScheduled:
		return next == MeetingStatusInProgress || next == MeetingStatusCancelled
	case MeetingStatusInProgress:
		return next == MeetingStatusCompleted || next == MeetingStatusCancelled
	}
	return false
}

// ResponseStatus is a participant's reply to an invitation.
type ResponseStatus string

const (
	ResponsePending   ResponseStatus = "pending"
	ResponseAccepted  ResponseStatus = "accepted"
	ResponseDeclined  ResponseStatus = "declined"
	ResponseTentative ResponseStatus = "tentative"
)

// ParseResponseStatus converts a serialized token into a ResponseStatus.
func ParseResponseStatus(token string) (ResponseStatus, error) {
	switch ResponseStatus(strings.ToLower(strings.TrimSpace(token))) {
	case ResponsePending:
		return ResponsePending, nil
	case ResponseAccepted:
		return ResponseAccepted, nil
	case ResponseDeclined:
		return ResponseDeclined, nil
	case ResponseTentative:
		return ResponseTentative, nil
	}
	return "", fmt.Errorf("unknown response status %q", token)
}

// User represents an employee whose calendar the scheduler reasons about.
type User struct {
	ID                       string
	Name                     string
	Email                    string
	Role                     Role
	Timezone                 string
	WorkStartHour            int
	WorkEndHour              int
	WorkDays                 []time.Weekday
	MaxMeetingsPerDay        int
	PreferredMeetingDuration int
	BufferTime               int
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// Default profile values applied at registration.
const (
	DefaultWorkStartHour            = 9
	DefaultWorkEndHour              = 17
	DefaultMaxMeetingsPerDay        = 8
	DefaultPreferredMeetingDuration = 30
	DefaultBufferTime               = 15
)

// DefaultWorkDays is Monday through Friday.
var DefaultWorkDays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// FormatWorkDays serializes weekdays as ISO day numbers, "1,2,3,4,5" for
// Monday through Friday.
func FormatWorkDays(days []time.Weekday) string {
	parts := make([]string, 0, len(days))
	for _, day := range days {
		iso := int(day)
		if day == time.Sunday {
			iso = 7
		}
		parts = append(parts, strconv.Itoa(iso))
	}
	return strings.Join(parts, ",")
}

// ParseWorkDays is the inverse of FormatWorkDays. An empty string yields nil.
func ParseWorkDays(value string) ([]time.Weekday, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	days := make([]time.Weekday, 0, len(parts))
	for _, part := range parts {
		iso, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || iso < 1 || iso > 7 {
			return nil, fmt.Errorf("invalid work day %q", part)
		}
		days = append(days, time.Weekday(iso%7))
	}
	return days, nil
}

// Meeting is a calendar entry with an organizer and participants.
type Meeting struct {
	ID                 string
	Title              string
	Description        string
	Type               MeetingType
	Start              time.Time
	End                time.Time
	Timezone           string
	Location           string
	MeetingURL         string
	Agenda             string
	OrganizerID        string
	Status             MeetingStatus
	EffectivenessScore *float64
	ProductivityRating *float64
	EngagementLevel    *float64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Duration is derived from the meeting interval.
func (m Meeting) Duration() time.Duration {
	return m.End.Sub(m.Start)
}

// DurationMinutes returns the meeting length in whole minutes.
func (m Meeting) DurationMinutes() int {
	return int(m.Duration() / time.Minute)
}

// Participant joins a user to a meeting.
type Participant struct {
	MeetingID          string
	UserID             string
	IsRequired         bool
	ResponseStatus     ResponseStatus
	Attended           *bool
	ParticipationLevel *float64
	ContributionScore  *float64
	RespondedAt        *time.Time
}

// AvailabilityWindow marks an interval as available or unavailable for a user.
// Recurring windows repeat according to RecurrencePattern (RRULE syntax),
// each occurrence lasting End-Start.
type AvailabilityWindow struct {
	ID                string
	UserID            string
	Start             time.Time
	End               time.Time
	Timezone          string
	IsAvailable       bool
	Priority          int
	Reason            string
	IsRecurring       bool
	RecurrencePattern string
	CreatedAt         time.Time
}

// MeetingScores carries the optional post-hoc scores written back to a meeting.
// Nil fields are left untouched.
type MeetingScores struct {
	Effectiveness *float64
	Productivity  *float64
	Engagement    *float64
}

// TimeRange is a half-open interval [Start, End) of absolute instants.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect.
// Touching endpoints do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Contains reports whether t falls within [Start, End).
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}
