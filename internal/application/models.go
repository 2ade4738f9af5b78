package application

import (
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

// UserInput carries the editable profile attributes of a user. Nil pointers
// mean "use the default" on create and "keep the current value" on update.
type UserInput struct {
	Name                     string
	Email                    string
	Role                     string
	Timezone                 string
	WorkStartHour            *int
	WorkEndHour              *int
	WorkDays                 []int
	MaxMeetingsPerDay        *int
	PreferredMeetingDuration *int
	BufferTime               *int
}

// AvailabilityInput describes a new availability window for a user.
type AvailabilityInput struct {
	Start             time.Time
	End               time.Time
	Timezone          string
	IsAvailable       bool
	Priority          int
	Reason            string
	RecurrencePattern string
}

// MeetingInput describes a meeting to schedule.
type MeetingInput struct {
	Title           string
	Description     string
	Type            string
	Start           time.Time
	DurationMinutes int
	Timezone        string
	Location        string
	MeetingURL      string
	Agenda          string
	OrganizerID     string
	ParticipantIDs  []string
}

// MeetingDetails is a meeting together with its participants.
type MeetingDetails struct {
	Meeting      persistence.Meeting
	Participants []persistence.Participant
}

// CreateMeetingResult is the stored meeting plus the conflicts that were
// detected for its participants before it was stored.
type CreateMeetingResult struct {
	MeetingDetails
	Conflicts []scheduler.Conflict
}

// ListMeetingsParams narrows ListMeetings. An empty UserID lists every meeting.
type ListMeetingsParams struct {
	UserID string
	Limit  int
	Offset int
}

// ParticipationInput records a participant's reply and attendance.
// Nil or empty fields are left unchanged.
type ParticipationInput struct {
	ResponseStatus     string
	Attended           *bool
	ParticipationLevel *float64
	ContributionScore  *float64
}

// SlotSearchInput asks for the best meeting times for a group.
type SlotSearchInput struct {
	ParticipantIDs  []string
	DurationMinutes int
	StartDate       time.Time
	EndDate         time.Time
	Timezone        string
	MaxResults      int
}

// ConflictCheckInput asks whether one user is free for an interval.
type ConflictCheckInput struct {
	UserID string
	Start  time.Time
	End    time.Time
}

// AgendaInput asks for an agenda skeleton.
type AgendaInput struct {
	Topic           string
	ParticipantIDs  []string
	DurationMinutes int
}

// Stats summarizes the whole calendar.
type Stats struct {
	TotalUsers           int            `json:"total_users"`
	TotalMeetings        int            `json:"total_meetings"`
	CompletedMeetings    int            `json:"completed_meetings"`
	UpcomingMeetings     int            `json:"upcoming_meetings"`
	AverageEffectiveness *float64       `json:"average_effectiveness"`
	UsersByTimezone      map[string]int `json:"users_by_timezone"`
}
