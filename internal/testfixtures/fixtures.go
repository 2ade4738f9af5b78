package testfixtures

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/persistence"
)

var (
	userCounter         uint64
	meetingCounter      uint64
	availabilityCounter uint64
)

// referenceTime is Monday 2024-03-04 09:00 UTC.
var referenceTime = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture is a deterministic user that can be stored directly or fed to
// the user service as input.
type UserFixture struct {
	ID                string
	Name              string
	Email             string
	Role              persistence.Role
	Timezone          string
	WorkStartHour     int
	WorkEndHour       int
	WorkDays          []time.Weekday
	MaxMeetingsPerDay int
	CreatedAt         time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a user fixture with default work settings.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	fixture := UserFixture{
		ID:                fmt.Sprintf("user-%03d", idx),
		Name:              fmt.Sprintf("User %03d", idx),
		Email:             fmt.Sprintf("user%03d@example.com", idx),
		Role:              persistence.RoleEmployee,
		Timezone:          "UTC",
		WorkStartHour:     persistence.DefaultWorkStartHour,
		WorkEndHour:       persistence.DefaultWorkEndHour,
		WorkDays:          append([]time.Weekday(nil), persistence.DefaultWorkDays...),
		MaxMeetingsPerDay: persistence.DefaultMaxMeetingsPerDay,
		CreatedAt:         referenceTime.AddDate(0, 0, -30).Add(time.Duration(idx) * time.Second),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserName overrides the generated name.
func WithUserName(name string) UserOption {
	return func(f *UserFixture) {
		f.Name = name
	}
}

// WithUserEmail overrides the generated email.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserRole sets the role.
func WithUserRole(role persistence.Role) UserOption {
	return func(f *UserFixture) {
		f.Role = role
	}
}

// WithUserTimezone sets the home zone.
func WithUserTimezone(zone string) UserOption {
	return func(f *UserFixture) {
		f.Timezone = zone
	}
}

// WithWorkHours sets the working day.
func WithWorkHours(start, end int) UserOption {
	return func(f *UserFixture) {
		f.WorkStartHour = start
		f.WorkEndHour = end
	}
}

// WithMaxMeetingsPerDay sets the daily meeting limit.
func WithMaxMeetingsPerDay(limit int) UserOption {
	return func(f *UserFixture) {
		f.MaxMeetingsPerDay = limit
	}
}

// Model returns the fixture as a persistence.User.
func (f UserFixture) Model() persistence.User {
	return persistence.User{
		ID:                       f.ID,
		Name:                     f.Name,
		Email:                    f.Email,
		Role:                     f.Role,
		Timezone:                 f.Timezone,
		WorkStartHour:            f.WorkStartHour,
		WorkEndHour:              f.WorkEndHour,
		WorkDays:                 append([]time.Weekday(nil), f.WorkDays...),
		MaxMeetingsPerDay:        f.MaxMeetingsPerDay,
		PreferredMeetingDuration: persistence.DefaultPreferredMeetingDuration,
		BufferTime:               persistence.DefaultBufferTime,
		CreatedAt:                f.CreatedAt,
		UpdatedAt:                f.CreatedAt,
	}
}

// Input returns the fixture as an application.UserInput.
func (f UserFixture) Input() application.UserInput {
	start, end, limit := f.WorkStartHour, f.WorkEndHour, f.MaxMeetingsPerDay
	days := make([]int, 0, len(f.WorkDays))
	for _, day := range f.WorkDays {
		iso := int(day)
		if day == time.Sunday {
			iso = 7
		}
		days = append(days, iso)
	}
	return application.UserInput{
		Name:              f.Name,
		Email:             f.Email,
		Role:              string(f.Role),
		Timezone:          f.Timezone,
		WorkStartHour:     &start,
		WorkEndHour:       &end,
		WorkDays:          days,
		MaxMeetingsPerDay: &limit,
	}
}

// ---------------------------- Meeting fixtures ----------------------------

// MeetingFixture is a deterministic meeting with its participant list.
type MeetingFixture struct {
	ID             string
	Title          string
	Type           persistence.MeetingType
	Start          time.Time
	Duration       time.Duration
	Timezone       string
	Agenda         string
	OrganizerID    string
	Status         persistence.MeetingStatus
	Effectiveness  *float64
	ParticipantIDs []string
	Response       persistence.ResponseStatus
}

// MeetingOption configures the generated meeting fixture.
type MeetingOption func(*MeetingFixture)

// NewMeetingFixture returns a scheduled team meeting organized by organizerID.
func NewMeetingFixture(organizerID string, start time.Time, duration time.Duration, opts ...MeetingOption) MeetingFixture {
	idx := atomic.AddUint64(&meetingCounter, 1)
	fixture := MeetingFixture{
		ID:          fmt.Sprintf("meeting-%03d", idx),
		Title:       fmt.Sprintf("Meeting %03d", idx),
		Type:        persistence.MeetingTypeTeam,
		Start:       start,
		Duration:    duration,
		Timezone:    "UTC",
		OrganizerID: organizerID,
		Status:      persistence.MeetingStatusScheduled,
		Response:    persistence.ResponseAccepted,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMeetingID overrides the generated meeting ID.
func WithMeetingID(id string) MeetingOption {
	return func(f *MeetingFixture) {
		f.ID = id
	}
}

// WithMeetingTitle overrides the generated title.
func WithMeetingTitle(title string) MeetingOption {
	return func(f *MeetingFixture) {
		f.Title = title
	}
}

// WithMeetingType sets the meeting type.
func WithMeetingType(meetingType persistence.MeetingType) MeetingOption {
	return func(f *MeetingFixture) {
		f.Type = meetingType
	}
}

// WithMeetingStatus sets the lifecycle status.
func WithMeetingStatus(status persistence.MeetingStatus) MeetingOption {
	return func(f *MeetingFixture) {
		f.Status = status
	}
}

// WithMeetingTimezone sets the zone the meeting was scheduled in.
func WithMeetingTimezone(zone string) MeetingOption {
	return func(f *MeetingFixture) {
		f.Timezone = zone
	}
}

// WithAgenda sets the agenda text.
func WithAgenda(agenda string) MeetingOption {
	return func(f *MeetingFixture) {
		f.Agenda = agenda
	}
}

// WithEffectiveness stores an effectiveness score on the meeting.
func WithEffectiveness(score float64) MeetingOption {
	return func(f *MeetingFixture) {
		f.Effectiveness = &score
	}
}

// WithParticipants invites the given users.
func WithParticipants(ids ...string) MeetingOption {
	return func(f *MeetingFixture) {
		f.ParticipantIDs = append([]string(nil), ids...)
	}
}

// WithResponse sets the response status every participant starts with.
func WithResponse(status persistence.ResponseStatus) MeetingOption {
	return func(f *MeetingFixture) {
		f.Response = status
	}
}

// Model returns the fixture as a persistence.Meeting.
func (f MeetingFixture) Model() persistence.Meeting {
	return persistence.Meeting{
		ID:                 f.ID,
		Title:              f.Title,
		Type:               f.Type,
		Start:              f.Start,
		End:                f.Start.Add(f.Duration),
		Timezone:           f.Timezone,
		Agenda:             f.Agenda,
		OrganizerID:        f.OrganizerID,
		Status:             f.Status,
		EffectivenessScore: f.Effectiveness,
		CreatedAt:          referenceTime,
		UpdatedAt:          referenceTime,
	}
}

// Participants returns the invitations for the fixture's participants.
func (f MeetingFixture) Participants() []persistence.Participant {
	participants := make([]persistence.Participant, 0, len(f.ParticipantIDs))
	for _, userID := range f.ParticipantIDs {
		participants = append(participants, persistence.Participant{
			MeetingID:      f.ID,
			UserID:         userID,
			IsRequired:     true,
			ResponseStatus: f.Response,
		})
	}
	return participants
}

// Input returns the fixture as an application.MeetingInput.
func (f MeetingFixture) Input() application.MeetingInput {
	return application.MeetingInput{
		Title:           f.Title,
		Type:            string(f.Type),
		Start:           f.Start,
		DurationMinutes: int(f.Duration / time.Minute),
		Timezone:        f.Timezone,
		Agenda:          f.Agenda,
		OrganizerID:     f.OrganizerID,
		ParticipantIDs:  append([]string(nil), f.ParticipantIDs...),
	}
}

// -------------------------- Availability fixtures --------------------------

// AvailabilityFixture is a deterministic availability window.
type AvailabilityFixture struct {
	ID                string
	UserID            string
	Start             time.Time
	End               time.Time
	Timezone          string
	IsAvailable       bool
	Priority          int
	Reason            string
	RecurrencePattern string
}

// AvailabilityOption configures the generated availability fixture.
type AvailabilityOption func(*AvailabilityFixture)

// NewAvailabilityFixture returns an unavailable window for userID.
func NewAvailabilityFixture(userID string, start, end time.Time, opts ...AvailabilityOption) AvailabilityFixture {
	idx := atomic.AddUint64(&availabilityCounter, 1)
	fixture := AvailabilityFixture{
		ID:       fmt.Sprintf("availability-%03d", idx),
		UserID:   userID,
		Start:    start,
		End:      end,
		Timezone: "UTC",
		Priority: 1,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReason sets why the window is blocked.
func WithReason(reason string) AvailabilityOption {
	return func(f *AvailabilityFixture) {
		f.Reason = reason
	}
}

// WithRecurrence makes the window repeat according to an RRULE.
func WithRecurrence(pattern string) AvailabilityOption {
	return func(f *AvailabilityFixture) {
		f.RecurrencePattern = pattern
	}
}

// Available marks the window as available time.
func Available() AvailabilityOption {
	return func(f *AvailabilityFixture) {
		f.IsAvailable = true
	}
}

// Model returns the fixture as a persistence.AvailabilityWindow.
func (f AvailabilityFixture) Model() persistence.AvailabilityWindow {
	return persistence.AvailabilityWindow{
		ID:                f.ID,
		UserID:            f.UserID,
		Start:             f.Start,
		End:               f.End,
		Timezone:          f.Timezone,
		IsAvailable:       f.IsAvailable,
		Priority:          f.Priority,
		Reason:            f.Reason,
		IsRecurring:       f.RecurrencePattern != "",
		RecurrencePattern: f.RecurrencePattern,
		CreatedAt:         referenceTime,
	}
}

// Input returns the fixture as an application.AvailabilityInput.
func (f AvailabilityFixture) Input() application.AvailabilityInput {
	return application.AvailabilityInput{
		Start:             f.Start,
		End:               f.End,
		Timezone:          f.Timezone,
		IsAvailable:       f.IsAvailable,
		Priority:          f.Priority,
		Reason:            f.Reason,
		RecurrencePattern: f.RecurrencePattern,
	}
}

// ------------------------------- Seeding -------------------------------

// MustCreateUser stores the fixture and fails the test on error.
func MustCreateUser(tb testing.TB, store persistence.UserRepository, fixture UserFixture) persistence.User {
	tb.Helper()

	user := fixture.Model()
	if err := store.CreateUser(context.Background(), user); err != nil {
		tb.Fatalf("create user %s: %v", user.ID, err)
	}
	return user
}

// MustScheduleMeeting stores the fixture with its participants and fails the
// test on error.
func MustScheduleMeeting(tb testing.TB, store persistence.MeetingRepository, fixture MeetingFixture) persistence.Meeting {
	tb.Helper()

	meeting := fixture.Model()
	if err := store.ScheduleMeeting(context.Background(), meeting, fixture.Participants()); err != nil {
		tb.Fatalf("schedule meeting %s: %v", meeting.ID, err)
	}
	return meeting
}

// MustCreateAvailability stores the fixture and fails the test on error.
func MustCreateAvailability(tb testing.TB, store persistence.AvailabilityRepository, fixture AvailabilityFixture) persistence.AvailabilityWindow {
	tb.Helper()

	window := fixture.Model()
	if err := store.CreateAvailability(context.Background(), window); err != nil {
		tb.Fatalf("create availability %s: %v", window.ID, err)
	}
	return window
}
