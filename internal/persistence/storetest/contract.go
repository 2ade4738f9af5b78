// Package storetest holds behaviour checks shared by every CalendarStore
// implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) persistence.CalendarStore

var base = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

// Run exercises the CalendarStore contract against stores built by factory.
func Run(t *testing.T, factory Factory) {
	t.Helper()

	t.Run("users", func(t *testing.T) { testUsers(t, factory(t)) })
	t.Run("meeting filters", func(t *testing.T) { testMeetingFilters(t, factory(t)) })
	t.Run("schedule meeting is atomic", func(t *testing.T) { testScheduleMeetingAtomic(t, factory(t)) })
	t.Run("count meetings on day", func(t *testing.T) { testCountMeetingsOnDay(t, factory(t)) })
	t.Run("scores and participants", func(t *testing.T) { testScoresAndParticipants(t, factory(t)) })
	t.Run("availability", func(t *testing.T) { testAvailability(t, factory(t)) })
}

// User builds a user with default work settings.
func User(id, email string, createdAt time.Time) persistence.User {
	return persistence.User{
		ID:                       id,
		Name:                     "User " + id,
		Email:                    email,
		Role:                     persistence.RoleEmployee,
		Timezone:                 "UTC",
		WorkStartHour:            persistence.DefaultWorkStartHour,
		WorkEndHour:              persistence.DefaultWorkEndHour,
		WorkDays:                 persistence.DefaultWorkDays,
		MaxMeetingsPerDay:        persistence.DefaultMaxMeetingsPerDay,
		PreferredMeetingDuration: persistence.DefaultPreferredMeetingDuration,
		BufferTime:               persistence.DefaultBufferTime,
		CreatedAt:                createdAt,
		UpdatedAt:                createdAt,
	}
}

// Meeting builds a scheduled team meeting.
func Meeting(id, organizerID string, start time.Time, duration time.Duration) persistence.Meeting {
	return persistence.Meeting{
		ID:          id,
		Title:       "Meeting " + id,
		Type:        persistence.MeetingTypeTeam,
		Start:       start,
		End:         start.Add(duration),
		Timezone:    "UTC",
		OrganizerID: organizerID,
		Status:      persistence.MeetingStatusScheduled,
		CreatedAt:   base,
		UpdatedAt:   base,
	}
}

func mustCreateUser(t *testing.T, store persistence.CalendarStore, user persistence.User) {
	t.Helper()
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", user.ID, err)
	}
}

func mustSchedule(t *testing.T, store persistence.CalendarStore, meeting persistence.Meeting, participantIDs ...string) {
	t.Helper()
	participants := make([]persistence.Participant, 0, len(participantIDs))
	for _, id := range participantIDs {
		participants = append(participants, persistence.Participant{UserID: id, IsRequired: true, ResponseStatus: persistence.ResponsePending})
	}
	if err := store.ScheduleMeeting(context.Background(), meeting, participants); err != nil {
		t.Fatalf("ScheduleMeeting(%s) failed: %v", meeting.ID, err)
	}
}

func testUsers(t *testing.T, store persistence.CalendarStore) {
	ctx := context.Background()
	mustCreateUser(t, store, User("u2", "second@example.com", base.Add(time.Hour)))
	mustCreateUser(t, store, User("u1", "First@Example.com", base))

	if err := store.CreateUser(ctx, User("u3", "first@example.com", base)); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for repeated email, got %v", err)
	}

	got, err := store.GetUserByEmail(ctx, "FIRST@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if got.ID != "u1" {
		t.Fatalf("expected u1, got %s", got.ID)
	}
	if len(got.WorkDays) != 5 || got.WorkDays[0] != time.Monday || got.WorkDays[4] != time.Friday {
		t.Fatalf("unexpected work days %v", got.WorkDays)
	}

	all, err := store.ListUsers(ctx, nil)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != "u1" || all[1].ID != "u2" {
		t.Fatalf("expected users ordered by creation, got %+v", all)
	}

	some, err := store.ListUsers(ctx, []string{"u2", "missing"})
	if err != nil {
		t.Fatalf("ListUsers(ids) failed: %v", err)
	}
	if len(some) != 1 || some[0].ID != "u2" {
		t.Fatalf("expected only u2, got %+v", some)
	}

	updated := got
	updated.Name = "Renamed"
	updated.MaxMeetingsPerDay = 3
	if err := store.UpdateUser(ctx, updated); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	reloaded, err := store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if reloaded.Name != "Renamed" || reloaded.MaxMeetingsPerDay != 3 {
		t.Fatalf("update not persisted: %+v", reloaded)
	}

	if _, err := store.GetUser(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.UpdateUser(ctx, User("missing", "missing@example.com", base)); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}

func testMeetingFilters(t *testing.T, store persistence.CalendarStore) {
	ctx := context.Background()
	mustCreateUser(t, store, User("alice", "alice@example.com", base))
	mustCreateUser(t, store, User("bob", "bob@example.com", base))

	nine := base.Add(9 * time.Hour)
	mustSchedule(t, store, Meeting("m1", "alice", nine, time.Hour), "bob")
	mustSchedule(t, store, Meeting("m2", "bob", nine.Add(2*time.Hour), 30*time.Minute))
	cancelled := Meeting("m3", "alice", nine.Add(-2*time.Hour), 3*time.Hour)
	cancelled.Status = persistence.MeetingStatusCancelled
	mustSchedule(t, store, cancelled)

	bobs, err := store.ListMeetings(ctx, persistence.MeetingFilter{UserID: "bob"})
	if err != nil {
		t.Fatalf("ListMeetings failed: %v", err)
	}
	if len(bobs) != 2 || bobs[0].ID != "m1" || bobs[1].ID != "m2" {
		t.Fatalf("expected bob's meetings m1,m2 got %+v", ids(bobs))
	}

	window := persistence.TimeRange{Start: nine.Add(30 * time.Minute), End: nine.Add(2 * time.Hour)}
	overlapping, err := store.ListMeetings(ctx, persistence.MeetingFilter{Window: &window})
	if err != nil {
		t.Fatalf("ListMeetings(window) failed: %v", err)
	}
	if got := ids(overlapping); len(got) != 2 || got[0] != "m3" || got[1] != "m1" {
		t.Fatalf("expected overlap m3,m1 got %v", got)
	}

	starting, err := store.ListMeetings(ctx, persistence.MeetingFilter{Window: &window, Match: persistence.MatchStart})
	if err != nil {
		t.Fatalf("ListMeetings(start) failed: %v", err)
	}
	if len(starting) != 0 {
		t.Fatalf("expected no meeting starting in window, got %v", ids(starting))
	}

	scheduled, err := store.ListMeetings(ctx, persistence.MeetingFilter{
		OrganizerID: "alice",
		Statuses:    []persistence.MeetingStatus{persistence.MeetingStatusScheduled},
	})
	if err != nil {
		t.Fatalf("ListMeetings(status) failed: %v", err)
	}
	if got := ids(scheduled); len(got) != 1 || got[0] != "m1" {
		t.Fatalf("expected m1 only, got %v", got)
	}

	page, err := store.ListMeetings(ctx, persistence.MeetingFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("ListMeetings(page) failed: %v", err)
	}
	if got := ids(page); len(got) != 1 || got[0] != "m1" {
		t.Fatalf("expected second meeting m1, got %v", got)
	}

	got, err := store.GetMeeting(ctx, "m1")
	if err != nil {
		t.Fatalf("GetMeeting failed: %v", err)
	}
	if !got.Start.Equal(nine) || got.DurationMinutes() != 60 {
		t.Fatalf("unexpected meeting interval %v-%v", got.Start, got.End)
	}
}

func testScheduleMeetingAtomic(t *testing.T, store persistence.CalendarStore) {
	ctx := context.Background()
	mustCreateUser(t, store, User("alice", "alice@example.com", base))

	meeting := Meeting("m1", "alice", base.Add(9*time.Hour), time.Hour)
	err := store.ScheduleMeeting(ctx, meeting, []persistence.Participant{
		{UserID: "alice", IsRequired: true, ResponseStatus: persistence.ResponseAccepted},
		{UserID: "ghost", IsRequired: true, ResponseStatus: persistence.ResponsePending},
	})
	if !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
	}
	if _, err := store.GetMeeting(ctx, "m1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected meeting to be rolled back, got %v", err)
	}

	orphan := Meeting("m2", "ghost", base.Add(9*time.Hour), time.Hour)
	if err := store.CreateMeeting(ctx, orphan); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation for unknown organizer, got %v", err)
	}
}

func testCountMeetingsOnDay(t *testing.T, store persistence.CalendarStore) {
	ctx := context.Background()
	mustCreateUser(t, store, User("alice", "alice@example.com", base))
	mustCreateUser(t, store, User("bob", "bob@example.com", base))

	mustSchedule(t, store, Meeting("m1", "alice", base.Add(9*time.Hour), time.Hour), "bob")
	mustSchedule(t, store, Meeting("m2", "alice", base.Add(13*time.Hour), time.Hour), "bob")
	mustSchedule(t, store, Meeting("m3", "alice", base.Add(33*time.Hour), time.Hour), "bob")
	done := Meeting("m4", "alice", base.Add(15*time.Hour), time.Hour)
	done.Status = persistence.MeetingStatusCompleted
	mustSchedule(t, store, done, "bob")

	day := persistence.TimeRange{Start: base, End: base.Add(24 * time.Hour)}
	count, err := store.CountMeetingsOnDay(ctx, "bob", day)
	if err != nil {
		t.Fatalf("CountMeetingsOnDay failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 scheduled meetings, got %d", count)
	}
}

func testScoresAndParticipants(t *testing.T, store persistence.CalendarStore) {
	ctx := context.Background()
	mustCreateUser(t, store, User("alice", "alice@example.com", base))
	mustCreateUser(t, store, User("bob", "bob@example.com", base))
	mustCreateUser(t, store, User("carol", "carol@example.com", base))
	mustSchedule(t, store, Meeting("m1", "alice", base.Add(9*time.Hour), time.Hour), "bob")

	if err := store.AddParticipant(ctx, persistence.Participant{MeetingID: "m1", UserID: "carol", ResponseStatus: persistence.ResponsePending}); err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}
	if err := store.AddParticipant(ctx, persistence.Participant{MeetingID: "m1", UserID: "carol", ResponseStatus: persistence.ResponsePending}); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	attended := true
	level := 0.8
	responded := base.Add(8 * time.Hour)
	err := store.UpdateParticipant(ctx, persistence.Participant{
		MeetingID:          "m1",
		UserID:             "bob",
		IsRequired:         true,
		ResponseStatus:     persistence.ResponseAccepted,
		Attended:           &attended,
		ParticipationLevel: &level,
		RespondedAt:        &responded,
	})
	if err != nil {
		t.Fatalf("UpdateParticipant failed: %v", err)
	}

	participants, err := store.ListParticipants(ctx, "m1")
	if err != nil {
		t.Fatalf("ListParticipants failed: %v", err)
	}
	if len(participants) != 2 || participants[0].UserID != "bob" || participants[1].UserID != "carol" {
		t.Fatalf("unexpected participants %+v", participants)
	}
	bob := participants[0]
	if bob.ResponseStatus != persistence.ResponseAccepted || bob.Attended == nil || !*bob.Attended {
		t.Fatalf("participant update not persisted: %+v", bob)
	}
	if bob.ParticipationLevel == nil || *bob.ParticipationLevel != 0.8 || bob.ContributionScore != nil {
		t.Fatalf("unexpected participation scores: %+v", bob)
	}
	if bob.RespondedAt == nil || !bob.RespondedAt.Equal(responded) {
		t.Fatalf("unexpected responded at: %v", bob.RespondedAt)
	}

	effectiveness := 72.5
	if err := store.UpdateMeetingScores(ctx, "m1", persistence.MeetingScores{Effectiveness: &effectiveness}); err != nil {
		t.Fatalf("UpdateMeetingScores failed: %v", err)
	}
	meeting, err := store.GetMeeting(ctx, "m1")
	if err != nil {
		t.Fatalf("GetMeeting failed: %v", err)
	}
	if meeting.EffectivenessScore == nil || *meeting.EffectivenessScore != 72.5 || meeting.EngagementLevel != nil {
		t.Fatalf("unexpected scores: %+v", meeting)
	}
	if err := store.UpdateMeetingScores(ctx, "missing", persistence.MeetingScores{Effectiveness: &effectiveness}); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testAvailability(t *testing.T, store persistence.CalendarStore) {
	ctx := context.Background()
	mustCreateUser(t, store, User("alice", "alice@example.com", base))

	windows := []persistence.AvailabilityWindow{
		{ID: "w1", UserID: "alice", Start: base.Add(9 * time.Hour), End: base.Add(10 * time.Hour), Timezone: "UTC", IsAvailable: false, Priority: 1, Reason: "Dentist"},
		{ID: "w2", UserID: "alice", Start: base.Add(-7 * 24 * time.Hour), End: base.Add(-7*24*time.Hour + time.Hour), Timezone: "UTC", Priority: 2, IsRecurring: true, RecurrencePattern: "FREQ=DAILY"},
		{ID: "w3", UserID: "alice", Start: base.Add(40 * time.Hour), End: base.Add(41 * time.Hour), Timezone: "UTC", IsAvailable: true, Priority: 1},
	}
	for _, window := range windows {
		window.CreatedAt = base
		if err := store.CreateAvailability(ctx, window); err != nil {
			t.Fatalf("CreateAvailability(%s) failed: %v", window.ID, err)
		}
	}
	ghost := windows[0]
	ghost.ID, ghost.UserID = "w9", "ghost"
	if err := store.CreateAvailability(ctx, ghost); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
	}

	day := persistence.TimeRange{Start: base, End: base.Add(24 * time.Hour)}
	found, err := store.ListAvailability(ctx, persistence.AvailabilityFilter{UserID: "alice", Window: day})
	if err != nil {
		t.Fatalf("ListAvailability failed: %v", err)
	}
	if len(found) != 2 || found[0].ID != "w2" || found[1].ID != "w1" {
		t.Fatalf("expected recurring w2 then w1, got %+v", found)
	}
	if !found[0].IsRecurring || found[0].RecurrencePattern != "FREQ=DAILY" || found[1].Reason != "Dentist" {
		t.Fatalf("window fields not persisted: %+v", found)
	}

	blocked, err := store.ListAvailability(ctx, persistence.AvailabilityFilter{UserID: "alice", Window: day, OnlyUnavailable: true})
	if err != nil {
		t.Fatalf("ListAvailability(unavailable) failed: %v", err)
	}
	if len(blocked) != 2 {
		t.Fatalf("expected 2 unavailable windows, got %d", len(blocked))
	}
}

func ids(meetings []persistence.Meeting) []string {
	out := make([]string, 0, len(meetings))
	for _, meeting := range meetings {
		out = append(out, meeting.ID)
	}
	return out
}
