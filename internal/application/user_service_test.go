package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/testfixtures"
)

func intPtr(v int) *int { return &v }

func requireFieldErrors(t *testing.T, err error, fields ...string) {
	t.Helper()

	var vErr *application.ValidationError
	require.True(t, errors.As(err, &vErr), "expected a validation error, got %v", err)
	for _, field := range fields {
		assert.Contains(t, vErr.FieldErrors, field)
	}
}

func TestUserService_CreateUser(t *testing.T) {
	t.Parallel()

	t.Run("applies profile defaults", func(t *testing.T) {
		t.Parallel()

		factory := testfixtures.NewServiceFactory()
		svc := factory.NewUserService()

		user, err := svc.CreateUser(context.Background(), application.UserInput{
			Name:  "  Ada Lovelace ",
			Email: " Ada@Example.com ",
		})
		require.NoError(t, err)

		assert.Equal(t, "id-1", user.ID)
		assert.Equal(t, "Ada Lovelace", user.Name)
		assert.Equal(t, "ada@example.com", user.Email)
		assert.Equal(t, persistence.RoleEmployee, user.Role)
		assert.Equal(t, "UTC", user.Timezone)
		assert.Equal(t, 9, user.WorkStartHour)
		assert.Equal(t, 17, user.WorkEndHour)
		assert.Equal(t, persistence.DefaultWorkDays, user.WorkDays)
		assert.Equal(t, 8, user.MaxMeetingsPerDay)
		assert.Equal(t, 30, user.PreferredMeetingDuration)
		assert.Equal(t, 15, user.BufferTime)
		assert.True(t, user.CreatedAt.Equal(factory.Clock.Now()))

		stored, err := factory.Store.GetUser(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, stored.Email)
	})

	t.Run("accepts a full profile", func(t *testing.T) {
		t.Parallel()

		svc := testfixtures.NewServiceFactory().NewUserService()
		user, err := svc.CreateUser(context.Background(), application.UserInput{
			Name:              "Kenji",
			Email:             "kenji@example.com",
			Role:              "Manager",
			Timezone:          "Asia/Tokyo",
			WorkStartHour:     intPtr(8),
			WorkEndHour:       intPtr(16),
			WorkDays:          []int{1, 3, 7, 3},
			MaxMeetingsPerDay: intPtr(4),
		})
		require.NoError(t, err)

		assert.Equal(t, persistence.RoleManager, user.Role)
		assert.Equal(t, "Asia/Tokyo", user.Timezone)
		assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Sunday}, user.WorkDays)
		assert.Equal(t, 4, user.MaxMeetingsPerDay)
	})

	t.Run("validates input fields", func(t *testing.T) {
		t.Parallel()

		svc := testfixtures.NewServiceFactory().NewUserService()
		cases := []struct {
			name   string
			input  application.UserInput
			fields []string
		}{
			{name: "missing name and email", input: application.UserInput{}, fields: []string{"name", "email"}},
			{name: "bad email", input: application.UserInput{Name: "X", Email: "not-an-email"}, fields: []string{"email"}},
			{name: "unknown role", input: application.UserInput{Name: "X", Email: "x@example.com", Role: "owner"}, fields: []string{"role"}},
			{name: "unknown zone", input: application.UserInput{Name: "X", Email: "x@example.com", Timezone: "Mars/Olympus"}, fields: []string{"timezone"}},
			{name: "inverted hours", input: application.UserInput{Name: "X", Email: "x@example.com", WorkStartHour: intPtr(18), WorkEndHour: intPtr(9)}, fields: []string{"work_hours"}},
			{name: "hours past midnight", input: application.UserInput{Name: "X", Email: "x@example.com", WorkEndHour: intPtr(25)}, fields: []string{"work_hours"}},
			{name: "zero daily limit", input: application.UserInput{Name: "X", Email: "x@example.com", MaxMeetingsPerDay: intPtr(0)}, fields: []string{"max_meetings_per_day"}},
			{name: "bad work day", input: application.UserInput{Name: "X", Email: "x@example.com", WorkDays: []int{0, 8}}, fields: []string{"work_days"}},
		}
		for _, tc := range cases {
			_, err := svc.CreateUser(context.Background(), tc.input)
			requireFieldErrors(t, err, tc.fields...)
		}
	})

	t.Run("rejects duplicate emails regardless of case", func(t *testing.T) {
		t.Parallel()

		svc := testfixtures.NewServiceFactory().NewUserService()
		_, err := svc.CreateUser(context.Background(), application.UserInput{Name: "A", Email: "dup@example.com"})
		require.NoError(t, err)

		_, err = svc.CreateUser(context.Background(), application.UserInput{Name: "B", Email: "DUP@example.com"})
		require.ErrorIs(t, err, application.ErrAlreadyExists)
		assert.Equal(t, application.KindConflict, application.ErrorKind(err))
	})
}

func TestUserService_GetAndList(t *testing.T) {
	t.Parallel()

	factory := testfixtures.NewServiceFactory()
	first := testfixtures.MustCreateUser(t, factory.Store, testfixtures.NewUserFixture())
	second := testfixtures.MustCreateUser(t, factory.Store, testfixtures.NewUserFixture())
	svc := factory.NewUserService()

	got, err := svc.GetUser(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Email, got.Email)

	_, err = svc.GetUser(context.Background(), "ghost")
	require.ErrorIs(t, err, application.ErrNotFound)

	users, err := svc.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, first.ID, users[0].ID)
	assert.Equal(t, second.ID, users[1].ID)
}

func TestUserService_UpdateUserProfile(t *testing.T) {
	t.Parallel()

	t.Run("changes only the provided attributes", func(t *testing.T) {
		t.Parallel()

		factory := testfixtures.NewServiceFactory()
		existing := testfixtures.MustCreateUser(t, factory.Store, testfixtures.NewUserFixture())
		factory.Clock.Advance(time.Hour)

		updated, err := factory.NewUserService().UpdateUserProfile(context.Background(), existing.ID, application.UserInput{
			Timezone:    "America/New_York",
			WorkEndHour: intPtr(18),
		})
		require.NoError(t, err)

		assert.Equal(t, existing.Name, updated.Name)
		assert.Equal(t, existing.Email, updated.Email)
		assert.Equal(t, "America/New_York", updated.Timezone)
		assert.Equal(t, 9, updated.WorkStartHour)
		assert.Equal(t, 18, updated.WorkEndHour)
		assert.True(t, updated.UpdatedAt.Equal(factory.Clock.Now()))

		stored, err := factory.Store.GetUser(context.Background(), existing.ID)
		require.NoError(t, err)
		assert.Equal(t, "America/New_York", stored.Timezone)
	})

	t.Run("rejects an email owned by someone else", func(t *testing.T) {
		t.Parallel()

		factory := testfixtures.NewServiceFactory()
		owner := testfixtures.MustCreateUser(t, factory.Store, testfixtures.NewUserFixture())
		other := testfixtures.MustCreateUser(t, factory.Store, testfixtures.NewUserFixture())

		_, err := factory.NewUserService().UpdateUserProfile(context.Background(), other.ID, application.UserInput{Email: owner.Email})
		require.ErrorIs(t, err, application.ErrAlreadyExists)
	})

	t.Run("validates the merged profile", func(t *testing.T) {
		t.Parallel()

		factory := testfixtures.NewServiceFactory()
		existing := testfixtures.MustCreateUser(t, factory.Store, testfixtures.NewUserFixture())

		_, err := factory.NewUserService().UpdateUserProfile(context.Background(), existing.ID, application.UserInput{WorkStartHour: intPtr(17)})
		requireFieldErrors(t, err, "work_hours")
	})

	t.Run("propagates ErrNotFound when the user is missing", func(t *testing.T) {
		t.Parallel()

		_, err := testfixtures.NewServiceFactory().NewUserService().UpdateUserProfile(context.Background(), "ghost", application.UserInput{Name: "X"})
		require.ErrorIs(t, err, application.ErrNotFound)
	})
}

func TestUserService_AddAvailabilityWindow(t *testing.T) {
	t.Parallel()

	factory := testfixtures.NewServiceFactory()
	user := testfixtures.MustCreateUser(t, factory.Store, testfixtures.NewUserFixture(testfixtures.WithUserTimezone("Europe/Berlin")))
	svc := factory.NewUserService()
	start := factory.Clock.At(0, 12, 0)

	t.Run("stores a recurring block in the user's zone", func(t *testing.T) {
		window, err := svc.AddAvailabilityWindow(context.Background(), user.ID, application.AvailabilityInput{
			Start:             start,
			End:               start.Add(time.Hour),
			Reason:            " Lunch ",
			RecurrencePattern: "FREQ=DAILY",
		})
		require.NoError(t, err)

		assert.True(t, window.IsRecurring)
		assert.Equal(t, "Europe/Berlin", window.Timezone)
		assert.Equal(t, 1, window.Priority)
		assert.Equal(t, "Lunch", window.Reason)

		stored, err := factory.Store.ListAvailability(context.Background(), persistence.AvailabilityFilter{
			UserID: user.ID,
			Window: persistence.TimeRange{Start: start.AddDate(0, 0, 3), End: start.AddDate(0, 0, 4)},
		})
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, window.ID, stored[0].ID)
	})

	t.Run("validates the window", func(t *testing.T) {
		_, err := svc.AddAvailabilityWindow(context.Background(), user.ID, application.AvailabilityInput{
			Start:             start,
			End:               start.Add(-time.Hour),
			Priority:          6,
			RecurrencePattern: "FREQ=SOMETIMES",
		})
		requireFieldErrors(t, err, "end_time", "priority", "recurrence_pattern")
	})

	t.Run("requires a known user", func(t *testing.T) {
		_, err := svc.AddAvailabilityWindow(context.Background(), "ghost", application.AvailabilityInput{Start: start, End: start.Add(time.Hour)})
		require.ErrorIs(t, err, application.ErrNotFound)
	})
}
