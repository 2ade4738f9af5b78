package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/testfixtures"
)

func TestStatsService_Stats(t *testing.T) {
	t.Parallel()

	factory := testfixtures.NewServiceFactory()
	utc := testfixtures.MustCreateUser(t, factory.Store, testfixtures.NewUserFixture())
	testfixtures.MustCreateUser(t, factory.Store, testfixtures.NewUserFixture(testfixtures.WithUserTimezone("Asia/Tokyo")))
	testfixtures.MustCreateUser(t, factory.Store, testfixtures.NewUserFixture(testfixtures.WithUserTimezone("Asia/Tokyo")))

	clock := factory.Clock
	seed := func(start time.Time, opts ...testfixtures.MeetingOption) {
		testfixtures.MustScheduleMeeting(t, factory.Store, testfixtures.NewMeetingFixture(utc.ID, start, time.Hour, opts...))
	}
	seed(clock.At(-2, 10, 0), testfixtures.WithMeetingStatus(persistence.MeetingStatusCompleted), testfixtures.WithEffectiveness(8))
	seed(clock.At(-1, 10, 0), testfixtures.WithMeetingStatus(persistence.MeetingStatusCancelled), testfixtures.WithEffectiveness(6))
	seed(clock.At(-1, 14, 0))
	seed(clock.At(1, 10, 0))
	seed(clock.At(2, 10, 0))

	stats, err := factory.NewStatsService().Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalUsers)
	assert.Equal(t, 5, stats.TotalMeetings)
	assert.Equal(t, 1, stats.CompletedMeetings)
	assert.Equal(t, 2, stats.UpcomingMeetings)
	require.NotNil(t, stats.AverageEffectiveness)
	assert.InDelta(t, 7.0, *stats.AverageEffectiveness, 1e-9)
	assert.Equal(t, map[string]int{"UTC": 1, "Asia/Tokyo": 2}, stats.UsersByTimezone)
}

func TestStatsService_EmptyCalendar(t *testing.T) {
	t.Parallel()

	stats, err := testfixtures.NewServiceFactory().NewStatsService().Stats(context.Background())
	require.NoError(t, err)

	assert.Zero(t, stats.TotalUsers)
	assert.Nil(t, stats.AverageEffectiveness)
	assert.Empty(t, stats.UsersByTimezone)
}
