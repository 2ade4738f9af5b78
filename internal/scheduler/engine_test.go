package scheduler

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/persistence/memory"
	"github.com/example/meeting-scheduler/internal/persistence/storetest"
)

// monday is 2024-03-04 00:00 UTC. The default clock sits on Friday noon of that week.
var monday = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

func at(day, hour, minute int) time.Time {
	return monday.AddDate(0, 0, day).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

type fixture struct {
	store    *memory.Storage
	engine   *Engine
	observer *recordingObserver
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    memory.New(),
		observer: &recordingObserver{},
		now:      at(4, 12, 0),
	}
	f.engine = New(f.store,
		WithClock(func() time.Time { return f.now }),
		WithObserver(f.observer),
	)
	return f
}

func (f *fixture) addUser(t *testing.T, id string, mutate ...func(*persistence.User)) persistence.User {
	t.Helper()

	user := storetest.User(id, id+"@example.com", monday)
	user.Name = displayName(id)
	for _, fn := range mutate {
		fn(&user)
	}
	require.NoError(t, f.store.CreateUser(context.Background(), user))
	return user
}

func (f *fixture) addMeeting(t *testing.T, id, title, organizerID string, start time.Time, duration time.Duration, participantIDs ...string) persistence.Meeting {
	t.Helper()

	meeting := storetest.Meeting(id, organizerID, start, duration)
	meeting.Title = title
	participants := make([]persistence.Participant, 0, len(participantIDs))
	for _, userID := range participantIDs {
		participants = append(participants, persistence.Participant{
			UserID:         userID,
			IsRequired:     true,
			ResponseStatus: persistence.ResponseAccepted,
		})
	}
	require.NoError(t, f.store.ScheduleMeeting(context.Background(), meeting, participants))
	return meeting
}

func displayName(id string) string {
	if id == "" {
		return id
	}
	return strings.ToUpper(id[:1]) + id[1:]
}

func withMaxMeetings(n int) func(*persistence.User) {
	return func(u *persistence.User) { u.MaxMeetingsPerDay = n }
}

func withTimezone(name string) func(*persistence.User) {
	return func(u *persistence.User) { u.Timezone = name }
}

type recordingObserver struct {
	mu         sync.Mutex
	operations []string
	failures   int
	candidates int
	ranked     int
}

func (o *recordingObserver) ObserveOperation(operation string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.operations = append(o.operations, operation)
	if err != nil {
		o.failures++
	}
}

func (o *recordingObserver) ObserveSlotSearch(candidates, ranked int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.candidates = candidates
	o.ranked = ranked
}

func TestNilEngineReturnsError(t *testing.T) {
	t.Parallel()

	var engine *Engine
	_, err := engine.DetectConflicts(context.Background(), "alice", at(0, 9, 0), at(0, 10, 0))
	require.Error(t, err)

	_, err = New(nil).AnalyzePatterns(context.Background(), "alice", 30)
	require.Error(t, err)
}

func TestDayBoundsUsesLocation(t *testing.T) {
	t.Parallel()

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 23:30 UTC on Monday is already Tuesday in Tokyo.
	bounds := dayBounds(at(0, 23, 30).In(tokyo))
	require.True(t, bounds.Start.Equal(time.Date(2024, time.March, 5, 0, 0, 0, 0, tokyo)))
	require.Equal(t, 24*time.Hour, bounds.End.Sub(bounds.Start))
}
