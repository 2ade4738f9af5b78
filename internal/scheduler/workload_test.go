package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkloadScore(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 2.0, WorkloadScore(120, 2, 0), 1e-9)
	assert.InDelta(t, 3.1, WorkloadScore(120, 21, 2), 1e-9)
	assert.Zero(t, WorkloadScore(0, 0, 0))
}

func TestBalanceScore(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 10.0, BalanceScore([]float64{5, 5, 5}), 1e-9)
	assert.Less(t, BalanceScore([]float64{0, 5, 10}), 10.0)
	assert.Zero(t, BalanceScore(nil))
	assert.InDelta(t, 10.0, BalanceScore([]float64{0, 0}), 1e-9)
	assert.Zero(t, BalanceScore([]float64{0, 0, 0, 30}), "scores never go negative")
}

func TestBalanceScore_FallsAsSpreadGrows(t *testing.T) {
	t.Parallel()

	// Every team has a mean workload of 5.
	teams := [][]float64{{5, 5, 5}, {4, 5, 6}, {3, 5, 7}, {2, 5, 8}, {1, 5, 9}, {0, 5, 10}}
	previous := BalanceScore(teams[0])
	assert.InDelta(t, 10.0, previous, 1e-9)
	for _, team := range teams[1:] {
		current := BalanceScore(team)
		assert.Less(t, current, previous, "team %v", team)
		assert.GreaterOrEqual(t, current, 0.0)
		previous = current
	}
}

func TestBalanceWorkload_RepeatedIDsCountOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addUser(t, "alice")
	f.addUser(t, "bob")
	f.addMeeting(t, "m1", "Review", "alice", at(0, 9, 0), time.Hour)

	ctx := context.Background()
	repeated, err := f.engine.BalanceWorkload(ctx, []string{"alice", "alice", " bob", "bob"})
	require.NoError(t, err)
	distinct, err := f.engine.BalanceWorkload(ctx, []string{"alice", "bob"})
	require.NoError(t, err)

	require.Len(t, repeated.Workloads, 2)
	assert.Equal(t, "alice", repeated.Workloads[0].UserID)
	assert.Equal(t, "bob", repeated.Workloads[1].UserID)
	assert.Empty(t, repeated.UnknownUserIDs)
	assert.InDelta(t, distinct.BalanceScore, repeated.BalanceScore, 1e-12)
}

func TestBalanceWorkload(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addUser(t, "alice")
	f.addUser(t, "bob")
	f.addUser(t, "carol")
	f.addMeeting(t, "m1", "Review", "alice", at(0, 9, 0), time.Hour, "bob")
	f.addMeeting(t, "m2", "Planning", "alice", at(1, 9, 0), time.Hour)
	f.addMeeting(t, "old", "Last month", "alice", at(-10, 9, 0), time.Hour, "carol")

	report, err := f.engine.BalanceWorkload(context.Background(), []string{"alice", "ghost", "bob", "carol"})
	require.NoError(t, err)

	require.Len(t, report.Workloads, 3)
	assert.Equal(t, []string{"ghost"}, report.UnknownUserIDs)

	alice, bob, carol := report.Workloads[0], report.Workloads[1], report.Workloads[2]
	assert.Equal(t, "alice", alice.UserID)
	assert.Equal(t, 120, alice.TotalMinutes)
	assert.Equal(t, 2, alice.MeetingCount)
	assert.Equal(t, 2, alice.OrganizedCount)
	assert.InDelta(t, 60.0, alice.AverageDuration, 1e-9)
	assert.InDelta(t, 2.0/7.0, alice.MeetingsPerDay, 1e-9)
	assert.InDelta(t, 2.6, alice.WorkloadScore, 1e-9)

	assert.Equal(t, "bob", bob.UserID)
	assert.InDelta(t, 1.0, bob.WorkloadScore, 1e-9)
	assert.Equal(t, "carol", carol.UserID)
	assert.Zero(t, carol.MeetingCount)
	assert.Zero(t, carol.AverageDuration)

	assert.Equal(t, "alice", report.MostLoadedUser)
	assert.Equal(t, "carol", report.LeastLoadedUser)
	assert.InDelta(t, BalanceScore([]float64{2.6, 1.0, 0}), report.BalanceScore, 1e-9)
	assert.Less(t, report.BalanceScore, 10.0)
}

func TestBalanceWorkload_EmptyTeam(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	report, err := f.engine.BalanceWorkload(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Workloads)
	assert.Zero(t, report.BalanceScore)
	assert.Empty(t, report.MostLoadedUser)
}

func TestBalanceWorkload_TiesKeepRequestOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addUser(t, "alice")
	f.addUser(t, "bob")

	report, err := f.engine.BalanceWorkload(context.Background(), []string{"bob", "alice"})
	require.NoError(t, err)
	assert.Equal(t, "bob", report.MostLoadedUser)
	assert.Equal(t, "bob", report.LeastLoadedUser)
	assert.InDelta(t, 10.0, report.BalanceScore, 1e-9)
}
