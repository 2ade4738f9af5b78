package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-scheduler/internal/persistence"
)

func TestDurationFactor(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 5.0, DurationFactor(persistence.MeetingTypeTeam, 60, 3), 1e-9)
	assert.InDelta(t, 0.0, DurationFactor(persistence.MeetingTypeOneOnOne, 60, 2), 1e-9)
	assert.InDelta(t, 0.5, DurationFactor(persistence.MeetingTypeTeam, 30, 6), 1e-9, "short meeting with many people")
	assert.InDelta(t, 0.0, DurationFactor(persistence.MeetingTypeOneOnOne, 120, 2), 1e-9, "never negative")
	assert.InDelta(t, 5.0, DurationFactor("unknown", 60, 1), 1e-9)
}

func TestTimingFactor(t *testing.T) {
	t.Parallel()

	cases := map[int]float64{8: 6, 9: 8, 11: 8, 12: 3, 13: 3, 14: 8, 16: 8, 17: 6, 20: 3, 0: 3}
	for hour, want := range cases {
		assert.InDelta(t, want, TimingFactor(hour), 1e-9, "hour %d", hour)
	}
}

func TestEngagementFactor(t *testing.T) {
	t.Parallel()

	assert.Zero(t, EngagementFactor(nil))

	levels := []persistence.Participant{
		{ResponseStatus: persistence.ResponseAccepted, ParticipationLevel: score(8)},
		{ResponseStatus: persistence.ResponseDeclined, ParticipationLevel: score(6)},
		{ResponseStatus: persistence.ResponsePending},
	}
	assert.InDelta(t, 7.0, EngagementFactor(levels), 1e-9)

	responses := []persistence.Participant{
		{ResponseStatus: persistence.ResponseAccepted},
		{ResponseStatus: persistence.ResponseTentative},
	}
	assert.InDelta(t, 5.0, EngagementFactor(responses), 1e-9)
}

func TestAgendaFactor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2.0, AgendaFactor(""))
	assert.Equal(t, 3.0, AgendaFactor("Short list"))
	assert.Equal(t, 7.0, AgendaFactor(strings.Repeat("a", 50)))
	assert.Equal(t, 7.0, AgendaFactor(strings.Repeat("a", 199)))
	assert.Equal(t, 9.0, AgendaFactor(strings.Repeat("a", 200)))
	assert.Equal(t, 3.0, AgendaFactor(strings.Repeat("é", 49)), "length counts characters")
}

func TestEffectivenessFactors_Weighted(t *testing.T) {
	t.Parallel()

	factors := EffectivenessFactors{
		DurationAppropriateness: 10,
		TimingEffectiveness:     10,
		ParticipantEngagement:   10,
		AgendaQuality:           10,
		FollowUpClarity:         10,
	}
	assert.InDelta(t, 10.0, factors.Weighted(), 1e-9)
	assert.InDelta(t, 1.0, WeightDuration+WeightTiming+WeightEngagement+WeightAgenda+WeightFollowUp, 1e-9)
}

func TestScoreEffectiveness_WellRunMeeting(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "alice")
	f.addUser(t, "bob")
	f.addUser(t, "carol")
	meeting := f.addMeeting(t, "m1", "Roadmap", "alice", at(0, 10, 0), time.Hour, "bob", "carol")
	meeting.Agenda = strings.Repeat("x", 100)
	require.NoError(t, f.store.UpdateMeeting(ctx, meeting))

	report, err := f.engine.ScoreEffectiveness(ctx, "m1")
	require.NoError(t, err)

	assert.Equal(t, EffectivenessFactors{
		DurationAppropriateness: 5,
		TimingEffectiveness:     8,
		ParticipantEngagement:   10,
		AgendaQuality:           7,
		FollowUpClarity:         6,
	}, report.Factors)
	assert.InDelta(t, 7.35, report.EffectivenessScore, 1e-9)
	assert.InDelta(t, report.Factors.Weighted(), report.EffectivenessScore, 1e-12)
	assert.Empty(t, report.Recommendations)

	stored, err := f.store.GetMeeting(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, stored.EffectivenessScore)
	assert.InDelta(t, 7.35, *stored.EffectivenessScore, 1e-9)
}

func TestScoreEffectiveness_PoorMeetingGetsRecommendations(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addUser(t, "alice")
	meeting := f.addMeeting(t, "m1", "Late chat", "alice", at(0, 20, 0), 90*time.Minute)
	f.retype(t, meeting.ID, persistence.MeetingTypeOneOnOne, nil)

	report, err := f.engine.ScoreEffectiveness(context.Background(), "m1")
	require.NoError(t, err)
	assert.InDelta(t, 2.1, report.EffectivenessScore, 1e-9)
	assert.Equal(t, []string{
		"Consider adjusting meeting duration to be more appropriate for the meeting type",
		"Schedule meetings during optimal hours (9-11 AM or 2-4 PM)",
		"Improve participant engagement through better preparation and interaction",
		"Create detailed agendas with clear objectives and time allocations",
	}, report.Recommendations)
}

func TestScoreEffectiveness_TimingUsesMeetingZone(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "alice")
	meeting := f.addMeeting(t, "m1", "Tokyo sync", "alice", at(0, 1, 0), time.Hour)
	meeting.Timezone = "Asia/Tokyo"
	require.NoError(t, f.store.UpdateMeeting(ctx, meeting))

	report, err := f.engine.ScoreEffectiveness(ctx, "m1")
	require.NoError(t, err)
	assert.InDelta(t, 8.0, report.Factors.TimingEffectiveness, 1e-9, "01:00 UTC is 10:00 in Tokyo")
}

func TestScoreEffectiveness_UnknownMeeting(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.engine.ScoreEffectiveness(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestScoreEffectiveness_DurationMovesOnlyDurationTerm(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "alice")
	f.addUser(t, "bob")
	f.addUser(t, "carol")
	f.addMeeting(t, "hour", "Sync", "alice", at(0, 10, 0), time.Hour, "bob", "carol")
	f.addMeeting(t, "half", "Sync", "alice", at(1, 10, 0), 30*time.Minute, "bob", "carol")

	long, err := f.engine.ScoreEffectiveness(ctx, "hour")
	require.NoError(t, err)
	short, err := f.engine.ScoreEffectiveness(ctx, "half")
	require.NoError(t, err)

	assert.NotEqual(t, long.Factors.DurationAppropriateness, short.Factors.DurationAppropriateness)
	assert.Equal(t, long.Factors.TimingEffectiveness, short.Factors.TimingEffectiveness)
	assert.Equal(t, long.Factors.ParticipantEngagement, short.Factors.ParticipantEngagement)
	assert.Equal(t, long.Factors.AgendaQuality, short.Factors.AgendaQuality)
	assert.Equal(t, long.Factors.FollowUpClarity, short.Factors.FollowUpClarity)

	delta := long.Factors.DurationAppropriateness - short.Factors.DurationAppropriateness
	assert.InDelta(t, WeightDuration*delta, long.EffectivenessScore-short.EffectivenessScore, 1e-9)
}
