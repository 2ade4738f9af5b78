package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/example/meeting-scheduler/internal/persistence"
)

// Factor weights of the effectiveness score.
const (
	WeightDuration   = 0.20
	WeightTiming     = 0.20
	WeightEngagement = 0.25
	WeightAgenda     = 0.15
	WeightFollowUp   = 0.20

	followUpPlaceholder   = 6.0
	factorFloor           = 0.0
	factorCeiling         = 10.0
	recommendationCutoff  = 5.0
	defaultOptimalMinutes = 60
)

// OptimalDurations holds the ideal length in minutes per meeting type.
var OptimalDurations = map[persistence.MeetingType]int{
	persistence.MeetingTypeOneOnOne:  30,
	persistence.MeetingTypeTeam:      60,
	persistence.MeetingTypeAllHands:  45,
	persistence.MeetingTypeClient:    60,
	persistence.MeetingTypeInterview: 45,
	persistence.MeetingTypeTraining:  90,
}

// EffectivenessFactors is the per-factor breakdown, each clamped to [0, 10].
type EffectivenessFactors struct {
	DurationAppropriateness float64 `json:"duration_appropriateness"`
	TimingEffectiveness     float64 `json:"timing_effectiveness"`
	ParticipantEngagement   float64 `json:"participant_engagement"`
	AgendaQuality           float64 `json:"agenda_quality"`
	FollowUpClarity         float64 `json:"follow_up_clarity"`
}

// Weighted returns the weighted sum of the factors.
func (f EffectivenessFactors) Weighted() float64 {
	return f.DurationAppropriateness*WeightDuration +
		f.TimingEffectiveness*WeightTiming +
		f.ParticipantEngagement*WeightEngagement +
		f.AgendaQuality*WeightAgenda +
		f.FollowUpClarity*WeightFollowUp
}

// EffectivenessReport is the rating of a single meeting.
type EffectivenessReport struct {
	MeetingID          string               `json:"meeting_id"`
	EffectivenessScore float64              `json:"effectiveness_score"`
	Factors            EffectivenessFactors `json:"factors"`
	Recommendations    []string             `json:"recommendations"`
}

// ScoreEffectiveness rates meetingID and stores the score on the meeting.
// Timing is judged in the meeting's own zone.
func (e *Engine) ScoreEffectiveness(ctx context.Context, meetingID string) (report EffectivenessReport, err error) {
	if err := e.ready(); err != nil {
		return EffectivenessReport{}, err
	}
	begin := time.Now()
	defer func() { e.observe("score_effectiveness", begin, err) }()

	meeting, err := e.store.GetMeeting(ctx, meetingID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return EffectivenessReport{}, fmt.Errorf("%w: meeting %s", ErrNotFound, meetingID)
		}
		return EffectivenessReport{}, fmt.Errorf("load meeting %s: %w", meetingID, err)
	}
	participants, err := e.store.ListParticipants(ctx, meeting.ID)
	if err != nil {
		return EffectivenessReport{}, fmt.Errorf("list participants for %s: %w", meeting.ID, err)
	}

	factors := EffectivenessFactors{
		DurationAppropriateness: DurationFactor(meeting.Type, meeting.DurationMinutes(), len(participants)),
		TimingEffectiveness:     TimingFactor(meeting.Start.In(e.zones.ResolveOrFallback(meeting.Timezone)).Hour()),
		ParticipantEngagement:   EngagementFactor(participants),
		AgendaQuality:           AgendaFactor(meeting.Agenda),
		FollowUpClarity:         followUpPlaceholder,
	}
	score := factors.Weighted()

	if err := e.store.UpdateMeetingScores(ctx, meeting.ID, persistence.MeetingScores{Effectiveness: &score}); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return EffectivenessReport{}, fmt.Errorf("%w: meeting %s", ErrNotFound, meeting.ID)
		}
		return EffectivenessReport{}, fmt.Errorf("store effectiveness for %s: %w", meeting.ID, err)
	}

	e.log(ctx, "score_effectiveness", "meeting_id", meeting.ID).InfoContext(ctx, "meeting scored", "score", score)
	return EffectivenessReport{
		MeetingID:          meeting.ID,
		EffectivenessScore: score,
		Factors:            factors,
		Recommendations:    recommendations(factors),
	}, nil
}

// DurationFactor rates how close a meeting's length is to its type's ideal.
func DurationFactor(meetingType persistence.MeetingType, actualMinutes, participantCount int) float64 {
	optimal, ok := OptimalDurations[meetingType]
	if !ok {
		optimal = defaultOptimalMinutes
	}
	diff := math.Abs(float64(actualMinutes - optimal))
	score := 5.0 - 5.0*diff/float64(optimal)
	if participantCount > 5 && actualMinutes < 45 {
		score -= 2.0
	}
	return clamp(score)
}

// TimingFactor rates a local start hour.
func TimingFactor(hour int) float64 {
	score := 5.0
	switch {
	case (hour >= 9 && hour <= 11) || (hour >= 14 && hour <= 16):
		score += 3.0
	case (hour >= 8 && hour <= 9) || (hour >= 16 && hour <= 17):
		score += 1.0
	default:
		score -= 2.0
	}
	return clamp(score)
}

// EngagementFactor averages recorded participation levels, falling back to
// the share of accepted invitations. No participants scores zero.
func EngagementFactor(participants []persistence.Participant) float64 {
	if len(participants) == 0 {
		return 0
	}
	var levels []float64
	accepted := 0
	for _, participant := range participants {
		if participant.ParticipationLevel != nil {
			levels = append(levels, *participant.ParticipationLevel)
		}
		if participant.ResponseStatus == persistence.ResponseAccepted {
			accepted++
		}
	}
	if len(levels) > 0 {
		return clamp(mean(levels))
	}
	return clamp(float64(accepted) / float64(len(participants)) * 10.0)
}

// AgendaFactor rates an agenda by its length in characters.
func AgendaFactor(agenda string) float64 {
	length := utf8.RuneCountInString(agenda)
	switch {
	case length == 0:
		return 2.0
	case length < 50:
		return 3.0
	case length < 200:
		return 7.0
	default:
		return 9.0
	}
}

func recommendations(factors EffectivenessFactors) []string {
	recs := make([]string, 0, 4)
	if factors.DurationAppropriateness < recommendationCutoff {
		recs = append(recs, "Consider adjusting meeting duration to be more appropriate for the meeting type")
	}
	if factors.TimingEffectiveness < recommendationCutoff {
		recs = append(recs, "Schedule meetings during optimal hours (9-11 AM or 2-4 PM)")
	}
	if factors.ParticipantEngagement < recommendationCutoff {
		recs = append(recs, "Improve participant engagement through better preparation and interaction")
	}
	if factors.AgendaQuality < recommendationCutoff {
		recs = append(recs, "Create detailed agendas with clear objectives and time allocations")
	}
	return recs
}

func clamp(value float64) float64 {
	return math.Min(factorCeiling, math.Max(factorFloor, value))
}
