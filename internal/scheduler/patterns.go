package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
)

const (
	defaultPreferredHour = 9
	noMeetingsMessage    = "No meetings found for analysis"
	noScoresMessage      = "No effectiveness scores available"
)

// Trend labels for the effectiveness trend.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
)

// PatternReport summarizes a user's meeting history. NoData is set, with a
// message, when the period holds no meetings.
type PatternReport struct {
	UserID           string                          `json:"user_id"`
	NoData           bool                            `json:"no_data,omitempty"`
	Message          string                          `json:"message,omitempty"`
	TotalMeetings    int                             `json:"total_meetings"`
	PeriodDays       int                             `json:"period_days"`
	AveragePerDay    float64                         `json:"average_meetings_per_day"`
	MeetingTypes     map[persistence.MeetingType]int `json:"meeting_types,omitempty"`
	TimePreferences  TimePreferences                 `json:"time_preferences"`
	DurationPatterns DurationStats                   `json:"duration_patterns"`
	DayOfWeek        map[string]int                  `json:"day_of_week_patterns,omitempty"`
	Productivity     ProductivityTrend               `json:"productivity_trends"`
}

// TimePreferences describes when a user's meetings start.
type TimePreferences struct {
	HourlyDistribution map[int]int `json:"hourly_distribution"`
	PreferredStartHour int         `json:"preferred_start_hour"`
	MorningMeetings    int         `json:"morning_meetings"`
	AfternoonMeetings  int         `json:"afternoon_meetings"`
}

// DurationStats describes meeting lengths in minutes.
type DurationStats struct {
	Average      float64     `json:"average_duration"`
	Median       float64     `json:"median_duration"`
	MostCommon   int         `json:"most_common_duration"`
	Distribution map[int]int `json:"duration_distribution"`
}

// ProductivityTrend summarizes effectiveness scores. Message is set instead
// of the other fields when no meeting has been scored.
type ProductivityTrend struct {
	Message              string            `json:"message,omitempty"`
	AverageEffectiveness float64           `json:"average_effectiveness,omitempty"`
	Trend                string            `json:"effectiveness_trend,omitempty"`
	BestPerformingType   string            `json:"best_performing_type,omitempty"`
	Distribution         ScoreDistribution `json:"score_distribution"`
}

// ScoreDistribution buckets effectiveness scores.
type ScoreDistribution struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// AnalyzePatterns aggregates the meetings userID takes part in that started
// during the last periodDays days. Hours and weekdays are read in the user's
// home zone.
func (e *Engine) AnalyzePatterns(ctx context.Context, userID string, periodDays int) (report PatternReport, err error) {
	if err := e.ready(); err != nil {
		return PatternReport{}, err
	}
	begin := time.Now()
	defer func() { e.observe("analyze_patterns", begin, err) }()

	if periodDays <= 0 {
		return PatternReport{}, invalidInput("period_days must be positive")
	}
	user, err := e.getUser(ctx, userID)
	if err != nil {
		return PatternReport{}, err
	}

	now := e.now()
	window := persistence.TimeRange{Start: now.AddDate(0, 0, -periodDays), End: now.Add(time.Nanosecond)}
	meetings, err := e.store.ListMeetings(ctx, persistence.MeetingFilter{
		UserID: user.ID,
		Window: &window,
		Match:  persistence.MatchStart,
	})
	if err != nil {
		return PatternReport{}, fmt.Errorf("list meetings for %s: %w", user.ID, err)
	}

	report = PatternReport{UserID: user.ID, PeriodDays: periodDays}
	if len(meetings) == 0 {
		report.NoData = true
		report.Message = noMeetingsMessage
		return report, nil
	}

	sort.SliceStable(meetings, func(i, j int) bool { return meetings[i].Start.Before(meetings[j].Start) })
	loc := e.location(user)

	report.TotalMeetings = len(meetings)
	report.AveragePerDay = float64(len(meetings)) / float64(periodDays)
	report.MeetingTypes = make(map[persistence.MeetingType]int)
	report.DayOfWeek = make(map[string]int)
	for _, meeting := range meetings {
		report.MeetingTypes[meeting.Type]++
		report.DayOfWeek[meeting.Start.In(loc).Weekday().String()]++
	}
	report.TimePreferences = timePreferences(meetings, loc)
	report.DurationPatterns = durationStats(meetings)
	report.Productivity = productivityTrend(meetings)
	return report, nil
}

func timePreferences(meetings []persistence.Meeting, loc *time.Location) TimePreferences {
	prefs := TimePreferences{HourlyDistribution: make(map[int]int), PreferredStartHour: defaultPreferredHour}
	for _, meeting := range meetings {
		hour := meeting.Start.In(loc).Hour()
		prefs.HourlyDistribution[hour]++
		if hour < 12 {
			prefs.MorningMeetings++
		} else {
			prefs.AfternoonMeetings++
		}
	}

	best := 0
	for hour := 0; hour < 24; hour++ {
		if count := prefs.HourlyDistribution[hour]; count > best {
			best = count
			prefs.PreferredStartHour = hour
		}
	}
	return prefs
}

func durationStats(meetings []persistence.Meeting) DurationStats {
	stats := DurationStats{Distribution: make(map[int]int)}
	durations := make([]int, 0, len(meetings))
	total := 0
	for _, meeting := range meetings {
		d := meeting.DurationMinutes()
		durations = append(durations, d)
		stats.Distribution[d]++
		total += d
	}
	if len(durations) == 0 {
		return stats
	}

	sort.Ints(durations)
	stats.Average = float64(total) / float64(len(durations))
	mid := len(durations) / 2
	if len(durations)%2 == 1 {
		stats.Median = float64(durations[mid])
	} else {
		stats.Median = float64(durations[mid-1]+durations[mid]) / 2
	}

	// durations is sorted, so the first maximum is the shortest tied value.
	best := 0
	for _, d := range durations {
		if count := stats.Distribution[d]; count > best {
			best = count
			stats.MostCommon = d
		}
	}
	return stats
}

// productivityTrend expects meetings in chronological order.
func productivityTrend(meetings []persistence.Meeting) ProductivityTrend {
	var scores []float64
	byType := make(map[persistence.MeetingType][]float64)
	for _, meeting := range meetings {
		if meeting.EffectivenessScore == nil {
			continue
		}
		score := *meeting.EffectivenessScore
		scores = append(scores, score)
		byType[meeting.Type] = append(byType[meeting.Type], score)
	}
	if len(scores) == 0 {
		return ProductivityTrend{Message: noScoresMessage}
	}

	trend := ProductivityTrend{
		AverageEffectiveness: mean(scores),
		Trend:                TrendDeclining,
	}
	if scores[len(scores)-1] > scores[0] {
		trend.Trend = TrendImproving
	}

	bestMean := -1.0
	for _, meetingType := range persistence.MeetingTypes {
		typeScores, ok := byType[meetingType]
		if !ok {
			continue
		}
		if m := mean(typeScores); m > bestMean {
			bestMean = m
			trend.BestPerformingType = string(meetingType)
		}
	}

	for _, score := range scores {
		switch {
		case score >= 8.0:
			trend.Distribution.High++
		case score >= 5.0:
			trend.Distribution.Medium++
		default:
			trend.Distribution.Low++
		}
	}
	return trend
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
