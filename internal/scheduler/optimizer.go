package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
)

const (
	heavyDayMinutes       = 480
	backToBackPenalty     = 0.5
	heavyDayPenalty       = 1.0
	offHoursPenalty       = 0.3
	maxScheduleScore      = 10.0
	earliestOptimalHour   = 9
	latestOptimalStartHr  = 16
	offHoursSuggestion    = "Consider rescheduling to 9-11 AM or 2-4 PM"
	recommendationHigh    = "high"
	recommendationMedium  = "medium"
	recommendationBuffer  = "buffer_time"
	recommendationBalance = "workload_balance"
	recommendationTiming  = "timing_optimization"
)

// MeetingRef identifies a meeting inside a report.
type MeetingRef struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

// BackToBack is a pair of consecutive meetings with no gap between them.
type BackToBack struct {
	First      MeetingRef `json:"meeting1"`
	Second     MeetingRef `json:"meeting2"`
	GapMinutes float64    `json:"gap_minutes"`
}

// HeavyDay is a calendar day over the user's meeting limits.
type HeavyDay struct {
	Date         string `json:"date"`
	MeetingCount int    `json:"meeting_count"`
	TotalMinutes int    `json:"total_minutes"`
}

// Recommendation is a prioritized suggestion for a schedule.
type Recommendation struct {
	Type        string `json:"type"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion,omitempty"`
	MeetingID   string `json:"meeting_id,omitempty"`
}

// OptimizationReport lists issues found in a user's upcoming schedule.
type OptimizationReport struct {
	UserID           string           `json:"user_id"`
	UpcomingMeetings int              `json:"current_meetings"`
	BackToBack       []BackToBack     `json:"back_to_back_meetings"`
	HeavyDays        []HeavyDay       `json:"heavy_days"`
	OffHours         []MeetingRef     `json:"off_hours_meetings"`
	Recommendations  []Recommendation `json:"recommendations"`
	ScheduleScore    float64          `json:"optimization_score"`
}

// OptimizeSchedule inspects userID's future scheduled meetings. Days and hours
// are evaluated in the user's home zone.
func (e *Engine) OptimizeSchedule(ctx context.Context, userID string) (report OptimizationReport, err error) {
	if err := e.ready(); err != nil {
		return OptimizationReport{}, err
	}
	begin := time.Now()
	defer func() { e.observe("optimize_schedule", begin, err) }()

	user, err := e.getUser(ctx, userID)
	if err != nil {
		return OptimizationReport{}, err
	}

	now := e.now()
	meetings, err := e.store.ListMeetings(ctx, persistence.MeetingFilter{
		UserID:   user.ID,
		Window:   &persistence.TimeRange{Start: now.Add(time.Nanosecond), End: farFuture},
		Match:    persistence.MatchStart,
		Statuses: []persistence.MeetingStatus{persistence.MeetingStatusScheduled},
	})
	if err != nil {
		return OptimizationReport{}, fmt.Errorf("list meetings for %s: %w", user.ID, err)
	}
	sort.SliceStable(meetings, func(i, j int) bool { return meetings[i].Start.Before(meetings[j].Start) })

	loc := e.location(user)
	report = OptimizationReport{
		UserID:           user.ID,
		UpcomingMeetings: len(meetings),
		BackToBack:       findBackToBack(meetings),
		HeavyDays:        findHeavyDays(meetings, loc, user.MaxMeetingsPerDay),
		OffHours:         []MeetingRef{},
		Recommendations:  []Recommendation{},
	}

	if n := len(report.BackToBack); n > 0 {
		report.Recommendations = append(report.Recommendations, Recommendation{
			Type:        recommendationBuffer,
			Priority:    recommendationHigh,
			Description: fmt.Sprintf("Found %d back-to-back meetings. Consider adding buffer time.", n),
		})
	}
	if n := len(report.HeavyDays); n > 0 {
		report.Recommendations = append(report.Recommendations, Recommendation{
			Type:        recommendationBalance,
			Priority:    recommendationMedium,
			Description: fmt.Sprintf("Found %d days with heavy meeting load.", n),
		})
	}
	for _, meeting := range meetings {
		hour := meeting.Start.In(loc).Hour()
		if hour >= earliestOptimalHour && hour <= latestOptimalStartHr {
			continue
		}
		report.OffHours = append(report.OffHours, refOf(meeting))
		report.Recommendations = append(report.Recommendations, Recommendation{
			Type:        recommendationTiming,
			Priority:    recommendationMedium,
			Description: fmt.Sprintf("Meeting '%s' scheduled outside optimal hours", meeting.Title),
			Suggestion:  offHoursSuggestion,
			MeetingID:   meeting.ID,
		})
	}

	report.ScheduleScore = ScheduleScore(len(meetings), len(report.BackToBack), len(report.HeavyDays), len(report.OffHours))
	return report, nil
}

// ScheduleScore penalizes a schedule for each detected issue, floored at zero.
// An empty schedule scores the maximum.
func ScheduleScore(meetings, backToBack, heavyDays, offHours int) float64 {
	if meetings == 0 {
		return maxScheduleScore
	}
	score := maxScheduleScore -
		backToBackPenalty*float64(backToBack) -
		heavyDayPenalty*float64(heavyDays) -
		offHoursPenalty*float64(offHours)
	if score < 0 {
		return 0
	}
	return score
}

// farFuture bounds open-ended "upcoming" queries.
var farFuture = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// findBackToBack expects meetings sorted by start.
func findBackToBack(meetings []persistence.Meeting) []BackToBack {
	pairs := []BackToBack{}
	for i := 1; i < len(meetings); i++ {
		prev, next := meetings[i-1], meetings[i]
		if prev.End.Before(next.Start) {
			continue
		}
		pairs = append(pairs, BackToBack{
			First:      refOf(prev),
			Second:     refOf(next),
			GapMinutes: next.Start.Sub(prev.End).Minutes(),
		})
	}
	return pairs
}

func findHeavyDays(meetings []persistence.Meeting, loc *time.Location, maxPerDay int) []HeavyDay {
	byDay := make(map[string]*HeavyDay)
	for _, meeting := range meetings {
		key := meeting.Start.In(loc).Format(time.DateOnly)
		day, ok := byDay[key]
		if !ok {
			day = &HeavyDay{Date: key}
			byDay[key] = day
		}
		day.MeetingCount++
		day.TotalMinutes += meeting.DurationMinutes()
	}

	heavy := []HeavyDay{}
	for _, day := range byDay {
		if day.MeetingCount > maxPerDay || day.TotalMinutes > heavyDayMinutes {
			heavy = append(heavy, *day)
		}
	}
	sort.Slice(heavy, func(i, j int) bool { return heavy[i].Date < heavy[j].Date })
	return heavy
}

func refOf(meeting persistence.Meeting) MeetingRef {
	return MeetingRef{ID: meeting.ID, Title: meeting.Title, Start: meeting.Start, End: meeting.End}
}
