package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/recurrence"
)

// ConflictKind classifies why a participant cannot attend an interval.
type ConflictKind string

const (
	ConflictKindMeeting      ConflictKind = "meeting"
	ConflictKindAvailability ConflictKind = "availability"
	ConflictKindWorkload     ConflictKind = "workload"
)

// Severity ranks how hard a conflict is.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Conflict is a reason a user cannot attend a requested interval.
type Conflict struct {
	UserID   string       `json:"user_id"`
	UserName string       `json:"user_name"`
	Kind     ConflictKind `json:"type"`
	Time     time.Time    `json:"conflict_time"`
	Detail   string       `json:"details"`
	Severity Severity     `json:"severity"`
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// DetectConflicts returns every conflict userID has with [start, end).
// The workload check counts meetings on the calendar day of start in start's
// own location. An empty result means the user is free.
func (e *Engine) DetectConflicts(ctx context.Context, userID string, start, end time.Time) (conflicts []Conflict, err error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	begin := time.Now()
	defer func() { e.observe("detect_conflicts", begin, err) }()

	if !end.After(start) {
		return nil, invalidInput("end %s must be after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	user, err := e.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.detectForUser(ctx, user, start, end)
}

func (e *Engine) detectForUser(ctx context.Context, user persistence.User, start, end time.Time) ([]Conflict, error) {
	window := persistence.TimeRange{Start: start, End: end}
	conflicts := make([]Conflict, 0)

	meetings, err := e.store.ListMeetings(ctx, persistence.MeetingFilter{
		UserID:   user.ID,
		Window:   &window,
		Match:    persistence.MatchOverlap,
		Statuses: []persistence.MeetingStatus{persistence.MeetingStatusScheduled},
	})
	if err != nil {
		return nil, fmt.Errorf("list meetings for %s: %w", user.ID, err)
	}
	for _, meeting := range meetings {
		if meeting.Status != persistence.MeetingStatusScheduled || !Overlaps(meeting.Start, meeting.End, start, end) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			UserID:   user.ID,
			UserName: user.Name,
			Kind:     ConflictKindMeeting,
			Time:     meeting.Start,
			Detail:   fmt.Sprintf("Overlaps with meeting: %s", meeting.Title),
			Severity: SeverityHigh,
		})
	}

	windows, err := e.store.ListAvailability(ctx, persistence.AvailabilityFilter{
		UserID:          user.ID,
		Window:          window,
		OnlyUnavailable: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list availability for %s: %w", user.ID, err)
	}
	for _, availability := range windows {
		if availability.IsAvailable {
			continue
		}
		for _, blocked := range e.blockedIntervals(ctx, availability, window) {
			conflicts = append(conflicts, Conflict{
				UserID:   user.ID,
				UserName: user.Name,
				Kind:     ConflictKindAvailability,
				Time:     blocked.Start,
				Detail:   fmt.Sprintf("Unavailable: %s", reasonOrDefault(availability.Reason)),
				Severity: SeverityMedium,
			})
		}
	}

	count, err := e.store.CountMeetingsOnDay(ctx, user.ID, dayBounds(start))
	if err != nil {
		return nil, fmt.Errorf("count meetings for %s: %w", user.ID, err)
	}
	if count >= user.MaxMeetingsPerDay {
		conflicts = append(conflicts, Conflict{
			UserID:   user.ID,
			UserName: user.Name,
			Kind:     ConflictKindWorkload,
			Time:     start,
			Detail:   fmt.Sprintf("Already has %d meetings today (limit: %d)", count, user.MaxMeetingsPerDay),
			Severity: SeverityMedium,
		})
	}

	return conflicts, nil
}

// blockedIntervals returns the parts of an unavailable window that overlap the
// requested interval, expanding recurring windows into occurrences.
func (e *Engine) blockedIntervals(ctx context.Context, availability persistence.AvailabilityWindow, window persistence.TimeRange) []recurrence.Occurrence {
	base := recurrence.Occurrence{Start: availability.Start, End: availability.End}
	if !availability.IsRecurring || availability.RecurrencePattern == "" {
		if Overlaps(base.Start, base.End, window.Start, window.End) {
			return []recurrence.Occurrence{base}
		}
		return nil
	}

	series := recurrence.Series{
		Start:   availability.Start.In(e.zones.ResolveOrFallback(availability.Timezone)),
		End:     availability.End,
		Pattern: availability.RecurrencePattern,
	}
	occurrences, err := e.recurrence.Occurrences(series, window.Start, window.End)
	if err != nil {
		e.log(ctx, "detect_conflicts", "availability_id", availability.ID).
			WarnContext(ctx, "recurring availability ignored, using base window", "error", err)
		if Overlaps(base.Start, base.End, window.Start, window.End) {
			return []recurrence.Occurrence{base}
		}
		return nil
	}
	return occurrences
}

func reasonOrDefault(reason string) string {
	if reason == "" {
		return "Not specified"
	}
	return reason
}
