package scheduler

import (
	"time"
)

// Business hours searched for candidate slots, in the requested zone.
const (
	BusinessDayStartHour = 9
	BusinessDayEndHour   = 17
	SlotStep             = 30 * time.Minute
)

// MaxSearchDays bounds the calendar days a single slot search may cover.
const MaxSearchDays = 366

// TimeSlot is a candidate meeting interval under evaluation.
type TimeSlot struct {
	Start                 time.Time `json:"start_time"`
	End                   time.Time `json:"end_time"`
	Timezone              string    `json:"timezone"`
	Score                 float64   `json:"score"`
	Conflicts             []string  `json:"conflicts"`
	ParticipantsAvailable []string  `json:"participants_available"`
}

// GenerateSlots enumerates every half-hour start between 09:00 and 17:00 in loc
// for each calendar day in [startDate, endDate], keeping slots whose end does
// not pass 17:00 the same day. The dates are read in loc.
func GenerateSlots(startDate, endDate time.Time, duration time.Duration, loc *time.Location) []TimeSlot {
	if loc == nil {
		loc = time.UTC
	}
	if duration <= 0 {
		return nil
	}

	first, last := calendarDay(startDate, loc), calendarDay(endDate, loc)
	if last.Before(first) {
		return nil
	}

	perDay := int(time.Duration(BusinessDayEndHour-BusinessDayStartHour) * time.Hour / SlotStep)
	var slots []TimeSlot

	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		y, m, d := day.Date()
		closing := time.Date(y, m, d, BusinessDayEndHour, 0, 0, 0, loc)
		for i := 0; i < perDay; i++ {
			start := time.Date(y, m, d, BusinessDayStartHour, 0, 0, 0, loc).Add(time.Duration(i) * SlotStep)
			end := start.Add(duration)
			if end.After(closing) {
				continue
			}
			slots = append(slots, TimeSlot{
				Start:                 start,
				End:                   end,
				Timezone:              loc.String(),
				Conflicts:             []string{},
				ParticipantsAvailable: []string{},
			})
		}
	}
	return slots
}

// WithinSearchLimit reports whether [startDate, endDate] covers at most
// MaxSearchDays calendar days in loc.
func WithinSearchLimit(startDate, endDate time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	first, last := calendarDay(startDate, loc), calendarDay(endDate, loc)
	return !last.After(first.AddDate(0, 0, MaxSearchDays-1))
}

// calendarDay is midnight UTC of t's date in loc, so days step without DST gaps.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
