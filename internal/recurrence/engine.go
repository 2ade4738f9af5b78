// Package recurrence expands recurring availability windows into concrete
// occurrences using RFC 5545 recurrence rules.
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// ErrInvalidRule indicates the recurrence pattern could not be parsed.
var ErrInvalidRule = errors.New("recurrence: invalid rule")

// ErrInvalidDuration indicates the base window duration is invalid.
var ErrInvalidDuration = errors.New("recurrence: window duration must be positive")

// Series describes a repeating interval. The first occurrence is [Start, End);
// later occurrences follow Pattern and keep the same length.
type Series struct {
	Start   time.Time
	End     time.Time
	Pattern string
}

// Occurrence is one concrete instance of a series.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// Engine expands series within bounded ranges.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that evaluates rules in loc. Rules are
// evaluated in the series' own location when loc is nil.
func NewEngine(loc *time.Location) *Engine {
	return &Engine{location: loc}
}

// Occurrences returns every occurrence of series that overlaps [rangeStart, rangeEnd).
func (e *Engine) Occurrences(series Series, rangeStart, rangeEnd time.Time) ([]Occurrence, error) {
	if !series.End.After(series.Start) {
		return nil, ErrInvalidDuration
	}
	if !rangeEnd.After(rangeStart) {
		return nil, nil
	}

	loc := series.Start.Location()
	if e != nil && e.location != nil {
		loc = e.location
	}

	rule, err := parseRule(series.Pattern, series.Start.In(loc), loc)
	if err != nil {
		return nil, err
	}

	duration := series.End.Sub(series.Start)
	// An occurrence starting up to one duration before the range can still overlap it.
	starts := rule.Between(rangeStart.Add(-duration), rangeEnd, true)

	occurrences := make([]Occurrence, 0, len(starts))
	for _, start := range starts {
		end := start.Add(duration)
		if start.Before(rangeEnd) && end.After(rangeStart) {
			occurrences = append(occurrences, Occurrence{Start: start, End: end})
		}
	}
	return occurrences, nil
}

// Validate reports whether pattern is an acceptable recurrence rule.
func Validate(pattern string) error {
	_, err := parseRule(pattern, time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC), time.UTC)
	return err
}

func parseRule(pattern string, dtstart time.Time, loc *time.Location) (*rrule.RRule, error) {
	pattern = strings.TrimSpace(pattern)
	pattern = strings.TrimPrefix(pattern, "RRULE:")
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidRule)
	}

	option, err := rrule.StrToROptionInLocation(pattern, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	option.Dtstart = dtstart

	rule, err := rrule.NewRRule(*option)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return rule, nil
}
