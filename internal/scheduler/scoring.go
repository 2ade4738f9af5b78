package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
)

const (
	baseSlotScore       = 10.0
	workHoursBonus      = 2.0
	optimalHourBonus    = 1.0
	highSeverityPenalty = 5.0
	conflictPenalty     = 2.0

	// DefaultMaxResults caps FindOptimalSlots when the request leaves it unset.
	DefaultMaxResults = 10
)

// optimalHours are the preferred local start hours.
var optimalHours = map[int]bool{10: true, 14: true}

// ScoreSlot rates slot for participants and records, on the slot, the
// conflicts found and the participants who are free. The score is scaled by
// the share of free participants and never drops below zero.
func (e *Engine) ScoreSlot(ctx context.Context, slot *TimeSlot, participants []persistence.User) (float64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if slot == nil {
		return 0, invalidInput("slot is required")
	}
	if len(participants) == 0 {
		slot.Score = 0
		return 0, nil
	}

	score := baseSlotScore
	available := 0

	for _, participant := range participants {
		conflicts, err := e.detectForUser(ctx, participant, slot.Start, slot.End)
		if err != nil {
			return 0, err
		}

		if len(conflicts) == 0 {
			available++
			slot.ParticipantsAvailable = append(slot.ParticipantsAvailable, participant.ID)

			hour := slot.Start.In(e.location(participant)).Hour()
			if hour >= participant.WorkStartHour && hour < participant.WorkEndHour {
				score += workHoursBonus
			}
			if optimalHours[hour] {
				score += optimalHourBonus
			}
			continue
		}

		high := 0
		for _, conflict := range conflicts {
			if conflict.Severity == SeverityHigh {
				high++
			}
			slot.Conflicts = append(slot.Conflicts, fmt.Sprintf("%s: %s", participant.Name, conflict.Detail))
		}
		score -= highSeverityPenalty*float64(high) + conflictPenalty*float64(len(conflicts))
	}

	score *= float64(available) / float64(len(participants))
	if score < 0 {
		score = 0
	}
	slot.Score = score
	return score, nil
}

// SlotRequest describes a search for meeting times.
type SlotRequest struct {
	ParticipantIDs []string
	Duration       time.Duration
	StartDate      time.Time
	EndDate        time.Time
	Timezone       string
	MaxResults     int
}

// FindOptimalSlots generates candidates over the request's date range, scores
// each against every participant, and returns the best positive-scoring slots
// in descending score order. Equal scores keep chronological order.
func (e *Engine) FindOptimalSlots(ctx context.Context, req SlotRequest) (ranked []TimeSlot, err error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	begin := time.Now()
	defer func() { e.observe("find_optimal_slots", begin, err) }()

	if len(req.ParticipantIDs) == 0 {
		return nil, invalidInput("at least one participant is required")
	}
	if req.Duration <= 0 {
		return nil, invalidInput("duration must be positive")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, invalidInput("end date must not precede start date")
	}
	loc, err := e.zones.Resolve(req.Timezone)
	if err != nil {
		return nil, invalidInput("%v", err)
	}
	if !WithinSearchLimit(req.StartDate, req.EndDate, loc) {
		return nil, invalidInput("date range must not exceed %d days", MaxSearchDays)
	}
	limit := req.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}

	participants, err := e.loadParticipants(ctx, req.ParticipantIDs)
	if err != nil {
		return nil, err
	}

	candidates := GenerateSlots(req.StartDate, req.EndDate, req.Duration, loc)
	ranked = make([]TimeSlot, 0, len(candidates))
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		score, err := e.ScoreSlot(ctx, &candidates[i], participants)
		if err != nil {
			return nil, err
		}
		if score > 0 {
			ranked = append(ranked, candidates[i])
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	if e.observer != nil {
		e.observer.ObserveSlotSearch(len(candidates), len(ranked))
	}
	e.log(ctx, "find_optimal_slots").DebugContext(ctx, "slot search finished",
		"participants", len(participants),
		"candidates", len(candidates),
		"returned", len(ranked),
	)
	return ranked, nil
}

// loadParticipants resolves ids in request order, dropping duplicates.
func (e *Engine) loadParticipants(ctx context.Context, ids []string) ([]persistence.User, error) {
	unique := distinctIDs(ids)
	if len(unique) == 0 {
		return nil, invalidInput("at least one participant is required")
	}

	users, err := e.store.ListUsers(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	byID := make(map[string]persistence.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}

	ordered := make([]persistence.User, 0, len(unique))
	var missing []string
	for _, id := range unique {
		user, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		ordered = append(ordered, user)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: users %s", ErrNotFound, strings.Join(missing, ", "))
	}
	return ordered, nil
}

// distinctIDs trims ids and keeps the first occurrence of each non-empty one.
func distinctIDs(ids []string) []string {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
