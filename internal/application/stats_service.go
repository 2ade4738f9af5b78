package application

import (
	"context"
	"fmt"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
)

// StatsRepository captures the reads needed for calendar statistics.
type StatsRepository interface {
	ListUsers(ctx context.Context, ids []string) ([]persistence.User, error)
	ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error)
}

// StatsService computes whole-calendar statistics.
type StatsService struct {
	store StatsRepository
	now   func() time.Time
}

// NewStatsService wires dependencies for the stats service.
func NewStatsService(store StatsRepository, now func() time.Time) *StatsService {
	if now == nil {
		now = time.Now
	}
	return &StatsService{store: store, now: now}
}

// Stats counts users and meetings. Upcoming meetings are scheduled meetings
// starting after now; the effectiveness average covers scored meetings only.
func (s *StatsService) Stats(ctx context.Context) (Stats, error) {
	if s == nil {
		return Stats{}, fmt.Errorf("StatsService is nil")
	}
	if s.store == nil {
		return Stats{}, fmt.Errorf("stats repository not configured")
	}

	users, err := s.store.ListUsers(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("list users: %w", err)
	}
	meetings, err := s.store.ListMeetings(ctx, persistence.MeetingFilter{})
	if err != nil {
		return Stats{}, fmt.Errorf("list meetings: %w", err)
	}

	stats := Stats{
		TotalUsers:      len(users),
		TotalMeetings:   len(meetings),
		UsersByTimezone: make(map[string]int),
	}
	for _, user := range users {
		stats.UsersByTimezone[user.Timezone]++
	}

	now := s.now()
	var scoreSum float64
	var scored int
	for _, meeting := range meetings {
		switch {
		case meeting.Status == persistence.MeetingStatusCompleted:
			stats.CompletedMeetings++
		case meeting.Status == persistence.MeetingStatusScheduled && meeting.Start.After(now):
			stats.UpcomingMeetings++
		}
		if meeting.EffectivenessScore != nil {
			scoreSum += *meeting.EffectivenessScore
			scored++
		}
	}
	if scored > 0 {
		average := scoreSum / float64(scored)
		stats.AverageEffectiveness = &average
	}
	return stats, nil
}
