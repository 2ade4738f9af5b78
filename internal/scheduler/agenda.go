package scheduler

import (
	"context"
	"fmt"
	"strings"
)

const (
	framingMinutes      = 5
	framingThreshold    = 15
	roundRobinThreshold = 5
	openingItem         = "Opening & Introductions (5 min)"
	closingItem         = "Action Items & Closing (5 min)"
	roundRobinItem      = "Round-robin updates (limit 2 min per person)"
)

// Agenda is a suggested structure for a meeting.
type Agenda struct {
	Topic            string   `json:"topic"`
	DurationMinutes  int      `json:"duration_minutes"`
	ParticipantCount int      `json:"participant_count"`
	Items            []string `json:"agenda_items"`
}

// BuildAgenda returns the template agenda for topic. The template is picked by
// case-insensitive substring match on review, planning, then brainstorm.
func BuildAgenda(topic string, participantCount, durationMinutes int) Agenda {
	main := durationMinutes
	framed := durationMinutes > framingThreshold
	if framed {
		main = durationMinutes - 2*framingMinutes
	}

	items := make([]string, 0, 5)
	if framed {
		items = append(items, openingItem)
	}

	lower := strings.ToLower(topic)
	switch {
	case strings.Contains(lower, "review"):
		items = append(items,
			fmt.Sprintf("Review Progress & Updates (%d min)", main/2),
			fmt.Sprintf("Discussion & Feedback (%d min)", main/2),
		)
	case strings.Contains(lower, "planning"):
		items = append(items,
			fmt.Sprintf("Goal Setting & Planning (%d min)", main/2),
			fmt.Sprintf("Timeline & Resource Allocation (%d min)", main/2),
		)
	case strings.Contains(lower, "brainstorm"):
		items = append(items,
			fmt.Sprintf("Idea Generation (%d min)", main*2/3),
			fmt.Sprintf("Idea Evaluation & Selection (%d min)", main/3),
		)
	default:
		items = append(items,
			fmt.Sprintf("Topic Discussion: %s (%d min)", topic, main*2/3),
			fmt.Sprintf("Decision Making & Next Steps (%d min)", main/3),
		)
	}

	if framed {
		items = append(items, closingItem)
	}
	if participantCount > roundRobinThreshold {
		items = append(items[:1], append([]string{roundRobinItem}, items[1:]...)...)
	}

	return Agenda{
		Topic:            topic,
		DurationMinutes:  durationMinutes,
		ParticipantCount: participantCount,
		Items:            items,
	}
}

// GenerateAgenda builds an agenda for the known users among participantIDs.
func (e *Engine) GenerateAgenda(ctx context.Context, topic string, participantIDs []string, durationMinutes int) (Agenda, error) {
	if err := e.ready(); err != nil {
		return Agenda{}, err
	}
	if strings.TrimSpace(topic) == "" {
		return Agenda{}, invalidInput("topic is required")
	}
	if durationMinutes <= 0 {
		return Agenda{}, invalidInput("duration must be positive")
	}

	count := 0
	if len(participantIDs) > 0 {
		users, err := e.store.ListUsers(ctx, participantIDs)
		if err != nil {
			return Agenda{}, fmt.Errorf("list participants: %w", err)
		}
		count = len(users)
	}
	return BuildAgenda(topic, count, durationMinutes), nil
}
