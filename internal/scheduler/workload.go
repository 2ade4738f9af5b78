package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/meeting-scheduler/internal/persistence"
)

const (
	workloadWindow          = 7 * 24 * time.Hour
	workloadVolumeThreshold = 20
	workloadVolumePenalty   = 0.5
	workloadOrganizerWeight = 0.3
	maxBalanceScore         = 10.0
	workloadLoadConcurrency = 8
)

// UserWorkload is one user's meeting load over the trailing week.
type UserWorkload struct {
	UserID          string  `json:"user_id"`
	UserName        string  `json:"user_name"`
	TotalMinutes    int     `json:"total_meeting_minutes"`
	MeetingCount    int     `json:"meeting_count"`
	OrganizedCount  int     `json:"organized_count"`
	AverageDuration float64 `json:"average_duration"`
	MeetingsPerDay  float64 `json:"meetings_per_day"`
	WorkloadScore   float64 `json:"workload_score"`
}

// TeamWorkloadReport compares workloads across a team.
type TeamWorkloadReport struct {
	Workloads       []UserWorkload `json:"workload_data"`
	BalanceScore    float64        `json:"balance_score"`
	MostLoadedUser  string         `json:"most_loaded_user,omitempty"`
	LeastLoadedUser string         `json:"least_loaded_user,omitempty"`
	UnknownUserIDs  []string       `json:"unknown_user_ids,omitempty"`
}

// WorkloadScore weighs meeting hours, excess volume, and organizing load.
func WorkloadScore(totalMinutes, meetingCount, organizedCount int) float64 {
	score := float64(totalMinutes) / 60.0
	if meetingCount > workloadVolumeThreshold {
		score += float64(meetingCount-workloadVolumeThreshold) * workloadVolumePenalty
	}
	score += float64(organizedCount) * workloadOrganizerWeight
	return score
}

// BalanceScore maps the coefficient of variation of scores onto [0, 10].
// An empty team scores 0; a team with no load at all is perfectly balanced.
func BalanceScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	avg := mean(scores)
	if avg == 0 {
		return maxBalanceScore
	}
	variance := 0.0
	for _, s := range scores {
		variance += (s - avg) * (s - avg)
	}
	std := math.Sqrt(variance / float64(len(scores)))
	return math.Max(0, maxBalanceScore-maxBalanceScore*std/avg)
}

// BalanceWorkload computes per-user workloads for userIDs over the trailing
// seven days. Repeated ids count once; unknown ids are skipped and listed in
// the report.
func (e *Engine) BalanceWorkload(ctx context.Context, userIDs []string) (report TeamWorkloadReport, err error) {
	if err := e.ready(); err != nil {
		return TeamWorkloadReport{}, err
	}
	userIDs = distinctIDs(userIDs)
	begin := time.Now()
	defer func() { e.observe("balance_workload", begin, err) }()

	now := e.now()
	window := persistence.TimeRange{Start: now.Add(-workloadWindow), End: now.Add(time.Nanosecond)}

	results := make([]*UserWorkload, len(userIDs))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workloadLoadConcurrency)
	for i, id := range userIDs {
		group.Go(func() error {
			workload, err := e.userWorkload(groupCtx, id, window)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					return nil
				}
				return err
			}
			results[i] = &workload
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return TeamWorkloadReport{}, err
	}

	report.Workloads = make([]UserWorkload, 0, len(userIDs))
	scores := make([]float64, 0, len(userIDs))
	for i, result := range results {
		if result == nil {
			report.UnknownUserIDs = append(report.UnknownUserIDs, userIDs[i])
			continue
		}
		report.Workloads = append(report.Workloads, *result)
		scores = append(scores, result.WorkloadScore)
	}
	if len(report.UnknownUserIDs) > 0 {
		e.log(ctx, "balance_workload").WarnContext(ctx, "unknown users skipped", "user_ids", report.UnknownUserIDs)
	}

	report.BalanceScore = BalanceScore(scores)
	if len(report.Workloads) > 0 {
		most, least := report.Workloads[0], report.Workloads[0]
		for _, w := range report.Workloads[1:] {
			if w.WorkloadScore > most.WorkloadScore {
				most = w
			}
			if w.WorkloadScore < least.WorkloadScore {
				least = w
			}
		}
		report.MostLoadedUser = most.UserID
		report.LeastLoadedUser = least.UserID
	}
	return report, nil
}

func (e *Engine) userWorkload(ctx context.Context, userID string, window persistence.TimeRange) (UserWorkload, error) {
	user, err := e.getUser(ctx, userID)
	if err != nil {
		return UserWorkload{}, err
	}

	meetings, err := e.store.ListMeetings(ctx, persistence.MeetingFilter{
		UserID: user.ID,
		Window: &window,
		Match:  persistence.MatchStart,
	})
	if err != nil {
		return UserWorkload{}, fmt.Errorf("list meetings for %s: %w", user.ID, err)
	}

	workload := UserWorkload{UserID: user.ID, UserName: user.Name, MeetingCount: len(meetings)}
	for _, meeting := range meetings {
		workload.TotalMinutes += meeting.DurationMinutes()
		if meeting.OrganizerID == user.ID {
			workload.OrganizedCount++
		}
	}
	if workload.MeetingCount > 0 {
		workload.AverageDuration = float64(workload.TotalMinutes) / float64(workload.MeetingCount)
	}
	workload.MeetingsPerDay = float64(workload.MeetingCount) / 7.0
	workload.WorkloadScore = WorkloadScore(workload.TotalMinutes, workload.MeetingCount, workload.OrganizedCount)
	return workload, nil
}
