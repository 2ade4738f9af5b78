package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/scheduler"
	"github.com/example/meeting-scheduler/internal/timezone"
)

// DefaultPatternPeriodDays is the look-back used when a pattern request names none.
const DefaultPatternPeriodDays = 30

// Analyzer is the scheduling engine surface used by the analytics service.
type Analyzer interface {
	ConflictDetector
	FindOptimalSlots(ctx context.Context, req scheduler.SlotRequest) ([]scheduler.TimeSlot, error)
	AnalyzePatterns(ctx context.Context, userID string, periodDays int) (scheduler.PatternReport, error)
	BalanceWorkload(ctx context.Context, userIDs []string) (scheduler.TeamWorkloadReport, error)
	ScoreEffectiveness(ctx context.Context, meetingID string) (scheduler.EffectivenessReport, error)
	OptimizeSchedule(ctx context.Context, userID string) (scheduler.OptimizationReport, error)
	GenerateAgenda(ctx context.Context, topic string, participantIDs []string, durationMinutes int) (scheduler.Agenda, error)
}

// AnalyticsService validates analytics requests, applies configured defaults,
// and delegates to the scheduling engine.
type AnalyticsService struct {
	engine          Analyzer
	defaultTimezone string
	maxResults      int
	logger          *slog.Logger
}

// NewAnalyticsService wires the engine with the zone and result count used
// when a slot request leaves them empty.
func NewAnalyticsService(engine Analyzer, defaultTimezone string, maxResults int) *AnalyticsService {
	return NewAnalyticsServiceWithLogger(engine, defaultTimezone, maxResults, nil)
}

// NewAnalyticsServiceWithLogger is NewAnalyticsService with a specific logger.
func NewAnalyticsServiceWithLogger(engine Analyzer, defaultTimezone string, maxResults int, logger *slog.Logger) *AnalyticsService {
	if strings.TrimSpace(defaultTimezone) == "" {
		defaultTimezone = "UTC"
	}
	if maxResults <= 0 {
		maxResults = scheduler.DefaultMaxResults
	}
	return &AnalyticsService{
		engine:          engine,
		defaultTimezone: defaultTimezone,
		maxResults:      maxResults,
		logger:          defaultLogger(logger),
	}
}

func (s *AnalyticsService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AnalyticsService", operation, attrs...)
}

func (s *AnalyticsService) ready() error {
	if s == nil {
		return fmt.Errorf("AnalyticsService is nil")
	}
	if s.engine == nil {
		return fmt.Errorf("scheduling engine not configured")
	}
	return nil
}

func (s *AnalyticsService) finish(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	if err != nil {
		level := slog.LevelWarn
		if ErrorKind(err) == KindInternal {
			level = slog.LevelError
		}
		logger.Log(ctx, level, msg+" failed", "error", err, "error_kind", ErrorKind(err))
		return
	}
	logger.InfoContext(ctx, msg, attrs...)
}

// FindOptimalSlots ranks candidate meeting times for the participants.
func (s *AnalyticsService) FindOptimalSlots(ctx context.Context, input SlotSearchInput) (slots []scheduler.TimeSlot, err error) {
	if err = s.ready(); err != nil {
		return nil, err
	}

	ids := uniqueIDs(input.ParticipantIDs)
	timezoneName := strings.TrimSpace(input.Timezone)
	if timezoneName == "" {
		timezoneName = s.defaultTimezone
	}
	maxResults := input.MaxResults
	if maxResults == 0 {
		maxResults = s.maxResults
	}

	logger := s.loggerWith(ctx, "FindOptimalSlots", "participants", len(ids), "timezone", timezoneName)
	defer func() { s.finish(ctx, logger, "slot search", err, "returned", len(slots)) }()

	vErr := &ValidationError{}
	if len(ids) == 0 {
		vErr.add("participant_ids", "at least one participant is required")
	}
	if input.DurationMinutes <= 0 {
		vErr.add("duration_minutes", "duration must be positive")
	}
	if input.StartDate.IsZero() {
		vErr.add("start_date", "start date is required")
	}
	if input.EndDate.IsZero() {
		vErr.add("end_date", "end date is required")
	} else if input.EndDate.Before(input.StartDate) {
		vErr.add("end_date", "end date must not precede start date")
	} else if !input.StartDate.IsZero() && !scheduler.WithinSearchLimit(input.StartDate, input.EndDate, timezone.Default.ResolveOrFallback(timezoneName)) {
		vErr.add("end_date", fmt.Sprintf("date range must not exceed %d days", scheduler.MaxSearchDays))
	}
	if maxResults < 0 {
		vErr.add("max_results", "max results must not be negative")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	return s.engine.FindOptimalSlots(ctx, scheduler.SlotRequest{
		ParticipantIDs: ids,
		Duration:       time.Duration(input.DurationMinutes) * time.Minute,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		Timezone:       timezoneName,
		MaxResults:     maxResults,
	})
}

// DetectConflicts lists why a user cannot attend an interval.
func (s *AnalyticsService) DetectConflicts(ctx context.Context, input ConflictCheckInput) (conflicts []scheduler.Conflict, err error) {
	if err = s.ready(); err != nil {
		return nil, err
	}

	logger := s.loggerWith(ctx, "DetectConflicts", "user_id", input.UserID)
	defer func() { s.finish(ctx, logger, "conflict check", err, "conflicts", len(conflicts)) }()

	vErr := &ValidationError{}
	if strings.TrimSpace(input.UserID) == "" {
		vErr.add("user_id", "user is required")
	}
	if input.Start.IsZero() {
		vErr.add("start_time", "start time is required")
	}
	if input.End.IsZero() {
		vErr.add("end_time", "end time is required")
	} else if !input.End.After(input.Start) {
		vErr.add("end_time", "end time must be after start time")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	conflicts, err = s.engine.DetectConflicts(ctx, strings.TrimSpace(input.UserID), input.Start, input.End)
	if err != nil {
		return nil, err
	}
	if conflicts == nil {
		conflicts = []scheduler.Conflict{}
	}
	return conflicts, nil
}

// AnalyzePatterns summarizes a user's recent meetings. A zero period uses
// DefaultPatternPeriodDays.
func (s *AnalyticsService) AnalyzePatterns(ctx context.Context, userID string, periodDays int) (report scheduler.PatternReport, err error) {
	if err = s.ready(); err != nil {
		return scheduler.PatternReport{}, err
	}
	if periodDays == 0 {
		periodDays = DefaultPatternPeriodDays
	}

	logger := s.loggerWith(ctx, "AnalyzePatterns", "user_id", userID, "period_days", periodDays)
	defer func() { s.finish(ctx, logger, "pattern analysis", err, "meetings", report.TotalMeetings) }()

	if periodDays < 0 {
		return scheduler.PatternReport{}, fieldError("period_days", "period must be positive")
	}
	return s.engine.AnalyzePatterns(ctx, userID, periodDays)
}

// BalanceWorkload compares the recent meeting load of a team.
func (s *AnalyticsService) BalanceWorkload(ctx context.Context, userIDs []string) (report scheduler.TeamWorkloadReport, err error) {
	if err = s.ready(); err != nil {
		return scheduler.TeamWorkloadReport{}, err
	}

	ids := uniqueIDs(userIDs)
	logger := s.loggerWith(ctx, "BalanceWorkload", "users", len(ids))
	defer func() { s.finish(ctx, logger, "workload balance", err, "balance_score", report.BalanceScore) }()

	return s.engine.BalanceWorkload(ctx, ids)
}

// ScoreEffectiveness scores a meeting and stores the score on it.
func (s *AnalyticsService) ScoreEffectiveness(ctx context.Context, meetingID string) (report scheduler.EffectivenessReport, err error) {
	if err = s.ready(); err != nil {
		return scheduler.EffectivenessReport{}, err
	}

	logger := s.loggerWith(ctx, "ScoreEffectiveness", "meeting_id", meetingID)
	defer func() { s.finish(ctx, logger, "effectiveness scoring", err, "score", report.EffectivenessScore) }()

	return s.engine.ScoreEffectiveness(ctx, meetingID)
}

// OptimizeSchedule reviews a user's upcoming week.
func (s *AnalyticsService) OptimizeSchedule(ctx context.Context, userID string) (report scheduler.OptimizationReport, err error) {
	if err = s.ready(); err != nil {
		return scheduler.OptimizationReport{}, err
	}

	logger := s.loggerWith(ctx, "OptimizeSchedule", "user_id", userID)
	defer func() { s.finish(ctx, logger, "schedule optimization", err, "score", report.ScheduleScore) }()

	return s.engine.OptimizeSchedule(ctx, userID)
}

// GenerateAgenda builds an agenda skeleton for a topic.
func (s *AnalyticsService) GenerateAgenda(ctx context.Context, input AgendaInput) (agenda scheduler.Agenda, err error) {
	if err = s.ready(); err != nil {
		return scheduler.Agenda{}, err
	}

	logger := s.loggerWith(ctx, "GenerateAgenda", "topic", input.Topic)
	defer func() { s.finish(ctx, logger, "agenda generation", err, "items", len(agenda.Items)) }()

	vErr := &ValidationError{}
	if strings.TrimSpace(input.Topic) == "" {
		vErr.add("topic", "topic is required")
	}
	if input.DurationMinutes <= 0 {
		vErr.add("duration_minutes", "duration must be positive")
	}
	if vErr.HasErrors() {
		return scheduler.Agenda{}, vErr
	}

	return s.engine.GenerateAgenda(ctx, strings.TrimSpace(input.Topic), uniqueIDs(input.ParticipantIDs), input.DurationMinutes)
}
