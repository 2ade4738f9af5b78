// Package scheduler implements the meeting scheduling and scoring engine:
// conflict detection, candidate slot generation and ranking, and the
// analytics built on a user's calendar.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/meeting-scheduler/internal/logging"
	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/recurrence"
	"github.com/example/meeting-scheduler/internal/timezone"
)

// Store is the part of the calendar store the engine reads from and writes to.
// All times crossing this interface are absolute instants.
type Store interface {
	GetUser(ctx context.Context, id string) (persistence.User, error)
	ListUsers(ctx context.Context, ids []string) ([]persistence.User, error)
	GetMeeting(ctx context.Context, id string) (persistence.Meeting, error)
	ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error)
	CountMeetingsOnDay(ctx context.Context, userID string, day persistence.TimeRange) (int, error)
	ListParticipants(ctx context.Context, meetingID string) ([]persistence.Participant, error)
	ListAvailability(ctx context.Context, filter persistence.AvailabilityFilter) ([]persistence.AvailabilityWindow, error)
	UpdateMeetingScores(ctx context.Context, meetingID string, scores persistence.MeetingScores) error
}

// Observer receives timing information for engine operations.
type Observer interface {
	ObserveOperation(operation string, duration time.Duration, err error)
	ObserveSlotSearch(candidates, ranked int)
}

// Engine evaluates scheduling questions against a Store. It keeps no state
// between calls besides its dependencies.
type Engine struct {
	store      Store
	zones      *timezone.Resolver
	recurrence *recurrence.Engine
	now        func() time.Time
	logger     *slog.Logger
	observer   Observer
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source used by the analytics.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithZoneResolver sets the resolver used for user and request time zones.
func WithZoneResolver(zones *timezone.Resolver) Option {
	return func(e *Engine) {
		if zones != nil {
			e.zones = zones
		}
	}
}

// WithObserver attaches an Observer.
func WithObserver(observer Observer) Option {
	return func(e *Engine) {
		e.observer = observer
	}
}

// New constructs an Engine over store.
func New(store Store, opts ...Option) *Engine {
	engine := &Engine{
		store:      store,
		zones:      timezone.Default,
		recurrence: recurrence.NewEngine(nil),
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

func (e *Engine) ready() error {
	if e == nil {
		return fmt.Errorf("scheduler engine is nil")
	}
	if e.store == nil {
		return fmt.Errorf("scheduler store not configured")
	}
	return nil
}

func (e *Engine) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, e.logger, "component", "scheduler", operation, attrs...)
}

// observe records the outcome of an operation started at begin.
func (e *Engine) observe(operation string, begin time.Time, err error) {
	if e.observer == nil {
		return
	}
	e.observer.ObserveOperation(operation, time.Since(begin), err)
}

func (e *Engine) location(user persistence.User) *time.Location {
	return e.zones.ResolveOrFallback(user.Timezone)
}

func (e *Engine) getUser(ctx context.Context, id string) (persistence.User, error) {
	user, err := e.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.User{}, fmt.Errorf("%w: user %s", ErrNotFound, id)
		}
		return persistence.User{}, fmt.Errorf("load user %s: %w", id, err)
	}
	return user, nil
}

// dayBounds returns the calendar day containing t, midnight to midnight in t's location.
func dayBounds(t time.Time) persistence.TimeRange {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return persistence.TimeRange{Start: start, End: start.AddDate(0, 0, 1)}
}
