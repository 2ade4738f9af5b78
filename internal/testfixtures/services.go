package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/persistence/memory"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

// ServiceFactory assists tests with constructing the engine and application
// services over one store, using deterministic identifiers and clocks.
type ServiceFactory struct {
	Store       persistence.CalendarStore
	Clock       *Clock
	IDGenerator *IDGenerator
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory over an empty in-memory store.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Store:       memory.New(),
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Store == nil {
		factory.Store = memory.New()
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithStore overrides the store shared by every service.
func WithStore(store persistence.CalendarStore) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Store = store
	}
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLogger sets the logger handed to the engine and services.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// NewEngine builds a scheduling engine reading the factory clock.
func (f *ServiceFactory) NewEngine(opts ...scheduler.Option) *scheduler.Engine {
	base := []scheduler.Option{
		scheduler.WithClock(f.Clock.NowFunc()),
		scheduler.WithLogger(f.Logger),
	}
	return scheduler.New(f.Store, append(base, opts...)...)
}

// NewUserService builds a user service over the factory store.
func (f *ServiceFactory) NewUserService() *application.UserService {
	return application.NewUserServiceWithLogger(
		f.Store,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		f.Logger,
	)
}

// NewMeetingService builds a meeting service whose conflict checks run on a
// fresh engine.
func (f *ServiceFactory) NewMeetingService() *application.MeetingService {
	return application.NewMeetingServiceWithLogger(
		f.Store,
		f.NewEngine(),
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		f.Logger,
	)
}

// NewAnalyticsService builds an analytics service with UTC and the engine's
// default result count.
func (f *ServiceFactory) NewAnalyticsService() *application.AnalyticsService {
	return application.NewAnalyticsServiceWithLogger(f.NewEngine(), "UTC", 0, f.Logger)
}

// NewStatsService builds a stats service over the factory store.
func (f *ServiceFactory) NewStatsService() *application.StatsService {
	return application.NewStatsService(f.Store, f.Clock.NowFunc())
}
