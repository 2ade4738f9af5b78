package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/calendar"
	"github.com/example/meeting-scheduler/internal/config"
	httptransport "github.com/example/meeting-scheduler/internal/http"
	"github.com/example/meeting-scheduler/internal/logging"
	"github.com/example/meeting-scheduler/internal/metrics"
	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/persistence/memory"
	"github.com/example/meeting-scheduler/internal/persistence/sqlite"
	"github.com/example/meeting-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

func main() {
	bootstrap := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, logCloser := logging.NewLogger(cfg.LogLevel, cfg.LogFile)
	defer logCloser.Close()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize scheduler", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("meeting scheduler API listening", "addr", server.Addr, "in_memory", cfg.InMemory(), "api_key_required", cfg.APIKeyHash != "")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// backend is a calendar store that can report its health.
type backend interface {
	persistence.CalendarStore
	Ping(ctx context.Context) error
}

type instance struct {
	handler http.Handler
	store   backend
	close   func() error
}

func (a *instance) Close() error {
	if a == nil || a.close == nil {
		return nil
	}
	return a.close()
}

// newApp wires the store, engine, services, and HTTP surface described by cfg.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*instance, error) {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	collectors, err := metrics.New()
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	now := time.Now
	idGenerator := uuid.NewString

	newEngine := func() *scheduler.Engine {
		return scheduler.New(store,
			scheduler.WithClock(now),
			scheduler.WithLogger(logger),
			scheduler.WithObserver(collectors),
		)
	}

	userService := application.NewUserServiceWithLogger(store, idGenerator, now, logger)
	meetingService := application.NewMeetingServiceWithLogger(store, newEngine(), idGenerator, now, logger)
	analyticsService := application.NewAnalyticsServiceWithLogger(newEngine(), cfg.DefaultTimezone, cfg.MaxResults, logger)
	statsService := application.NewStatsService(store, now)
	exporter := calendar.NewExporter(now)

	var verifier httptransport.KeyVerifier
	if cfg.APIKeyHash != "" {
		verifier = httptransport.HashVerifier(cfg.APIKeyHash)
	}

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Users:     httptransport.NewUserHandler(userService, logger),
		Meetings:  httptransport.NewMeetingHandler(meetingService, userService, exporter, logger),
		Schedule:  httptransport.NewScheduleHandler(analyticsService, exporter, cfg.DefaultTimezone, logger),
		Analytics: httptransport.NewAnalyticsHandler(analyticsService, logger),
		Stats:     httptransport.NewStatsHandler(statsService, store, now, logger),
		Metrics:   collectors.Handler(),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.RequireAPIKey(verifier, logger, "/health"),
			collectors.Middleware,
		},
	})

	return &instance{handler: handler, store: store, close: closeStore}, nil
}

// openStore returns the in-memory store for ":memory:" and a migrated SQLite
// store otherwise.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (backend, func() error, error) {
	if cfg.InMemory() {
		logger.Info("using in-memory calendar store")
		return memory.New(), func() error { return nil }, nil
	}

	store, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(cfg.DatabasePath), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open calendar database: %w", err)
	}
	logger.Info("calendar database ready", "path", cfg.DatabasePath)
	return store, store.Close, nil
}
