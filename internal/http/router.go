package http

import (
	"net/http"
)

type RouterConfig struct {
	Users      *UserHandler
	Meetings   *MeetingHandler
	Schedule   *ScheduleHandler
	Analytics  *AnalyticsHandler
	Stats      *StatsHandler
	Metrics    http.Handler
	Middleware []func(http.Handler) http.Handler
}

// NewRouter registers every configured handler on a ServeMux and wraps it in
// the middleware, outermost first.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Stats != nil {
		mux.HandleFunc("GET /health", cfg.Stats.Health)
		mux.HandleFunc("GET /stats", cfg.Stats.Stats)
	}

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	if cfg.Users != nil {
		mux.HandleFunc("GET /users", cfg.Users.List)
		mux.HandleFunc("POST /users", cfg.Users.Create)
		mux.HandleFunc("GET /users/{id}", cfg.Users.Get)
		mux.HandleFunc("PUT /users/{id}", cfg.Users.Update)
		mux.HandleFunc("POST /users/{id}/availability", cfg.Users.AddAvailability)
	}

	if cfg.Meetings != nil {
		mux.HandleFunc("GET /meetings", cfg.Meetings.List)
		mux.HandleFunc("POST /meetings", cfg.Meetings.Create)
		mux.HandleFunc("GET /meetings/{id}", cfg.Meetings.Get)
		mux.HandleFunc("GET /meetings/{id}/ics", cfg.Meetings.Calendar)
		mux.HandleFunc("POST /meetings/{id}/status", cfg.Meetings.TransitionStatus)
		mux.HandleFunc("POST /meetings/{id}/participants/{userID}", cfg.Meetings.RecordParticipation)
	}

	if cfg.Schedule != nil {
		mux.HandleFunc("POST /schedule/find-optimal-slots", cfg.Schedule.FindOptimalSlots)
		mux.HandleFunc("POST /schedule/detect-conflicts", cfg.Schedule.DetectConflicts)
		mux.HandleFunc("GET /schedule/optimize/{userID}", cfg.Schedule.OptimizeSchedule)
	}

	if cfg.Analytics != nil {
		mux.HandleFunc("GET /analytics/meeting-patterns/{userID}", cfg.Analytics.MeetingPatterns)
		mux.HandleFunc("POST /analytics/workload-balance", cfg.Analytics.WorkloadBalance)
		mux.HandleFunc("POST /analytics/effectiveness/{meetingID}", cfg.Analytics.Effectiveness)
		mux.HandleFunc("POST /agenda", cfg.Analytics.Agenda)
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}
