package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/meeting-scheduler/internal/application"
)

type statsService interface {
	Stats(ctx context.Context) (application.Stats, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type StatsHandler struct {
	service   statsService
	store     Pinger
	now       func() time.Time
	responder responder
}

func NewStatsHandler(service statsService, store Pinger, now func() time.Time, logger *slog.Logger) *StatsHandler {
	if now == nil {
		now = time.Now
	}
	return &StatsHandler{service: service, store: store, now: now, responder: newResponder(defaultLogger(logger))}
}

func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, stats)
}

// Health answers 200 when the store responds to a ping and 503 otherwise.
func (h *StatsHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	response := healthResponse{Status: "healthy", Database: "connected", Timestamp: h.now().UTC().Format(time.RFC3339)}
	status := http.StatusOK
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			h.responder.loggerFor(r.Context()).ErrorContext(r.Context(), "store ping failed", "error", err)
			response.Status = "unhealthy"
			response.Database = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}
	h.responder.writeJSON(r.Context(), w, status, response)
}

type healthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Timestamp string `json:"timestamp"`
}
