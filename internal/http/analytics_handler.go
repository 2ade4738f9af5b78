package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

type analyticsService interface {
	AnalyzePatterns(ctx context.Context, userID string, periodDays int) (scheduler.PatternReport, error)
	BalanceWorkload(ctx context.Context, userIDs []string) (scheduler.TeamWorkloadReport, error)
	ScoreEffectiveness(ctx context.Context, meetingID string) (scheduler.EffectivenessReport, error)
	GenerateAgenda(ctx context.Context, input application.AgendaInput) (scheduler.Agenda, error)
}

type AnalyticsHandler struct {
	service   analyticsService
	responder responder
}

func NewAnalyticsHandler(service analyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{service: service, responder: newResponder(defaultLogger(logger))}
}

func (h *AnalyticsHandler) MeetingPatterns(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	periodDays := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("period_days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.responder.writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{
				Message: localizedStatusMessage(http.StatusUnprocessableEntity),
				Errors:  map[string]string{"period_days": "period_days must be an integer"},
			})
			return
		}
		periodDays = n
	}

	report, err := h.service.AnalyzePatterns(r.Context(), r.PathValue("userID"), periodDays)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, report)
}

func (h *AnalyticsHandler) WorkloadBalance(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req workloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	report, err := h.service.BalanceWorkload(r.Context(), req.UserIDs)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, report)
}

func (h *AnalyticsHandler) Effectiveness(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	report, err := h.service.ScoreEffectiveness(r.Context(), r.PathValue("meetingID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, report)
}

func (h *AnalyticsHandler) Agenda(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req agendaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	agenda, err := h.service.GenerateAgenda(r.Context(), application.AgendaInput{
		Topic:           req.Topic,
		ParticipantIDs:  req.ParticipantIDs,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, agenda)
}

type workloadRequest struct {
	UserIDs []string `json:"user_ids"`
}

type agendaRequest struct {
	Topic           string   `json:"topic"`
	ParticipantIDs  []string `json:"participant_ids"`
	DurationMinutes int      `json:"duration_minutes"`
}
