package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/calendar"
	"github.com/example/meeting-scheduler/internal/scheduler"
	"github.com/example/meeting-scheduler/internal/timezone"
)

type schedulingService interface {
	FindOptimalSlots(ctx context.Context, input application.SlotSearchInput) ([]scheduler.TimeSlot, error)
	DetectConflicts(ctx context.Context, input application.ConflictCheckInput) ([]scheduler.Conflict, error)
	OptimizeSchedule(ctx context.Context, userID string) (scheduler.OptimizationReport, error)
}

// ScheduleHandler serves slot search, conflict checks, and schedule reviews.
type ScheduleHandler struct {
	service         schedulingService
	exporter        *calendar.Exporter
	defaultTimezone string
	responder       responder
	logger          *slog.Logger
}

// NewScheduleHandler builds the handler. defaultTimezone anchors date-only
// bounds in slot requests that name no zone.
func NewScheduleHandler(service schedulingService, exporter *calendar.Exporter, defaultTimezone string, logger *slog.Logger) *ScheduleHandler {
	base := defaultLogger(logger)
	if exporter == nil {
		exporter = calendar.NewExporter(nil)
	}
	if strings.TrimSpace(defaultTimezone) == "" {
		defaultTimezone = "UTC"
	}
	return &ScheduleHandler{
		service:         service,
		exporter:        exporter,
		defaultTimezone: defaultTimezone,
		responder:       newResponder(base),
		logger:          base,
	}
}

func (h *ScheduleHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ScheduleHandler", operation, attrs...)
}

// FindOptimalSlots ranks meeting times. `?format=ics` returns the ranking as a
// calendar of tentative events, or 204 when nothing qualifies.
func (h *ScheduleHandler) FindOptimalSlots(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req slotSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "FindOptimalSlots", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode slot request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	slots, err := h.service.FindOptimalSlots(r.Context(), req.toInput(h.defaultTimezone))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "ics") {
		if len(slots) == 0 {
			h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
			return
		}
		body, err := calendar.EncodeToBytes(h.exporter.Slots(req.Title, slots))
		if err != nil {
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		h.responder.writeBytes(r.Context(), w, http.StatusOK, calendar.ContentType, body)
		return
	}

	if slots == nil {
		slots = []scheduler.TimeSlot{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, slotsResponse{Slots: slots})
}

func (h *ScheduleHandler) DetectConflicts(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req conflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	conflicts, err := h.service.DetectConflicts(r.Context(), application.ConflictCheckInput{
		UserID: strings.TrimSpace(req.UserID),
		Start:  parseTime(req.StartTime),
		End:    parseTime(req.EndTime),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, conflictsResponse{
		Conflicts:    nonNilConflicts(conflicts),
		HasConflicts: len(conflicts) > 0,
	})
}

func (h *ScheduleHandler) OptimizeSchedule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	report, err := h.service.OptimizeSchedule(r.Context(), r.PathValue("userID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, report)
}

type slotSearchRequest struct {
	Title           string   `json:"title"`
	ParticipantIDs  []string `json:"participant_ids"`
	DurationMinutes int      `json:"duration_minutes"`
	StartDate       string   `json:"start_date"`
	EndDate         string   `json:"end_date"`
	Timezone        string   `json:"timezone"`
	MaxResults      int      `json:"max_results"`
}

func (r slotSearchRequest) toInput(defaultTimezone string) application.SlotSearchInput {
	zone := strings.TrimSpace(r.Timezone)
	anchor := zone
	if anchor == "" {
		anchor = defaultTimezone
	}
	loc := timezone.Default.ResolveOrFallback(anchor)

	return application.SlotSearchInput{
		ParticipantIDs:  append([]string(nil), r.ParticipantIDs...),
		DurationMinutes: r.DurationMinutes,
		StartDate:       parseDate(r.StartDate, loc),
		EndDate:         parseDate(r.EndDate, loc),
		Timezone:        zone,
		MaxResults:      r.MaxResults,
	}
}

// parseDate accepts a calendar date, read as midnight in loc, or a full
// RFC 3339 timestamp.
func parseDate(value string, loc *time.Location) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.ParseInLocation(time.DateOnly, value, loc); err == nil {
		return ts
	}
	return parseTime(value)
}

type conflictRequest struct {
	UserID    string `json:"user_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type slotsResponse struct {
	Slots []scheduler.TimeSlot `json:"slots"`
}

type conflictsResponse struct {
	Conflicts    []scheduler.Conflict `json:"conflicts"`
	HasConflicts bool                 `json:"has_conflicts"`
}
