package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/persistence"
)

type userService interface {
	CreateUser(ctx context.Context, input application.UserInput) (persistence.User, error)
	GetUser(ctx context.Context, id string) (persistence.User, error)
	ListUsers(ctx context.Context) ([]persistence.User, error)
	UpdateUserProfile(ctx context.Context, id string, input application.UserInput) (persistence.User, error)
	AddAvailabilityWindow(ctx context.Context, userID string, input application.AvailabilityInput) (persistence.AvailabilityWindow, error)
}

type UserHandler struct {
	service   userService
	responder responder
	logger    *slog.Logger
}

func NewUserHandler(service userService, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode user request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	user, err := h.service.CreateUser(r.Context(), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "user_id", user.ID).InfoContext(r.Context(), "user created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, userResponse{User: toUserDTO(user)})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	user, err := h.service.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "List").With("result_count", len(users)).DebugContext(r.Context(), "users listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listUsersResponse{Users: toUserDTOs(users)})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID := r.PathValue("id")
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "user_id", userID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode user update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	user, err := h.service.UpdateUserProfile(r.Context(), userID, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

func (h *UserHandler) AddAvailability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID := r.PathValue("id")
	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "AddAvailability", "user_id", userID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode availability request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	window, err := h.service.AddAvailabilityWindow(r.Context(), userID, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, availabilityResponse{Availability: toAvailabilityDTO(window)})
}

type userRequest struct {
	Name                     string `json:"name"`
	Email                    string `json:"email"`
	Role                     string `json:"role"`
	Timezone                 string `json:"timezone"`
	WorkStartHour            *int   `json:"work_start_hour"`
	WorkEndHour              *int   `json:"work_end_hour"`
	WorkDays                 []int  `json:"work_days"`
	MaxMeetingsPerDay        *int   `json:"max_meetings_per_day"`
	PreferredMeetingDuration *int   `json:"preferred_meeting_duration"`
	BufferTime               *int   `json:"buffer_time"`
}

func (r userRequest) toInput() application.UserInput {
	return application.UserInput{
		Name:                     strings.TrimSpace(r.Name),
		Email:                    strings.TrimSpace(r.Email),
		Role:                     strings.TrimSpace(r.Role),
		Timezone:                 strings.TrimSpace(r.Timezone),
		WorkStartHour:            r.WorkStartHour,
		WorkEndHour:              r.WorkEndHour,
		WorkDays:                 r.WorkDays,
		MaxMeetingsPerDay:        r.MaxMeetingsPerDay,
		PreferredMeetingDuration: r.PreferredMeetingDuration,
		BufferTime:               r.BufferTime,
	}
}

type availabilityRequest struct {
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	Timezone          string `json:"timezone"`
	IsAvailable       bool   `json:"is_available"`
	Priority          int    `json:"priority"`
	Reason            string `json:"reason"`
	RecurrencePattern string `json:"recurrence_pattern"`
}

func (r availabilityRequest) toInput() application.AvailabilityInput {
	return application.AvailabilityInput{
		Start:             parseTime(r.StartTime),
		End:               parseTime(r.EndTime),
		Timezone:          strings.TrimSpace(r.Timezone),
		IsAvailable:       r.IsAvailable,
		Priority:          r.Priority,
		Reason:            r.Reason,
		RecurrencePattern: r.RecurrencePattern,
	}
}

type userResponse struct {
	User userDTO `json:"user"`
}

type listUsersResponse struct {
	Users []userDTO `json:"users"`
}

type availabilityResponse struct {
	Availability availabilityDTO `json:"availability"`
}

type userDTO struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	Email                    string `json:"email"`
	Role                     string `json:"role"`
	Timezone                 string `json:"timezone"`
	WorkStartHour            int    `json:"work_start_hour"`
	WorkEndHour              int    `json:"work_end_hour"`
	WorkDays                 []int  `json:"work_days"`
	MaxMeetingsPerDay        int    `json:"max_meetings_per_day"`
	PreferredMeetingDuration int    `json:"preferred_meeting_duration"`
	BufferTime               int    `json:"buffer_time"`
	CreatedAt                string `json:"created_at"`
	UpdatedAt                string `json:"updated_at"`
}

func toUserDTO(user persistence.User) userDTO {
	days := make([]int, 0, len(user.WorkDays))
	for _, day := range user.WorkDays {
		iso := int(day)
		if day == time.Sunday {
			iso = 7
		}
		days = append(days, iso)
	}
	return userDTO{
		ID:                       user.ID,
		Name:                     user.Name,
		Email:                    user.Email,
		Role:                     string(user.Role),
		Timezone:                 user.Timezone,
		WorkStartHour:            user.WorkStartHour,
		WorkEndHour:              user.WorkEndHour,
		WorkDays:                 days,
		MaxMeetingsPerDay:        user.MaxMeetingsPerDay,
		PreferredMeetingDuration: user.PreferredMeetingDuration,
		BufferTime:               user.BufferTime,
		CreatedAt:                formatTime(user.CreatedAt),
		UpdatedAt:                formatTime(user.UpdatedAt),
	}
}

func toUserDTOs(users []persistence.User) []userDTO {
	out := make([]userDTO, 0, len(users))
	for _, user := range users {
		out = append(out, toUserDTO(user))
	}
	return out
}

type availabilityDTO struct {
	ID                string `json:"id"`
	UserID            string `json:"user_id"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	Timezone          string `json:"timezone"`
	IsAvailable       bool   `json:"is_available"`
	Priority          int    `json:"priority"`
	Reason            string `json:"reason,omitempty"`
	IsRecurring       bool   `json:"is_recurring"`
	RecurrencePattern string `json:"recurrence_pattern,omitempty"`
	CreatedAt         string `json:"created_at"`
}

func toAvailabilityDTO(window persistence.AvailabilityWindow) availabilityDTO {
	return availabilityDTO{
		ID:                window.ID,
		UserID:            window.UserID,
		StartTime:         formatTime(window.Start),
		EndTime:           formatTime(window.End),
		Timezone:          window.Timezone,
		IsAvailable:       window.IsAvailable,
		Priority:          window.Priority,
		Reason:            window.Reason,
		IsRecurring:       window.IsRecurring,
		RecurrencePattern: window.RecurrencePattern,
		CreatedAt:         formatTime(window.CreatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}
