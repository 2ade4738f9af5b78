package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/calendar"
	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

type meetingService interface {
	CreateMeeting(ctx context.Context, input application.MeetingInput) (application.CreateMeetingResult, error)
	GetMeeting(ctx context.Context, id string) (application.MeetingDetails, error)
	ListMeetings(ctx context.Context, params application.ListMeetingsParams) ([]persistence.Meeting, error)
	TransitionMeetingStatus(ctx context.Context, id, status string) (persistence.Meeting, error)
	RecordParticipation(ctx context.Context, meetingID, userID string, input application.ParticipationInput) (persistence.Participant, error)
}

type userLookup interface {
	GetUser(ctx context.Context, id string) (persistence.User, error)
}

type MeetingHandler struct {
	service   meetingService
	users     userLookup
	exporter  *calendar.Exporter
	responder responder
	logger    *slog.Logger
}

func NewMeetingHandler(service meetingService, users userLookup, exporter *calendar.Exporter, logger *slog.Logger) *MeetingHandler {
	base := defaultLogger(logger)
	if exporter == nil {
		exporter = calendar.NewExporter(nil)
	}
	return &MeetingHandler{service: service, users: users, exporter: exporter, responder: newResponder(base), logger: base}
}

func (h *MeetingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "MeetingHandler", operation, attrs...)
}

func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req meetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode meeting request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	result, err := h.service.CreateMeeting(r.Context(), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "meeting_id", result.Meeting.ID).InfoContext(r.Context(), "meeting created", "conflicts", len(result.Conflicts))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, createMeetingResponse{
		Meeting:   toMeetingDTO(result.Meeting, result.Participants),
		Conflicts: nonNilConflicts(result.Conflicts),
	})
}

func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	details, err := h.service.GetMeeting(r.Context(), r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, meetingResponse{Meeting: toMeetingDTO(details.Meeting, details.Participants)})
}

func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	params, fieldErrors := buildListMeetingsParams(r.URL.Query())
	if len(fieldErrors) > 0 {
		h.responder.writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{
			Message: localizedStatusMessage(http.StatusUnprocessableEntity),
			Errors:  fieldErrors,
		})
		return
	}

	meetings, err := h.service.ListMeetings(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]meetingDTO, 0, len(meetings))
	for _, meeting := range meetings {
		out = append(out, toMeetingDTO(meeting, nil))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listMeetingsResponse{Meetings: out})
}

// Calendar renders the meeting as an iCalendar document.
func (h *MeetingHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	details, err := h.service.GetMeeting(r.Context(), r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	users, err := h.lookupUsers(r.Context(), details)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	body, err := calendar.EncodeToBytes(h.exporter.Meeting(details.Meeting, details.Participants, users))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeBytes(r.Context(), w, http.StatusOK, calendar.ContentType, body)
}

// lookupUsers resolves the organizer and participants. Users that vanished
// are omitted from the export.
func (h *MeetingHandler) lookupUsers(ctx context.Context, details application.MeetingDetails) (map[string]persistence.User, error) {
	users := make(map[string]persistence.User, len(details.Participants)+1)
	if h.users == nil {
		return users, nil
	}

	ids := []string{details.Meeting.OrganizerID}
	for _, participant := range details.Participants {
		ids = append(ids, participant.UserID)
	}
	for _, id := range ids {
		if _, seen := users[id]; seen {
			continue
		}
		user, err := h.users.GetUser(ctx, id)
		switch {
		case err == nil:
			users[id] = user
		case errors.Is(err, application.ErrNotFound), errors.Is(err, persistence.ErrNotFound):
			continue
		default:
			return nil, err
		}
	}
	return users, nil
}

func (h *MeetingHandler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	meeting, err := h.service.TransitionMeetingStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, meetingResponse{Meeting: toMeetingDTO(meeting, nil)})
}

func (h *MeetingHandler) RecordParticipation(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req participationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	participant, err := h.service.RecordParticipation(r.Context(), r.PathValue("id"), r.PathValue("userID"), application.ParticipationInput{
		ResponseStatus:     strings.TrimSpace(req.ResponseStatus),
		Attended:           req.Attended,
		ParticipationLevel: req.ParticipationLevel,
		ContributionScore:  req.ContributionScore,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, participantResponse{Participant: toParticipantDTO(participant)})
}

func buildListMeetingsParams(values url.Values) (application.ListMeetingsParams, map[string]string) {
	params := application.ListMeetingsParams{UserID: strings.TrimSpace(values.Get("user_id"))}
	fieldErrors := map[string]string{}

	for key, target := range map[string]*int{"limit": &params.Limit, "offset": &params.Offset} {
		raw := strings.TrimSpace(values.Get(key))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			fieldErrors[key] = key + " must be an integer"
			continue
		}
		*target = n
	}
	return params, fieldErrors
}

func nonNilConflicts(conflicts []scheduler.Conflict) []scheduler.Conflict {
	if conflicts == nil {
		return []scheduler.Conflict{}
	}
	return conflicts
}

type meetingRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	MeetingType     string   `json:"meeting_type"`
	StartTime       string   `json:"start_time"`
	DurationMinutes int      `json:"duration_minutes"`
	Timezone        string   `json:"timezone"`
	Location        string   `json:"location"`
	MeetingURL      string   `json:"meeting_url"`
	Agenda          string   `json:"agenda"`
	OrganizerID     string   `json:"organizer_id"`
	ParticipantIDs  []string `json:"participant_ids"`
}

func (r meetingRequest) toInput() application.MeetingInput {
	return application.MeetingInput{
		Title:           strings.TrimSpace(r.Title),
		Description:     r.Description,
		Type:            strings.TrimSpace(r.MeetingType),
		Start:           parseTime(r.StartTime),
		DurationMinutes: r.DurationMinutes,
		Timezone:        strings.TrimSpace(r.Timezone),
		Location:        strings.TrimSpace(r.Location),
		MeetingURL:      strings.TrimSpace(r.MeetingURL),
		Agenda:          r.Agenda,
		OrganizerID:     strings.TrimSpace(r.OrganizerID),
		ParticipantIDs:  append([]string(nil), r.ParticipantIDs...),
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

type participationRequest struct {
	ResponseStatus     string   `json:"response_status"`
	Attended           *bool    `json:"attended"`
	ParticipationLevel *float64 `json:"participation_level"`
	ContributionScore  *float64 `json:"contribution_score"`
}

type meetingResponse struct {
	Meeting meetingDTO `json:"meeting"`
}

type createMeetingResponse struct {
	Meeting   meetingDTO           `json:"meeting"`
	Conflicts []scheduler.Conflict `json:"conflicts"`
}

type listMeetingsResponse struct {
	Meetings []meetingDTO `json:"meetings"`
}

type participantResponse struct {
	Participant participantDTO `json:"participant"`
}

type meetingDTO struct {
	ID                 string           `json:"id"`
	Title              string           `json:"title"`
	Description        string           `json:"description,omitempty"`
	MeetingType        string           `json:"meeting_type"`
	StartTime          string           `json:"start_time"`
	EndTime            string           `json:"end_time"`
	DurationMinutes    int              `json:"duration_minutes"`
	Timezone           string           `json:"timezone"`
	Location           string           `json:"location,omitempty"`
	MeetingURL         string           `json:"meeting_url,omitempty"`
	Agenda             string           `json:"agenda,omitempty"`
	OrganizerID        string           `json:"organizer_id"`
	Status             string           `json:"status"`
	EffectivenessScore *float64         `json:"effectiveness_score,omitempty"`
	ProductivityRating *float64         `json:"productivity_rating,omitempty"`
	EngagementLevel    *float64         `json:"engagement_level,omitempty"`
	Participants       []participantDTO `json:"participants,omitempty"`
	CreatedAt          string           `json:"created_at"`
	UpdatedAt          string           `json:"updated_at"`
}

func toMeetingDTO(meeting persistence.Meeting, participants []persistence.Participant) meetingDTO {
	dto := meetingDTO{
		ID:                 meeting.ID,
		Title:              meeting.Title,
		Description:        meeting.Description,
		MeetingType:        string(meeting.Type),
		StartTime:          formatTime(meeting.Start),
		EndTime:            formatTime(meeting.End),
		DurationMinutes:    meeting.DurationMinutes(),
		Timezone:           meeting.Timezone,
		Location:           meeting.Location,
		MeetingURL:         meeting.MeetingURL,
		Agenda:             meeting.Agenda,
		OrganizerID:        meeting.OrganizerID,
		Status:             string(meeting.Status),
		EffectivenessScore: meeting.EffectivenessScore,
		ProductivityRating: meeting.ProductivityRating,
		EngagementLevel:    meeting.EngagementLevel,
		CreatedAt:          formatTime(meeting.CreatedAt),
		UpdatedAt:          formatTime(meeting.UpdatedAt),
	}
	for _, participant := range participants {
		dto.Participants = append(dto.Participants, toParticipantDTO(participant))
	}
	return dto
}

type participantDTO struct {
	MeetingID          string   `json:"meeting_id"`
	UserID             string   `json:"user_id"`
	IsRequired         bool     `json:"is_required"`
	ResponseStatus     string   `json:"response_status"`
	Attended           *bool    `json:"attended,omitempty"`
	ParticipationLevel *float64 `json:"participation_level,omitempty"`
	ContributionScore  *float64 `json:"contribution_score,omitempty"`
	RespondedAt        string   `json:"responded_at,omitempty"`
}

func toParticipantDTO(participant persistence.Participant) participantDTO {
	dto := participantDTO{
		MeetingID:          participant.MeetingID,
		UserID:             participant.UserID,
		IsRequired:         participant.IsRequired,
		ResponseStatus:     string(participant.ResponseStatus),
		Attended:           participant.Attended,
		ParticipationLevel: participant.ParticipationLevel,
		ContributionScore:  participant.ContributionScore,
	}
	if participant.RespondedAt != nil {
		dto.RespondedAt = formatTime(*participant.RespondedAt)
	}
	return dto
}
