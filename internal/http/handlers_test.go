package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/meeting-scheduler/internal/calendar"
	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/testfixtures"
)

type apiEnv struct {
	factory *testfixtures.ServiceFactory
	handler http.Handler
	alice   persistence.User
	bob     persistence.User
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	factory := testfixtures.NewServiceFactory(testfixtures.WithLogger(logger))
	alice := testfixtures.MustCreateUser(t, factory.Store, testfixtures.NewUserFixture(
		testfixtures.WithUserID("alice"),
		testfixtures.WithUserName("Alice"),
		testfixtures.WithUserEmail("alice@example.com"),
	))
	bob := testfixtures.MustCreateUser(t, factory.Store, testfixtures.NewUserFixture(
		testfixtures.WithUserID("bob"),
		testfixtures.WithUserName("Bob"),
		testfixtures.WithUserEmail("bob@example.com"),
	))

	users := factory.NewUserService()
	analytics := factory.NewAnalyticsService()
	exporter := calendar.NewExporter(factory.Clock.NowFunc())

	handler := NewRouter(RouterConfig{
		Users:     NewUserHandler(users, logger),
		Meetings:  NewMeetingHandler(factory.NewMeetingService(), users, exporter, logger),
		Schedule:  NewScheduleHandler(analytics, exporter, "UTC", logger),
		Analytics: NewAnalyticsHandler(analytics, logger),
		Stats:     NewStatsHandler(factory.NewStatsService(), pingerFunc(func(context.Context) error { return nil }), factory.Clock.NowFunc(), logger),
		Middleware: []func(http.Handler) http.Handler{
			RequestLogger(logger),
		},
	})

	return &apiEnv{factory: factory, handler: handler, alice: alice, bob: bob}
}

func (e *apiEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	recorder := httptest.NewRecorder()
	e.handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.NewDecoder(recorder.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return out
}

func expectStatus(t *testing.T, recorder *httptest.ResponseRecorder, want int) {
	t.Helper()
	if recorder.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, recorder.Code, recorder.Body.String())
	}
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestUserHandlers(t *testing.T) {
	t.Parallel()

	t.Run("creates users with profile defaults", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		recorder := env.do(t, http.MethodPost, "/users", map[string]any{
			"name":  "Carol",
			"email": "carol@example.com",
		})
		expectStatus(t, recorder, http.StatusCreated)

		resp := decodeBody[userResponse](t, recorder)
		if resp.User.ID == "" || resp.User.Timezone != "UTC" || resp.User.Role != "employee" {
			t.Fatalf("unexpected user: %+v", resp.User)
		}
		if len(resp.User.WorkDays) != 5 || resp.User.WorkDays[0] != 1 {
			t.Fatalf("expected Monday through Friday, got %v", resp.User.WorkDays)
		}
	})

	t.Run("reports field errors as 400", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		recorder := env.do(t, http.MethodPost, "/users", map[string]any{
			"name":     "Carol",
			"email":    "not-an-email",
			"timezone": "Mars/Base",
		})
		expectStatus(t, recorder, http.StatusBadRequest)

		resp := decodeBody[errorResponse](t, recorder)
		if resp.Errors["email"] == "" || resp.Errors["timezone"] == "" {
			t.Fatalf("expected email and timezone errors, got %v", resp.Errors)
		}
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		recorder := env.do(t, http.MethodPost, "/users", map[string]any{"name": "Alice Again", "email": "ALICE@example.com"})
		expectStatus(t, recorder, http.StatusConflict)
	})

	t.Run("unknown user is 404", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		expectStatus(t, env.do(t, http.MethodGet, "/users/ghost", nil), http.StatusNotFound)
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader("{"))
		recorder := httptest.NewRecorder()
		env.handler.ServeHTTP(recorder, req)
		expectStatus(t, recorder, http.StatusBadRequest)
	})

	t.Run("updates and lists users", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		recorder := env.do(t, http.MethodPut, "/users/alice", map[string]any{"timezone": "Asia/Tokyo", "max_meetings_per_day": 4})
		expectStatus(t, recorder, http.StatusOK)
		updated := decodeBody[userResponse](t, recorder)
		if updated.User.Timezone != "Asia/Tokyo" || updated.User.MaxMeetingsPerDay != 4 || updated.User.Name != "Alice" {
			t.Fatalf("unexpected update result: %+v", updated.User)
		}

		recorder = env.do(t, http.MethodGet, "/users", nil)
		expectStatus(t, recorder, http.StatusOK)
		list := decodeBody[listUsersResponse](t, recorder)
		if len(list.Users) != 2 {
			t.Fatalf("expected 2 users, got %d", len(list.Users))
		}
	})

	t.Run("adds recurring availability", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		start := env.factory.Clock.At(1, 12, 0)
		recorder := env.do(t, http.MethodPost, "/users/alice/availability", map[string]any{
			"start_time":         start.Format(time.RFC3339),
			"end_time":           start.Add(time.Hour).Format(time.RFC3339),
			"reason":             "Lunch",
			"recurrence_pattern": "FREQ=DAILY",
		})
		expectStatus(t, recorder, http.StatusCreated)
		resp := decodeBody[availabilityResponse](t, recorder)
		if !resp.Availability.IsRecurring || resp.Availability.Priority != 1 || resp.Availability.IsAvailable {
			t.Fatalf("unexpected window: %+v", resp.Availability)
		}
	})
}

func TestMeetingHandlers(t *testing.T) {
	t.Parallel()

	t.Run("returns conflicts alongside the created meeting", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		start := env.factory.Clock.At(1, 10, 0)
		testfixtures.MustScheduleMeeting(t, env.factory.Store, testfixtures.NewMeetingFixture(
			"bob", start, 30*time.Minute,
			testfixtures.WithMeetingTitle("Standup"),
			testfixtures.WithParticipants("alice"),
		))

		recorder := env.do(t, http.MethodPost, "/meetings", map[string]any{
			"title":            "Design review",
			"meeting_type":     "review",
			"start_time":       start.Add(15 * time.Minute).Format(time.RFC3339),
			"duration_minutes": 60,
			"organizer_id":     "bob",
			"participant_ids":  []string{"alice"},
		})
		expectStatus(t, recorder, http.StatusCreated)

		resp := decodeBody[createMeetingResponse](t, recorder)
		if resp.Meeting.Status != "scheduled" || resp.Meeting.DurationMinutes != 60 {
			t.Fatalf("unexpected meeting: %+v", resp.Meeting)
		}
		if len(resp.Meeting.Participants) != 1 || resp.Meeting.Participants[0].ResponseStatus != "pending" {
			t.Fatalf("unexpected participants: %+v", resp.Meeting.Participants)
		}
		if len(resp.Conflicts) != 1 || resp.Conflicts[0].Detail != "Overlaps with meeting: Standup" {
			t.Fatalf("unexpected conflicts: %+v", resp.Conflicts)
		}
	})

	t.Run("unknown participant is 404", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		recorder := env.do(t, http.MethodPost, "/meetings", map[string]any{
			"title":            "Sync",
			"start_time":       env.factory.Clock.At(1, 10, 0).Format(time.RFC3339),
			"duration_minutes": 30,
			"organizer_id":     "alice",
			"participant_ids":  []string{"ghost"},
		})
		expectStatus(t, recorder, http.StatusNotFound)
	})

	t.Run("exports the meeting as iCalendar", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		meeting := testfixtures.MustScheduleMeeting(t, env.factory.Store, testfixtures.NewMeetingFixture(
			"alice", env.factory.Clock.At(1, 14, 0), time.Hour,
			testfixtures.WithMeetingTitle("Planning"),
			testfixtures.WithParticipants("bob"),
		))

		recorder := env.do(t, http.MethodGet, "/meetings/"+meeting.ID+"/ics", nil)
		expectStatus(t, recorder, http.StatusOK)
		if ct := recorder.Header().Get("Content-Type"); ct != calendar.ContentType {
			t.Fatalf("unexpected content type %q", ct)
		}
		body := recorder.Body.String()
		for _, want := range []string{"BEGIN:VCALENDAR", "SUMMARY:Planning", "UID:" + meeting.ID + "@"} {
			if !strings.Contains(body, want) {
				t.Fatalf("expected %q in calendar:\n%s", want, body)
			}
		}
	})

	t.Run("enforces the status lifecycle", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		meeting := testfixtures.MustScheduleMeeting(t, env.factory.Store, testfixtures.NewMeetingFixture(
			"alice", env.factory.Clock.At(1, 14, 0), time.Hour,
		))

		expectStatus(t, env.do(t, http.MethodPost, "/meetings/"+meeting.ID+"/status", map[string]any{"status": "completed"}), http.StatusBadRequest)

		recorder := env.do(t, http.MethodPost, "/meetings/"+meeting.ID+"/status", map[string]any{"status": "in_progress"})
		expectStatus(t, recorder, http.StatusOK)
		if resp := decodeBody[meetingResponse](t, recorder); resp.Meeting.Status != "in_progress" {
			t.Fatalf("unexpected status %q", resp.Meeting.Status)
		}
	})

	t.Run("records participation", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		meeting := testfixtures.MustScheduleMeeting(t, env.factory.Store, testfixtures.NewMeetingFixture(
			"alice", env.factory.Clock.At(1, 14, 0), time.Hour,
			testfixtures.WithParticipants("bob"),
			testfixtures.WithResponse(persistence.ResponsePending),
		))

		recorder := env.do(t, http.MethodPost, "/meetings/"+meeting.ID+"/participants/bob", map[string]any{
			"response_status":     "accepted",
			"participation_level": 7.5,
		})
		expectStatus(t, recorder, http.StatusOK)
		resp := decodeBody[participantResponse](t, recorder)
		if resp.Participant.ResponseStatus != "accepted" || resp.Participant.RespondedAt == "" {
			t.Fatalf("unexpected participant: %+v", resp.Participant)
		}

		expectStatus(t, env.do(t, http.MethodPost, "/meetings/"+meeting.ID+"/participants/bob", map[string]any{"participation_level": 11}), http.StatusBadRequest)
	})

	t.Run("lists meetings with paging validation", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		for i := 0; i < 3; i++ {
			testfixtures.MustScheduleMeeting(t, env.factory.Store, testfixtures.NewMeetingFixture(
				"alice", env.factory.Clock.At(1, 9+i, 0), 30*time.Minute,
			))
		}

		recorder := env.do(t, http.MethodGet, "/meetings?user_id=alice&limit=2", nil)
		expectStatus(t, recorder, http.StatusOK)
		if resp := decodeBody[listMeetingsResponse](t, recorder); len(resp.Meetings) != 2 {
			t.Fatalf("expected 2 meetings, got %d", len(resp.Meetings))
		}

		expectStatus(t, env.do(t, http.MethodGet, "/meetings?limit=many", nil), http.StatusBadRequest)
		expectStatus(t, env.do(t, http.MethodGet, "/meetings?user_id=ghost", nil), http.StatusNotFound)
	})
}

func TestScheduleHandlers(t *testing.T) {
	t.Parallel()

	t.Run("ranks slots as JSON", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		recorder := env.do(t, http.MethodPost, "/schedule/find-optimal-slots", map[string]any{
			"participant_ids":  []string{"alice", "bob"},
			"duration_minutes": 30,
			"start_date":       "2024-03-05",
			"end_date":         "2024-03-05",
			"max_results":      3,
		})
		expectStatus(t, recorder, http.StatusOK)

		var resp struct {
			Slots []struct {
				StartTime time.Time `json:"start_time"`
				Score     float64   `json:"score"`
			} `json:"slots"`
		}
		if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode slots: %v", err)
		}
		if len(resp.Slots) != 3 {
			t.Fatalf("expected 3 slots, got %d", len(resp.Slots))
		}
		for i := 1; i < len(resp.Slots); i++ {
			if resp.Slots[i].Score > resp.Slots[i-1].Score {
				t.Fatalf("slots not in descending score order: %+v", resp.Slots)
			}
		}
	})

	t.Run("ranks slots as iCalendar", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		recorder := env.do(t, http.MethodPost, "/schedule/find-optimal-slots?format=ics", map[string]any{
			"title":            "Kickoff",
			"participant_ids":  []string{"alice"},
			"duration_minutes": 60,
			"start_date":       "2024-03-05",
			"end_date":         "2024-03-05",
			"max_results":      2,
		})
		expectStatus(t, recorder, http.StatusOK)
		body := recorder.Body.String()
		if strings.Count(body, "BEGIN:VEVENT") != 2 || !strings.Contains(body, "STATUS:TENTATIVE") {
			t.Fatalf("unexpected calendar:\n%s", body)
		}
	})

	t.Run("validates slot requests", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		recorder := env.do(t, http.MethodPost, "/schedule/find-optimal-slots", map[string]any{"duration_minutes": 0})
		expectStatus(t, recorder, http.StatusBadRequest)
		resp := decodeBody[errorResponse](t, recorder)
		if resp.Errors["participant_ids"] == "" || resp.Errors["duration_minutes"] == "" {
			t.Fatalf("unexpected field errors: %v", resp.Errors)
		}
	})

	t.Run("rejects multi-year slot searches", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		recorder := env.do(t, http.MethodPost, "/schedule/find-optimal-slots", map[string]any{
			"participant_ids":  []string{"alice"},
			"duration_minutes": 30,
			"start_date":       "1990-01-01",
			"end_date":         "2090-12-31",
		})
		expectStatus(t, recorder, http.StatusBadRequest)
		resp := decodeBody[errorResponse](t, recorder)
		if resp.Errors["end_date"] == "" {
			t.Fatalf("expected end_date error, got %v", resp.Errors)
		}
	})

	t.Run("detects conflicts", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		start := env.factory.Clock.At(1, 10, 0)
		testfixtures.MustScheduleMeeting(t, env.factory.Store, testfixtures.NewMeetingFixture(
			"alice", start, time.Hour, testfixtures.WithMeetingTitle("Roadmap"),
		))

		recorder := env.do(t, http.MethodPost, "/schedule/detect-conflicts", map[string]any{
			"user_id":    "alice",
			"start_time": start.Add(30 * time.Minute).Format(time.RFC3339),
			"end_time":   start.Add(90 * time.Minute).Format(time.RFC3339),
		})
		expectStatus(t, recorder, http.StatusOK)
		resp := decodeBody[conflictsResponse](t, recorder)
		if !resp.HasConflicts || resp.Conflicts[0].Detail != "Overlaps with meeting: Roadmap" {
			t.Fatalf("unexpected conflicts: %+v", resp)
		}

		recorder = env.do(t, http.MethodPost, "/schedule/detect-conflicts", map[string]any{
			"user_id":    "alice",
			"start_time": start.Add(time.Hour).Format(time.RFC3339),
			"end_time":   start.Add(2 * time.Hour).Format(time.RFC3339),
		})
		expectStatus(t, recorder, http.StatusOK)
		if resp := decodeBody[conflictsResponse](t, recorder); resp.HasConflicts || resp.Conflicts == nil {
			t.Fatalf("touching meetings must not conflict: %+v", resp)
		}
	})

	t.Run("optimizes a schedule", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		expectStatus(t, env.do(t, http.MethodGet, "/schedule/optimize/alice", nil), http.StatusOK)
		expectStatus(t, env.do(t, http.MethodGet, "/schedule/optimize/ghost", nil), http.StatusNotFound)
	})
}

func TestAnalyticsHandlers(t *testing.T) {
	t.Parallel()

	t.Run("meeting patterns", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		expectStatus(t, env.do(t, http.MethodGet, "/analytics/meeting-patterns/alice?period_days=7", nil), http.StatusOK)
		expectStatus(t, env.do(t, http.MethodGet, "/analytics/meeting-patterns/alice?period_days=week", nil), http.StatusBadRequest)
		expectStatus(t, env.do(t, http.MethodGet, "/analytics/meeting-patterns/alice?period_days=-1", nil), http.StatusBadRequest)
	})

	t.Run("workload balance", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		recorder := env.do(t, http.MethodPost, "/analytics/workload-balance", map[string]any{"user_ids": []string{"alice", "bob", "ghost"}})
		expectStatus(t, recorder, http.StatusOK)
		resp := decodeBody[map[string]any](t, recorder)
		if _, ok := resp["balance_score"]; !ok {
			t.Fatalf("expected balance_score in %v", resp)
		}
	})

	t.Run("effectiveness of a missing meeting is 404", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		expectStatus(t, env.do(t, http.MethodPost, "/analytics/effectiveness/ghost", nil), http.StatusNotFound)
	})

	t.Run("agenda", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		recorder := env.do(t, http.MethodPost, "/agenda", map[string]any{"topic": "Quarterly planning", "duration_minutes": 60})
		expectStatus(t, recorder, http.StatusOK)
		body := recorder.Body.String()
		if !strings.Contains(body, "Goal Setting & Planning") {
			t.Fatalf("expected planning template, got %s", body)
		}

		expectStatus(t, env.do(t, http.MethodPost, "/agenda", map[string]any{"topic": ""}), http.StatusBadRequest)
	})
}

func TestStatsHandlers(t *testing.T) {
	t.Parallel()

	t.Run("stats and health", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		recorder := env.do(t, http.MethodGet, "/stats", nil)
		expectStatus(t, recorder, http.StatusOK)
		resp := decodeBody[map[string]any](t, recorder)
		if resp["total_users"] != float64(2) {
			t.Fatalf("unexpected stats: %v", resp)
		}

		expectStatus(t, env.do(t, http.MethodGet, "/health", nil), http.StatusOK)
	})

	t.Run("unreachable store reports 503", func(t *testing.T) {
		t.Parallel()

		handler := NewRouter(RouterConfig{
			Stats: NewStatsHandler(nil, pingerFunc(func(context.Context) error { return errors.New("disk gone") }), nil, slog.New(slog.DiscardHandler)),
		})
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
		expectStatus(t, recorder, http.StatusServiceUnavailable)
	})

	t.Run("wrong method is 405", func(t *testing.T) {
		t.Parallel()
		env := newAPIEnv(t)

		expectStatus(t, env.do(t, http.MethodDelete, "/users", nil), http.StatusMethodNotAllowed)
	})
}
