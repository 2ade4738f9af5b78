package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/recurrence"
	"github.com/example/meeting-scheduler/internal/timezone"
)

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, user persistence.User) error
	UpdateUser(ctx context.Context, user persistence.User) error
	GetUser(ctx context.Context, id string) (persistence.User, error)
	GetUserByEmail(ctx context.Context, email string) (persistence.User, error)
	ListUsers(ctx context.Context, ids []string) ([]persistence.User, error)
	CreateAvailability(ctx context.Context, window persistence.AvailabilityWindow) error
}

// UserService orchestrates validation and persistence for user profiles and
// their availability windows.
type UserService struct {
	users       UserRepository
	zones       *timezone.Resolver
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, idGenerator, now, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a specific logger.
func NewUserServiceWithLogger(users UserRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:       users,
		zones:       timezone.Default,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

func (s *UserService) ready() error {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}
	return nil
}

// CreateUser validates input, applies profile defaults, and stores a new user.
func (s *UserService) CreateUser(ctx context.Context, input UserInput) (user persistence.User, err error) {
	if err = s.ready(); err != nil {
		return persistence.User{}, err
	}

	input = normalizeUserInput(input)
	logger := s.loggerWith(ctx, "CreateUser", "email", input.Email)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "user creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user created", "user_id", user.ID)
	}()

	user = persistence.User{
		Role:                     persistence.RoleEmployee,
		Timezone:                 "UTC",
		WorkStartHour:            persistence.DefaultWorkStartHour,
		WorkEndHour:              persistence.DefaultWorkEndHour,
		WorkDays:                 append([]time.Weekday(nil), persistence.DefaultWorkDays...),
		MaxMeetingsPerDay:        persistence.DefaultMaxMeetingsPerDay,
		PreferredMeetingDuration: persistence.DefaultPreferredMeetingDuration,
		BufferTime:               persistence.DefaultBufferTime,
	}
	if vErr := s.applyUserInput(&user, input, true); vErr.HasErrors() {
		return persistence.User{}, vErr
	}

	if _, lookupErr := s.users.GetUserByEmail(ctx, user.Email); lookupErr == nil {
		return persistence.User{}, fmt.Errorf("%w: email %s", ErrAlreadyExists, user.Email)
	} else if !errors.Is(lookupErr, persistence.ErrNotFound) {
		return persistence.User{}, lookupErr
	}

	user.ID = s.idGenerator()
	user.CreatedAt = s.now()
	user.UpdatedAt = user.CreatedAt

	if err = s.users.CreateUser(ctx, user); err != nil {
		return persistence.User{}, mapStoreError(err, "user", user.ID)
	}
	return user, nil
}

// GetUser returns a single user.
func (s *UserService) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if err := s.ready(); err != nil {
		return persistence.User{}, err
	}
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return persistence.User{}, mapStoreError(err, "user", id)
	}
	return user, nil
}

// ListUsers returns every user in registration order.
func (s *UserService) ListUsers(ctx context.Context) ([]persistence.User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	users, err := s.users.ListUsers(ctx, nil)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUserProfile applies the provided attributes to an existing user.
// Empty strings and nil pointers keep the current values.
func (s *UserService) UpdateUserProfile(ctx context.Context, id string, input UserInput) (user persistence.User, err error) {
	if err = s.ready(); err != nil {
		return persistence.User{}, err
	}

	logger := s.loggerWith(ctx, "UpdateUserProfile", "user_id", id)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "user update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user updated")
	}()

	existing, err := s.users.GetUser(ctx, id)
	if err != nil {
		return persistence.User{}, mapStoreError(err, "user", id)
	}

	input = normalizeUserInput(input)
	user = existing
	if vErr := s.applyUserInput(&user, input, false); vErr.HasErrors() {
		return persistence.User{}, vErr
	}

	if user.Email != existing.Email {
		owner, lookupErr := s.users.GetUserByEmail(ctx, user.Email)
		switch {
		case lookupErr == nil && owner.ID != user.ID:
			return persistence.User{}, fmt.Errorf("%w: email %s", ErrAlreadyExists, user.Email)
		case lookupErr != nil && !errors.Is(lookupErr, persistence.ErrNotFound):
			return persistence.User{}, lookupErr
		}
	}

	user.UpdatedAt = s.now()
	if err = s.users.UpdateUser(ctx, user); err != nil {
		return persistence.User{}, mapStoreError(err, "user", id)
	}
	return user, nil
}

// AddAvailabilityWindow records an available or blocked interval for a user.
// A non-empty recurrence pattern makes the window repeat.
func (s *UserService) AddAvailabilityWindow(ctx context.Context, userID string, input AvailabilityInput) (window persistence.AvailabilityWindow, err error) {
	if err = s.ready(); err != nil {
		return persistence.AvailabilityWindow{}, err
	}

	logger := s.loggerWith(ctx, "AddAvailabilityWindow", "user_id", userID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "availability window rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "availability window added", "window_id", window.ID, "recurring", window.IsRecurring)
	}()

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return persistence.AvailabilityWindow{}, mapStoreError(err, "user", userID)
	}

	vErr := &ValidationError{}
	if input.Start.IsZero() {
		vErr.add("start_time", "start time is required")
	}
	if input.End.IsZero() {
		vErr.add("end_time", "end time is required")
	} else if !input.Start.IsZero() && !input.End.After(input.Start) {
		vErr.add("end_time", "end time must be after start time")
	}

	priority := input.Priority
	if priority == 0 {
		priority = 1
	}
	if priority < 1 || priority > 5 {
		vErr.add("priority", "priority must be between 1 and 5")
	}

	zone := strings.TrimSpace(input.Timezone)
	if zone == "" {
		zone = user.Timezone
	}
	if _, zoneErr := s.zones.Resolve(zone); zoneErr != nil {
		vErr.add("timezone", "timezone is not a known IANA zone")
	}

	pattern := strings.TrimSpace(input.RecurrencePattern)
	if pattern != "" {
		if ruleErr := recurrence.Validate(pattern); ruleErr != nil {
			vErr.add("recurrence_pattern", "recurrence pattern is not a valid RRULE")
		}
	}
	if vErr.HasErrors() {
		return persistence.AvailabilityWindow{}, vErr
	}

	window = persistence.AvailabilityWindow{
		ID:                s.idGenerator(),
		UserID:            user.ID,
		Start:             input.Start,
		End:               input.End,
		Timezone:          zone,
		IsAvailable:       input.IsAvailable,
		Priority:          priority,
		Reason:            strings.TrimSpace(input.Reason),
		IsRecurring:       pattern != "",
		RecurrencePattern: pattern,
		CreatedAt:         s.now(),
	}
	if err = s.users.CreateAvailability(ctx, window); err != nil {
		return persistence.AvailabilityWindow{}, mapStoreError(err, "availability", window.ID)
	}
	return window, nil
}

func normalizeUserInput(input UserInput) UserInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Role = strings.TrimSpace(input.Role)
	input.Timezone = strings.TrimSpace(input.Timezone)
	return input
}

// applyUserInput validates input and copies it onto user. On create the name
// and email are required; on update empty values keep what user already holds.
func (s *UserService) applyUserInput(user *persistence.User, input UserInput, create bool) *ValidationError {
	vErr := &ValidationError{}

	if input.Name != "" {
		user.Name = input.Name
	} else if create {
		vErr.add("name", "name is required")
	}

	if input.Email != "" {
		if _, err := mail.ParseAddress(input.Email); err != nil {
			vErr.add("email", "email is invalid")
		}
		user.Email = input.Email
	} else if create {
		vErr.add("email", "email is required")
	}

	if input.Role != "" {
		role, err := persistence.ParseRole(input.Role)
		if err != nil {
			vErr.add("role", "role must be one of admin, manager, employee, guest")
		}
		user.Role = role
	}

	if input.Timezone != "" {
		if _, err := s.zones.Resolve(input.Timezone); err != nil {
			vErr.add("timezone", "timezone is not a known IANA zone")
		}
		user.Timezone = input.Timezone
	}

	if input.WorkStartHour != nil {
		user.WorkStartHour = *input.WorkStartHour
	}
	if input.WorkEndHour != nil {
		user.WorkEndHour = *input.WorkEndHour
	}
	if user.WorkStartHour < 0 || user.WorkEndHour > 24 || user.WorkStartHour >= user.WorkEndHour {
		vErr.add("work_hours", "work hours must satisfy 0 <= start < end <= 24")
	}

	if input.WorkDays != nil {
		days, err := workDays(input.WorkDays)
		if err != nil {
			vErr.add("work_days", err.Error())
		}
		user.WorkDays = days
	}

	if input.MaxMeetingsPerDay != nil {
		user.MaxMeetingsPerDay = *input.MaxMeetingsPerDay
	}
	if user.MaxMeetingsPerDay < 1 {
		vErr.add("max_meetings_per_day", "max meetings per day must be at least 1")
	}

	if input.PreferredMeetingDuration != nil {
		user.PreferredMeetingDuration = *input.PreferredMeetingDuration
	}
	if user.PreferredMeetingDuration < 1 {
		vErr.add("preferred_meeting_duration", "preferred meeting duration must be positive")
	}

	if input.BufferTime != nil {
		user.BufferTime = *input.BufferTime
	}
	if user.BufferTime < 0 {
		vErr.add("buffer_time", "buffer time must not be negative")
	}

	return vErr
}

// workDays converts ISO day numbers (1 Monday .. 7 Sunday) into weekdays,
// dropping repeats.
func workDays(isoDays []int) ([]time.Weekday, error) {
	seen := make(map[int]bool, len(isoDays))
	days := make([]time.Weekday, 0, len(isoDays))
	for _, iso := range isoDays {
		if iso < 1 || iso > 7 {
			return nil, fmt.Errorf("work day %d is outside 1..7", iso)
		}
		if seen[iso] {
			continue
		}
		seen[iso] = true
		days = append(days, time.Weekday(iso%7))
	}
	return days, nil
}
