package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/meeting-scheduler/internal/logging"
	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	return logging.OrDefault(logger)
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, base, "service", serviceName, operation, attrs...)
}

// Error kind labels returned by ErrorKind.
const (
	KindValidation   = "validation"
	KindNotFound     = "not_found"
	KindUnauthorized = "unauthorized"
	KindConflict     = "conflict"
	KindInternal     = "internal"
)

// ErrorKind maps sentinel and validation errors from every layer to a stable label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrNotFound),
		errors.Is(err, scheduler.ErrNotFound),
		errors.Is(err, persistence.ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyExists),
		errors.Is(err, persistence.ErrDuplicate):
		return KindConflict
	case errors.Is(err, scheduler.ErrInvalidInput),
		errors.Is(err, persistence.ErrConstraintViolation),
		errors.Is(err, persistence.ErrForeignKeyViolation):
		return KindValidation
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return KindValidation
	}

	return KindInternal
}
