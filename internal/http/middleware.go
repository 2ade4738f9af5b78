package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/meeting-scheduler/internal/application"
)

// RequestIDHeader carries the request identifier in both directions.
const RequestIDHeader = "X-Request-ID"

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "X-API-Key"

// RequestLogger attaches a logger tagged with the request id, method, and path
// to every request context. An incoming X-Request-ID is reused.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithRequestID(ContextWithLogger(r.Context(), logger), id)
			start := time.Now()
			logger.DebugContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}

// KeyVerifier checks a presented API key.
type KeyVerifier interface {
	VerifyAPIKey(ctx context.Context, key string) error
}

// HashVerifier verifies keys against a single argon2id hash.
type HashVerifier string

// VerifyAPIKey implements KeyVerifier.
func (h HashVerifier) VerifyAPIKey(_ context.Context, key string) error {
	return application.VerifyAPIKey(string(h), key)
}

// RequireAPIKey rejects requests without a valid X-API-Key header. Paths in
// open bypass the check.
func RequireAPIKey(verifier KeyVerifier, logger *slog.Logger, open ...string) func(http.Handler) http.Handler {
	responder := newResponder(logger)
	bypass := make(map[string]bool, len(open))
	for _, path := range open {
		bypass[path] = true
	}

	return func(next http.Handler) http.Handler {
		if verifier == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			key := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if key == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingAPIKey)
				return
			}
			if err := verifier.VerifyAPIKey(r.Context(), key); err != nil {
				if application.ErrorKind(err) == application.KindUnauthorized {
					responder.writeError(r.Context(), w, http.StatusUnauthorized, errInvalidAPIKey)
					return
				}
				responder.handleServiceError(r.Context(), w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
