package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestContextWithLogger(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)
	ctx := ContextWithLogger(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Fatalf("expected the attached logger back")
	}
	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("expected nil logger for a bare context")
	}
	if got := ContextWithLogger(ctx, nil); got != ctx {
		t.Fatalf("expected the context unchanged for a nil logger")
	}
}

func TestNewLogger_WritesJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, closer := newLogger(&buf, slog.LevelInfo, "")
	defer closer.Close()

	logger.Debug("hidden")
	logger.Info("slot search", "returned", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record above the debug level, got %d", len(lines))
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if record["msg"] != "slot search" || record["returned"] != float64(3) {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestNewLogger_TeesIntoFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scheduler.log")
	var buf bytes.Buffer
	logger, closer := newLogger(&buf, slog.LevelDebug, path)

	logger.Warn("conflicts detected", "meeting_id", "m-1")
	if err := closer.Close(); err != nil {
		t.Fatalf("close returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), `"meeting_id":"m-1"`) {
		t.Fatalf("log file missing record: %s", data)
	}
	if !strings.Contains(buf.String(), "conflicts detected") {
		t.Fatalf("stdout copy missing record: %s", buf.String())
	}
}

func TestNewConsoleLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewConsoleLogger(&buf, slog.LevelWarn, "meetingctl")

	logger.Info("ignored")
	logger.Warn("unknown user skipped", "user_id", "ghost")

	out := buf.String()
	if strings.Contains(out, "ignored") {
		t.Fatalf("info record should be filtered: %s", out)
	}
	if !strings.Contains(out, "unknown user skipped") || !strings.Contains(out, "ghost") {
		t.Fatalf("warn record missing: %s", out)
	}
}

func TestScoped_PrefersContextLogger(t *testing.T) {
	t.Parallel()

	var fromCtx, fallback bytes.Buffer
	ctxLogger := slog.New(slog.NewJSONHandler(&fromCtx, nil))
	base := slog.New(slog.NewJSONHandler(&fallback, nil))

	ctx := ContextWithLogger(context.Background(), ctxLogger)
	Scoped(ctx, base, "service", "AnalyticsService", "FindOptimalSlots", "participants", 2).Info("slot search")

	if fallback.Len() != 0 {
		t.Fatalf("fallback logger should stay unused, got %q", fallback.String())
	}
	var record map[string]any
	if err := json.Unmarshal(fromCtx.Bytes(), &record); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if record["service"] != "AnalyticsService" || record["operation"] != "FindOptimalSlots" || record["participants"] != float64(2) {
		t.Fatalf("unexpected record: %v", record)
	}

	Scoped(context.Background(), base, "handler", "StatsHandler", "").Info("health")
	record = map[string]any{}
	if err := json.Unmarshal(fallback.Bytes(), &record); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if record["handler"] != "StatsHandler" {
		t.Fatalf("unexpected record: %v", record)
	}
	if _, ok := record["operation"]; ok {
		t.Fatalf("empty operation should be omitted: %v", record)
	}
}

func TestOrDefault(t *testing.T) {
	t.Parallel()

	if OrDefault(nil) != slog.Default() {
		t.Fatalf("expected slog.Default for nil")
	}
	logger := slog.New(slog.DiscardHandler)
	if OrDefault(logger) != logger {
		t.Fatalf("expected the provided logger back")
	}
}
