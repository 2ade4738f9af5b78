package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the optional log file.
const (
	rotateMaxSizeMB  = 10
	rotateMaxBackups = 3
	rotateMaxAgeDays = 28
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the server logger: JSON records on stdout, teed into a
// size-rotated file when file is set. The returned closer releases the file.
func NewLogger(level slog.Level, file string) (*slog.Logger, io.Closer) {
	return newLogger(os.Stdout, level, file)
}

func newLogger(out io.Writer, level slog.Level, file string) (*slog.Logger, io.Closer) {
	var closer io.Closer = nopCloser{}
	if path := strings.TrimSpace(file); path != "" {
		rotating := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    rotateMaxSizeMB,
			MaxBackups: rotateMaxBackups,
			MaxAge:     rotateMaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(out, rotating)
		closer = rotating
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closer
}

// NewConsoleLogger builds a human-readable logger for command line tools.
func NewConsoleLogger(w io.Writer, level slog.Level, prefix string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		Level:           charmlog.Level(level),
		Prefix:          prefix,
	})
	return slog.New(handler)
}
