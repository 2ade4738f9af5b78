package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced user or meeting does not exist.
	ErrNotFound = errors.New("scheduler: not found")
	// ErrInvalidInput is returned for malformed ranges, durations, zones, or tokens.
	ErrInvalidInput = errors.New("scheduler: invalid input")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
