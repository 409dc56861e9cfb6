package workspace

import (
	"errors"
	"fmt"
)

var (
	// ErrNoOutput is returned when a node has not produced a table yet.
	ErrNoOutput = errors.New("node has no output")
	// ErrNodeStarted is returned when options change on a node that has run.
	ErrNodeStarted = errors.New("node has already run, step back first")
	// ErrNotEnoughHistory is returned when a diff needs two commits.
	ErrNotEnoughHistory = errors.New("not enough history to diff")
)

// ValidationError reports a malformed graph snapshot or request.
type ValidationError struct {
	Reason string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
