package runner

import (
	"errors"
	"fmt"

	"github.com/aescanero/pdqflow/pkg/domain"
)

// ErrRunnerBusy matches every RunnerBusyError.
var ErrRunnerBusy = errors.New("runner is busy")

// RunnerBusyError is returned when Run or Step is requested while the
// runner is not idle.
type RunnerBusyError struct {
	Action Action
	State  domain.RunnerState
}

// Error implements error.
func (e *RunnerBusyError) Error() string {
	return fmt.Sprintf("cannot %s: runner is %s", e.Action, e.State)
}

// Is matches ErrRunnerBusy.
func (e *RunnerBusyError) Is(target error) bool {
	return target == ErrRunnerBusy
}

// RunnerError wraps any failure raised while performing an action.
type RunnerError struct {
	Action Action
	NodeID string
	Err    error
}

// Error implements error.
func (e *RunnerError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("failed to %s: %v", e.Action, e.Err)
	}
	return fmt.Sprintf("failed to %s node %s: %v", e.Action, e.NodeID, e.Err)
}

// Unwrap returns the underlying error.
func (e *RunnerError) Unwrap() error {
	return e.Err
}
