package node

import (
	"time"

	"github.com/aescanero/pdqflow/pkg/domain"
)

// Stage is one uninterrupted stretch of execution.
type Stage struct {
	Start time.Time
	End   time.Time
}

// Duration of the stage.
func (s Stage) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Stopwatch times the execution stages of a node. A pattern node that
// pauses for review runs in two stages.
type Stopwatch struct {
	now     func() time.Time
	started time.Time
	running bool
	stages  []Stage
}

func newStopwatch(now func() time.Time) *Stopwatch {
	return &Stopwatch{now: now}
}

// StateChanged advances the stopwatch for a node entering state.
func (w *Stopwatch) StateChanged(state domain.NodeState) {
	switch state {
	case domain.NodeExecuting:
		w.stages = nil
		w.started = w.now()
		w.running = true
	case domain.NodeResumed:
		w.started = w.now()
		w.running = true
	case domain.NodePaused, domain.NodeCompleted:
		if w.running {
			w.stages = append(w.stages, Stage{Start: w.started, End: w.now()})
			w.running = false
		}
	case domain.NodeUnstarted:
		w.stages = nil
		w.running = false
	}
}

// Stages returns the completed stages, oldest first.
func (w *Stopwatch) Stages() []Stage {
	return append([]Stage(nil), w.stages...)
}

// Last returns the duration of the most recent stage.
func (w *Stopwatch) Last() time.Duration {
	if len(w.stages) == 0 {
		return 0
	}
	return w.stages[len(w.stages)-1].Duration()
}

// Total returns the summed duration of every stage.
func (w *Stopwatch) Total() time.Duration {
	var d time.Duration
	for _, s := range w.stages {
		d += s.Duration()
	}
	return d
}
