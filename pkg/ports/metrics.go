package ports

import "time"

// MetricsCollector records engine metrics.
type MetricsCollector interface {
	RecordNodeExecution(kind, outcome string, duration time.Duration)
	RecordCommit(status string)
	RecordRunnerAction(action, result string)
	RecordRollback()
	SetActiveGraphs(count int)
	RecordEventForwarded(status string)
	SetWorkerPoolStatus(idle, busy, stopped int)
	SetCommandQueue(depth int, oldest time.Duration)
}

// NopMetrics discards everything.
type NopMetrics struct{}

// RecordNodeExecution does nothing.
func (NopMetrics) RecordNodeExecution(string, string, time.Duration) {}

// RecordCommit does nothing.
func (NopMetrics) RecordCommit(string) {}

// RecordRunnerAction does nothing.
func (NopMetrics) RecordRunnerAction(string, string) {}

// RecordRollback does nothing.
func (NopMetrics) RecordRollback() {}

// SetActiveGraphs does nothing.
func (NopMetrics) SetActiveGraphs(int) {}

// RecordEventForwarded does nothing.
func (NopMetrics) RecordEventForwarded(string) {}

// SetWorkerPoolStatus does nothing.
func (NopMetrics) SetWorkerPoolStatus(int, int, int) {}

// SetCommandQueue does nothing.
func (NopMetrics) SetCommandQueue(int, time.Duration) {}
