package workers

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// HealthMonitor samples the pool and the command queue
type HealthMonitor struct {
	pool     *Pool
	interval time.Duration
	logger   *zap.Logger

	mu         sync.RWMutex
	stallAfter time.Duration
	running    bool
	stopCh     chan struct{}
}

// HealthStatus is one sample of the pool. The queue is stalled when its
// oldest command has waited longer than the stall threshold.
type HealthStatus struct {
	TotalWorkers        int           `json:"total_workers"`
	IdleWorkers         int           `json:"idle_workers"`
	BusyWorkers         int           `json:"busy_workers"`
	StoppedWorkers      int           `json:"stopped_workers"`
	QueuedCommands      int           `json:"queued_commands"`
	QueueCapacity       int           `json:"queue_capacity"`
	OldestQueued        time.Duration `json:"-"`
	OldestQueuedSeconds float64       `json:"oldest_queued_seconds"`
	CompletedCommands   uint64        `json:"completed_commands"`
	FailedCommands      uint64        `json:"failed_commands"`
	Stalled             bool          `json:"stalled"`
	Healthy             bool          `json:"healthy"`
	Timestamp           time.Time     `json:"timestamp"`
}

// NewHealthMonitor creates a monitor sampling every interval. A zero
// interval disables the background loop; GetStatus still works.
func NewHealthMonitor(pool *Pool, interval time.Duration, logger *zap.Logger) *HealthMonitor {
	return &HealthMonitor{
		pool:     pool,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// SetStallThreshold sets how long a command may wait before the queue
// counts as stalled. Zero disables the check.
func (h *HealthMonitor) SetStallThreshold(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stallAfter = d
}

// Start starts the sampling loop
func (h *HealthMonitor) Start() {
	h.mu.Lock()
	if h.running || h.interval <= 0 {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop stops the sampling loop
func (h *HealthMonitor) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.stopCh)
}

func (h *HealthMonitor) run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.sample()
		}
	}
}

// sample publishes one status to the metrics collector and the log
func (h *HealthMonitor) sample() {
	status := h.GetStatus()

	h.pool.metrics.SetWorkerPoolStatus(status.IdleWorkers, status.BusyWorkers, status.StoppedWorkers)
	h.pool.metrics.SetCommandQueue(status.QueuedCommands, status.OldestQueued)

	fields := []zap.Field{
		zap.Int("idle", status.IdleWorkers),
		zap.Int("busy", status.BusyWorkers),
		zap.Int("stopped", status.StoppedWorkers),
		zap.Int("queued", status.QueuedCommands),
		zap.Duration("oldest_queued", status.OldestQueued),
		zap.Uint64("completed", status.CompletedCommands),
		zap.Uint64("failed", status.FailedCommands),
	}

	switch {
	case status.Stalled:
		h.logger.Warn("command queue is stalled", fields...)
	case !status.Healthy:
		h.logger.Warn("worker pool is unhealthy", fields...)
	case status.QueuedCommands == status.QueueCapacity && status.QueueCapacity > 0:
		h.logger.Warn("command queue is full", fields...)
	default:
		h.logger.Debug("worker pool health check", fields...)
	}
}

// GetStatus returns the current health status
func (h *HealthMonitor) GetStatus() *HealthStatus {
	status := &HealthStatus{Timestamp: time.Now()}

	for _, s := range h.pool.GetStatus() {
		status.TotalWorkers++
		switch s {
		case WorkerStatusIdle:
			status.IdleWorkers++
		case WorkerStatusBusy:
			status.BusyWorkers++
		case WorkerStatusStopped:
			status.StoppedWorkers++
		}
	}

	status.QueuedCommands, status.OldestQueued = h.pool.queueStats()
	status.OldestQueuedSeconds = status.OldestQueued.Seconds()
	status.QueueCapacity = cap(h.pool.queue)
	status.CompletedCommands = h.pool.completed.Load()
	status.FailedCommands = h.pool.failed.Load()

	h.mu.RLock()
	stallAfter := h.stallAfter
	h.mu.RUnlock()
	status.Stalled = stallAfter > 0 && status.OldestQueued > stallAfter

	status.Healthy = status.TotalWorkers > 0 && status.StoppedWorkers == 0 && !status.Stalled
	return status
}

// IsHealthy returns true if the worker pool is healthy
func (h *HealthMonitor) IsHealthy() bool {
	return h.GetStatus().Healthy
}
