package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/ports"
)

var (
	// ErrQueueFull is returned by Submit when no slot is free.
	ErrQueueFull = errors.New("command queue is full")
	// ErrPoolStopped is returned by Submit before Start or after Shutdown.
	ErrPoolStopped = errors.New("worker pool is not running")
)

// Executor runs one command to completion.
type Executor interface {
	Execute(ctx context.Context, cmd domain.Command) error
}

// Pool manages a pool of worker goroutines draining a command queue
type Pool struct {
	size     int
	eventBus ports.EventBus
	executor Executor
	metrics  ports.MetricsCollector
	logger   *zap.Logger
	health   *HealthMonitor

	queue   chan domain.Command
	workers []*worker
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	mu      sync.RWMutex
	running bool

	// enqueue time of every command still in the queue
	pendingMu sync.Mutex
	pending   map[string]time.Time

	completed atomic.Uint64
	failed    atomic.Uint64
}

// worker represents a single worker goroutine
type worker struct {
	id      string
	pool    *Pool
	status  WorkerStatus
	mu      sync.RWMutex
	lastJob time.Time
}

// WorkerStatus represents worker status
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusBusy    WorkerStatus = "busy"
	WorkerStatusStopped WorkerStatus = "stopped"
)

// NewPool creates a new worker pool. When eventBus is set, commands
// published on ports.CommandTopic are queued and outcomes are published on
// the graph topic.
func NewPool(
	size int,
	queueSize int,
	eventBus ports.EventBus,
	executor Executor,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	healthCheckInterval time.Duration,
) *Pool {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		size:     size,
		eventBus: eventBus,
		executor: executor,
		metrics:  metrics,
		logger:   logger,
		queue:    make(chan domain.Command, queueSize),
		pending:  make(map[string]time.Time),
		workers:  make([]*worker, size),
		ctx:      ctx,
		cancel:   cancel,
	}

	pool.health = NewHealthMonitor(pool, healthCheckInterval, logger)

	return pool
}

// Health returns the pool's health monitor
func (p *Pool) Health() *HealthMonitor {
	return p.health
}

// Start starts the worker pool
func (p *Pool) Start() error {
	p.logger.Info("starting worker pool", zap.Int("size", p.size))

	if p.eventBus != nil {
		if err := p.eventBus.Subscribe(p.ctx, ports.CommandTopic, p.handleCommandEvent); err != nil {
			return fmt.Errorf("failed to subscribe to commands: %w", err)
		}
	}

	// Create and start workers
	for i := 0; i < p.size; i++ {
		w := &worker{
			id:      fmt.Sprintf("worker-%d", i),
			pool:    p,
			status:  WorkerStatusIdle,
			lastJob: time.Now(),
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(p.ctx)
	}

	p.mu.Lock()
	p.running = true
	p.mu.Unlock()

	// Start health monitor
	p.health.Start()

	p.logger.Info("worker pool started", zap.Int("workers", p.size))
	return nil
}

// Submit queues a command without blocking and returns its id
func (p *Pool) Submit(cmd domain.Command) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running {
		return "", ErrPoolStopped
	}
	if cmd.ID == "" {
		cmd.ID = uuid.New().String()
	}

	p.pendingMu.Lock()
	p.pending[cmd.ID] = time.Now()
	p.pendingMu.Unlock()

	select {
	case p.queue <- cmd:
		p.logger.Debug("command queued",
			zap.String("command_id", cmd.ID),
			zap.String("graph_id", cmd.GraphID),
			zap.String("action", cmd.Action))
		return cmd.ID, nil
	default:
		p.dequeued(cmd.ID)
		return "", ErrQueueFull
	}
}

// dequeued forgets a queued command and returns how long it waited
func (p *Pool) dequeued(id string) time.Duration {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()

	at, ok := p.pending[id]
	if !ok {
		return 0
	}
	delete(p.pending, id)
	return time.Since(at)
}

// queueStats returns the number of waiting commands and the wait of the
// oldest one
func (p *Pool) queueStats() (int, time.Duration) {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()

	var oldest time.Duration
	now := time.Now()
	for _, at := range p.pending {
		if wait := now.Sub(at); wait > oldest {
			oldest = wait
		}
	}
	return len(p.queue), oldest
}

// Shutdown gracefully shuts down the worker pool
func (p *Pool) Shutdown(ctx context.Context) error {
	p.logger.Info("shutting down worker pool")

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	// Stop health monitor
	p.health.Stop()

	// Cancel context to signal workers to stop
	p.cancel()

	// Wait for all workers to finish with timeout
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout")
	}
}

// GetStatus returns the status of all workers
func (p *Pool) GetStatus() map[string]WorkerStatus {
	status := make(map[string]WorkerStatus)
	for _, w := range p.workers {
		if w == nil {
			continue
		}
		w.mu.RLock()
		status[w.id] = w.status
		w.mu.RUnlock()
	}
	return status
}

// handleCommandEvent queues a command received from the event bus
func (p *Pool) handleCommandEvent(ctx context.Context, event *domain.Event) error {
	action, _ := event.Data["action"].(string)
	nodeID, _ := event.Data["node_id"].(string)
	if event.GraphID == "" || action == "" {
		p.logger.Warn("ignoring malformed command event", zap.String("event_id", event.ID))
		return nil
	}

	_, err := p.Submit(domain.Command{
		ID:      event.ID,
		GraphID: event.GraphID,
		Action:  action,
		NodeID:  nodeID,
	})
	return err
}

// run is the main worker loop
func (w *worker) run(ctx context.Context) {
	defer w.pool.wg.Done()

	w.pool.logger.Debug("worker started", zap.String("worker_id", w.id))

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			w.status = WorkerStatusStopped
			w.mu.Unlock()
			w.pool.logger.Debug("worker stopped", zap.String("worker_id", w.id))
			return
		case cmd := <-w.pool.queue:
			w.handleCommand(ctx, cmd)
		}
	}
}

// handleCommand executes a command and publishes its outcome
func (w *worker) handleCommand(ctx context.Context, cmd domain.Command) {
	wait := w.pool.dequeued(cmd.ID)

	w.mu.Lock()
	w.status = WorkerStatusBusy
	w.lastJob = time.Now()
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.status = WorkerStatusIdle
		w.mu.Unlock()
	}()

	w.pool.logger.Info("executing command",
		zap.String("worker_id", w.id),
		zap.String("command_id", cmd.ID),
		zap.String("graph_id", cmd.GraphID),
		zap.String("action", cmd.Action),
		zap.String("node_id", cmd.NodeID),
		zap.Duration("queue_wait", wait))

	startTime := time.Now()
	err := w.pool.executor.Execute(ctx, cmd)
	duration := time.Since(startTime)

	data := map[string]interface{}{
		"command_id": cmd.ID,
		"action":     cmd.Action,
		"node_id":    cmd.NodeID,
	}
	eventType := domain.EventCommandCompleted
	if err != nil {
		w.pool.failed.Add(1)
		eventType = domain.EventCommandFailed
		data["error"] = err.Error()
		w.pool.logger.Warn("command failed",
			zap.String("worker_id", w.id),
			zap.String("command_id", cmd.ID),
			zap.Error(err))
	}
	if err == nil {
		w.pool.completed.Add(1)
	}
	w.publishEvent(ctx, cmd.GraphID, eventType, data)

	w.pool.logger.Info("command completed",
		zap.String("worker_id", w.id),
		zap.String("command_id", cmd.ID),
		zap.Bool("failed", err != nil),
		zap.Duration("duration", duration))
}

// publishEvent publishes an event to the event bus
func (w *worker) publishEvent(ctx context.Context, graphID, eventType string, data map[string]interface{}) {
	if w.pool.eventBus == nil {
		return
	}

	event := &domain.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		GraphID:   graphID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	if err := w.pool.eventBus.Publish(ctx, ports.GraphTopic(graphID), event); err != nil {
		w.pool.logger.Error("failed to publish event",
			zap.String("worker_id", w.id),
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}
