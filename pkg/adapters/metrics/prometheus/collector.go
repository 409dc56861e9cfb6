package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements ports.MetricsCollector using Prometheus
type Collector struct {
	nodesExecuted   *prometheus.CounterVec
	nodeDuration    *prometheus.HistogramVec
	commits         *prometheus.CounterVec
	runnerActions   *prometheus.CounterVec
	rollbacks       prometheus.Counter
	activeGraphs    prometheus.Gauge
	eventsForwarded *prometheus.CounterVec
	workers         *prometheus.GaugeVec
	queueDepth      prometheus.Gauge
	queueOldest     prometheus.Gauge
}

// NewCollector creates a new Prometheus metrics collector registered on reg.
// Pass prometheus.DefaultRegisterer to expose it through promhttp.Handler.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		nodesExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdq_nodes_executed_total",
				Help: "Total number of node executions by outcome",
			},
			[]string{"node_type", "status"},
		),
		nodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pdq_node_duration_seconds",
				Help:    "Node execution duration in seconds, review pauses excluded",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"node_type"},
		),
		commits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdq_store_commits_total",
				Help: "Total number of artifact store commits",
			},
			[]string{"status"},
		),
		runnerActions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdq_runner_actions_total",
				Help: "Total number of runner actions by result",
			},
			[]string{"action", "result"},
		),
		rollbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pdq_node_rollbacks_total",
				Help: "Total number of nodes rolled back",
			},
		),
		activeGraphs: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pdq_active_graphs",
				Help: "Number of graphs currently open",
			},
		),
		eventsForwarded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdq_events_forwarded_total",
				Help: "Total number of pipeline events forwarded to the event bus",
			},
			[]string{"status"},
		),
		workers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pdq_command_workers",
				Help: "Number of command workers by status",
			},
			[]string{"status"},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pdq_command_queue_depth",
				Help: "Number of commands waiting for a worker",
			},
		),
		queueOldest: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pdq_command_queue_oldest_seconds",
				Help: "Age of the oldest command waiting for a worker",
			},
		),
	}
}

// RecordNodeExecution records a node execution outcome
func (c *Collector) RecordNodeExecution(kind, outcome string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	c.nodesExecuted.WithLabelValues(kind, outcome).Inc()
	if outcome == "completed" {
		c.nodeDuration.WithLabelValues(kind).Observe(duration.Seconds())
	}
}

// RecordCommit records an artifact store commit
func (c *Collector) RecordCommit(status string) {
	c.commits.WithLabelValues(status).Inc()
}

// RecordRunnerAction records a runner action result
func (c *Collector) RecordRunnerAction(action, result string) {
	c.runnerActions.WithLabelValues(action, result).Inc()
}

// RecordRollback records a node rollback
func (c *Collector) RecordRollback() {
	c.rollbacks.Inc()
}

// SetActiveGraphs sets the number of open graphs
func (c *Collector) SetActiveGraphs(count int) {
	c.activeGraphs.Set(float64(count))
}

// RecordEventForwarded records an event handed to the event bus
func (c *Collector) RecordEventForwarded(status string) {
	c.eventsForwarded.WithLabelValues(status).Inc()
}

// SetWorkerPoolStatus records how many command workers are in each state
func (c *Collector) SetWorkerPoolStatus(idle, busy, stopped int) {
	c.workers.WithLabelValues("idle").Set(float64(idle))
	c.workers.WithLabelValues("busy").Set(float64(busy))
	c.workers.WithLabelValues("stopped").Set(float64(stopped))
}

// SetCommandQueue records the command queue depth and the wait of its
// oldest entry
func (c *Collector) SetCommandQueue(depth int, oldest time.Duration) {
	c.queueDepth.Set(float64(depth))
	c.queueOldest.Set(oldest.Seconds())
}
