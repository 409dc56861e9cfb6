package domain

import "time"

// NodeState is the execution state of a node.
type NodeState string

const (
	NodeUnstarted NodeState = "unstarted"
	NodeExecuting NodeState = "executing"
	NodePaused    NodeState = "paused"
	NodeResumed   NodeState = "resumed"
	NodeCompleted NodeState = "completed"
)

// RunnerState is the state of a graph runner.
type RunnerState string

const (
	RunnerIdle     RunnerState = "idle"
	RunnerRunning  RunnerState = "running"
	RunnerStepping RunnerState = "stepping"
)

// NodeEventType names a node lifecycle event published by the runner.
type NodeEventType string

const (
	EventNodeCompleted  NodeEventType = "node.completed"
	EventNodePaused     NodeEventType = "node.paused"
	EventNodeRolledBack NodeEventType = "node.rolled_back"
)

// NodeEvent is published whenever a node completes, pauses or is rolled back.
type NodeEvent struct {
	Type      NodeEventType `json:"type"`
	GraphID   string        `json:"graph_id"`
	NodeID    string        `json:"node_id"`
	Label     string        `json:"label"`
	Summary   string        `json:"summary,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// GraphEventType names a structural change of a graph.
type GraphEventType string

const (
	EventGraphCreated     GraphEventType = "graph.created"
	EventGraphUpdated     GraphEventType = "graph.updated"
	EventNodeAdded        GraphEventType = "node.added"
	EventNodeRemoved      GraphEventType = "node.removed"
	EventConnectorAdded   GraphEventType = "connector.added"
	EventConnectorRemoved GraphEventType = "connector.removed"
)

// GraphEvent is published for every structural mutation of a graph.
type GraphEvent struct {
	Type      GraphEventType `json:"type"`
	GraphID   string         `json:"graph_id"`
	NodeID    string         `json:"node_id,omitempty"`
	TargetID  string         `json:"target_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Event is the envelope carried by event buses and streamed to clients.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	GraphID   string                 `json:"graph_id"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Command asks for a runner action to be executed asynchronously.
type Command struct {
	ID      string `json:"id"`
	GraphID string `json:"graph_id"`
	Action  string `json:"action"`
	NodeID  string `json:"node_id,omitempty"`
}

// Event types reporting the outcome of a Command.
const (
	EventCommandCompleted = "command.completed"
	EventCommandFailed    = "command.failed"
)
