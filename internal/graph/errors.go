package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrCycle is returned when an edge would close, or a walk meets, a cycle.
	ErrCycle = errors.New("graph contains a cycle")
	// ErrNotFound is returned for nodes that are not part of the graph.
	ErrNotFound = errors.New("node not found")
	// ErrCapacity is returned when a node cannot take another connector.
	ErrCapacity = errors.New("connector limit reached")
)

// StructuralError reports a violated graph invariant found while walking.
type StructuralError struct {
	NodeID string
	Err    error
}

// Error implements error.
func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural error at node %s: %v", e.NodeID, e.Err)
}

// Unwrap returns the underlying error.
func (e *StructuralError) Unwrap() error {
	return e.Err
}
