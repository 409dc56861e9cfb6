package node

import "fmt"

// NodeRunError is returned when a plugin fails or a node's output cannot
// be committed.
type NodeRunError struct {
	NodeID string
	Label  string
	Kind   string
	Err    error
}

// Error implements error.
func (e *NodeRunError) Error() string {
	return fmt.Sprintf("node %s (%s) failed: %v", e.Label, e.NodeID, e.Err)
}

// Unwrap returns the underlying error.
func (e *NodeRunError) Unwrap() error {
	return e.Err
}

// ReaderError is returned when a reader's source fails and no previously
// committed output can stand in for it.
type ReaderError struct {
	NodeID string
	Err    error
}

// Error implements error.
func (e *ReaderError) Error() string {
	return fmt.Sprintf("reader %s failed: %v", e.NodeID, e.Err)
}

// Unwrap returns the underlying error.
func (e *ReaderError) Unwrap() error {
	return e.Err
}
