// Package runner drives the execution of a graph.
//
// A Runner is Idle, Running or Stepping. Run and Step launch a node after
// completing its ancestors; the traversal then advances through node state
// callbacks on the caller's goroutine, so an action returns only once the
// graph has completed, paused or reached the step target. Pattern nodes
// that pause leave the runner in its current state until Resume.
//
// Runner state changes and node events (completed, paused, rolled back)
// are published to typed subscriptions.
package runner
