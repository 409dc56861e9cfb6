// Package graph holds the DAG of nodes a user assembles.
//
// A Graph owns its nodes and keeps every edge consistent on both ends.
// Connect refuses self-edges, edges beyond a node's capability limits and
// edges that would close a cycle. Heads and tails are derived by walking
// the edges. Metadata updates persist a snapshot through the configured
// ports.GraphRepository.
package graph
