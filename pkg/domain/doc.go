// Package domain holds the value types shared by the engine, the adapters
// and the API: tables, commits, node and graph snapshots, and the events
// emitted while a graph executes.
package domain
