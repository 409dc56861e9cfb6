// Package workspace is the application service behind the API.
//
// The manager keeps the open graphs with their runners, serializes the
// commands issued on each graph, persists graphs after every mutation and
// forwards runner and graph events to the event bus under ports.GraphTopic(graphID).
//
// The validator checks persisted snapshots before they are loaded.
package workspace
