// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Graph creation, metadata and structure (nodes, edges)
//   - Runner actions (run, step, step back, resume, stop), synchronous
//     or queued on the worker pool
//   - Node output, artifact history and diffs
//   - The plugin catalogue
//   - Health checks and Prometheus metrics
//
// Errors are returned as ErrorResponse with a stable code.
package http
