// Package storage provides the artifact backends and graph repositories.
//
// Artifact backends (ports.ArtifactBackend):
//   - git: go-git repository on local disk
//   - redis: content-addressed blobs and JSON commits in Redis
//   - memory: in-memory for testing
//
// Graph repositories (ports.GraphRepository):
//   - redis: JSON snapshots with TTL
//   - memory: in-memory for testing
package storage
