// Package store is the versioned artifact store every node output is
// committed to.
//
// The store serializes tables to delimited text and hands them to a
// ports.ArtifactBackend (git, redis or memory). Commits are append-only;
// an artifact is addressed by (commit id, artifact name) and its content
// never changes once committed. Writers are serialized by the store.
package store
