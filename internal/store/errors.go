package store

import "fmt"

// StoreWriteError is returned when a table cannot be committed.
type StoreWriteError struct {
	Artifact string
	Err      error
}

// Error implements error.
func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("failed to commit artifact %s: %v", e.Artifact, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreWriteError) Unwrap() error {
	return e.Err
}

// StoreReadError is returned when a commit cannot be resolved or read.
type StoreReadError struct {
	CommitID string
	Artifact string
	Err      error
}

// Error implements error.
func (e *StoreReadError) Error() string {
	if e.Artifact == "" {
		return fmt.Sprintf("failed to read store: %v", e.Err)
	}
	return fmt.Sprintf("failed to read artifact %s at %s: %v", e.Artifact, e.CommitID, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreReadError) Unwrap() error {
	return e.Err
}
