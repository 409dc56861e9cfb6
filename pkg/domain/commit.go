package domain

import "time"

// CommitInfo describes one commit of the artifact store.
type CommitInfo struct {
	ID        string    `json:"id"`
	Parent    string    `json:"parent,omitempty"`
	Author    string    `json:"author"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ArtifactRef addresses a stored artifact.
type ArtifactRef struct {
	CommitID string `json:"commit_id"`
	Name     string `json:"artifact_name"`
}

// IsZero reports whether the reference is unset.
func (r ArtifactRef) IsZero() bool {
	return r.CommitID == "" || r.Name == ""
}
