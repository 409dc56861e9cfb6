package ports

import (
	"context"
	"errors"

	"github.com/aescanero/pdqflow/pkg/domain"
)

var (
	// ErrCommitNotFound is returned when a commit id cannot be resolved.
	ErrCommitNotFound = errors.New("commit not found")
	// ErrArtifactNotFound is returned when a commit has no entry for a name.
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrGraphNotFound is returned when no snapshot exists for a graph id.
	ErrGraphNotFound = errors.New("graph not found")
)

// ArtifactBackend is an append-only, content-addressed commit history.
// Implementations do not need to serialize writers; the caller does.
type ArtifactBackend interface {
	// Commit stages content under name on top of the current head and
	// returns the id of the new commit.
	Commit(ctx context.Context, name string, content []byte, author, message string) (string, error)

	// Content returns the entry name as recorded in commitID. It returns
	// ErrCommitNotFound or ErrArtifactNotFound when either is absent.
	Content(ctx context.Context, commitID, name string) ([]byte, error)

	// History lists the commits that changed name, oldest first.
	History(ctx context.Context, name string) ([]domain.CommitInfo, error)

	// Close releases backend resources.
	Close() error
}

// GraphRepository persists graph snapshots.
type GraphRepository interface {
	Save(ctx context.Context, snapshot *domain.GraphSnapshot) error
	Load(ctx context.Context, graphID string) (*domain.GraphSnapshot, error)
	Delete(ctx context.Context, graphID string) error
	List(ctx context.Context) ([]string, error)
}
