package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/ports"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"
)

const fileExt = ".csv"

// ArtifactBackend implements ports.ArtifactBackend on a git repository.
// Each artifact is a file in the work tree; commit ids are git hashes.
type ArtifactBackend struct {
	path   string
	email  string
	repo   *gogit.Repository
	logger *zap.Logger
}

// NewArtifactBackend opens the repository at path, initializing it when
// it does not exist yet.
func NewArtifactBackend(path, email string, logger *zap.Logger) (*ArtifactBackend, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	repo, err := gogit.PlainInit(path, false)
	if errors.Is(err, gogit.ErrRepositoryAlreadyExists) {
		repo, err = gogit.PlainOpen(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	logger.Info("artifact repository ready", zap.String("path", path))

	return &ArtifactBackend{
		path:   path,
		email:  email,
		repo:   repo,
		logger: logger,
	}, nil
}

// Commit writes content to <name>.csv, stages it and commits.
func (b *ArtifactBackend) Commit(ctx context.Context, name string, content []byte, author, message string) (string, error) {
	file, err := fileName(name)
	if err != nil {
		return "", err
	}

	wt, err := b.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to open worktree: %w", err)
	}
	if err := os.WriteFile(filepath.Join(b.path, file), content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if _, err := wt.Add(file); err != nil {
		return "", fmt.Errorf("failed to stage artifact: %w", err)
	}

	hash, err := wt.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: b.email,
			When:  time.Now(),
		},
		AllowEmptyCommits: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}

	return hash.String(), nil
}

// Content reads <name>.csv from the tree of commitID.
func (b *ArtifactBackend) Content(ctx context.Context, commitID, name string) ([]byte, error) {
	file, err := fileName(name)
	if err != nil {
		return nil, err
	}

	commit, err := b.repo.CommitObject(plumbing.NewHash(commitID))
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ports.ErrCommitNotFound, commitID)
		}
		return nil, fmt.Errorf("failed to resolve commit: %w", err)
	}

	f, err := commit.File(file)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s", ports.ErrArtifactNotFound, name)
		}
		return nil, fmt.Errorf("failed to find artifact: %w", err)
	}

	contents, err := f.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return []byte(contents), nil
}

// History walks the log of <name>.csv and returns it oldest first.
func (b *ArtifactBackend) History(ctx context.Context, name string) ([]domain.CommitInfo, error) {
	file, err := fileName(name)
	if err != nil {
		return nil, err
	}

	if _, err := b.repo.Head(); err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return []domain.CommitInfo{}, nil
		}
		return nil, fmt.Errorf("failed to resolve head: %w", err)
	}

	iter, err := b.repo.Log(&gogit.LogOptions{FileName: &file})
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	var commits []domain.CommitInfo
	err = iter.ForEach(func(c *object.Commit) error {
		info := domain.CommitInfo{
			ID:        c.Hash.String(),
			Author:    c.Author.Name,
			Message:   c.Message,
			Timestamp: c.Author.When,
		}
		if c.NumParents() > 0 {
			info.Parent = c.ParentHashes[0].String()
		}
		commits = append(commits, info)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk log: %w", err)
	}

	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
	if commits == nil {
		commits = []domain.CommitInfo{}
	}
	return commits, nil
}

// Close is a no-op; go-git holds no open handles between calls.
func (b *ArtifactBackend) Close() error {
	return nil
}

func fileName(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	return name + fileExt, nil
}
