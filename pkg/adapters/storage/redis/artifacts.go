package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/pdqflow/pkg/adapters/storage"
	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/ports"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	artifactHeadKey  = "pdq:store:head"
	maxCommitRetries = 5
)

type commitRecord struct {
	domain.CommitInfo
	Tree map[string]string `json:"tree"`
}

// ArtifactBackend implements ports.ArtifactBackend on Redis. Blobs are
// keyed by their sha256, commits are JSON documents and each artifact
// keeps a list of the commits that changed it.
type ArtifactBackend struct {
	client *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewArtifactBackend creates a Redis artifact backend
func NewArtifactBackend(client *redis.Client, logger *zap.Logger) *ArtifactBackend {
	return &ArtifactBackend{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Commit stores content under name in a new commit on top of the current
// head. The head is watched so concurrent writers in other processes
// retry instead of forking history.
func (b *ArtifactBackend) Commit(ctx context.Context, name string, content []byte, author, message string) (string, error) {
	blobID := storage.BlobID(content)

	var commitID string
	txf := func(tx *redis.Tx) error {
		head, err := tx.Get(ctx, artifactHeadKey).Result()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("failed to get head: %w", err)
		}

		tree := make(map[string]string)
		if head != "" {
			parent, err := b.loadCommit(ctx, tx, head)
			if err != nil {
				return err
			}
			for k, v := range parent.Tree {
				tree[k] = v
			}
		}
		previous := tree[name]
		tree[name] = blobID

		ts := b.now().UTC()
		commitID = storage.CommitID(head, author, message, ts, tree)
		rec := commitRecord{
			CommitInfo: domain.CommitInfo{ID: commitID, Parent: head, Author: author, Message: message, Timestamp: ts},
			Tree:       tree,
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal commit: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, getBlobKey(blobID), content, 0)
			pipe.Set(ctx, getCommitKey(commitID), data, 0)
			pipe.Set(ctx, artifactHeadKey, commitID, 0)
			if previous != blobID {
				pipe.RPush(ctx, getLogKey(name), commitID)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxCommitRetries; i++ {
		err := b.client.Watch(ctx, txf, artifactHeadKey)
		if err == nil {
			b.logger.Debug("artifact committed",
				zap.String("artifact", name),
				zap.String("commit_id", commitID))
			return commitID, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return "", fmt.Errorf("failed to commit: %w", err)
		}
		b.logger.Debug("head moved, retrying commit", zap.String("artifact", name))
	}

	return "", fmt.Errorf("failed to commit: head kept moving after %d attempts", maxCommitRetries)
}

// Content returns the entry name as recorded in commitID.
func (b *ArtifactBackend) Content(ctx context.Context, commitID, name string) ([]byte, error) {
	rec, err := b.loadCommit(ctx, b.client, commitID)
	if err != nil {
		return nil, err
	}

	blobID, ok := rec.Tree[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrArtifactNotFound, name)
	}

	data, err := b.client.Get(ctx, getBlobKey(blobID)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to get blob %s: %w", blobID, err)
	}
	return data, nil
}

// History lists the commits that changed name, oldest first.
func (b *ArtifactBackend) History(ctx context.Context, name string) ([]domain.CommitInfo, error) {
	ids, err := b.client.LRange(ctx, getLogKey(name), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	commits := make([]domain.CommitInfo, 0, len(ids))
	for _, id := range ids {
		rec, err := b.loadCommit(ctx, b.client, id)
		if err != nil {
			return nil, err
		}
		commits = append(commits, rec.CommitInfo)
	}
	return commits, nil
}

// Close is a no-op; the client is owned by the caller.
func (b *ArtifactBackend) Close() error {
	return nil
}

func (b *ArtifactBackend) loadCommit(ctx context.Context, c redis.Cmdable, id string) (*commitRecord, error) {
	data, err := c.Get(ctx, getCommitKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", ports.ErrCommitNotFound, id)
		}
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}

	var rec commitRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal commit: %w", err)
	}
	return &rec, nil
}

func getBlobKey(id string) string {
	return fmt.Sprintf("pdq:store:blob:%s", id)
}

func getCommitKey(id string) string {
	return fmt.Sprintf("pdq:store:commit:%s", id)
}

func getLogKey(name string) string {
	return fmt.Sprintf("pdq:store:log:%s", name)
}
