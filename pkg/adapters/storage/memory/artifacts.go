package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/pdqflow/pkg/adapters/storage"
	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/ports"
)

type commit struct {
	info domain.CommitInfo
	tree map[string]string // artifact name -> blob id
}

// ArtifactBackend implements ports.ArtifactBackend in memory.
// This is for testing purposes only
type ArtifactBackend struct {
	blobs   map[string][]byte
	commits map[string]*commit
	logs    map[string][]string // artifact name -> commit ids, oldest first
	head    string
	now     func() time.Time
	mu      sync.RWMutex
}

// NewArtifactBackend creates an empty in-memory artifact backend.
func NewArtifactBackend() *ArtifactBackend {
	return &ArtifactBackend{
		blobs:   make(map[string][]byte),
		commits: make(map[string]*commit),
		logs:    make(map[string][]string),
		now:     time.Now,
	}
}

// Commit stores content under name in a new commit on top of head.
func (b *ArtifactBackend) Commit(ctx context.Context, name string, content []byte, author, message string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	blobID := storage.BlobID(content)
	b.blobs[blobID] = append([]byte(nil), content...)

	tree := make(map[string]string)
	var previous string
	if parent, ok := b.commits[b.head]; ok {
		for k, v := range parent.tree {
			tree[k] = v
		}
		previous = parent.tree[name]
	}
	tree[name] = blobID

	ts := b.now().UTC()
	id := storage.CommitID(b.head, author, message, ts, tree)
	// Identical commits within one clock tick would collide.
	for _, exists := b.commits[id]; exists; _, exists = b.commits[id] {
		ts = ts.Add(time.Nanosecond)
		id = storage.CommitID(b.head, author, message, ts, tree)
	}

	b.commits[id] = &commit{
		info: domain.CommitInfo{ID: id, Parent: b.head, Author: author, Message: message, Timestamp: ts},
		tree: tree,
	}
	if previous != blobID {
		b.logs[name] = append(b.logs[name], id)
	}
	b.head = id
	return id, nil
}

// Content returns the entry name as recorded in commitID.
func (b *ArtifactBackend) Content(ctx context.Context, commitID, name string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	c, ok := b.commits[commitID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrCommitNotFound, commitID)
	}
	blobID, ok := c.tree[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrArtifactNotFound, name)
	}
	return append([]byte(nil), b.blobs[blobID]...), nil
}

// History lists the commits that changed name, oldest first.
func (b *ArtifactBackend) History(ctx context.Context, name string) ([]domain.CommitInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := b.logs[name]
	out := make([]domain.CommitInfo, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.commits[id].info)
	}
	return out, nil
}

// Close is a no-op.
func (b *ArtifactBackend) Close() error {
	return nil
}
