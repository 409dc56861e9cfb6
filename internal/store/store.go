package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/ports"
	"go.uber.org/zap"
)

// DefaultAuthor signs commits that carry no author.
const DefaultAuthor = "pdqflow"

// Store commits tables to a versioned backend and reads them back.
type Store struct {
	backend   ports.ArtifactBackend
	delimiter rune
	metrics   ports.MetricsCollector
	logger    *zap.Logger
	mu        sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithDelimiter sets the cell delimiter of serialized tables.
func WithDelimiter(d rune) Option {
	return func(s *Store) { s.delimiter = d }
}

// WithMetrics records commit outcomes on m.
func WithMetrics(m ports.MetricsCollector) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates a store over backend.
func New(backend ports.ArtifactBackend, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		backend:   backend,
		delimiter: domain.DefaultDelimiter,
		metrics:   ports.NopMetrics{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Commit serializes table under its name and records it in a new commit.
func (s *Store) Commit(ctx context.Context, table *domain.Table, message, author string) (string, error) {
	if table == nil || table.Name == "" {
		return "", &StoreWriteError{Err: errors.New("table has no name")}
	}
	if author == "" {
		author = DefaultAuthor
	}

	content, err := domain.EncodeCSV(table, s.delimiter)
	if err != nil {
		s.metrics.RecordCommit("failed")
		return "", &StoreWriteError{Artifact: table.Name, Err: err}
	}

	s.mu.Lock()
	commitID, err := s.backend.Commit(ctx, table.Name, content, author, message)
	s.mu.Unlock()
	if err != nil {
		s.metrics.RecordCommit("failed")
		s.logger.Error("commit failed",
			zap.String("artifact", table.Name),
			zap.Error(err))
		return "", &StoreWriteError{Artifact: table.Name, Err: err}
	}

	s.metrics.RecordCommit("committed")
	s.logger.Debug("artifact committed",
		zap.String("artifact", table.Name),
		zap.String("commit_id", commitID),
		zap.Int("rows", table.RowCount()))

	return commitID, nil
}

// FetchContent returns the serialized artifact name as of commitID.
// found is false when the commit exists but has no such entry.
func (s *Store) FetchContent(ctx context.Context, commitID, name string) ([]byte, bool, error) {
	content, err := s.backend.Content(ctx, commitID, name)
	if err != nil {
		if errors.Is(err, ports.ErrArtifactNotFound) {
			return nil, false, nil
		}
		return nil, false, &StoreReadError{CommitID: commitID, Artifact: name, Err: err}
	}
	return content, true, nil
}

// Fetch returns the table stored as name in commitID.
func (s *Store) Fetch(ctx context.Context, commitID, name string) (*domain.Table, bool, error) {
	content, found, err := s.FetchContent(ctx, commitID, name)
	if err != nil || !found {
		return nil, found, err
	}

	table, err := domain.DecodeCSV(name, content, s.delimiter)
	if err != nil {
		return nil, false, &StoreReadError{CommitID: commitID, Artifact: name, Err: err}
	}
	return table, true, nil
}

// History lists the commits that changed name, newest first.
func (s *Store) History(ctx context.Context, name string) ([]domain.CommitInfo, error) {
	commits, err := s.backend.History(ctx, name)
	if err != nil {
		return nil, &StoreReadError{Artifact: name, Err: err}
	}
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
	return commits, nil
}

// DiffCommits compares artifact name between two commits. The table of
// previousCommit is returned first.
func (s *Store) DiffCommits(ctx context.Context, name, currentCommit, previousCommit string) (*domain.Table, *domain.Table, error) {
	current, err := s.requireContent(ctx, currentCommit, name)
	if err != nil {
		return nil, nil, err
	}
	previous, err := s.requireContent(ctx, previousCommit, name)
	if err != nil {
		return nil, nil, err
	}
	return Diff(current, previous, s.delimiter)
}

func (s *Store) requireContent(ctx context.Context, commitID, name string) ([]byte, error) {
	content, found, err := s.FetchContent(ctx, commitID, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &StoreReadError{CommitID: commitID, Artifact: name, Err: ports.ErrArtifactNotFound}
	}
	return content, nil
}

// Close releases the backend.
func (s *Store) Close() error {
	if err := s.backend.Close(); err != nil {
		return fmt.Errorf("failed to close artifact backend: %w", err)
	}
	return nil
}
