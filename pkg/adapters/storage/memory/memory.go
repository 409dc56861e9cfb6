package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/ports"
)

// GraphStorage implements ports.GraphRepository using an in-memory map
// This is for testing purposes only
type GraphStorage struct {
	graphs map[string][]byte
	mu     sync.RWMutex
}

// NewGraphStorage creates a new in-memory graph storage
func NewGraphStorage() *GraphStorage {
	return &GraphStorage{
		graphs: make(map[string][]byte),
	}
}

// Save persists a graph snapshot (ports.GraphRepository interface)
func (s *GraphStorage) Save(ctx context.Context, snapshot *domain.GraphSnapshot) error {
	// Stored serialized so callers cannot mutate what was saved
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.graphs[snapshot.ID] = data
	return nil
}

// Load retrieves a graph snapshot (ports.GraphRepository interface)
func (s *GraphStorage) Load(ctx context.Context, graphID string) (*domain.GraphSnapshot, error) {
	s.mu.RLock()
	data, ok := s.graphs[graphID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrGraphNotFound, graphID)
	}

	var snapshot domain.GraphSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
	}
	return &snapshot, nil
}

// Delete removes a graph snapshot (ports.GraphRepository interface)
func (s *GraphStorage) Delete(ctx context.Context, graphID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.graphs, graphID)
	return nil
}

// List returns all stored graph IDs, sorted (ports.GraphRepository interface)
func (s *GraphStorage) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	graphIDs := make([]string, 0, len(s.graphs))
	for id := range s.graphs {
		graphIDs = append(graphIDs, id)
	}
	sort.Strings(graphIDs)

	return graphIDs, nil
}
