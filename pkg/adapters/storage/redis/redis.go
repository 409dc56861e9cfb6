package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/ports"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const graphKeyPrefix = "pdq:graph:"

// GraphStorage implements ports.GraphRepository using Redis
type GraphStorage struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewGraphStorage creates a new Redis graph storage. A zero ttl keeps
// snapshots forever.
func NewGraphStorage(client *redis.Client, ttl time.Duration, logger *zap.Logger) *GraphStorage {
	return &GraphStorage{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Save persists a graph snapshot (ports.GraphRepository interface)
func (s *GraphStorage) Save(ctx context.Context, snapshot *domain.GraphSnapshot) error {
	key := getGraphKey(snapshot.ID)

	// Serialize snapshot
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	// Save to Redis with TTL
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}

	s.logger.Debug("graph saved",
		zap.String("graph_id", snapshot.ID),
		zap.Int("nodes", len(snapshot.Nodes)))

	return nil
}

// Load retrieves a graph snapshot (ports.GraphRepository interface)
func (s *GraphStorage) Load(ctx context.Context, graphID string) (*domain.GraphSnapshot, error) {
	key := getGraphKey(graphID)

	// Get from Redis
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", ports.ErrGraphNotFound, graphID)
		}
		return nil, fmt.Errorf("failed to get graph: %w", err)
	}

	// Deserialize snapshot
	var snapshot domain.GraphSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
	}

	return &snapshot, nil
}

// Delete removes a graph snapshot (ports.GraphRepository interface)
func (s *GraphStorage) Delete(ctx context.Context, graphID string) error {
	key := getGraphKey(graphID)

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete graph: %w", err)
	}

	s.logger.Debug("graph deleted",
		zap.String("graph_id", graphID))

	return nil
}

// List returns all stored graph IDs, sorted (ports.GraphRepository interface)
func (s *GraphStorage) List(ctx context.Context) ([]string, error) {
	pattern := graphKeyPrefix + "*"

	var cursor uint64
	var keys []string

	for {
		var batch []string
		var err error

		batch, cursor, err = s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}

		keys = append(keys, batch...)

		if cursor == 0 {
			break
		}
	}

	// Extract graph IDs from keys
	graphIDs := make([]string, 0, len(keys))
	for _, key := range keys {
		if len(key) > len(graphKeyPrefix) {
			graphIDs = append(graphIDs, key[len(graphKeyPrefix):])
		}
	}
	sort.Strings(graphIDs)

	return graphIDs, nil
}

// getGraphKey returns the Redis key for a graph snapshot
func getGraphKey(graphID string) string {
	return graphKeyPrefix + graphID
}
