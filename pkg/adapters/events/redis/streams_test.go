package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublish(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	bus := NewStreamsEventBus(client, "", "", 100, zap.NewNop())
	event := &domain.Event{
		ID:        "e1",
		Type:      string(domain.EventNodeCompleted),
		GraphID:   "g1",
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Data:      map[string]interface{}{"node_id": "n1"},
	}
	require.NoError(t, bus.Publish(ctx, "graph.g1", event))

	msgs, err := client.XRange(ctx, "pdq:events:graph.g1", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var got domain.Event
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &got))
	assert.Equal(t, "e1", got.ID)
	assert.Equal(t, "g1", got.GraphID)
	assert.Equal(t, "n1", got.Data["node_id"])
}

func TestProcessMessage(t *testing.T) {
	bus := NewStreamsEventBus(nil, "", "", 0, zap.NewNop())
	var got *domain.Event
	handler := func(ctx context.Context, e *domain.Event) error {
		got = e
		return nil
	}

	ok := bus.processMessage(context.Background(), "s", redis.XMessage{ID: "1-0", Values: map[string]interface{}{"data": `{"id":"e1","type":"node.paused"}`}}, handler)
	assert.True(t, ok)
	require.NotNil(t, got)
	assert.Equal(t, "node.paused", got.Type)

	ok = bus.processMessage(context.Background(), "s", redis.XMessage{ID: "2-0", Values: map[string]interface{}{"other": 1}}, handler)
	assert.False(t, ok)
}
