package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBus(t *testing.T) {
	b := NewBus[string]()
	var got []string
	first := b.Subscribe(func(s string) { got = append(got, "first:"+s) })
	b.Subscribe(func(s string) { got = append(got, "second:"+s) })

	b.Publish("a")
	assert.Equal(t, []string{"first:a", "second:a"}, got)

	first.Unsubscribe()
	first.Unsubscribe()
	b.Publish("b")
	assert.Equal(t, []string{"first:a", "second:a", "second:b"}, got)
	assert.Equal(t, 1, b.Len())
}

func TestBusUnsubscribeDuringPublish(t *testing.T) {
	b := NewBus[int]()
	var calls int
	var sub Subscription
	sub = b.Subscribe(func(int) { calls++; sub.Unsubscribe() })
	b.Subscribe(func(int) { calls++ })

	b.Publish(1)
	b.Publish(2)
	assert.Equal(t, 3, calls)
}

func TestInMemoryEventBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := NewInMemoryEventBus(zap.NewNop())

	var got []*domain.Event
	require.NoError(t, bus.Subscribe(ctx, "pipeline.events", func(ctx context.Context, e *domain.Event) error {
		got = append(got, e)
		return errors.New("ignored")
	}))

	require.NoError(t, bus.Publish(ctx, "pipeline.events", &domain.Event{ID: "1", Type: "node.completed"}))
	require.NoError(t, bus.Publish(ctx, "other", &domain.Event{ID: "2"}))
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)

	require.NoError(t, bus.Unsubscribe(ctx, "pipeline.events"))
	require.NoError(t, bus.Publish(ctx, "pipeline.events", &domain.Event{ID: "3"}))
	assert.Len(t, got, 1)
	assert.NoError(t, bus.Close())
}
