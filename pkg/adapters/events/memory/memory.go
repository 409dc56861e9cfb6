package memory

import (
	"context"
	"sync"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/ports"
	"go.uber.org/zap"
)

// InMemoryEventBus implements ports.EventBus using in-process handlers.
// Handlers run synchronously on the publisher's goroutine.
type InMemoryEventBus struct {
	subscribers map[string]*Bus[*domain.Event]
	logger      *zap.Logger
	mu          sync.RWMutex
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		subscribers: make(map[string]*Bus[*domain.Event]),
		logger:      logger,
	}
}

// Publish publishes an event to all subscribers of a topic
func (e *InMemoryEventBus) Publish(ctx context.Context, topic string, event *domain.Event) error {
	e.mu.RLock()
	bus, ok := e.subscribers[topic]
	e.mu.RUnlock()

	if ok {
		bus.Publish(event)
	}
	return nil
}

// Subscribe subscribes to events on a specific topic until ctx is done
func (e *InMemoryEventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	e.mu.Lock()
	bus, ok := e.subscribers[topic]
	if !ok {
		bus = NewBus[*domain.Event]()
		e.subscribers[topic] = bus
	}
	e.mu.Unlock()

	sub := bus.Subscribe(func(event *domain.Event) {
		if err := handler(ctx, event); err != nil {
			e.logger.Debug("event handler failed",
				zap.String("topic", topic),
				zap.Error(err))
		}
	})

	// Clean up the subscription on context cancellation
	go func() {
		<-ctx.Done()
		sub.Unsubscribe()
	}()

	return nil
}

// Unsubscribe removes all subscriptions from a topic
func (e *InMemoryEventBus) Unsubscribe(ctx context.Context, topic string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if bus, ok := e.subscribers[topic]; ok {
		bus.Clear()
		delete(e.subscribers, topic)
	}
	return nil
}

// Close closes the event bus and cleans up resources
func (e *InMemoryEventBus) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, bus := range e.subscribers {
		bus.Clear()
	}
	e.subscribers = make(map[string]*Bus[*domain.Event])
	return nil
}
