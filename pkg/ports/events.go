package ports

import (
	"context"

	"github.com/aescanero/pdqflow/pkg/domain"
)

// EventHandler consumes one event.
type EventHandler func(ctx context.Context, event *domain.Event) error

// EventBus fans pipeline events out to interested consumers. Delivery is
// best-effort.
type EventBus interface {
	Publish(ctx context.Context, topic string, event *domain.Event) error

	// Subscribe registers handler on topic until ctx is cancelled.
	Subscribe(ctx context.Context, topic string, handler EventHandler) error

	// Unsubscribe drops every handler of topic.
	Unsubscribe(ctx context.Context, topic string) error

	Close() error
}

// CommandTopic carries runner commands submitted for asynchronous execution.
const CommandTopic = "pdq.commands"

// GraphTopic is the topic of the events of one graph.
func GraphTopic(graphID string) string {
	return "graph." + graphID
}
