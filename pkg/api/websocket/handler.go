package websocket

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/ports"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// CommandSubmitter queues runner commands, normally the worker pool
type CommandSubmitter interface {
	Submit(cmd domain.Command) (string, error)
}

// CommandMessage is a runner action sent by a client
type CommandMessage struct {
	Action string `json:"action"`
	NodeID string `json:"node_id"`
}

// Handler handles WebSocket connections
type Handler struct {
	eventBus  ports.EventBus
	submitter CommandSubmitter
	logger    *zap.Logger
	buffer    int
}

// NewHandler creates a new WebSocket handler. submitter may be nil, in
// which case client messages are ignored.
func NewHandler(eventBus ports.EventBus, submitter CommandSubmitter, logger *zap.Logger) *Handler {
	return &Handler{
		eventBus:  eventBus,
		submitter: submitter,
		logger:    logger,
		buffer:    64,
	}
}

// HandleGraphStream handles WebSocket streaming for a specific graph
func (h *Handler) HandleGraphStream(c *gin.Context) {
	graphID := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("WebSocket connection established",
		zap.String("graph_id", graphID),
		zap.String("client", c.ClientIP()))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	eventChan := make(chan *domain.Event, h.buffer)
	handler := func(_ context.Context, event *domain.Event) error {
		select {
		case eventChan <- event:
		default:
			h.logger.Warn("event channel full, dropping event",
				zap.String("graph_id", graphID),
				zap.String("event_type", event.Type))
		}
		return nil
	}
	if err := h.eventBus.Subscribe(ctx, ports.GraphTopic(graphID), handler); err != nil {
		h.logger.Error("failed to subscribe to events",
			zap.String("graph_id", graphID),
			zap.Error(err))
		return
	}

	// The reader ends the stream when the client goes away.
	replies := make(chan interface{}, 4)
	go h.readCommands(ctx, cancel, conn, graphID, replies)

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-eventChan:
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("failed to write event", zap.Error(err))
				return
			}
		case reply := <-replies:
			if err := conn.WriteJSON(reply); err != nil {
				h.logger.Debug("failed to write reply", zap.Error(err))
				return
			}
		}
	}
}

func (h *Handler) readCommands(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, graphID string, replies chan<- interface{}) {
	defer cancel()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if h.submitter == nil {
			continue
		}

		var msg CommandMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Action == "" {
			h.reply(ctx, replies, gin.H{"error": "invalid command message"})
			continue
		}

		id, err := h.submitter.Submit(domain.Command{
			GraphID: graphID,
			Action:  msg.Action,
			NodeID:  msg.NodeID,
		})
		if err != nil {
			h.logger.Warn("failed to queue command",
				zap.String("graph_id", graphID),
				zap.String("action", msg.Action),
				zap.Error(err))
			h.reply(ctx, replies, gin.H{"error": err.Error()})
			continue
		}
		h.reply(ctx, replies, gin.H{"command_id": id, "status": "queued"})
	}
}

func (h *Handler) reply(ctx context.Context, replies chan<- interface{}, msg interface{}) {
	select {
	case replies <- msg:
	case <-ctx.Done():
	}
}
