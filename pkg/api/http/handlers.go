package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aescanero/pdqflow/internal/application/workers"
	"github.com/aescanero/pdqflow/internal/application/workspace"
	"github.com/aescanero/pdqflow/internal/graph"
	"github.com/aescanero/pdqflow/internal/node"
	"github.com/aescanero/pdqflow/internal/runner"
	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/plugin"
)

// ActionRequest represents a runner action request
type ActionRequest struct {
	Action string `json:"action" binding:"required"`
	NodeID string `json:"node_id"`
	// Async queues the action on the worker pool
	Async bool `json:"async"`
}

// ActionAcceptedResponse is returned for queued actions
type ActionAcceptedResponse struct {
	CommandID string `json:"command_id"`
	GraphID   string `json:"graph_id"`
	Status    string `json:"status"`
}

// EdgeRequest represents a connector between two nodes
type EdgeRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	checks := gin.H{"workspace": "ok"}
	status, state := http.StatusOK, "healthy"
	if s.pool != nil {
		if s.pool.Health().IsHealthy() {
			checks["workers"] = "ok"
		} else {
			checks["workers"] = "unhealthy"
			status, state = http.StatusServiceUnavailable, "unhealthy"
		}
	}

	c.JSON(status, gin.H{
		"status":    state,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

// handleListPlugins lists the plugin catalogue
func (s *Server) handleListPlugins(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plugins": s.workspace.Plugins()})
}

// handleWorkers reports the worker pool status
func (s *Server) handleWorkers(c *gin.Context) {
	if s.pool == nil {
		writeError(c, http.StatusServiceUnavailable, "WORKERS_NOT_AVAILABLE", "Worker pool is not configured")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"health":  s.pool.Health().GetStatus(),
		"workers": s.pool.GetStatus(),
	})
}

// handleCreateGraph handles graph creation
func (s *Server) handleCreateGraph(c *gin.Context) {
	var req workspace.CreateGraphRequest
	if !s.bind(c, &req) {
		return
	}

	view, err := s.workspace.CreateGraph(c.Request.Context(), req)
	if err != nil {
		s.fail(c, "failed to create graph", err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// handleListGraphs handles listing graphs
func (s *Server) handleListGraphs(c *gin.Context) {
	ids, err := s.workspace.ListGraphs(c.Request.Context())
	if err != nil {
		s.fail(c, "failed to list graphs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"graphs": ids,
		"total":  len(ids),
	})
}

// handleGetGraph handles getting graph details
func (s *Server) handleGetGraph(c *gin.Context) {
	view, err := s.workspace.GetGraph(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, "failed to get graph", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// handleUpdateGraph handles metadata changes
func (s *Server) handleUpdateGraph(c *gin.Context) {
	var req workspace.UpdateGraphRequest
	if !s.bind(c, &req) {
		return
	}

	view, err := s.workspace.UpdateGraph(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		s.fail(c, "failed to update graph", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// handleDeleteGraph handles graph removal
func (s *Server) handleDeleteGraph(c *gin.Context) {
	if err := s.workspace.DeleteGraph(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, "failed to delete graph", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleAddNode places a plugin in a graph
func (s *Server) handleAddNode(c *gin.Context) {
	var req workspace.AddNodeRequest
	if !s.bind(c, &req) {
		return
	}
	if req.Plugin == "" {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "plugin is required")
		return
	}

	view, err := s.workspace.AddNode(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		s.fail(c, "failed to add node", err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// handleConfigureNode changes node options
func (s *Server) handleConfigureNode(c *gin.Context) {
	var req workspace.ConfigureNodeRequest
	if !s.bind(c, &req) {
		return
	}

	view, err := s.workspace.ConfigureNode(c.Request.Context(), c.Param("id"), c.Param("node"), req)
	if err != nil {
		s.fail(c, "failed to configure node", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// handleRemoveNode drops a node
func (s *Server) handleRemoveNode(c *gin.Context) {
	if err := s.workspace.RemoveNode(c.Request.Context(), c.Param("id"), c.Param("node")); err != nil {
		s.fail(c, "failed to remove node", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleConnect adds a connector
func (s *Server) handleConnect(c *gin.Context) {
	var req EdgeRequest
	if !s.bind(c, &req) {
		return
	}

	if err := s.workspace.Connect(c.Request.Context(), c.Param("id"), req.From, req.To); err != nil {
		s.fail(c, "failed to connect nodes", err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// handleDisconnect removes a connector
func (s *Server) handleDisconnect(c *gin.Context) {
	if err := s.workspace.Disconnect(c.Request.Context(), c.Param("id"), c.Param("from"), c.Param("to")); err != nil {
		s.fail(c, "failed to disconnect nodes", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleAction runs or queues a runner action
func (s *Server) handleAction(c *gin.Context) {
	var req ActionRequest
	if !s.bind(c, &req) {
		return
	}
	graphID := c.Param("id")

	action, err := runner.ParseAction(req.Action)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_ACTION", err.Error())
		return
	}
	if action != runner.ActionStop && req.NodeID == "" {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "node_id is required")
		return
	}

	if req.Async {
		if s.pool == nil {
			writeError(c, http.StatusServiceUnavailable, "WORKERS_NOT_AVAILABLE", "Worker pool is not configured")
			return
		}
		id, err := s.pool.Submit(domain.Command{GraphID: graphID, Action: string(action), NodeID: req.NodeID})
		if err != nil {
			s.fail(c, "failed to queue action", err)
			return
		}
		c.JSON(http.StatusAccepted, ActionAcceptedResponse{CommandID: id, GraphID: graphID, Status: "queued"})
		return
	}

	view, err := s.workspace.Do(c.Request.Context(), graphID, action, req.NodeID)
	if err != nil {
		s.fail(c, "runner action failed", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// handleStop returns the runner to idle
func (s *Server) handleStop(c *gin.Context) {
	view, err := s.workspace.Do(c.Request.Context(), c.Param("id"), runner.ActionStop, "")
	if err != nil {
		s.fail(c, "failed to stop runner", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// handleNodeOutput returns the table a node exposes
func (s *Server) handleNodeOutput(c *gin.Context) {
	table, err := s.workspace.NodeOutput(c.Request.Context(), c.Param("id"), c.Param("node"))
	if err != nil {
		s.fail(c, "failed to get node output", err)
		return
	}
	c.JSON(http.StatusOK, table)
}

// handleNodeHistory lists the artifact commits of a node
func (s *Server) handleNodeHistory(c *gin.Context) {
	history, err := s.workspace.NodeHistory(c.Request.Context(), c.Param("id"), c.Param("node"))
	if err != nil {
		s.fail(c, "failed to get node history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"commits": history})
}

// handleNodeDiff compares two commits of a node's artifact
func (s *Server) handleNodeDiff(c *gin.Context) {
	diff, err := s.workspace.NodeDiff(c.Request.Context(), c.Param("id"), c.Param("node"),
		c.Query("current"), c.Query("previous"))
	if err != nil {
		s.fail(c, "failed to diff node", err)
		return
	}
	c.JSON(http.StatusOK, diff)
}

// bind decodes the JSON body, answering 400 on failure
func (s *Server) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		s.logger.Debug("invalid request", zap.Error(err))
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return false
	}
	return true
}

// fail maps err to a status code and error code
func (s *Server) fail(c *gin.Context, msg string, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.String("path", c.Request.URL.Path), zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	writeError(c, status, code, err.Error())
}

func classify(err error) (int, string) {
	var (
		validationErr *workspace.ValidationError
		optionErr     *plugin.InvalidOptionError
		nodeErr       *node.NodeRunError
	)

	switch {
	case errors.Is(err, runner.ErrRunnerBusy):
		return http.StatusConflict, "RUNNER_BUSY"
	case errors.Is(err, workspace.ErrNodeStarted):
		return http.StatusConflict, "NODE_STARTED"
	case errors.Is(err, workers.ErrQueueFull), errors.Is(err, workers.ErrPoolStopped):
		return http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	case workspace.IsNotFound(err):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, graph.ErrCycle), errors.Is(err, graph.ErrCapacity),
		errors.Is(err, workspace.ErrNotEnoughHistory),
		errors.As(err, &validationErr), errors.As(err, &optionErr):
		return http.StatusUnprocessableEntity, "VALIDATION_FAILED"
	case errors.As(err, &nodeErr):
		return http.StatusInternalServerError, "NODE_FAILED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
