package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aescanero/pdqflow/internal/application/workers"
	"github.com/aescanero/pdqflow/internal/application/workspace"
)

// Server represents the HTTP API server
type Server struct {
	router    *gin.Engine
	server    *http.Server
	workspace *workspace.Manager
	pool      *workers.Pool
	logger    *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Port      int
	Workspace *workspace.Manager
	// Pool runs asynchronous actions; optional
	Pool   *workers.Pool
	Logger *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(cfg.Logger))
	router.Use(corsMiddleware())

	s := &Server{
		router:    router,
		workspace: cfg.Workspace,
		pool:      cfg.Pool,
		logger:    cfg.Logger,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	return s
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// Metrics
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/plugins", s.handleListPlugins)
		v1.GET("/workers", s.handleWorkers)

		// Graph endpoints
		v1.POST("/graphs", s.handleCreateGraph)
		v1.GET("/graphs", s.handleListGraphs)
		v1.GET("/graphs/:id", s.handleGetGraph)
		v1.PATCH("/graphs/:id", s.handleUpdateGraph)
		v1.DELETE("/graphs/:id", s.handleDeleteGraph)

		// Structure
		v1.POST("/graphs/:id/nodes", s.handleAddNode)
		v1.PATCH("/graphs/:id/nodes/:node", s.handleConfigureNode)
		v1.DELETE("/graphs/:id/nodes/:node", s.handleRemoveNode)
		v1.POST("/graphs/:id/edges", s.handleConnect)
		v1.DELETE("/graphs/:id/edges/:from/:to", s.handleDisconnect)

		// Execution
		v1.POST("/graphs/:id/actions", s.handleAction)
		v1.POST("/graphs/:id/stop", s.handleStop)

		// Artifacts
		v1.GET("/graphs/:id/nodes/:node/output", s.handleNodeOutput)
		v1.GET("/graphs/:id/nodes/:node/history", s.handleNodeHistory)
		v1.GET("/graphs/:id/nodes/:node/diff", s.handleNodeDiff)
	}
}

// SetupWebSocket adds WebSocket handler to the server
func (s *Server) SetupWebSocket(handler interface{}) {
	// Type assert to get the handler
	if wsHandler, ok := handler.(interface {
		HandleGraphStream(*gin.Context)
	}); ok {
		s.router.GET("/api/v1/graphs/:id/ws", wsHandler.HandleGraphStream)
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}
