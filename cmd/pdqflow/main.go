package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	promclient "github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aescanero/pdqflow/internal/application/workers"
	"github.com/aescanero/pdqflow/internal/application/workspace"
	"github.com/aescanero/pdqflow/internal/config"
	"github.com/aescanero/pdqflow/internal/store"
	"github.com/aescanero/pdqflow/pkg/adapters/events/memory"
	"github.com/aescanero/pdqflow/pkg/adapters/events/redis"
	"github.com/aescanero/pdqflow/pkg/adapters/metrics/prometheus"
	gitstorage "github.com/aescanero/pdqflow/pkg/adapters/storage/git"
	memstorage "github.com/aescanero/pdqflow/pkg/adapters/storage/memory"
	redisstorage "github.com/aescanero/pdqflow/pkg/adapters/storage/redis"
	"github.com/aescanero/pdqflow/pkg/api/grpc"
	"github.com/aescanero/pdqflow/pkg/api/http"
	"github.com/aescanero/pdqflow/pkg/api/websocket"
	"github.com/aescanero/pdqflow/pkg/plugins/builtin"
	"github.com/aescanero/pdqflow/pkg/ports"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting pdqflow",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	ctx := context.Background()

	var redisClient *goredis.Client
	if cfg.UsesRedis() {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	metricsCollector := prometheus.NewCollector(promclient.DefaultRegisterer)

	// Versioned artifact store
	var backend ports.ArtifactBackend
	switch cfg.Store.Backend {
	case "git":
		gitBackend, err := gitstorage.NewArtifactBackend(cfg.Store.Path, cfg.Store.AuthorEmail, logger)
		if err != nil {
			logger.Fatal("failed to open artifact repository", zap.Error(err))
		}
		backend = gitBackend
	case "redis":
		backend = redisstorage.NewArtifactBackend(redisClient, logger)
	default:
		backend = memstorage.NewArtifactBackend()
	}
	artifactStore := store.New(backend, logger,
		store.WithDelimiter(cfg.DelimiterRune()),
		store.WithMetrics(metricsCollector))

	// Graph persistence
	var repository ports.GraphRepository
	if cfg.Graphs.Backend == "redis" {
		repository = redisstorage.NewGraphStorage(redisClient, cfg.Graphs.TTL, logger)
	} else {
		repository = memstorage.NewGraphStorage()
	}

	// Events: in-process for the API, optionally mirrored to Redis Streams
	eventBus := memory.NewInMemoryEventBus(logger)
	var commandBus ports.EventBus = eventBus
	var streamBus *redis.StreamsEventBus
	if cfg.Events.RedisStreams {
		consumer := cfg.Events.ConsumerName
		if consumer == "" {
			consumer = fmt.Sprintf("pdqflow-%d", os.Getpid())
		}
		streamBus = redis.NewStreamsEventBus(redisClient, cfg.Events.ConsumerGroup, consumer, cfg.Events.StreamMaxLen, logger)
		commandBus = streamBus
	}

	// Initialize application components
	registry := builtin.NewRegistry()

	workspaceMgr := workspace.NewManager(
		registry,
		artifactStore,
		repository,
		eventBus,
		metricsCollector,
		workspace.NewValidator(registry),
		logger,
		cfg.Timeouts.ActionTimeout,
	)
	if streamBus != nil {
		workspaceMgr.SetStream(streamBus)
	}

	workerPool := workers.NewPool(
		cfg.Workers.PoolSize,
		cfg.Workers.QueueSize,
		commandBus,
		workspaceMgr,
		metricsCollector,
		logger,
		cfg.Workers.HealthCheckInterval,
	)

	workerPool.Health().SetStallThreshold(cfg.Workers.StallThreshold)

	// Start worker pool
	if err := workerPool.Start(); err != nil {
		logger.Fatal("failed to start worker pool", zap.Error(err))
	}

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Port:      cfg.HTTPPort,
		Workspace: workspaceMgr,
		Pool:      workerPool,
		Logger:    logger,
	})

	// Add WebSocket handler to HTTP server
	wsHandler := websocket.NewHandler(eventBus, workerPool, logger)
	httpServer.SetupWebSocket(wsHandler)

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Port:   cfg.GRPCPort,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("failed to create gRPC server", zap.Error(err))
	}

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := grpcServer.Start(); err != nil {
			logger.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	logger.Info("pdqflow started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.String("store_backend", cfg.Store.Backend),
		zap.String("graph_backend", cfg.Graphs.Backend),
		zap.Int("worker_pool_size", cfg.Workers.PoolSize))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")
	grpcServer.SetServing(false)

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	if err := workerPool.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker pool shutdown error", zap.Error(err))
	}

	if err := workspaceMgr.Close(shutdownCtx); err != nil {
		logger.Error("workspace shutdown error", zap.Error(err))
	}

	if err := artifactStore.Close(); err != nil {
		logger.Error("artifact store close error", zap.Error(err))
	}

	if err := eventBus.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}

	if streamBus != nil {
		if err := streamBus.Close(); err != nil {
			logger.Error("stream bus close error", zap.Error(err))
		}
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("pdqflow shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
