package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the pdqflow server
type Config struct {
	// Server configuration
	HTTPPort int    `env:"PDQ_HTTP_PORT" envDefault:"8080"`
	GRPCPort int    `env:"PDQ_GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Artifact store configuration
	Store StoreConfig

	// Graph persistence configuration
	Graphs GraphStoreConfig

	// Event configuration
	Events EventsConfig

	// Redis configuration
	Redis RedisConfig

	// Worker configuration
	Workers WorkerConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// StoreConfig selects the versioned artifact backend
type StoreConfig struct {
	Backend     string `env:"STORE_BACKEND" envDefault:"git"`
	Path        string `env:"STORE_PATH" envDefault:"./data/artifacts"`
	AuthorEmail string `env:"STORE_AUTHOR_EMAIL" envDefault:"pdqflow@localhost"`
	Delimiter   string `env:"STORE_DELIMITER" envDefault:","`
}

// GraphStoreConfig selects where graph snapshots are kept
type GraphStoreConfig struct {
	Backend string        `env:"GRAPH_STORE_BACKEND" envDefault:"memory"`
	TTL     time.Duration `env:"GRAPH_TTL" envDefault:"0s"`
}

// EventsConfig controls event forwarding
type EventsConfig struct {
	RedisStreams  bool   `env:"EVENTS_REDIS_STREAMS" envDefault:"false"`
	StreamMaxLen  int64  `env:"EVENTS_STREAM_MAXLEN" envDefault:"10000"`
	ConsumerGroup string `env:"EVENTS_CONSUMER_GROUP" envDefault:"pdqflow"`
	ConsumerName  string `env:"EVENTS_CONSUMER_NAME"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// WorkerConfig holds command worker pool configuration
type WorkerConfig struct {
	PoolSize            int           `env:"WORKER_POOL_SIZE" envDefault:"4"`
	QueueSize           int           `env:"WORKER_QUEUE_SIZE" envDefault:"64"`
	HealthCheckInterval time.Duration `env:"WORKER_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
	// StallThreshold marks the queue unhealthy once a command waits longer
	StallThreshold time.Duration `env:"WORKER_STALL_THRESHOLD" envDefault:"5m"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	ActionTimeout   time.Duration `env:"TIMEOUT_ACTION" envDefault:"300s"` // 5 minutes
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	// Validate store config
	switch c.Store.Backend {
	case "git":
		if c.Store.Path == "" {
			return fmt.Errorf("store path is required for the git backend")
		}
	case "redis", "memory":
	default:
		return fmt.Errorf("unsupported store backend: %s (must be git, redis, or memory)", c.Store.Backend)
	}
	if len([]rune(c.Store.Delimiter)) != 1 {
		return fmt.Errorf("store delimiter must be a single character")
	}

	switch c.Graphs.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("unsupported graph store backend: %s (must be redis or memory)", c.Graphs.Backend)
	}
	if c.Graphs.TTL < 0 {
		return fmt.Errorf("graph TTL cannot be negative")
	}

	// Validate Redis config
	if c.UsesRedis() && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	// Validate worker config
	if c.Workers.PoolSize < 1 {
		return fmt.Errorf("worker pool size must be at least 1")
	}
	if c.Workers.QueueSize < 1 {
		return fmt.Errorf("worker queue size must be at least 1")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// UsesRedis reports whether any component needs a Redis connection
func (c *Config) UsesRedis() bool {
	return c.Store.Backend == "redis" || c.Graphs.Backend == "redis" || c.Events.RedisStreams
}

// DelimiterRune returns the store delimiter as a rune
func (c *Config) DelimiterRune() rune {
	return []rune(c.Store.Delimiter)[0]
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
