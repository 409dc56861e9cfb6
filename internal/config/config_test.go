package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.GetHTTPAddr())
	assert.Equal(t, ":9090", cfg.GetGRPCAddr())
	assert.Equal(t, "git", cfg.Store.Backend)
	assert.Equal(t, ',', cfg.DelimiterRune())
	assert.Equal(t, "memory", cfg.Graphs.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Timeouts.ActionTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Workers.StallThreshold)
	assert.False(t, cfg.UsesRedis())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PDQ_HTTP_PORT", "8181")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("STORE_DELIMITER", ";")
	t.Setenv("GRAPH_TTL", "24h")
	t.Setenv("EVENTS_REDIS_STREAMS", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.HTTPPort)
	assert.Equal(t, ';', cfg.DelimiterRune())
	assert.Equal(t, 24*time.Hour, cfg.Graphs.TTL)
	assert.True(t, cfg.UsesRedis())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		t.Helper()
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		msg    string
	}{
		{"http port", func(c *Config) { c.HTTPPort = 0 }, "invalid HTTP port"},
		{"grpc port", func(c *Config) { c.GRPCPort = 70000 }, "invalid gRPC port"},
		{"store backend", func(c *Config) { c.Store.Backend = "s3" }, "unsupported store backend"},
		{"git path", func(c *Config) { c.Store.Path = "" }, "store path is required"},
		{"delimiter", func(c *Config) { c.Store.Delimiter = "||" }, "single character"},
		{"graph backend", func(c *Config) { c.Graphs.Backend = "git" }, "unsupported graph store backend"},
		{"redis addr", func(c *Config) { c.Graphs.Backend = "redis"; c.Redis.Addr = "" }, "redis address is required"},
		{"workers", func(c *Config) { c.Workers.PoolSize = 0 }, "worker pool size"},
		{"log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.msg)
		})
	}
}
