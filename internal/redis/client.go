// Package redis wraps the key-value backend behind a narrow interface.
//
// The checkpoint store only needs GET/SET-with-TTL/DEL/TTL/SCAN plus a
// couple of diagnostic calls, so that is all the interface exposes. The
// production implementation sits on go-redis; tests run against an
// in-process miniredis server through the same implementation.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/wrenlabs/checkpointd/internal/config"
)

// Client is the key-value backend consumed by the checkpoint store.
type Client interface {
	// Get returns the value at key. The second return is false when the
	// key is absent (never existed or expired).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set writes value under key with the given expiration, overwriting
	// any prior value and resetting its expiration clock.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes keys and returns how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// TTL returns the remaining time-to-live for key. The second return
	// is false when the key is absent.
	TTL(ctx context.Context, key string) (time.Duration, bool, error)

	// ScanKeys enumerates all keys matching pattern using incremental
	// SCAN. No ordering is guaranteed.
	ScanKeys(ctx context.Context, pattern string) ([]string, error)

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// DBSize returns the total number of keys in the backend database.
	DBSize(ctx context.Context) (int64, error)

	// Close releases the connection pool.
	Close() error
}

// ClientConfig configures the Redis client.
type ClientConfig struct {
	// Host is the Redis server hostname or IP address. Default: "localhost".
	Host string

	// Port is the Redis port. Default: 6379.
	Port int

	// Password is the shared secret, empty for unauthenticated servers.
	Password config.Secret

	// DB is the logical database index. Default: 0.
	DB int

	// DialTimeout bounds connection establishment. Default: 5s.
	DialTimeout time.Duration

	// ReadTimeout bounds individual read commands. Default: 3s.
	ReadTimeout time.Duration

	// WriteTimeout bounds individual write commands. Default: 3s.
	WriteTimeout time.Duration

	// PoolSize is the maximum number of pooled connections. Default: 10.
	PoolSize int
}

// DefaultClientConfig returns sensible defaults for local development.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Host:         "localhost",
		Port:         6379,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	}
}

// FromConfig builds a ClientConfig from the application configuration.
func FromConfig(cfg config.RedisConfig) *ClientConfig {
	return &ClientConfig{
		Host:         cfg.Host,
		Port:         cfg.Port,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	}
}

// ApplyDefaults sets default values for unset fields.
func (c *ClientConfig) ApplyDefaults() {
	defaults := DefaultClientConfig()

	if c.Host == "" {
		c.Host = defaults.Host
	}
	if c.Port == 0 {
		c.Port = defaults.Port
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaults.DialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaults.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaults.WriteTimeout
	}
	if c.PoolSize == 0 {
		c.PoolSize = defaults.PoolSize
	}
}

// Validate validates the client configuration.
func (c *ClientConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}
	if c.DB < 0 {
		return fmt.Errorf("invalid db index: %d", c.DB)
	}
	return nil
}

// Addr returns the host:port address for the configured server.
func (c *ClientConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
