package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// scanBatchSize is the COUNT hint passed to SCAN.
const scanBatchSize = 100

// GoRedisClient implements Client using go-redis.
type GoRedisClient struct {
	rdb    *goredis.Client
	config *ClientConfig
	logger *zap.Logger
}

var _ Client = (*GoRedisClient)(nil)

// NewClient creates a new Redis client. The underlying pool is shared and
// long-lived; callers must Close it at shutdown.
//
// No connection is attempted here. Use Ping to verify reachability.
func NewClient(cfg *ClientConfig, logger *zap.Logger) (*GoRedisClient, error) {
	if cfg == nil {
		cfg = DefaultClientConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password.Value(),
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	logger.Debug("redis client created",
		zap.String("addr", cfg.Addr()),
		zap.Int("db", cfg.DB),
		zap.Int("pool_size", cfg.PoolSize),
	)

	return &GoRedisClient{
		rdb:    rdb,
		config: cfg,
		logger: logger,
	}, nil
}

// Get returns the value at key, or found=false when the key is absent.
func (c *GoRedisClient) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis GET %s: %w", key, err)
	}
	return val, true, nil
}

// Set writes value under key with the given expiration.
func (c *GoRedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}
	return nil
}

// Del removes keys and returns how many existed.
func (c *GoRedisClient) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis DEL: %w", err)
	}
	return n, nil
}

// TTL returns the remaining time-to-live for key, or found=false when the
// key is absent. Keys without an expiration report a zero duration.
func (c *GoRedisClient) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	d, err := c.rdb.TTL(ctx, key).Result()
	if err != nil {
		return 0, false, fmt.Errorf("redis TTL %s: %w", key, err)
	}
	// go-redis passes the -2 (missing key) and -1 (no expiration)
	// sentinel replies through as raw negative durations.
	switch d {
	case time.Duration(-2):
		return 0, false, nil
	case time.Duration(-1):
		return 0, true, nil
	}
	return d, true, nil
}

// ScanKeys enumerates all keys matching pattern via incremental SCAN.
func (c *GoRedisClient) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, pattern, scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis SCAN %s: %w", pattern, err)
	}
	return keys, nil
}

// Ping checks backend connectivity.
func (c *GoRedisClient) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis PING: %w", err)
	}
	return nil
}

// DBSize returns the total number of keys in the configured database.
func (c *GoRedisClient) DBSize(ctx context.Context) (int64, error) {
	n, err := c.rdb.DBSize(ctx).Result()
	if err != nil {
		return 0, fmt.Errorf("redis DBSIZE: %w", err)
	}
	return n, nil
}

// Close releases the connection pool.
func (c *GoRedisClient) Close() error {
	return c.rdb.Close()
}
