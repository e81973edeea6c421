// Package config provides configuration loading for checkpointd.
//
// Configuration is loaded from a YAML file with environment variable
// overrides. The resulting Config struct is passed explicitly to
// constructors; there is no process-wide mutable configuration state.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete checkpointd configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Redis     RedisConfig     `koanf:"redis"`
	Store     StoreConfig     `koanf:"store"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	Password     Secret        `koanf:"password"`
	DB           int           `koanf:"db"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	PoolSize     int           `koanf:"pool_size"`
}

// StoreConfig holds checkpoint store configuration.
type StoreConfig struct {
	// Namespace is the fixed key prefix isolating checkpointd keys from
	// other applications sharing the backend.
	Namespace string `koanf:"namespace"`

	// TTL is the expiration window applied on every save.
	TTL time.Duration `koanf:"ttl"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry configuration.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
	Endpoint    string `koanf:"endpoint"`
	Insecure    bool   `koanf:"insecure"`
}

// Default namespace and TTL reproduce the key layout the historical
// deployment used, so records written by it remain readable.
const (
	DefaultNamespace = "langgraph:checkpoint"
	DefaultTTL       = 24 * time.Hour
)

// Default returns configuration with production-ready defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            9090,
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Host:         "localhost",
			Port:         6379,
			DB:           0,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
		},
		Store: StoreConfig{
			Namespace: DefaultNamespace,
			TTL:       DefaultTTL,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			ServiceName: "checkpointd",
			Endpoint:    "localhost:4317",
			Insecure:    true,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis port: %d (must be 1-65535)", c.Redis.Port)
	}
	if c.Store.Namespace == "" {
		return errors.New("store namespace is required")
	}
	if c.Store.TTL <= 0 {
		return errors.New("store ttl must be positive")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	if c.Telemetry.Enabled && c.Telemetry.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}
	return nil
}
