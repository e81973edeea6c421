package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, "langgraph:checkpoint", cfg.Store.Namespace)
	assert.Equal(t, 24*time.Hour, cfg.Store.TTL)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestDefault_Validates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate_ServerPort(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server port")

	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestValidate_RedisHost(t *testing.T) {
	cfg := Default()
	cfg.Redis.Host = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis host is required")
}

func TestValidate_Namespace(t *testing.T) {
	cfg := Default()
	cfg.Store.Namespace = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "namespace is required")
}

func TestValidate_TTL(t *testing.T) {
	cfg := Default()
	cfg.Store.TTL = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ttl must be positive")
}

func TestValidate_LoggingFormat(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "xml"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging format")
}

func TestValidate_TelemetryServiceName(t *testing.T) {
	cfg := Default()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.ServiceName = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service name required")
}
