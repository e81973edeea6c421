package redis

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T) (*GoRedisClient, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	host, portStr, ok := strings.Cut(mr.Addr(), ":")
	require.True(t, ok)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	client, err := NewClient(&ClientConfig{Host: host, Port: port}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func TestClientConfig_ApplyDefaults(t *testing.T) {
	cfg := &ClientConfig{}
	cfg.ApplyDefaults()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6379, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
	assert.Equal(t, 10, cfg.PoolSize)
}

func TestClientConfig_Validate(t *testing.T) {
	cfg := DefaultClientConfig()
	require.NoError(t, cfg.Validate())

	cfg.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultClientConfig()
	cfg.DB = -1
	assert.Error(t, cfg.Validate())
}

func TestClientConfig_Addr(t *testing.T) {
	cfg := &ClientConfig{Host: "redis.internal", Port: 6380}
	assert.Equal(t, "redis.internal:6380", cfg.Addr())
}

func TestClient_GetSetDel(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, found, err := client.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, client.Set(ctx, "k1", []byte("v1"), time.Minute))

	val, found, err := client.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v1"), val)

	n, err := client.Del(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = client.Del(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestClient_Del_NoKeys(t *testing.T) {
	client, _ := newTestClient(t)
	n, err := client.Del(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestClient_TTL(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	_, found, err := client.TTL(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, client.Set(ctx, "k", []byte("v"), time.Hour))
	d, found, err := client.TTL(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.InDelta(t, time.Hour, d, float64(time.Second))

	// A key without an expiration reports zero TTL but is still present.
	mr.Set("noexp", "v")
	d, found, err = client.TTL(ctx, "noexp")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, time.Duration(0), d)
}

func TestClient_Expiry(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "k", []byte("v"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, found, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClient_ScanKeys(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	for _, k := range []string{"app:a:latest", "app:b:latest", "other:c"} {
		require.NoError(t, client.Set(ctx, k, []byte("v"), time.Minute))
	}

	keys, err := client.ScanKeys(ctx, "app:*:latest")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app:a:latest", "app:b:latest"}, keys)
}

func TestClient_PingAndDBSize(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))

	require.NoError(t, client.Set(ctx, "k", []byte("v"), time.Minute))
	n, err := client.DBSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestClient_BackendDown(t *testing.T) {
	client, mr := newTestClient(t)
	mr.Close()

	err := client.Ping(context.Background())
	assert.Error(t, err)
}

func TestNewClient_NilConfigUsesDefaults(t *testing.T) {
	client, err := NewClient(nil, nil)
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, "localhost:6379", client.config.Addr())
}
