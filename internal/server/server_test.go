package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wrenlabs/checkpointd/internal/checkpoint"
	"github.com/wrenlabs/checkpointd/internal/redis"
)

func setupTestServer(t *testing.T) (*Server, *checkpoint.Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	host, portStr, ok := strings.Cut(mr.Addr(), ":")
	require.True(t, ok)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	client, err := redis.NewClient(&redis.ClientConfig{Host: host, Port: port}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := checkpoint.NewStore(nil, client, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	server, err := NewServer(store, zap.NewNop(), nil)
	require.NoError(t, err)

	return server, store, mr
}

func saveTestCheckpoint(t *testing.T, store *checkpoint.Store, id string, turns int) {
	t.Helper()
	cp := &checkpoint.Checkpoint{
		TurnCount: turns,
		Messages: []checkpoint.Message{
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "hi there"},
		},
	}
	require.NoError(t, store.Save(context.Background(), id, cp))
}

func TestNewServer(t *testing.T) {
	t.Run("creates server with valid config", func(t *testing.T) {
		server, _, _ := setupTestServer(t)
		assert.NotNil(t, server.echo)
	})

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, _, _ := setupTestServer(t)
		assert.Equal(t, "localhost", server.config.Host)
		assert.Equal(t, 9090, server.config.Port)
	})

	t.Run("returns error when store is nil", func(t *testing.T) {
		_, err := NewServer(nil, zap.NewNop(), nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "store cannot be nil")
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		server, store, _ := setupTestServer(t)
		_ = server
		_, err := NewServer(store, nil, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})
}

func TestHandleHealth(t *testing.T) {
	t.Run("ok when backend reachable", func(t *testing.T) {
		server, _, _ := setupTestServer(t)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "ok", resp.Redis)
	})

	t.Run("degraded when backend down", func(t *testing.T) {
		server, _, mr := setupTestServer(t)
		mr.Close()

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestHandleListSessions(t *testing.T) {
	server, store, _ := setupTestServer(t)
	saveTestCheckpoint(t, store, "cli_20251108_145739", 3)
	saveTestCheckpoint(t, store, "cli_20251108_150102", 1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp SessionListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)

	ids := make([]string, 0, len(resp.Sessions))
	for _, s := range resp.Sessions {
		ids = append(ids, s.SessionID)
		assert.Greater(t, s.RemainingTTL, 0.0)
	}
	assert.ElementsMatch(t, []string{"cli_20251108_145739", "cli_20251108_150102"}, ids)
}

func TestHandleListSessions_Empty(t *testing.T) {
	server, _, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp SessionListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Sessions)
}

func TestHandleGetSession(t *testing.T) {
	t.Run("returns stored checkpoint", func(t *testing.T) {
		server, store, _ := setupTestServer(t)
		saveTestCheckpoint(t, store, "cli_20251108_145739", 2)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/cli_20251108_145739", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp SessionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "cli_20251108_145739", resp.SessionID)
		require.NotNil(t, resp.Checkpoint)
		assert.Equal(t, 2, resp.Checkpoint.TurnCount)
		assert.Len(t, resp.Checkpoint.Messages, 2)
	})

	t.Run("404 for unknown session", func(t *testing.T) {
		server, _, _ := setupTestServer(t)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/nope", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("404 for corrupt record", func(t *testing.T) {
		server, store, mr := setupTestServer(t)
		saveTestCheckpoint(t, store, "cli_20251108_145739", 2)
		require.NoError(t, mr.Set("langgraph:checkpoint:cli_20251108_145739:latest", "\x80\x04\x95not json"))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/cli_20251108_145739", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("503 when backend down", func(t *testing.T) {
		server, _, mr := setupTestServer(t)
		mr.Close()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/cli_20251108_145739", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestHandleSessionTTL(t *testing.T) {
	t.Run("reports remaining ttl", func(t *testing.T) {
		server, store, _ := setupTestServer(t)
		saveTestCheckpoint(t, store, "cli_20251108_145739", 1)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/cli_20251108_145739/ttl", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp TTLResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.InDelta(t, (24 * time.Hour).Seconds(), resp.RemainingTTL, 2.0)
	})

	t.Run("404 for unknown session", func(t *testing.T) {
		server, _, _ := setupTestServer(t)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/nope/ttl", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleDeleteSession(t *testing.T) {
	t.Run("deletes and returns 204", func(t *testing.T) {
		server, store, _ := setupTestServer(t)
		saveTestCheckpoint(t, store, "cli_20251108_145739", 1)

		req := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/cli_20251108_145739", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)

		_, err := store.Load(context.Background(), "cli_20251108_145739")
		assert.ErrorIs(t, err, checkpoint.ErrNotFound)
	})

	t.Run("404 when already gone", func(t *testing.T) {
		server, _, _ := setupTestServer(t)

		req := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/nope", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandlePurgeSessions(t *testing.T) {
	server, store, _ := setupTestServer(t)
	saveTestCheckpoint(t, store, "cli_20251108_145739", 1)
	saveTestCheckpoint(t, store, "cli_20251108_150102", 1)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp PurgeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Deleted)

	sessions, err := store.ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestHandleStats(t *testing.T) {
	server, store, _ := setupTestServer(t)
	saveTestCheckpoint(t, store, "cli_20251108_145739", 1)
	saveTestCheckpoint(t, store, "cli_20251108_150102", 1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.ActiveSessions)
	assert.Equal(t, int64(2), resp.BackendKeys)
	assert.InDelta(t, (24 * time.Hour).Seconds(), resp.AvgRemainingTTL, 2.0)
}

func TestHandleMetrics(t *testing.T) {
	server, _, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
