package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wrenlabs/checkpointd/internal/redis"
)

const instrumentationName = "github.com/wrenlabs/checkpointd/internal/checkpoint"

// StoreConfig configures the checkpoint store.
type StoreConfig struct {
	// Namespace is the fixed key prefix. Default: "langgraph:checkpoint".
	Namespace string

	// TTL is the expiration window applied on every save. Default: 24h.
	TTL time.Duration
}

// DefaultStoreConfig returns the historical defaults.
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		Namespace: "langgraph:checkpoint",
		TTL:       24 * time.Hour,
	}
}

// Store provides durable, namespaced, self-expiring persistence of one
// Checkpoint per session identifier.
//
// Every save writes the full record with a fresh TTL, so an active
// conversation never expires mid-session as long as turns continue within
// the window, and an abandoned one self-cleans without a reaper. Backend
// failures are surfaced immediately and never retried here; expiration is
// enforced entirely by the backend.
type Store struct {
	config *StoreConfig
	client redis.Client
	logger *zap.Logger

	tracer        trace.Tracer
	meter         metric.Meter
	saveCounter   metric.Int64Counter
	loadCounter   metric.Int64Counter
	deleteCounter metric.Int64Counter

	mu     sync.RWMutex
	closed bool
}

// NewStore creates a checkpoint store on the given backend client.
func NewStore(cfg *StoreConfig, client redis.Client, logger *zap.Logger) (*Store, error) {
	if cfg == nil {
		cfg = DefaultStoreConfig()
	}
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Namespace == "" {
		return nil, errors.New("namespace is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("ttl must be positive")
	}

	s := &Store{
		config: cfg,
		client: client,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}

	s.initMetrics()

	return s, nil
}

func (s *Store) initMetrics() {
	var err error

	s.saveCounter, err = s.meter.Int64Counter(
		"checkpointd.store.saves_total",
		metric.WithDescription("Total number of checkpoint saves"),
		metric.WithUnit("{save}"),
	)
	if err != nil {
		s.logger.Warn("failed to create save counter", zap.Error(err))
	}

	s.loadCounter, err = s.meter.Int64Counter(
		"checkpointd.store.loads_total",
		metric.WithDescription("Total number of checkpoint loads by result"),
		metric.WithUnit("{load}"),
	)
	if err != nil {
		s.logger.Warn("failed to create load counter", zap.Error(err))
	}

	s.deleteCounter, err = s.meter.Int64Counter(
		"checkpointd.store.deletes_total",
		metric.WithDescription("Total number of checkpoint deletes"),
		metric.WithUnit("{delete}"),
	)
	if err != nil {
		s.logger.Warn("failed to create delete counter", zap.Error(err))
	}
}

// TTL returns the configured expiration window.
func (s *Store) TTL() time.Duration {
	return s.config.TTL
}

// Namespace returns the configured key prefix.
func (s *Store) Namespace() string {
	return s.config.Namespace
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New("store is closed")
	}
	return nil
}

// Save serializes the checkpoint and writes it under the session's key
// with the configured TTL, overwriting any prior record and resetting its
// expiration clock. Concurrent saves for the same session race at the
// backend's last-write-wins semantics.
func (s *Store) Save(ctx context.Context, sessionID string, cp *Checkpoint) error {
	ctx, span := s.tracer.Start(ctx, "checkpoint.save")
	defer span.End()

	span.SetAttributes(
		attribute.String("session_id", sessionID),
		attribute.Int("turn_count", cp.TurnCount),
		attribute.Bool("is_complete", cp.IsComplete),
	)

	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := validateSessionID(sessionID); err != nil {
		span.RecordError(err)
		return err
	}

	data, err := encodeRecord(cp, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	key := sessionKey(s.config.Namespace, sessionID)
	if err := s.client.Set(ctx, key, data, s.config.TTL); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if s.saveCounter != nil {
		s.saveCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.Bool("is_complete", cp.IsComplete),
		))
	}

	s.logger.Info("saved checkpoint",
		zap.String("session_id", sessionID),
		zap.Int("turn_count", cp.TurnCount),
		zap.Bool("is_complete", cp.IsComplete),
		zap.Int("bytes", len(data)),
	)

	return nil
}

// Load reads and deserializes the session's latest record. Returns
// ErrNotFound when the key is absent (never existed or expired) and
// ErrCorruptRecord when a present value cannot be decoded.
func (s *Store) Load(ctx context.Context, sessionID string) (*Checkpoint, error) {
	ctx, span := s.tracer.Start(ctx, "checkpoint.load")
	defer span.End()

	span.SetAttributes(attribute.String("session_id", sessionID))

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := validateSessionID(sessionID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	key := sessionKey(s.config.Namespace, sessionID)
	data, found, err := s.client.Get(ctx, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if !found {
		s.countLoad(ctx, "miss")
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}

	cp, err := decodeRecord(data)
	if err != nil {
		// Loud diagnostic: corruption must never be silently treated as
		// a missing session.
		s.logger.Error("corrupt checkpoint record",
			zap.String("session_id", sessionID),
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		s.countLoad(ctx, "corrupt")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.countLoad(ctx, "hit")
	return cp, nil
}

func (s *Store) countLoad(ctx context.Context, result string) {
	if s.loadCounter != nil {
		s.loadCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("result", result),
		))
	}
}

// Delete removes the session's record. Idempotent: deleting an absent
// session reports ErrNotFound rather than failing.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	ctx, span := s.tracer.Start(ctx, "checkpoint.delete")
	defer span.End()

	span.SetAttributes(attribute.String("session_id", sessionID))

	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := validateSessionID(sessionID); err != nil {
		span.RecordError(err)
		return err
	}

	key := sessionKey(s.config.Namespace, sessionID)
	n, err := s.client.Del(ctx, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if s.deleteCounter != nil {
		s.deleteCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.Bool("existed", n > 0),
		))
	}

	if n == 0 {
		return fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}

	s.logger.Info("deleted checkpoint", zap.String("session_id", sessionID))
	return nil
}

// ListActive enumerates all live sessions under the namespace, pairing
// each with its remaining time-to-live. Intended for diagnostics only: the
// listing is eventually consistent with concurrent writes and deletes, and
// no ordering is guaranteed.
func (s *Store) ListActive(ctx context.Context) ([]SessionInfo, error) {
	ctx, span := s.tracer.Start(ctx, "checkpoint.list_active")
	defer span.End()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	keys, err := s.client.ScanKeys(ctx, keyPattern(s.config.Namespace))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	sessions := make([]SessionInfo, 0, len(keys))
	for _, key := range keys {
		sessionID, err := sessionIDFromKey(s.config.Namespace, key)
		if err != nil {
			s.logger.Warn("skipping unparseable key", zap.String("key", key), zap.Error(err))
			continue
		}

		ttl, found, err := s.client.TTL(ctx, key)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		if !found {
			// Expired between scan and TTL query.
			continue
		}

		sessions = append(sessions, SessionInfo{
			SessionID:    sessionID,
			RemainingTTL: ttl,
		})
	}

	span.SetAttributes(attribute.Int("session_count", len(sessions)))
	return sessions, nil
}

// RemainingTTL is a point query for a single session's time-to-live.
func (s *Store) RemainingTTL(ctx context.Context, sessionID string) (time.Duration, error) {
	ctx, span := s.tracer.Start(ctx, "checkpoint.remaining_ttl")
	defer span.End()

	span.SetAttributes(attribute.String("session_id", sessionID))

	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if err := validateSessionID(sessionID); err != nil {
		span.RecordError(err)
		return 0, err
	}

	key := sessionKey(s.config.Namespace, sessionID)
	ttl, found, err := s.client.TTL(ctx, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if !found {
		return 0, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	return ttl, nil
}

// PurgeAll deletes every session record under the namespace and returns
// how many were removed.
func (s *Store) PurgeAll(ctx context.Context) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "checkpoint.purge_all")
	defer span.End()

	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	keys, err := s.client.ScanKeys(ctx, keyPattern(s.config.Namespace))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := s.client.Del(ctx, keys...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	s.logger.Info("purged checkpoints", zap.Int64("deleted", n))
	span.SetAttributes(attribute.Int64("deleted", n))
	return n, nil
}

// Ping checks backend connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.client.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Stats reports aggregate keyspace diagnostics.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	ctx, span := s.tracer.Start(ctx, "checkpoint.stats")
	defer span.End()

	sessions, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	dbSize, err := s.client.DBSize(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	stats := &Stats{
		ActiveSessions: len(sessions),
		BackendKeys:    dbSize,
	}
	if len(sessions) > 0 {
		var total time.Duration
		for _, info := range sessions {
			total += info.RemainingTTL
		}
		stats.AvgRemainingTTL = total / time.Duration(len(sessions))
	}

	return stats, nil
}

// Close marks the store closed. The backend client is owned by the caller
// and closed separately.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return nil
}
