package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wrenlabs/checkpointd/internal/checkpoint"
)

// DefaultMaxTurns is the turn budget for an interview session.
const DefaultMaxTurns = 12

// ErrCompleted indicates an attempt to append turns to a session already
// marked complete.
var ErrCompleted = errors.New("session already complete")

// Tracker owns the in-memory conversation state for one session.
//
// It enforces the invariants the store deliberately does not: the turn
// count is monotonically non-decreasing and messages are append-only.
// Callers requiring strict ordering of concurrent updates must use one
// tracker per session; two trackers for the same id race at the backend's
// last-write-wins semantics.
type Tracker struct {
	store    *checkpoint.Store
	logger   *zap.Logger
	id       string
	maxTurns int

	mu sync.Mutex
	cp checkpoint.Checkpoint
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithMaxTurns overrides the default turn budget.
func WithMaxTurns(n int) TrackerOption {
	return func(t *Tracker) {
		if n > 0 {
			t.maxTurns = n
		}
	}
}

// NewTracker creates a tracker for sessionID. An empty sessionID gets the
// CLI naming convention applied.
func NewTracker(store *checkpoint.Store, sessionID string, logger *zap.Logger, opts ...TrackerOption) (*Tracker, error) {
	if store == nil {
		return nil, errors.New("checkpoint store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if sessionID == "" {
		sessionID = NewID(time.Now())
	}

	t := &Tracker{
		store:    store,
		logger:   logger.With(zap.String("session_id", sessionID)),
		id:       sessionID,
		maxTurns: DefaultMaxTurns,
		cp: checkpoint.Checkpoint{
			Messages: []checkpoint.Message{},
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// ID returns the session identifier.
func (t *Tracker) ID() string {
	return t.id
}

// AppendTurn records one completed exchange and increments the turn count.
func (t *Tracker) AppendTurn(user, assistant checkpoint.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cp.IsComplete {
		return fmt.Errorf("%w: %s", ErrCompleted, t.id)
	}

	t.cp.Messages = append(t.cp.Messages, user, assistant)
	t.cp.TurnCount++
	t.cp.UpdatedAt = time.Now().UTC()
	return nil
}

// Complete marks the session finished and attaches the analysis payload.
// The analysis is opaque here; it replaces any prior payload wholesale.
func (t *Tracker) Complete(analysis json.RawMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cp.IsComplete = true
	t.cp.Analysis = analysis
	t.cp.UpdatedAt = time.Now().UTC()
}

// Done reports whether the session is complete or out of turn budget.
func (t *Tracker) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cp.IsComplete || t.cp.TurnCount >= t.maxTurns
}

// TurnCount returns the number of completed turns.
func (t *Tracker) TurnCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cp.TurnCount
}

// Snapshot returns a copy of the current checkpoint state.
func (t *Tracker) Snapshot() checkpoint.Checkpoint {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copyLocked()
}

func (t *Tracker) copyLocked() checkpoint.Checkpoint {
	cp := t.cp
	cp.Messages = append([]checkpoint.Message(nil), t.cp.Messages...)
	if t.cp.Analysis != nil {
		cp.Analysis = append(json.RawMessage(nil), t.cp.Analysis...)
	}
	return cp
}

// Flush persists the current state through the store, resetting the
// record's expiration clock.
func (t *Tracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	cp := t.copyLocked()
	t.mu.Unlock()

	if err := t.store.Save(ctx, t.id, &cp); err != nil {
		return err
	}
	t.logger.Debug("flushed session",
		zap.Int("turn_count", cp.TurnCount),
		zap.Bool("is_complete", cp.IsComplete),
	)
	return nil
}

// Resume replaces the in-memory state with the persisted record. Returns
// checkpoint.ErrNotFound when the session expired or was never saved.
func (t *Tracker) Resume(ctx context.Context) error {
	cp, err := t.store.Load(ctx, t.id)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.cp = *cp
	if t.cp.Messages == nil {
		t.cp.Messages = []checkpoint.Message{}
	}
	t.logger.Debug("resumed session", zap.Int("turn_count", t.cp.TurnCount))
	return nil
}
