package checkpoint

import (
	"encoding/json"
	"time"
)

// Message is one entry in a session's conversation history.
type Message struct {
	// Role is the speaker: "user", "assistant", or "system".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// Reasoning optionally carries the model's internal reasoning trace
	// for assistant messages.
	Reasoning string `json:"reasoning,omitempty"`
}

// Checkpoint is the persisted snapshot of one conversation's state.
//
// TurnCount is expected to be monotonically non-decreasing across saves of
// the same session, and Messages append-only in conversational order. The
// store does not enforce either; the session tracker does.
type Checkpoint struct {
	// TurnCount is the number of completed conversation turns.
	TurnCount int `json:"turn_count"`

	// Messages is the conversation history in order.
	Messages []Message `json:"messages"`

	// IsComplete is set once the agent marks the session finished.
	IsComplete bool `json:"is_complete"`

	// Analysis is the completion-time analysis payload, opaque to the
	// store. Present only after analysis runs; replaced wholesale on save.
	Analysis json.RawMessage `json:"analysis,omitempty"`

	// UpdatedAt is when this snapshot was last saved.
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionInfo pairs a live session with its remaining time-to-live.
type SessionInfo struct {
	SessionID    string        `json:"session_id"`
	RemainingTTL time.Duration `json:"remaining_ttl"`
}

// Stats aggregates diagnostic information about the store's keyspace.
type Stats struct {
	// ActiveSessions is the number of live "latest" records under the
	// namespace.
	ActiveSessions int `json:"active_sessions"`

	// AvgRemainingTTL is the mean remaining time-to-live across active
	// sessions, zero when there are none.
	AvgRemainingTTL time.Duration `json:"avg_remaining_ttl"`

	// BackendKeys is the total key count in the backend database,
	// including keys owned by other applications.
	BackendKeys int64 `json:"backend_keys"`
}
