// Package session tracks one conversation's in-memory state and persists
// it through the checkpoint store. The tracker is the sole writer for its
// session: turn counts only grow and messages are append-only here, which
// is what lets the store stay a dumb overwrite-wholesale adapter.
package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// idTimeLayout renders cli_<YYYYMMDD>_<HHMMSS>, the convention interactive
// sessions have always used. Any unique token is a valid session id; this
// is just the default.
const idTimeLayout = "20060102_150405"

// NewID returns a session id following the CLI naming convention.
func NewID(now time.Time) string {
	return "cli_" + now.Format(idTimeLayout)
}

// RandomID returns a collision-safe session id for callers that may start
// multiple sessions within the same second.
func RandomID() string {
	return "sess_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}
