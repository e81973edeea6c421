package session

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewID(t *testing.T) {
	at := time.Date(2025, 11, 8, 14, 57, 39, 0, time.UTC)
	assert.Equal(t, "cli_20251108_145739", NewID(at))
}

func TestRandomID(t *testing.T) {
	id := RandomID()
	assert.Regexp(t, regexp.MustCompile(`^sess_[0-9a-f]{32}$`), id)
	assert.NotEqual(t, id, RandomID())
}
