package checkpoint

import (
	"fmt"
	"strings"
)

// Key layout: <namespace>:<session_id>:latest. The namespace itself may
// contain the delimiter (the default is "langgraph:checkpoint"), so parsing
// strips the known namespace prefix and the fixed suffix rather than
// splitting blindly.
const (
	keyDelimiter = ":"
	keySuffix    = "latest"
)

// sessionKey builds the storage key for a session's latest record.
func sessionKey(namespace, sessionID string) string {
	return namespace + keyDelimiter + sessionID + keyDelimiter + keySuffix
}

// keyPattern returns the scan pattern matching all latest records under
// the namespace.
func keyPattern(namespace string) string {
	return namespace + keyDelimiter + "*" + keyDelimiter + keySuffix
}

// sessionIDFromKey extracts the session id back out of a listed key.
// Inverse of sessionKey for any valid session id. Keys whose middle
// segment is not itself a valid session id (e.g. a foreign multi-colon
// key caught by the scan pattern) are rejected, so listings never report
// sessions that Load or Delete would refuse to address.
func sessionIDFromKey(namespace, key string) (string, error) {
	prefix := namespace + keyDelimiter
	suffix := keyDelimiter + keySuffix
	if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, suffix) {
		return "", fmt.Errorf("key %q is not in namespace %q", key, namespace)
	}
	id := key[len(prefix) : len(key)-len(suffix)]
	if err := validateSessionID(id); err != nil {
		return "", fmt.Errorf("key %q: %w", key, err)
	}
	return id, nil
}

// validateSessionID rejects session ids that would make the key layout
// ambiguous during prefix scans.
func validateSessionID(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSessionID)
	}
	if strings.Contains(sessionID, keyDelimiter) {
		return fmt.Errorf("%w: %q contains %q", ErrInvalidSessionID, sessionID, keyDelimiter)
	}
	if strings.ContainsAny(sessionID, "*?[]") {
		return fmt.Errorf("%w: %q contains glob metacharacters", ErrInvalidSessionID, sessionID)
	}
	return nil
}
