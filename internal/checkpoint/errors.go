package checkpoint

import "errors"

var (
	// ErrNotFound indicates the session's record is absent: it never
	// existed, expired, or was deleted. Recoverable and expected.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrCorruptRecord indicates a record is present but cannot be
	// decoded (truncated or foreign-format bytes). Distinguished from
	// ErrNotFound so callers can tell "never existed" from "unreadable".
	ErrCorruptRecord = errors.New("corrupt checkpoint record")

	// ErrBackendUnavailable indicates the backend could not be reached
	// or rejected the operation. The store does not retry; that decision
	// belongs to the caller.
	ErrBackendUnavailable = errors.New("checkpoint backend unavailable")

	// ErrSerialization indicates the checkpoint contains a value the
	// encoder cannot represent. The write is never attempted.
	ErrSerialization = errors.New("checkpoint serialization failed")

	// ErrInvalidSessionID indicates a session identifier that would
	// produce an ambiguous storage key.
	ErrInvalidSessionID = errors.New("invalid session id")
)
