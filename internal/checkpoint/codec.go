package checkpoint

import (
	"encoding/json"
	"fmt"
	"time"
)

// The record encoding replaces the runtime-specific object serializer the
// original deployment used with a self-describing JSON envelope. The format
// tag and version make corruption detection deterministic: anything that
// does not parse as a version we know is ErrCorruptRecord, never a crash
// and never a silent empty checkpoint.
const (
	recordFormat  = "checkpointd"
	recordVersion = 1
)

// record is the serialized form of a Checkpoint plus store-managed
// metadata.
type record struct {
	Format     string      `json:"format"`
	Version    int         `json:"version"`
	SavedAt    time.Time   `json:"saved_at"`
	Checkpoint *Checkpoint `json:"checkpoint"`
}

// encodeRecord serializes a checkpoint into its storage bytes.
func encodeRecord(cp *Checkpoint, now time.Time) ([]byte, error) {
	rec := record{
		Format:     recordFormat,
		Version:    recordVersion,
		SavedAt:    now,
		Checkpoint: cp,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return data, nil
}

// decodeRecord deserializes storage bytes back into a checkpoint.
// Returns ErrCorruptRecord for anything that is not a well-formed record
// of a known version.
func decodeRecord(data []byte) (*Checkpoint, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if rec.Format != recordFormat {
		return nil, fmt.Errorf("%w: unexpected format %q", ErrCorruptRecord, rec.Format)
	}
	if rec.Version != recordVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptRecord, rec.Version)
	}
	if rec.Checkpoint == nil {
		return nil, fmt.Errorf("%w: missing checkpoint payload", ErrCorruptRecord)
	}
	return rec.Checkpoint, nil
}
