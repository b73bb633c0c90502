package outwriter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/huangsam/evidence/internal/contract"
	"github.com/huangsam/evidence/schema"
)

// WriteSnapshot persists the pass-1 checkpoint.
func WriteSnapshot(path string, snap *schema.Snapshot) error {
	if err := writeAtomic(path, func(w io.Writer) error {
		return writeJSON(w, snap)
	}); err != nil {
		return fmt.Errorf("error writing snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a checkpoint. A missing file, an unreadable document,
// a different kind or a different schema version is a ConfigError.
func LoadSnapshot(path string) (*schema.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, contract.NewConfigError("snapshot", "%s not found; run triage first", path)
		}
		return nil, &contract.ConfigError{Field: "snapshot", Err: err}
	}

	// Peek at the version before decoding the rest so a future layout is
	// reported as a version mismatch rather than a decode error.
	var head struct {
		SchemaVersion int    `json:"schema_version"`
		Kind          string `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, &contract.ConfigError{Field: "snapshot", Err: fmt.Errorf("invalid JSON in %s: %w", path, err)}
	}
	if head.SchemaVersion != schema.SnapshotVersion {
		return nil, contract.NewConfigError("snapshot", "schema version %d is not supported (want %d); re-run triage",
			head.SchemaVersion, schema.SnapshotVersion)
	}
	if head.Kind != schema.SnapshotKind {
		return nil, contract.NewConfigError("snapshot", "kind %q is not supported (want %q)", head.Kind, schema.SnapshotKind)
	}

	var snap schema.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &contract.ConfigError{Field: "snapshot", Err: fmt.Errorf("invalid snapshot %s: %w", path, err)}
	}
	return &snap, nil
}
