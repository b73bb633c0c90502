package schema

import "time"

// SnapshotVersion is the schema version of pass1_categorized.json.
// Bump it whenever a field changes meaning.
const SnapshotVersion = 1

// SnapshotKind tags the only snapshot kind written today.
const SnapshotKind = "pass1"

// SnapshotFile is the checkpoint file name inside the output directory.
const SnapshotFile = "pass1_categorized.json"

// Snapshot is the persisted pass-1 checkpoint shared by two-pass runs.
type Snapshot struct {
	SchemaVersion int              `json:"schema_version"`
	Kind          string           `json:"kind"`
	RunID         string           `json:"run_id"`
	CreatedAt     time.Time        `json:"created_at"`
	RulesDigest   string           `json:"rules_digest"`
	Options       SnapshotOptions  `json:"options"`
	Counts        map[string]int   `json:"counts"`
	Candidates    []CandidateScore `json:"candidates"`
}

// SnapshotOptions records the options pass 1 ran with.
type SnapshotOptions struct {
	Roots      []string  `json:"roots,omitempty"`
	Since      time.Time `json:"modified_since,omitzero"`
	Until      time.Time `json:"modified_until,omitzero"`
	MaxBytes   int64     `json:"max_bytes"`
	Extensions []string  `json:"extensions,omitempty"`
	Threshold  float64   `json:"threshold"`
}
