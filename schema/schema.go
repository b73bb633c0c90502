// Package schema has configs, models and global variables for all parts of evidence.
package schema

import "time"

// FileRecord is one candidate item: a file on disk, or a message or calendar
// component inside an archive. It is created by the path collector and is
// read-only afterwards.
type FileRecord struct {
	ID        string    `json:"id"`              // Canonical absolute path, or "<archive>#<index>" for archive items
	Path      string    `json:"path"`            // Absolute path of the file or of the containing archive
	Index     int       `json:"index"`           // Ordinal inside the archive, -1 for plain files
	Title     string    `json:"title,omitempty"` // Subject or summary for archive items
	SizeBytes int64     `json:"size_bytes"`      // Size of the file or of the archive item
	ModTime   time.Time `json:"mod_time"`        // Modification time, or the item's own timestamp
	Source    Source    `json:"source"`          // files, mbox or ics
	Ext       string    `json:"ext"`             // Lowercase extension without the dot
}

// IsArchiveItem reports whether the record lives inside an mbox or ics archive.
func (r FileRecord) IsArchiveItem() bool {
	return r.Source == MboxSource || r.Source == ICSSource
}

// CandidateScore is the pass-1 verdict for a record. It is derived purely
// from record attributes and never from content.
type CandidateScore struct {
	Record   FileRecord         `json:"record"`
	Category string             `json:"category"`          // Best guess, or misc
	Guesses  []string           `json:"guesses,omitempty"` // Categories with a positive score, best first
	Scores   map[string]float64 `json:"scores,omitempty"`  // Per-category triage scores
	Score    float64            `json:"score"`             // Score of the best category
	Reasons  []string           `json:"reasons,omitempty"` // Heuristics that fired
	Include  bool               `json:"include"`           // Whether pass 2 should open this record
	Forced   bool               `json:"forced,omitempty"`  // Included because the format cannot be pre-judged
}

// EvidenceHit is one scored match of a record against a single subcategory.
type EvidenceHit struct {
	Record      FileRecord      `json:"record"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	Hits        int             `json:"hits"`
	Score       float64         `json:"score"`
	Snippet     string          `json:"snippet,omitempty"`
	When        string          `json:"when"` // YYYY-MM-DD of the record timestamp
	Effort      *EffortEstimate `json:"effort,omitempty"`
}

// SummaryKey identifies a summary bucket.
type SummaryKey struct {
	Source      Source
	Category    string
	Subcategory string
}

// Key returns the summary bucket for the hit.
func (h EvidenceHit) Key() SummaryKey {
	return SummaryKey{Source: h.Record.Source, Category: h.Category, Subcategory: h.Subcategory}
}

// SummaryRow counts the evidence hits of one (source, category, subcategory) bucket.
type SummaryRow struct {
	Source      Source `json:"source"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Count       int    `json:"count"`
}

// EffortEstimate is a heuristic estimate of authoring time for one creative-work family.
type EffortEstimate struct {
	Family     string       `json:"family"`
	Kind       string       `json:"kind"`
	Versions   int          `json:"versions"`
	Sessions   int          `json:"sessions"`
	Hours      float64      `json:"hours"`
	Confidence Confidence   `json:"confidence"`
	Method     EffortMethod `json:"method"`
	First      time.Time    `json:"first"`
	Last       time.Time    `json:"last"`
	Paths      []string     `json:"paths,omitempty"`
}

// ProgressEvent is one entry of the one-way progress stream.
type ProgressEvent struct {
	Stage     RunState      `json:"stage"`
	Path      string        `json:"path,omitempty"`
	Processed int           `json:"processed"`
	Total     int           `json:"total"`
	Matched   int           `json:"matched"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Warning is a non-fatal problem recorded during a run.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Path    string      `json:"path"`
	Reason  string      `json:"reason,omitempty"`
	Message string      `json:"message"`
}

// RunTotals are the running counters of one invocation.
type RunTotals struct {
	Collected int `json:"collected"`
	Triaged   int `json:"triaged"`
	Selected  int `json:"selected"`
	Extracted int `json:"extracted"`
	Matched   int `json:"matched"`
	Skipped   int `json:"skipped"`
	Dropped   int `json:"dropped_events"`
}

// RunResult is everything the aggregator needs to write outputs.
type RunResult struct {
	RunID       string           `json:"run_id"`
	Mode        RunMode          `json:"mode"`
	State       RunState         `json:"state"`
	Cancelled   bool             `json:"cancelled"`
	RulesPath   string           `json:"rules_path"`
	RulesDigest string           `json:"rules_digest"`
	StartedAt   time.Time        `json:"started_at"`
	Duration    time.Duration    `json:"duration"`
	Candidates  []CandidateScore `json:"-"`
	Hits        []EvidenceHit    `json:"-"`
	Summary     []SummaryRow     `json:"-"`
	Groups      []HitGroup       `json:"-"`
	Folders     []FolderSummary  `json:"-"`
	Efforts     []EffortEstimate `json:"-"`
	Warnings    []Warning        `json:"-"`
	Totals      RunTotals        `json:"totals"`
}

// HitGroup is one Source ▸ Category ▸ Subcategory block of the report,
// ranked by score within the group.
type HitGroup struct {
	Source      Source        `json:"source"`
	Category    string        `json:"category"`
	Subcategory string        `json:"subcategory"`
	Total       int           `json:"total"` // hits in the group before the display limit
	Hits        []EvidenceHit `json:"hits"`
}

// FolderSummary rolls the evidence of one directory up into a single row.
type FolderSummary struct {
	Path        string  `json:"path"`
	Files       int     `json:"files"`        // distinct records with at least one hit
	Hits        int     `json:"hits"`         // evidence hits, one per record and subcategory
	Score       float64 `json:"score"`        // sum of hit scores
	TopCategory string  `json:"top_category"` // category with the largest score sum
}
