// Package parquet exports evidence and summary rows to Parquet files
// using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"

	"github.com/huangsam/evidence/schema"
	"github.com/parquet-go/parquet-go"
)

// EvidenceRow is one evidence hit.
type EvidenceRow struct {
	// RunID identifies the scan that produced the hit
	RunID string `parquet:"run_id,snappy,dict"`

	// Source is files, mbox or ics
	Source string `parquet:"source,snappy,dict"`

	// Path is the record ID: the file path, or "<archive>#<n>" for archive items
	Path string `parquet:"path,snappy"`

	Category    string  `parquet:"category,snappy,dict"`
	Subcategory string  `parquet:"subcategory,snappy,dict"`
	Hits        int32   `parquet:"hits,snappy"`
	Score       float64 `parquet:"score,snappy"`

	// When is the record date as YYYY-MM-DD
	When string `parquet:"when,snappy"`

	// Snippet is the matched context (nullable)
	Snippet *string `parquet:"snippet,optional,snappy"`

	// EffortHours is the family estimate for creative formats (nullable)
	EffortHours *float64 `parquet:"effort_hours,optional,snappy"`
}

// SummaryRow is one (source, category, subcategory) count.
type SummaryRow struct {
	RunID       string `parquet:"run_id,snappy,dict"`
	Source      string `parquet:"source,snappy,dict"`
	Category    string `parquet:"category,snappy,dict"`
	Subcategory string `parquet:"subcategory,snappy,dict"`
	Count       int32  `parquet:"count,snappy"`
}

// WriteEvidence writes hits as EvidenceRow records.
func WriteEvidence(w io.Writer, runID string, hits []schema.EvidenceHit) error {
	rows := make([]EvidenceRow, 0, len(hits))
	for _, h := range hits {
		row := EvidenceRow{
			RunID:       runID,
			Source:      string(h.Record.Source),
			Path:        h.Record.ID,
			Category:    h.Category,
			Subcategory: h.Subcategory,
			Hits:        int32(h.Hits),
			Score:       h.Score,
			When:        h.When,
		}
		if h.Snippet != "" {
			snippet := h.Snippet
			row.Snippet = &snippet
		}
		if h.Effort != nil {
			hours := h.Effort.Hours
			row.EffortHours = &hours
		}
		rows = append(rows, row)
	}
	return writeRows(w, rows)
}

// WriteSummary writes summary rows as SummaryRow records.
func WriteSummary(w io.Writer, runID string, summary []schema.SummaryRow) error {
	rows := make([]SummaryRow, 0, len(summary))
	for _, r := range summary {
		rows = append(rows, SummaryRow{
			RunID:       runID,
			Source:      string(r.Source),
			Category:    r.Category,
			Subcategory: r.Subcategory,
			Count:       int32(r.Count),
		})
	}
	return writeRows(w, rows)
}

// writeRows writes data with a schema inferred from the struct tags of T.
func writeRows[T any](w io.Writer, data []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}
