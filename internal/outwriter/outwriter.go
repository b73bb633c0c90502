// Package outwriter has output and writer logic.
package outwriter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/huangsam/evidence/internal/contract"
	"github.com/huangsam/evidence/internal/parquet"
	"github.com/huangsam/evidence/schema"
)

// Artifact names inside the output directory.
const (
	EvidenceFile        = "evidence.csv"
	SummaryFile         = "summary.csv"
	ReportFile          = "report.html"
	EffortFile          = "effort.json"
	EvidenceParquetFile = "evidence.parquet"
	SummaryParquetFile  = "summary.parquet"
	LockFile            = ".evidence.lock"
)

// ErrOutDirBusy means another run holds the output directory lock.
var ErrOutDirBusy = errors.New("output directory is in use by another run")

// LockOutDir takes the exclusive lock on dir, creating it if needed.
// The returned func releases the lock.
func LockOutDir(dir string) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	fl := flock.New(filepath.Join(dir, LockFile))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", dir, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutDirBusy, dir)
	}
	return func() { _ = fl.Unlock() }, nil
}

// WriteReports writes evidence.csv, summary.csv, report.html and effort.json,
// plus the parquet files when requested. Each artifact replaces the previous one.
func WriteReports(res *schema.RunResult, cfg *contract.Config) error {
	fmtFloat := createFormatters(cfg.Precision)

	if err := writeAtomic(filepath.Join(cfg.OutDir, EvidenceFile), func(w io.Writer) error {
		return writeEvidenceCSV(w, res.Hits, fmtFloat)
	}); err != nil {
		return fmt.Errorf("error writing %s: %w", EvidenceFile, err)
	}
	if err := writeAtomic(filepath.Join(cfg.OutDir, SummaryFile), func(w io.Writer) error {
		return writeSummaryCSV(w, res.Summary)
	}); err != nil {
		return fmt.Errorf("error writing %s: %w", SummaryFile, err)
	}
	if err := writeAtomic(filepath.Join(cfg.OutDir, ReportFile), func(w io.Writer) error {
		return writeReportHTML(w, res, fmtFloat)
	}); err != nil {
		return fmt.Errorf("error writing %s: %w", ReportFile, err)
	}
	if err := WriteEffort(cfg.OutDir, res.Efforts); err != nil {
		return err
	}

	if cfg.ExportParquet {
		if err := writeAtomic(filepath.Join(cfg.OutDir, EvidenceParquetFile), func(w io.Writer) error {
			return parquet.WriteEvidence(w, res.RunID, res.Hits)
		}); err != nil {
			return fmt.Errorf("error writing %s: %w", EvidenceParquetFile, err)
		}
		if err := writeAtomic(filepath.Join(cfg.OutDir, SummaryParquetFile), func(w io.Writer) error {
			return parquet.WriteSummary(w, res.RunID, res.Summary)
		}); err != nil {
			return fmt.Errorf("error writing %s: %w", SummaryParquetFile, err)
		}
	}
	return nil
}
