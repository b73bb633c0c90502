package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/evidence/core/algo"
	"github.com/huangsam/evidence/internal/contract"
	"github.com/huangsam/evidence/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *contract.Config {
	t.Helper()
	return &contract.Config{
		OutDir:       t.TempDir(),
		SnapshotPath: "pass1_categorized.json",
		ResultLimit:  10,
		Precision:    1,
		Width:        120,
		Workers:      2,
	}
}

func fileHit(path, cat, sub string, hits int, score float64) schema.EvidenceHit {
	return schema.EvidenceHit{
		Record:      schema.FileRecord{ID: path, Path: path, Index: -1, Source: schema.FilesSource},
		Category:    cat,
		Subcategory: sub,
		Hits:        hits,
		Score:       score,
		When:        "2024-05-01",
	}
}

func sampleResult() *schema.RunResult {
	hits := []schema.EvidenceHit{
		fileHit("/docs/teaching/syllabus.txt", "teaching", "syllabus", 2, 2),
		fileHit("/docs/research/paper.pdf", "research", "publication", 3, 6),
		{
			Record:      schema.FileRecord{ID: "/mail/inbox.mbox#0", Path: "/mail/inbox.mbox", Index: 0, Title: "Review request", Source: schema.MboxSource},
			Category:    "service",
			Subcategory: "review",
			Hits:        1,
			Score:       3,
			Snippet:     "[Header: me@uni.edu] please review",
			When:        "2024-04-02",
		},
	}
	return &schema.RunResult{
		RunID:       "run-42",
		Mode:        schema.FullMode,
		State:       schema.DoneState,
		RulesPath:   "rules.yml",
		RulesDigest: "abc123",
		StartedAt:   time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		Duration:    1500 * time.Millisecond,
		Hits:        hits,
		Summary: []schema.SummaryRow{
			{Source: schema.FilesSource, Category: "research", Subcategory: "publication", Count: 1},
			{Source: schema.FilesSource, Category: "teaching", Subcategory: "syllabus", Count: 1},
			{Source: schema.MboxSource, Category: "service", Subcategory: "review", Count: 1},
		},
		Groups: algo.RankWithinGroups(hits, 100),
		Folders: []schema.FolderSummary{
			{Path: "/docs/research", Files: 1, Hits: 1, Score: 6, TopCategory: "research"},
		},
		Warnings: []schema.Warning{
			{Kind: schema.ExtractionWarning, Path: "/docs/locked.pdf", Reason: "encrypted", Message: "pdf is encrypted"},
		},
		Totals: schema.RunTotals{Collected: 5, Triaged: 5, Selected: 4, Extracted: 3, Matched: 3, Skipped: 1},
	}
}

func TestWriteReports(t *testing.T) {
	cfg := testConfig(t)
	res := sampleResult()
	require.NoError(t, WriteReports(res, cfg))

	for _, name := range []string{EvidenceFile, SummaryFile, ReportFile, EffortFile} {
		assert.FileExists(t, filepath.Join(cfg.OutDir, name))
	}
	assert.NoFileExists(t, filepath.Join(cfg.OutDir, EvidenceParquetFile))

	t.Run("evidence csv", func(t *testing.T) {
		f, err := os.Open(filepath.Join(cfg.OutDir, EvidenceFile))
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		rows, err := csv.NewReader(f).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, evidenceHeader, rows[0])
		assert.Equal(t, []string{"files", "/docs/teaching/syllabus.txt", "teaching", "syllabus", "2", "2", "2024-05-01"}, rows[1])
		assert.Equal(t, "/mail/inbox.mbox#0", rows[3][1])
	})

	t.Run("summary counts match evidence rows", func(t *testing.T) {
		f, err := os.Open(filepath.Join(cfg.OutDir, SummaryFile))
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		rows, err := csv.NewReader(f).ReadAll()
		require.NoError(t, err)
		assert.Equal(t, summaryHeader, rows[0])
		total := 0
		for _, r := range rows[1:] {
			var n int
			_, err := fmt.Sscanf(r[3], "%d", &n)
			require.NoError(t, err)
			total += n
		}
		assert.Equal(t, len(res.Hits), total)
	})

	t.Run("html report", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(cfg.OutDir, ReportFile))
		require.NoError(t, err)
		html := string(data)
		assert.Contains(t, html, "Academic Evidence Report")
		assert.Contains(t, html, `href="file:///docs/research/paper.pdf"`)
		assert.Contains(t, html, "mbox ▸ service ▸ review")
		assert.Contains(t, html, "Review request")
		assert.Contains(t, html, "Warnings (1)")
		assert.Contains(t, html, "encrypted")
		assert.NotContains(t, html, "partial")
	})

	t.Run("parquet export", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.ExportParquet = true
		require.NoError(t, WriteReports(res, cfg))
		assert.FileExists(t, filepath.Join(cfg.OutDir, EvidenceParquetFile))
		assert.FileExists(t, filepath.Join(cfg.OutDir, SummaryParquetFile))
	})
}

func TestWriteReportHTML_Limits(t *testing.T) {
	var hits []schema.EvidenceHit
	for i := range 120 {
		hits = append(hits, fileHit(fmt.Sprintf("/docs/f%03d.txt", i), "teaching", "syllabus", 1, float64(i)))
	}
	res := &schema.RunResult{RunID: "r", Hits: hits, Groups: algo.RankWithinGroups(hits, 100), Cancelled: true}

	var buf bytes.Buffer
	require.NoError(t, writeReportHTML(&buf, res, createFormatters(1)))
	html := buf.String()
	assert.Contains(t, html, "Showing 100 of 120")
	assert.Contains(t, html, "partial")
	assert.Contains(t, html, "/docs/f119.txt", "highest score is shown")
	assert.NotContains(t, html, "/docs/f000.txt", "lowest scores are trimmed")
}

func TestWriteEffort(t *testing.T) {
	dir := t.TempDir()
	estimates := []schema.EffortEstimate{
		{Family: "/docs/thesis", Kind: "doc", Versions: 3, Sessions: 2, Hours: 0.5, Confidence: schema.MediumConfidence, Method: schema.SessionMethod},
		{Family: "/docs/score", Kind: "finale", Versions: 1, Sessions: 1, Hours: 6, Confidence: schema.LowConfidence, Method: schema.FlatMethod},
	}
	require.NoError(t, WriteEffort(dir, estimates))

	data, err := os.ReadFile(filepath.Join(dir, EffortFile))
	require.NoError(t, err)
	var doc effortDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, 2, doc.Families)
	assert.InDelta(t, 6.5, doc.TotalHours, 0.001)
	assert.Len(t, doc.Estimates, 2)

	require.NoError(t, WriteEffort(dir, nil))
	data, err = os.ReadFile(filepath.Join(dir, EffortFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"estimates": []`)
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), schema.SnapshotFile)
	snap := &schema.Snapshot{
		SchemaVersion: schema.SnapshotVersion,
		Kind:          schema.SnapshotKind,
		RunID:         "run-1",
		CreatedAt:     time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		RulesDigest:   "digest",
		Options:       schema.SnapshotOptions{Roots: []string{"/docs"}, MaxBytes: 100, Threshold: 1},
		Counts:        map[string]int{"teaching": 1},
		Candidates: []schema.CandidateScore{
			{Record: schema.FileRecord{ID: "/docs/a.txt", Path: "/docs/a.txt", Index: -1, Source: schema.FilesSource, Ext: "txt"}, Category: "teaching", Score: 3, Include: true},
		},
	}
	require.NoError(t, WriteSnapshot(path, snap))

	loaded, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, snap.RunID, loaded.RunID)
	assert.Equal(t, snap.Counts, loaded.Counts)
	require.Len(t, loaded.Candidates, 1)
	assert.Equal(t, snap.Candidates[0].Record.ID, loaded.Candidates[0].Record.ID)
	assert.True(t, loaded.Candidates[0].Include)
}

func TestLoadSnapshot_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}

	tests := []struct {
		name    string
		path    string
		message string
	}{
		{name: "missing", path: filepath.Join(dir, "nope.json"), message: "run triage first"},
		{name: "invalid json", path: write("bad.json", "{"), message: "invalid JSON"},
		{name: "future version", path: write("v9.json", `{"schema_version": 9, "kind": "pass1"}`), message: "schema version 9"},
		{name: "wrong kind", path: write("kind.json", `{"schema_version": 1, "kind": "pass2"}`), message: "kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSnapshot(tt.path)
			require.Error(t, err)
			assert.True(t, contract.IsConfigError(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestPrintRunResults(t *testing.T) {
	cfg := testConfig(t)
	var buf bytes.Buffer
	require.NoError(t, PrintRunResults(&buf, sampleResult(), cfg))
	out := buf.String()
	assert.Contains(t, out, "syllabus")
	assert.Contains(t, out, "/docs/research")
	assert.Contains(t, out, "Run run-42 complete: 3 hits")
	assert.Contains(t, out, "1 warnings")
	assert.Contains(t, out, cfg.OutDir)

	cfg.Quiet = true
	buf.Reset()
	require.NoError(t, PrintRunResults(&buf, sampleResult(), cfg))
	assert.Empty(t, buf.String())
}

func TestPrintTriageResults(t *testing.T) {
	cfg := testConfig(t)
	res := &schema.RunResult{
		Candidates: []schema.CandidateScore{
			{Record: schema.FileRecord{ID: "/docs/syllabus.txt"}, Category: "teaching", Score: 5, Include: true},
			{Record: schema.FileRecord{ID: "/docs/score.mus"}, Category: "misc", Score: 0, Include: true, Forced: true},
			{Record: schema.FileRecord{ID: "/docs/tiny.txt"}, Category: "misc", Score: -1},
		},
		Totals: schema.RunTotals{Selected: 2},
	}
	var buf bytes.Buffer
	require.NoError(t, PrintTriageResults(&buf, res, cfg))
	out := buf.String()
	assert.Contains(t, out, "forced")
	assert.Contains(t, out, "Triaged 3 records")
	assert.Contains(t, out, "2 selected")
	assert.Less(t, strings.Index(out, "syllabus.txt"), strings.Index(out, "tiny.txt"), "candidates ranked by score")
}

func TestPrintEffortResults(t *testing.T) {
	cfg := testConfig(t)
	estimates := []schema.EffortEstimate{
		{Family: "/docs/a", Kind: "doc", Versions: 2, Sessions: 1, Hours: 0.5, Confidence: schema.MediumConfidence, Method: schema.SessionMethod},
		{Family: "/docs/b", Kind: "pyware", Versions: 1, Sessions: 1, Hours: 8, Confidence: schema.LowConfidence, Method: schema.FlatMethod},
	}
	var buf bytes.Buffer
	require.NoError(t, PrintEffortResults(&buf, estimates, cfg))
	out := buf.String()
	assert.Contains(t, out, "Estimated 8.5 hours across 2 families")
	assert.Less(t, strings.Index(out, "/docs/b"), strings.Index(out, "/docs/a"), "largest estimate first")
}

func TestPathWidth(t *testing.T) {
	cfg := &contract.Config{Width: 200}
	assert.Equal(t, maxPathWidth, pathWidth(cfg, 50))
	cfg.Width = 40
	assert.Equal(t, minPathWidth, pathWidth(cfg, 50))
	cfg.Width = 100
	assert.Equal(t, 50, pathWidth(cfg, 50))
}
