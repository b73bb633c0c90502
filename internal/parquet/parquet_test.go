package parquet

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/evidence/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleHits() []schema.EvidenceHit {
	mod := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return []schema.EvidenceHit{
		{
			Record:      schema.FileRecord{ID: "/docs/syllabus.txt", Path: "/docs/syllabus.txt", Index: -1, ModTime: mod, Source: schema.FilesSource, Ext: "txt"},
			Category:    "teaching",
			Subcategory: "syllabus",
			Hits:        2,
			Score:       2,
			Snippet:     "course syllabus",
			When:        "2024-03-01",
		},
		{
			Record:      schema.FileRecord{ID: "/mail/inbox.mbox#3", Path: "/mail/inbox.mbox", Index: 3, ModTime: mod, Source: schema.MboxSource},
			Category:    "service",
			Subcategory: "review",
			Hits:        1,
			Score:       4.5,
			When:        "2024-03-01",
			Effort:      &schema.EffortEstimate{Family: "/docs/thesis", Hours: 1.25},
		},
	}
}

func writeToFile(t *testing.T, name string, write func(*os.File) error) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, write(f))
	require.NoError(t, f.Close())
	return path
}

func TestEvidenceRowSchema(t *testing.T) {
	s := parquet.SchemaOf(EvidenceRow{})
	var names []string
	for _, f := range s.Fields() {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{
		"run_id", "source", "path", "category", "subcategory",
		"hits", "score", "when", "snippet", "effort_hours",
	}, names)
}

func TestSummaryRowSchema(t *testing.T) {
	s := parquet.SchemaOf(SummaryRow{})
	assert.Len(t, s.Fields(), 5)
	assert.Equal(t, "count", s.Fields()[4].Name())
}

func TestWriteEvidence(t *testing.T) {
	hits := sampleHits()
	path := writeToFile(t, "evidence.parquet", func(f *os.File) error {
		return WriteEvidence(f, "run-1", hits)
	})

	rows, err := parquet.ReadFile[EvidenceRow](path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "run-1", rows[0].RunID)
	assert.Equal(t, "files", rows[0].Source)
	assert.Equal(t, "/docs/syllabus.txt", rows[0].Path)
	assert.Equal(t, int32(2), rows[0].Hits)
	require.NotNil(t, rows[0].Snippet)
	assert.Equal(t, "course syllabus", *rows[0].Snippet)
	assert.Nil(t, rows[0].EffortHours)

	assert.Equal(t, "/mail/inbox.mbox#3", rows[1].Path)
	assert.InDelta(t, 4.5, rows[1].Score, 0.001)
	assert.Nil(t, rows[1].Snippet)
	require.NotNil(t, rows[1].EffortHours)
	assert.InDelta(t, 1.25, *rows[1].EffortHours, 0.001)
}

func TestWriteSummary(t *testing.T) {
	summary := []schema.SummaryRow{
		{Source: schema.FilesSource, Category: "teaching", Subcategory: "syllabus", Count: 3},
		{Source: schema.ICSSource, Category: "service", Subcategory: "committee", Count: 1},
	}
	path := writeToFile(t, "summary.parquet", func(f *os.File) error {
		return WriteSummary(f, "run-2", summary)
	})

	rows, err := parquet.ReadFile[SummaryRow](path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, SummaryRow{RunID: "run-2", Source: "files", Category: "teaching", Subcategory: "syllabus", Count: 3}, rows[0])
	assert.Equal(t, "ics", rows[1].Source)
}

func TestWriteEvidence_EmptyData(t *testing.T) {
	path := writeToFile(t, "empty.parquet", func(f *os.File) error {
		return WriteEvidence(f, "run-3", nil)
	})

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0), "an empty file still carries the footer")

	rows, err := parquet.ReadFile[EvidenceRow](path)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
