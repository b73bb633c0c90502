package agg

import (
	"testing"

	"github.com/huangsam/evidence/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hit(id, path string, src schema.Source, cat, sub string, score float64) schema.EvidenceHit {
	return schema.EvidenceHit{
		Record:      schema.FileRecord{ID: id, Path: path, Source: src},
		Category:    cat,
		Subcategory: sub,
		Hits:        1,
		Score:       score,
	}
}

func TestSummarize(t *testing.T) {
	hits := []schema.EvidenceHit{
		hit("/a/x.txt", "/a/x.txt", schema.FilesSource, "teaching", "syllabus", 2),
		hit("/a/y.txt", "/a/y.txt", schema.FilesSource, "teaching", "syllabus", 1),
		hit("/a/y.txt", "/a/y.txt", schema.FilesSource, "research", "grant", 1),
		hit("/m.mbox#0", "/m.mbox", schema.MboxSource, "teaching", "syllabus", 1),
	}

	rows := Summarize(hits)
	require.Len(t, rows, 3)
	assert.Equal(t, schema.SummaryRow{Source: schema.FilesSource, Category: "research", Subcategory: "grant", Count: 1}, rows[0])
	assert.Equal(t, schema.SummaryRow{Source: schema.FilesSource, Category: "teaching", Subcategory: "syllabus", Count: 2}, rows[1])
	assert.Equal(t, schema.MboxSource, rows[2].Source)

	total := 0
	for _, r := range rows {
		total += r.Count
	}
	assert.Equal(t, len(hits), total)

	assert.Empty(t, Summarize(nil))
}

func TestCountCategories(t *testing.T) {
	cands := []schema.CandidateScore{
		{Category: "teaching", Include: true},
		{Category: "teaching"},
		{Category: schema.MiscCategory, Include: true, Forced: true},
	}
	assert.Equal(t, map[string]int{"teaching": 2, "misc": 1}, CountCategories(cands))
	assert.Equal(t, 2, CountIncluded(cands))
}

func TestAggregateFolders(t *testing.T) {
	hits := []schema.EvidenceHit{
		hit("/docs/a.txt", "/docs/a.txt", schema.FilesSource, "teaching", "syllabus", 2),
		hit("/docs/a.txt", "/docs/a.txt", schema.FilesSource, "research", "grant", 5),
		hit("/docs/b.txt", "/docs/b.txt", schema.FilesSource, "teaching", "rubric", 4),
		hit("/mail/in.mbox#1", "/mail/in.mbox", schema.MboxSource, "service", "review", 1),
		hit("/mail/in.mbox#2", "/mail/in.mbox", schema.MboxSource, "service", "review", 1),
	}

	folders := AggregateFolders(hits)
	require.Len(t, folders, 2)

	docs := folders[0]
	assert.Equal(t, "/docs", docs.Path)
	assert.Equal(t, 2, docs.Files)
	assert.Equal(t, 3, docs.Hits)
	assert.InDelta(t, 11.0, docs.Score, 0.001)
	assert.Equal(t, "teaching", docs.TopCategory)

	mail := folders[1]
	assert.Equal(t, "/mail", mail.Path)
	assert.Equal(t, 2, mail.Files, "archive items count separately")
	assert.Equal(t, "service", mail.TopCategory)
}

func TestTopCategory(t *testing.T) {
	assert.Equal(t, "", topCategory(nil))
	assert.Equal(t, "alpha", topCategory(map[string]float64{"beta": 2, "alpha": 2}))
	assert.Equal(t, "beta", topCategory(map[string]float64{"beta": 3, "alpha": 2}))
}
