package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/huangsam/evidence/internal/runctx"
	"github.com/huangsam/evidence/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var triageEnd = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func fileRecord(path, ext string, size int64, mod time.Time) schema.FileRecord {
	return schema.FileRecord{ID: path, Path: path, Index: -1, SizeBytes: size, ModTime: mod, Source: schema.FilesSource, Ext: ext}
}

func TestTriage(t *testing.T) {
	rs := mustRules(t, testRules)
	win := Window{End: triageEnd, Threshold: 1}

	tests := []struct {
		name     string
		rec      schema.FileRecord
		category string
		score    float64
		guesses  []string
		include  bool
		forced   bool
	}{
		{
			name:     "filename path and extension hints",
			rec:      fileRecord("/home/u/teaching/Syllabus_Fall.docx", "docx", 5000, triageEnd),
			category: "teaching",
			score:    10,
			guesses:  []string{"teaching", "scholarship", "service"},
			include:  true,
		},
		{
			name:     "nothing fires",
			rec:      fileRecord("/tmp/x/notes.log", "log", 500, time.Time{}),
			category: schema.MiscCategory,
			score:    -1.5,
		},
		{
			name:     "opaque format is forced",
			rec:      fileRecord("/tmp/x/a.mid", "mid", 500, time.Time{}),
			category: schema.MiscCategory,
			score:    -0.5,
			include:  true,
			forced:   true,
		},
		{
			name: "archive item uses its title",
			rec: schema.FileRecord{
				ID: "/mail/inbox.mbox#2", Path: "/mail/inbox.mbox", Index: 2, Title: "Committee meeting agenda",
				SizeBytes: 5000, ModTime: triageEnd, Source: schema.MboxSource, Ext: schema.MailItemExt,
			},
			category: "service",
			score:    8,
			guesses:  []string{"service", "teaching", "scholarship"},
			include:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := Triage(tt.rec, rs.Policy, rs, win)
			assert.Equal(t, tt.category, cs.Category)
			assert.InDelta(t, tt.score, cs.Score, 1e-9)
			assert.Equal(t, tt.guesses, cs.Guesses)
			assert.Equal(t, tt.include, cs.Include)
			assert.Equal(t, tt.forced, cs.Forced)
			assert.Len(t, cs.Scores, 3)
		})
	}
}

func TestTriageThresholdIsStrict(t *testing.T) {
	rs := mustRules(t, testRules)
	rec := fileRecord("/home/u/teaching/Syllabus_Fall.docx", "docx", 5000, triageEnd)

	cs := Triage(rec, rs.Policy, rs, Window{End: triageEnd, Threshold: 10})
	assert.InDelta(t, 10, cs.Score, 1e-9)
	assert.False(t, cs.Include)
	assert.False(t, cs.Forced)
}

func TestTriageNeverOpensContent(t *testing.T) {
	rs := mustRules(t, testRules)
	win := Window{End: triageEnd, Threshold: 1}
	rec := fileRecord("/does/not/exist/teaching/rubric.txt", "txt", 4096, triageEnd)

	first := Triage(rec, rs.Policy, rs, win)
	second := Triage(rec, rs.Policy, rs, win)
	assert.Equal(t, first, second)
	assert.Equal(t, "teaching", first.Category)
}

func TestTriageSizePenalties(t *testing.T) {
	rs := mustRules(t, testRules)
	win := Window{End: triageEnd}
	normal := Triage(fileRecord("/x/a.txt", "txt", 4096, triageEnd), rs.Policy, rs, win)
	tiny := Triage(fileRecord("/x/a.txt", "txt", 10, triageEnd), rs.Policy, rs, win)
	huge := Triage(fileRecord("/x/a.txt", "txt", 200_000*1024, triageEnd), rs.Policy, rs, win)

	assert.InDelta(t, normal.Score-2, tiny.Score, 1e-9)
	assert.InDelta(t, normal.Score-1, huge.Score, 1e-9)
}

func TestRecencyBonus(t *testing.T) {
	tests := []struct {
		name string
		mod  time.Time
		want float64
	}{
		{name: "at the end", mod: triageEnd, want: 1},
		{name: "half a year", mod: triageEnd.Add(-time.Duration(182.5 * 24 * float64(time.Hour))), want: 0.75},
		{name: "a year", mod: triageEnd.AddDate(0, 0, -365), want: 0.5},
		{name: "older", mod: triageEnd.AddDate(-3, 0, 0), want: 0.5},
		{name: "future", mod: triageEnd.Add(time.Hour), want: 1},
		{name: "unknown", mod: time.Time{}, want: 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, recencyBonus(tt.mod, triageEnd), 1e-9)
		})
	}
}

func TestNameTokens(t *testing.T) {
	assert.Equal(t, []string{"final", "exam", "2024"}, nameTokens(fileRecord("/x/Final-Exam_2024.docx", "docx", 0, time.Time{})))
	assert.Equal(t, []string{"re", "faculty", "senate"}, nameTokens(schema.FileRecord{Path: "/m.mbox", Title: "Re: Faculty Senate", Source: schema.MboxSource}))
	assert.Equal(t, []string{"home", "u", "courses"}, dirSegments("/home/u/Courses/a.txt"))
}

func TestTriageAll(t *testing.T) {
	rs := mustRules(t, testRules)
	win := Window{End: triageEnd, Threshold: 1}
	var recs []schema.FileRecord
	for i := range 20 {
		recs = append(recs, fileRecord(fmt.Sprintf("/x/file%02d.txt", i), "txt", 4096, triageEnd))
	}

	t.Run("keeps collection order", func(t *testing.T) {
		rc := runctx.New(nil)
		cands := triageAll(context.Background(), rc, recs, rs.Policy, rs, win, 8)
		require.Len(t, cands, len(recs))
		for i, c := range cands {
			assert.Equal(t, recs[i].ID, c.Record.ID)
		}
		assert.Equal(t, len(recs), rc.Totals().Triaged)
	})

	t.Run("cancelled before start drops everything", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		cands := triageAll(ctx, runctx.New(nil), recs, rs.Policy, rs, win, 8)
		assert.Empty(t, cands)
	})
}

// BenchmarkTriage benchmarks metadata triage of one record.
func BenchmarkTriage(b *testing.B) {
	rs := mustRules(b, testRules)
	rec := fileRecord("/home/u/teaching/fall/Syllabus_Grading_Rubric.docx", "docx", 48_000, triageEnd.AddDate(0, -2, 0))
	win := Window{End: triageEnd, Threshold: 1}

	for b.Loop() {
		Triage(rec, rs.Policy, rs, win)
	}
}
