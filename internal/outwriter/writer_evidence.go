package outwriter

import (
	"encoding/csv"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/huangsam/evidence/schema"
)

// evidenceHeader and summaryHeader are the fixed CSV column sets.
var (
	evidenceHeader = []string{"source", "path", "category", "subcategory", "hits", "score", "when"}
	summaryHeader  = []string{"source", "category", "subcategory", "count"}
)

// writeEvidenceCSV writes one row per hit. Archive items are written by their
// "<archive>#<n>" ID. Integral scores are written without decimals.
func writeEvidenceCSV(w io.Writer, hits []schema.EvidenceHit, fmtFloat func(float64) string) error {
	fmtScore := scoreFormatter(fmtFloat)
	return writeCSVWithHeader(w, evidenceHeader, func(cw *csv.Writer) error {
		for _, h := range hits {
			rec := []string{
				string(h.Record.Source),
				h.Record.ID,
				h.Category,
				h.Subcategory,
				strconv.Itoa(h.Hits),
				fmtScore(h.Score),
				h.When,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeSummaryCSV writes the summary rows in their key order.
func writeSummaryCSV(w io.Writer, rows []schema.SummaryRow) error {
	return writeCSVWithHeader(w, summaryHeader, func(cw *csv.Writer) error {
		for _, r := range rows {
			if err := cw.Write([]string{string(r.Source), r.Category, r.Subcategory, strconv.Itoa(r.Count)}); err != nil {
				return err
			}
		}
		return nil
	})
}

// effortDocument is the shape of effort.json.
type effortDocument struct {
	GeneratedAt time.Time               `json:"generated_at"`
	Families    int                     `json:"families"`
	TotalHours  float64                 `json:"total_hours"`
	Estimates   []schema.EffortEstimate `json:"estimates"`
}

// WriteEffort writes effort.json into dir.
func WriteEffort(dir string, estimates []schema.EffortEstimate) error {
	doc := effortDocument{
		GeneratedAt: time.Now().UTC(),
		Families:    len(estimates),
		Estimates:   estimates,
	}
	if doc.Estimates == nil {
		doc.Estimates = []schema.EffortEstimate{}
	}
	for _, e := range estimates {
		doc.TotalHours += e.Hours
	}
	return writeAtomic(filepath.Join(dir, EffortFile), func(w io.Writer) error {
		return writeJSON(w, doc)
	})
}
