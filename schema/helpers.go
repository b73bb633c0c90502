package schema

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// DateFormat is the layout of the evidence "when" column.
const DateFormat = "2006-01-02"

// NormalizeExt lowercases an extension and strips leading dots and spaces.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(ext), "."))
}

// FormatWhen renders a record timestamp for the evidence "when" column.
func FormatWhen(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateFormat)
}

// SortHits orders hits by source, descending score, category, subcategory and record ID.
// The order is total so outputs are stable across completion orders.
func SortHits(hits []EvidenceHit) {
	slices.SortFunc(hits, func(a, b EvidenceHit) int {
		return cmp.Or(
			cmp.Compare(a.Record.Source, b.Record.Source),
			cmp.Compare(b.Score, a.Score),
			cmp.Compare(a.Category, b.Category),
			cmp.Compare(a.Subcategory, b.Subcategory),
			cmp.Compare(a.Record.ID, b.Record.ID),
		)
	})
}

// SortSummary orders summary rows by key.
func SortSummary(rows []SummaryRow) {
	slices.SortFunc(rows, func(a, b SummaryRow) int {
		return cmp.Or(
			cmp.Compare(a.Source, b.Source),
			cmp.Compare(a.Category, b.Category),
			cmp.Compare(a.Subcategory, b.Subcategory),
		)
	})
}

// FoldContains reports whether list holds s, ignoring case.
func FoldContains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
