// Package agg has aggregation logic for evidence hits and triage candidates.
package agg

import (
	"cmp"
	"path/filepath"
	"slices"

	"github.com/huangsam/evidence/schema"
)

// Summarize groups hits by (source, category, subcategory). The rows are
// always recomputed from the hits, so counts match them exactly.
func Summarize(hits []schema.EvidenceHit) []schema.SummaryRow {
	counts := make(map[schema.SummaryKey]int)
	for _, h := range hits {
		counts[h.Key()]++
	}

	rows := make([]schema.SummaryRow, 0, len(counts))
	for k, n := range counts {
		rows = append(rows, schema.SummaryRow{
			Source:      k.Source,
			Category:    k.Category,
			Subcategory: k.Subcategory,
			Count:       n,
		})
	}
	schema.SortSummary(rows)
	return rows
}

// CountCategories counts candidates per triage category.
func CountCategories(cands []schema.CandidateScore) map[string]int {
	counts := make(map[string]int)
	for _, c := range cands {
		counts[c.Category]++
	}
	return counts
}

// CountIncluded returns how many candidates are flagged for pass 2.
func CountIncluded(cands []schema.CandidateScore) int {
	n := 0
	for _, c := range cands {
		if c.Include {
			n++
		}
	}
	return n
}

// AggregateFolders rolls hits up to the directory of each file, or of the
// archive for mail and calendar items.
func AggregateFolders(hits []schema.EvidenceHit) []schema.FolderSummary {
	type folder struct {
		summary  schema.FolderSummary
		files    map[string]struct{}
		category map[string]float64
	}
	folders := make(map[string]*folder)

	for _, h := range hits {
		dir := filepath.Dir(h.Record.Path)
		f, ok := folders[dir]
		if !ok {
			f = &folder{
				summary:  schema.FolderSummary{Path: dir},
				files:    make(map[string]struct{}),
				category: make(map[string]float64),
			}
			folders[dir] = f
		}
		f.files[h.Record.ID] = struct{}{}
		f.summary.Hits++
		f.summary.Score += h.Score
		f.category[h.Category] += h.Score
	}

	out := make([]schema.FolderSummary, 0, len(folders))
	for _, f := range folders {
		f.summary.Files = len(f.files)
		f.summary.TopCategory = topCategory(f.category)
		out = append(out, f.summary)
	}
	slices.SortFunc(out, func(a, b schema.FolderSummary) int {
		return cmp.Or(cmp.Compare(b.Score, a.Score), cmp.Compare(a.Path, b.Path))
	})
	return out
}

// topCategory returns the category with the largest sum, breaking ties by name.
func topCategory(sums map[string]float64) string {
	best, bestScore := "", 0.0
	for name, score := range sums {
		if best == "" || score > bestScore || (score == bestScore && name < best) {
			best, bestScore = name, score
		}
	}
	return best
}
