// Package algo has ranking logic for evidence hits and triage candidates.
package algo

import (
	"cmp"
	"slices"

	"github.com/huangsam/evidence/schema"
)

// RankWithinGroups splits hits into Source ▸ Category ▸ Subcategory groups
// and sorts each group by descending score, keeping the top 'limit' hits.
// Scores are only compared inside a group, never across categories.
func RankWithinGroups(hits []schema.EvidenceHit, limit int) []schema.HitGroup {
	index := make(map[schema.SummaryKey]int)
	var groups []schema.HitGroup
	for _, h := range hits {
		k := h.Key()
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, schema.HitGroup{Source: k.Source, Category: k.Category, Subcategory: k.Subcategory})
		}
		groups[i].Hits = append(groups[i].Hits, h)
	}

	for i := range groups {
		g := &groups[i]
		g.Total = len(g.Hits)
		slices.SortFunc(g.Hits, func(a, b schema.EvidenceHit) int {
			return cmp.Or(cmp.Compare(b.Score, a.Score), cmp.Compare(a.Record.ID, b.Record.ID))
		})
		if limit > 0 && len(g.Hits) > limit {
			g.Hits = g.Hits[:limit]
		}
	}
	slices.SortFunc(groups, func(a, b schema.HitGroup) int {
		return cmp.Or(
			cmp.Compare(a.Source, b.Source),
			cmp.Compare(a.Category, b.Category),
			cmp.Compare(a.Subcategory, b.Subcategory),
		)
	})
	return groups
}

// RankCandidates sorts candidates by their triage score in descending order
// and returns the top 'limit' ones. The input slice is not modified.
func RankCandidates(cands []schema.CandidateScore, limit int) []schema.CandidateScore {
	ranked := slices.Clone(cands)
	slices.SortStableFunc(ranked, func(a, b schema.CandidateScore) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if limit > 0 && len(ranked) > limit {
		return ranked[:limit]
	}
	return ranked
}

// RankFolders sorts folders by their score in descending order
// and returns the top 'limit' ones.
func RankFolders(folders []schema.FolderSummary, limit int) []schema.FolderSummary {
	ranked := slices.Clone(folders)
	slices.SortStableFunc(ranked, func(a, b schema.FolderSummary) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if limit > 0 && len(ranked) > limit {
		return ranked[:limit]
	}
	return ranked
}
