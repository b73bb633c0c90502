package core

import (
	"strings"
	"unicode/utf8"

	"github.com/huangsam/evidence/internal/rules"
	"github.com/huangsam/evidence/internal/textutil"
)

// Snippet geometry around the first match.
const (
	snippetBefore = 30
	snippetAfter  = 50
)

// Match is the rule engine verdict for one subcategory.
type Match struct {
	Category    string
	Subcategory string
	Hits        int
	Score       float64
	Snippet     string
}

// Score evaluates every subcategory of rs against text and returns one Match
// per subcategory that matched, in rule order. Matching is case-insensitive
// and runs on whitespace-collapsed text.
func Score(text string, rs *rules.RuleSet) []Match {
	norm := textutil.CollapseSpace(text)
	if norm == "" {
		return nil
	}

	var global float64
	for _, b := range rs.GlobalBonus {
		global += float64(b.Count(norm)) * b.Points
	}

	var out []Match
	for _, cat := range rs.Categories {
		for _, sub := range cat.Subcategories {
			hits, first := 0, -1
			for _, re := range sub.Patterns {
				locs := re.FindAllStringIndex(norm, -1)
				hits += len(locs)
				if len(locs) > 0 && (first < 0 || locs[0][0] < first) {
					first = locs[0][0]
				}
			}

			var bonus float64
			bonusHits := 0
			for _, b := range sub.Bonus {
				n := b.Count(norm)
				bonusHits += n
				bonus += float64(n) * b.Points
			}

			// A subcategory without patterns is matched by its bonus terms alone.
			if len(sub.Patterns) == 0 {
				hits = bonusHits
				if hits > 0 {
					first = firstBonus(norm, sub.Bonus)
				}
			}
			if hits == 0 {
				continue
			}
			hits = min(hits, rs.HitCap)

			score := float64(hits)*sub.Weight*cat.Weight + bonus + global
			if len(sub.Patterns) == 0 {
				score = bonus + global
			}
			if rs.ScoreCap > 0 {
				score = min(score, rs.ScoreCap)
			}

			out = append(out, Match{
				Category:    cat.Name,
				Subcategory: sub.Name,
				Hits:        hits,
				Score:       score,
				Snippet:     snippet(norm, first),
			})
		}
	}
	return out
}

func firstBonus(norm string, terms []rules.BonusTerm) int {
	first := -1
	for _, b := range terms {
		if i := b.Index(norm); i >= 0 && (first < 0 || i < first) {
			first = i
		}
	}
	return first
}

// snippet cuts about eighty characters of context around pos.
func snippet(s string, pos int) string {
	if pos < 0 {
		return ""
	}
	start := max(0, pos-snippetBefore)
	end := min(len(s), pos+snippetAfter)
	for start > 0 && !utf8.RuneStart(s[start]) {
		start--
	}
	for end < len(s) && !utf8.RuneStart(s[end]) {
		end++
	}
	out := strings.TrimSpace(s[start:end])
	if start > 0 {
		out = "…" + out
	}
	if end < len(s) {
		out += "…"
	}
	return out
}
