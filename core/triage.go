package core

import (
	"cmp"
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/huangsam/evidence/internal/rules"
	"github.com/huangsam/evidence/internal/runctx"
	"github.com/huangsam/evidence/schema"
)

// Triage weights.
const (
	keywordPoints     = 2.0
	pathHintPoints    = 3.0
	recencyBase       = 0.5
	recencySpan       = 0.5
	recencyWindowDays = 365.0
	tinyFileBytes     = 1024
	tinyFilePenalty   = -2.0
	hugeFileBytes     = 100_000 * 1024
	hugeFilePenalty   = -1.0
	miscFloor         = 1.0
)

// Window is the part of the run options that triage depends on.
type Window struct {
	End       time.Time // recency is measured against this instant
	Threshold float64   // include when the best score exceeds it
}

// Triage scores a record from its path, extension, size and timestamp.
// It never opens the record.
func Triage(rec schema.FileRecord, policy *rules.ExtensionPolicy, rs *rules.RuleSet, win Window) schema.CandidateScore {
	extRule, known := policy.Lookup(rec.Ext)
	tokens := nameTokens(rec)
	dirs := dirSegments(rec.Path)

	var shared float64
	var sharedReasons []string

	recency := recencyBonus(rec.ModTime, win.End)
	shared += recency
	sharedReasons = append(sharedReasons, fmt.Sprintf("recency +%.2f", recency))

	switch {
	case rec.SizeBytes < tinyFileBytes:
		shared += tinyFilePenalty
		sharedReasons = append(sharedReasons, "tiny file -2")
	case rec.SizeBytes > hugeFileBytes:
		shared += hugeFilePenalty
		sharedReasons = append(sharedReasons, "huge file -1")
	}

	cs := schema.CandidateScore{
		Record: rec,
		Scores: make(map[string]float64, len(rs.Categories)),
	}

	bestName, bestScore := "", 0.0
	var bestReasons []string
	for i, cat := range rs.Categories {
		score := shared
		var reasons []string

		if known && extRule.Weight != 0 {
			score += extRule.Weight
			reasons = append(reasons, fmt.Sprintf("ext %s +%g", rec.Ext, extRule.Weight))
		}
		if hint := rs.Triage.ExtensionHints[cat.Name][rec.Ext]; hint != 0 {
			score += hint
			reasons = append(reasons, fmt.Sprintf("ext hint %s +%g", rec.Ext, hint))
		}
		for _, kw := range rs.Triage.Keywords[cat.Name] {
			if containsFragment(tokens, kw) {
				score += keywordPoints
				reasons = append(reasons, "keyword "+kw)
			}
		}
		for _, seg := range dirs {
			if slices.Contains(rs.Triage.PathHints[cat.Name], seg) {
				score += pathHintPoints
				reasons = append(reasons, "path "+seg)
			}
		}

		cs.Scores[cat.Name] = score
		if i == 0 || score > bestScore {
			bestName, bestScore, bestReasons = cat.Name, score, reasons
		}
	}

	cs.Score = bestScore
	cs.Category = bestName
	if bestScore < miscFloor || bestName == "" {
		cs.Category = schema.MiscCategory
	}
	cs.Guesses = guesses(rs, cs.Scores)
	cs.Reasons = append(bestReasons, sharedReasons...)

	cs.Include = cs.Score > win.Threshold
	if !cs.Include && known && extRule.Force {
		cs.Include = true
		cs.Forced = true
	}
	return cs
}

// guesses returns the categories with a positive score, best first.
// Ties keep rule order.
func guesses(rs *rules.RuleSet, scores map[string]float64) []string {
	var out []string
	for _, c := range rs.Categories {
		if scores[c.Name] > 0 {
			out = append(out, c.Name)
		}
	}
	slices.SortStableFunc(out, func(a, b string) int {
		return cmp.Compare(scores[b], scores[a])
	})
	return out
}

// recencyBonus is 0.5 + 0.5 x closeness, where closeness falls linearly from
// 1 at end to 0 one year earlier.
func recencyBonus(mod, end time.Time) float64 {
	if mod.IsZero() || end.IsZero() {
		return recencyBase
	}
	days := end.Sub(mod).Hours() / 24
	closeness := 1 - days/recencyWindowDays
	closeness = max(0, min(1, closeness))
	return recencyBase + recencySpan*closeness
}

// nameTokens splits the file name (or an archive item's title) into lowercase
// alphanumeric tokens.
func nameTokens(rec schema.FileRecord) []string {
	name := filepath.Base(rec.Path)
	if rec.IsArchiveItem() {
		name = rec.Title
	} else {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsFragment(tokens []string, fragment string) bool {
	for _, t := range tokens {
		if strings.Contains(t, fragment) {
			return true
		}
	}
	return false
}

// dirSegments returns the lowercase directory names above the file.
func dirSegments(path string) []string {
	dir := filepath.ToSlash(filepath.Dir(path))
	var out []string
	for _, seg := range strings.Split(dir, "/") {
		if seg != "" && seg != "." {
			out = append(out, strings.ToLower(seg))
		}
	}
	return out
}

// triageAll scores records on a pool of workers. Records left unscored by a
// cancellation are dropped; the rest keep collection order.
func triageAll(ctx context.Context, rc *runctx.RunContext, recs []schema.FileRecord, policy *rules.ExtensionPolicy, rs *rules.RuleSet, win Window, workers int) []schema.CandidateScore {
	workers = max(1, workers/2)
	out := make([]schema.CandidateScore, len(recs))
	done := make([]bool, len(recs))

	idxCh := make(chan int, len(recs))
	var wg sync.WaitGroup
	var mu sync.Mutex
	processed := 0

	for range workers {
		wg.Go(func() {
			for i := range idxCh {
				if ctx.Err() != nil {
					continue
				}
				out[i] = Triage(recs[i], policy, rs, win)
				done[i] = true

				mu.Lock()
				processed++
				n := processed
				mu.Unlock()
				rc.AddTriaged(1)
				rc.Publish(schema.TriageState, recs[i].ID, n, len(recs))
			}
		})
	}
	for i := range recs {
		idxCh <- i
	}
	close(idxCh)
	wg.Wait()

	kept := out[:0]
	for i, cs := range out {
		if done[i] {
			kept = append(kept, cs)
		}
	}
	return kept
}
