package core

import (
	"cmp"
	"math"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/evidence/schema"
)

// EffortOptions bound session detection.
type EffortOptions struct {
	IdleGap    time.Duration
	MinSession time.Duration
	MaxSession time.Duration
}

// effortKind describes how one kind of creative file is saved.
type effortKind struct {
	name     string
	interval time.Duration // typical time between saves
	flat     float64       // hours assumed for a single version
}

var (
	kindPyware   = effortKind{"pyware", 10 * time.Minute, 8}
	kindFinale   = effortKind{"finale", 15 * time.Minute, 6}
	kindLegacy   = effortKind{"finale", 20 * time.Minute, 6}
	kindSibelius = effortKind{"sibelius", 15 * time.Minute, 6}
	kindSlides   = effortKind{"slides", 20 * time.Minute, 4}
	kindSheet    = effortKind{"sheet", 15 * time.Minute, 3}
	kindMusicXML = effortKind{"musicxml", 15 * time.Minute, 2}
	kindDoc      = effortKind{"doc", 10 * time.Minute, 2}
	kindOther    = effortKind{"other", 15 * time.Minute, 1}
)

// creativeKinds maps creative extensions to their kind. Other formats get no estimate.
var creativeKinds = map[string]effortKind{
	"3dj": kindPyware, "3dz": kindPyware, "3da": kindPyware, "prod": kindPyware,
	"musx": kindFinale, "ftm": kindFinale, "ftmx": kindFinale, "mus": kindLegacy,
	"sib":      kindSibelius,
	"musicxml": kindMusicXML, "mxl": kindMusicXML,
	"mid": kindOther, "midi": kindOther,
	"pptx": kindSlides, "ppt": kindSlides, "odp": kindSlides,
	"xlsx": kindSheet, "xls": kindSheet, "ods": kindSheet,
	"docx": kindDoc, "doc": kindDoc, "odt": kindDoc, "rtf": kindDoc, "pdf": kindDoc,
}

// creativeKind returns the effort kind for ext; false means no estimate.
func creativeKind(ext string) (effortKind, bool) {
	kind, ok := creativeKinds[schema.NormalizeExt(ext)]
	return kind, ok
}

var familySuffixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*\(\d+\)$`),
	regexp.MustCompile(`(?i)_v\d+$`),
	regexp.MustCompile(`(?i)_version_?\d+$`),
	regexp.MustCompile(`(?i)_\d{4}[-_]?\d{2}[-_]?\d{2}$`),
	regexp.MustCompile(`(?i)_(copy|final|draft|backup)$`),
}

// FamilyKey reduces a file name to the name shared by all its saved versions,
// e.g. "Thesis_Draft_v2 (1).docx" becomes "thesis".
func FamilyKey(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	for changed := true; changed; {
		changed = false
		for _, re := range familySuffixes {
			if next := re.ReplaceAllString(name, ""); next != name && next != "" {
				name, changed = next, true
			}
		}
	}
	return strings.ToLower(strings.TrimSpace(name))
}

// EstimateEffort groups creative records into families by directory and
// family key and estimates authoring hours for each. It never fails.
func EstimateEffort(recs []schema.FileRecord, opts EffortOptions) []schema.EffortEstimate {
	type family struct {
		key  string
		kind effortKind
		recs []schema.FileRecord
	}
	families := map[string]*family{}
	var order []string

	for _, rec := range recs {
		if rec.IsArchiveItem() {
			continue
		}
		kind, ok := creativeKind(rec.Ext)
		if !ok {
			continue
		}
		key := filepath.Join(filepath.Dir(rec.Path), FamilyKey(rec.Path))
		f, seen := families[key]
		if !seen {
			f = &family{key: key, kind: kind}
			families[key] = f
			order = append(order, key)
		}
		f.recs = append(f.recs, rec)
	}

	out := make([]schema.EffortEstimate, 0, len(order))
	for _, key := range order {
		f := families[key]
		out = append(out, estimateFamily(f.key, f.kind, f.recs, opts))
	}
	slices.SortFunc(out, func(a, b schema.EffortEstimate) int { return cmp.Compare(a.Family, b.Family) })
	return out
}

func estimateFamily(key string, kind effortKind, recs []schema.FileRecord, opts EffortOptions) schema.EffortEstimate {
	times := make([]time.Time, 0, len(recs))
	paths := make([]string, 0, len(recs))
	for _, r := range recs {
		times = append(times, r.ModTime)
		paths = append(paths, r.Path)
	}
	slices.SortFunc(times, func(a, b time.Time) int { return a.Compare(b) })
	slices.Sort(paths)

	est := schema.EffortEstimate{
		Family:   key,
		Kind:     kind.name,
		Versions: len(recs),
		First:    times[0],
		Last:     times[len(times)-1],
		Paths:    paths,
	}

	if len(recs) < 2 {
		est.Method = schema.FlatMethod
		est.Confidence = schema.LowConfidence
		est.Sessions = 1
		est.Hours = kind.flat
		return est
	}

	est.Method = schema.SessionMethod
	est.Confidence = schema.MediumConfidence
	if len(recs) >= 5 {
		est.Confidence = schema.HighConfidence
	}

	var total time.Duration
	for _, s := range Sessions(times, opts.IdleGap) {
		span := s[len(s)-1].Sub(s[0]) + kind.interval
		span = max(opts.MinSession, min(opts.MaxSession, span))
		total += span
		est.Sessions++
	}
	est.Hours = math.Round(total.Hours()*100) / 100
	return est
}

// Sessions splits sorted timestamps into maximal runs whose consecutive
// gaps are below idle.
func Sessions(times []time.Time, idle time.Duration) [][]time.Time {
	if len(times) == 0 {
		return nil
	}
	var out [][]time.Time
	cur := []time.Time{times[0]}
	for _, t := range times[1:] {
		if t.Sub(cur[len(cur)-1]) < idle {
			cur = append(cur, t)
			continue
		}
		out = append(out, cur)
		cur = []time.Time{t}
	}
	return append(out, cur)
}

// attachEffort points every hit of a creative record at its family estimate.
func attachEffort(hits []schema.EvidenceHit, estimates []schema.EffortEstimate) {
	byPath := make(map[string]*schema.EffortEstimate)
	for i := range estimates {
		for _, p := range estimates[i].Paths {
			byPath[p] = &estimates[i]
		}
	}
	for i := range hits {
		if hits[i].Record.IsArchiveItem() {
			continue
		}
		if est, ok := byPath[hits[i].Record.Path]; ok {
			hits[i].Effort = est
		}
	}
}
