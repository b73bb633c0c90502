package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/huangsam/evidence/internal/contract"
	"github.com/huangsam/evidence/internal/rules"
	"github.com/huangsam/evidence/internal/runctx"
	"github.com/huangsam/evidence/schema"
	"go.uber.org/zap"
)

// scanner is everything a pass-2 worker needs to turn a record into hits.
type scanner struct {
	rc         *runctx.RunContext
	extractor  contract.Extractor
	policy     *rules.ExtensionPolicy
	rules      *rules.RuleSet
	provenance *Provenance
}

// recordResult pairs a record with the hits it produced.
type recordResult struct {
	rec  schema.FileRecord
	hits []schema.EvidenceHit
}

// analyzeAll runs pass 2 over recs using a bounded worker pool. The calling
// goroutine is the single owner of the aggregated hits. Cancelling ctx stops
// the feed; workers finish the record they hold and the hits produced so far
// are returned.
func (s *scanner) analyzeAll(ctx context.Context, recs []schema.FileRecord, workers int) []schema.EvidenceHit {
	workers = max(1, workers)
	recCh := make(chan schema.FileRecord)
	resultCh := make(chan recordResult, workers)
	var wg sync.WaitGroup

	// Start worker pool
	for range workers {
		wg.Go(func() {
			for rec := range recCh {
				resultCh <- recordResult{rec: rec, hits: s.analyzeRecord(ctx, rec)}
			}
		})
	}

	// Feed records until done or cancelled
	go func() {
		defer close(recCh)
		for _, rec := range recs {
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case recCh <- rec:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var hits []schema.EvidenceHit
	processed := 0
	for r := range resultCh {
		processed++
		hits = append(hits, r.hits...)
		s.rc.Publish(schema.ExtractingState, r.rec.ID, processed, len(recs))
	}
	return hits
}

// analyzeRecord extracts and scores one record. Extraction failures become
// warnings and yield no hits.
func (s *scanner) analyzeRecord(ctx context.Context, rec schema.FileRecord) []schema.EvidenceHit {
	text, err := s.extractor.Extract(ctx, rec)
	if err != nil {
		s.rc.WarnErr(rec.ID, err)
		s.rc.AddSkipped(1)
		return nil
	}
	s.rc.AddExtracted(1)

	if strings.TrimSpace(text) == "" && s.policy.Handler(rec.Ext) == schema.OpaqueHandler {
		text = filenameText(rec)
	}

	matches := Score(text, s.rules)
	if len(matches) == 0 {
		return nil
	}
	s.rc.AddMatched(1)

	var note string
	bonus := 0.0
	if rec.Source == schema.MboxSource {
		if header, addr, ok := s.provenance.Match(text); ok {
			note = fmt.Sprintf("[%s: %s] ", header, addr)
			bonus = s.provenance.score
		}
	}

	hits := make([]schema.EvidenceHit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, schema.EvidenceHit{
			Record:      rec,
			Category:    m.Category,
			Subcategory: m.Subcategory,
			Hits:        m.Hits,
			Score:       m.Score + bonus,
			Snippet:     note + m.Snippet,
			When:        schema.FormatWhen(rec.ModTime),
		})
	}
	s.rc.Logger.Debug("matched",
		zap.String("id", rec.ID),
		zap.Int("subcategories", len(hits)))
	return hits
}

// filenameText is the lowercased base name used as a stand-in for formats
// whose content yields nothing.
func filenameText(rec schema.FileRecord) string {
	name := rec.Path
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}
