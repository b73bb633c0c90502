package core

import (
	"context"

	"github.com/huangsam/evidence/core/agg"
	"github.com/huangsam/evidence/core/algo"
	"github.com/huangsam/evidence/internal/collect"
	"github.com/huangsam/evidence/internal/contract"
	"github.com/huangsam/evidence/internal/extract"
	"github.com/huangsam/evidence/internal/rules"
	"github.com/huangsam/evidence/internal/runctx"
	"github.com/huangsam/evidence/schema"
	"go.uber.org/zap"
)

// pipeline carries one run through its states.
type pipeline struct {
	cfg   *contract.Config
	rc    *runctx.RunContext
	rules *rules.RuleSet
	run   *Run
	opts  collect.Options

	// extractor is built lazily so tests can swap it.
	extractor contract.Extractor
}

func newPipeline(cfg *contract.Config, rc *runctx.RunContext, rs *rules.RuleSet, mode schema.RunMode) *pipeline {
	return &pipeline{
		cfg:   cfg,
		rc:    rc,
		rules: rs,
		run:   NewRun(mode),
		opts:  collect.OptionsFromConfig(cfg, rs),
	}
}

// enter moves the run to state and announces it on the progress stream.
func (p *pipeline) enter(state schema.RunState) error {
	if err := p.run.Transition(state); err != nil {
		return err
	}
	p.rc.Logger.Debug("state", zap.String("state", string(state)))
	p.rc.Publish(state, "", 0, 0)
	return nil
}

// collect gathers records. Cancellation keeps what was collected so far.
func (p *pipeline) collect(ctx context.Context) ([]schema.FileRecord, error) {
	if err := p.enter(schema.CollectingPathsState); err != nil {
		return nil, err
	}
	recs, err := collect.Collect(ctx, p.rc, p.opts)
	if err != nil {
		if !cancelled(ctx, err) {
			return nil, err
		}
		p.run.MarkCancelled()
	}
	return recs, nil
}

func (p *pipeline) collectAndTriage(ctx context.Context) ([]schema.CandidateScore, error) {
	recs, err := p.collect(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.enter(schema.TriageState); err != nil {
		return nil, err
	}
	win := Window{End: p.cfg.WindowEnd(p.rc.Now()), Threshold: p.cfg.Threshold}
	cands := triageAll(ctx, p.rc, recs, p.opts.Policy, p.rules, win, p.cfg.Workers)
	if ctx.Err() != nil {
		p.run.MarkCancelled()
	}
	p.rc.Logger.Info("triage complete",
		zap.Int("collected", len(recs)),
		zap.Int("candidates", len(cands)),
		zap.Int("included", agg.CountIncluded(cands)))
	return cands, nil
}

// extractAndAggregate runs pass 2 on selected and builds the result. Hits
// produced before a cancellation are kept.
func (p *pipeline) extractAndAggregate(ctx context.Context, cands, selected []schema.CandidateScore) (*schema.RunResult, error) {
	if err := p.enter(schema.ExtractingState); err != nil {
		return nil, err
	}
	recs := make([]schema.FileRecord, 0, len(selected))
	for _, c := range selected {
		recs = append(recs, c.Record)
	}
	p.rc.AddSelected(len(recs))

	s := &scanner{
		rc:         p.rc,
		extractor:  p.extractorFor(),
		policy:     p.opts.Policy,
		rules:      p.rules.Restrict(p.cfg.Categories),
		provenance: NewProvenance(p.cfg.OwnerEmails, p.cfg.ProvenanceScore),
	}
	hits := s.analyzeAll(ctx, recs, p.cfg.Workers)
	if ctx.Err() != nil {
		p.run.MarkCancelled()
		p.rc.Logger.Warn("run cancelled, writing partial results", zap.Int("hits", len(hits)))
	}

	if err := p.enter(schema.AggregatingState); err != nil {
		return nil, err
	}
	efforts := EstimateEffort(recs, p.effortOptions())
	attachEffort(hits, efforts)
	schema.SortHits(hits)

	if err := p.enter(schema.DoneState); err != nil {
		return nil, err
	}
	return p.result(cands, hits, efforts), nil
}

func (p *pipeline) extractorFor() contract.Extractor {
	if p.extractor != nil {
		return p.extractor
	}
	return extract.NewRegistry(p.opts.Policy, extract.Options{
		Timeout:      p.cfg.Timeout,
		MaxTextBytes: p.cfg.MaxTextBytes,
		Items:        p.rc.Items,
	})
}

func (p *pipeline) effortOptions() EffortOptions {
	return EffortOptions{IdleGap: p.cfg.IdleGap, MinSession: p.cfg.MinSession, MaxSession: p.cfg.MaxSession}
}

// result assembles everything the writers need.
func (p *pipeline) result(cands []schema.CandidateScore, hits []schema.EvidenceHit, efforts []schema.EffortEstimate) *schema.RunResult {
	return &schema.RunResult{
		RunID:       p.rc.ID,
		Mode:        p.run.Mode,
		State:       p.run.State(),
		Cancelled:   p.run.Cancelled(),
		RulesPath:   p.cfg.RulesPath,
		RulesDigest: p.rules.Digest(),
		StartedAt:   p.rc.StartedAt(),
		Duration:    p.rc.Elapsed(),
		Candidates:  cands,
		Hits:        hits,
		Summary:     agg.Summarize(hits),
		Groups:      algo.RankWithinGroups(hits, ReportGroupLimit),
		Folders:     agg.AggregateFolders(hits),
		Efforts:     efforts,
		Warnings:    p.rc.Warnings(),
		Totals:      p.rc.Totals(),
	}
}

// snapshot is the pass-1 checkpoint for a later resume.
func (p *pipeline) snapshot(cands []schema.CandidateScore) *schema.Snapshot {
	return &schema.Snapshot{
		SchemaVersion: schema.SnapshotVersion,
		Kind:          schema.SnapshotKind,
		RunID:         p.rc.ID,
		CreatedAt:     p.rc.Now().UTC(),
		RulesDigest:   p.rules.Digest(),
		Options: schema.SnapshotOptions{
			Roots:      p.cfg.Roots,
			Since:      p.cfg.Since,
			Until:      p.cfg.Until,
			MaxBytes:   p.cfg.MaxBytes,
			Extensions: p.opts.Policy.Extensions(),
			Threshold:  p.cfg.Threshold,
		},
		Counts:     agg.CountCategories(cands),
		Candidates: cands,
	}
}
