// Package core has core logic for triage, extraction, scoring and effort analysis.
package core

import (
	"context"
	"errors"
	"os"

	"github.com/huangsam/evidence/internal/contract"
	"github.com/huangsam/evidence/internal/outwriter"
	"github.com/huangsam/evidence/internal/rules"
	"github.com/huangsam/evidence/internal/runctx"
	"github.com/huangsam/evidence/schema"
	"go.uber.org/zap"
)

// ReportGroupLimit is how many hits each report group shows.
const ReportGroupLimit = 100

// ExecutorFunc defines the function signature for executing different run modes.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, rc *runctx.RunContext) error

// ExecuteTriage runs pass 1 only and writes the snapshot.
// It serves as the main entry point for the 'triage' command.
func ExecuteTriage(ctx context.Context, cfg *contract.Config, rc *runctx.RunContext) error {
	rs, err := rules.LoadAndCompile(cfg.RulesPath)
	if err != nil {
		return err
	}
	unlock, err := outwriter.LockOutDir(cfg.OutDir)
	if err != nil {
		return err
	}
	defer unlock()

	res, snap, err := RunTriage(ctx, cfg, rc, rs)
	if err != nil {
		return err
	}
	if err := outwriter.WriteSnapshot(cfg.SnapshotPath, snap); err != nil {
		return err
	}
	return outwriter.PrintTriageResults(os.Stdout, res, cfg)
}

// ExecuteFull runs both passes in one invocation and writes every artifact.
// It serves as the main entry point for the 'scan' command.
func ExecuteFull(ctx context.Context, cfg *contract.Config, rc *runctx.RunContext) error {
	rs, err := rules.LoadAndCompile(cfg.RulesPath)
	if err != nil {
		return err
	}
	unlock, err := outwriter.LockOutDir(cfg.OutDir)
	if err != nil {
		return err
	}
	defer unlock()

	res, snap, err := RunFull(ctx, cfg, rc, rs)
	if err != nil {
		return err
	}
	if err := outwriter.WriteSnapshot(cfg.SnapshotPath, snap); err != nil {
		return err
	}
	return writeRun(res, cfg)
}

// ExecuteResume runs pass 2 from a snapshot written by an earlier triage.
// It serves as the main entry point for the 'extract' command.
func ExecuteResume(ctx context.Context, cfg *contract.Config, rc *runctx.RunContext) error {
	rs, err := rules.LoadAndCompile(cfg.RulesPath)
	if err != nil {
		return err
	}
	snap, err := outwriter.LoadSnapshot(cfg.SnapshotPath)
	if err != nil {
		return err
	}
	unlock, err := outwriter.LockOutDir(cfg.OutDir)
	if err != nil {
		return err
	}
	defer unlock()

	res, err := RunResume(ctx, cfg, rc, rs, snap)
	if err != nil {
		return err
	}
	return writeRun(res, cfg)
}

// ExecuteEffort collects files and estimates authoring effort without
// opening any content. It serves as the main entry point for the 'effort' command.
func ExecuteEffort(ctx context.Context, cfg *contract.Config, rc *runctx.RunContext) error {
	rs, err := rules.LoadAndCompile(cfg.RulesPath)
	if err != nil {
		return err
	}
	unlock, err := outwriter.LockOutDir(cfg.OutDir)
	if err != nil {
		return err
	}
	defer unlock()

	estimates, err := RunEffort(ctx, cfg, rc, rs)
	if err != nil {
		return err
	}
	if err := outwriter.WriteEffort(cfg.OutDir, estimates); err != nil {
		return err
	}
	return outwriter.PrintEffortResults(os.Stdout, estimates, cfg)
}

// writeRun writes the report artifacts and prints the console summary.
func writeRun(res *schema.RunResult, cfg *contract.Config) error {
	if err := outwriter.WriteReports(res, cfg); err != nil {
		return err
	}
	return outwriter.PrintRunResults(os.Stdout, res, cfg)
}

// RunTriage collects and triages, ending in AwaitingSelection.
func RunTriage(ctx context.Context, cfg *contract.Config, rc *runctx.RunContext, rs *rules.RuleSet) (*schema.RunResult, *schema.Snapshot, error) {
	if err := rs.CheckSelection(cfg.Categories); err != nil {
		return nil, nil, err
	}
	p := newPipeline(cfg, rc, rs, schema.TriageMode)
	cands, err := p.collectAndTriage(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := p.enter(schema.AwaitingSelectionState); err != nil {
		return nil, nil, err
	}
	rc.AddSelected(len(selectCandidates(cands, cfg.Categories)))
	res := p.result(cands, nil, nil)
	return res, p.snapshot(cands), nil
}

// RunFull collects, triages and extracts in one go. Without the gate every
// candidate goes to pass 2.
func RunFull(ctx context.Context, cfg *contract.Config, rc *runctx.RunContext, rs *rules.RuleSet) (*schema.RunResult, *schema.Snapshot, error) {
	if err := rs.CheckSelection(cfg.Categories); err != nil {
		return nil, nil, err
	}
	p := newPipeline(cfg, rc, rs, schema.FullMode)
	cands, err := p.collectAndTriage(ctx)
	if err != nil {
		return nil, nil, err
	}

	selected := cands
	if cfg.Gate {
		selected = selectCandidates(cands, cfg.Categories)
	}
	res, err := p.extractAndAggregate(ctx, cands, selected)
	if err != nil {
		return nil, nil, err
	}
	return res, p.snapshot(cands), nil
}

// RunResume enters Extracting straight from a snapshot. Only included
// candidates whose category is in the selection go to pass 2.
func RunResume(ctx context.Context, cfg *contract.Config, rc *runctx.RunContext, rs *rules.RuleSet, snap *schema.Snapshot) (*schema.RunResult, error) {
	if err := rs.CheckSelection(cfg.Categories); err != nil {
		return nil, err
	}
	if snap.RulesDigest != "" && snap.RulesDigest != rs.Digest() {
		rc.Logger.Warn("rules changed since triage",
			zap.String("snapshot_digest", snap.RulesDigest),
			zap.String("rules_digest", rs.Digest()))
	}
	p := newPipeline(cfg, rc, rs, schema.ResumeMode)
	return p.extractAndAggregate(ctx, snap.Candidates, selectCandidates(snap.Candidates, cfg.Categories))
}

// RunEffort collects records and estimates effort for the creative ones.
func RunEffort(ctx context.Context, cfg *contract.Config, rc *runctx.RunContext, rs *rules.RuleSet) ([]schema.EffortEstimate, error) {
	p := newPipeline(cfg, rc, rs, schema.FullMode)
	recs, err := p.collect(ctx)
	if err != nil {
		return nil, err
	}
	return EstimateEffort(recs, p.effortOptions()), nil
}

// selectCandidates keeps included candidates whose category is selected.
// An empty selection keeps every category, misc included.
func selectCandidates(cands []schema.CandidateScore, categories []string) []schema.CandidateScore {
	var out []schema.CandidateScore
	for _, c := range cands {
		if !c.Include {
			continue
		}
		if len(categories) > 0 && !schema.FoldContains(categories, c.Category) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// cancelled reports whether err is the context's own cancellation.
func cancelled(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
