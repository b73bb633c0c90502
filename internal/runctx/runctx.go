// Package runctx holds the per-invocation state shared by every stage of a scan.
package runctx

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/evidence/internal/contract"
	"github.com/huangsam/evidence/schema"
	"go.uber.org/zap"
)

// RunContext is passed explicitly to the collector, the worker pools and the
// aggregator. Warnings are guarded by a mutex and counters are atomic, so a
// RunContext is safe for concurrent use.
type RunContext struct {
	ID       string
	Logger   *zap.Logger
	Progress *Emitter
	Items    contract.ItemStore

	clock   func() time.Time
	started time.Time

	mu       sync.Mutex
	warnings []schema.Warning

	collected atomic.Int64
	triaged   atomic.Int64
	selected  atomic.Int64
	extracted atomic.Int64
	matched   atomic.Int64
	skipped   atomic.Int64
}

// Option customizes a RunContext.
type Option func(*RunContext)

// WithClock replaces time.Now, mostly for tests.
func WithClock(clock func() time.Time) Option {
	return func(rc *RunContext) { rc.clock = clock }
}

// WithProgress attaches a progress emitter.
func WithProgress(e *Emitter) Option {
	return func(rc *RunContext) { rc.Progress = e }
}

// WithItems attaches the archive item store.
func WithItems(items contract.ItemStore) Option {
	return func(rc *RunContext) { rc.Items = items }
}

// WithID fixes the run ID instead of generating one.
func WithID(id string) Option {
	return func(rc *RunContext) { rc.ID = id }
}

// New creates a RunContext with a fresh run ID. A nil logger is replaced by a no-op logger.
func New(logger *zap.Logger, opts ...Option) *RunContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	rc := &RunContext{ID: uuid.NewString(), clock: time.Now}
	for _, opt := range opts {
		opt(rc)
	}
	rc.Logger = logger.With(zap.String("run", rc.ID))
	rc.started = rc.clock()
	return rc
}

// Now returns the current time from the run clock.
func (rc *RunContext) Now() time.Time { return rc.clock() }

// StartedAt returns when the run began.
func (rc *RunContext) StartedAt() time.Time { return rc.started }

// Elapsed returns the time since the run began.
func (rc *RunContext) Elapsed() time.Duration { return rc.clock().Sub(rc.started) }

// Warn records a non-fatal problem and logs it at warn level.
func (rc *RunContext) Warn(kind schema.WarningKind, path, reason, message string) {
	w := schema.Warning{Kind: kind, Path: path, Reason: reason, Message: message}
	rc.mu.Lock()
	rc.warnings = append(rc.warnings, w)
	rc.mu.Unlock()
	rc.Logger.Warn(message,
		zap.String("kind", string(kind)),
		zap.String("path", path),
		zap.String("reason", reason))
}

// WarnErr records err as a warning, classifying it by its error type.
func (rc *RunContext) WarnErr(path string, err error) {
	var (
		pe *contract.PathError
		ee *contract.ExtractionError
		ae *contract.ArchiveError
	)
	switch {
	case errors.As(err, &ee):
		rc.Warn(schema.ExtractionWarning, path, string(ee.Reason), err.Error())
	case errors.As(err, &ae):
		rc.Warn(schema.ArchiveWarning, path, "", err.Error())
	case errors.As(err, &pe):
		rc.Warn(schema.PathWarning, path, "", err.Error())
	default:
		rc.Warn(schema.ExtractionWarning, path, string(contract.ReasonCorrupt), err.Error())
	}
}

// Warnings returns a copy of the recorded warnings in the order they were raised.
func (rc *RunContext) Warnings() []schema.Warning {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return slices.Clone(rc.warnings)
}

// Counter increments.
func (rc *RunContext) AddCollected(n int) { rc.collected.Add(int64(n)) }
func (rc *RunContext) AddTriaged(n int)   { rc.triaged.Add(int64(n)) }
func (rc *RunContext) AddSelected(n int)  { rc.selected.Add(int64(n)) }
func (rc *RunContext) AddExtracted(n int) { rc.extracted.Add(int64(n)) }
func (rc *RunContext) AddMatched(n int)   { rc.matched.Add(int64(n)) }
func (rc *RunContext) AddSkipped(n int)   { rc.skipped.Add(int64(n)) }

// Totals returns a snapshot of the counters.
func (rc *RunContext) Totals() schema.RunTotals {
	t := schema.RunTotals{
		Collected: int(rc.collected.Load()),
		Triaged:   int(rc.triaged.Load()),
		Selected:  int(rc.selected.Load()),
		Extracted: int(rc.extracted.Load()),
		Matched:   int(rc.matched.Load()),
		Skipped:   int(rc.skipped.Load()),
	}
	if rc.Progress != nil {
		t.Dropped = int(rc.Progress.Dropped())
	}
	return t
}

// Publish sends a progress event stamped with the elapsed time. It never blocks.
func (rc *RunContext) Publish(stage schema.RunState, path string, processed, total int) {
	if rc.Progress == nil {
		return
	}
	rc.Progress.Publish(schema.ProgressEvent{
		Stage:     stage,
		Path:      path,
		Processed: processed,
		Total:     total,
		Matched:   int(rc.matched.Load()),
		Elapsed:   rc.Elapsed(),
	})
}
