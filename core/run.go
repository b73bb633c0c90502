package core

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/huangsam/evidence/schema"
)

// ErrIllegalTransition is returned when a run is asked to move to a state
// that cannot follow its current one.
var ErrIllegalTransition = errors.New("illegal state transition")

// transitions lists the legal successors of each state. A resumed run
// enters Extracting straight from Idle.
var transitions = map[schema.RunState][]schema.RunState{
	schema.IdleState:              {schema.CollectingPathsState, schema.ExtractingState},
	schema.CollectingPathsState:   {schema.TriageState},
	schema.TriageState:            {schema.AwaitingSelectionState, schema.ExtractingState},
	schema.ExtractingState:        {schema.AggregatingState},
	schema.AggregatingState:       {schema.DoneState},
	schema.AwaitingSelectionState: nil,
	schema.DoneState:              nil,
}

// Run is the state machine of one invocation. Only the orchestrator moves it.
type Run struct {
	Mode schema.RunMode

	mu        sync.Mutex
	state     schema.RunState
	history   []schema.RunState
	cancelled bool
}

// NewRun creates a run in the Idle state.
func NewRun(mode schema.RunMode) *Run {
	return &Run{Mode: mode, state: schema.IdleState, history: []schema.RunState{schema.IdleState}}
}

// State returns the current state.
func (r *Run) State() schema.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// History returns every state the run has been in, oldest first.
func (r *Run) History() []schema.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.history)
}

// Transition moves the run to next or returns ErrIllegalTransition.
func (r *Run) Transition(next schema.RunState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(transitions[r.state], next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, r.state, next)
	}
	r.state = next
	r.history = append(r.history, next)
	return nil
}

// MarkCancelled records that the run was interrupted.
func (r *Run) MarkCancelled() {
	r.mu.Lock()
	r.cancelled = true
	r.mu.Unlock()
}

// Cancelled reports whether the run was interrupted.
func (r *Run) Cancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}
