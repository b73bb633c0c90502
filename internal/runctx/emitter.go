package runctx

import (
	"sync"
	"sync/atomic"

	"github.com/huangsam/evidence/internal/contract"
	"github.com/huangsam/evidence/schema"
)

// DefaultProgressBuffer is the emitter channel capacity.
const DefaultProgressBuffer = 256

// Emitter is a one-way progress stream. Publish never blocks: when the
// buffer is full the event is dropped and counted.
type Emitter struct {
	ch      chan schema.ProgressEvent
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

var _ contract.ProgressSink = &Emitter{} // Compile-time check

// NewEmitter creates an emitter with the given buffer size.
func NewEmitter(buffer int) *Emitter {
	if buffer <= 0 {
		buffer = DefaultProgressBuffer
	}
	return &Emitter{ch: make(chan schema.ProgressEvent, buffer)}
}

// Publish offers ev to the stream.
func (e *Emitter) Publish(ev schema.ProgressEvent) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}
	select {
	case e.ch <- ev:
	default:
		e.dropped.Add(1)
	}
}

// Events returns the receive side of the stream. It is closed by Close.
func (e *Emitter) Events() <-chan schema.ProgressEvent { return e.ch }

// Dropped returns how many events were discarded because nobody was reading.
func (e *Emitter) Dropped() int64 { return e.dropped.Load() }

// Close ends the stream. Later Publish calls are ignored.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
