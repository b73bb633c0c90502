// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"

	"github.com/huangsam/evidence/schema"
)

// Extractor turns one record into plain text.
// Implementations are registered per handler tag and must be safe for concurrent use.
type Extractor interface {
	// Extract returns the text of the record, possibly empty, or an *ExtractionError.
	Extract(ctx context.Context, rec schema.FileRecord) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, rec schema.FileRecord) (string, error)

// Extract calls f(ctx, rec).
func (f ExtractorFunc) Extract(ctx context.Context, rec schema.FileRecord) (string, error) {
	return f(ctx, rec)
}

// ItemStore holds the text of archive items parsed by the collector so that
// pass 2 does not have to re-read the archive.
type ItemStore interface {
	Get(id string) (string, bool)
	Put(id string, text string)
	Len() int
}

// ProgressSink receives progress events. Publish must never block.
type ProgressSink interface {
	Publish(ev schema.ProgressEvent)
}
