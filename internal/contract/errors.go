package contract

import (
	"errors"
	"fmt"
)

// ExtractionReason classifies why a record produced no text.
type ExtractionReason string

// All extraction failure reasons.
const (
	ReasonCorrupt     ExtractionReason = "corrupt"
	ReasonEncrypted   ExtractionReason = "encrypted"
	ReasonUnsupported ExtractionReason = "unsupported"
	ReasonTimeout     ExtractionReason = "timeout"
	ReasonIO          ExtractionReason = "io"
)

// ConfigError is fatal and raised before any scanning starts.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %v", e.Err)
	}
	return fmt.Sprintf("config error in %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError builds a ConfigError with a formatted message.
func NewConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}

// PathError marks a single unreadable or missing path.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path %s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// ExtractionError marks a single record whose content could not be extracted.
type ExtractionError struct {
	Path   string
	Reason ExtractionReason
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extract %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("extract %s: %s: %v", e.Path, e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// NewExtractionError builds an ExtractionError.
func NewExtractionError(path string, reason ExtractionReason, err error) *ExtractionError {
	return &ExtractionError{Path: path, Reason: reason, Err: err}
}

// ArchiveError marks an mbox or ics archive that could not be read at all.
type ArchiveError struct {
	Archive string
	Err     error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %s: %v", e.Archive, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// IsConfigError reports whether err carries a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// ReasonOf returns the extraction reason carried by err, or ReasonCorrupt.
func ReasonOf(err error) ExtractionReason {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee.Reason
	}
	return ReasonCorrupt
}
