package iocache

import (
	"fmt"
	"io"
)

// Status describes the archive item cache after a run.
type Status struct {
	Entries   int
	Capacity  int
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Status) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// PrintCacheStatus prints cache status information.
func PrintCacheStatus(w io.Writer, s Status) {
	_, _ = fmt.Fprintf(w, "Archive Cache Entries: %d / %d\n", s.Entries, s.Capacity)
	if s.Hits+s.Misses == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "Lookups: %d hits, %d misses (%.0f%%)\n", s.Hits, s.Misses, 100*s.HitRate())
	if s.Evictions > 0 {
		_, _ = fmt.Fprintf(w, "Evicted: %d (items re-read from their archive)\n", s.Evictions)
	}
}
