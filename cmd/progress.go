package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/huangsam/evidence/internal/contract"
	"github.com/huangsam/evidence/schema"
)

// progressWidth bounds the path shown on the progress line.
const progressWidth = 48

// progressLine renders progress events as a single line rewritten in place.
// A disabled line still drains the stream so publishers never block.
type progressLine struct {
	w        io.Writer
	enabled  bool
	interval time.Duration
	last     time.Time
	drawn    bool
}

func newProgressLine(w io.Writer, enabled bool) *progressLine {
	return &progressLine{w: w, enabled: enabled, interval: 100 * time.Millisecond}
}

// Consume reads events until the channel is closed.
func (p *progressLine) Consume(events <-chan schema.ProgressEvent) {
	for ev := range events {
		if !p.enabled {
			continue
		}
		now := time.Now()
		if p.drawn && now.Sub(p.last) < p.interval && ev.Processed < ev.Total {
			continue
		}
		p.last = now
		p.render(ev)
	}
	if p.drawn {
		_, _ = fmt.Fprint(p.w, "\r\033[K")
	}
}

func (p *progressLine) render(ev schema.ProgressEvent) {
	_, _ = fmt.Fprintf(p.w, "\r\033[K%s", formatProgress(ev))
	p.drawn = true
}

// formatProgress returns the text of one progress line.
func formatProgress(ev schema.ProgressEvent) string {
	counter := fmt.Sprintf("%d", ev.Processed)
	if ev.Total > 0 {
		counter = fmt.Sprintf("%d/%d", ev.Processed, ev.Total)
	}
	line := fmt.Sprintf("[%s] %s matched=%d %s", ev.Stage, counter, ev.Matched, ev.Elapsed.Round(time.Second))
	if ev.Path != "" {
		line += " " + contract.TruncatePath(ev.Path, progressWidth)
	}
	return line
}
