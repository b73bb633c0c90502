package archive

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

// icsComponents are the calendar components that become items.
var icsComponents = map[string]struct{}{
	ical.CompEvent:   {},
	ical.CompToDo:    {},
	ical.CompJournal: {},
}

// icsTextProps are rendered into the item text in this order.
var icsTextProps = []string{
	ical.PropSummary,
	ical.PropLocation,
	ical.PropCategories,
	ical.PropOrganizer,
	ical.PropDescription,
}

// icsEnvelope wraps a single component so it decodes as a calendar.
const (
	icsEnvelopeBegin = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//evidence//archive//EN\r\n"
	icsEnvelopeEnd   = "END:VCALENDAR\r\n"
)

// icsBlock holds the raw lines of one top-level component.
type icsBlock struct {
	kind  string
	index int
	lines []string
	depth int // nesting of sub-components such as VALARM
}

// WalkICS reads calendar components sequentially. Every VEVENT, VTODO and
// VJOURNAL consumes one ordinal, well-formed or not. Each component is
// decoded on its own so a broken one never hides its neighbors.
func WalkICS(ctx context.Context, r io.Reader, visit Visit, skip Skip) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	header := false
	index := 0
	var cur *icsBlock

	unterminated := func(b *icsBlock) {
		if skip != nil {
			skip(b.index, fmt.Errorf("%s not terminated", b.kind))
		}
	}

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		marker, kind := boundary(line)
		if !header {
			if marker != "BEGIN" || kind != ical.CompCalendar {
				return fmt.Errorf("%w: expected BEGIN:VCALENDAR", ErrMalformedArchive)
			}
			header = true
			continue
		}

		_, wanted := icsComponents[kind]
		if marker == "BEGIN" && wanted && (cur == nil || cur.depth == 0) {
			if cur != nil {
				unterminated(cur)
			}
			cur = &icsBlock{kind: kind, index: index, lines: []string{line}}
			index++
			continue
		}
		if cur == nil {
			continue
		}

		cur.lines = append(cur.lines, line)
		switch marker {
		case "BEGIN":
			cur.depth++
		case "END":
			if cur.depth > 0 {
				cur.depth--
				continue
			}
			if kind != cur.kind {
				continue
			}
			item, err := cur.item()
			cur = nil
			if err != nil {
				if skip != nil {
					skip(item.Index, err)
				}
				continue
			}
			if err := visit(item); err != nil {
				return err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read calendar: %w", err)
	}
	if !header {
		return fmt.Errorf("%w: empty calendar", ErrMalformedArchive)
	}
	if cur != nil {
		unterminated(cur)
	}
	return nil
}

// FindICSItem re-reads the calendar at path and returns the component with the given ordinal.
func FindICSItem(ctx context.Context, path string, index int) (Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return Item{}, err
	}
	defer func() { _ = f.Close() }()
	return find(ctx, func(visit Visit, skip Skip) error { return WalkICS(ctx, f, visit, skip) }, index)
}

// boundary reports the BEGIN or END marker of a line and the component
// name it opens or closes. Folded continuation lines are never markers.
func boundary(line string) (marker, kind string) {
	if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
		return "", ""
	}
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", ""
	}
	switch marker = strings.ToUpper(strings.TrimSpace(name)); marker {
	case "BEGIN", "END":
		return marker, strings.ToUpper(strings.TrimSpace(value))
	}
	return "", ""
}

// item decodes the block and renders its text. The returned Item always
// carries the block's ordinal.
func (b *icsBlock) item() (Item, error) {
	var sb strings.Builder
	sb.WriteString(icsEnvelopeBegin)
	for _, l := range b.lines {
		sb.WriteString(l)
		sb.WriteString("\r\n")
	}
	sb.WriteString(icsEnvelopeEnd)

	cal, err := ical.NewDecoder(strings.NewReader(sb.String())).Decode()
	if err != nil {
		return Item{Index: b.index}, fmt.Errorf("%s #%d: %w", b.kind, b.index, err)
	}
	if len(cal.Children) == 0 {
		return Item{Index: b.index}, fmt.Errorf("%s #%d: empty component", b.kind, b.index)
	}
	item, err := componentItem(cal.Children[0])
	if err != nil {
		return Item{Index: b.index}, fmt.Errorf("%s #%d: %w", b.kind, b.index, err)
	}
	item.Index = b.index
	return item, nil
}

// componentItem picks the component's timestamp and renders its text properties.
func componentItem(comp *ical.Component) (Item, error) {
	var when time.Time
	var err error
	switch {
	case comp.Props.Get(ical.PropDateTimeStart) != nil:
		when, err = propTime(comp.Props.Get(ical.PropDateTimeStart))
	case comp.Props.Get(ical.PropDue) != nil:
		when, err = propTime(comp.Props.Get(ical.PropDue))
	case comp.Props.Get(ical.PropDateTimeStamp) != nil:
		when, err = propTime(comp.Props.Get(ical.PropDateTimeStamp))
	default:
		err = errors.New("no DTSTART, DUE or DTSTAMP")
	}
	if err != nil {
		return Item{}, err
	}

	var b strings.Builder
	for _, name := range icsTextProps {
		if v := propText(comp.Props.Get(name)); v != "" {
			fmt.Fprintf(&b, "%s: %s\n", strings.ToLower(name), v)
		}
	}
	return Item{
		Title: propText(comp.Props.Get(ical.PropSummary)),
		When:  when,
		Text:  b.String(),
	}, nil
}

// propTime reads DATE and DATE-TIME values. Unknown TZID names and untyped
// dates fall back to UTC.
func propTime(p *ical.Prop) (time.Time, error) {
	t, err := p.DateTime(time.UTC)
	if err == nil {
		return t, nil
	}
	for _, layout := range []string{"20060102T150405", "20060102"} {
		if t, perr := time.ParseInLocation(layout, strings.TrimSpace(p.Value), time.UTC); perr == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid %s value %q: %w", p.Name, p.Value, err)
}

// propText returns the unescaped text of p, or its raw value for
// non-text types such as CAL-ADDRESS.
func propText(p *ical.Prop) string {
	if p == nil {
		return ""
	}
	if v, err := p.Text(); err == nil {
		return v
	}
	return p.Value
}
