package collect

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/evidence/internal/archive"
	"github.com/huangsam/evidence/internal/contract"
	"github.com/huangsam/evidence/schema"
)

// addPathList reads one path per line. Blank lines and lines starting with
// '#' are skipped. Relative entries are resolved against the list's directory.
func (c *collector) addPathList(ctx context.Context, list string) error {
	f, err := os.Open(list)
	if err != nil {
		c.rc.WarnErr(list, &contract.PathError{Path: list, Err: err})
		return nil
	}
	defer func() { _ = f.Close() }()

	base := filepath.Dir(list)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}
		if err := c.addPath(ctx, line); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		c.rc.WarnErr(list, &contract.PathError{Path: list, Err: err})
	}
	return nil
}

// addArchive walks an mbox or ics archive, storing each item's text in the
// run's item store. An archive that cannot be read at all is a single warning.
func (c *collector) addArchive(ctx context.Context, path string, source schema.Source) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	canon, ok := c.canonical(path)
	if !ok {
		return nil
	}
	if _, dup := c.seen[canon]; dup {
		return nil
	}
	c.seen[canon] = struct{}{}

	f, err := os.Open(canon)
	if err != nil {
		c.rc.WarnErr(canon, &contract.ArchiveError{Archive: canon, Err: err})
		return nil
	}
	defer func() { _ = f.Close() }()

	walk, ext := archive.WalkMbox, schema.MailItemExt
	if source == schema.ICSSource {
		walk, ext = archive.WalkICS, schema.CalendarItemExt
	}

	var items int
	visit := func(it archive.Item) error {
		if !c.keep(int64(len(it.Text)), it.When) {
			return nil
		}
		rec := schema.FileRecord{
			ID:        fmt.Sprintf("%s#%d", canon, it.Index),
			Path:      canon,
			Index:     it.Index,
			Title:     it.Title,
			SizeBytes: int64(len(it.Text)),
			ModTime:   it.When,
			Source:    source,
			Ext:       ext,
		}
		if c.rc.Items != nil {
			c.rc.Items.Put(rec.ID, it.Text)
		}
		items++
		c.append(rec)
		return nil
	}
	skip := func(index int, err error) {
		c.rc.Warn(schema.ArchiveWarning, fmt.Sprintf("%s#%d", canon, index), "",
			fmt.Sprintf("skipped malformed %s item #%d: %v", source, index, err))
	}

	err = walk(ctx, f, visit, skip)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		c.rc.WarnErr(canon, &contract.ArchiveError{Archive: canon, Err: err})
	}
	c.rc.Logger.Sugar().Debugf("Read %d %s items from %s", items, source, canon)
	return nil
}
