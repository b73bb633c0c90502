// Package collect turns roots, path-list files and mail/calendar archives
// into the deduplicated, filtered list of FileRecords a scan works on.
package collect

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/huangsam/evidence/internal/contract"
	"github.com/huangsam/evidence/internal/rules"
	"github.com/huangsam/evidence/internal/runctx"
	"github.com/huangsam/evidence/schema"
)

// Options are the collector inputs and filters.
type Options struct {
	Roots     []string
	PathLists []string
	Mboxes    []string
	Calendars []string

	Since    time.Time // zero means unbounded
	Until    time.Time // zero means unbounded
	MaxBytes int64     // zero means unlimited

	Policy      *rules.ExtensionPolicy
	ExcludeDirs []string // directory names pruned anywhere in a walk
	Excludes    []string // patterns understood by contract.ShouldIgnore
}

// OptionsFromConfig combines the validated config with the compiled rules.
// A --only-ext list replaces the rules allow-list.
func OptionsFromConfig(cfg *contract.Config, rs *rules.RuleSet) Options {
	policy := rs.Policy
	if len(cfg.Extensions) > 0 {
		policy = policy.WithAllowList(cfg.Extensions)
	}
	return Options{
		Roots:       cfg.Roots,
		PathLists:   cfg.PathLists,
		Mboxes:      cfg.Mboxes,
		Calendars:   cfg.Calendars,
		Since:       cfg.Since,
		Until:       cfg.Until,
		MaxBytes:    cfg.MaxBytes,
		Policy:      policy,
		ExcludeDirs: rs.ExcludeDirs,
		Excludes:    cfg.Excludes,
	}
}

// collector carries the state of one Collect call.
type collector struct {
	rc   *runctx.RunContext
	opts Options
	seen map[string]struct{}
	out  []schema.FileRecord
}

// Collect gathers records in first-seen order. Unreadable paths, malformed
// archive items and unreadable archives become warnings on rc. The only
// error returned is a context error, together with the records found so far.
func Collect(ctx context.Context, rc *runctx.RunContext, opts Options) ([]schema.FileRecord, error) {
	if opts.Policy == nil {
		opts.Policy = rules.DefaultPolicy()
	}
	c := &collector{rc: rc, opts: opts, seen: map[string]struct{}{}}

	for _, root := range opts.Roots {
		if err := c.addPath(ctx, root); err != nil {
			return c.out, err
		}
	}
	for _, list := range opts.PathLists {
		if err := c.addPathList(ctx, list); err != nil {
			return c.out, err
		}
	}
	for _, mbox := range opts.Mboxes {
		if err := c.addArchive(ctx, mbox, schema.MboxSource); err != nil {
			return c.out, err
		}
	}
	for _, ics := range opts.Calendars {
		if err := c.addArchive(ctx, ics, schema.ICSSource); err != nil {
			return c.out, err
		}
	}
	rc.Logger.Debug("Collected records")
	return c.out, nil
}

// addPath adds a file, or walks a directory.
func (c *collector) addPath(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		c.rc.WarnErr(path, &contract.PathError{Path: path, Err: err})
		return nil
	}
	info, err := os.Stat(abs)
	if err != nil {
		c.rc.WarnErr(abs, &contract.PathError{Path: abs, Err: err})
		return nil
	}
	if !info.IsDir() {
		c.addFile(abs, info)
		return nil
	}
	return c.walk(ctx, abs)
}

func (c *collector) walk(ctx context.Context, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			c.rc.WarnErr(path, &contract.PathError{Path: path, Err: err})
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && c.prune(path, d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if contract.ShouldIgnore(path, c.opts.Excludes) {
			return nil
		}

		info, err := os.Stat(path) // follows symlinks
		if err != nil {
			c.rc.WarnErr(path, &contract.PathError{Path: path, Err: err})
			return nil
		}
		if info.IsDir() {
			// Symlinked directories are not followed.
			return nil
		}
		c.addFile(path, info)
		return nil
	})
}

// prune reports whether a directory is excluded by name or pattern.
func (c *collector) prune(path, name string) bool {
	for _, ex := range c.opts.ExcludeDirs {
		if strings.EqualFold(strings.Trim(ex, "/"), name) {
			return true
		}
	}
	return contract.ShouldIgnore(path+"/", c.opts.Excludes)
}

// addFile applies the conjunctive filters and records a filesystem file once.
func (c *collector) addFile(path string, info fs.FileInfo) {
	ext := schema.NormalizeExt(filepath.Ext(path))
	if !c.opts.Policy.Allowed(ext) {
		return
	}
	if !c.keep(info.Size(), info.ModTime()) {
		return
	}
	canon, ok := c.canonical(path)
	if !ok {
		return
	}
	if _, dup := c.seen[canon]; dup {
		return
	}
	c.seen[canon] = struct{}{}
	c.append(schema.FileRecord{
		ID:        canon,
		Path:      canon,
		Index:     -1,
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
		Source:    schema.FilesSource,
		Ext:       ext,
	})
}

// keep applies the size ceiling and the date window.
func (c *collector) keep(size int64, mod time.Time) bool {
	if c.opts.MaxBytes > 0 && size > c.opts.MaxBytes {
		return false
	}
	if !c.opts.Since.IsZero() && mod.Before(c.opts.Since) {
		return false
	}
	if !c.opts.Until.IsZero() && mod.After(c.opts.Until) {
		return false
	}
	return true
}

// canonical resolves symlinks so that every file has exactly one ID.
func (c *collector) canonical(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		c.rc.WarnErr(path, &contract.PathError{Path: path, Err: err})
		return "", false
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		c.rc.WarnErr(path, &contract.PathError{Path: path, Err: fmt.Errorf("broken symlink: %w", err)})
		return "", false
	}
	return resolved, true
}

func (c *collector) append(rec schema.FileRecord) {
	c.out = append(c.out, rec)
	c.rc.AddCollected(1)
	c.rc.Publish(schema.CollectingPathsState, rec.ID, len(c.out), 0)
}
