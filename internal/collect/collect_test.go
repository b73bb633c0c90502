package collect

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/evidence/internal/iocache"
	"github.com/huangsam/evidence/internal/rules"
	"github.com/huangsam/evidence/internal/runctx"
	"github.com/huangsam/evidence/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, size int, mod time.Time) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", size)), 0o644))
	if !mod.IsZero() {
		require.NoError(t, os.Chtimes(path, mod, mod))
	}
	return path
}

// tempDir returns a symlink-free temp directory so IDs compare cleanly.
func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func newRC(t *testing.T) *runctx.RunContext {
	t.Helper()
	items, err := iocache.NewItemStore(0)
	require.NoError(t, err)
	return runctx.New(nil, runctx.WithItems(items))
}

func ids(recs []schema.FileRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func TestCollectDedup(t *testing.T) {
	dir := tempDir(t)
	a := writeFile(t, filepath.Join(dir, "teaching", "syllabus.txt"), 10, time.Time{})
	require.NoError(t, os.Symlink(a, filepath.Join(dir, "alias.txt")))

	rc := newRC(t)
	recs, err := Collect(context.Background(), rc, Options{
		Roots: []string{dir, a, filepath.Join(dir, "teaching", "..", "teaching", "syllabus.txt")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{a}, ids(recs))
	assert.Equal(t, -1, recs[0].Index)
	assert.Equal(t, schema.FilesSource, recs[0].Source)
	assert.Equal(t, "txt", recs[0].Ext)
	assert.Equal(t, 1, rc.Totals().Collected)
}

func TestCollectMaxBytes(t *testing.T) {
	dir := tempDir(t)
	writeFile(t, filepath.Join(dir, "big.pdf"), 200, time.Time{})
	exact := writeFile(t, filepath.Join(dir, "exact.pdf"), 100, time.Time{})

	recs, err := Collect(context.Background(), newRC(t), Options{Roots: []string{dir}, MaxBytes: 100})
	require.NoError(t, err)
	assert.Equal(t, []string{exact}, ids(recs))

	recs, err = Collect(context.Background(), newRC(t), Options{Roots: []string{dir}})
	require.NoError(t, err)
	assert.Len(t, recs, 2, "zero max bytes means unlimited")
}

func TestCollectDateWindow(t *testing.T) {
	dir := tempDir(t)
	day := func(d int) time.Time { return time.Date(2024, 5, d, 12, 0, 0, 0, time.UTC) }
	writeFile(t, filepath.Join(dir, "early.txt"), 5, day(1))
	in := writeFile(t, filepath.Join(dir, "in.txt"), 5, day(10))
	writeFile(t, filepath.Join(dir, "late.txt"), 5, day(20))

	recs, err := Collect(context.Background(), newRC(t), Options{
		Roots: []string{dir},
		Since: day(5),
		Until: day(15),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{in}, ids(recs))
}

func TestCollectFilters(t *testing.T) {
	dir := tempDir(t)
	keep := writeFile(t, filepath.Join(dir, "notes.txt"), 5, time.Time{})
	writeFile(t, filepath.Join(dir, "song.mp3"), 5, time.Time{})
	writeFile(t, filepath.Join(dir, "node_modules", "readme.txt"), 5, time.Time{})
	writeFile(t, filepath.Join(dir, ".git", "HEAD.txt"), 5, time.Time{})
	writeFile(t, filepath.Join(dir, "~$draft.txt"), 5, time.Time{})
	writeFile(t, filepath.Join(dir, "Archive", "old.txt"), 5, time.Time{})

	recs, err := Collect(context.Background(), newRC(t), Options{
		Roots:       []string{dir},
		ExcludeDirs: []string{"node_modules", "archive"},
		Excludes:    []string{".git/", "~$*"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, ids(recs))
}

func TestCollectOnlyExt(t *testing.T) {
	dir := tempDir(t)
	writeFile(t, filepath.Join(dir, "a.txt"), 5, time.Time{})
	pdf := writeFile(t, filepath.Join(dir, "b.pdf"), 5, time.Time{})

	recs, err := Collect(context.Background(), newRC(t), Options{
		Roots:  []string{dir},
		Policy: rules.DefaultPolicy().WithAllowList([]string{".PDF"}),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{pdf}, ids(recs))
}

func TestCollectPathList(t *testing.T) {
	dir := tempDir(t)
	a := writeFile(t, filepath.Join(dir, "docs", "a.txt"), 5, time.Time{})
	b := writeFile(t, filepath.Join(dir, "b.md"), 5, time.Time{})
	list := filepath.Join(dir, "paths.txt")
	require.NoError(t, os.WriteFile(list, []byte("# spotlight export\n\ndocs/a.txt\n"+b+"\n"+a+"\n"), 0o644))

	recs, err := Collect(context.Background(), newRC(t), Options{PathLists: []string{list}})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, ids(recs))
}

func TestCollectDedupAcrossRootsAndPathList(t *testing.T) {
	dir := tempDir(t)
	a := writeFile(t, filepath.Join(dir, "docs", "syllabus.txt"), 5, time.Time{})
	list := filepath.Join(t.TempDir(), "paths.txt")
	require.NoError(t, os.WriteFile(list, []byte(a+"\n"), 0o644))

	rc := newRC(t)
	recs, err := Collect(context.Background(), rc, Options{Roots: []string{a}, PathLists: []string{list}})
	require.NoError(t, err)
	assert.Equal(t, []string{a}, ids(recs))
	assert.Equal(t, 1, rc.Totals().Collected)
}

func TestCollectWarnings(t *testing.T) {
	dir := tempDir(t)
	ok := writeFile(t, filepath.Join(dir, "ok.txt"), 5, time.Time{})
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing.txt"), filepath.Join(dir, "broken.txt")))

	rc := newRC(t)
	recs, err := Collect(context.Background(), rc, Options{
		Roots: []string{dir, filepath.Join(dir, "nope")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{ok}, ids(recs))

	ws := rc.Warnings()
	require.Len(t, ws, 2)
	for _, w := range ws {
		assert.Equal(t, schema.PathWarning, w.Kind)
	}
}

const testMbox = `From a@example.edu Mon Mar  3 10:00:00 2025
From: a@example.edu
Subject: Committee minutes
Date: Mon, 03 Mar 2025 10:00:00 +0000

Minutes of the committee.

From b@example.edu Tue Mar  4 10:00:00 2025
From: b@example.edu
Subject: undated

No date.

From c@example.edu Wed Mar  5 10:00:00 2025
From: c@example.edu
Subject: Syllabus
Date: Wed, 05 Mar 2025 10:00:00 +0000

The syllabus.
`

func TestCollectArchives(t *testing.T) {
	dir := tempDir(t)
	mbox := filepath.Join(dir, "inbox.mbox")
	require.NoError(t, os.WriteFile(mbox, []byte(testMbox), 0o644))
	badICS := filepath.Join(dir, "bad.ics")
	require.NoError(t, os.WriteFile(badICS, []byte("not a calendar\n"), 0o644))
	ics := filepath.Join(dir, "cal.ics")
	require.NoError(t, os.WriteFile(ics, []byte("BEGIN:VCALENDAR\nBEGIN:VEVENT\nDTSTART:20250310T100000Z\nSUMMARY:Senate\nEND:VEVENT\nEND:VCALENDAR\n"), 0o644))

	rc := newRC(t)
	recs, err := Collect(context.Background(), rc, Options{
		Mboxes:    []string{mbox, mbox},
		Calendars: []string{badICS, ics},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{mbox + "#0", mbox + "#2", ics + "#0"}, ids(recs))

	first := recs[0]
	assert.Equal(t, schema.MboxSource, first.Source)
	assert.Equal(t, schema.MailItemExt, first.Ext)
	assert.Equal(t, "Committee minutes", first.Title)
	assert.Equal(t, mbox, first.Path)
	assert.True(t, first.IsArchiveItem())
	assert.Equal(t, schema.CalendarItemExt, recs[2].Ext)

	text, ok := rc.Items.Get(mbox + "#2")
	require.True(t, ok)
	assert.Contains(t, text, "The syllabus.")
	assert.Equal(t, 3, rc.Items.Len())

	var kinds []schema.WarningKind
	for _, w := range rc.Warnings() {
		kinds = append(kinds, w.Kind)
	}
	assert.Equal(t, []schema.WarningKind{schema.ArchiveWarning, schema.ArchiveWarning}, kinds)
}

func TestCollectArchiveItemsUseOwnTimestamp(t *testing.T) {
	dir := tempDir(t)
	mbox := filepath.Join(dir, "inbox.mbox")
	require.NoError(t, os.WriteFile(mbox, []byte(testMbox), 0o644))

	recs, err := Collect(context.Background(), newRC(t), Options{
		Mboxes: []string{mbox},
		Since:  time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{mbox + "#2"}, ids(recs))
}

func TestCollectCancelled(t *testing.T) {
	dir := tempDir(t)
	writeFile(t, filepath.Join(dir, "a.txt"), 5, time.Time{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	recs, err := Collect(ctx, newRC(t), Options{Roots: []string{dir}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, recs)
}
