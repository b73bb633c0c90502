package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/evidence/internal/rules"
	"github.com/stretchr/testify/require"
)

const testRules = `
categories:
  teaching:
    syllabus:
      any: ["syllabus"]
    rubric:
      any: ["rubric", "grading criteria"]
  service:
    review:
      any: ["peer review"]
      bonus: ["editor"]
    committee:
      any: ["committee minutes", "faculty senate"]
  scholarship:
    publication:
      any: ["manuscript", "journal article"]
scoring:
  hit_cap: 50
`

// mustRules compiles a YAML rules document.
func mustRules(t testing.TB, doc string) *rules.RuleSet {
	t.Helper()
	parsed, err := rules.Parse([]byte(doc), "yaml")
	require.NoError(t, err)
	rs, err := rules.Compile(parsed)
	require.NoError(t, err)
	return rs
}

// writeFixture writes content under dir and stamps its modification time.
func writeFixture(t *testing.T, dir, rel, content string, mod time.Time) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	if !mod.IsZero() {
		require.NoError(t, os.Chtimes(path, mod, mod))
	}
	return path
}

// tempDir returns a symlink-free temp directory so record IDs compare cleanly.
func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}
