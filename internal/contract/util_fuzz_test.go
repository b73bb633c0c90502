package contract

import (
	"strings"
	"testing"
)

// FuzzShouldIgnore fuzzes the ShouldIgnore function with random paths and exclude patterns.
func FuzzShouldIgnore(f *testing.F) {
	seeds := []struct {
		path     string
		excludes string // comma-separated
	}{
		{"/home/a/syllabus.pdf", "*.log"},
		{"/home/a/node_modules/x.js", "node_modules/"},
		{"draft.tmp", ".tmp"},
		{"", ""},
		{"very/long/path/to/file.txt", "**/temp/**"},
	}
	for _, seed := range seeds {
		f.Add(seed.path, seed.excludes)
	}

	f.Fuzz(func(_ *testing.T, path string, excludesStr string) {
		_ = ShouldIgnore(path, strings.Split(excludesStr, ","))
	})
}

// FuzzParseDateBound checks that date parsing never panics.
func FuzzParseDateBound(f *testing.F) {
	for _, seed := range []string{"2024-05-01", "2024-05-01T10:00:00Z", "3 days ago", "", "garbage"} {
		f.Add(seed, true)
	}

	f.Fuzz(func(_ *testing.T, s string, upper bool) {
		_, _ = ParseDateBound(s, fixedNow, upper)
	})
}
