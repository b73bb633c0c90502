package contract

import (
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// Evidence strength label constants.
const (
	StrongValue   = "Strong"   // Strong evidence
	SolidValue    = "Solid"    // Solid evidence
	ModerateValue = "Moderate" // Moderate evidence
	WeakValue     = "Weak"     // Weak evidence
)

// Color variables for console output.
var (
	StrongColor   = color.New(color.FgGreen, color.Bold) // StrongColor marks the best-supported evidence.
	SolidColor    = color.New(color.FgCyan, color.Bold)  // SolidColor marks well-supported evidence.
	ModerateColor = color.New(color.FgYellow)            // ModerateColor marks evidence worth a second look.
	WeakColor     = color.New(color.FgWhite)             // WeakColor marks incidental matches.
	WarnColor     = color.New(color.FgRed, color.Bold)   // WarnColor highlights warning counts.
)

// categoryPalette colors category names in console tables.
var categoryPalette = []*color.Color{
	color.New(color.FgBlue, color.Bold),
	color.New(color.FgMagenta, color.Bold),
	color.New(color.FgGreen),
	color.New(color.FgCyan),
	color.New(color.FgYellow),
}

// GetPlainLabel returns a plain text label for an evidence score.
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(score float64) string {
	switch {
	case score >= 20:
		return StrongValue
	case score >= 10:
		return SolidValue
	case score >= 3:
		return ModerateValue
	default:
		return WeakValue
	}
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(score float64) string {
	text := GetPlainLabel(score)

	switch text {
	case StrongValue:
		return StrongColor.Sprint(text)
	case SolidValue:
		return SolidColor.Sprint(text)
	case ModerateValue:
		return ModerateColor.Sprint(text)
	default:
		return WeakColor.Sprint(text)
	}
}

// ColorCategory returns the category name in a stable color.
func ColorCategory(category string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(category)))
	return categoryPalette[h.Sum32()%uint32(len(categoryPalette))].Sprint(category)
}

// ShouldIgnore returns true if the given path matches any of the exclude patterns.
// It supports simple glob patterns (using filepath.Match) when the pattern
// contains wildcard characters (*, ?, [ ]). Patterns ending with '/' are treated
// as directory names anywhere in the path. Patterns starting with '.' are treated
// as suffix (extension) matches.
func ShouldIgnore(path string, excludes []string) bool {
	slashed := filepath.ToSlash(path)
	for _, ex := range excludes {
		ex = strings.TrimSpace(ex)
		if ex == "" {
			continue
		}

		if strings.ContainsAny(ex, "*?[") {
			pat := strings.ReplaceAll(ex, "**", "*")
			if ok, err := filepath.Match(pat, slashed); err == nil && ok {
				return true
			}
			if ok, err := filepath.Match(pat, filepath.Base(path)); err == nil && ok {
				return true
			}
			continue
		}

		switch {
		case strings.HasSuffix(ex, "/"):
			if strings.HasPrefix(slashed, ex) || strings.Contains(slashed, "/"+ex) {
				return true
			}
		case strings.HasPrefix(ex, "."):
			if strings.HasSuffix(strings.ToLower(slashed), strings.ToLower(ex)) {
				return true
			}
		case strings.Contains(slashed, ex):
			return true
		}
	}
	return false
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	logWarnTo(os.Stderr, msg, err)
}

func logWarnTo(w io.Writer, msg string, err error) {
	_, _ = fmt.Fprintf(w, "Warn %s: %v\n", msg, err)
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 to ensure there's space for both the "..." prefix and at least one character of content.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// SplitList splits a comma-separated flag value, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
