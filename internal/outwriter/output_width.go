package outwriter

import (
	"os"

	"github.com/huangsam/evidence/internal/contract"
	"golang.org/x/term"
)

// Path column bounds for console tables.
const (
	minPathWidth = 15
	maxPathWidth = 70
)

// terminalWidth returns the --width override, the detected terminal width,
// or 80 when stdout is not a terminal.
func terminalWidth(cfg *contract.Config) int {
	if cfg.Width > 0 {
		return cfg.Width
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80 // Conservative default for narrow terminals and CI
}

// pathWidth calculates the maximum width for paths in a table whose other
// columns take fixedWidth characters including borders and padding.
func pathWidth(cfg *contract.Config, fixedWidth int) int {
	available := terminalWidth(cfg) - fixedWidth
	return max(minPathWidth, min(maxPathWidth, available))
}
