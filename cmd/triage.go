package cmd

import (
	"github.com/huangsam/evidence/core"
	"github.com/spf13/cobra"
)

// triageCmd runs pass 1 and stops for a selection.
var triageCmd = &cobra.Command{
	Use:   "triage [root...]",
	Short: "Categorize records on metadata and write the snapshot.",
	Long: `Run pass 1 only. Every record is scored per category from its name, folder,
extension, age and size. No file content is opened.

The snapshot is written to --snapshot (default <out>/pass1_categorized.json)
so that a later 'extract' can continue with a chosen subset of categories.

Examples:
  # Triage a folder tree
  evidence triage ~/Documents

  # Raise the bar for inclusion
  evidence triage ~/Documents --threshold 4

  # Triage paths listed in a file
  evidence triage --path-list paths.txt`,
	PreRunE: requireSources,
	Run:     runWith(core.ExecuteTriage),
}
