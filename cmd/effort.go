package cmd

import (
	"github.com/huangsam/evidence/core"
	"github.com/spf13/cobra"
)

// effortCmd estimates authoring time for creative formats.
var effortCmd = &cobra.Command{
	Use:   "effort [root...]",
	Short: "Estimate authoring hours for versioned creative work.",
	Long: `Group creative files (scores, DAW projects, 3D scenes, drafts) into families
by stripping version suffixes, then turn their save times into sessions.

Sessions split wherever two saves are at least --idle-gap apart and are
clamped to [--min-session, --max-session]. A family with a single version
gets a flat per-kind estimate with low confidence.

Writes effort.json to --out. No file content is opened.

Examples:
  # Estimate effort for a compositions folder
  evidence effort ~/Music/Scores

  # Treat two hours without a save as a break
  evidence effort ~/Projects --idle-gap 2h --max-session 3h`,
	PreRunE: requireSources,
	Run:     runWith(core.ExecuteEffort),
}
