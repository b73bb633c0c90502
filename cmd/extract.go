package cmd

import (
	"github.com/huangsam/evidence/core"
	"github.com/spf13/cobra"
)

// extractCmd resumes from a triage snapshot.
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run pass 2 on the records selected in a triage snapshot.",
	Long: `Load the snapshot written by 'triage' and extract the candidates that were
included and whose category is in --categories (all categories by default).

A snapshot produced with different rules still loads; the run logs a warning.

Examples:
  # Extract everything triage included
  evidence extract

  # Only teaching and service evidence
  evidence extract --categories Teaching,Service

  # Use a snapshot from elsewhere
  evidence extract --snapshot /tmp/pass1_categorized.json --out /tmp/report`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run:     runWith(core.ExecuteResume),
}
