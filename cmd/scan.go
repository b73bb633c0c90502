package cmd

import (
	"github.com/huangsam/evidence/core"
	"github.com/spf13/cobra"
)

// scanCmd runs both passes in one go.
var scanCmd = &cobra.Command{
	Use:   "scan [root...]",
	Short: "Triage and extract in one run, then write every report.",
	Long: `Collect records from the given roots and archives, triage them on metadata,
then extract and score the content of every candidate.

Writes to --out:
- evidence.csv and summary.csv
- report.html grouped by source, category and subcategory
- effort.json for creative formats
- pass1_categorized.json, the triage snapshot
- evidence.parquet and summary.parquet with --export-parquet

Ctrl-C stops the run between files and still writes partial reports.

Examples:
  # Scan a documents folder with the default rules.yml
  evidence scan ~/Documents

  # Scan mail and a calendar as well
  evidence scan ~/Documents --mbox ~/mail/inbox.mbox --ics ~/cal/work.ics

  # Only extract what triage included, and only this year
  evidence scan ~/Documents --gate --modified-since 2024-01-01

  # Credit mail you sent yourself
  evidence scan --mbox sent.mbox --owner-email me@uni.edu`,
	PreRunE: requireSources,
	Run:     runWith(core.ExecuteFull),
}
