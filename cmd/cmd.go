// Package cmd defines the command-line interface for evidence.
package cmd

import (
	"github.com/huangsam/evidence/internal/contract"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(triageCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(effortCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the rules subcommands to the parent rules command
	rulesCmd.AddCommand(rulesCheckCmd)

	// Sources
	rootCmd.PersistentFlags().String("path-list", "", "Comma-separated files listing one path per line")
	rootCmd.PersistentFlags().String("mbox", "", "Comma-separated mbox archives to scan")
	rootCmd.PersistentFlags().String("ics", "", "Comma-separated iCalendar files to scan")

	// Filters
	rootCmd.PersistentFlags().String("modified-since", "", "Only records modified on or after this date (YYYY-MM-DD, RFC3339 or time ago)")
	rootCmd.PersistentFlags().String("modified-until", "", "Only records modified on or before this date (bare days are inclusive)")
	rootCmd.PersistentFlags().Int64("max-bytes", contract.DefaultMaxBytes, "Skip files larger than this many bytes (0 = no limit)")
	rootCmd.PersistentFlags().String("only-ext", "", "Comma-separated extensions replacing the rules allow-list")
	rootCmd.PersistentFlags().String("exclude", "", "Comma-separated list of path prefixes or patterns to ignore")
	rootCmd.PersistentFlags().String("categories", "", "Comma-separated categories to extract (default all)")
	rootCmd.PersistentFlags().Float64("threshold", contract.DefaultThreshold, "Triage score a record must exceed to be included")
	rootCmd.PersistentFlags().Bool("gate", false, "Only extract records included by triage")

	// Files and directories
	rootCmd.PersistentFlags().String("rules", contract.DefaultRulesPath, "Path to the rules file (yaml or json)")
	rootCmd.PersistentFlags().StringP("out", "o", contract.DefaultOutDir, "Directory for reports")
	rootCmd.PersistentFlags().String("snapshot", "", "Triage snapshot path (default <out>/pass1_categorized.json)")

	// Execution
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	rootCmd.PersistentFlags().String("timeout", contract.DefaultTimeout.String(), "Per-file extraction timeout")
	rootCmd.PersistentFlags().Int("max-text-bytes", contract.DefaultMaxTextBytes, "Maximum extracted text kept per record")

	// Mail provenance
	rootCmd.PersistentFlags().String("owner-email", "", "Comma-separated addresses that mark mail as your own")
	rootCmd.PersistentFlags().Float64("provenance-score", contract.DefaultProvenanceScore, "Bonus added to hits in mail from an owner address")

	// Effort
	rootCmd.PersistentFlags().String("idle-gap", contract.DefaultIdleGap.String(), "Gap between saves that starts a new session")
	rootCmd.PersistentFlags().String("min-session", contract.DefaultMinSession.String(), "Shortest credited session")
	rootCmd.PersistentFlags().String("max-session", contract.DefaultMaxSession.String(), "Longest credited session")

	// Output
	rootCmd.PersistentFlags().Bool("export-parquet", false, "Also write evidence.parquet and summary.parquet")
	rootCmd.PersistentFlags().IntP("limit", "l", contract.DefaultResultLimit, "Number of rows in console tables")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress console tables and the progress line")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}
}
