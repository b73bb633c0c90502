package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/huangsam/evidence/internal/contract"
	"github.com/huangsam/evidence/internal/rules"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// rulesCmd is the parent command for rules file helpers.
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect rules files.",
	Long:  `Helpers for writing and debugging the rules file that drives triage and scoring.`,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// rulesCheckCmd compiles a rules file and prints what it contains.
var rulesCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Compile a rules file and print its categories.",
	Long: `Load and compile a rules file (yaml or json) without scanning anything.

Every regex is compiled, so a broken pattern is reported with its category and
subcategory. On success a table lists each category with its subcategories,
pattern counts and weights, followed by the rules digest that snapshots record.

Examples:
  # Check the default rules.yml
  evidence rules check

  # Check another file
  evidence rules check ~/evidence/rules.json`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := contract.DefaultRulesPath
		if len(args) == 1 {
			path = args[0]
		}
		rs, err := rules.LoadAndCompile(path)
		if err != nil {
			contract.LogFatal("Invalid rules file", err)
		}
		if err := printRuleSet(cmd.OutOrStdout(), path, rs); err != nil {
			contract.LogFatal("Cannot print rules", err)
		}
	},
}

// printRuleSet renders one row per subcategory.
func printRuleSet(w io.Writer, path string, rs *rules.RuleSet) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Category", "Weight", "Subcategory", "Patterns", "Bonus", "Sub Weight"})
	var data [][]string
	for _, c := range rs.Categories {
		for _, s := range c.Subcategories {
			data = append(data, []string{
				c.Name,
				strconv.FormatFloat(c.Weight, 'f', -1, 64),
				s.Name,
				strconv.Itoa(len(s.Patterns)),
				strconv.Itoa(len(s.Bonus)),
				strconv.FormatFloat(s.Weight, 'f', -1, 64),
			})
		}
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	scoreCap := "none"
	if rs.ScoreCap > 0 {
		scoreCap = strconv.FormatFloat(rs.ScoreCap, 'f', -1, 64)
	}
	_, err := fmt.Fprintf(w, "%s: %d categories, hit cap %d, score cap %s, %d global bonus terms\nExtensions: %s\nDigest: %s\n",
		path, len(rs.Categories), rs.HitCap, scoreCap, len(rs.GlobalBonus),
		strings.Join(rs.Policy.Extensions(), ", "), rs.Digest())
	return err
}
