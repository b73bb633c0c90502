package outwriter

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/huangsam/evidence/core/algo"
	"github.com/huangsam/evidence/internal/contract"
	"github.com/huangsam/evidence/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintRunResults prints the summary table, the top folders and a footer.
func PrintRunResults(w io.Writer, res *schema.RunResult, cfg *contract.Config) error {
	if cfg.Quiet {
		return nil
	}
	fmtFloat := createFormatters(cfg.Precision)

	if len(res.Summary) > 0 {
		table := newTable(w)
		table.Header([]string{"Source", "Category", "Subcategory", "Count"})
		var data [][]string
		for _, r := range res.Summary {
			data = append(data, []string{
				string(r.Source),
				contract.ColorCategory(r.Category),
				r.Subcategory,
				strconv.Itoa(r.Count),
			})
		}
		if err := renderTable(table, data); err != nil {
			return err
		}
	}

	folders := algo.RankFolders(res.Folders, cfg.ResultLimit)
	if len(folders) > 0 {
		table := newTable(w)
		table.Header([]string{"Rank", "Folder", "Files", "Hits", "Score", "Label", "Top Category"})
		width := pathWidth(cfg, 75)
		var data [][]string
		for i, f := range folders {
			data = append(data, []string{
				strconv.Itoa(i + 1),
				contract.TruncatePath(f.Path, width),
				strconv.Itoa(f.Files),
				strconv.Itoa(f.Hits),
				fmtFloat(f.Score),
				contract.GetColorLabel(f.Score),
				contract.ColorCategory(f.TopCategory),
			})
		}
		if err := renderTable(table, data); err != nil {
			return err
		}
	}

	state := "complete"
	if res.Cancelled {
		state = contract.WarnColor.Sprint("cancelled (partial results)")
	}
	if _, err := fmt.Fprintf(w, "Run %s %s: %d hits from %d of %d selected records in %v with %d workers\n",
		res.RunID, state, len(res.Hits), res.Totals.Matched, res.Totals.Selected,
		res.Duration.Round(time.Millisecond), cfg.Workers); err != nil {
		return err
	}
	if err := printWarningCount(w, len(res.Warnings)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Reports written to %s\n", cfg.OutDir)
	return err
}

// PrintTriageResults prints per-category candidate counts and the
// highest-scoring candidates.
func PrintTriageResults(w io.Writer, res *schema.RunResult, cfg *contract.Config) error {
	if cfg.Quiet {
		return nil
	}
	fmtFloat := createFormatters(cfg.Precision)

	type counts struct{ total, included int }
	byCategory := map[string]*counts{}
	for _, c := range res.Candidates {
		n, ok := byCategory[c.Category]
		if !ok {
			n = &counts{}
			byCategory[c.Category] = n
		}
		n.total++
		if c.Include {
			n.included++
		}
	}
	names := make([]string, 0, len(byCategory))
	for name := range byCategory {
		names = append(names, name)
	}
	slices.Sort(names)

	table := newTable(w)
	table.Header([]string{"Category", "Candidates", "Included"})
	var data [][]string
	for _, name := range names {
		data = append(data, []string{
			contract.ColorCategory(name),
			strconv.Itoa(byCategory[name].total),
			strconv.Itoa(byCategory[name].included),
		})
	}
	if err := renderTable(table, data); err != nil {
		return err
	}

	top := algo.RankCandidates(res.Candidates, cfg.ResultLimit)
	if len(top) > 0 {
		table := newTable(w)
		table.Header([]string{"Rank", "Path", "Guess", "Score", "Include"})
		width := pathWidth(cfg, 55)
		data = nil
		for i, c := range top {
			include := "no"
			switch {
			case c.Forced:
				include = "forced"
			case c.Include:
				include = "yes"
			}
			data = append(data, []string{
				strconv.Itoa(i + 1),
				contract.TruncatePath(c.Record.ID, width),
				contract.ColorCategory(c.Category),
				fmtFloat(c.Score),
				include,
			})
		}
		if err := renderTable(table, data); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "Triaged %d records in %v; %d selected for extraction\n",
		len(res.Candidates), res.Duration.Round(time.Millisecond), res.Totals.Selected); err != nil {
		return err
	}
	if err := printWarningCount(w, len(res.Warnings)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Snapshot written to %s\n", cfg.SnapshotPath)
	return err
}

// PrintEffortResults prints one row per creative-work family.
func PrintEffortResults(w io.Writer, estimates []schema.EffortEstimate, cfg *contract.Config) error {
	if cfg.Quiet {
		return nil
	}
	fmtFloat := createFormatters(cfg.Precision)

	ranked := slices.Clone(estimates)
	slices.SortStableFunc(ranked, func(a, b schema.EffortEstimate) int {
		return cmp.Compare(b.Hours, a.Hours)
	})
	if len(ranked) > cfg.ResultLimit {
		ranked = ranked[:cfg.ResultLimit]
	}

	table := newTable(w)
	table.Header([]string{"Family", "Kind", "Versions", "Sessions", "Hours", "Confidence", "Method"})
	width := pathWidth(cfg, 70)
	var data [][]string
	total := 0.0
	for _, e := range estimates {
		total += e.Hours
	}
	for _, e := range ranked {
		data = append(data, []string{
			contract.TruncatePath(e.Family, width),
			e.Kind,
			strconv.Itoa(e.Versions),
			strconv.Itoa(e.Sessions),
			fmtFloat(e.Hours),
			string(e.Confidence),
			string(e.Method),
		})
	}
	if err := renderTable(table, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Estimated %s hours across %d families; details in %s\n",
		fmtFloat(total), len(estimates), EffortFile)
	return err
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	return table
}

func renderTable(table *tablewriter.Table, data [][]string) error {
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printWarningCount(w io.Writer, n int) error {
	if n == 0 {
		return nil
	}
	_, err := fmt.Fprintf(w, "%s (see %s)\n", contract.WarnColor.Sprintf("%d warnings", n), ReportFile)
	return err
}
