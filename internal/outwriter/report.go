package outwriter

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"path/filepath"
	"time"

	"github.com/huangsam/evidence/schema"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

// reportRow is one evidence line of the report, pre-formatted.
type reportRow struct {
	Link    template.URL
	Name    string
	Title   string
	Hits    int
	Score   string
	When    string
	Effort  string
	Snippet string
}

type reportGroup struct {
	Source      schema.Source
	Category    string
	Subcategory string
	Total       int
	Rows        []reportRow
}

type reportView struct {
	Run       *schema.RunResult
	Generated string
	Started   string
	Duration  string
	Groups    []reportGroup
	Folders   []schema.FolderSummary
}

// writeReportHTML renders the static report. Groups arrive ranked and
// trimmed; only formatting happens here.
func writeReportHTML(w io.Writer, res *schema.RunResult, fmtFloat func(float64) string) error {
	tmpl, err := template.New("report.html.tmpl").Funcs(template.FuncMap{
		"inc":      func(i int) int { return i + 1 },
		"fmtFloat": fmtFloat,
	}).ParseFS(templateFS, "templates/report.html.tmpl")
	if err != nil {
		return fmt.Errorf("failed to parse report template: %w", err)
	}

	view := reportView{
		Run:       res,
		Generated: time.Now().Format(time.RFC1123),
		Started:   res.StartedAt.Format(time.RFC1123),
		Duration:  res.Duration.Round(time.Millisecond).String(),
		Folders:   res.Folders,
	}
	for _, g := range res.Groups {
		rg := reportGroup{Source: g.Source, Category: g.Category, Subcategory: g.Subcategory, Total: g.Total}
		for _, h := range g.Hits {
			rg.Rows = append(rg.Rows, reportRow{
				Link:    fileLink(h.Record.Path),
				Name:    displayName(h.Record),
				Title:   h.Record.Title,
				Hits:    h.Hits,
				Score:   fmtFloat(h.Score),
				When:    h.When,
				Effort:  formatEffort(h.Effort, fmtFloat),
				Snippet: h.Snippet,
			})
		}
		view.Groups = append(view.Groups, rg)
	}

	if err := tmpl.Execute(w, view); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// fileLink builds a file:// URL. The value is marked safe because the scheme
// would otherwise be rejected by html/template.
func fileLink(path string) template.URL {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return template.URL(u.String())
}

// displayName shows files by their path and archive items by their ID.
func displayName(rec schema.FileRecord) string {
	if rec.IsArchiveItem() {
		return rec.ID
	}
	return rec.Path
}

func formatEffort(e *schema.EffortEstimate, fmtFloat func(float64) string) string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%sh, %d session(s), %s", fmtFloat(e.Hours), e.Sessions, e.Confidence)
}
