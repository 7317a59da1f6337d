package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"student-harvester/models"

	"github.com/nao1215/markdown"
)

const ReportFileName = "harvest_report.md"

// RunSummary is everything the Markdown run report shows
type RunSummary struct {
	RunID      string
	Source     string
	Harvest    *models.HarvestResult
	Stats      models.ImputationStats
	Columns    []models.Field
	Insights   *models.InsightReport
	CleanedCSV string
}

// MarkdownReportWriter writes the per-run diagnostics report
type MarkdownReportWriter struct {
	dir string
}

// NewMarkdownReportWriter creates a writer targeting dir
func NewMarkdownReportWriter(dir string) *MarkdownReportWriter {
	return &MarkdownReportWriter{dir: dir}
}

// Write renders the report to <dir>/harvest_report.md
func (w *MarkdownReportWriter) Write(s RunSummary) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(w.dir, ReportFileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report: %w", err)
	}
	defer f.Close()

	md := markdown.NewMarkdown(f)
	writeOverview(md, s)
	writePages(md, s.Harvest)
	writeImputation(md, s.Stats)
	writeInsights(md, s.Insights)

	if err := md.Build(); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, f.Close()
}

func writeOverview(md *markdown.Markdown, s RunSummary) {
	md.H1("Student Harvest Report")
	md.PlainText("")

	rows := [][]string{
		{"Run", "`" + s.RunID + "`"},
		{"Source", s.Source},
		{"Cleaned CSV", s.CleanedCSV},
	}
	if h := s.Harvest; h != nil {
		rows = append(rows,
			[]string{"Started", h.StartedAt.Format(time.RFC3339)},
			[]string{"Duration", h.FinishedAt.Sub(h.StartedAt).Round(time.Millisecond).String()},
			[]string{"Pages", strconv.Itoa(h.PagesVisited)},
			[]string{"Distinct pages", strconv.Itoa(h.DistinctPages)},
			[]string{"Students", strconv.Itoa(len(h.Dataset))},
			[]string{"Dropped rows", strconv.Itoa(h.Dropped)},
			[]string{"Skipped rows", strconv.Itoa(h.Skipped)},
			[]string{"Stop reason", string(h.StopReason)},
		)
	}
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
	md.PlainText("")

	if s.Harvest != nil {
		switch s.Harvest.StopReason {
		case models.StopMaxPagesExceeded:
			md.Warningf("The source kept offering pages past the limit; only %d pages were harvested.", s.Harvest.PagesVisited)
		case models.StopDeadline, models.StopPageFailure, models.StopRenderTimeout, models.StopDuplicatePage:
			md.Note(fmt.Sprintf("Harvest ended early (%s); the dataset holds the pages read before that.", s.Harvest.StopReason))
		}
		md.PlainText("")
	}

	if len(s.Columns) < len(models.Fields) {
		var omitted []string
		for _, f := range models.Fields {
			if !slices.Contains(s.Columns, f) {
				omitted = append(omitted, string(f))
			}
		}
		md.PlainText("Columns omitted from the export (no observed values):")
		md.PlainText("")
		md.BulletList(omitted...)
		md.PlainText("")
	}
}

func writePages(md *markdown.Markdown, h *models.HarvestResult) {
	md.H2("Pages")
	md.PlainText("")
	if h == nil || len(h.Pages) == 0 {
		md.PlainText("No pages were harvested.")
		md.PlainText("")
		return
	}
	rows := make([][]string, 0, len(h.Pages))
	for _, p := range h.Pages {
		rows = append(rows, []string{
			strconv.Itoa(p.Page), strconv.Itoa(p.Rows), strconv.Itoa(p.Records),
			strconv.Itoa(p.Dropped), strconv.Itoa(p.Skipped), strconv.Itoa(p.Total),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Page", "Rows", "Students", "Dropped", "Skipped", "Total"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeImputation(md *markdown.Markdown, stats models.ImputationStats) {
	md.H2("Imputation")
	md.PlainText("")
	rows := make([][]string, 0, len(models.ScoreFields))
	for _, f := range models.ScoreFields {
		s := stats[f]
		mean := "-"
		if s.HasGlobalMean {
			mean = strconv.FormatFloat(s.GlobalMean, 'f', 2, 64)
		}
		rows = append(rows, []string{
			string(f), strconv.Itoa(s.Observed), strconv.Itoa(s.FilledByGroup),
			strconv.Itoa(s.FilledByGlobal), strconv.Itoa(s.StillMissing), mean,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Field", "Observed", "By hometown", "By dataset", "Still missing", "Dataset mean"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeInsights(md *markdown.Markdown, r *models.InsightReport) {
	if r == nil || r.TotalStudents == 0 {
		return
	}
	md.H2("Subjects")
	md.PlainText("")
	rows := make([][]string, 0, len(r.Subjects))
	for _, s := range r.Subjects {
		if s.Count == 0 {
			rows = append(rows, []string{string(s.Field), "0", "-", "-", "-", "-"})
			continue
		}
		rows = append(rows, []string{
			string(s.Field), strconv.Itoa(s.Count), strconv.FormatFloat(s.Mean, 'f', 2, 64),
			FormatScore(s.Min), FormatScore(s.Max), strconv.Itoa(s.AtOrAbove),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Subject", "Students", "Mean", "Min", "Max", fmt.Sprintf(">= %.1f", r.PassThreshold)},
		Rows:   rows,
	})
	md.PlainText("")

	md.H2("Hometowns")
	md.PlainText("")
	towns := make([][]string, 0, len(r.Hometowns))
	for _, h := range r.Hometowns {
		name := h.Hometown
		if name == "" {
			name = "(unknown)"
		}
		row := []string{name, strconv.Itoa(h.Students)}
		for _, f := range models.ScoreFields {
			if m, ok := h.Means[f]; ok {
				row = append(row, strconv.FormatFloat(m, 'f', 2, 64))
			} else {
				row = append(row, "-")
			}
		}
		towns = append(towns, row)
	}
	md.Table(markdown.TableSet{
		Header: []string{"Hometown", "Students", "Math", "English", "Literature"},
		Rows:   towns,
	})
	md.PlainText("")
}
