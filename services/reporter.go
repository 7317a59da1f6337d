package services

import (
	"fmt"
	"io"
	"strings"

	"student-harvester/models"
)

// PrintInsightReport formats and prints the insight report
func PrintInsightReport(w io.Writer, report *models.InsightReport) {
	border := strings.Repeat("═", 60)
	thin := strings.Repeat("─", 60)

	fmt.Fprintf(w, "\n╔%s╗\n", border)
	fmt.Fprintf(w, "║%s║\n", center("STUDENT SCORE INSIGHTS", 60))
	fmt.Fprintf(w, "╚%s╝\n", border)

	fmt.Fprintf(w, "\n OVERVIEW\n%s\n", thin)
	fmt.Fprintf(w, "  Total Students          : %d\n", report.TotalStudents)
	fmt.Fprintf(w, "  Pass Threshold          : %.1f\n", report.PassThreshold)

	if len(report.Subjects) > 0 {
		fmt.Fprintf(w, "\n SUBJECTS\n%s\n", thin)
		fmt.Fprintf(w, "  %-18s %5s %6s %6s %6s %8s\n", "Subject", "N", "Mean", "Min", "Max", ">=Pass")
		for _, s := range report.Subjects {
			if s.Count == 0 {
				fmt.Fprintf(w, "  %-18s %5d %6s %6s %6s %8s\n", s.Field, 0, "-", "-", "-", "-")
				continue
			}
			fmt.Fprintf(w, "  %-18s %5d %6.2f %6.1f %6.1f %8d\n", s.Field, s.Count, s.Mean, s.Min, s.Max, s.AtOrAbove)
		}
	}

	if len(report.Hometowns) > 0 {
		fmt.Fprintf(w, "\n STUDENTS PER HOMETOWN\n%s\n", thin)
		for _, h := range report.Hometowns {
			name := h.Hometown
			if name == "" {
				name = "(unknown)"
			}
			bar := strings.Repeat("▓", min(h.Students, 30))
			fmt.Fprintf(w, "  %-25s %3d  %s\n", truncate(name, 24)+":", h.Students, bar)
		}
	}

	if len(report.TopStudents) > 0 {
		fmt.Fprintf(w, "\n TOP %d STUDENTS BY AVERAGE SCORE\n%s\n", len(report.TopStudents), thin)
		for i, s := range report.TopStudents {
			fmt.Fprintf(w, "  %d. %-35s %.2f\n", i+1, truncate(DisplayName(s.Record), 35), s.Average)
		}
	}

	fmt.Fprintf(w, "\n%s\n\n", border)
}

// DisplayName renders a student for humans, falling back to the id or email
func DisplayName(r models.CleanedRecord) string {
	name := strings.TrimSpace(strings.TrimSpace(r.FirstName.String) + " " + strings.TrimSpace(r.LastName.String))
	switch {
	case name != "":
		return name
	case r.StudentID.Valid:
		return r.StudentID.String
	case r.Email.Valid:
		return r.Email.String
	}
	return "(anonymous)"
}

func center(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return s
	}
	pad := (width - len(runes)) / 2
	return strings.Repeat(" ", pad) + s + strings.Repeat(" ", width-len(runes)-pad)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
