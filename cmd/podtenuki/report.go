package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"podtenuki/internal/episode"
	"podtenuki/internal/pipeline"
	"podtenuki/internal/usage"
)

func renderReport(out io.Writer, report pipeline.Report) {
	if !started(report.Outcomes) {
		return
	}
	fmt.Fprintln(out, "PROCESSING COMPLETE")
	fmt.Fprintln(out, renderStages(report.Outcomes))

	if len(report.EnhancedFiles) > 0 {
		fmt.Fprintf(out, "Processed audio files: %s\n", strings.Join(report.EnhancedFiles, ", "))
	}
	if report.TranscriptPath != "" {
		fmt.Fprintf(out, "Transcript file: %s\n", report.TranscriptPath)
	}
	if report.Notes != nil {
		fmt.Fprintf(out, "Podcast title: %s\n", report.Notes.Title)
	}
	if report.SummaryPath != "" {
		fmt.Fprintf(out, "Summary file: %s\n", report.SummaryPath)
	}
	fmt.Fprintln(out)
	renderUsage(out, report.Usage)
}

func started(outcomes []episode.Outcome) bool {
	for _, o := range outcomes {
		if o.Status != episode.StatusPending {
			return true
		}
	}
	return false
}

func renderStages(outcomes []episode.Outcome) string {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, []string{o.Stage, string(o.Status), o.Detail, formatDuration(o.Duration)})
	}
	return renderTable([]string{"Stage", "Status", "Detail", "Duration"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight})
}

func renderUsage(out io.Writer, summary usage.Summary) {
	fmt.Fprintln(out, "API USAGE COSTS")
	if summary.Empty() {
		fmt.Fprintln(out, "no billable usage recorded")
		return
	}
	rows := make([][]string, 0, len(summary.Entries))
	for _, entry := range summary.Entries {
		rows = append(rows, []string{
			entry.Service,
			entry.Model,
			humanize.Comma(int64(entry.Calls)),
			usageAmount(entry),
			fmt.Sprintf("$%.4f", entry.Cost),
		})
	}
	fmt.Fprintln(out, tableSpec{
		headers: []string{"Service", "Model", "Calls", "Usage", "Cost"},
		rows:    rows,
		footer:  []string{"Total", "", "", "", fmt.Sprintf("$%.4f", summary.Total)},
		aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
	}.render())
}

func usageAmount(entry usage.Entry) string {
	if entry.AudioMinutes > 0 {
		return fmt.Sprintf("%.2f min", entry.AudioMinutes)
	}
	amount := fmt.Sprintf("%s in / %s out tokens", humanize.Comma(int64(entry.InputTokens)), humanize.Comma(int64(entry.OutputTokens)))
	if entry.PricingFallback {
		amount += " (fallback pricing)"
	}
	return amount
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return d.Round(time.Second).String()
}
