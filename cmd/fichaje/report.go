package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"fichaje/internal/attendance"
	"fichaje/internal/store"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorSuccess = lipgloss.Color("#8BC34A")
	colorWarning = lipgloss.Color("#FFC107")
	colorDanger  = lipgloss.Color("#e53935")
	colorInfo    = lipgloss.Color("#2196F3")
	colorMuted   = lipgloss.Color("#6b7280")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorInfo)
	labelStyle = lipgloss.NewStyle().Foreground(colorMuted).Width(10)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)
	dateStyle = lipgloss.NewStyle().Width(12)
)

func statusStyle(s attendance.Status) lipgloss.Style {
	switch s {
	case attendance.StatusFilled:
		return lipgloss.NewStyle().Foreground(colorSuccess)
	case attendance.StatusPartiallyFilled:
		return lipgloss.NewStyle().Foreground(colorWarning)
	case attendance.StatusFailed:
		return lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(colorMuted)
	}
}

// renderReport formats a run for the terminal.
func renderReport(r *attendance.RunReport) string {
	var b strings.Builder

	mode := "execute"
	if r.DryRun {
		mode = "dry run"
	}
	b.WriteString(titleStyle.Render("Attendance run "+shortID(r.ID)) + "\n")
	b.WriteString(labelStyle.Render("window") + r.Window.String() + "\n")
	b.WriteString(labelStyle.Render("mode") + mode + "\n")
	b.WriteString(labelStyle.Render("duration") + r.Duration().Round(time.Millisecond).String() + "\n")

	if len(r.Absences) > 0 {
		b.WriteString("\n" + titleStyle.Render("Absences") + "\n")
		for _, d := range r.Absences.Dates() {
			b.WriteString("  " + dateStyle.Render(d.String()) + r.Absences[d].String() + "\n")
		}
	}

	if len(r.DetectionErrors) > 0 {
		b.WriteString("\n" + titleStyle.Render("Absence detection failed") + "\n")
		warn := lipgloss.NewStyle().Foreground(colorWarning)
		for _, d := range r.DetectionErrorDates() {
			b.WriteString("  " + dateStyle.Render(d.String()) + warn.Render(r.DetectionErrors[d].Error()) + "\n")
		}
	}

	b.WriteString("\n" + titleStyle.Render("Days") + "\n")
	for _, o := range r.Outcomes {
		line := statusStyle(o.Status).Render(outcomeDetail(o))
		if o.DetectionErr != nil {
			line += lipgloss.NewStyle().Foreground(colorWarning).Render(" (absence unknown)")
		}
		b.WriteString("  " + dateStyle.Render(o.Date.String()) + line + "\n")
	}

	b.WriteString("\n" + boxStyle.Render(tallyLine(r.Tally())))
	return b.String()
}

func outcomeDetail(o attendance.Outcome) string {
	switch o.Status {
	case attendance.StatusSkipped:
		if o.Skip == attendance.SkipDryRun {
			return fmt.Sprintf("would fill %s", o.Plan)
		}
		return "skipped: " + o.Skip.String()
	case attendance.StatusFilled:
		return fmt.Sprintf("filled %s", o.Plan)
	case attendance.StatusPartiallyFilled:
		return fmt.Sprintf("partially filled %d/%d: %v", o.Written, len(o.Plan), o.Err)
	case attendance.StatusFailed:
		return fmt.Sprintf("failed: %v", o.Err)
	}
	return o.Status.String()
}

func tallyLine(t attendance.Tally) string {
	parts := []string{
		fmt.Sprintf("filled %d", t.Filled),
		fmt.Sprintf("partial %d", t.Partial),
		fmt.Sprintf("failed %d", t.Failed),
	}
	reasons := make([]attendance.SkipReason, 0, len(t.Skipped))
	for reason := range t.Skipped {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	for _, reason := range reasons {
		parts = append(parts, fmt.Sprintf("%s %d", reason, t.Skipped[reason]))
	}

	line := strings.Join(parts, " · ")
	if len(t.Attention) > 0 {
		line += "\n" + statusStyle(attendance.StatusFailed).Render(
			fmt.Sprintf("%d day(s) need attention", len(t.Attention)))
	}
	return line
}

// renderHistory formats stored runs, newest first.
func renderHistory(runs []store.RunSummary) string {
	if len(runs) == 0 {
		return "No runs recorded."
	}
	header := lipgloss.NewStyle().Bold(true)
	var b strings.Builder
	b.WriteString(header.Render(fmt.Sprintf("%-10s %-17s %-23s %-7s %s", "RUN", "STARTED", "WINDOW", "MODE", "RESULT")) + "\n")
	for _, r := range runs {
		mode := "execute"
		if r.DryRun {
			mode = "dry"
		}
		result := fmt.Sprintf("filled %d, partial %d, failed %d, skipped %d", r.Filled, r.Partial, r.Failed, r.Skipped)
		if r.DetectionErrors > 0 {
			result += fmt.Sprintf(", absence unknown %d", r.DetectionErrors)
		}
		style := lipgloss.NewStyle()
		if r.Failed > 0 || r.Partial > 0 || r.DetectionErrors > 0 {
			style = style.Foreground(colorWarning)
		}
		b.WriteString(fmt.Sprintf("%-10s %-17s %-23s %-7s %s\n",
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.WindowStart+".."+r.WindowEnd,
			mode,
			style.Render(result)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderOutcomes formats the stored outcomes of one run.
func renderOutcomes(run store.RunSummary, outcomes []store.OutcomeRecord) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Run "+run.ID) + "\n")
	b.WriteString(labelStyle.Render("window") + run.WindowStart + ".." + run.WindowEnd + "\n")
	b.WriteString(labelStyle.Render("started") + run.StartedAt.Local().Format("2006-01-02 15:04:05") + "\n\n")
	for _, o := range outcomes {
		detail := o.Status
		if o.SkipReason != "" {
			detail += ": " + o.SkipReason
		}
		if o.Plan != "" {
			detail += " " + o.Plan
		}
		if o.Error != "" {
			detail += " (" + o.Error + ")"
		}
		if o.DetectionError != "" {
			detail += " [absence unknown: " + o.DetectionError + "]"
		}
		b.WriteString("  " + dateStyle.Render(o.Date) + detail + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
