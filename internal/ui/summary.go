// Package ui renders the end-of-run summary.
package ui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/stackinfra/infractl/internal/bootstrap"
	"github.com/stackinfra/infractl/internal/gitops"
)

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorDim    = lipgloss.Color("#6b7280")
	colorWhite  = lipgloss.Color("#f9fafb")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	okStyle = lipgloss.NewStyle().
		Foreground(colorGreen)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	failStyle = lipgloss.NewStyle().
			Foreground(colorRed)
)

// RenderRunSummary produces the styled summary of a bootstrap run.
func RenderRunSummary(clusterName string, report *bootstrap.RunReport, waves []gitops.WaveResult) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(titleStyle.Render(fmt.Sprintf("  infractl bootstrap: %s", clusterName)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  " + strings.Repeat("═", 34)))
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("  Phases"))
	b.WriteString("\n")
	for _, result := range report.Results {
		b.WriteString(fmt.Sprintf("    %s  %-24s %s\n",
			statusIndicator(result.Status), result.Name, statusDetail(result)))
	}

	if len(waves) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("  Sync waves"))
		b.WriteString("\n")
		for _, wave := range waves {
			b.WriteString(fmt.Sprintf("    %s  wave %d  %-38s %s\n",
				waveIndicator(wave.State), wave.Wave.Ordinal,
				strings.Join(wave.Wave.Apps, ", "),
				dimStyle.Render(wave.Duration.Round(time.Second).String())))
		}
	}

	if len(report.Warnings) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("  Warnings"))
		b.WriteString("\n")
		for _, warning := range report.Warnings {
			b.WriteString(warnStyle.Render("    ! " + warning))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if report.Fatal() {
		failed := report.FailedPhase()
		b.WriteString(failStyle.Render(fmt.Sprintf("  Bootstrap failed at %s: %v", failed.Name, failed.Err)))
	} else {
		b.WriteString(okStyle.Render("  Bootstrap completed"))
	}
	b.WriteString("\n")

	return b.String()
}

// PrintRunSummary writes the summary to stdout, styled when stdout is a
// terminal and plain otherwise.
func PrintRunSummary(clusterName string, report *bootstrap.RunReport, waves []gitops.WaveResult) {
	if !isInteractiveTTY() {
		printPlain(clusterName, report, waves)
		return
	}
	fmt.Print(RenderRunSummary(clusterName, report, waves))
}

func printPlain(clusterName string, report *bootstrap.RunReport, waves []gitops.WaveResult) {
	fmt.Printf("infractl bootstrap: %s\n", clusterName)
	for _, result := range report.Results {
		fmt.Printf("  %-24s %s %s\n", result.Name, result.Status, statusDetail(result))
	}
	for _, wave := range waves {
		fmt.Printf("  wave %d [%s] %s\n", wave.Wave.Ordinal, wave.State, strings.Join(wave.Wave.Apps, ", "))
	}
	for _, warning := range report.Warnings {
		fmt.Printf("  warning: %s\n", warning)
	}
}

func statusIndicator(status bootstrap.Status) string {
	switch status {
	case bootstrap.StatusSucceeded:
		return okStyle.Render("✓")
	case bootstrap.StatusSkipped:
		return dimStyle.Render("∙")
	case bootstrap.StatusFailedRecoverable:
		return warnStyle.Render("!")
	case bootstrap.StatusFailedFatal:
		return failStyle.Render("✗")
	default:
		return dimStyle.Render("·")
	}
}

func statusDetail(result bootstrap.PhaseResult) string {
	switch result.Status {
	case bootstrap.StatusSkipped:
		return dimStyle.Render("already satisfied")
	case bootstrap.StatusNotAttempted:
		return dimStyle.Render("not attempted")
	case bootstrap.StatusFailedFatal, bootstrap.StatusFailedRecoverable:
		if result.Err != nil {
			return failStyle.Render(result.Err.Error())
		}
		return ""
	default:
		return dimStyle.Render(result.Duration.Round(time.Second).String())
	}
}

func waveIndicator(state gitops.WaveState) string {
	switch state {
	case gitops.WaveHealthy:
		return okStyle.Render("✓")
	case gitops.WaveTimedOut:
		return warnStyle.Render("!")
	default:
		return dimStyle.Render("·")
	}
}

func isInteractiveTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
