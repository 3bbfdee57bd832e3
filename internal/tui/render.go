package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zenprocess/open-lovable-cf/internal/progress"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	stepStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
)

// FormatEvent renders e as one or more log lines. It returns false for
// events that only move the progress bar.
func FormatEvent(e progress.Event) (string, bool) {
	switch e := e.(type) {
	case progress.Start:
		return titleStyle.Render("▶ " + e.Message), true
	case progress.Step:
		return stepStyle.Render(fmt.Sprintf("[%d] %s", e.Step, e.Message)), true
	case progress.PackageProgress:
		return packageLine(e), true
	case progress.FileProgress:
		return "", false
	case progress.FileComplete:
		return successStyle.Render("✓") + " " + e.Action + " " + e.FileName, true
	case progress.FileError:
		return errorStyle.Render(fmt.Sprintf("✗ %s: %s", e.FileName, e.Error)), true
	case progress.CommandProgress:
		return dimStyle.Render("$") + " " + e.Command, true
	case progress.CommandOutput:
		out := indent(strings.TrimRight(e.Output, "\n"), "    ")
		if e.Stream == "stderr" {
			return warningStyle.Render(out), true
		}
		return dimStyle.Render(out), true
	case progress.CommandComplete:
		if e.Success {
			return successStyle.Render(fmt.Sprintf("✓ %s", e.Command)), true
		}
		return errorStyle.Render(fmt.Sprintf("✗ %s exited with code %d", e.Command, e.ExitCode)), true
	case progress.CommandError:
		return errorStyle.Render(fmt.Sprintf("✗ %s: %s", e.Command, e.Error)), true
	case progress.Info:
		return dimStyle.Render("ℹ " + e.Message), true
	case progress.Warning:
		line := warningStyle.Render("⚠ " + e.Message)
		for _, imp := range e.MissingImports {
			line += "\n" + warningStyle.Render("    "+imp)
		}
		return line, true
	case progress.Complete:
		return summary(e), true
	case progress.Error:
		return errorStyle.Render("✗ " + e.Error), true
	}
	return "", false
}

func packageLine(e progress.PackageProgress) string {
	msg := e.Message
	switch e.Status {
	case progress.PackageError:
		return errorStyle.Render("  ✗ " + msg)
	case progress.PackageWarning:
		return warningStyle.Render("  ⚠ " + msg)
	case progress.PackageSuccess, progress.PackageComplete:
		return successStyle.Render("  ✓ " + msg)
	case progress.PackageOutput:
		return dimStyle.Render(indent(msg, "    "))
	}
	return "  " + msg
}

// summary renders the final results of a run.
func summary(e progress.Complete) string {
	var b strings.Builder
	b.WriteString(successStyle.Render("✓ " + e.Message))
	r := e.Results
	if r == nil {
		return b.String()
	}
	counts := []struct {
		label string
		n     int
	}{
		{"created", len(r.FilesCreated)},
		{"updated", len(r.FilesUpdated)},
		{"packages installed", len(r.PackagesInstalled)},
		{"commands", len(r.CommandsExecuted)},
	}
	var parts []string
	for _, c := range counts {
		if c.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c.n, c.label))
		}
	}
	if len(parts) > 0 {
		b.WriteString("\n  " + strings.Join(parts, ", "))
	}
	for _, err := range r.Errors {
		b.WriteString("\n" + errorStyle.Render("  ✗ "+err))
	}
	return b.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
