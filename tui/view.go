package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/hochfrequenz/arp-orchestrator/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	completedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimmedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// View renders the TUI
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("App Reporting Pack runs"))
	b.WriteString("\n")

	if len(m.runs) == 0 {
		b.WriteString(dimmedStyle.Render("No runs recorded yet. Enable [history] in the settings file."))
		b.WriteString("\n")
		b.WriteString(dimmedStyle.Render("q quit"))
		return b.String()
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-10s %-10s %-16s %-9s %-5s %s", "RUN", "STATUS", "STARTED", "DURATION", "EXIT", "FLAGS")))
	b.WriteString("\n")

	end := m.scroll + m.visibleRows()
	if end > len(m.runs) {
		end = len(m.runs)
	}
	for i := m.scroll; i < end; i++ {
		b.WriteString(m.formatRunLine(m.runs[i], i == m.selected))
		b.WriteString("\n")
	}

	if m.detail {
		b.WriteString(m.renderDetail())
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(failedStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString(dimmedStyle.Render("j/k move  enter stages  esc close  q quit"))
	return b.String()
}

func (m Model) formatRunLine(r *domain.Run, selected bool) string {
	status := string(r.Status)
	line := fmt.Sprintf("%-10s %-10s %-16s %-9s %-5d %s",
		shortID(r.ID),
		status,
		truncate(humanize.RelTime(r.StartedAt, m.now(), "ago", "from now"), 16),
		runDuration(r),
		r.ExitCode,
		r.Flags,
	)
	if selected {
		return selectedStyle.Render("> " + line)
	}
	return "  " + statusStyle(r.Status).Render(line)
}

func (m Model) renderDetail() string {
	run := m.Selected()
	if run == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s\n", run.ID)
	fmt.Fprintf(&b, "Started %s", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if run.ConfigPath != "" {
		fmt.Fprintf(&b, "  config %s (%s)", run.ConfigPath, run.ConfigSource)
	}
	b.WriteString("\n")

	stages, ok := m.stages[run.ID]
	switch {
	case !ok:
		b.WriteString(dimmedStyle.Render("loading stages..."))
	case len(stages) == 0:
		b.WriteString(dimmedStyle.Render("no stages recorded"))
	default:
		for _, s := range stages {
			b.WriteString(formatStageLine(s))
			b.WriteString("\n")
		}
	}
	return sectionStyle.Render(strings.TrimSuffix(b.String(), "\n"))
}

func formatStageLine(s domain.StageResult) string {
	switch s.Status {
	case domain.StageStatusSkipped:
		return dimmedStyle.Render(fmt.Sprintf("%d. %-28s skipped", s.Ordinal, s.Stage))
	case domain.StageStatusFailed:
		return failedStyle.Render(fmt.Sprintf("%d. %-28s failed  %s (exit %d)", s.Ordinal, s.Stage, formatDuration(s.Duration()), s.ExitCode))
	default:
		return completedStyle.Render(fmt.Sprintf("%d. %-28s ok      %s", s.Ordinal, s.Stage, formatDuration(s.Duration())))
	}
}

func statusStyle(s domain.RunStatus) lipgloss.Style {
	switch s {
	case domain.RunCompleted:
		return completedStyle
	case domain.RunFailed:
		return failedStyle
	case domain.RunRunning:
		return runningStyle
	default:
		return dimmedStyle
	}
}

func runDuration(r *domain.Run) string {
	if r.FinishedAt == nil {
		return "-"
	}
	return formatDuration(r.FinishedAt.Sub(r.StartedAt))
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
