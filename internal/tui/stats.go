package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/stepwise-app/stepwise/internal/estimate"
	"github.com/stepwise-app/stepwise/pkg/models"
)

// StatsView renders a user's dashboard numbers: completion with progress
// bars, planned against tracked time, and the difficulty mix.
type StatsView struct {
	stats models.Stats
	width int

	// Styles
	labelStyle    lipgloss.Style
	valueStyle    lipgloss.Style
	progressFull  lipgloss.Style
	progressEmpty lipgloss.Style
	warningStyle  lipgloss.Style
	headerStyle   lipgloss.Style
}

// NewStatsView creates a new StatsView instance.
func NewStatsView(stats models.Stats) *StatsView {
	return &StatsView{
		stats: stats,
		width: 30,

		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(12),

		valueStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true),

		progressFull: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")),

		progressEmpty: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		warningStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("238")).
			MarginBottom(1),
	}
}

// SetBarWidth sets the width of the progress bars.
func (s *StatsView) SetBarWidth(width int) {
	if width > 0 {
		s.width = width
	}
}

// View renders the stats display.
func (s *StatsView) View() string {
	st := s.stats
	var b strings.Builder

	b.WriteString(s.headerStyle.Render("Your progress"))
	b.WriteString("\n")

	taskStr := fmt.Sprintf("%d done / %d total (%d in progress)", st.CompletedTasks, st.TotalTasks, st.InProgressTasks)
	b.WriteString(s.renderRow("Tasks:", s.valueStyle.Render(taskStr)))
	b.WriteString("\n")
	b.WriteString(s.renderProgressBar(percent(st.CompletedTasks, st.TotalTasks), s.width))
	b.WriteString("\n\n")

	stepStr := fmt.Sprintf("%d done / %d total", st.CompletedSubtasks, st.TotalSubtasks)
	b.WriteString(s.renderRow("Steps:", s.valueStyle.Render(stepStr)))
	b.WriteString("\n")
	b.WriteString(s.renderProgressBar(percent(st.CompletedSubtasks, st.TotalSubtasks), s.width))
	b.WriteString("\n\n")

	b.WriteString(s.renderRow("Planned:", s.valueStyle.Render(estimate.FormatMinutes(st.EstimatedMinutesTotal))))
	b.WriteString("\n")
	trackedStyle := s.valueStyle
	if st.EstimatedMinutesTotal > 0 && st.ActualMinutesTotal > st.EstimatedMinutesTotal {
		trackedStyle = s.warningStyle
	}
	b.WriteString(s.renderRow("Tracked:", trackedStyle.Render(estimate.FormatMinutes(st.ActualMinutesTotal))))
	b.WriteString("\n\n")

	b.WriteString(s.labelStyle.Render("Difficulty:"))
	b.WriteString("\n")
	for _, d := range models.Difficulties {
		b.WriteString(fmt.Sprintf("  %-7s %d\n", d, st.DifficultyDistribution[d]))
	}

	return b.String()
}

// renderRow renders a label-value pair.
func (s *StatsView) renderRow(label, value string) string {
	return s.labelStyle.Render(label) + " " + value
}

// renderProgressBar renders a progress bar.
func (s *StatsView) renderProgressBar(pct float64, width int) string {
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}

	filled := int(pct / 100 * float64(width))
	empty := width - filled

	bar := s.progressFull.Render(strings.Repeat("█", filled)) +
		s.progressEmpty.Render(strings.Repeat("░", empty))

	return fmt.Sprintf("  [%s] %3.0f%%", bar, pct)
}

func percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
