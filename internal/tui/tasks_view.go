package tui

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/stepwise-app/stepwise/internal/estimate"
	"github.com/stepwise-app/stepwise/pkg/models"
)

// Status icons
const (
	iconPending    = "○"
	iconInProgress = "◐"
	iconCompleted  = "●"
)

var (
	pendingStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	inProgressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	completedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func statusIcon(s models.TaskStatus) string {
	switch s {
	case models.TaskStatusCompleted:
		return completedStyle.Render(iconCompleted)
	case models.TaskStatusInProgress:
		return inProgressStyle.Render(iconInProgress)
	default:
		return pendingStyle.Render(iconPending)
	}
}

// timeSummary renders "planned" or "tracked / planned".
func timeSummary(estimated int, actual *int) string {
	if actual == nil {
		return estimate.FormatMinutes(estimated)
	}
	return estimate.FormatMinutes(*actual) + " / " + estimate.FormatMinutes(estimated)
}

// truncate shortens s to at most limit runes.
func truncate(s string, limit int) string {
	r := []rune(s)
	if limit < 4 || len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}

// RenderTaskList renders one line per task, newest first as given.
func RenderTaskList(tasks []models.Task, width int) string {
	if len(tasks) == 0 {
		return dimStyle.Render("  No tasks yet. Run `stepwise new` to plan one.") + "\n"
	}

	var b strings.Builder
	for _, t := range tasks {
		due := ""
		if t.DueDate != "" {
			due = dimStyle.Render(" due " + t.DueDate)
		}
		fmt.Fprintf(&b, " %s %s  %s%s  %s\n",
			statusIcon(t.Status),
			truncate(t.Title, width-40),
			timeSummary(t.TotalEstimatedMinutes, t.TotalActualMinutes),
			due,
			dimStyle.Render(t.ID),
		)
	}
	return b.String()
}

// RenderTask renders a task header followed by its subtask tree.
func RenderTask(t models.TaskWithSubtasks) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", statusIcon(t.Status), titleStyle.Render(t.Title))
	if t.Memo != "" {
		fmt.Fprintf(&b, "  %s\n", dimStyle.Render(t.Memo))
	}
	if t.DueDate != "" {
		fmt.Fprintf(&b, "  due %s\n", t.DueDate)
	}
	b.WriteString("\n")

	children := make(map[string][]models.Subtask, len(t.Subtasks))
	for _, s := range t.Subtasks {
		children[s.ParentSubtaskID] = append(children[s.ParentSubtaskID], s)
	}
	for _, group := range children {
		slices.SortStableFunc(group, func(a, b models.Subtask) int { return cmp.Compare(a.SortOrder, b.SortOrder) })
	}

	var walk func(parentID string)
	walk = func(parentID string) {
		for _, s := range children[parentID] {
			indent := strings.Repeat("   ", s.Depth)
			diff := difficultyStyles[s.Difficulty].Render(fmt.Sprintf("%-6s", s.Difficulty))
			fmt.Fprintf(&b, "%s%s %s  %s  %s  %s\n",
				indent,
				statusIcon(s.Status),
				s.Title,
				diff,
				timeSummary(s.EstimatedMinutes, s.ActualMinutes),
				dimStyle.Render(s.ID),
			)
			walk(s.ID)
		}
	}
	walk("")

	b.WriteString("\n")
	b.WriteString(totalStyle.Render("Total: " + timeSummary(t.TotalEstimatedMinutes, t.TotalActualMinutes)))
	b.WriteString("\n")
	return b.String()
}
