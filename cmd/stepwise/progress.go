package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stepwise-app/stepwise/internal/estimate"
	"github.com/stepwise-app/stepwise/pkg/models"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle <task-id> <subtask-id>",
	Short: "Mark a step done, or not done again",
	Long: `Flip a step between pending and completed.

The task's status follows its steps: completed when every step is,
in progress when some are, pending otherwise.`,
	Args: cobra.ExactArgs(2),
	RunE: runToggle,
}

var logTimeCmd = &cobra.Command{
	Use:   "log-time <task-id> <subtask-id> <minutes>",
	Short: "Record the minutes a step actually took",
	Long: `Record the minutes a step actually took. Use 0 to clear it.

The task's tracked total sums the bottom-level steps only.`,
	Args: cobra.ExactArgs(3),
	RunE: runLogTime,
}

func runToggle(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	userID, taskID, subtaskID := a.userID(), args[0], args[1]

	current, err := a.db.GetTask(ctx, userID, taskID)
	if err != nil {
		return err
	}
	sub, ok := findSubtask(current.Subtasks, subtaskID)
	if !ok {
		return fmt.Errorf("subtask %s: %w", subtaskID, models.ErrSubtaskNotFound)
	}

	task, err := a.db.ToggleSubtask(ctx, userID, taskID, subtaskID, nextStatus(sub.Status))
	if err != nil {
		return err
	}

	printStatus(cmd, "✓", fmt.Sprintf("%q is now %s", sub.Title, nextStatus(sub.Status)), color.FgGreen)
	printStatus(cmd, "•", fmt.Sprintf("%q is %s", task.Title, task.Status), statusColor(task.Status))
	return nil
}

func runLogTime(cmd *cobra.Command, args []string) error {
	minutes, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("minutes %q: %w", args[2], models.ErrInvalidMinutes)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	task, err := a.db.UpdateActualMinutes(cmd.Context(), a.userID(), args[0], args[1], minutes)
	if err != nil {
		return err
	}

	tracked := "nothing tracked yet"
	if task.TotalActualMinutes != nil {
		tracked = estimate.FormatMinutes(*task.TotalActualMinutes) + " tracked"
	}
	printStatus(cmd, "✓", fmt.Sprintf("%q: %s of %s planned", task.Title, tracked, estimate.FormatMinutes(task.TotalEstimatedMinutes)), color.FgGreen)
	return nil
}

func findSubtask(subtasks []models.Subtask, id string) (models.Subtask, bool) {
	for _, s := range subtasks {
		if s.ID == id {
			return s, true
		}
	}
	return models.Subtask{}, false
}

// nextStatus flips a step; in_progress steps count as not done yet.
func nextStatus(s models.TaskStatus) models.TaskStatus {
	if s == models.TaskStatusCompleted {
		return models.TaskStatusPending
	}
	return models.TaskStatusCompleted
}

func statusColor(s models.TaskStatus) color.Attribute {
	switch s {
	case models.TaskStatusCompleted:
		return color.FgGreen
	case models.TaskStatusInProgress:
		return color.FgYellow
	default:
		return color.FgWhite
	}
}
