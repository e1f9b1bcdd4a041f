// Package rollup derives a task's status and tracked time from its subtasks.
package rollup

import (
	"time"

	"github.com/stepwise-app/stepwise/internal/estimate"
	"github.com/stepwise-app/stepwise/pkg/models"
)

// Status derives a task status from its subtask statuses.
// All completed gives completed; any progress gives in_progress; otherwise pending.
// A task without subtasks stays pending.
func Status(statuses []models.TaskStatus) models.TaskStatus {
	if len(statuses) == 0 {
		return models.TaskStatusPending
	}
	completed, started := 0, false
	for _, s := range statuses {
		switch s {
		case models.TaskStatusCompleted:
			completed++
			started = true
		case models.TaskStatusInProgress:
			started = true
		}
	}
	switch {
	case completed == len(statuses):
		return models.TaskStatusCompleted
	case started:
		return models.TaskStatusInProgress
	default:
		return models.TaskStatusPending
	}
}

// CompletedAt keeps the first completion timestamp of a task.
func CompletedAt(prev models.TaskStatus, prevAt *time.Time, next models.TaskStatus, now time.Time) *time.Time {
	if next != models.TaskStatusCompleted {
		return nil
	}
	if prev == models.TaskStatusCompleted && prevAt != nil {
		return prevAt
	}
	return &now
}

// ActualTotal is the leaf-only sum of tracked minutes, nil when nothing is tracked.
func ActualTotal(subtasks []models.Subtask) *int {
	total := estimate.LeafTotal(subtasks, estimate.ActualMinutes)
	if total == 0 {
		return nil
	}
	return &total
}

// Result is the recomputed aggregate for one task.
type Result struct {
	Status             models.TaskStatus
	CompletedAt        *time.Time
	TotalActualMinutes *int
}

// Task recomputes the aggregate for task from a fresh read of its subtasks.
func Task(task models.Task, subtasks []models.Subtask, now time.Time) Result {
	statuses := make([]models.TaskStatus, len(subtasks))
	for i, s := range subtasks {
		statuses[i] = s.Status
	}
	status := Status(statuses)
	return Result{
		Status:             status,
		CompletedAt:        CompletedAt(task.Status, task.CompletedAt, status, now),
		TotalActualMinutes: ActualTotal(subtasks),
	}
}
