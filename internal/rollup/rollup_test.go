package rollup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepwise-app/stepwise/pkg/models"
)

const (
	pending    = models.TaskStatusPending
	inProgress = models.TaskStatusInProgress
	completed  = models.TaskStatusCompleted
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []models.TaskStatus
		want     models.TaskStatus
	}{
		{"empty", nil, pending},
		{"all pending", []models.TaskStatus{pending, pending}, pending},
		{"all completed", []models.TaskStatus{completed, completed}, completed},
		{"completed and in progress", []models.TaskStatus{completed, inProgress}, inProgress},
		{"one completed", []models.TaskStatus{pending, completed, pending}, inProgress},
		{"one in progress", []models.TaskStatus{pending, inProgress}, inProgress},
		{"single completed", []models.TaskStatus{completed}, completed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.statuses))
		})
	}
}

func TestCompletedAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	earlier := now.Add(-time.Hour)

	got := CompletedAt(inProgress, nil, completed, now)
	require.NotNil(t, got)
	assert.Equal(t, now, *got)

	got = CompletedAt(completed, &earlier, completed, now)
	require.NotNil(t, got)
	assert.Equal(t, earlier, *got, "an already completed task keeps its timestamp")

	assert.Nil(t, CompletedAt(completed, &earlier, inProgress, now))
	assert.Nil(t, CompletedAt(pending, nil, pending, now))
}

func intPtr(v int) *int { return &v }

func TestActualTotal(t *testing.T) {
	assert.Nil(t, ActualTotal(nil))
	assert.Nil(t, ActualTotal([]models.Subtask{{ID: "a"}, {ID: "b", ActualMinutes: intPtr(0)}}), "zero is not tracked")

	subtasks := []models.Subtask{
		{ID: "root", ActualMinutes: intPtr(100)},
		{ID: "c1", ParentSubtaskID: "root", ActualMinutes: intPtr(20)},
		{ID: "c2", ParentSubtaskID: "root"},
		{ID: "solo", ActualMinutes: intPtr(15)},
	}
	got := ActualTotal(subtasks)
	require.NotNil(t, got)
	assert.Equal(t, 35, *got, "a parent's own minutes are not counted")
}

func TestTask_LastToggleCompletesAndRevert(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	task := models.Task{ID: "t1", Status: inProgress}
	subtasks := []models.Subtask{
		{ID: "a", Status: completed},
		{ID: "b", Status: completed},
	}

	res := Task(task, subtasks, now)
	assert.Equal(t, completed, res.Status)
	require.NotNil(t, res.CompletedAt)
	assert.Equal(t, now, *res.CompletedAt)
	assert.Nil(t, res.TotalActualMinutes)

	task.Status, task.CompletedAt = res.Status, res.CompletedAt
	subtasks[1].Status = pending

	res = Task(task, subtasks, now.Add(time.Minute))
	assert.Equal(t, inProgress, res.Status)
	assert.Nil(t, res.CompletedAt)
}
