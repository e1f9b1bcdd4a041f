package models

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// TaskStatus represents the current state of a task or subtask.
type TaskStatus string

const (
	// TaskStatusPending indicates no work has been recorded yet.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates some, but not all, work is done.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the work is finished.
	TaskStatusCompleted TaskStatus = "completed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// Toggleable returns true if a user may set this status directly.
// In-progress is only ever derived, never chosen.
func (s TaskStatus) Toggleable() bool {
	return s == TaskStatusPending || s == TaskStatusCompleted
}

// Task is the persisted aggregate root owning a tree of subtasks.
type Task struct {
	// ID is the durable identifier for this task.
	ID string `json:"id" yaml:"id"`
	// UserID identifies the owner.
	UserID string `json:"user_id" yaml:"user_id"`
	// Title is what the user typed in.
	Title string `json:"title" yaml:"title"`
	// Memo is optional free text captured with the task.
	Memo string `json:"memo,omitempty" yaml:"memo,omitempty"`
	// DueDate is an optional YYYY-MM-DD due date.
	DueDate string `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	// Status is derived from the subtasks.
	Status TaskStatus `json:"status" yaml:"status"`
	// TotalEstimatedMinutes is the leaf-only estimate captured at save time.
	TotalEstimatedMinutes int `json:"total_estimated_minutes" yaml:"total_estimated_minutes"`
	// TotalActualMinutes is the leaf-only actual time; nil means not tracked yet.
	TotalActualMinutes *int `json:"total_actual_minutes" yaml:"total_actual_minutes"`
	// CreatedAt is when the task was saved.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	// CompletedAt is set exactly while Status is completed.
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// Subtask is a persisted node of a task's decomposition tree.
type Subtask struct {
	ID                    string     `json:"id" yaml:"id"`
	TaskID                string     `json:"task_id" yaml:"task_id"`
	ParentSubtaskID       string     `json:"parent_subtask_id,omitempty" yaml:"parent_subtask_id,omitempty"`
	Depth                 int        `json:"depth" yaml:"depth"`
	Title                 string     `json:"title" yaml:"title"`
	Difficulty            Difficulty `json:"difficulty" yaml:"difficulty"`
	AISuggestedDifficulty Difficulty `json:"ai_suggested_difficulty,omitempty" yaml:"ai_suggested_difficulty,omitempty"`
	EstimatedMinutes      int        `json:"estimated_minutes" yaml:"estimated_minutes"`
	AISuggestedMinutes    int        `json:"ai_suggested_minutes,omitempty" yaml:"ai_suggested_minutes,omitempty"`
	ActualMinutes         *int       `json:"actual_minutes" yaml:"actual_minutes"`
	SortOrder             int        `json:"sort_order" yaml:"sort_order"`
	Status                TaskStatus `json:"status" yaml:"status"`
	CreatedAt             time.Time  `json:"created_at" yaml:"created_at"`
	CompletedAt           *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// ItemID implements the estimate tree item contract.
func (s Subtask) ItemID() string { return s.ID }

// ParentItemID implements the estimate tree item contract.
func (s Subtask) ParentItemID() string { return s.ParentSubtaskID }

// Actual returns the tracked minutes, treating untracked as zero.
func (s Subtask) Actual() int {
	if s.ActualMinutes == nil {
		return 0
	}
	return *s.ActualMinutes
}

// TaskWithSubtasks bundles a task with its full subtask set.
type TaskWithSubtasks struct {
	Task     `yaml:",inline"`
	Subtasks []Subtask `json:"subtasks" yaml:"subtasks"`
}

// Hints carries the optional inputs collected alongside a task title.
type Hints struct {
	// Memo is extra context for the AI and the saved task.
	Memo string `json:"memo,omitempty"`
	// DesiredSubtaskCount asks the AI for a specific number of steps (0 = let it choose).
	DesiredSubtaskCount int `json:"desired_subtask_count,omitempty"`
	// TargetDurationMinutes is the total time the user wants to spend (0 = let it choose).
	TargetDurationMinutes int `json:"target_duration_minutes,omitempty"`
	// DueDate is an optional YYYY-MM-DD due date.
	DueDate string `json:"due_date,omitempty"`
}

// Hint limits.
const (
	MaxMemoRunes       = 500
	MaxDesiredSubtasks = 10
)

// HintError reports one unusable hint. Its text is meant for the user.
type HintError struct {
	Field  string
	Reason string
}

func (e *HintError) Error() string {
	return e.Field + " " + e.Reason
}

// Unwrap makes every HintError an ErrValidation.
func (e *HintError) Unwrap() error {
	return ErrValidation
}

// Validate checks the hints against the limits the AI prompt can honor.
// Zero values mean "not given" and always pass.
func (h Hints) Validate() error {
	if n := utf8.RuneCountInString(h.Memo); n > MaxMemoRunes {
		return &HintError{Field: "memo", Reason: fmt.Sprintf("must be at most %d characters (got %d)", MaxMemoRunes, n)}
	}
	if h.DesiredSubtaskCount < 0 || h.DesiredSubtaskCount > MaxDesiredSubtasks {
		return &HintError{Field: "steps", Reason: fmt.Sprintf("must be between 1 and %d", MaxDesiredSubtasks)}
	}
	if h.TargetDurationMinutes < 0 {
		return &HintError{Field: "minutes", Reason: "cannot be negative"}
	}
	if h.DueDate != "" {
		if _, err := time.Parse(time.DateOnly, h.DueDate); err != nil {
			return &HintError{Field: "due date", Reason: "must look like 2026-01-31"}
		}
	}
	return nil
}

// IsZero reports whether no hint was given.
func (h Hints) IsZero() bool {
	return h == Hints{}
}

// TaskDraft is the snapshot handed to persistence when the user confirms.
type TaskDraft struct {
	Title                 string `json:"title"`
	Hints                 Hints  `json:"hints"`
	TotalEstimatedMinutes int    `json:"total_estimated_minutes"`
	Subtasks              []Node `json:"subtasks"`
}

// Stats summarizes a user's tasks for the dashboard.
type Stats struct {
	TotalTasks             int                `json:"total_tasks"`
	CompletedTasks         int                `json:"completed_tasks"`
	InProgressTasks        int                `json:"in_progress_tasks"`
	TotalSubtasks          int                `json:"total_subtasks"`
	CompletedSubtasks      int                `json:"completed_subtasks"`
	EstimatedMinutesTotal  int                `json:"estimated_minutes_total"`
	ActualMinutesTotal     int                `json:"actual_minutes_total"`
	DifficultyDistribution map[Difficulty]int `json:"difficulty_distribution"`
}
