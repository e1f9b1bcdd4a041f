package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stepwise-app/stepwise/internal/estimate"
	"github.com/stepwise-app/stepwise/internal/rollup"
	"github.com/stepwise-app/stepwise/pkg/models"
)

const dueDateLayout = "2006-01-02"

// CreateTask persists a draft task and its whole subtask tree in one
// transaction and returns the new task id. The estimated total is
// recomputed from the draft's leaves; the draft's own total is ignored.
func (db *DB) CreateTask(ctx context.Context, userID string, draft models.TaskDraft) (string, error) {
	if userID == "" {
		return "", models.ErrUnauthenticated
	}
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return "", models.ErrEmptyTitle
	}
	if err := validateDraft(draft); err != nil {
		return "", err
	}

	now := db.now()
	taskID := uuid.New().String()
	ids := make(map[string]string, len(draft.Subtasks))
	for _, n := range draft.Subtasks {
		ids[n.TempID] = uuid.New().String()
	}
	total := estimate.LeafTotal(draft.Subtasks, estimate.EstimatedMinutes)

	// Parents must exist before their children reference them.
	ordered := slices.Clone(draft.Subtasks)
	slices.SortStableFunc(ordered, func(a, b models.Node) int { return a.Depth - b.Depth })

	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (id, user_id, title, memo, due_date, status, total_estimated_minutes, total_actual_minutes, created_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?, NULL)
		`, taskID, userID, title, strings.TrimSpace(draft.Hints.Memo), draft.Hints.DueDate,
			string(models.TaskStatusPending), total, formatTime(now))
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO subtasks (id, task_id, parent_subtask_id, depth, title, difficulty, ai_suggested_difficulty,
				estimated_minutes, ai_suggested_minutes, actual_minutes, sort_order, status, created_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?, ?, NULL)
		`)
		if err != nil {
			return fmt.Errorf("prepare subtask insert: %w", err)
		}
		defer stmt.Close()

		for _, n := range ordered {
			var parent sql.NullString
			if n.ParentTempID != "" {
				parent = sql.NullString{String: ids[n.ParentTempID], Valid: true}
			}
			aiDifficulty := n.AISuggestedDifficulty
			if !aiDifficulty.Valid() {
				aiDifficulty = n.Difficulty
			}
			_, err := stmt.ExecContext(ctx,
				ids[n.TempID], taskID, parent, n.Depth, strings.TrimSpace(n.Title), string(n.Difficulty), string(aiDifficulty),
				n.EstimatedMinutes, n.AISuggestedMinutes, n.SortOrder, string(models.TaskStatusPending), formatTime(now))
			if err != nil {
				return fmt.Errorf("insert subtask %q: %w", n.Title, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}
	return taskID, nil
}

// validateDraft checks the shape of a draft tree before anything is written.
func validateDraft(draft models.TaskDraft) error {
	if len(draft.Subtasks) == 0 {
		return fmt.Errorf("%w: task has no subtasks", models.ErrValidation)
	}
	if draft.Hints.DueDate != "" {
		if _, err := time.Parse(dueDateLayout, draft.Hints.DueDate); err != nil {
			return fmt.Errorf("%w: due date %q is not YYYY-MM-DD", models.ErrValidation, draft.Hints.DueDate)
		}
	}

	byID := make(map[string]models.Node, len(draft.Subtasks))
	for _, n := range draft.Subtasks {
		if n.TempID == "" {
			return fmt.Errorf("%w: subtask %q has no id", models.ErrValidation, n.Title)
		}
		if _, dup := byID[n.TempID]; dup {
			return fmt.Errorf("%w: duplicate subtask id %s", models.ErrValidation, n.TempID)
		}
		byID[n.TempID] = n
	}

	type siblingKey struct {
		parent string
		order  int
	}
	seenOrder := make(map[siblingKey]struct{}, len(draft.Subtasks))
	for _, n := range draft.Subtasks {
		if strings.TrimSpace(n.Title) == "" {
			return fmt.Errorf("subtask %s: %w", n.TempID, models.ErrEmptyTitle)
		}
		if !n.Difficulty.Valid() {
			return fmt.Errorf("subtask %s: %w: %q", n.TempID, models.ErrInvalidDifficulty, n.Difficulty)
		}
		if n.EstimatedMinutes < estimate.MinMinutes || n.EstimatedMinutes > estimate.MaxAdjustMinutes {
			return fmt.Errorf("subtask %s: %w: %d not in [%d, %d]", n.TempID, models.ErrInvalidMinutes,
				n.EstimatedMinutes, estimate.MinMinutes, estimate.MaxAdjustMinutes)
		}
		if n.ParentTempID == "" {
			if n.Depth != 0 {
				return fmt.Errorf("%w: root subtask %s has depth %d", models.ErrValidation, n.TempID, n.Depth)
			}
		} else {
			parent, ok := byID[n.ParentTempID]
			if !ok {
				return fmt.Errorf("%w: subtask %s references missing parent %s", models.ErrValidation, n.TempID, n.ParentTempID)
			}
			if n.Depth != parent.Depth+1 {
				return fmt.Errorf("%w: subtask %s depth %d under parent at depth %d", models.ErrValidation, n.TempID, n.Depth, parent.Depth)
			}
		}
		if n.Depth > models.MaxDepth {
			return fmt.Errorf("%w: subtask %s deeper than %d", models.ErrValidation, n.TempID, models.MaxDepth)
		}
		key := siblingKey{parent: n.ParentTempID, order: n.SortOrder}
		if _, dup := seenOrder[key]; dup {
			return fmt.Errorf("%w: duplicate sort order %d among siblings", models.ErrValidation, n.SortOrder)
		}
		seenOrder[key] = struct{}{}
	}
	return nil
}

// GetTask returns a task and all of its subtasks ordered for display.
func (db *DB) GetTask(ctx context.Context, userID, taskID string) (*models.TaskWithSubtasks, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	row := db.queryRowContext(ctx, taskSelect+` WHERE id = ?`, taskID)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task.UserID != userID {
		return nil, models.ErrNotOwner
	}

	rows, err := db.queryContext(ctx, subtaskSelect+` WHERE task_id = ? ORDER BY depth, sort_order`, taskID)
	if err != nil {
		return nil, fmt.Errorf("get subtasks: %w", err)
	}
	subtasks, err := scanSubtasks(rows)
	if err != nil {
		return nil, fmt.Errorf("get subtasks: %w", err)
	}
	return &models.TaskWithSubtasks{Task: *task, Subtasks: subtasks}, nil
}

// ListTasks returns a user's tasks, newest first.
func (db *DB) ListTasks(ctx context.Context, userID string) ([]models.Task, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	rows, err := db.queryContext(ctx, taskSelect+` WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ToggleSubtask sets a subtask to pending or completed and recomputes the
// owning task's status. It returns the updated task.
func (db *DB) ToggleSubtask(ctx context.Context, userID, taskID, subtaskID string, status models.TaskStatus) (*models.Task, error) {
	if !status.Toggleable() {
		return nil, fmt.Errorf("%w: %q cannot be set directly", models.ErrInvalidStatus, status)
	}
	return db.mutateSubtask(ctx, userID, taskID, subtaskID, func(tx *sql.Tx, now time.Time) error {
		var completedAt sql.NullString
		if status == models.TaskStatusCompleted {
			completedAt = sql.NullString{String: formatTime(now), Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE subtasks SET status = ?, completed_at = ? WHERE id = ? AND task_id = ?`,
			string(status), completedAt, subtaskID, taskID)
		return err
	})
}

// UpdateActualMinutes records the time spent on a subtask and recomputes the
// owning task's actual total. It returns the updated task.
func (db *DB) UpdateActualMinutes(ctx context.Context, userID, taskID, subtaskID string, minutes int) (*models.Task, error) {
	if minutes < 0 {
		return nil, fmt.Errorf("%w: actual minutes must be >= 0, got %d", models.ErrInvalidMinutes, minutes)
	}
	return db.mutateSubtask(ctx, userID, taskID, subtaskID, func(tx *sql.Tx, _ time.Time) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE subtasks SET actual_minutes = ? WHERE id = ? AND task_id = ?`,
			minutes, subtaskID, taskID)
		return err
	})
}

// mutateSubtask runs ownership check, write, fresh sibling read and task
// rollup inside one transaction.
func (db *DB) mutateSubtask(ctx context.Context, userID, taskID, subtaskID string, write func(*sql.Tx, time.Time) error) (*models.Task, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	now := db.now()

	var updated *models.Task
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		task, err := scanTask(tx.QueryRowContext(ctx, taskSelect+` WHERE id = ?`, taskID))
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrTaskNotFound
		}
		if err != nil {
			return fmt.Errorf("load task: %w", err)
		}
		if task.UserID != userID {
			return models.ErrNotOwner
		}

		var exists int
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM subtasks WHERE id = ? AND task_id = ?`, subtaskID, taskID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrSubtaskNotFound
		}
		if err != nil {
			return fmt.Errorf("load subtask: %w", err)
		}

		if err := write(tx, now); err != nil {
			return fmt.Errorf("update subtask: %w", err)
		}

		rows, err := tx.QueryContext(ctx, subtaskSelect+` WHERE task_id = ?`, taskID)
		if err != nil {
			return fmt.Errorf("reload subtasks: %w", err)
		}
		subtasks, err := scanSubtasks(rows)
		if err != nil {
			return fmt.Errorf("reload subtasks: %w", err)
		}

		res := rollup.Task(*task, subtasks, now)
		_, err = tx.ExecContext(ctx,
			`UPDATE tasks SET status = ?, completed_at = ?, total_actual_minutes = ? WHERE id = ?`,
			string(res.Status), formatNullableTime(res.CompletedAt), nullableInt(res.TotalActualMinutes), taskID)
		if err != nil {
			return fmt.Errorf("update task rollup: %w", err)
		}

		task.Status = res.Status
		task.CompletedAt = res.CompletedAt
		task.TotalActualMinutes = res.TotalActualMinutes
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Stats summarizes every task a user owns.
func (db *DB) Stats(ctx context.Context, userID string) (*models.Stats, error) {
	tasks, err := db.ListTasks(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := &models.Stats{DifficultyDistribution: make(map[models.Difficulty]int, len(models.Difficulties))}
	for _, d := range models.Difficulties {
		stats.DifficultyDistribution[d] = 0
	}

	for _, t := range tasks {
		stats.TotalTasks++
		switch t.Status {
		case models.TaskStatusCompleted:
			stats.CompletedTasks++
		case models.TaskStatusInProgress:
			stats.InProgressTasks++
		}
		stats.EstimatedMinutesTotal += t.TotalEstimatedMinutes
		if t.TotalActualMinutes != nil {
			stats.ActualMinutesTotal += *t.TotalActualMinutes
		}
	}

	rows, err := db.queryContext(ctx, subtaskSelect+`
		WHERE task_id IN (SELECT id FROM tasks WHERE user_id = ?)`, userID)
	if err != nil {
		return nil, fmt.Errorf("stats subtasks: %w", err)
	}
	subtasks, err := scanSubtasks(rows)
	if err != nil {
		return nil, fmt.Errorf("stats subtasks: %w", err)
	}

	stats.TotalSubtasks = len(subtasks)
	for _, s := range subtasks {
		if s.Status == models.TaskStatusCompleted {
			stats.CompletedSubtasks++
		}
	}
	for _, leaf := range estimate.Leaves(subtasks) {
		if leaf.Status == models.TaskStatusCompleted && leaf.Difficulty.Valid() {
			stats.DifficultyDistribution[leaf.Difficulty]++
		}
	}
	return stats, nil
}

const taskSelect = `
	SELECT id, user_id, title, memo, due_date, status, total_estimated_minutes, total_actual_minutes, created_at, completed_at
	FROM tasks`

const subtaskSelect = `
	SELECT id, task_id, parent_subtask_id, depth, title, difficulty, ai_suggested_difficulty,
		estimated_minutes, ai_suggested_minutes, actual_minutes, sort_order, status, created_at, completed_at
	FROM subtasks`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var status, createdAt string
	var actual sql.NullInt64
	var completedAt sql.NullString
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Memo, &t.DueDate, &status,
		&t.TotalEstimatedMinutes, &actual, &createdAt, &completedAt)
	if err != nil {
		return nil, err
	}
	t.Status = models.TaskStatus(status)
	t.TotalActualMinutes = parseNullableInt(actual)
	t.CreatedAt, _ = parseTime(createdAt)
	t.CompletedAt = parseNullableTime(completedAt)
	return &t, nil
}

// scanSubtasks drains and closes rows.
func scanSubtasks(rows *sql.Rows) ([]models.Subtask, error) {
	defer rows.Close()

	var out []models.Subtask
	for rows.Next() {
		var s models.Subtask
		var parent, completedAt sql.NullString
		var difficulty, aiDifficulty, status, createdAt string
		var actual sql.NullInt64
		err := rows.Scan(&s.ID, &s.TaskID, &parent, &s.Depth, &s.Title, &difficulty, &aiDifficulty,
			&s.EstimatedMinutes, &s.AISuggestedMinutes, &actual, &s.SortOrder, &status, &createdAt, &completedAt)
		if err != nil {
			return nil, err
		}
		s.ParentSubtaskID = parent.String
		s.Difficulty = models.Difficulty(difficulty)
		s.AISuggestedDifficulty = models.Difficulty(aiDifficulty)
		s.ActualMinutes = parseNullableInt(actual)
		s.Status = models.TaskStatus(status)
		s.CreatedAt, _ = parseTime(createdAt)
		s.CompletedAt = parseNullableTime(completedAt)
		out = append(out, s)
	}
	return out, rows.Err()
}
