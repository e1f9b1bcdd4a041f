// Package state provides SQLite-based persistence for Stepwise.
package state

import (
	"context"
	"io"

	"github.com/stepwise-app/stepwise/pkg/models"
)

// TaskCreator persists a finished draft atomically.
type TaskCreator interface {
	CreateTask(ctx context.Context, userID string, draft models.TaskDraft) (string, error)
}

// TaskReader reads a user's tasks.
type TaskReader interface {
	GetTask(ctx context.Context, userID, taskID string) (*models.TaskWithSubtasks, error)
	ListTasks(ctx context.Context, userID string) ([]models.Task, error)
	Stats(ctx context.Context, userID string) (*models.Stats, error)
}

// SubtaskMutator applies per-subtask updates followed by a task rollup.
type SubtaskMutator interface {
	ToggleSubtask(ctx context.Context, userID, taskID, subtaskID string, status models.TaskStatus) (*models.Task, error)
	UpdateActualMinutes(ctx context.Context, userID, taskID, subtaskID string, minutes int) (*models.Task, error)
}

// ProfileStore handles profile persistence.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	SaveProfile(ctx context.Context, p *models.Profile) error
}

// Migrator handles database schema migrations.
// Separating this allows clients to depend only on migration functionality.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Store is everything the HTTP and CLI surfaces need from persistence.
// It composes focused sub-interfaces so callers can depend on less.
type Store interface {
	io.Closer
	Migrator
	TaskCreator
	TaskReader
	SubtaskMutator
	ProfileStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store          = (*DB)(nil)
	_ Migrator       = (*DB)(nil)
	_ TaskCreator    = (*DB)(nil)
	_ TaskReader     = (*DB)(nil)
	_ SubtaskMutator = (*DB)(nil)
	_ ProfileStore   = (*DB)(nil)
)
