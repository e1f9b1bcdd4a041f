package models

import "errors"

// Domain errors shared by every layer.
var (
	ErrValidation        = errors.New("validation failed")
	ErrEmptyTitle        = errors.New("title cannot be empty")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrInvalidMinutes    = errors.New("invalid minutes")
	ErrUnauthenticated   = errors.New("not authenticated")
	ErrNotOwner          = errors.New("task does not belong to user")
	ErrTaskNotFound      = errors.New("task not found")
	ErrSubtaskNotFound   = errors.New("subtask not found")
)
