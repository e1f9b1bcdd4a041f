package web

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stepwise-app/stepwise/internal/decompose"
	"github.com/stepwise-app/stepwise/pkg/models"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps a domain error onto an HTTP status and a message that is
// safe to return. Raw driver and provider text never reaches the caller.
func statusFor(err error) (int, string) {
	var aiErr *decompose.Error
	var hintErr *models.HintError
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized, "missing user identity"
	case errors.Is(err, models.ErrNotOwner):
		return http.StatusForbidden, "you do not have access to this task"
	case errors.Is(err, models.ErrTaskNotFound):
		return http.StatusNotFound, "task not found"
	case errors.Is(err, models.ErrSubtaskNotFound):
		return http.StatusNotFound, "subtask not found"
	case errors.Is(err, models.ErrEmptyTitle):
		return http.StatusBadRequest, "title cannot be empty"
	case errors.Is(err, models.ErrInvalidStatus):
		return http.StatusBadRequest, "status must be pending or completed"
	case errors.Is(err, models.ErrInvalidDifficulty):
		return http.StatusBadRequest, "difficulty must be easy, medium or hard"
	case errors.Is(err, models.ErrInvalidMinutes):
		return http.StatusBadRequest, "minutes are out of range"
	case errors.As(err, &hintErr):
		return http.StatusBadRequest, hintErr.Error()
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, "the task is not valid"
	case errors.As(err, &aiErr):
		if aiErr.Kind == decompose.KindRateLimited {
			return http.StatusTooManyRequests, aiErr.Message
		}
		return http.StatusBadGateway, aiErr.Message
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway, "The AI took too long to respond. Please try again."
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// abortWithError writes the mapped error response and stops the chain.
func abortWithError(c *gin.Context, err error) {
	status, msg := statusFor(err)

	var aiErr *decompose.Error
	if errors.As(err, &aiErr) && aiErr.RetryAfter > 0 {
		secs := int(math.Ceil(aiErr.RetryAfter.Seconds()))
		c.Header("Retry-After", strconv.Itoa(secs))
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, errorBody{Error: msg})
}
