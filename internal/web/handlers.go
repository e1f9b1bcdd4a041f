package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stepwise-app/stepwise/internal/version"
	"github.com/stepwise-app/stepwise/pkg/models"
)

const maxBodySize = 1 << 20 // 1MB

type analyzeRequest struct {
	Title string       `json:"title"`
	Hints models.Hints `json:"hints"`
}

type decomposeRequest struct {
	ParentTitle string `json:"parent_title"`
	TaskTitle   string `json:"task_title"`
}

type statusRequest struct {
	Status models.TaskStatus `json:"status" binding:"required"`
}

type actualMinutesRequest struct {
	ActualMinutes *int `json:"actual_minutes" binding:"required"`
}

type suggestionsResponse struct {
	Suggestions []models.Suggestion `json:"suggestions"`
}

// bindJSON decodes a bounded JSON body, writing a 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
	if err := c.ShouldBindJSON(dst); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return false
	}
	return true
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Get()})
}

// profileFor loads the caller's profile for prompt personalization.
// A failed lookup degrades to the generic persona.
func (s *Server) profileFor(c *gin.Context) *models.Profile {
	p, err := s.store.GetProfile(c.Request.Context(), userFrom(c))
	if err != nil {
		s.logger.Warn("profile lookup failed", "error", err)
		return nil
	}
	return p
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := req.Hints.Validate(); err != nil {
		abortWithError(c, err)
		return
	}

	suggestions, err := s.ai.Analyze(c.Request.Context(), req.Title, s.profileFor(c), req.Hints)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestionsResponse{Suggestions: suggestions})
}

func (s *Server) handleDecompose(c *gin.Context) {
	var req decomposeRequest
	if !bindJSON(c, &req) {
		return
	}

	suggestions, err := s.ai.Decompose(c.Request.Context(), req.ParentTitle, req.TaskTitle, s.profileFor(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestionsResponse{Suggestions: suggestions})
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var draft models.TaskDraft
	if !bindJSON(c, &draft) {
		return
	}

	id, err := s.store.CreateTask(c.Request.Context(), userFrom(c), draft)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.store.ListTasks(c.Request.Context(), userFrom(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.store.GetTask(c.Request.Context(), userFrom(c), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleToggleSubtask(c *gin.Context) {
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := s.store.ToggleSubtask(c.Request.Context(), userFrom(c), c.Param("id"), c.Param("sid"), req.Status)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

func (s *Server) handleActualMinutes(c *gin.Context) {
	var req actualMinutesRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := s.store.UpdateActualMinutes(c.Request.Context(), userFrom(c), c.Param("id"), c.Param("sid"), *req.ActualMinutes)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context(), userFrom(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleGetProfile(c *gin.Context) {
	p, err := s.store.GetProfile(c.Request.Context(), userFrom(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

func (s *Server) handleSaveProfile(c *gin.Context) {
	var p models.Profile
	if !bindJSON(c, &p) {
		return
	}
	p.UserID = userFrom(c)

	if err := s.store.SaveProfile(c.Request.Context(), &p); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}
