// Package web exposes the task planner over a JSON HTTP API.
//
// Callers identify themselves with the X-User-ID header; authentication is
// expected to happen in front of this server.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stepwise-app/stepwise/internal/state"
	"github.com/stepwise-app/stepwise/pkg/models"
)

// UserHeader carries the caller's user id.
const UserHeader = "X-User-ID"

// Store is the persistence the handlers need.
type Store interface {
	state.TaskCreator
	state.TaskReader
	state.SubtaskMutator
	state.ProfileStore
}

// Requester proposes subtasks with the AI.
type Requester interface {
	Analyze(ctx context.Context, title string, profile *models.Profile, hints models.Hints) ([]models.Suggestion, error)
	Decompose(ctx context.Context, parentTitle, taskTitle string, profile *models.Profile) ([]models.Suggestion, error)
}

// Server is the Stepwise web server.
type Server struct {
	store  Store
	ai     Requester
	router *gin.Engine
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a new web server.
func NewServer(store Store, ai Requester, opts ...Option) *Server {
	s := &Server{
		store:  store,
		ai:     ai,
		router: gin.New(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(gin.Recovery(), s.requestLogger())

	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api", requireUser())
	{
		api.POST("/analyze", s.handleAnalyze)
		api.POST("/decompose", s.handleDecompose)

		api.GET("/tasks", s.handleListTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.GET("/tasks/:id", s.handleGetTask)
		api.PATCH("/tasks/:id/subtasks/:sid/status", s.handleToggleSubtask)
		api.PATCH("/tasks/:id/subtasks/:sid/actual-minutes", s.handleActualMinutes)

		api.GET("/stats", s.handleStats)

		api.GET("/profile", s.handleGetProfile)
		api.PUT("/profile", s.handleSaveProfile)
	}

	return s
}

// Handler returns the HTTP handler for use with an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// requireUser rejects requests without a caller identity.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(UserHeader)
		if userID == "" {
			abortWithError(c, models.ErrUnauthenticated)
			return
		}
		c.Set(userKey, userID)
		c.Next()
	}
}

const userKey = "stepwise.user"

func userFrom(c *gin.Context) string {
	return c.GetString(userKey)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		}
		if len(c.Errors) > 0 {
			s.logger.Error("request failed", append(attrs, "error", c.Errors.String())...)
			return
		}
		s.logger.Info("request", attrs...)
	}
}
