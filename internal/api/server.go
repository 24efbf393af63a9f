// Package api serves the tracker over HTTP with GitHub-shaped routes so that
// GitHub-aware clients can talk to a local backing store.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/danielolaszy/attractor/internal/apperr"
	"github.com/danielolaszy/attractor/internal/logging"
	"github.com/danielolaszy/attractor/internal/notify"
	"github.com/danielolaszy/attractor/internal/tracker"
)

// Subscriber streams session events.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan notify.Event, error)
}

// Server is the attractor HTTP API.
type Server struct {
	svc         *tracker.Service
	events      Subscriber
	projectPath string
	router      *gin.Engine
}

// NewServer wires the routes. Sessions run inside projectPath. events may be
// nil, in which case the event stream is unavailable.
func NewServer(svc *tracker.Service, events Subscriber, projectPath string) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{
		svc:         svc,
		events:      events,
		projectPath: projectPath,
		router:      router,
	}

	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	{
		api.GET("/events", s.handleEvents)

		repo := api.Group("/repos/:owner/:repo")
		repo.GET("/issues", s.handleListIssues)
		repo.POST("/issues", s.handleCreateIssue)
		repo.GET("/issues/:number", s.handleGetIssue)
		repo.PATCH("/issues/:number", s.handleUpdateIssue)
		repo.PUT("/issues/:number/lock", s.handleLockIssue)
		repo.DELETE("/issues/:number/lock", s.handleUnlockIssue)

		repo.GET("/issues/:number/comments", s.handleListComments)
		repo.POST("/issues/:number/comments", s.handleCreateComment)
		repo.GET("/issues/comments/:id", s.handleGetComment)
		repo.PATCH("/issues/comments/:id", s.handleUpdateComment)
		repo.DELETE("/issues/comments/:id", s.handleDeleteComment)

		repo.GET("/issues/:number/labels", s.handleIssueLabels)
		repo.POST("/issues/:number/labels", s.handleAddIssueLabels)
		repo.PUT("/issues/:number/labels", s.handleSetIssueLabels)
		repo.DELETE("/issues/:number/labels", s.handleClearIssueLabels)
		repo.DELETE("/issues/:number/labels/:name", s.handleRemoveIssueLabel)

		repo.GET("/labels", s.handleListLabels)
		repo.POST("/labels", s.handleCreateLabel)
		repo.GET("/labels/:name", s.handleGetLabel)
		repo.PATCH("/labels/:name", s.handleUpdateLabel)
		repo.DELETE("/labels/:name", s.handleDeleteLabel)

		repo.GET("/milestones", s.handleListMilestones)
		repo.POST("/milestones", s.handleCreateMilestone)
		repo.GET("/milestones/:number", s.handleGetMilestone)
		repo.PATCH("/milestones/:number", s.handleUpdateMilestone)
		repo.DELETE("/milestones/:number", s.handleDeleteMilestone)

		repo.POST("/issues/:number/session", s.handleRunSession)
		repo.GET("/issues/:number/session", s.handleSessionStatus)
		repo.DELETE("/issues/:number/session", s.handleCancelSession)
	}

	return s
}

// Handler exposes the router, mainly for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("http api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logging.Info("shutting down http api")
		if err := srv.Shutdown(context.Background()); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logging.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status())
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var forbidden *apperr.RepoCreationForbiddenError
	var mismatch *apperr.StoreIDMismatchError

	switch {
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalid), errors.Is(err, apperr.ErrLabelExists):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrSessionRunning), errors.Is(err, apperr.ErrNoActiveProcess),
		errors.Is(err, apperr.ErrSessionStarting), errors.Is(err, apperr.ErrDiverged), errors.As(err, &mismatch):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrAuth):
		return http.StatusUnauthorized
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.Is(err, tracker.ErrSessionsUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.Error("request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, gin.H{"message": err.Error()})
}
