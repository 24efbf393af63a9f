package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/danielolaszy/attractor/internal/apperr"
	"github.com/danielolaszy/attractor/internal/tracker"
	"github.com/danielolaszy/attractor/pkg/models"
)

type commentBody struct {
	Body string `json:"body" binding:"required"`
}

type lockBody struct {
	LockReason *string `json:"lock_reason"`
}

type labelsBody struct {
	Labels []string `json:"labels"`
}

type newLabelBody struct {
	Name        string  `json:"name" binding:"required"`
	Color       string  `json:"color"`
	Description *string `json:"description"`
}

func repoRef(c *gin.Context) tracker.Ref {
	return tracker.Ref{Owner: c.Param("owner"), Repo: c.Param("repo")}
}

// intParam reads a positive integer path parameter, answering 404 for
// anything else the way GitHub does.
func intParam(c *gin.Context, name string) (int64, bool) {
	n, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || n < 1 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
		return 0, false
	}
	return n, true
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Problems parsing JSON", "error": err.Error()})
		return false
	}
	return true
}

// splitList expands comma separated query values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Issues

func (s *Server) handleListIssues(c *gin.Context) {
	var filters models.IssueFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		fail(c, apperr.Invalid("%v", err))
		return
	}
	filters.Labels = splitList(filters.Labels)

	list, err := s.svc.ListIssues(c.Request.Context(), repoRef(c), filters)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleCreateIssue(c *gin.Context) {
	var input models.NewIssue
	if !bind(c, &input) {
		return
	}
	issue, err := s.svc.CreateIssue(c.Request.Context(), repoRef(c), input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, issue)
}

func (s *Server) handleGetIssue(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	issue, err := s.svc.GetIssue(c.Request.Context(), repoRef(c), number)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

func (s *Server) handleUpdateIssue(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	var update models.IssueUpdate
	if !bind(c, &update) {
		return
	}
	issue, err := s.svc.UpdateIssue(c.Request.Context(), repoRef(c), number, update)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

func (s *Server) handleLockIssue(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	var body lockBody
	if c.Request.ContentLength > 0 && !bind(c, &body) {
		return
	}
	if _, err := s.svc.LockIssue(c.Request.Context(), repoRef(c), number, body.LockReason); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleUnlockIssue(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	if _, err := s.svc.UnlockIssue(c.Request.Context(), repoRef(c), number); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Comments

func (s *Server) handleListComments(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "30"))

	list, err := s.svc.ListComments(c.Request.Context(), repoRef(c), number, page, perPage)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleCreateComment(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	var body commentBody
	if !bind(c, &body) {
		return
	}
	comment, err := s.svc.CreateComment(c.Request.Context(), repoRef(c), number, body.Body)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (s *Server) handleGetComment(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	comment, err := s.svc.GetComment(c.Request.Context(), repoRef(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (s *Server) handleUpdateComment(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var body commentBody
	if !bind(c, &body) {
		return
	}
	comment, err := s.svc.UpdateComment(c.Request.Context(), repoRef(c), id, body.Body)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (s *Server) handleDeleteComment(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	if err := s.svc.DeleteComment(c.Request.Context(), repoRef(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Labels

func (s *Server) handleListLabels(c *gin.Context) {
	labels, err := s.svc.ListLabels(c.Request.Context(), repoRef(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, labels)
}

func (s *Server) handleCreateLabel(c *gin.Context) {
	var body newLabelBody
	if !bind(c, &body) {
		return
	}
	label, err := s.svc.CreateLabel(c.Request.Context(), repoRef(c), body.Name, body.Color, body.Description)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, label)
}

func (s *Server) handleGetLabel(c *gin.Context) {
	label, err := s.svc.GetLabel(c.Request.Context(), repoRef(c), c.Param("name"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, label)
}

func (s *Server) handleUpdateLabel(c *gin.Context) {
	var update models.LabelUpdate
	if !bind(c, &update) {
		return
	}
	label, err := s.svc.UpdateLabel(c.Request.Context(), repoRef(c), c.Param("name"), update)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, label)
}

func (s *Server) handleDeleteLabel(c *gin.Context) {
	if err := s.svc.DeleteLabel(c.Request.Context(), repoRef(c), c.Param("name")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleIssueLabels(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	labels, err := s.svc.IssueLabels(c.Request.Context(), repoRef(c), number)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, labels)
}

func (s *Server) handleAddIssueLabels(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	var body labelsBody
	if !bind(c, &body) {
		return
	}
	labels, err := s.svc.AddIssueLabels(c.Request.Context(), repoRef(c), number, body.Labels)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, labels)
}

func (s *Server) handleSetIssueLabels(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	var body labelsBody
	if !bind(c, &body) {
		return
	}
	labels, err := s.svc.SetIssueLabels(c.Request.Context(), repoRef(c), number, body.Labels)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, labels)
}

func (s *Server) handleClearIssueLabels(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	if err := s.svc.ClearIssueLabels(c.Request.Context(), repoRef(c), number); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRemoveIssueLabel(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	labels, err := s.svc.RemoveIssueLabel(c.Request.Context(), repoRef(c), number, c.Param("name"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, labels)
}

// Milestones

func (s *Server) handleListMilestones(c *gin.Context) {
	var filters models.MilestoneFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		fail(c, apperr.Invalid("%v", err))
		return
	}
	list, err := s.svc.ListMilestones(c.Request.Context(), repoRef(c), filters)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleCreateMilestone(c *gin.Context) {
	var input models.NewMilestone
	if !bind(c, &input) {
		return
	}
	m, err := s.svc.CreateMilestone(c.Request.Context(), repoRef(c), input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (s *Server) handleGetMilestone(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	m, err := s.svc.GetMilestone(c.Request.Context(), repoRef(c), number)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) handleUpdateMilestone(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	var update models.MilestoneUpdate
	if !bind(c, &update) {
		return
	}
	m, err := s.svc.UpdateMilestone(c.Request.Context(), repoRef(c), number, update)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) handleDeleteMilestone(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	if err := s.svc.DeleteMilestone(c.Request.Context(), repoRef(c), number); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Sessions

func (s *Server) handleRunSession(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	info, err := s.svc.RunSession(c.Request.Context(), repoRef(c), number, s.projectPath)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, info)
}

func (s *Server) handleSessionStatus(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	info, err := s.svc.SessionStatus(repoRef(c), number)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleCancelSession(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	if err := s.svc.CancelSession(repoRef(c), number); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}
