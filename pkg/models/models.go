// Package models defines data structures shared across the application.
//
// The JSON field names follow the GitHub REST API so stored documents can be
// consumed by GitHub-aware tooling without translation.
package models

import (
	"time"
)

// Issue and milestone states.
const (
	StateOpen   = "open"
	StateClosed = "closed"
	StateAll    = "all"
)

// SimpleUser is the minimal user shape embedded in issues and comments.
type SimpleUser struct {
	Login     string `json:"login"`
	ID        int64  `json:"id"`
	AvatarURL string `json:"avatar_url"`
	Type      string `json:"type"`
}

// Label is a repository label. Issues embed labels by value at write time.
type Label struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Description *string `json:"description"`
	IsDefault   bool    `json:"default"`
}

// Milestone groups issues under a shared due date.
type Milestone struct {
	ID           int64      `json:"id"`
	Number       int64      `json:"number"`
	Title        string     `json:"title"`
	Description  *string    `json:"description"`
	State        string     `json:"state"`
	OpenIssues   int64      `json:"open_issues"`
	ClosedIssues int64      `json:"closed_issues"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ClosedAt     *time.Time `json:"closed_at"`
	DueOn        *time.Time `json:"due_on"`
}

// Issue is a single tracked issue.
type Issue struct {
	ID          int64   `json:"id"`
	Number      int64   `json:"number"`
	Title       string  `json:"title"`
	Body        *string `json:"body"`
	State       string  `json:"state"`
	StateReason *string `json:"state_reason"`
	Locked      bool    `json:"locked"`
	LockReason  *string `json:"lock_reason"`

	Labels    []Label      `json:"labels"`
	Assignees []SimpleUser `json:"assignees"`
	Milestone *Milestone   `json:"milestone"`

	// Comments is a denormalized count of the comment files stored for this
	// issue. It is adjusted in the same logical update as the comment write.
	Comments int64 `json:"comments"`

	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
	ClosedAt          *time.Time  `json:"closed_at"`
	ClosedBy          *SimpleUser `json:"closed_by"`
	AuthorAssociation string      `json:"author_association"`
	User              SimpleUser  `json:"user"`
}

// Comment belongs to exactly one issue. The owning issue is not stored on the
// comment; it is implied by the directory the comment file lives in.
type Comment struct {
	ID                int64      `json:"id"`
	Body              string     `json:"body"`
	User              SimpleUser `json:"user"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	AuthorAssociation string     `json:"author_association"`
}

// Meta holds the next-id counters for a storage repository.
type Meta struct {
	NextIssueID     int64 `json:"next_issue_id"`
	NextCommentID   int64 `json:"next_comment_id"`
	NextMilestoneID int64 `json:"next_milestone_id"`
}

// DefaultMeta returns the counters of a freshly initialized store.
func DefaultMeta() Meta {
	return Meta{NextIssueID: 1, NextCommentID: 1, NextMilestoneID: 1}
}

// StoreManifest lives at the root of a backing storage repository.
type StoreManifest struct {
	// StoreID must match the store_id recorded in the project's config.
	StoreID string `json:"store_id"`
}

// ProjectConfig is stored in a project folder as .amplifier/attractor.json and
// points at the backing storage repository.
type ProjectConfig struct {
	Owner   string `json:"owner"`
	Repo    string `json:"repo"`
	StoreID string `json:"store_id"`
}

// RepoInfo describes a repository on the hosted service.
type RepoInfo struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	FullName    string     `json:"full_name"`
	Description *string    `json:"description"`
	Private     bool       `json:"private"`
	HTMLURL     string     `json:"html_url"`
	CloneURL    string     `json:"clone_url"`
	Owner       SimpleUser `json:"owner"`
}

// ListResponse wraps one page of results with the pre-pagination total.
type ListResponse[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
}

// IssueFilters selects, orders and paginates issues. Empty fields take their
// defaults: open issues, sorted by creation time, newest first.
type IssueFilters struct {
	State     string   `json:"state,omitempty" form:"state"`
	Labels    []string `json:"labels,omitempty" form:"labels"`
	Assignee  string   `json:"assignee,omitempty" form:"assignee"`
	Milestone string   `json:"milestone,omitempty" form:"milestone"`
	Sort      string   `json:"sort,omitempty" form:"sort"`
	Direction string   `json:"direction,omitempty" form:"direction"`
	Page      int      `json:"page,omitempty" form:"page"`
	PerPage   int      `json:"per_page,omitempty" form:"per_page"`
}

// MilestoneFilters selects, orders and paginates milestones.
type MilestoneFilters struct {
	State     string `json:"state,omitempty" form:"state"`
	Sort      string `json:"sort,omitempty" form:"sort"`
	Direction string `json:"direction,omitempty" form:"direction"`
	Page      int    `json:"page,omitempty" form:"page"`
	PerPage   int    `json:"per_page,omitempty" form:"per_page"`
}

// NewIssue carries the caller-supplied fields of an issue to create.
type NewIssue struct {
	Title     string   `json:"title" binding:"required"`
	Body      *string  `json:"body"`
	Assignees []string `json:"assignees"`
	Labels    []string `json:"labels"`
	Milestone *int64   `json:"milestone"`
}

// IssueUpdate carries optional changes to an issue. Nil fields are left as-is.
type IssueUpdate struct {
	Title       *string  `json:"title"`
	Body        *string  `json:"body"`
	State       *string  `json:"state"`
	StateReason *string  `json:"state_reason"`
	Assignees   []string `json:"assignees"`
	Labels      []string `json:"labels"`
	Milestone   *int64   `json:"milestone"`
}

// NewMilestone carries the fields of a milestone to create.
type NewMilestone struct {
	Title       string     `json:"title" binding:"required"`
	Description *string    `json:"description"`
	DueOn       *time.Time `json:"due_on"`
	State       string     `json:"state"`
}

// MilestoneUpdate carries optional changes to a milestone.
type MilestoneUpdate struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DueOn       *time.Time `json:"due_on"`
	State       *string    `json:"state"`
}

// LabelUpdate carries optional changes to a label.
type LabelUpdate struct {
	NewName     *string `json:"new_name"`
	Color       *string `json:"color"`
	Description *string `json:"description"`
}
