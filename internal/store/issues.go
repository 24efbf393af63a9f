package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/danielolaszy/attractor/internal/apperr"
	"github.com/danielolaszy/attractor/pkg/models"
)

// ReadIssue loads issue number. A missing file is apperr.ErrNotFound.
func (s *Store) ReadIssue(number int64) (models.Issue, error) {
	var issue models.Issue
	if err := readJSON(s.issuePath(number), &issue); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Issue{}, apperr.NotFound("issue #%d", number)
		}
		return models.Issue{}, err
	}
	return issue, nil
}

// WriteIssue stores the issue under its number, replacing any previous version.
func (s *Store) WriteIssue(issue models.Issue) error {
	return writeJSON(s.issuePath(issue.Number), issue)
}

// allIssues loads every issue file, ordered by number.
func (s *Store) allIssues() ([]models.Issue, error) {
	entries, err := os.ReadDir(s.issuesDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}

	issues := make([]models.Issue, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		var issue models.Issue
		if err := readJSON(filepath.Join(s.issuesDir(), entry.Name()), &issue); err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}

	sort.Slice(issues, func(i, j int) bool { return issues[i].Number < issues[j].Number })
	return issues, nil
}

// ListIssues filters, sorts and paginates issues. It returns the requested
// page and the number of issues that matched before pagination.
func (s *Store) ListIssues(filters models.IssueFilters) ([]models.Issue, int, error) {
	issues, err := s.allIssues()
	if err != nil {
		return nil, 0, err
	}

	matched := issues[:0]
	for _, issue := range issues {
		if matchIssue(issue, filters) {
			matched = append(matched, issue)
		}
	}

	sortIssues(matched, filters.Sort, filters.Direction)

	total := len(matched)
	page, _, _ := paginate(matched, filters.Page, filters.PerPage)
	return page, total, nil
}

func matchIssue(issue models.Issue, f models.IssueFilters) bool {
	state := f.State
	if state == "" {
		state = models.StateOpen
	}
	if state != models.StateAll && issue.State != state {
		return false
	}

	for _, name := range f.Labels {
		if !hasLabel(issue.Labels, name) {
			return false
		}
	}

	switch f.Assignee {
	case "":
	case "none":
		if len(issue.Assignees) > 0 {
			return false
		}
	case "*":
		if len(issue.Assignees) == 0 {
			return false
		}
	default:
		found := false
		for _, a := range issue.Assignees {
			if a.Login == f.Assignee {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	switch f.Milestone {
	case "":
	case "none":
		return issue.Milestone == nil
	case "*":
		return issue.Milestone != nil
	default:
		number, err := strconv.ParseInt(f.Milestone, 10, 64)
		if err != nil {
			// unparsable milestone filters are ignored
			return true
		}
		return issue.Milestone != nil && issue.Milestone.Number == number
	}
	return true
}

func hasLabel(labels []models.Label, name string) bool {
	for _, l := range labels {
		if l.Name == name {
			return true
		}
	}
	return false
}

// sortIssues orders issues by created (default), updated or comments,
// descending unless direction is "asc". The sort is stable.
func sortIssues(issues []models.Issue, field, direction string) {
	asc := strings.EqualFold(direction, "asc")

	less := func(a, b models.Issue) int {
		switch field {
		case "updated":
			return compareTime(a.UpdatedAt, b.UpdatedAt)
		case "comments":
			return compareInt(a.Comments, b.Comments)
		default:
			return compareTime(a.CreatedAt, b.CreatedAt)
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		c := less(issues[i], issues[j])
		if asc {
			return c < 0
		}
		return c > 0
	})
}

func compareTime(a, b time.Time) int {
	return a.Compare(b)
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// CreateIssue allocates the next issue number and writes a new open issue
// built from input. Labels are resolved by name against labels.json and
// unknown names are dropped; the milestone is embedded by value when it
// exists.
func (s *Store) CreateIssue(input models.NewIssue, author models.SimpleUser, now time.Time) (models.Issue, error) {
	labels, err := s.ResolveLabels(input.Labels)
	if err != nil {
		return models.Issue{}, err
	}

	var milestone *models.Milestone
	if input.Milestone != nil {
		if milestone, err = s.findMilestone(*input.Milestone); err != nil {
			return models.Issue{}, err
		}
	}

	number, err := s.NextIssueNumber()
	if err != nil {
		return models.Issue{}, err
	}

	issue := models.Issue{
		ID:                number,
		Number:            number,
		Title:             input.Title,
		Body:              input.Body,
		State:             models.StateOpen,
		Labels:            labels,
		Assignees:         assigneeUsers(input.Assignees),
		Milestone:         milestone,
		Comments:          0,
		CreatedAt:         now,
		UpdatedAt:         now,
		AuthorAssociation: "OWNER",
		User:              author,
	}
	if err := s.WriteIssue(issue); err != nil {
		return models.Issue{}, err
	}
	return issue, nil
}

// UpdateIssue applies the non-nil fields of update. Moving into closed sets
// closed_at and closed_by; moving into open clears them.
func (s *Store) UpdateIssue(number int64, update models.IssueUpdate, actor models.SimpleUser, now time.Time) (models.Issue, error) {
	issue, err := s.ReadIssue(number)
	if err != nil {
		return models.Issue{}, err
	}

	if update.Title != nil {
		issue.Title = *update.Title
	}
	if update.Body != nil {
		issue.Body = update.Body
	}
	if update.State != nil {
		state := *update.State
		if state == models.StateClosed && issue.State != models.StateClosed {
			closedAt := now
			closedBy := actor
			issue.ClosedAt = &closedAt
			issue.ClosedBy = &closedBy
		} else if state == models.StateOpen {
			issue.ClosedAt = nil
			issue.ClosedBy = nil
		}
		issue.State = state
	}
	if update.StateReason != nil {
		issue.StateReason = update.StateReason
	}
	if update.Assignees != nil {
		issue.Assignees = assigneeUsers(update.Assignees)
	}
	if update.Labels != nil {
		if issue.Labels, err = s.ResolveLabels(update.Labels); err != nil {
			return models.Issue{}, err
		}
	}
	if update.Milestone != nil {
		if issue.Milestone, err = s.findMilestone(*update.Milestone); err != nil {
			return models.Issue{}, err
		}
	}
	issue.UpdatedAt = now

	if err := s.WriteIssue(issue); err != nil {
		return models.Issue{}, err
	}
	return issue, nil
}

// SetLocked locks or unlocks an issue. Unlocking clears the reason.
func (s *Store) SetLocked(number int64, locked bool, reason *string, now time.Time) (models.Issue, error) {
	issue, err := s.ReadIssue(number)
	if err != nil {
		return models.Issue{}, err
	}

	issue.Locked = locked
	issue.LockReason = nil
	if locked {
		issue.LockReason = reason
	}
	issue.UpdatedAt = now

	if err := s.WriteIssue(issue); err != nil {
		return models.Issue{}, err
	}
	return issue, nil
}

// assigneeUsers turns logins into placeholder users.
func assigneeUsers(logins []string) []models.SimpleUser {
	users := make([]models.SimpleUser, 0, len(logins))
	for _, login := range logins {
		users = append(users, models.SimpleUser{Login: login, Type: "User"})
	}
	return users
}
