package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/danielolaszy/attractor/internal/apperr"
	"github.com/danielolaszy/attractor/internal/store"
	"github.com/danielolaszy/attractor/pkg/models"
)

// ListIssues returns one page of issues matching filters.
func (s *Service) ListIssues(ctx context.Context, ref Ref, filters models.IssueFilters) (models.ListResponse[models.Issue], error) {
	return view(ctx, s, ref, func(st *store.Store) (models.ListResponse[models.Issue], error) {
		items, total, err := st.ListIssues(filters)
		if err != nil {
			return models.ListResponse[models.Issue]{}, err
		}
		page, perPage := store.PageBounds(filters.Page, filters.PerPage)
		return models.ListResponse[models.Issue]{Items: items, TotalCount: total, Page: page, PerPage: perPage}, nil
	})
}

// GetIssue returns issue number.
func (s *Service) GetIssue(ctx context.Context, ref Ref, number int64) (models.Issue, error) {
	return view(ctx, s, ref, func(st *store.Store) (models.Issue, error) {
		return st.ReadIssue(number)
	})
}

// CreateIssue opens a new issue authored by the current user.
func (s *Service) CreateIssue(ctx context.Context, ref Ref, input models.NewIssue) (models.Issue, error) {
	if input.Title == "" {
		return models.Issue{}, apperr.Invalid("issue title is required")
	}
	return mutate(ctx, s, ref, func(st *store.Store, now time.Time) (models.Issue, string, error) {
		issue, err := st.CreateIssue(input, s.user, now)
		if err != nil {
			return models.Issue{}, "", err
		}
		return issue, fmt.Sprintf("Create issue #%d: %s", issue.Number, issue.Title), nil
	})
}

// UpdateIssue applies a partial update to issue number.
func (s *Service) UpdateIssue(ctx context.Context, ref Ref, number int64, update models.IssueUpdate) (models.Issue, error) {
	if update.State != nil && *update.State != models.StateOpen && *update.State != models.StateClosed {
		return models.Issue{}, apperr.Invalid("issue state must be open or closed, got %q", *update.State)
	}
	return mutate(ctx, s, ref, func(st *store.Store, now time.Time) (models.Issue, string, error) {
		issue, err := st.UpdateIssue(number, update, s.user, now)
		if err != nil {
			return models.Issue{}, "", err
		}
		return issue, fmt.Sprintf("Update issue #%d", number), nil
	})
}

// LockIssue locks issue number with an optional reason.
func (s *Service) LockIssue(ctx context.Context, ref Ref, number int64, reason *string) (models.Issue, error) {
	return mutate(ctx, s, ref, func(st *store.Store, now time.Time) (models.Issue, string, error) {
		issue, err := st.SetLocked(number, true, reason, now)
		if err != nil {
			return models.Issue{}, "", err
		}
		return issue, fmt.Sprintf("Lock issue #%d", number), nil
	})
}

// UnlockIssue unlocks issue number.
func (s *Service) UnlockIssue(ctx context.Context, ref Ref, number int64) (models.Issue, error) {
	return mutate(ctx, s, ref, func(st *store.Store, now time.Time) (models.Issue, string, error) {
		issue, err := st.SetLocked(number, false, nil, now)
		if err != nil {
			return models.Issue{}, "", err
		}
		return issue, fmt.Sprintf("Unlock issue #%d", number), nil
	})
}
