package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/danielolaszy/attractor/internal/store"
	"github.com/danielolaszy/attractor/pkg/models"
)

// ListComments returns one page of an issue's comments, oldest first.
func (s *Service) ListComments(ctx context.Context, ref Ref, issue int64, page, perPage int) (models.ListResponse[models.Comment], error) {
	return view(ctx, s, ref, func(st *store.Store) (models.ListResponse[models.Comment], error) {
		if _, err := st.ReadIssue(issue); err != nil {
			return models.ListResponse[models.Comment]{}, err
		}
		items, total, err := st.ListComments(issue, page, perPage)
		if err != nil {
			return models.ListResponse[models.Comment]{}, err
		}
		pg, pp := store.PageBounds(page, perPage)
		return models.ListResponse[models.Comment]{Items: items, TotalCount: total, Page: pg, PerPage: pp}, nil
	})
}

// GetComment returns comment id wherever it lives.
func (s *Service) GetComment(ctx context.Context, ref Ref, id int64) (models.Comment, error) {
	return view(ctx, s, ref, func(st *store.Store) (models.Comment, error) {
		_, comment, err := st.FindComment(id)
		return comment, err
	})
}

// CreateComment adds a comment by the current user to issue.
func (s *Service) CreateComment(ctx context.Context, ref Ref, issue int64, body string) (models.Comment, error) {
	return mutate(ctx, s, ref, func(st *store.Store, now time.Time) (models.Comment, string, error) {
		if _, err := st.ReadIssue(issue); err != nil {
			return models.Comment{}, "", err
		}
		comment, err := st.AddComment(issue, body, s.user, "OWNER", now)
		if err != nil {
			return models.Comment{}, "", err
		}
		return comment, fmt.Sprintf("Add comment #%d on issue #%d", comment.ID, issue), nil
	})
}

// UpdateComment replaces the body of comment id.
func (s *Service) UpdateComment(ctx context.Context, ref Ref, id int64, body string) (models.Comment, error) {
	return mutate(ctx, s, ref, func(st *store.Store, now time.Time) (models.Comment, string, error) {
		_, comment, err := st.EditComment(id, body, now)
		if err != nil {
			return models.Comment{}, "", err
		}
		return comment, fmt.Sprintf("Update comment #%d", id), nil
	})
}

// DeleteComment removes comment id.
func (s *Service) DeleteComment(ctx context.Context, ref Ref, id int64) error {
	_, err := mutate(ctx, s, ref, func(st *store.Store, now time.Time) (struct{}, string, error) {
		if _, err := st.RemoveComment(id, now); err != nil {
			return struct{}{}, "", err
		}
		return struct{}{}, fmt.Sprintf("Delete comment #%d", id), nil
	})
	return err
}
