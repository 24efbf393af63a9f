package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/danielolaszy/attractor/internal/apperr"
	"github.com/danielolaszy/attractor/internal/store"
	"github.com/danielolaszy/attractor/pkg/models"
)

// ListMilestones returns one page of milestones matching filters.
func (s *Service) ListMilestones(ctx context.Context, ref Ref, filters models.MilestoneFilters) (models.ListResponse[models.Milestone], error) {
	return view(ctx, s, ref, func(st *store.Store) (models.ListResponse[models.Milestone], error) {
		items, total, err := st.ListMilestones(filters)
		if err != nil {
			return models.ListResponse[models.Milestone]{}, err
		}
		page, perPage := store.PageBounds(filters.Page, filters.PerPage)
		return models.ListResponse[models.Milestone]{Items: items, TotalCount: total, Page: page, PerPage: perPage}, nil
	})
}

// GetMilestone returns milestone number.
func (s *Service) GetMilestone(ctx context.Context, ref Ref, number int64) (models.Milestone, error) {
	return view(ctx, s, ref, func(st *store.Store) (models.Milestone, error) {
		return st.GetMilestone(number)
	})
}

// CreateMilestone adds a milestone.
func (s *Service) CreateMilestone(ctx context.Context, ref Ref, input models.NewMilestone) (models.Milestone, error) {
	if input.Title == "" {
		return models.Milestone{}, apperr.Invalid("milestone title is required")
	}
	return mutate(ctx, s, ref, func(st *store.Store, now time.Time) (models.Milestone, string, error) {
		m, err := st.CreateMilestone(input, now)
		if err != nil {
			return models.Milestone{}, "", err
		}
		return m, fmt.Sprintf("Create milestone #%d: %s", m.Number, m.Title), nil
	})
}

// UpdateMilestone applies a partial update to milestone number.
func (s *Service) UpdateMilestone(ctx context.Context, ref Ref, number int64, update models.MilestoneUpdate) (models.Milestone, error) {
	return mutate(ctx, s, ref, func(st *store.Store, now time.Time) (models.Milestone, string, error) {
		m, err := st.UpdateMilestone(number, update, now)
		if err != nil {
			return models.Milestone{}, "", err
		}
		return m, fmt.Sprintf("Update milestone #%d", number), nil
	})
}

// DeleteMilestone removes milestone number.
func (s *Service) DeleteMilestone(ctx context.Context, ref Ref, number int64) error {
	_, err := mutate(ctx, s, ref, func(st *store.Store, _ time.Time) (struct{}, string, error) {
		if err := st.DeleteMilestone(number); err != nil {
			return struct{}{}, "", err
		}
		return struct{}{}, fmt.Sprintf("Delete milestone #%d", number), nil
	})
	return err
}
