package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/danielolaszy/attractor/internal/apperr"
	"github.com/danielolaszy/attractor/internal/store"
	"github.com/danielolaszy/attractor/pkg/models"
)

// ListLabels returns every label of the repository.
func (s *Service) ListLabels(ctx context.Context, ref Ref) ([]models.Label, error) {
	return view(ctx, s, ref, func(st *store.Store) ([]models.Label, error) {
		return st.ReadLabels()
	})
}

// GetLabel returns the label called name.
func (s *Service) GetLabel(ctx context.Context, ref Ref, name string) (models.Label, error) {
	return view(ctx, s, ref, func(st *store.Store) (models.Label, error) {
		return st.GetLabel(name)
	})
}

// CreateLabel adds a label. Colors are stored without a leading '#'.
func (s *Service) CreateLabel(ctx context.Context, ref Ref, name, color string, description *string) (models.Label, error) {
	if name == "" {
		return models.Label{}, apperr.Invalid("label name is required")
	}
	color = strings.TrimPrefix(color, "#")
	return mutate(ctx, s, ref, func(st *store.Store, _ time.Time) (models.Label, string, error) {
		label, err := st.CreateLabel(name, color, description)
		if err != nil {
			return models.Label{}, "", err
		}
		return label, fmt.Sprintf("Create label '%s'", name), nil
	})
}

// UpdateLabel renames or recolors the label called name.
func (s *Service) UpdateLabel(ctx context.Context, ref Ref, name string, update models.LabelUpdate) (models.Label, error) {
	if update.Color != nil {
		color := strings.TrimPrefix(*update.Color, "#")
		update.Color = &color
	}
	return mutate(ctx, s, ref, func(st *store.Store, _ time.Time) (models.Label, string, error) {
		label, err := st.UpdateLabel(name, update)
		if err != nil {
			return models.Label{}, "", err
		}
		return label, fmt.Sprintf("Update label '%s'", name), nil
	})
}

// DeleteLabel removes the label called name.
func (s *Service) DeleteLabel(ctx context.Context, ref Ref, name string) error {
	_, err := mutate(ctx, s, ref, func(st *store.Store, _ time.Time) (struct{}, string, error) {
		if err := st.DeleteLabel(name); err != nil {
			return struct{}{}, "", err
		}
		return struct{}{}, fmt.Sprintf("Delete label '%s'", name), nil
	})
	return err
}

// IssueLabels returns the labels attached to an issue.
func (s *Service) IssueLabels(ctx context.Context, ref Ref, issue int64) ([]models.Label, error) {
	return view(ctx, s, ref, func(st *store.Store) ([]models.Label, error) {
		i, err := st.ReadIssue(issue)
		if err != nil {
			return nil, err
		}
		if i.Labels == nil {
			return []models.Label{}, nil
		}
		return i.Labels, nil
	})
}

// AddIssueLabels attaches the named labels to an issue.
func (s *Service) AddIssueLabels(ctx context.Context, ref Ref, issue int64, names []string) ([]models.Label, error) {
	return mutate(ctx, s, ref, func(st *store.Store, now time.Time) ([]models.Label, string, error) {
		labels, err := st.AddIssueLabels(issue, names, now)
		if err != nil {
			return nil, "", err
		}
		return labels, fmt.Sprintf("Add labels to issue #%d", issue), nil
	})
}

// SetIssueLabels replaces the labels of an issue.
func (s *Service) SetIssueLabels(ctx context.Context, ref Ref, issue int64, names []string) ([]models.Label, error) {
	return mutate(ctx, s, ref, func(st *store.Store, now time.Time) ([]models.Label, string, error) {
		labels, err := st.SetIssueLabels(issue, names, now)
		if err != nil {
			return nil, "", err
		}
		return labels, fmt.Sprintf("Set labels on issue #%d", issue), nil
	})
}

// RemoveIssueLabel detaches one label from an issue.
func (s *Service) RemoveIssueLabel(ctx context.Context, ref Ref, issue int64, name string) ([]models.Label, error) {
	return mutate(ctx, s, ref, func(st *store.Store, now time.Time) ([]models.Label, string, error) {
		labels, err := st.RemoveIssueLabel(issue, name, now)
		if err != nil {
			return nil, "", err
		}
		return labels, fmt.Sprintf("Remove label '%s' from issue #%d", name, issue), nil
	})
}

// ClearIssueLabels detaches every label from an issue.
func (s *Service) ClearIssueLabels(ctx context.Context, ref Ref, issue int64) error {
	_, err := mutate(ctx, s, ref, func(st *store.Store, now time.Time) (struct{}, string, error) {
		if err := st.ClearIssueLabels(issue, now); err != nil {
			return struct{}{}, "", err
		}
		return struct{}{}, fmt.Sprintf("Remove all labels from issue #%d", issue), nil
	})
	return err
}
