package store

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/danielolaszy/attractor/internal/apperr"
	"github.com/danielolaszy/attractor/pkg/models"
)

// ReadLabels returns every label. A store without labels.json has none.
func (s *Store) ReadLabels() ([]models.Label, error) {
	var labels []models.Label
	if err := readJSON(s.labelsPath(), &labels); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.Label{}, nil
		}
		return nil, err
	}
	if labels == nil {
		labels = []models.Label{}
	}
	return labels, nil
}

// WriteLabels replaces labels.json.
func (s *Store) WriteLabels(labels []models.Label) error {
	return writeJSON(s.labelsPath(), labels)
}

// GetLabel finds a label by name.
func (s *Store) GetLabel(name string) (models.Label, error) {
	labels, err := s.ReadLabels()
	if err != nil {
		return models.Label{}, err
	}
	for _, l := range labels {
		if l.Name == name {
			return l, nil
		}
	}
	return models.Label{}, apperr.NotFound("label '%s'", name)
}

// CreateLabel appends a label. Its id is one above the highest existing id.
func (s *Store) CreateLabel(name, color string, description *string) (models.Label, error) {
	labels, err := s.ReadLabels()
	if err != nil {
		return models.Label{}, err
	}

	var maxID int64
	for _, l := range labels {
		if l.Name == name {
			return models.Label{}, fmt.Errorf("label '%s': %w", name, apperr.ErrLabelExists)
		}
		if l.ID > maxID {
			maxID = l.ID
		}
	}

	label := models.Label{
		ID:          maxID + 1,
		Name:        name,
		Color:       color,
		Description: description,
	}
	if err := s.WriteLabels(append(labels, label)); err != nil {
		return models.Label{}, err
	}
	return label, nil
}

// UpdateLabel applies the non-nil fields of update to the label called name.
// Copies of the label already embedded in issues are not rewritten.
func (s *Store) UpdateLabel(name string, update models.LabelUpdate) (models.Label, error) {
	labels, err := s.ReadLabels()
	if err != nil {
		return models.Label{}, err
	}

	idx := -1
	for i, l := range labels {
		if l.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.Label{}, apperr.NotFound("label '%s'", name)
	}

	if update.NewName != nil && *update.NewName != name {
		for _, l := range labels {
			if l.Name == *update.NewName {
				return models.Label{}, fmt.Errorf("label '%s': %w", *update.NewName, apperr.ErrLabelExists)
			}
		}
		labels[idx].Name = *update.NewName
	}
	if update.Color != nil {
		labels[idx].Color = *update.Color
	}
	if update.Description != nil {
		labels[idx].Description = update.Description
	}

	if err := s.WriteLabels(labels); err != nil {
		return models.Label{}, err
	}
	return labels[idx], nil
}

// DeleteLabel removes the label called name.
func (s *Store) DeleteLabel(name string) error {
	labels, err := s.ReadLabels()
	if err != nil {
		return err
	}

	kept := make([]models.Label, 0, len(labels))
	for _, l := range labels {
		if l.Name != name {
			kept = append(kept, l)
		}
	}
	if len(kept) == len(labels) {
		return apperr.NotFound("label '%s'", name)
	}
	return s.WriteLabels(kept)
}

// ResolveLabels returns the known labels whose names appear in names, in
// labels.json order. Unknown names are skipped.
func (s *Store) ResolveLabels(names []string) ([]models.Label, error) {
	if len(names) == 0 {
		return []models.Label{}, nil
	}

	all, err := s.ReadLabels()
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	resolved := []models.Label{}
	for _, l := range all {
		if wanted[l.Name] {
			resolved = append(resolved, l)
		}
	}
	return resolved, nil
}

// AddIssueLabels appends the named labels an issue does not carry yet.
func (s *Store) AddIssueLabels(number int64, names []string, now time.Time) ([]models.Label, error) {
	issue, err := s.ReadIssue(number)
	if err != nil {
		return nil, err
	}
	resolved, err := s.ResolveLabels(names)
	if err != nil {
		return nil, err
	}

	for _, l := range resolved {
		if !hasLabel(issue.Labels, l.Name) {
			issue.Labels = append(issue.Labels, l)
		}
	}
	return s.saveIssueLabels(issue, now)
}

// SetIssueLabels replaces an issue's labels with the named ones.
func (s *Store) SetIssueLabels(number int64, names []string, now time.Time) ([]models.Label, error) {
	issue, err := s.ReadIssue(number)
	if err != nil {
		return nil, err
	}
	if issue.Labels, err = s.ResolveLabels(names); err != nil {
		return nil, err
	}
	return s.saveIssueLabels(issue, now)
}

// RemoveIssueLabel drops one label from an issue.
func (s *Store) RemoveIssueLabel(number int64, name string, now time.Time) ([]models.Label, error) {
	issue, err := s.ReadIssue(number)
	if err != nil {
		return nil, err
	}

	kept := []models.Label{}
	for _, l := range issue.Labels {
		if l.Name != name {
			kept = append(kept, l)
		}
	}
	issue.Labels = kept
	return s.saveIssueLabels(issue, now)
}

// ClearIssueLabels removes every label from an issue.
func (s *Store) ClearIssueLabels(number int64, now time.Time) error {
	_, err := s.SetIssueLabels(number, nil, now)
	return err
}

func (s *Store) saveIssueLabels(issue models.Issue, now time.Time) ([]models.Label, error) {
	if issue.Labels == nil {
		issue.Labels = []models.Label{}
	}
	issue.UpdatedAt = now
	if err := s.WriteIssue(issue); err != nil {
		return nil, err
	}
	return issue.Labels, nil
}
