package store

import (
	"errors"
	"io/fs"

	"github.com/danielolaszy/attractor/pkg/models"
)

func defaultMeta() models.Meta {
	return models.DefaultMeta()
}

// ReadMeta returns the id counters. A store without meta.json starts at 1/1/1.
func (s *Store) ReadMeta() (models.Meta, error) {
	var meta models.Meta
	if err := readJSON(s.metaPath(), &meta); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaultMeta(), nil
		}
		return models.Meta{}, err
	}
	return meta, nil
}

// WriteMeta persists the id counters.
func (s *Store) WriteMeta(meta models.Meta) error {
	return writeJSON(s.metaPath(), meta)
}

// NextIssueNumber reserves the next issue number and persists the counter.
func (s *Store) NextIssueNumber() (int64, error) {
	return s.bump(func(m *models.Meta) *int64 { return &m.NextIssueID })
}

// NextCommentID reserves the next repository-wide comment id.
func (s *Store) NextCommentID() (int64, error) {
	return s.bump(func(m *models.Meta) *int64 { return &m.NextCommentID })
}

// NextMilestoneNumber reserves the next milestone number.
func (s *Store) NextMilestoneNumber() (int64, error) {
	return s.bump(func(m *models.Meta) *int64 { return &m.NextMilestoneID })
}

func (s *Store) bump(counter func(*models.Meta) *int64) (int64, error) {
	meta, err := s.ReadMeta()
	if err != nil {
		return 0, err
	}
	c := counter(&meta)
	id := *c
	*c++
	if err := s.WriteMeta(meta); err != nil {
		return 0, err
	}
	return id, nil
}
