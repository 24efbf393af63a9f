package store

import (
	"errors"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/danielolaszy/attractor/internal/apperr"
	"github.com/danielolaszy/attractor/pkg/models"
)

// ReadMilestones returns every milestone. A store without milestones.json
// has none.
func (s *Store) ReadMilestones() ([]models.Milestone, error) {
	var milestones []models.Milestone
	if err := readJSON(s.milestonesPath(), &milestones); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.Milestone{}, nil
		}
		return nil, err
	}
	if milestones == nil {
		milestones = []models.Milestone{}
	}
	return milestones, nil
}

// WriteMilestones replaces milestones.json.
func (s *Store) WriteMilestones(milestones []models.Milestone) error {
	return writeJSON(s.milestonesPath(), milestones)
}

// GetMilestone finds a milestone by number.
func (s *Store) GetMilestone(number int64) (models.Milestone, error) {
	m, err := s.findMilestone(number)
	if err != nil {
		return models.Milestone{}, err
	}
	if m == nil {
		return models.Milestone{}, apperr.NotFound("milestone #%d", number)
	}
	return *m, nil
}

// findMilestone returns nil without error when the milestone does not exist.
func (s *Store) findMilestone(number int64) (*models.Milestone, error) {
	milestones, err := s.ReadMilestones()
	if err != nil {
		return nil, err
	}
	for i := range milestones {
		if milestones[i].Number == number {
			m := milestones[i]
			return &m, nil
		}
	}
	return nil, nil
}

// ListMilestones filters by state (default open), sorts by due_on (default)
// or completeness, ascending unless direction is "desc", and paginates.
func (s *Store) ListMilestones(filters models.MilestoneFilters) ([]models.Milestone, int, error) {
	all, err := s.ReadMilestones()
	if err != nil {
		return nil, 0, err
	}

	state := filters.State
	if state == "" {
		state = models.StateOpen
	}
	matched := []models.Milestone{}
	for _, m := range all {
		if state == models.StateAll || m.State == state {
			matched = append(matched, m)
		}
	}

	desc := strings.EqualFold(filters.Direction, "desc")
	sort.SliceStable(matched, func(i, j int) bool {
		var c int
		if filters.Sort == "completeness" {
			c = compareInt(completeness(matched[i]), completeness(matched[j]))
		} else {
			c = compareDue(matched[i].DueOn, matched[j].DueOn)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})

	total := len(matched)
	items, _, _ := paginate(matched, filters.Page, filters.PerPage)
	return items, total, nil
}

// completeness is the closed share of a milestone's issues in whole percent.
func completeness(m models.Milestone) int64 {
	total := m.OpenIssues + m.ClosedIssues
	if total == 0 {
		return 0
	}
	return m.ClosedIssues * 100 / total
}

// compareDue orders milestones without a due date first.
func compareDue(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

// CreateMilestone allocates the next milestone number and appends the
// milestone. An empty state means open.
func (s *Store) CreateMilestone(input models.NewMilestone, now time.Time) (models.Milestone, error) {
	milestones, err := s.ReadMilestones()
	if err != nil {
		return models.Milestone{}, err
	}

	number, err := s.NextMilestoneNumber()
	if err != nil {
		return models.Milestone{}, err
	}

	state := input.State
	if state == "" {
		state = models.StateOpen
	}
	milestone := models.Milestone{
		ID:          number,
		Number:      number,
		Title:       input.Title,
		Description: input.Description,
		State:       state,
		CreatedAt:   now,
		UpdatedAt:   now,
		DueOn:       input.DueOn,
	}
	if state == models.StateClosed {
		closedAt := now
		milestone.ClosedAt = &closedAt
	}

	if err := s.WriteMilestones(append(milestones, milestone)); err != nil {
		return models.Milestone{}, err
	}
	return milestone, nil
}

// UpdateMilestone applies the non-nil fields of update. Closing sets
// closed_at, reopening clears it.
func (s *Store) UpdateMilestone(number int64, update models.MilestoneUpdate, now time.Time) (models.Milestone, error) {
	milestones, err := s.ReadMilestones()
	if err != nil {
		return models.Milestone{}, err
	}

	idx := -1
	for i := range milestones {
		if milestones[i].Number == number {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.Milestone{}, apperr.NotFound("milestone #%d", number)
	}

	m := &milestones[idx]
	if update.Title != nil {
		m.Title = *update.Title
	}
	if update.Description != nil {
		m.Description = update.Description
	}
	if update.DueOn != nil {
		m.DueOn = update.DueOn
	}
	if update.State != nil {
		state := *update.State
		if state == models.StateClosed && m.State != models.StateClosed {
			closedAt := now
			m.ClosedAt = &closedAt
		} else if state == models.StateOpen {
			m.ClosedAt = nil
		}
		m.State = state
	}
	m.UpdatedAt = now

	if err := s.WriteMilestones(milestones); err != nil {
		return models.Milestone{}, err
	}
	return *m, nil
}

// DeleteMilestone removes milestone number.
func (s *Store) DeleteMilestone(number int64) error {
	milestones, err := s.ReadMilestones()
	if err != nil {
		return err
	}

	kept := make([]models.Milestone, 0, len(milestones))
	for _, m := range milestones {
		if m.Number != number {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(milestones) {
		return apperr.NotFound("milestone #%d", number)
	}
	return s.WriteMilestones(kept)
}
