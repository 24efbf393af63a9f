package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/danielolaszy/attractor/internal/apperr"
	"github.com/danielolaszy/attractor/pkg/models"
)

// ReadComment loads comment id of issue.
func (s *Store) ReadComment(issue, id int64) (models.Comment, error) {
	var comment models.Comment
	if err := readJSON(s.commentPath(issue, id), &comment); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Comment{}, apperr.NotFound("comment #%d", id)
		}
		return models.Comment{}, err
	}
	return comment, nil
}

// WriteComment stores a comment under its issue's directory.
func (s *Store) WriteComment(issue int64, comment models.Comment) error {
	return writeJSON(s.commentPath(issue, comment.ID), comment)
}

// DeleteComment removes a comment file.
func (s *Store) DeleteComment(issue, id int64) error {
	if err := os.Remove(s.commentPath(issue, id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperr.NotFound("comment #%d", id)
		}
		return fmt.Errorf("failed to delete comment #%d: %w", id, err)
	}
	return nil
}

// ListComments returns one page of an issue's comments, oldest first, and
// the total number of comments on the issue.
func (s *Store) ListComments(issue int64, page, perPage int) ([]models.Comment, int, error) {
	dir := s.commentsDir(issue)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.Comment{}, 0, nil
		}
		return nil, 0, fmt.Errorf("failed to list comments of issue #%d: %w", issue, err)
	}

	comments := make([]models.Comment, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		var comment models.Comment
		if err := readJSON(filepath.Join(dir, entry.Name()), &comment); err != nil {
			return nil, 0, err
		}
		comments = append(comments, comment)
	}

	sort.SliceStable(comments, func(i, j int) bool {
		if comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].ID < comments[j].ID
		}
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})

	total := len(comments)
	items, _, _ := paginate(comments, page, perPage)
	return items, total, nil
}

// FindComment locates a comment by id alone by scanning every issue's
// comment directory. It returns the owning issue number.
func (s *Store) FindComment(id int64) (int64, models.Comment, error) {
	entries, err := os.ReadDir(s.commentsRoot())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, models.Comment{}, apperr.NotFound("comment #%d", id)
		}
		return 0, models.Comment{}, fmt.Errorf("failed to scan comments: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		issue, err := strconv.ParseInt(entry.Name(), 10, 64)
		if err != nil {
			continue
		}
		comment, err := s.ReadComment(issue, id)
		if err == nil {
			return issue, comment, nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return 0, models.Comment{}, err
		}
	}
	return 0, models.Comment{}, apperr.NotFound("comment #%d", id)
}

// AddComment allocates a comment id, writes the comment and bumps the owning
// issue's comment count and updated_at. The count is best effort: when the
// issue file is missing the comment is still kept.
func (s *Store) AddComment(issue int64, body string, author models.SimpleUser, association string, now time.Time) (models.Comment, error) {
	id, err := s.NextCommentID()
	if err != nil {
		return models.Comment{}, err
	}

	comment := models.Comment{
		ID:                id,
		Body:              body,
		User:              author,
		CreatedAt:         now,
		UpdatedAt:         now,
		AuthorAssociation: association,
	}
	if err := s.WriteComment(issue, comment); err != nil {
		return models.Comment{}, err
	}

	if err := s.adjustCommentCount(issue, 1, now); err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}

// EditComment replaces the body of comment id wherever it lives.
func (s *Store) EditComment(id int64, body string, now time.Time) (int64, models.Comment, error) {
	issue, comment, err := s.FindComment(id)
	if err != nil {
		return 0, models.Comment{}, err
	}

	comment.Body = body
	comment.UpdatedAt = now
	if err := s.WriteComment(issue, comment); err != nil {
		return 0, models.Comment{}, err
	}
	return issue, comment, nil
}

// RemoveComment deletes comment id and decrements the owning issue's count,
// never below zero. It returns the owning issue number.
func (s *Store) RemoveComment(id int64, now time.Time) (int64, error) {
	issue, _, err := s.FindComment(id)
	if err != nil {
		return 0, err
	}
	if err := s.DeleteComment(issue, id); err != nil {
		return 0, err
	}
	if err := s.adjustCommentCount(issue, -1, now); err != nil {
		return 0, err
	}
	return issue, nil
}

func (s *Store) adjustCommentCount(number, delta int64, now time.Time) error {
	issue, err := s.ReadIssue(number)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return err
	}

	issue.Comments += delta
	if issue.Comments < 0 {
		issue.Comments = 0
	}
	issue.UpdatedAt = now
	return s.WriteIssue(issue)
}
