// Package store reads and writes the JSON documents that make up a backing
// storage repository. It only touches files; syncing and publishing them is
// the job of package gitrepo.
//
// Layout under the repository root:
//
//	.attractor/issues/<number>.json
//	.attractor/comments/<issue>/<id>.json
//	.attractor/labels.json
//	.attractor/milestones.json
//	.attractor/meta.json
//	attractor-store.json
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/danielolaszy/attractor/internal/apperr"
	"github.com/danielolaszy/attractor/internal/gitrepo"
)

const (
	defaultPerPage = 30
	maxPerPage     = 100
)

// Store is a handle on one local working copy of a storage repository.
type Store struct {
	root string
}

// New returns a Store rooted at the working copy path.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the working copy path.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) dataDir() string {
	return filepath.Join(s.root, gitrepo.DataDir)
}

func (s *Store) issuesDir() string {
	return filepath.Join(s.dataDir(), "issues")
}

func (s *Store) issuePath(number int64) string {
	return filepath.Join(s.issuesDir(), strconv.FormatInt(number, 10)+".json")
}

func (s *Store) commentsRoot() string {
	return filepath.Join(s.dataDir(), "comments")
}

func (s *Store) commentsDir(issue int64) string {
	return filepath.Join(s.commentsRoot(), strconv.FormatInt(issue, 10))
}

func (s *Store) commentPath(issue, id int64) string {
	return filepath.Join(s.commentsDir(issue), strconv.FormatInt(id, 10)+".json")
}

func (s *Store) labelsPath() string {
	return filepath.Join(s.dataDir(), "labels.json")
}

func (s *Store) milestonesPath() string {
	return filepath.Join(s.dataDir(), "milestones.json")
}

func (s *Store) metaPath() string {
	return filepath.Join(s.dataDir(), "meta.json")
}

func (s *Store) manifestPath() string {
	return filepath.Join(s.root, gitrepo.ManifestFile)
}

// readJSON decodes the document at path into v. A missing file is reported
// as fs.ErrNotExist so callers can pick their own default.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &apperr.MalformedDocumentError{Path: path, Err: err}
	}
	return nil
}

// writeJSON writes v as indented JSON, creating parent directories.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// writeIfMissing seeds a file with content unless it already exists.
func writeIfMissing(path string, content []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// InitStructure creates the store directories and seeds labels, milestones,
// meta and the .gitkeep placeholders. Existing files are left alone, so it
// is safe to call on an initialized store.
func (s *Store) InitStructure() error {
	for _, dir := range []string{s.issuesDir(), s.commentsRoot()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	if err := writeIfMissing(s.labelsPath(), []byte("[]")); err != nil {
		return err
	}
	if err := writeIfMissing(s.milestonesPath(), []byte("[]")); err != nil {
		return err
	}
	if _, err := os.Stat(s.metaPath()); err != nil {
		if err := s.WriteMeta(defaultMeta()); err != nil {
			return err
		}
	}
	for _, dir := range []string{s.issuesDir(), s.commentsRoot()} {
		if err := writeIfMissing(filepath.Join(dir, ".gitkeep"), nil); err != nil {
			return err
		}
	}
	return nil
}

// Initialized reports whether the store directory exists.
func (s *Store) Initialized() bool {
	info, err := os.Stat(s.dataDir())
	return err == nil && info.IsDir()
}

// PageBounds normalizes paging parameters. Page numbers start at 1; perPage
// defaults to 30 and is capped at 100.
func PageBounds(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

// paginate returns the page-th window of items, see PageBounds.
func paginate[T any](items []T, page, perPage int) ([]T, int, int) {
	page, perPage = PageBounds(page, perPage)

	start := (page - 1) * perPage
	if start >= len(items) {
		return []T{}, page, perPage
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], page, perPage
}
