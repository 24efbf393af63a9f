package store

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/danielolaszy/attractor/internal/apperr"
	"github.com/danielolaszy/attractor/pkg/models"
)

// Project-side files, relative to the project folder.
const (
	ProjectDir        = ".amplifier"
	ProjectConfigFile = "attractor.json"
)

// ReadManifest returns the store manifest, or nil when the store has none.
func (s *Store) ReadManifest() (*models.StoreManifest, error) {
	var manifest models.StoreManifest
	if err := readJSON(s.manifestPath(), &manifest); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return &manifest, nil
}

// WriteManifest writes attractor-store.json at the repository root.
func (s *Store) WriteManifest(manifest models.StoreManifest) error {
	return writeJSON(s.manifestPath(), manifest)
}

func projectConfigPath(projectPath string) string {
	return filepath.Join(projectPath, ProjectDir, ProjectConfigFile)
}

// ReadProjectConfig returns the project's binding, or nil when the project
// has not been bound to a store yet.
func ReadProjectConfig(projectPath string) (*models.ProjectConfig, error) {
	var cfg models.ProjectConfig
	if err := readJSON(projectConfigPath(projectPath), &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// WriteProjectConfig writes .amplifier/attractor.json in the project folder.
func WriteProjectConfig(projectPath string, cfg models.ProjectConfig) error {
	return writeJSON(projectConfigPath(projectPath), cfg)
}

// ValidateBinding checks that the project and the store agree on the store
// id. It only fails when both sides exist and carry different ids; a missing
// config or manifest is accepted.
func (s *Store) ValidateBinding(projectPath string) error {
	cfg, err := ReadProjectConfig(projectPath)
	if err != nil {
		return err
	}
	manifest, err := s.ReadManifest()
	if err != nil {
		return err
	}
	if cfg == nil || manifest == nil {
		return nil
	}
	if cfg.StoreID != manifest.StoreID {
		return &apperr.StoreIDMismatchError{Expected: cfg.StoreID, Actual: manifest.StoreID}
	}
	return nil
}
