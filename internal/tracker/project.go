package tracker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/danielolaszy/attractor/internal/apperr"
	"github.com/danielolaszy/attractor/internal/gitrepo"
	"github.com/danielolaszy/attractor/internal/logging"
	"github.com/danielolaszy/attractor/internal/store"
	"github.com/danielolaszy/attractor/pkg/models"
)

// StorePrefix starts the name of every backing storage repository.
const StorePrefix = "attractor-store-"

const initMessage = "Initialize attractor structure"

// OpenProject binds a project folder to its backing store and brings the
// store's working copy up to date. A folder without .amplifier/attractor.json
// gets a new private backing repository named after it. When the token may
// not create repositories the *apperr.RepoCreationForbiddenError is returned
// and SetupBackingRepo finishes the job once the repository exists.
func (s *Service) OpenProject(ctx context.Context, projectPath string) (models.ProjectConfig, error) {
	info, err := os.Stat(projectPath)
	if err != nil || !info.IsDir() {
		return models.ProjectConfig{}, fmt.Errorf("folder does not exist: %s", projectPath)
	}
	if s.host == nil {
		return models.ProjectConfig{}, errors.New("no hosted service configured")
	}

	cfg, err := store.ReadProjectConfig(projectPath)
	if err != nil {
		return models.ProjectConfig{}, err
	}
	if cfg == nil {
		created, err := s.createBackingStore(ctx, projectPath)
		if err != nil {
			return models.ProjectConfig{}, err
		}
		cfg = &created
	}

	ref := Ref{Owner: cfg.Owner, Repo: cfg.Repo}
	if err := s.prepare(ctx, ref, projectPath); err != nil {
		return models.ProjectConfig{}, err
	}
	return *cfg, nil
}

// createBackingStore creates, seeds and publishes a new backing repository for
// the project, then records it in the project config.
func (s *Service) createBackingStore(ctx context.Context, projectPath string) (models.ProjectConfig, error) {
	folder := filepath.Base(filepath.Clean(projectPath))
	owner := s.user.Login

	name, err := s.host.ResolveStoreName(ctx, owner, StorePrefix+folder)
	if err != nil {
		return models.ProjectConfig{}, err
	}

	repo, err := s.host.CreateRepo(ctx, name, "Attractor backing store for "+folder, true)
	if err != nil {
		return models.ProjectConfig{}, err
	}

	ref := Ref{Owner: owner, Repo: name}
	cloneURL := repo.CloneURL
	if cloneURL == "" {
		cloneURL = s.host.CloneURL(owner, name)
	}

	cfg := models.ProjectConfig{Owner: owner, Repo: name, StoreID: uuid.NewString()}
	err = s.withStore(ctx, ref, func() error {
		path := s.StorePath(ref)
		if _, err := gitrepo.OpenOrClone(ctx, cloneURL, path, s.cred); err != nil {
			return err
		}
		st := store.New(path)
		if err := st.InitStructure(); err != nil {
			return err
		}
		if err := st.WriteManifest(models.StoreManifest{StoreID: cfg.StoreID}); err != nil {
			return err
		}
		return s.publish(ctx, path, initMessage)
	})
	if err != nil {
		return models.ProjectConfig{}, err
	}

	if err := store.WriteProjectConfig(projectPath, cfg); err != nil {
		return models.ProjectConfig{}, err
	}
	logging.Info("created backing store", "repo", ref.String(), "store_id", cfg.StoreID)
	return cfg, nil
}

// SetupBackingRepo binds a project to an existing repository, typically one
// created by hand after the token was refused. A manifest already present in
// the repository wins over a freshly generated store id.
func (s *Service) SetupBackingRepo(ctx context.Context, ref Ref, projectPath string) (models.ProjectConfig, error) {
	if s.host == nil {
		return models.ProjectConfig{}, errors.New("no hosted service configured")
	}
	exists, err := s.host.RepoExists(ctx, ref.Owner, ref.Repo)
	if err != nil {
		return models.ProjectConfig{}, err
	}
	if !exists {
		return models.ProjectConfig{}, apperr.NotFound("repository '%s' on GitHub, please create it first", ref)
	}

	storeID := uuid.NewString()
	err = s.withStore(ctx, ref, func() error {
		path := s.StorePath(ref)
		if err := s.ensure(ctx, ref); err != nil {
			return err
		}
		if err := gitrepo.Sync(ctx, path, s.cred); err != nil {
			return err
		}

		st := store.New(path)
		if !st.Initialized() {
			if err := st.InitStructure(); err != nil {
				return err
			}
		}

		manifest, err := st.ReadManifest()
		if err != nil {
			return err
		}
		if manifest != nil {
			storeID = manifest.StoreID
			return nil
		}
		if err := st.WriteManifest(models.StoreManifest{StoreID: storeID}); err != nil {
			return err
		}
		return s.publish(ctx, path, initMessage)
	})
	if err != nil {
		return models.ProjectConfig{}, err
	}

	cfg := models.ProjectConfig{Owner: ref.Owner, Repo: ref.Repo, StoreID: storeID}
	if err := store.WriteProjectConfig(projectPath, cfg); err != nil {
		return models.ProjectConfig{}, err
	}
	logging.Info("backing store set up", "repo", ref.String(), "store_id", storeID)
	return cfg, nil
}

// prepare clones and syncs the backing store, lays out its directories when
// missing and checks that it belongs to the project.
func (s *Service) prepare(ctx context.Context, ref Ref, projectPath string) error {
	return s.withStore(ctx, ref, func() error {
		path := s.StorePath(ref)
		if err := s.ensure(ctx, ref); err != nil {
			return err
		}
		if err := gitrepo.Sync(ctx, path, s.cred); err != nil {
			return err
		}

		st := store.New(path)
		if !st.Initialized() {
			if err := st.InitStructure(); err != nil {
				return err
			}
		}
		return st.ValidateBinding(projectPath)
	})
}

// ProjectRef reads the backing store a project is bound to.
func ProjectRef(projectPath string) (Ref, error) {
	cfg, err := store.ReadProjectConfig(projectPath)
	if err != nil {
		return Ref{}, err
	}
	if cfg == nil {
		return Ref{}, fmt.Errorf("%s is not bound to a backing store, run 'attractor project open' first", projectPath)
	}
	return Ref{Owner: cfg.Owner, Repo: cfg.Repo}, nil
}

// withStore runs fn holding the store lock and a blocking slot.
func (s *Service) withStore(ctx context.Context, ref Ref, fn func() error) error {
	unlock, err := s.locker.Lock(ctx, s.StorePath(ref))
	if err != nil {
		return err
	}
	defer unlock()
	return s.pool.Do(ctx, fn)
}
