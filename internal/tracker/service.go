// Package tracker exposes issue tracking on top of backing storage
// repositories. Every write runs as one cycle: take the store lock, sync,
// change the documents, then commit and push as the current user. Reads work
// on the local working copy.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/danielolaszy/attractor/internal/blocking"
	"github.com/danielolaszy/attractor/internal/gitrepo"
	"github.com/danielolaszy/attractor/internal/logging"
	"github.com/danielolaszy/attractor/internal/session"
	"github.com/danielolaszy/attractor/internal/store"
	"github.com/danielolaszy/attractor/pkg/models"
)

// Host is the part of the hosted service the tracker relies on.
type Host interface {
	RepoExists(ctx context.Context, owner, repo string) (bool, error)
	CreateRepo(ctx context.Context, name, description string, private bool) (models.RepoInfo, error)
	ResolveStoreName(ctx context.Context, owner, base string) (string, error)
	CloneURL(owner, repo string) string
}

// Ref names a backing storage repository.
type Ref struct {
	Owner string
	Repo  string
}

func (r Ref) String() string {
	return r.Owner + "/" + r.Repo
}

// Options configures a Service.
type Options struct {
	// ReposDir holds the local working copies, one per owner/repo.
	ReposDir   string
	User       models.SimpleUser
	Credential gitrepo.Credential
	Host       Host
	Pool       *blocking.Pool
	Locker     session.Locker
	Supervisor *session.Supervisor
	// Now defaults to the current UTC time.
	Now func() time.Time
}

// Service runs tracker operations for one authenticated user.
type Service struct {
	reposDir   string
	user       models.SimpleUser
	cred       gitrepo.Credential
	host       Host
	pool       *blocking.Pool
	locker     session.Locker
	supervisor *session.Supervisor
	now        func() time.Time
}

// NewService creates a Service. The pool defaults to a single slot and the
// locker to a FileLocker.
func NewService(opts Options) *Service {
	if opts.Pool == nil {
		opts.Pool = blocking.NewPool(1)
	}
	if opts.Locker == nil {
		opts.Locker = NewFileLocker()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		reposDir:   opts.ReposDir,
		user:       opts.User,
		cred:       opts.Credential,
		host:       opts.Host,
		pool:       opts.Pool,
		locker:     opts.Locker,
		supervisor: opts.Supervisor,
		now:        opts.Now,
	}
}

// User returns the user the service writes as.
func (s *Service) User() models.SimpleUser {
	return s.user
}

// StorePath returns the local working copy of ref.
func (s *Service) StorePath(ref Ref) string {
	return filepath.Join(s.reposDir, ref.Owner, ref.Repo)
}

func (s *Service) remoteURL(ref Ref) (string, error) {
	if s.host == nil {
		return "", errors.New("no hosted service configured")
	}
	return s.host.CloneURL(ref.Owner, ref.Repo), nil
}

// ensure makes sure a working copy of ref exists locally.
func (s *Service) ensure(ctx context.Context, ref Ref) error {
	url, err := s.remoteURL(ref)
	if err != nil {
		return err
	}
	if _, err := gitrepo.OpenOrClone(ctx, url, s.StorePath(ref), s.cred); err != nil {
		return err
	}
	return nil
}

// Sync brings the working copy of ref up to date with its remote.
func (s *Service) Sync(ctx context.Context, ref Ref) error {
	path := s.StorePath(ref)
	unlock, err := s.locker.Lock(ctx, path)
	if err != nil {
		return err
	}
	defer unlock()

	return s.pool.Do(ctx, func() error {
		if err := s.ensure(ctx, ref); err != nil {
			return err
		}
		return gitrepo.Sync(ctx, path, s.cred)
	})
}

// view runs a read against the local working copy of ref.
func view[T any](ctx context.Context, s *Service, ref Ref, fn func(st *store.Store) (T, error)) (T, error) {
	return blocking.Run(ctx, s.pool, func() (T, error) {
		if err := s.ensure(ctx, ref); err != nil {
			var zero T
			return zero, err
		}
		return fn(store.New(s.StorePath(ref)))
	})
}

// mutate runs one write cycle against ref. fn returns its result and the
// commit message describing the change.
func mutate[T any](ctx context.Context, s *Service, ref Ref, fn func(st *store.Store, now time.Time) (T, string, error)) (T, error) {
	var zero T
	path := s.StorePath(ref)

	unlock, err := s.locker.Lock(ctx, path)
	if err != nil {
		return zero, err
	}
	defer unlock()

	return blocking.Run(ctx, s.pool, func() (T, error) {
		if err := s.ensure(ctx, ref); err != nil {
			return zero, err
		}
		if err := gitrepo.Sync(ctx, path, s.cred); err != nil {
			return zero, fmt.Errorf("failed to sync %s: %w", ref, err)
		}

		result, message, err := fn(store.New(path), s.now())
		if err != nil {
			return zero, err
		}

		if err := s.publish(ctx, path, message); err != nil {
			return zero, err
		}
		logging.Info("store updated", "repo", ref.String(), "message", message)
		return result, nil
	})
}

func (s *Service) publish(ctx context.Context, path, message string) error {
	login := s.user.Login
	if err := gitrepo.CommitAndPush(ctx, path, message, login, gitrepo.NoReplyEmail(login), s.cred); err != nil {
		return fmt.Errorf("failed to publish %q: %w", message, err)
	}
	return nil
}
