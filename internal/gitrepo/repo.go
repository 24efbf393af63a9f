// Package gitrepo manages the local working copy of a backing storage
// repository: clone/open, fast-forward-only sync and commit-and-push.
//
// Nothing here serializes access to a working copy. Two writers computing
// commits from the same parent race, and the remote's fast-forward check on
// push is what surfaces the loser as an error.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/danielolaszy/attractor/internal/logging"
)

// RemoteName is the only remote the store works with.
const RemoteName = "origin"

// tokenUsername is the basic-auth user paired with a bearer token.
const tokenUsername = "x-access-token"

// Credential is a bearer token used for one remote operation.
type Credential struct {
	Token string
}

// auth builds a fresh auth method for a single request. An empty token means
// no authentication, which is what local and file remotes need.
func (c Credential) auth() transport.AuthMethod {
	if c.Token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: tokenUsername, Password: c.Token}
}

// OpenOrClone opens the working copy at localPath, or clones remoteURL into it
// when no repository exists there yet. Parent directories are created as needed.
func OpenOrClone(ctx context.Context, remoteURL, localPath string, cred Credential) (*git.Repository, error) {
	if _, err := os.Stat(filepath.Join(localPath, ".git")); err == nil {
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open repository %s: %w", localPath, err)
		}
		return repo, nil
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create parent directory: %w", err)
	}

	logging.Info("cloning repository", "path", localPath)
	repo, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
		URL:        remoteURL,
		RemoteName: RemoteName,
		Auth:       cred.auth(),
	})
	if errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return initEmpty(remoteURL, localPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to clone repository into %s: %w", localPath, err)
	}
	return repo, nil
}

// initEmpty sets up a working copy for a remote that has no commits yet. The
// first CommitAndPush creates the default branch on the remote.
func initEmpty(remoteURL, localPath string) (*git.Repository, error) {
	_ = os.RemoveAll(localPath)

	repo, err := git.PlainInitWithOptions(localPath, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.Main},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init repository %s: %w", localPath, err)
	}
	if _, err := repo.CreateRemote(&config.RemoteConfig{Name: RemoteName, URLs: []string{remoteURL}}); err != nil {
		return nil, fmt.Errorf("failed to add remote: %w", err)
	}
	logging.Info("remote repository is empty, initialized local copy", "path", localPath)
	return repo, nil
}

// open opens an existing working copy.
func open(localPath string) (*git.Repository, error) {
	repo, err := git.PlainOpen(localPath)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("no repository at %s: %w", localPath, err)
		}
		return nil, fmt.Errorf("failed to open repository %s: %w", localPath, err)
	}
	return repo, nil
}

// NoReplyEmail is the commit email used for a hosted-service login.
func NoReplyEmail(login string) string {
	return login + "@users.noreply.github.com"
}
