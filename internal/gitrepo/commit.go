package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/danielolaszy/attractor/internal/logging"
)

// Paths owned by the document store. Nothing else in the working copy is
// ever staged.
const (
	DataDir      = ".attractor"
	ManifestFile = "attractor-store.json"
)

// CommitAndPush stages every store file (including deletions), commits as the
// given author and pushes the current branch to the same-named remote branch.
// When the staged tree matches HEAD nothing is committed or pushed. A rejected
// push is returned as-is; there are no retries.
func CommitAndPush(ctx context.Context, localPath, message, authorName, authorEmail string, cred Credential) error {
	repo, err := open(localPath)
	if err != nil {
		return err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}

	changed, err := stage(wt)
	if err != nil {
		return err
	}
	if !changed {
		logging.Debug("nothing to commit", "path", localPath)
		return nil
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  authorName,
			Email: authorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	logging.Info("committed store changes", "path", localPath, "commit", hash.String(), "message", message)

	return push(ctx, repo, cred)
}

// stage adds new and modified store files and removes deleted ones from the
// index. It reports whether the index now differs from HEAD.
func stage(wt *git.Worktree) (bool, error) {
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("failed to read worktree status: %w", err)
	}

	for path, fs := range status {
		if !isStorePath(path) {
			continue
		}
		switch fs.Worktree {
		case git.Unmodified:
			continue
		case git.Deleted:
			if _, err := wt.Remove(path); err != nil {
				return false, fmt.Errorf("failed to stage removal of %s: %w", path, err)
			}
		default:
			if _, err := wt.Add(path); err != nil {
				return false, fmt.Errorf("failed to stage %s: %w", path, err)
			}
		}
	}

	status, err = wt.Status()
	if err != nil {
		return false, fmt.Errorf("failed to read worktree status: %w", err)
	}
	for path, fs := range status {
		if !isStorePath(path) {
			continue
		}
		if fs.Staging != git.Unmodified && fs.Staging != git.Untracked {
			return true, nil
		}
	}
	return false, nil
}

func isStorePath(path string) bool {
	return path == ManifestFile || strings.HasPrefix(path, DataDir+"/")
}

// push sends the current branch to its same-named remote branch.
func push(ctx context.Context, repo *git.Repository, cred Credential) error {
	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	branch := head.Name()
	refSpec := config.RefSpec(fmt.Sprintf("%s:%s", branch, branch))

	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: RemoteName,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       cred.auth(),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push %s: %w", branch.Short(), err)
	}

	logging.Debug("pushed store", "branch", branch.Short())
	return nil
}
