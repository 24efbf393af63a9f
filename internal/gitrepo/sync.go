package gitrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/danielolaszy/attractor/internal/apperr"
	"github.com/danielolaszy/attractor/internal/logging"
)

const fetchRefSpec = "+refs/heads/*:refs/remotes/" + RemoteName + "/*"

// Sync fetches every remote branch and fast-forwards the current branch to its
// remote-tracking ref. A repository without commits, or a branch without a
// remote-tracking ref, is treated as already in sync. Divergent histories fail
// with apperr.ErrDiverged and leave the working copy untouched.
func Sync(ctx context.Context, localPath string, cred Credential) error {
	repo, err := open(localPath)
	if err != nil {
		return err
	}

	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: RemoteName,
		RefSpecs:   []config.RefSpec{fetchRefSpec},
		Auth:       cred.auth(),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to fetch %s: %w", localPath, err)
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			// empty repository
			return nil
		}
		return fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return fmt.Errorf("HEAD of %s is detached", localPath)
	}
	branch := head.Name().Short()

	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName(RemoteName, branch), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil
		}
		return fmt.Errorf("failed to resolve remote-tracking ref: %w", err)
	}

	analysis, err := analyzeMerge(repo, head.Hash(), remoteRef.Hash())
	if err != nil {
		return err
	}

	switch analysis {
	case mergeUpToDate:
		logging.Debug("store already up to date", "path", localPath, "branch", branch)
		return nil
	case mergeFastForward:
		return fastForward(repo, head.Name(), remoteRef.Hash())
	default:
		logging.Warn("store history diverged from remote", "path", localPath, "branch", branch)
		return fmt.Errorf("sync %s: %w", localPath, apperr.ErrDiverged)
	}
}

type mergeAnalysis int

const (
	mergeUpToDate mergeAnalysis = iota
	mergeFastForward
	mergeDiverged
)

// analyzeMerge classifies how the local commit relates to the remote one.
func analyzeMerge(repo *git.Repository, local, remote plumbing.Hash) (mergeAnalysis, error) {
	if local == remote {
		return mergeUpToDate, nil
	}

	localCommit, err := repo.CommitObject(local)
	if err != nil {
		return mergeDiverged, fmt.Errorf("failed to load local commit: %w", err)
	}
	remoteCommit, err := repo.CommitObject(remote)
	if err != nil {
		return mergeDiverged, fmt.Errorf("failed to load remote commit: %w", err)
	}

	remoteBehind, err := remoteCommit.IsAncestor(localCommit)
	if err != nil {
		return mergeDiverged, fmt.Errorf("failed to compare history: %w", err)
	}
	if remoteBehind {
		return mergeUpToDate, nil
	}

	localBehind, err := localCommit.IsAncestor(remoteCommit)
	if err != nil {
		return mergeDiverged, fmt.Errorf("failed to compare history: %w", err)
	}
	if localBehind {
		return mergeFastForward, nil
	}
	return mergeDiverged, nil
}

// fastForward points the branch at target and force-checks it out.
func fastForward(repo *git.Repository, branch plumbing.ReferenceName, target plumbing.Hash) error {
	if err := repo.Storer.SetReference(plumbing.NewHashReference(branch, target)); err != nil {
		return fmt.Errorf("failed to advance %s: %w", branch.Short(), err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: branch, Force: true}); err != nil {
		return fmt.Errorf("failed to check out %s: %w", branch.Short(), err)
	}

	logging.Info("fast-forwarded store", "branch", branch.Short(), "commit", target.String())
	return nil
}
