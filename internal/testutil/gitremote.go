// Package testutil holds fixtures shared by package tests: throwaway bare
// remotes and working copies built with go-git.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// Signature is the author used for fixture commits.
func Signature() *object.Signature {
	return &object.Signature{Name: "fixture", Email: "fixture@example.com", When: time.Now()}
}

// NewEmptyRemote creates a bare repository with no commits and returns its path.
func NewEmptyRemote(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "remote.git")
	_, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.Main},
		Bare:        true,
	})
	require.NoError(t, err)
	return dir
}

// NewRemote creates a bare repository on branch main holding a single seed
// commit with a README, which is what a freshly created hosted repository
// looks like.
func NewRemote(t *testing.T) string {
	t.Helper()

	remote := NewEmptyRemote(t)

	seed := filepath.Join(t.TempDir(), "seed")
	repo, err := git.PlainInitWithOptions(seed, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.Main},
	})
	require.NoError(t, err)
	_, err = repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{remote}})
	require.NoError(t, err)

	WriteFile(t, seed, "README.md", "# store\n")
	CommitAll(t, seed, "Initial commit")

	err = repo.Push(&git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{"refs/heads/main:refs/heads/main"},
	})
	require.NoError(t, err)
	return remote
}

// Clone makes a working copy of remote in a fresh temp directory.
func Clone(t *testing.T, remote string) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "clone")
	_, err := git.PlainClone(dir, false, &git.CloneOptions{URL: remote})
	require.NoError(t, err)
	return dir
}

// WriteFile writes content to rel inside dir, creating parents.
func WriteFile(t *testing.T, dir, rel, content string) {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// CommitAll stages everything in the working copy and commits it.
func CommitAll(t *testing.T, dir, message string) plumbing.Hash {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.AddWithOptions(&git.AddOptions{All: true}))

	hash, err := wt.Commit(message, &git.CommitOptions{Author: Signature()})
	require.NoError(t, err)
	return hash
}

// CommitAndPushAll commits everything in dir and pushes main to origin.
func CommitAndPushAll(t *testing.T, dir, message string) plumbing.Hash {
	t.Helper()

	hash := CommitAll(t, dir, message)
	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	require.NoError(t, repo.Push(&git.PushOptions{RemoteName: "origin"}))
	return hash
}

// Head returns the commit HEAD points at.
func Head(t *testing.T, dir string) plumbing.Hash {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	ref, err := repo.Head()
	require.NoError(t, err)
	return ref.Hash()
}

// RemoteHead returns the commit main points at in a bare remote.
func RemoteHead(t *testing.T, remote string) plumbing.Hash {
	t.Helper()

	repo, err := git.PlainOpen(remote)
	require.NoError(t, err)
	ref, err := repo.Reference(plumbing.NewBranchReferenceName("main"), true)
	require.NoError(t, err)
	return ref.Hash()
}

// CommitCount counts commits reachable from HEAD.
func CommitCount(t *testing.T, dir string) int {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	iter, err := repo.Log(&git.LogOptions{})
	require.NoError(t, err)

	count := 0
	require.NoError(t, iter.ForEach(func(*object.Commit) error {
		count++
		return nil
	}))
	return count
}

// HeadFiles lists the paths in the tree of HEAD.
func HeadFiles(t *testing.T, dir string) []string {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	ref, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(ref.Hash())
	require.NoError(t, err)
	tree, err := commit.Tree()
	require.NoError(t, err)

	var files []string
	require.NoError(t, tree.Files().ForEach(func(f *object.File) error {
		files = append(files, f.Name)
		return nil
	}))
	return files
}

// HeadMessage returns the message of the commit HEAD points at.
func HeadMessage(t *testing.T, dir string) string {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	ref, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(ref.Hash())
	require.NoError(t, err)
	return commit.Message
}
