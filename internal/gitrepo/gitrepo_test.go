package gitrepo_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielolaszy/attractor/internal/apperr"
	"github.com/danielolaszy/attractor/internal/gitrepo"
	"github.com/danielolaszy/attractor/internal/testutil"
)

func TestOpenOrClone(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewRemote(t)
	local := filepath.Join(t.TempDir(), "repos", "octo", "store")

	_, err := gitrepo.OpenOrClone(ctx, remote, local, gitrepo.Credential{})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(local, "README.md"))

	// second call opens the existing copy
	_, err = gitrepo.OpenOrClone(ctx, "/does/not/exist", local, gitrepo.Credential{})
	require.NoError(t, err)
}

func TestOpenOrCloneEmptyRemote(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewEmptyRemote(t)
	local := filepath.Join(t.TempDir(), "store")

	_, err := gitrepo.OpenOrClone(ctx, remote, local, gitrepo.Credential{})
	require.NoError(t, err)

	require.NoError(t, gitrepo.Sync(ctx, local, gitrepo.Credential{}))

	testutil.WriteFile(t, local, ".attractor/meta.json", "{}")
	require.NoError(t, gitrepo.CommitAndPush(ctx, local, "first", "octo", "octo@users.noreply.github.com", gitrepo.Credential{}))
	assert.Equal(t, testutil.Head(t, local), testutil.RemoteHead(t, remote))
}

func TestSyncUpToDateIsNoop(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewRemote(t)
	local := testutil.Clone(t, remote)
	before := testutil.Head(t, local)

	require.NoError(t, gitrepo.Sync(ctx, local, gitrepo.Credential{}))
	assert.Equal(t, before, testutil.Head(t, local))
}

func TestSyncFastForward(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewRemote(t)
	local := testutil.Clone(t, remote)

	other := testutil.Clone(t, remote)
	testutil.WriteFile(t, other, ".attractor/issues/1.json", `{"number":1}`)
	pushed := testutil.CommitAndPushAll(t, other, "Create issue #1")

	require.NoError(t, gitrepo.Sync(ctx, local, gitrepo.Credential{}))
	assert.Equal(t, pushed, testutil.Head(t, local))
	assert.FileExists(t, filepath.Join(local, ".attractor", "issues", "1.json"))
}

func TestSyncLocalAhead(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewRemote(t)
	local := testutil.Clone(t, remote)

	testutil.WriteFile(t, local, "notes.txt", "local only")
	ahead := testutil.CommitAll(t, local, "local")

	require.NoError(t, gitrepo.Sync(ctx, local, gitrepo.Credential{}))
	assert.Equal(t, ahead, testutil.Head(t, local))
}

func TestSyncDiverged(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewRemote(t)
	local := testutil.Clone(t, remote)

	other := testutil.Clone(t, remote)
	testutil.WriteFile(t, other, "a.txt", "remote")
	testutil.CommitAndPushAll(t, other, "remote change")

	testutil.WriteFile(t, local, "b.txt", "local")
	localHead := testutil.CommitAll(t, local, "local change")

	err := gitrepo.Sync(ctx, local, gitrepo.Credential{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrDiverged)
	assert.Equal(t, localHead, testutil.Head(t, local), "divergence must not move the branch")
}

func TestSyncMissingRepository(t *testing.T) {
	err := gitrepo.Sync(context.Background(), t.TempDir(), gitrepo.Credential{})
	assert.Error(t, err)
}

func TestCommitAndPush(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewRemote(t)
	local := testutil.Clone(t, remote)

	testutil.WriteFile(t, local, ".attractor/issues/1.json", `{"number":1}`)
	testutil.WriteFile(t, local, ".attractor/meta.json", `{"next_issue_id":2}`)
	testutil.WriteFile(t, local, "attractor-store.json", `{"store_id":"abc"}`)
	testutil.WriteFile(t, local, "scratch.txt", "not part of the store")

	err := gitrepo.CommitAndPush(ctx, local, "Create issue #1: first", "octo", "octo@users.noreply.github.com", gitrepo.Credential{})
	require.NoError(t, err)

	assert.Equal(t, 2, testutil.CommitCount(t, local))
	assert.Equal(t, testutil.Head(t, local), testutil.RemoteHead(t, remote))

	files := testutil.HeadFiles(t, local)
	assert.Contains(t, files, ".attractor/issues/1.json")
	assert.Contains(t, files, "attractor-store.json")
	assert.NotContains(t, files, "scratch.txt")
}

func TestCommitAndPushTwiceIsNoop(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewRemote(t)
	local := testutil.Clone(t, remote)

	testutil.WriteFile(t, local, ".attractor/labels.json", `[]`)
	require.NoError(t, gitrepo.CommitAndPush(ctx, local, "Update labels", "octo", "octo@x", gitrepo.Credential{}))
	head := testutil.Head(t, local)

	require.NoError(t, gitrepo.CommitAndPush(ctx, local, "Update labels", "octo", "octo@x", gitrepo.Credential{}))
	assert.Equal(t, head, testutil.Head(t, local))
	assert.Equal(t, 2, testutil.CommitCount(t, local))
}

func TestCommitAndPushStagesDeletion(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewRemote(t)
	local := testutil.Clone(t, remote)

	testutil.WriteFile(t, local, ".attractor/comments/1/5.json", `{"id":5}`)
	require.NoError(t, gitrepo.CommitAndPush(ctx, local, "Add comment", "octo", "octo@x", gitrepo.Credential{}))

	require.NoError(t, os.Remove(filepath.Join(local, ".attractor", "comments", "1", "5.json")))
	require.NoError(t, gitrepo.CommitAndPush(ctx, local, "Delete comment 5", "octo", "octo@x", gitrepo.Credential{}))

	assert.NotContains(t, testutil.HeadFiles(t, local), ".attractor/comments/1/5.json")
	assert.Equal(t, testutil.Head(t, local), testutil.RemoteHead(t, remote))
}

func TestCommitAndPushRejectedWhenBehind(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewRemote(t)
	local := testutil.Clone(t, remote)

	other := testutil.Clone(t, remote)
	testutil.WriteFile(t, other, ".attractor/meta.json", `{"next_issue_id":5}`)
	testutil.CommitAndPushAll(t, other, "concurrent writer")

	testutil.WriteFile(t, local, ".attractor/meta.json", `{"next_issue_id":2}`)
	err := gitrepo.CommitAndPush(ctx, local, "stale writer", "octo", "octo@x", gitrepo.Credential{})
	assert.Error(t, err)
}
