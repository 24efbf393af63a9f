package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielolaszy/attractor/internal/blocking"
	"github.com/danielolaszy/attractor/internal/session"
	"github.com/danielolaszy/attractor/internal/testutil"
	"github.com/danielolaszy/attractor/internal/tracker"
	"github.com/danielolaszy/attractor/pkg/models"
)

const storeRepo = "octocat/attractor-store-demo"

// localHost serves every repository from one bare remote on disk.
type localHost struct {
	remote string
}

func (h localHost) RepoExists(context.Context, string, string) (bool, error) { return true, nil }

func (h localHost) CreateRepo(context.Context, string, string, bool) (models.RepoInfo, error) {
	return models.RepoInfo{}, errors.New("not supported")
}

func (h localHost) ResolveStoreName(_ context.Context, _ string, base string) (string, error) {
	return base, nil
}

func (h localHost) CloneURL(string, string) string { return h.remote }

// useLocalStore swaps the app factory for one backed by a local remote and
// returns a project folder bound to it.
func useLocalStore(t *testing.T, tool string) string {
	t.Helper()

	pool := blocking.NewPool(2)
	locker := tracker.NewFileLocker()
	opts := tracker.Options{
		ReposDir: t.TempDir(),
		User:     models.SimpleUser{Login: "octocat", ID: 1, Type: "User"},
		Host:     localHost{remote: testutil.NewRemote(t)},
		Pool:     pool,
		Locker:   locker,
	}
	if tool != "" {
		opts.Supervisor = session.NewSupervisor(session.Options{Tool: tool, Pool: pool, Locker: locker})
	}
	svc := tracker.NewService(opts)

	orig := appFactory
	appFactory = func(context.Context) (*app, error) {
		return &app{svc: svc}, nil
	}
	t.Cleanup(func() { appFactory = orig })

	project := t.TempDir()
	_, err := run(t, "project", "setup", "-r", storeRepo, project)
	require.NoError(t, err)
	return project
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, progress bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&progress)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func runJSON[T any](t *testing.T, args ...string) T {
	t.Helper()
	out, err := run(t, append(args, "--json")...)
	require.NoError(t, err, out)
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestParseNumber(t *testing.T) {
	testCases := []struct {
		arg     string
		want    int64
		wantErr bool
	}{
		{arg: "1", want: 1},
		{arg: "42", want: 42},
		{arg: "0", wantErr: true},
		{arg: "-3", wantErr: true},
		{arg: "abc", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.arg, func(t *testing.T) {
			got, err := parseNumber(tc.arg)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseDueOn(t *testing.T) {
	got, err := parseDueOn("2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *got)

	got, err = parseDueOn("2025-03-01T12:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 12, got.Hour())

	_, err = parseDueOn("next week")
	assert.ErrorContains(t, err, "invalid due date")
}

func TestIssueUpdateFromFlags(t *testing.T) {
	cmd := newIssueEditCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--title", "New", "--label", "bug,ui", "--milestone", "2"}))

	update := issueUpdateFromFlags(cmd)
	require.NotNil(t, update.Title)
	assert.Equal(t, "New", *update.Title)
	assert.Nil(t, update.Body)
	assert.Nil(t, update.State)
	assert.Nil(t, update.Assignees)
	assert.Equal(t, []string{"bug", "ui"}, update.Labels)
	require.NotNil(t, update.Milestone)
	assert.Equal(t, int64(2), *update.Milestone)
}

func TestResolveRef(t *testing.T) {
	newCmd := func(args ...string) *cobra.Command {
		root := newRootCmd()
		require.NoError(t, root.ParseFlags(args))
		return root
	}

	ref, err := resolveRef(newCmd("-r", "octocat/attractor-store-x"))
	require.NoError(t, err)
	assert.Equal(t, tracker.Ref{Owner: "octocat", Repo: "attractor-store-x"}, ref)

	_, err = resolveRef(newCmd("-r", "no-slash"))
	assert.ErrorContains(t, err, "invalid repository format")

	_, err = resolveRef(newCmd("-p", t.TempDir()))
	assert.ErrorContains(t, err, "not bound")
}

func TestProjectSetupBindsFolder(t *testing.T) {
	project := useLocalStore(t, "")
	assert.FileExists(t, filepath.Join(project, ".amplifier", "attractor.json"))

	cfg := runJSON[models.ProjectConfig](t, "project", "setup", "-r", storeRepo, project)
	assert.Equal(t, "octocat", cfg.Owner)
	assert.NotEmpty(t, cfg.StoreID)
}

func TestIssueCommands(t *testing.T) {
	project := useLocalStore(t, "")

	out, err := run(t, "-p", project, "issue", "create", "--title", "Crash on start", "--body", "boom")
	require.NoError(t, err)
	assert.Equal(t, "Created issue #1: Crash on start\n", out)

	_, err = run(t, "-p", project, "issue", "create", "--title", "Slow sync")
	require.NoError(t, err)

	_, err = run(t, "-p", project, "issue", "close", "2")
	require.NoError(t, err)

	list := runJSON[models.ListResponse[models.Issue]](t, "-p", project, "issue", "list")
	assert.Equal(t, 1, list.TotalCount)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Crash on start", list.Items[0].Title)

	list = runJSON[models.ListResponse[models.Issue]](t, "-p", project, "issue", "list", "--state", "all")
	assert.Equal(t, 2, list.TotalCount)

	out, err = run(t, "-p", project, "issue", "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "#1 Crash on start")
	assert.Contains(t, out, "boom")

	issue := runJSON[models.Issue](t, "-p", project, "issue", "edit", "1", "--title", "Crash at boot")
	assert.Equal(t, "Crash at boot", issue.Title)

	issue = runJSON[models.Issue](t, "-p", project, "issue", "lock", "1", "--reason", "resolved")
	assert.True(t, issue.Locked)

	_, err = run(t, "-p", project, "issue", "show", "99")
	assert.ErrorContains(t, err, "not found")
}

func TestCommentCommands(t *testing.T) {
	project := useLocalStore(t, "")
	_, err := run(t, "-p", project, "issue", "create", "--title", "one")
	require.NoError(t, err)

	out, err := run(t, "-p", project, "comment", "add", "1", "--body", "looking into it")
	require.NoError(t, err)
	assert.Equal(t, "Added comment #1 on issue #1\n", out)

	_, err = run(t, "-p", project, "comment", "edit", "1", "--body", "fixed")
	require.NoError(t, err)

	comments := runJSON[models.ListResponse[models.Comment]](t, "-p", project, "comment", "list", "1")
	require.Len(t, comments.Items, 1)
	assert.Equal(t, "fixed", comments.Items[0].Body)

	_, err = run(t, "-p", project, "comment", "delete", "1")
	require.NoError(t, err)

	issue := runJSON[models.Issue](t, "-p", project, "issue", "show", "1")
	assert.Equal(t, int64(0), issue.Comments)
}

func TestLabelAndMilestoneCommands(t *testing.T) {
	project := useLocalStore(t, "")
	_, err := run(t, "-p", project, "issue", "create", "--title", "one")
	require.NoError(t, err)

	for _, name := range []string{"bug", "ui"} {
		_, err := run(t, "-p", project, "label", "create", name, "--color", "d73a4a")
		require.NoError(t, err)
	}

	out, err := run(t, "-p", project, "label", "add", "1", "bug", "ui")
	require.NoError(t, err)
	assert.Equal(t, "Issue #1 labels: bug, ui\n", out)

	_, err = run(t, "-p", project, "label", "remove", "1")
	assert.ErrorContains(t, err, "--all")

	labels := runJSON[[]models.Label](t, "-p", project, "label", "remove", "1", "ui")
	require.Len(t, labels, 1)
	assert.Equal(t, "bug", labels[0].Name)

	renamed := runJSON[models.Label](t, "-p", project, "label", "edit", "bug", "--name", "defect")
	assert.Equal(t, "defect", renamed.Name)
	all := runJSON[[]models.Label](t, "-p", project, "label", "list")
	assert.Len(t, all, 2)

	m := runJSON[models.Milestone](t, "-p", project, "milestone", "create", "v1.0", "--due", "2025-06-30")
	assert.Equal(t, int64(1), m.Number)
	require.NotNil(t, m.DueOn)

	_, err = run(t, "-p", project, "milestone", "edit", "1", "--state", "closed")
	require.NoError(t, err)

	milestones := runJSON[models.ListResponse[models.Milestone]](t, "-p", project, "milestone", "list", "--state", "closed")
	assert.Equal(t, 1, milestones.TotalCount)

	_, err = run(t, "-p", project, "milestone", "delete", "1")
	require.NoError(t, err)
}

func TestStoreSync(t *testing.T) {
	project := useLocalStore(t, "")
	out, err := run(t, "-p", project, "store", "sync")
	require.NoError(t, err)
	assert.Equal(t, storeRepo+" is up to date\n", out)
}

func TestSessionRun(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake tool needs a POSIX shell")
	}
	tool := filepath.Join(t.TempDir(), "amplifier")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\necho '{\"status\":\"success\",\"response\":\"Root cause found\"}'\n"), 0o755))

	project := useLocalStore(t, tool)
	_, err := run(t, "-p", project, "issue", "create", "--title", "analyze me")
	require.NoError(t, err)

	info := runJSON[session.Info](t, "-p", project, "session", "run", "1")
	assert.Equal(t, session.StatusCompleted, info.Status)

	comments := runJSON[models.ListResponse[models.Comment]](t, "-p", project, "comment", "list", "1")
	require.Len(t, comments.Items, 1)
	assert.Contains(t, comments.Items[0].Body, "Root cause found")
}

func TestSessionWithoutSupervisor(t *testing.T) {
	project := useLocalStore(t, "")
	_, err := run(t, "-p", project, "session", "status", "1")
	assert.ErrorIs(t, err, tracker.ErrSessionsUnavailable)
}
