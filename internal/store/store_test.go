package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielolaszy/attractor/internal/apperr"
	"github.com/danielolaszy/attractor/pkg/models"
)

var octocat = models.SimpleUser{Login: "octocat", ID: 1, Type: "User"}

func newStore(t *testing.T) *Store {
	t.Helper()
	s := New(t.TempDir())
	require.NoError(t, s.InitStructure())
	return s
}

func strPtr(s string) *string { return &s }

func TestInitStructure(t *testing.T) {
	s := newStore(t)

	for _, rel := range []string{
		".attractor/issues/.gitkeep",
		".attractor/comments/.gitkeep",
		".attractor/labels.json",
		".attractor/milestones.json",
		".attractor/meta.json",
	} {
		assert.FileExists(t, filepath.Join(s.Root(), filepath.FromSlash(rel)))
	}
	assert.True(t, s.Initialized())

	meta, err := s.ReadMeta()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMeta(), meta)

	// existing files survive a second init
	_, err = s.CreateLabel("bug", "d73a4a", nil)
	require.NoError(t, err)
	require.NoError(t, s.InitStructure())
	labels, err := s.ReadLabels()
	require.NoError(t, err)
	assert.Len(t, labels, 1)
}

func TestReadMetaMissingDefaults(t *testing.T) {
	s := New(t.TempDir())

	meta, err := s.ReadMeta()
	require.NoError(t, err)
	assert.Equal(t, models.Meta{NextIssueID: 1, NextCommentID: 1, NextMilestoneID: 1}, meta)
	assert.False(t, s.Initialized())
}

func TestIssueNumbersAreSequential(t *testing.T) {
	s := newStore(t)
	now := time.Now().UTC()

	for want := int64(1); want <= 3; want++ {
		issue, err := s.CreateIssue(models.NewIssue{Title: "issue"}, octocat, now)
		require.NoError(t, err)
		assert.Equal(t, want, issue.Number)
		assert.Equal(t, want, issue.ID)
		assert.Equal(t, int64(0), issue.Comments)
		assert.Equal(t, models.StateOpen, issue.State)
	}

	meta, err := s.ReadMeta()
	require.NoError(t, err)
	assert.Equal(t, int64(4), meta.NextIssueID)
}

func TestIssueRoundTrip(t *testing.T) {
	s := newStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(48 * time.Hour)

	issue := models.Issue{
		ID:          7,
		Number:      7,
		Title:       "Round trip",
		Body:        strPtr("body text"),
		State:       models.StateClosed,
		StateReason: strPtr("completed"),
		Locked:      true,
		LockReason:  strPtr("resolved"),
		Labels:      []models.Label{{ID: 1, Name: "bug", Color: "d73a4a", Description: strPtr("broken")}},
		Assignees:   []models.SimpleUser{{Login: "hubot", Type: "User"}},
		Milestone: &models.Milestone{
			ID: 1, Number: 1, Title: "v1", State: models.StateOpen,
			CreatedAt: now, UpdatedAt: now, DueOn: &due,
		},
		Comments:          2,
		CreatedAt:         now,
		UpdatedAt:         now,
		ClosedAt:          &now,
		ClosedBy:          &octocat,
		AuthorAssociation: "OWNER",
		User:              octocat,
	}
	require.NoError(t, s.WriteIssue(issue))

	got, err := s.ReadIssue(7)
	require.NoError(t, err)
	if diff := cmp.Diff(issue, got); diff != "" {
		t.Errorf("issue mismatch (-want +got):\n%s", diff)
	}
}

func TestReadIssueNotFound(t *testing.T) {
	s := newStore(t)

	_, err := s.ReadIssue(42)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestReadIssueMalformed(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.WriteFile(s.issuePath(1), []byte("{not json"), 0o644))

	_, err := s.ReadIssue(1)
	var malformed *apperr.MalformedDocumentError
	assert.ErrorAs(t, err, &malformed)
}

func TestCreateIssueResolvesLabelsAndMilestone(t *testing.T) {
	s := newStore(t)
	now := time.Now().UTC()

	_, err := s.CreateLabel("bug", "d73a4a", nil)
	require.NoError(t, err)
	ms, err := s.CreateMilestone(models.NewMilestone{Title: "v1"}, now)
	require.NoError(t, err)

	issue, err := s.CreateIssue(models.NewIssue{
		Title:     "Crash",
		Labels:    []string{"bug", "unknown"},
		Assignees: []string{"hubot"},
		Milestone: &ms.Number,
	}, octocat, now)
	require.NoError(t, err)

	require.Len(t, issue.Labels, 1)
	assert.Equal(t, "bug", issue.Labels[0].Name)
	require.NotNil(t, issue.Milestone)
	assert.Equal(t, ms.Number, issue.Milestone.Number)
	require.Len(t, issue.Assignees, 1)
	assert.Equal(t, "hubot", issue.Assignees[0].Login)
}

func TestUpdateIssueCloseAndReopen(t *testing.T) {
	s := newStore(t)
	now := time.Now().UTC()

	issue, err := s.CreateIssue(models.NewIssue{Title: "Close me"}, octocat, now)
	require.NoError(t, err)

	closed := models.StateClosed
	later := now.Add(time.Minute)
	issue, err = s.UpdateIssue(issue.Number, models.IssueUpdate{State: &closed}, octocat, later)
	require.NoError(t, err)
	require.NotNil(t, issue.ClosedAt)
	require.NotNil(t, issue.ClosedBy)
	assert.True(t, issue.ClosedAt.Equal(later))
	assert.Equal(t, "octocat", issue.ClosedBy.Login)

	open := models.StateOpen
	issue, err = s.UpdateIssue(issue.Number, models.IssueUpdate{State: &open}, octocat, later.Add(time.Minute))
	require.NoError(t, err)
	assert.Nil(t, issue.ClosedAt)
	assert.Nil(t, issue.ClosedBy)
	assert.Equal(t, models.StateOpen, issue.State)
}

func TestSetLocked(t *testing.T) {
	s := newStore(t)
	now := time.Now().UTC()
	issue, err := s.CreateIssue(models.NewIssue{Title: "Lock me"}, octocat, now)
	require.NoError(t, err)

	issue, err = s.SetLocked(issue.Number, true, strPtr("spam"), now)
	require.NoError(t, err)
	assert.True(t, issue.Locked)
	assert.Equal(t, "spam", *issue.LockReason)

	issue, err = s.SetLocked(issue.Number, false, strPtr("ignored"), now)
	require.NoError(t, err)
	assert.False(t, issue.Locked)
	assert.Nil(t, issue.LockReason)
}

func seedIssues(t *testing.T, s *Store) {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	due := base

	issues := []models.Issue{
		{Number: 1, State: models.StateOpen, CreatedAt: base, UpdatedAt: base.Add(5 * time.Hour), Comments: 3,
			Labels: []models.Label{{Name: "bug"}, {Name: "ui"}}},
		{Number: 2, State: models.StateOpen, CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour), Comments: 0,
			Assignees: []models.SimpleUser{{Login: "hubot"}}, Labels: []models.Label{{Name: "bug"}}},
		{Number: 3, State: models.StateClosed, CreatedAt: base.Add(2 * time.Hour), UpdatedAt: base.Add(2 * time.Hour), Comments: 1,
			Milestone: &models.Milestone{Number: 1, DueOn: &due}},
		{Number: 4, State: models.StateOpen, CreatedAt: base.Add(3 * time.Hour), UpdatedAt: base.Add(3 * time.Hour), Comments: 5,
			Milestone: &models.Milestone{Number: 2}, Assignees: []models.SimpleUser{{Login: "octocat"}}},
	}
	for _, issue := range issues {
		issue.ID = issue.Number
		issue.Title = "seeded"
		require.NoError(t, s.WriteIssue(issue))
	}
}

func numbers(issues []models.Issue) []int64 {
	out := make([]int64, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Number)
	}
	return out
}

func TestListIssues(t *testing.T) {
	s := newStore(t)
	seedIssues(t, s)

	tests := []struct {
		name      string
		filters   models.IssueFilters
		want      []int64
		wantTotal int
	}{
		{name: "Default is open, newest first", want: []int64{4, 2, 1}, wantTotal: 3},
		{name: "All states", filters: models.IssueFilters{State: "all"}, want: []int64{4, 3, 2, 1}, wantTotal: 4},
		{name: "Closed only", filters: models.IssueFilters{State: "closed"}, want: []int64{3}, wantTotal: 1},
		{name: "Created ascending", filters: models.IssueFilters{Direction: "asc"}, want: []int64{1, 2, 4}, wantTotal: 3},
		{name: "Labels must all match", filters: models.IssueFilters{Labels: []string{"bug", "ui"}}, want: []int64{1}, wantTotal: 1},
		{name: "Single label", filters: models.IssueFilters{Labels: []string{"bug"}}, want: []int64{2, 1}, wantTotal: 2},
		{name: "Assignee none", filters: models.IssueFilters{Assignee: "none"}, want: []int64{1}, wantTotal: 1},
		{name: "Assignee any", filters: models.IssueFilters{Assignee: "*"}, want: []int64{4, 2}, wantTotal: 2},
		{name: "Assignee login", filters: models.IssueFilters{Assignee: "hubot"}, want: []int64{2}, wantTotal: 1},
		{name: "Milestone none", filters: models.IssueFilters{State: "all", Milestone: "none"}, want: []int64{2, 1}, wantTotal: 2},
		{name: "Milestone any", filters: models.IssueFilters{State: "all", Milestone: "*"}, want: []int64{4, 3}, wantTotal: 2},
		{name: "Milestone number", filters: models.IssueFilters{State: "all", Milestone: "1"}, want: []int64{3}, wantTotal: 1},
		{name: "Sort by comments", filters: models.IssueFilters{Sort: "comments"}, want: []int64{4, 1, 2}, wantTotal: 3},
		{name: "Sort by updated asc", filters: models.IssueFilters{Sort: "updated", Direction: "asc"}, want: []int64{2, 4, 1}, wantTotal: 3},
		{name: "Page two", filters: models.IssueFilters{State: "all", PerPage: 3, Page: 2}, want: []int64{1}, wantTotal: 4},
		{name: "Page past end", filters: models.IssueFilters{PerPage: 3, Page: 5}, want: []int64{}, wantTotal: 3},
		{name: "Page zero treated as one", filters: models.IssueFilters{PerPage: 1, Page: 0}, want: []int64{4}, wantTotal: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := s.ListIssues(tt.filters)
			require.NoError(t, err)
			assert.Equal(t, tt.want, numbers(got))
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}

func TestListIssuesPerPageCapped(t *testing.T) {
	s := newStore(t)
	now := time.Now().UTC()
	for i := 0; i < 105; i++ {
		_, err := s.CreateIssue(models.NewIssue{Title: "bulk"}, octocat, now)
		require.NoError(t, err)
	}

	got, total, err := s.ListIssues(models.IssueFilters{PerPage: 500})
	require.NoError(t, err)
	assert.Len(t, got, 100)
	assert.Equal(t, 105, total)

	got, _, err = s.ListIssues(models.IssueFilters{})
	require.NoError(t, err)
	assert.Len(t, got, 30)
}

func TestListIssuesAnyAssigneeSkipsUnassigned(t *testing.T) {
	s := newStore(t)
	now := time.Now().UTC()

	_, err := s.CreateIssue(models.NewIssue{Title: "nobody"}, octocat, now)
	require.NoError(t, err)
	_, err = s.CreateIssue(models.NewIssue{Title: "taken", Assignees: []string{"hubot"}}, octocat, now)
	require.NoError(t, err)

	got, total, err := s.ListIssues(models.IssueFilters{Assignee: "*"})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, numbers(got))
	assert.Equal(t, 1, total)
}

func TestCommentIDsAreRepositoryWide(t *testing.T) {
	s := newStore(t)
	now := time.Now().UTC()

	first, err := s.CreateIssue(models.NewIssue{Title: "one"}, octocat, now)
	require.NoError(t, err)
	second, err := s.CreateIssue(models.NewIssue{Title: "two"}, octocat, now)
	require.NoError(t, err)

	c1, err := s.AddComment(first.Number, "a", octocat, "OWNER", now)
	require.NoError(t, err)
	c2, err := s.AddComment(second.Number, "b", octocat, "OWNER", now)
	require.NoError(t, err)
	c3, err := s.AddComment(first.Number, "c", octocat, "OWNER", now)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3}, []int64{c1.ID, c2.ID, c3.ID})

	issue, err := s.ReadIssue(first.Number)
	require.NoError(t, err)
	assert.Equal(t, int64(2), issue.Comments)

	owner, found, err := s.FindComment(c2.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Number, owner)
	assert.Equal(t, "b", found.Body)
}

func TestRemoveCommentFloorsAtZero(t *testing.T) {
	s := newStore(t)
	now := time.Now().UTC()

	issue, err := s.CreateIssue(models.NewIssue{Title: "drift"}, octocat, now)
	require.NoError(t, err)
	comment, err := s.AddComment(issue.Number, "x", octocat, "OWNER", now)
	require.NoError(t, err)

	// simulate a drifted cache
	issue, err = s.ReadIssue(issue.Number)
	require.NoError(t, err)
	issue.Comments = 0
	require.NoError(t, s.WriteIssue(issue))

	owner, err := s.RemoveComment(comment.ID, now)
	require.NoError(t, err)
	assert.Equal(t, issue.Number, owner)

	issue, err = s.ReadIssue(issue.Number)
	require.NoError(t, err)
	assert.Equal(t, int64(0), issue.Comments)

	_, _, err = s.FindComment(comment.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListCommentsOrderAndPagination(t *testing.T) {
	s := newStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, offset := range []time.Duration{3 * time.Hour, time.Hour, 2 * time.Hour} {
		require.NoError(t, s.WriteComment(1, models.Comment{ID: int64(i + 1), Body: "c", CreatedAt: base.Add(offset)}))
	}

	got, total, err := s.ListComments(1, 1, 30)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{2, 3, 1}, []int64{got[0].ID, got[1].ID, got[2].ID})

	got, total, err = s.ListComments(1, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)

	got, total, err = s.ListComments(99, 1, 30)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, total)
}

func TestEditComment(t *testing.T) {
	s := newStore(t)
	now := time.Now().UTC()
	comment, err := s.AddComment(3, "before", octocat, "OWNER", now)
	require.NoError(t, err)

	issue, edited, err := s.EditComment(comment.ID, "after", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(3), issue)
	assert.Equal(t, "after", edited.Body)

	stored, err := s.ReadComment(3, comment.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(edited, stored); diff != "" {
		t.Errorf("comment mismatch (-want +got):\n%s", diff)
	}
}

func TestLabels(t *testing.T) {
	s := newStore(t)

	bug, err := s.CreateLabel("bug", "d73a4a", strPtr("Something is broken"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), bug.ID)

	_, err = s.CreateLabel("bug", "000000", nil)
	assert.ErrorIs(t, err, apperr.ErrLabelExists)

	docs, err := s.CreateLabel("docs", "0075ca", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), docs.ID)

	require.NoError(t, s.DeleteLabel("bug"))
	feature, err := s.CreateLabel("feature", "a2eeef", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), feature.ID, "ids continue above the current maximum")

	updated, err := s.UpdateLabel("docs", models.LabelUpdate{NewName: strPtr("documentation"), Color: strPtr("ffffff")})
	require.NoError(t, err)
	assert.Equal(t, "documentation", updated.Name)
	assert.Equal(t, "ffffff", updated.Color)

	_, err = s.UpdateLabel("documentation", models.LabelUpdate{NewName: strPtr("feature")})
	assert.ErrorIs(t, err, apperr.ErrLabelExists)

	_, err = s.GetLabel("docs")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, s.DeleteLabel("nope"), apperr.ErrNotFound)
}

func TestIssueLabelAssociations(t *testing.T) {
	s := newStore(t)
	now := time.Now().UTC()
	for _, name := range []string{"bug", "ui", "docs"} {
		_, err := s.CreateLabel(name, "cccccc", nil)
		require.NoError(t, err)
	}
	issue, err := s.CreateIssue(models.NewIssue{Title: "labels", Labels: []string{"bug"}}, octocat, now)
	require.NoError(t, err)

	labels, err := s.AddIssueLabels(issue.Number, []string{"bug", "ui", "missing"}, now)
	require.NoError(t, err)
	assert.Len(t, labels, 2)

	labels, err = s.RemoveIssueLabel(issue.Number, "bug", now)
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, "ui", labels[0].Name)

	labels, err = s.SetIssueLabels(issue.Number, []string{"docs"}, now)
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, "docs", labels[0].Name)

	require.NoError(t, s.ClearIssueLabels(issue.Number, now))
	issue, err = s.ReadIssue(issue.Number)
	require.NoError(t, err)
	assert.Empty(t, issue.Labels)
	assert.NotNil(t, issue.Labels)
}

func TestMilestones(t *testing.T) {
	s := newStore(t)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	early := now.Add(24 * time.Hour)
	late := now.Add(72 * time.Hour)

	a, err := s.CreateMilestone(models.NewMilestone{Title: "late", DueOn: &late}, now)
	require.NoError(t, err)
	b, err := s.CreateMilestone(models.NewMilestone{Title: "early", DueOn: &early}, now)
	require.NoError(t, err)
	c, err := s.CreateMilestone(models.NewMilestone{Title: "someday"}, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, []int64{a.Number, b.Number, c.Number})

	got, total, err := s.ListMilestones(models.MilestoneFilters{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"someday", "early", "late"}, titles(got))

	closed := models.StateClosed
	updated, err := s.UpdateMilestone(b.Number, models.MilestoneUpdate{State: &closed}, now)
	require.NoError(t, err)
	assert.NotNil(t, updated.ClosedAt)

	got, _, err = s.ListMilestones(models.MilestoneFilters{Direction: "desc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"late", "someday"}, titles(got))

	open := models.StateOpen
	updated, err = s.UpdateMilestone(b.Number, models.MilestoneUpdate{State: &open}, now)
	require.NoError(t, err)
	assert.Nil(t, updated.ClosedAt)

	require.NoError(t, s.DeleteMilestone(a.Number))
	assert.ErrorIs(t, s.DeleteMilestone(a.Number), apperr.ErrNotFound)
	_, err = s.GetMilestone(a.Number)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListMilestonesByCompleteness(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.WriteMilestones([]models.Milestone{
		{Number: 1, Title: "half", State: models.StateOpen, OpenIssues: 1, ClosedIssues: 1},
		{Number: 2, Title: "empty", State: models.StateOpen},
		{Number: 3, Title: "done", State: models.StateOpen, ClosedIssues: 4},
	}))

	got, _, err := s.ListMilestones(models.MilestoneFilters{Sort: "completeness"})
	require.NoError(t, err)
	assert.Equal(t, []string{"empty", "half", "done"}, titles(got))
}

func titles(ms []models.Milestone) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Title)
	}
	return out
}

func TestValidateBinding(t *testing.T) {
	tests := []struct {
		name         string
		projectID    string
		manifestID   string
		writeProject bool
		writeStore   bool
		wantMismatch bool
	}{
		{name: "Neither side", wantMismatch: false},
		{name: "Only project", projectID: "a", writeProject: true},
		{name: "Only manifest", manifestID: "a", writeStore: true},
		{name: "Matching", projectID: "a", manifestID: "a", writeProject: true, writeStore: true},
		{name: "Mismatch", projectID: "a", manifestID: "b", writeProject: true, writeStore: true, wantMismatch: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			project := t.TempDir()
			if tt.writeProject {
				require.NoError(t, WriteProjectConfig(project, models.ProjectConfig{Owner: "octo", Repo: "store", StoreID: tt.projectID}))
			}
			if tt.writeStore {
				require.NoError(t, s.WriteManifest(models.StoreManifest{StoreID: tt.manifestID}))
			}

			err := s.ValidateBinding(project)
			if tt.wantMismatch {
				var mismatch *apperr.StoreIDMismatchError
				require.ErrorAs(t, err, &mismatch)
				assert.Equal(t, tt.projectID, mismatch.Expected)
				assert.Equal(t, tt.manifestID, mismatch.Actual)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProjectConfigRoundTrip(t *testing.T) {
	project := t.TempDir()

	cfg, err := ReadProjectConfig(project)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	want := models.ProjectConfig{Owner: "octo", Repo: "attractor-store-demo", StoreID: "0b7c"}
	require.NoError(t, WriteProjectConfig(project, want))
	assert.FileExists(t, filepath.Join(project, ".amplifier", "attractor.json"))

	cfg, err = ReadProjectConfig(project)
	require.NoError(t, err)
	if diff := cmp.Diff(&want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}
