package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/logicflow/engine/internal/api/validators"
	"github.com/logicflow/engine/internal/models"
	"github.com/logicflow/engine/internal/repository/memory"
	"github.com/logicflow/engine/pkg/config"
	appErr "github.com/logicflow/engine/pkg/errors"
)

func strPtr(s string) *string { return &s }

func demoInput() *models.ProjectInput {
	return &models.ProjectInput{
		Name: "Demo",
		Code: strPtr("x=1"),
		Nodes: []models.Node{
			{ID: "1", Type: models.NodeProcess, Data: models.NodeData{Label: "x=1"}},
		},
		Edges: []models.Edge{},
	}
}

type fixture struct {
	store    *memory.Store
	clock    *tickClock
	projects ProjectService
	versions VersionService
	backups  BackupService
}

func newFixture(t *testing.T, opts ProjectServiceOptions) *fixture {
	t.Helper()
	f := &fixture{store: memory.New(), clock: newTickClock()}
	opts.Clock = f.clock.Now
	if opts.PublicBaseURL == "" {
		opts.PublicBaseURL = "https://flow.example.com/"
	}
	f.projects = NewProjectService(f.store, validators.New(), opts)
	f.versions = NewVersionService(f.store, validators.New(), f.clock.Now)
	b, err := NewBackupService(f.store, f.clock.Now)
	require.NoError(t, err)
	f.backups = b
	return f
}

func listIDs(t *testing.T, svc ProjectService, userID string) []string {
	t.Helper()
	page, err := svc.List(context.Background(), userID, "", 100)
	require.NoError(t, err)
	var ids []string
	for _, p := range page.Projects {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestDemoLifecycle(t *testing.T) {
	f := newFixture(t, ProjectServiceOptions{})
	ctx := context.Background()

	p, err := f.projects.Create(ctx, "u1", demoInput())
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)
	require.Equal(t, "Demo", p.Name)
	require.False(t, p.IsDeleted)
	require.Greater(t, p.UpdatedAt, int64(0))
	require.Contains(t, listIDs(t, f.projects, "u1"), p.ID)

	require.NoError(t, f.projects.SoftDelete(ctx, "u1", p.ID))
	require.NotContains(t, listIDs(t, f.projects, "u1"), p.ID)

	restored, err := f.projects.Restore(ctx, "u1", p.ID)
	require.NoError(t, err)
	require.False(t, restored.IsDeleted)
	require.Nil(t, restored.DeletedAt)
	require.Contains(t, listIDs(t, f.projects, "u1"), p.ID)

	hist, err := f.projects.History(ctx, "u1", p.ID)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	require.Equal(t, models.ActionRestore, hist[0].Action)
	require.Equal(t, models.ActionDelete, hist[1].Action)
	require.Equal(t, models.ActionCreate, hist[2].Action)
	require.Equal(t, false, hist[1].PreviousValues["isDeleted"])
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, ProjectServiceOptions{})
	ctx := context.Background()

	in := demoInput()
	in.Name = ""
	_, err := f.projects.Create(ctx, "u1", in)
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	_, err = f.projects.Create(ctx, "", demoInput())
	require.True(t, appErr.IsCode(err, appErr.CodeBadRequest))

	in = demoInput()
	in.Nodes[0].Type = "hexagon"
	_, err = f.projects.Create(ctx, "u1", in)
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestUpdateRecordsSnapshot(t *testing.T) {
	f := newFixture(t, ProjectServiceOptions{})
	ctx := context.Background()
	p, err := f.projects.Create(ctx, "u1", demoInput())
	require.NoError(t, err)

	updated, err := f.projects.Update(ctx, "u1", p.ID, &models.ProjectUpdate{Name: strPtr("Renamed")})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)
	require.Equal(t, "x=1", updated.Code)
	require.Greater(t, updated.UpdatedAt, p.UpdatedAt)

	hist, err := f.projects.History(ctx, "u1", p.ID)
	require.NoError(t, err)
	require.Equal(t, models.ActionUpdate, hist[0].Action)
	require.Equal(t, "Demo", hist[0].PreviousValues["name"])
	require.Equal(t, "x=1", hist[0].PreviousValues["code"])

	_, err = f.projects.Update(ctx, "u1", "missing", &models.ProjectUpdate{Name: strPtr("x")})
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	_, err = f.projects.Update(ctx, "u1", p.ID, &models.ProjectUpdate{Name: strPtr("")})
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestGetIsScopedToOwner(t *testing.T) {
	f := newFixture(t, ProjectServiceOptions{})
	ctx := context.Background()
	p, err := f.projects.Create(ctx, "u1", demoInput())
	require.NoError(t, err)

	_, err = f.projects.Get(ctx, "u2", p.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestRestoreRequiresDeleted(t *testing.T) {
	f := newFixture(t, ProjectServiceOptions{})
	ctx := context.Background()
	p, err := f.projects.Create(ctx, "u1", demoInput())
	require.NoError(t, err)

	_, err = f.projects.Restore(ctx, "u1", p.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeInvalidState))
}

func TestHardDeleteCascade(t *testing.T) {
	f := newFixture(t, ProjectServiceOptions{PurgePolicy: config.PurgeCascade})
	ctx := context.Background()
	p, err := f.projects.Create(ctx, "u1", demoInput())
	require.NoError(t, err)
	_, err = f.versions.Create(ctx, "u1", p.ID, "")
	require.NoError(t, err)

	require.NoError(t, f.projects.HardDelete(ctx, "u1", p.ID))
	require.NotContains(t, listIDs(t, f.projects, "u1"), p.ID)

	_, err = f.projects.Get(ctx, "u1", p.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	versions, err := f.versions.List(ctx, "u1", p.ID, 0)
	require.NoError(t, err)
	require.Empty(t, versions)

	hist, err := f.projects.History(ctx, "u1", p.ID)
	require.NoError(t, err)
	require.Equal(t, models.ActionDelete, hist[0].Action)
	require.Equal(t, "Demo", hist[0].PreviousValues["name"])
}

func TestHardDeleteRetainLeavesVersionsForSweep(t *testing.T) {
	f := newFixture(t, ProjectServiceOptions{PurgePolicy: config.PurgeRetain})
	ctx := context.Background()
	p, err := f.projects.Create(ctx, "u1", demoInput())
	require.NoError(t, err)
	_, err = f.versions.Create(ctx, "u1", p.ID, "")
	require.NoError(t, err)

	require.NoError(t, f.projects.HardDelete(ctx, "u1", p.ID))
	versions, err := f.versions.List(ctx, "u1", p.ID, 0)
	require.NoError(t, err)
	require.Len(t, versions, 1)

	n, err := f.versions.SweepOrphans(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestHardDeleteDeferredEnqueuesPurge(t *testing.T) {
	purger := &mockPurger{}
	f := newFixture(t, ProjectServiceOptions{PurgePolicy: config.PurgeDeferred, Purger: purger})
	ctx := context.Background()
	p, err := f.projects.Create(ctx, "u1", demoInput())
	require.NoError(t, err)

	purger.On("EnqueueVersionPurge", "u1", p.ID).Return(errors.New("redis down")).Once()

	require.NoError(t, f.projects.HardDelete(ctx, "u1", p.ID))
	mock.AssertExpectationsForObjects(t, purger)
}

func TestHardDeleteMissing(t *testing.T) {
	f := newFixture(t, ProjectServiceOptions{})
	err := f.projects.HardDelete(context.Background(), "u1", "nope")
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestShareLifecycle(t *testing.T) {
	f := newFixture(t, ProjectServiceOptions{})
	ctx := context.Background()
	p, err := f.projects.Create(ctx, "u1", demoInput())
	require.NoError(t, err)

	res, err := f.projects.Share(ctx, "u1", p.ID)
	require.NoError(t, err)
	require.Len(t, res.ShareID, 32)
	require.Equal(t, "https://flow.example.com/share/"+res.ShareID, res.URL)

	again, err := f.projects.Share(ctx, "u1", p.ID)
	require.NoError(t, err)
	require.Equal(t, res.ShareID, again.ShareID)

	shared, err := f.projects.GetShared(ctx, res.ShareID)
	require.NoError(t, err)
	require.Equal(t, p.ID, shared.ID)
	require.Equal(t, "u1", shared.SharedBy)

	require.NoError(t, f.projects.Unshare(ctx, "u1", p.ID))
	_, err = f.projects.GetShared(ctx, res.ShareID)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	hist, err := f.projects.History(ctx, "u1", p.ID)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	require.Equal(t, res.ShareID, hist[0].PreviousValues["shareId"])
}

func TestSharedProjectHiddenWhenDeleted(t *testing.T) {
	f := newFixture(t, ProjectServiceOptions{})
	ctx := context.Background()
	p, err := f.projects.Create(ctx, "u1", demoInput())
	require.NoError(t, err)
	res, err := f.projects.Share(ctx, "u1", p.ID)
	require.NoError(t, err)

	require.NoError(t, f.projects.SoftDelete(ctx, "u1", p.ID))
	_, err = f.projects.GetShared(ctx, res.ShareID)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	_, err = f.projects.Share(ctx, "u1", p.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeInvalidState))
}

func TestListCursorPaging(t *testing.T) {
	f := newFixture(t, ProjectServiceOptions{})
	ctx := context.Background()
	var created []string
	for i := 0; i < 5; i++ {
		p, err := f.projects.Create(ctx, "u1", demoInput())
		require.NoError(t, err)
		created = append(created, p.ID)
	}

	first, err := f.projects.List(ctx, "u1", "", 2)
	require.NoError(t, err)
	require.Len(t, first.Projects, 2)
	require.Equal(t, created[4], first.Projects[0].ID)
	require.NotNil(t, first.NextCursor)

	second, err := f.projects.List(ctx, "u1", *first.NextCursor, 2)
	require.NoError(t, err)
	require.Equal(t, []string{created[2], created[1]}, []string{second.Projects[0].ID, second.Projects[1].ID})

	last, err := f.projects.List(ctx, "u1", *second.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, last.Projects, 1)
	require.Nil(t, last.NextCursor)

	unknown, err := f.projects.List(ctx, "u1", "does-not-exist", 0)
	require.NoError(t, err)
	require.Len(t, unknown.Projects, 5)

	_, err = f.projects.List(ctx, "u1", "", 101)
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}
