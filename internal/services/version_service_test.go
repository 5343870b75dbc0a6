package services

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/logicflow/engine/internal/models"
	appErr "github.com/logicflow/engine/pkg/errors"
)

func TestCreateVersionNumbersAndHistory(t *testing.T) {
	f := newFixture(t, ProjectServiceOptions{})
	ctx := context.Background()
	p, err := f.projects.Create(ctx, "u1", demoInput())
	require.NoError(t, err)

	v1, err := f.versions.Create(ctx, "u1", p.ID, "")
	require.NoError(t, err)
	require.Equal(t, 1, v1.Version)
	require.Equal(t, "Version 1", v1.Description)
	require.Equal(t, "Demo", v1.Name)

	v2, err := f.versions.Create(ctx, "u1", p.ID, "before refactor")
	require.NoError(t, err)
	require.Equal(t, 2, v2.Version)
	require.Equal(t, "before refactor", v2.Description)

	hist, err := f.projects.History(ctx, "u1", p.ID)
	require.NoError(t, err)
	require.Equal(t, models.ActionVersion, hist[0].Action)
	require.EqualValues(t, 2, hist[0].PreviousValues["version"])

	list, err := f.versions.List(ctx, "u1", p.ID, 0)
	require.NoError(t, err)
	require.Equal(t, []int{2, 1}, []int{list[0].Version, list[1].Version})

	_, err = f.versions.Create(ctx, "u1", "missing", "")
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestConcurrentVersionsAreSequential(t *testing.T) {
	f := newFixture(t, ProjectServiceOptions{})
	ctx := context.Background()
	p, err := f.projects.Create(ctx, "u1", demoInput())
	require.NoError(t, err)

	var wg sync.WaitGroup
	numbers := make([]int, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := f.versions.Create(ctx, "u1", p.ID, "")
			errs[i] = err
			if err == nil {
				numbers[i] = v.Version
			}
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	sort.Ints(numbers)
	require.Equal(t, []int{1, 2}, numbers)
}

func TestRestoreVersionWritesTwoRecords(t *testing.T) {
	f := newFixture(t, ProjectServiceOptions{})
	ctx := context.Background()
	p, err := f.projects.Create(ctx, "u1", demoInput())
	require.NoError(t, err)
	v, err := f.versions.Create(ctx, "u1", p.ID, "")
	require.NoError(t, err)

	_, err = f.projects.Update(ctx, "u1", p.ID, &models.ProjectUpdate{Name: strPtr("Changed"), Code: strPtr("y=2")})
	require.NoError(t, err)

	before, err := f.projects.History(ctx, "u1", p.ID)
	require.NoError(t, err)

	restored, err := f.versions.Restore(ctx, "u1", p.ID, v.ID)
	require.NoError(t, err)
	require.Equal(t, "Demo", restored.Name)
	require.Equal(t, "x=1", restored.Code)

	after, err := f.projects.History(ctx, "u1", p.ID)
	require.NoError(t, err)
	require.Len(t, after, len(before)+1)
	require.Equal(t, models.ActionRestore, after[0].Action)
	require.Equal(t, "Changed", after[0].PreviousValues["name"])
	require.Equal(t, "y=2", after[0].PreviousValues["code"])

	vh, err := f.versions.History(ctx, "u1", p.ID, v.ID)
	require.NoError(t, err)
	require.Len(t, vh, 1)
	require.Equal(t, models.ActionRestore, vh[0].Action)
	require.Equal(t, "u1", vh[0].RestoredBy)

	_, err = f.versions.Restore(ctx, "u1", p.ID, "missing")
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestDeleteVersion(t *testing.T) {
	f := newFixture(t, ProjectServiceOptions{})
	ctx := context.Background()
	p, err := f.projects.Create(ctx, "u1", demoInput())
	require.NoError(t, err)
	v, err := f.versions.Create(ctx, "u1", p.ID, "")
	require.NoError(t, err)

	require.NoError(t, f.versions.Delete(ctx, "u1", p.ID, v.ID))
	_, err = f.versions.Get(ctx, "u1", p.ID, v.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	err = f.versions.Delete(ctx, "u1", p.ID, v.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	next, err := f.versions.Create(ctx, "u1", p.ID, "")
	require.NoError(t, err)
	require.Equal(t, 1, next.Version)
}

func TestPurgeProjectSkipsLiveProject(t *testing.T) {
	f := newFixture(t, ProjectServiceOptions{})
	ctx := context.Background()
	p, err := f.projects.Create(ctx, "u1", demoInput())
	require.NoError(t, err)
	_, err = f.versions.Create(ctx, "u1", p.ID, "")
	require.NoError(t, err)

	_, err = f.versions.PurgeProject(ctx, "u1", p.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeInvalidState))
}
