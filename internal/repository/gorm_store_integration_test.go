//go:build integration

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/logicflow/engine/internal/models"
	"github.com/logicflow/engine/internal/repository"
	"github.com/logicflow/engine/pkg/database"
	appErr "github.com/logicflow/engine/pkg/errors"
)

var postgresContainer *postgres.PostgresContainer

func setupStore(t *testing.T) (*repository.GormStore, context.Context) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error
		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("logicflow_test"),
			postgres.WithUsername("logicflow"),
			postgres.WithPassword("logicflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	dsn, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.OpenPostgres(ctx, zap.NewNop(), database.Options{DSN: dsn, MaxRetries: 3})
	require.NoError(t, err)
	require.NoError(t, db.Migrator().DropTable(repository.Models()...))
	require.NoError(t, db.AutoMigrate(repository.Models()...))

	t.Cleanup(func() {
		require.NoError(t, db.Migrator().DropTable(repository.Models()...))
		require.NoError(t, database.Close(db))
		cancel()
	})

	return repository.NewGormStore(db), ctx
}

func newProject(userID, id string, updatedAt int64) *models.Project {
	return &models.Project{
		UserID:    userID,
		ID:        id,
		Name:      id,
		Code:      "x=1",
		Nodes:     datatypes.JSONSlice[models.Node]{{ID: "1", Type: models.NodeProcess, Data: models.NodeData{Label: "x=1"}}},
		Edges:     datatypes.JSONSlice[models.Edge]{},
		UpdatedAt: updatedAt,
	}
}

func TestGormProjectsRoundTrip(t *testing.T) {
	s, ctx := setupStore(t)

	require.NoError(t, s.Projects().Create(ctx, newProject("u1", "a", 10)))
	require.NoError(t, s.Projects().Create(ctx, newProject("u1", "b", 20)))
	require.NoError(t, s.Projects().Create(ctx, newProject("u2", "a", 30)))

	err := s.Projects().Create(ctx, newProject("u1", "a", 40))
	require.True(t, appErr.IsCode(err, appErr.CodeConflict))

	got, err := s.Projects().Get(ctx, "u1", "a")
	require.NoError(t, err)
	require.Len(t, got.Nodes, 1)
	require.Equal(t, models.NodeProcess, got.Nodes[0].Type)

	page, err := s.Projects().ListActive(ctx, "u1", "b", 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "a", page[0].ID)

	count, last, err := s.Projects().Stats(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.EqualValues(t, 20, last)

	_, err = s.Projects().Get(ctx, "u3", "a")
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestGormTransactionRollback(t *testing.T) {
	s, ctx := setupStore(t)

	err := s.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Projects().Create(ctx, newProject("u1", "p", 1)); err != nil {
			return err
		}
		return tx.History().Append(ctx, &models.ProjectHistory{UserID: "u1", ProjectID: "p", ID: "h1", Action: models.ActionCreate, ChangedBy: "u1", ChangedAt: 1})
	})
	require.NoError(t, err)

	err = s.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Projects().Delete(ctx, "u1", "p"); err != nil {
			return err
		}
		return tx.History().Append(ctx, &models.ProjectHistory{UserID: "u1", ProjectID: "p", ID: "h1", Action: models.ActionDelete, ChangedBy: "u1", ChangedAt: 2})
	})
	require.True(t, appErr.IsCode(err, appErr.CodeConflict))

	ok, err := s.Projects().Exists(ctx, "u1", "p")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestGormHistoryTiesListNewestInsertFirst(t *testing.T) {
	s, ctx := setupStore(t)
	require.NoError(t, s.Projects().Create(ctx, newProject("u1", "p", 1)))

	// Ids sort opposite to insertion so only seq can order the tie.
	for _, h := range []*models.ProjectHistory{
		{UserID: "u1", ProjectID: "p", ID: "zz", Action: models.ActionCreate, ChangedBy: "u1", ChangedAt: 1},
		{UserID: "u1", ProjectID: "p", ID: "mm", Action: models.ActionUpdate, ChangedBy: "u1", ChangedAt: 7},
		{UserID: "u1", ProjectID: "p", ID: "aa", Action: models.ActionDelete, ChangedBy: "u1", ChangedAt: 7},
	} {
		require.NoError(t, s.History().Append(ctx, h))
	}

	got, err := s.History().ListByProject(ctx, "u1", "p")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, []string{"aa", "mm", "zz"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestGormVersionsAndOrphans(t *testing.T) {
	s, ctx := setupStore(t)
	require.NoError(t, s.Projects().Create(ctx, newProject("u1", "live", 1)))

	for i, pid := range []string{"live", "live", "gone"} {
		n, err := s.Versions().MaxNumber(ctx, "u1", pid)
		require.NoError(t, err)
		require.NoError(t, s.Versions().Create(ctx, &models.ProjectVersion{
			UserID: "u1", ProjectID: pid, ID: string(rune('a' + i)), Version: n + 1,
			Name: "n", Nodes: datatypes.JSONSlice[models.Node]{}, Edges: datatypes.JSONSlice[models.Edge]{},
			CreatedAt: int64(i), CreatedBy: "u1",
		}))
	}

	list, err := s.Versions().List(ctx, "u1", "live", 0)
	require.NoError(t, err)
	require.Equal(t, []int{2, 1}, []int{list[0].Version, list[1].Version})

	removed, err := s.Versions().DeleteOrphans(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	require.NoError(t, s.Ping(ctx))
}
