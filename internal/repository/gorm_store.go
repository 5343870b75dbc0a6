package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/logicflow/engine/internal/models"
	appErr "github.com/logicflow/engine/pkg/errors"
)

// GormStore is the PostgreSQL Store.
type GormStore struct {
	db       *gorm.DB
	projects ProjectRepository
	history  HistoryRepository
	versions VersionRepository
}

var _ Store = (*GormStore)(nil)

// NewGormStore wires the gorm repositories around one handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:       db,
		projects: NewProjectRepository(db),
		history:  NewHistoryRepository(db),
		versions: NewVersionRepository(db),
	}
}

// Models lists every table the store owns, in migration order.
func Models() []any {
	return []any{
		&models.Project{},
		&models.ProjectHistory{},
		&models.ProjectVersion{},
		&models.VersionHistory{},
	}
}

func (s *GormStore) Projects() ProjectRepository { return s.projects }
func (s *GormStore) History() HistoryRepository  { return s.history }
func (s *GormStore) Versions() VersionRepository { return s.versions }

// DB exposes the underlying handle for migrations.
func (s *GormStore) DB() *gorm.DB { return s.db }

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormStore(tx))
	})
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "database handle unavailable")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "database ping failed")
	}
	return nil
}
