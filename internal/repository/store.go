package repository

import (
	"context"

	"github.com/logicflow/engine/internal/models"
)

// ProjectRepository persists live projects, keyed by (userID, projectID).
type ProjectRepository interface {
	// Create fails with CodeConflict when the id is already taken for the user.
	Create(ctx context.Context, p *models.Project) error
	Get(ctx context.Context, userID, projectID string) (*models.Project, error)
	// GetForUpdate is Get that locks the row for the rest of the transaction where supported.
	GetForUpdate(ctx context.Context, userID, projectID string) (*models.Project, error)
	// Save inserts or fully replaces the row.
	Save(ctx context.Context, p *models.Project) error
	Delete(ctx context.Context, userID, projectID string) error
	Exists(ctx context.Context, userID, projectID string) (bool, error)
	// ListActive returns non-deleted projects ordered by updatedAt desc, id desc,
	// starting after the cursor project. An unknown cursor is ignored.
	ListActive(ctx context.Context, userID, cursor string, limit int) ([]models.Project, error)
	// ListAll returns every project of the user including soft-deleted ones.
	ListAll(ctx context.Context, userID string) ([]models.Project, error)
	FindByShareID(ctx context.Context, shareID string) (*models.Project, error)
	// Stats returns the project count and the newest updatedAt.
	Stats(ctx context.Context, userID string) (count int64, lastUpdated int64, err error)
}

// HistoryRepository persists the append-only project audit trail.
type HistoryRepository interface {
	Append(ctx context.Context, h *models.ProjectHistory) error
	// Upsert writes an entry under its existing id, replacing any previous one.
	Upsert(ctx context.Context, h *models.ProjectHistory) error
	// ListByProject returns entries newest first.
	ListByProject(ctx context.Context, userID, projectID string) ([]models.ProjectHistory, error)
}

// VersionRepository persists version snapshots and their restore log.
type VersionRepository interface {
	Create(ctx context.Context, v *models.ProjectVersion) error
	Get(ctx context.Context, userID, projectID, versionID string) (*models.ProjectVersion, error)
	// List returns snapshots with the highest version number first.
	List(ctx context.Context, userID, projectID string, limit int) ([]models.ProjectVersion, error)
	MaxNumber(ctx context.Context, userID, projectID string) (int, error)
	Delete(ctx context.Context, userID, projectID, versionID string) error
	DeleteByProject(ctx context.Context, userID, projectID string) (int64, error)
	// DeleteOrphans removes snapshots whose project no longer exists.
	DeleteOrphans(ctx context.Context) (int64, error)
	AppendHistory(ctx context.Context, h *models.VersionHistory) error
	// ListHistory returns restore records newest first.
	ListHistory(ctx context.Context, userID, projectID, versionID string) ([]models.VersionHistory, error)
}

// Store groups the repositories behind one transactional boundary.
type Store interface {
	Projects() ProjectRepository
	History() HistoryRepository
	Versions() VersionRepository
	// Transaction runs fn against a store bound to one transaction. Returning an
	// error rolls every write back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
