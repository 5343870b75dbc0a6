package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/logicflow/engine/internal/models"
	appErr "github.com/logicflow/engine/pkg/errors"
)

type projectRepository struct {
	baseRepository[models.Project]
	db *gorm.DB
}

// NewProjectRepository returns the gorm-backed ProjectRepository.
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{baseRepository: newBaseRepository[models.Project](db, "project"), db: db}
}

func projectKey(userID, projectID string) map[string]any {
	return map[string]any{"user_id": userID, "id": projectID}
}

func (r *projectRepository) Create(ctx context.Context, p *models.Project) error {
	return r.create(ctx, p)
}

func (r *projectRepository) Get(ctx context.Context, userID, projectID string) (*models.Project, error) {
	return r.first(ctx, projectKey(userID, projectID), false)
}

func (r *projectRepository) GetForUpdate(ctx context.Context, userID, projectID string) (*models.Project, error) {
	return r.first(ctx, projectKey(userID, projectID), true)
}

func (r *projectRepository) Save(ctx context.Context, p *models.Project) error {
	return r.upsert(ctx, p)
}

func (r *projectRepository) Delete(ctx context.Context, userID, projectID string) error {
	n, err := r.deleteWhere(ctx, projectKey(userID, projectID))
	if err != nil {
		return err
	}
	if n == 0 {
		return appErr.New(appErr.CodeNotFound, "project not found")
	}
	return nil
}

func (r *projectRepository) Exists(ctx context.Context, userID, projectID string) (bool, error) {
	n, err := r.count(ctx, projectKey(userID, projectID))
	return n > 0, err
}

func (r *projectRepository) ListActive(ctx context.Context, userID, cursor string, limit int) ([]models.Project, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ? AND is_deleted = false", userID).
		Order("updated_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	if cursor != "" {
		var after models.Project
		err := r.db.WithContext(ctx).Where(projectKey(userID, cursor)).Take(&after).Error
		switch {
		case err == nil:
			q = q.Where("(updated_at < ? OR (updated_at = ? AND id < ?))", after.UpdatedAt, after.UpdatedAt, after.ID)
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return nil, r.translate(err, "get")
		}
	}

	var out []models.Project
	if err := q.Find(&out).Error; err != nil {
		return nil, r.translate(err, "list")
	}
	return out, nil
}

func (r *projectRepository) ListAll(ctx context.Context, userID string) ([]models.Project, error) {
	var out []models.Project
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, r.translate(err, "list")
	}
	return out, nil
}

func (r *projectRepository) FindByShareID(ctx context.Context, shareID string) (*models.Project, error) {
	return r.first(ctx, map[string]any{"share_id": shareID, "is_public": true, "is_deleted": false}, false)
}

func (r *projectRepository) Stats(ctx context.Context, userID string) (int64, int64, error) {
	var row struct {
		Count       int64
		LastUpdated int64
	}
	err := r.db.WithContext(ctx).Model(&models.Project{}).
		Select("COUNT(*) AS count, COALESCE(MAX(updated_at), 0) AS last_updated").
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, r.translate(err, "stats")
	}
	return row.Count, row.LastUpdated, nil
}
