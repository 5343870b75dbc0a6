package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/logicflow/engine/internal/models"
	appErr "github.com/logicflow/engine/pkg/errors"
)

type versionRepository struct {
	baseRepository[models.ProjectVersion]
	history baseRepository[models.VersionHistory]
	db      *gorm.DB
}

// NewVersionRepository returns the gorm-backed VersionRepository.
func NewVersionRepository(db *gorm.DB) VersionRepository {
	return &versionRepository{
		baseRepository: newBaseRepository[models.ProjectVersion](db, "version"),
		history:        newBaseRepository[models.VersionHistory](db, "version history entry"),
		db:             db,
	}
}

func versionKey(userID, projectID, versionID string) map[string]any {
	return map[string]any{"user_id": userID, "project_id": projectID, "id": versionID}
}

func (r *versionRepository) Create(ctx context.Context, v *models.ProjectVersion) error {
	return r.create(ctx, v)
}

func (r *versionRepository) Get(ctx context.Context, userID, projectID, versionID string) (*models.ProjectVersion, error) {
	return r.first(ctx, versionKey(userID, projectID, versionID), false)
}

func (r *versionRepository) List(ctx context.Context, userID, projectID string, limit int) ([]models.ProjectVersion, error) {
	var out []models.ProjectVersion
	q := r.db.WithContext(ctx).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		Order("version DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, r.translate(err, "list")
	}
	return out, nil
}

func (r *versionRepository) MaxNumber(ctx context.Context, userID, projectID string) (int, error) {
	var max int
	err := r.db.WithContext(ctx).Model(&models.ProjectVersion{}).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, r.translate(err, "max")
	}
	return max, nil
}

func (r *versionRepository) Delete(ctx context.Context, userID, projectID, versionID string) error {
	n, err := r.deleteWhere(ctx, versionKey(userID, projectID, versionID))
	if err != nil {
		return err
	}
	if n == 0 {
		return appErr.New(appErr.CodeNotFound, "version not found")
	}
	_, err = r.history.deleteWhere(ctx, map[string]any{"user_id": userID, "project_id": projectID, "version_id": versionID})
	return err
}

func (r *versionRepository) DeleteByProject(ctx context.Context, userID, projectID string) (int64, error) {
	n, err := r.deleteWhere(ctx, map[string]any{"user_id": userID, "project_id": projectID})
	if err != nil {
		return 0, err
	}
	if _, err := r.history.deleteWhere(ctx, map[string]any{"user_id": userID, "project_id": projectID}); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *versionRepository) DeleteOrphans(ctx context.Context) (int64, error) {
	orphaned := "NOT EXISTS (SELECT 1 FROM projects p WHERE p.user_id = %s.user_id AND p.id = %s.project_id)"

	res := r.db.WithContext(ctx).
		Where(fmt.Sprintf(orphaned, "project_versions", "project_versions")).
		Delete(&models.ProjectVersion{})
	if res.Error != nil {
		return 0, r.translate(res.Error, "delete orphaned")
	}
	if err := r.db.WithContext(ctx).
		Where(fmt.Sprintf(orphaned, "version_history", "version_history")).
		Delete(&models.VersionHistory{}).Error; err != nil {
		return 0, r.history.translate(err, "delete orphaned")
	}
	return res.RowsAffected, nil
}

func (r *versionRepository) AppendHistory(ctx context.Context, h *models.VersionHistory) error {
	return r.history.create(ctx, h)
}

func (r *versionRepository) ListHistory(ctx context.Context, userID, projectID, versionID string) ([]models.VersionHistory, error) {
	var out []models.VersionHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND project_id = ? AND version_id = ?", userID, projectID, versionID).
		Order("restored_at DESC").Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, r.history.translate(err, "list")
	}
	return out, nil
}
