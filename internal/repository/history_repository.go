package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/logicflow/engine/internal/models"
)

type historyRepository struct {
	baseRepository[models.ProjectHistory]
	db *gorm.DB
}

// NewHistoryRepository returns the gorm-backed HistoryRepository.
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{baseRepository: newBaseRepository[models.ProjectHistory](db, "history entry"), db: db}
}

func (r *historyRepository) Append(ctx context.Context, h *models.ProjectHistory) error {
	return r.create(ctx, h)
}

func (r *historyRepository) Upsert(ctx context.Context, h *models.ProjectHistory) error {
	return r.upsert(ctx, h)
}

func (r *historyRepository) ListByProject(ctx context.Context, userID, projectID string) ([]models.ProjectHistory, error) {
	var out []models.ProjectHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		Order("changed_at DESC").Order("seq DESC").
		Find(&out).Error
	if err != nil {
		return nil, r.translate(err, "list")
	}
	return out, nil
}
