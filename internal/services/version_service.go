package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/logicflow/engine/internal/models"
	"github.com/logicflow/engine/internal/repository"
	appErr "github.com/logicflow/engine/pkg/errors"
	"github.com/logicflow/engine/pkg/logger"
)

// VersionService manages immutable project snapshots.
type VersionService interface {
	Create(ctx context.Context, userID, projectID, description string) (*models.ProjectVersion, error)
	List(ctx context.Context, userID, projectID string, limit int) ([]models.ProjectVersion, error)
	Get(ctx context.Context, userID, projectID, versionID string) (*models.ProjectVersion, error)
	// Restore copies a snapshot's content into the live project.
	Restore(ctx context.Context, userID, projectID, versionID string) (*models.Project, error)
	Delete(ctx context.Context, userID, projectID, versionID string) error
	History(ctx context.Context, userID, projectID, versionID string) ([]models.VersionHistory, error)
	// PurgeProject removes all versions of a project; used by the deferred purge task.
	PurgeProject(ctx context.Context, userID, projectID string) (int64, error)
	// SweepOrphans removes versions whose project no longer exists.
	SweepOrphans(ctx context.Context) (int64, error)
}

type versionService struct {
	store    repository.Store
	validate StructValidator
	clock    Clock
}

// NewVersionService builds a VersionService over store.
func NewVersionService(store repository.Store, v StructValidator, clock Clock) VersionService {
	return &versionService{store: store, validate: v, clock: clock}
}

var _ VersionService = (*versionService)(nil)

func (s *versionService) Create(ctx context.Context, userID, projectID, description string) (*models.ProjectVersion, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(models.VersionInput{Description: description}); err != nil {
		return nil, err
	}

	var out *models.ProjectVersion
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		// The row lock serialises concurrent snapshots of one project.
		p, err := tx.Projects().GetForUpdate(ctx, userID, projectID)
		if err != nil {
			return err
		}
		max, err := tx.Versions().MaxNumber(ctx, userID, projectID)
		if err != nil {
			return err
		}
		number := max + 1
		desc := description
		if desc == "" {
			desc = fmt.Sprintf("Version %d", number)
		}
		now := s.clock.millis()

		v := &models.ProjectVersion{
			UserID:      userID,
			ProjectID:   projectID,
			ID:          newID(),
			Version:     number,
			Name:        p.Name,
			Code:        p.Code,
			Nodes:       append(datatypes.JSONSlice[models.Node]{}, p.Nodes...),
			Edges:       append(datatypes.JSONSlice[models.Edge]{}, p.Edges...),
			CreatedAt:   now,
			CreatedBy:   userID,
			Description: desc,
		}
		if err := tx.Versions().Create(ctx, v); err != nil {
			return err
		}
		out = v
		return tx.History().Append(ctx, &models.ProjectHistory{
			UserID:         userID,
			ProjectID:      projectID,
			ID:             newID(),
			Action:         models.ActionVersion,
			ChangedBy:      userID,
			ChangedAt:      now,
			PreviousValues: datatypes.JSONMap{"version": number},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.L().Info("version created",
		zap.String("project_id", projectID),
		zap.String("user_id", userID),
		zap.Int("version", out.Version))
	return out, nil
}

func (s *versionService) List(ctx context.Context, userID, projectID string, limit int) ([]models.ProjectVersion, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	limit, err := clampLimit(limit)
	if err != nil {
		return nil, err
	}
	out, err := s.store.Versions().List(ctx, userID, projectID, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.ProjectVersion{}
	}
	return out, nil
}

func (s *versionService) Get(ctx context.Context, userID, projectID, versionID string) (*models.ProjectVersion, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.store.Versions().Get(ctx, userID, projectID, versionID)
}

func (s *versionService) Restore(ctx context.Context, userID, projectID, versionID string) (*models.Project, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	logger.L().Info("restore version",
		zap.String("project_id", projectID),
		zap.String("version_id", versionID),
		zap.String("user_id", userID))

	var out *models.Project
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		p, err := tx.Projects().GetForUpdate(ctx, userID, projectID)
		if err != nil {
			return err
		}
		v, err := tx.Versions().Get(ctx, userID, projectID, versionID)
		if err != nil {
			return err
		}
		prev := p.Content()
		now := s.clock.millis()

		p.Name = v.Name
		p.Code = v.Code
		p.Nodes = append(datatypes.JSONSlice[models.Node]{}, v.Nodes...)
		p.Edges = append(datatypes.JSONSlice[models.Edge]{}, v.Edges...)
		p.UpdatedAt = now
		if err := tx.Projects().Save(ctx, p); err != nil {
			return err
		}

		if err := tx.History().Append(ctx, &models.ProjectHistory{
			UserID:         userID,
			ProjectID:      projectID,
			ID:             newID(),
			Action:         models.ActionRestore,
			ChangedBy:      userID,
			ChangedAt:      now,
			PreviousValues: datatypes.JSONMap(prev),
		}); err != nil {
			return err
		}
		out = p
		return tx.Versions().AppendHistory(ctx, &models.VersionHistory{
			UserID:     userID,
			ProjectID:  projectID,
			VersionID:  versionID,
			ID:         newID(),
			Action:     models.ActionRestore,
			RestoredBy: userID,
			RestoredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *versionService) Delete(ctx context.Context, userID, projectID, versionID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	logger.L().Info("delete version",
		zap.String("project_id", projectID),
		zap.String("version_id", versionID),
		zap.String("user_id", userID))
	return s.store.Versions().Delete(ctx, userID, projectID, versionID)
}

func (s *versionService) History(ctx context.Context, userID, projectID, versionID string) ([]models.VersionHistory, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	out, err := s.store.Versions().ListHistory(ctx, userID, projectID, versionID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.VersionHistory{}
	}
	return out, nil
}

func (s *versionService) PurgeProject(ctx context.Context, userID, projectID string) (int64, error) {
	var n int64
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		exists, err := tx.Projects().Exists(ctx, userID, projectID)
		if err != nil {
			return err
		}
		if exists {
			// Re-imported under the same id since the delete; its versions stay.
			return appErr.New(appErr.CodeInvalidState, "project exists again, purge skipped")
		}
		n, err = tx.Versions().DeleteByProject(ctx, userID, projectID)
		return err
	})
	return n, err
}

func (s *versionService) SweepOrphans(ctx context.Context) (int64, error) {
	return s.store.Versions().DeleteOrphans(ctx)
}
