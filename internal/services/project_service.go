package services

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/logicflow/engine/internal/models"
	"github.com/logicflow/engine/internal/repository"
	"github.com/logicflow/engine/pkg/config"
	appErr "github.com/logicflow/engine/pkg/errors"
	"github.com/logicflow/engine/pkg/logger"
	"github.com/logicflow/engine/pkg/utils"
)

// ProjectService owns the project lifecycle and its audit trail. Every write
// and its history entry commit together.
type ProjectService interface {
	Create(ctx context.Context, userID string, input *models.ProjectInput) (*models.Project, error)
	Get(ctx context.Context, userID, projectID string) (*models.Project, error)
	Update(ctx context.Context, userID, projectID string, input *models.ProjectUpdate) (*models.Project, error)
	SoftDelete(ctx context.Context, userID, projectID string) error
	HardDelete(ctx context.Context, userID, projectID string) error
	Restore(ctx context.Context, userID, projectID string) (*models.Project, error)
	Share(ctx context.Context, userID, projectID string) (*models.ShareResult, error)
	Unshare(ctx context.Context, userID, projectID string) error
	GetShared(ctx context.Context, shareID string) (*models.SharedProject, error)
	List(ctx context.Context, userID, cursor string, limit int) (*models.ProjectPage, error)
	History(ctx context.Context, userID, projectID string) ([]models.ProjectHistory, error)
}

// ProjectServiceOptions configures NewProjectService.
type ProjectServiceOptions struct {
	PublicBaseURL string
	// PurgePolicy is one of config.PurgeCascade, PurgeDeferred, PurgeRetain.
	PurgePolicy string
	// Purger is required for the deferred policy.
	Purger VersionPurger
	Clock  Clock
}

type projectService struct {
	store    repository.Store
	validate StructValidator
	opts     ProjectServiceOptions
}

// NewProjectService builds a ProjectService over store.
func NewProjectService(store repository.Store, v StructValidator, opts ProjectServiceOptions) ProjectService {
	if opts.PurgePolicy == "" {
		opts.PurgePolicy = config.PurgeCascade
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	return &projectService{store: store, validate: v, opts: opts}
}

var _ ProjectService = (*projectService)(nil)

func (s *projectService) history(p *models.Project, action models.HistoryAction, at int64, prev map[string]any) *models.ProjectHistory {
	return &models.ProjectHistory{
		UserID:         p.UserID,
		ProjectID:      p.ID,
		ID:             newID(),
		Action:         action,
		ChangedBy:      p.UserID,
		ChangedAt:      at,
		PreviousValues: datatypes.JSONMap(prev),
	}
}

func (s *projectService) Create(ctx context.Context, userID string, input *models.ProjectInput) (*models.Project, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if input == nil {
		return nil, appErr.New(appErr.CodeInvalid, "missing project")
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	logger.L().Info("create project", zap.String("user_id", userID), zap.String("name", input.Name))

	now := s.opts.Clock.millis()
	p := &models.Project{
		UserID:    userID,
		ID:        newID(),
		Name:      input.Name,
		Code:      *input.Code,
		Nodes:     datatypes.JSONSlice[models.Node](input.Nodes),
		Edges:     datatypes.JSONSlice[models.Edge](input.Edges),
		UpdatedAt: now,
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Projects().Create(ctx, p); err != nil {
			return err
		}
		return tx.History().Append(ctx, s.history(p, models.ActionCreate, now, nil))
	})
	if err != nil {
		return nil, err
	}

	logger.L().Info("project created", zap.String("project_id", p.ID), zap.String("user_id", userID))
	return p, nil
}

func (s *projectService) Get(ctx context.Context, userID, projectID string) (*models.Project, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := requireProjectID(projectID); err != nil {
		return nil, err
	}
	return s.store.Projects().Get(ctx, userID, projectID)
}

func (s *projectService) Update(ctx context.Context, userID, projectID string, input *models.ProjectUpdate) (*models.Project, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if input == nil {
		input = &models.ProjectUpdate{}
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	logger.L().Info("update project", zap.String("project_id", projectID), zap.String("user_id", userID))

	var out *models.Project
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		p, err := tx.Projects().GetForUpdate(ctx, userID, projectID)
		if err != nil {
			return err
		}
		prev := p.Snapshot()

		if input.Name != nil {
			p.Name = *input.Name
		}
		if input.Code != nil {
			p.Code = *input.Code
		}
		if input.Nodes != nil {
			p.Nodes = datatypes.JSONSlice[models.Node](*input.Nodes)
		}
		if input.Edges != nil {
			p.Edges = datatypes.JSONSlice[models.Edge](*input.Edges)
		}
		p.UpdatedAt = s.opts.Clock.millis()

		if err := tx.Projects().Save(ctx, p); err != nil {
			return err
		}
		out = p
		return tx.History().Append(ctx, s.history(p, models.ActionUpdate, p.UpdatedAt, prev))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *projectService) SoftDelete(ctx context.Context, userID, projectID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	logger.L().Info("soft delete project", zap.String("project_id", projectID), zap.String("user_id", userID))

	return s.store.Transaction(ctx, func(tx repository.Store) error {
		p, err := tx.Projects().GetForUpdate(ctx, userID, projectID)
		if err != nil {
			return err
		}
		prev := p.Snapshot()
		now := s.opts.Clock.millis()
		p.IsDeleted = true
		p.DeletedAt = &now
		if err := tx.Projects().Save(ctx, p); err != nil {
			return err
		}
		return tx.History().Append(ctx, s.history(p, models.ActionDelete, now, prev))
	})
}

func (s *projectService) HardDelete(ctx context.Context, userID, projectID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	logger.L().Info("hard delete project",
		zap.String("project_id", projectID),
		zap.String("user_id", userID),
		zap.String("purge_policy", s.opts.PurgePolicy))

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		p, err := tx.Projects().GetForUpdate(ctx, userID, projectID)
		if err != nil {
			return err
		}
		if err := tx.History().Append(ctx, s.history(p, models.ActionDelete, s.opts.Clock.millis(), p.Snapshot())); err != nil {
			return err
		}
		if err := tx.Projects().Delete(ctx, userID, projectID); err != nil {
			return err
		}
		if s.opts.PurgePolicy == config.PurgeCascade {
			n, err := tx.Versions().DeleteByProject(ctx, userID, projectID)
			if err != nil {
				return err
			}
			logger.L().Debug("versions purged with project", zap.String("project_id", projectID), zap.Int64("count", n))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.opts.PurgePolicy == config.PurgeDeferred && s.opts.Purger != nil {
		// The orphan sweep catches anything a failed enqueue leaves behind.
		if err := s.opts.Purger.EnqueueVersionPurge(ctx, userID, projectID); err != nil {
			logger.L().Warn("enqueue version purge failed", zap.String("project_id", projectID), zap.Error(err))
		}
	}
	return nil
}

func (s *projectService) Restore(ctx context.Context, userID, projectID string) (*models.Project, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	logger.L().Info("restore project", zap.String("project_id", projectID), zap.String("user_id", userID))

	var out *models.Project
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		p, err := tx.Projects().GetForUpdate(ctx, userID, projectID)
		if err != nil {
			return err
		}
		if !p.IsDeleted {
			return appErr.New(appErr.CodeInvalidState, "project is not deleted")
		}
		prev := p.Snapshot()
		p.IsDeleted = false
		p.DeletedAt = nil
		if err := tx.Projects().Save(ctx, p); err != nil {
			return err
		}
		out = p
		return tx.History().Append(ctx, s.history(p, models.ActionRestore, s.opts.Clock.millis(), prev))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *projectService) shareURL(token string) string {
	return s.opts.PublicBaseURL + "/share/" + token
}

func (s *projectService) Share(ctx context.Context, userID, projectID string) (*models.ShareResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	var token string
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		p, err := tx.Projects().GetForUpdate(ctx, userID, projectID)
		if err != nil {
			return err
		}
		if p.IsDeleted {
			return appErr.New(appErr.CodeInvalidState, "cannot share a deleted project")
		}
		if p.IsPublic && p.ShareID != nil {
			token = *p.ShareID
			return nil
		}

		prev := p.ShareState()
		token, err = utils.RandomToken(16)
		if err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "generate share token failed")
		}
		now := s.opts.Clock.millis()
		p.ShareID = &token
		p.IsPublic = true
		p.SharedBy = &userID
		p.SharedAt = &now
		if err := tx.Projects().Save(ctx, p); err != nil {
			return err
		}
		return tx.History().Append(ctx, s.history(p, models.ActionUpdate, now, prev))
	})
	if err != nil {
		return nil, err
	}

	logger.L().Info("project shared", zap.String("project_id", projectID), zap.String("user_id", userID))
	return &models.ShareResult{ShareID: token, URL: s.shareURL(token)}, nil
}

func (s *projectService) Unshare(ctx context.Context, userID, projectID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	return s.store.Transaction(ctx, func(tx repository.Store) error {
		p, err := tx.Projects().GetForUpdate(ctx, userID, projectID)
		if err != nil {
			return err
		}
		if !p.IsPublic && p.ShareID == nil {
			return nil
		}
		prev := p.ShareState()
		p.ShareID = nil
		p.IsPublic = false
		p.SharedBy = nil
		p.SharedAt = nil
		if err := tx.Projects().Save(ctx, p); err != nil {
			return err
		}
		logger.L().Info("project unshared", zap.String("project_id", projectID), zap.String("user_id", userID))
		return tx.History().Append(ctx, s.history(p, models.ActionUpdate, s.opts.Clock.millis(), prev))
	})
}

func (s *projectService) GetShared(ctx context.Context, shareID string) (*models.SharedProject, error) {
	if shareID == "" {
		return nil, appErr.New(appErr.CodeBadRequest, "missing share id")
	}
	p, err := s.store.Projects().FindByShareID(ctx, shareID)
	if err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.New(appErr.CodeNotFound, "shared project not found")
		}
		return nil, err
	}
	v := p.PublicView()
	return &v, nil
}

func (s *projectService) List(ctx context.Context, userID, cursor string, limit int) (*models.ProjectPage, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	limit, err := clampLimit(limit)
	if err != nil {
		return nil, err
	}

	items, err := s.store.Projects().ListActive(ctx, userID, cursor, limit)
	if err != nil {
		return nil, err
	}
	page := &models.ProjectPage{Projects: items}
	if page.Projects == nil {
		page.Projects = []models.Project{}
	}
	if len(items) == limit {
		next := items[len(items)-1].ID
		page.NextCursor = &next
	}
	return page, nil
}

func (s *projectService) History(ctx context.Context, userID, projectID string) ([]models.ProjectHistory, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := requireProjectID(projectID); err != nil {
		return nil, err
	}
	out, err := s.store.History().ListByProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.ProjectHistory{}
	}
	return out, nil
}
