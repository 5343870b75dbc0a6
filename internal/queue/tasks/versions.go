package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/logicflow/engine/internal/services"
	appErr "github.com/logicflow/engine/pkg/errors"
	"github.com/logicflow/engine/pkg/logger"
)

const (
	TypePurgeVersions = "project:purge_versions"
	TypeSweepOrphans  = "versions:sweep_orphans"

	// QueueMaintenance carries housekeeping work only.
	QueueMaintenance = "maintenance"
)

// PurgePayload is the task payload for a deferred version purge.
type PurgePayload struct {
	UserID    string `json:"userId"`
	ProjectID string `json:"projectId"`
}

// NewPurgeTask builds a purge task for one hard-deleted project.
func NewPurgeTask(userID, projectID string) (*asynq.Task, error) {
	b, err := json.Marshal(PurgePayload{UserID: userID, ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePurgeVersions, b,
		asynq.Queue(QueueMaintenance),
		asynq.MaxRetry(5),
		asynq.Timeout(2*time.Minute),
		asynq.TaskID(fmt.Sprintf("purge:%s:%s", userID, projectID)),
	), nil
}

// NewSweepTask builds the periodic orphan sweep task.
func NewSweepTask() *asynq.Task {
	return asynq.NewTask(TypeSweepOrphans, nil,
		asynq.Queue(QueueMaintenance),
		asynq.MaxRetry(1),
		asynq.Timeout(10*time.Minute),
	)
}

// Enqueuer is the part of *asynq.Client the purge enqueuer needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// PurgeEnqueuer schedules version purges on the task queue.
type PurgeEnqueuer struct {
	client Enqueuer
}

func NewPurgeEnqueuer(client Enqueuer) *PurgeEnqueuer {
	return &PurgeEnqueuer{client: client}
}

var _ services.VersionPurger = (*PurgeEnqueuer)(nil)

func (e *PurgeEnqueuer) EnqueueVersionPurge(ctx context.Context, userID, projectID string) error {
	task, err := NewPurgeTask(userID, projectID)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "encode purge task failed")
	}
	info, err := e.client.EnqueueContext(ctx, task)
	switch {
	case err == nil:
		logger.L().Info("version purge enqueued",
			zap.String("task_id", info.ID),
			zap.String("user_id", userID),
			zap.String("project_id", projectID))
		return nil
	case isDuplicate(err):
		return nil
	default:
		return appErr.Wrap(err, appErr.CodeUnavailable, "enqueue purge task failed")
	}
}

func isDuplicate(err error) bool {
	return errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask)
}

// VersionTaskHandler runs the version housekeeping tasks.
type VersionTaskHandler struct {
	versions services.VersionService
}

func NewVersionTaskHandler(versions services.VersionService) *VersionTaskHandler {
	return &VersionTaskHandler{versions: versions}
}

// Register mounts the handlers on mux.
func (h *VersionTaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypePurgeVersions, h.HandlePurge)
	mux.HandleFunc(TypeSweepOrphans, h.HandleSweep)
}

func (h *VersionTaskHandler) HandlePurge(ctx context.Context, t *asynq.Task) error {
	var p PurgePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid purge task payload", zap.Error(err))
		return fmt.Errorf("decode purge payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.UserID == "" || p.ProjectID == "" {
		logger.L().Error("purge task missing ids", zap.String("user_id", p.UserID), zap.String("project_id", p.ProjectID))
		return fmt.Errorf("purge payload missing ids: %w", asynq.SkipRetry)
	}

	n, err := h.versions.PurgeProject(ctx, p.UserID, p.ProjectID)
	if appErr.IsCode(err, appErr.CodeInvalidState) {
		logger.L().Info("purge skipped, project exists again",
			zap.String("user_id", p.UserID), zap.String("project_id", p.ProjectID))
		return nil
	}
	if err != nil {
		logger.L().Error("version purge failed",
			zap.String("user_id", p.UserID), zap.String("project_id", p.ProjectID), zap.Error(err))
		return err
	}
	logger.L().Info("versions purged",
		zap.String("user_id", p.UserID), zap.String("project_id", p.ProjectID), zap.Int64("removed", n))
	return nil
}

func (h *VersionTaskHandler) HandleSweep(ctx context.Context, _ *asynq.Task) error {
	n, err := h.versions.SweepOrphans(ctx)
	if err != nil {
		logger.L().Error("orphan sweep failed", zap.Error(err))
		return err
	}
	logger.L().Info("orphan sweep completed", zap.Int64("removed", n))
	return nil
}
