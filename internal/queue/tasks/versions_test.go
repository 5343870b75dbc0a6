package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/logicflow/engine/internal/services"
	appErr "github.com/logicflow/engine/pkg/errors"
	"github.com/logicflow/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

// mockVersionService stubs the housekeeping methods; the rest panic if reached.
type mockVersionService struct {
	services.VersionService
	mock.Mock
}

func (m *mockVersionService) PurgeProject(ctx context.Context, userID, projectID string) (int64, error) {
	args := m.Called(ctx, userID, projectID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockVersionService) SweepOrphans(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	if v := args.Get(0); v != nil {
		return v.(*asynq.TaskInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func purgeTask(t *testing.T, userID, projectID string) *asynq.Task {
	t.Helper()
	task, err := NewPurgeTask(userID, projectID)
	require.NoError(t, err)
	return task
}

func TestHandlePurge(t *testing.T) {
	svc := &mockVersionService{}
	h := NewVersionTaskHandler(svc)
	ctx := context.Background()

	svc.On("PurgeProject", ctx, "u1", "p1").Return(int64(3), nil).Once()
	require.NoError(t, h.HandlePurge(ctx, purgeTask(t, "u1", "p1")))
	svc.AssertExpectations(t)
}

func TestHandlePurgeSkipsRecreatedProject(t *testing.T) {
	svc := &mockVersionService{}
	h := NewVersionTaskHandler(svc)
	ctx := context.Background()

	svc.On("PurgeProject", ctx, "u1", "p1").
		Return(int64(0), appErr.New(appErr.CodeInvalidState, "project exists again")).Once()
	require.NoError(t, h.HandlePurge(ctx, purgeTask(t, "u1", "p1")))
}

func TestHandlePurgeRetriesStoreErrors(t *testing.T) {
	svc := &mockVersionService{}
	h := NewVersionTaskHandler(svc)
	ctx := context.Background()

	boom := appErr.New(appErr.CodeUnavailable, "db down")
	svc.On("PurgeProject", ctx, "u1", "p1").Return(int64(0), boom).Once()
	err := h.HandlePurge(ctx, purgeTask(t, "u1", "p1"))
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandlePurgeBadPayload(t *testing.T) {
	h := NewVersionTaskHandler(&mockVersionService{})

	err := h.HandlePurge(context.Background(), asynq.NewTask(TypePurgeVersions, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	empty, _ := json.Marshal(PurgePayload{UserID: "u1"})
	err = h.HandlePurge(context.Background(), asynq.NewTask(TypePurgeVersions, empty))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleSweep(t *testing.T) {
	svc := &mockVersionService{}
	h := NewVersionTaskHandler(svc)
	ctx := context.Background()

	svc.On("SweepOrphans", ctx).Return(int64(2), nil).Once()
	require.NoError(t, h.HandleSweep(ctx, NewSweepTask()))

	svc.On("SweepOrphans", ctx).Return(int64(0), errors.New("db down")).Once()
	require.Error(t, h.HandleSweep(ctx, NewSweepTask()))
	svc.AssertExpectations(t)
}

func TestRegisterRoutesTaskTypes(t *testing.T) {
	svc := &mockVersionService{}
	mux := asynq.NewServeMux()
	NewVersionTaskHandler(svc).Register(mux)
	ctx := context.Background()

	svc.On("SweepOrphans", ctx).Return(int64(0), nil).Once()
	require.NoError(t, mux.ProcessTask(ctx, NewSweepTask()))
	svc.AssertExpectations(t)
}

func TestPurgeEnqueuer(t *testing.T) {
	ctx := context.Background()

	t.Run("enqueues on the maintenance queue", func(t *testing.T) {
		client := &mockEnqueuer{}
		client.On("EnqueueContext", ctx, mock.MatchedBy(func(task *asynq.Task) bool {
			var p PurgePayload
			return task.Type() == TypePurgeVersions &&
				json.Unmarshal(task.Payload(), &p) == nil &&
				p == PurgePayload{UserID: "u1", ProjectID: "p1"}
		})).Return(&asynq.TaskInfo{ID: "purge:u1:p1", Queue: QueueMaintenance}, nil).Once()

		require.NoError(t, NewPurgeEnqueuer(client).EnqueueVersionPurge(ctx, "u1", "p1"))
		client.AssertExpectations(t)
	})

	t.Run("duplicate purge is not an error", func(t *testing.T) {
		client := &mockEnqueuer{}
		client.On("EnqueueContext", ctx, mock.Anything).Return(nil, asynq.ErrTaskIDConflict).Once()
		require.NoError(t, NewPurgeEnqueuer(client).EnqueueVersionPurge(ctx, "u1", "p1"))
	})

	t.Run("broker failure is unavailable", func(t *testing.T) {
		client := &mockEnqueuer{}
		client.On("EnqueueContext", ctx, mock.Anything).Return(nil, errors.New("dial tcp: refused")).Once()
		err := NewPurgeEnqueuer(client).EnqueueVersionPurge(ctx, "u1", "p1")
		require.True(t, appErr.IsCode(err, appErr.CodeUnavailable))
	})
}
