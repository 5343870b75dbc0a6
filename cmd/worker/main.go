package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/logicflow/engine/internal/api/validators"
	"github.com/logicflow/engine/internal/queue/tasks"
	"github.com/logicflow/engine/internal/repository"
	"github.com/logicflow/engine/internal/services"
	"github.com/logicflow/engine/pkg/config"
	"github.com/logicflow/engine/pkg/database"
	"github.com/logicflow/engine/pkg/logger"
	"github.com/logicflow/engine/pkg/telemetry"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.RedisAddr == "" {
		log.Fatal("worker needs REDIS_ADDR")
	}
	if cfg.StoreDriver != config.StoreDriverPostgres {
		log.Fatal("worker needs the postgres store", zap.String("store", cfg.StoreDriver))
	}

	ctx := context.Background()
	shutdownTracing, err := telemetry.Setup(ctx, cfg.OtelServiceName+"-worker", cfg.OtelEnabled)
	if err != nil {
		log.Fatal("failed to set up tracing", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}

	db, err := database.OpenPostgres(ctx, log, database.Options{DSN: cfg.DatabaseURL})
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close(db)

	versionSvc := services.NewVersionService(repository.NewGormStore(db), validators.New(), nil)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.AsynqConcurrency,
		Queues:      map[string]int{tasks.QueueMaintenance: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.L().Error("task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})

	mux := asynq.NewServeMux()
	tasks.NewVersionTaskHandler(versionSvc).Register(mux)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: time.UTC})
	if cfg.OrphanSweepSpec != "" {
		entryID, err := scheduler.Register(cfg.OrphanSweepSpec, tasks.NewSweepTask())
		if err != nil {
			log.Fatal("invalid orphan sweep schedule", zap.String("spec", cfg.OrphanSweepSpec), zap.Error(err))
		}
		log.Info("orphan sweep scheduled", zap.String("spec", cfg.OrphanSweepSpec), zap.String("entry_id", entryID))
	}

	logger.L().Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
	if err := srv.Start(mux); err != nil {
		log.Fatal("worker start failed", zap.Error(err))
	}
	if err := scheduler.Start(); err != nil {
		log.Fatal("scheduler start failed", zap.Error(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.L().Info("shutdown signal received", zap.String("signal", sig.String()))

	scheduler.Shutdown()
	srv.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.L().Warn("tracer shutdown error", zap.Error(err))
	}
}
