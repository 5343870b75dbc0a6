package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/logicflow/engine/internal/ai"
	"github.com/logicflow/engine/internal/api"
	"github.com/logicflow/engine/internal/api/handlers"
	mw "github.com/logicflow/engine/internal/api/middleware"
	"github.com/logicflow/engine/internal/api/validators"
	"github.com/logicflow/engine/internal/queue/tasks"
	"github.com/logicflow/engine/internal/ratelimit"
	"github.com/logicflow/engine/internal/repository"
	"github.com/logicflow/engine/internal/repository/memory"
	"github.com/logicflow/engine/internal/services"
	"github.com/logicflow/engine/pkg/config"
	"github.com/logicflow/engine/pkg/database"
	"github.com/logicflow/engine/pkg/logger"
	"github.com/logicflow/engine/pkg/telemetry"

	_ "github.com/logicflow/engine/docs"
)

// @title           Logic Flow Engine API
// @version         1.0
// @description     Flowchart projects with versions, audit history, backups and AI-assisted code conversion.

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg := config.MustLoad()

	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("starting logic flow engine",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
		zap.String("store", cfg.StoreDriver),
		zap.String("purge_policy", cfg.VersionPurgePolicy),
	)

	ctx := context.Background()
	shutdownTracing, err := telemetry.Setup(ctx, cfg.OtelServiceName, cfg.OtelEnabled)
	if err != nil {
		log.Fatal("failed to set up tracing", zap.Error(err))
	}

	store, health, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		health["redis"] = redisPinger{rdb}
	}

	v := validators.New()

	opts := services.ProjectServiceOptions{
		PublicBaseURL: cfg.PublicBaseURL,
		PurgePolicy:   cfg.VersionPurgePolicy,
	}
	if cfg.VersionPurgePolicy == config.PurgeDeferred {
		if cfg.RedisAddr == "" {
			log.Fatal("deferred version purge needs REDIS_ADDR")
		}
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer client.Close()
		opts.Purger = tasks.NewPurgeEnqueuer(client)
	}

	projectSvc := services.NewProjectService(store, v, opts)
	versionSvc := services.NewVersionService(store, v, nil)
	backupSvc, err := services.NewBackupService(store, nil)
	if err != nil {
		log.Fatal("failed to build backup service", zap.Error(err))
	}

	aiLimiter, shareLimiter, stopLimiters := newLimiters(cfg, rdb, log)
	defer stopLimiters()

	throttle := mw.NewIPThrottle(cfg.GlobalRPS, cfg.GlobalBurst)
	stopEvict := evictLoop(throttle, 5*time.Minute)
	defer stopEvict()

	router := api.NewRouter(api.Dependencies{
		HMACSecret:      []byte(cfg.JWTSecret),
		ProjectsHandler: handlers.NewProjectsHandler(projectSvc, v),
		VersionsHandler: handlers.NewVersionsHandler(versionSvc),
		BackupHandler:   handlers.NewBackupHandler(backupSvc),
		ShareHandler:    handlers.NewShareHandler(projectSvc),
		AIHandler:       handlers.NewAIHandler(ai.NewGateway(newGenerator(ctx, cfg, log), cfg.GeminiModels, v)),
		TraceHandler:    handlers.NewTraceHandler(v),
		HealthHandler:   handlers.NewHealthHandler(health),
		Throttle:        throttle,
		AILimiter:       aiLimiter,
		ShareLimiter:    shareLimiter,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracer shutdown error", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, map[string]handlers.Pinger, func()) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("using in-memory store, data is lost on restart")
		s := memory.New()
		return s, map[string]handlers.Pinger{"store": s}, func() {}
	}

	db, err := database.OpenPostgres(ctx, log, database.Options{
		DSN:     cfg.DatabaseURL,
		Verbose: cfg.LogLevel == "debug",
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	log.Info("database connected")

	s := repository.NewGormStore(db)
	return s, map[string]handlers.Pinger{"store": s}, func() {
		if err := database.Close(db); err != nil {
			log.Warn("database close error", zap.Error(err))
		}
	}
}

func newLimiters(cfg *config.Config, rdb *redis.Client, log *zap.Logger) (ratelimit.Limiter, ratelimit.Limiter, func()) {
	if cfg.RateLimitBackend == "redis" {
		if rdb == nil {
			log.Fatal("redis rate limiting needs REDIS_ADDR")
		}
		return ratelimit.NewRedisLimiter(rdb, "rl:ai:", cfg.AIRateLimit, cfg.RateLimitWindow),
			ratelimit.NewRedisLimiter(rdb, "rl:share:", cfg.ShareRateLimit, cfg.RateLimitWindow),
			func() {}
	}

	aiL := ratelimit.NewMemoryLimiter(cfg.AIRateLimit, cfg.RateLimitWindow)
	shareL := ratelimit.NewMemoryLimiter(cfg.ShareRateLimit, cfg.RateLimitWindow)
	aiL.Start(time.Minute)
	shareL.Start(time.Minute)
	return aiL, shareL, func() {
		aiL.Stop()
		shareL.Stop()
	}
}

func newGenerator(ctx context.Context, cfg *config.Config, log *zap.Logger) ai.Generator {
	if len(cfg.GeminiAPIKeys) == 0 {
		log.Warn("GEMINI_API_KEYS not set, AI routes will answer 503")
		return ai.Disabled{}
	}
	g, err := ai.NewGemini(ctx, cfg.GeminiAPIKeys)
	if err != nil {
		log.Fatal("failed to create gemini client", zap.Error(err))
	}
	log.Info("gemini client ready", zap.Int("keys", len(cfg.GeminiAPIKeys)), zap.Strings("models", cfg.GeminiModels))
	return g
}

func evictLoop(t *mw.IPThrottle, idle time.Duration) func() {
	ticker := time.NewTicker(idle)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				if n := t.Evict(idle); n > 0 {
					logger.L().Debug("evicted idle throttle buckets", zap.Int("count", n))
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}

type redisPinger struct{ rdb *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }
