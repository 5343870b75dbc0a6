package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/logicflow/engine/pkg/config"
	"github.com/logicflow/engine/pkg/database"
	"github.com/logicflow/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.StoreDriver != config.StoreDriverPostgres {
		log.Fatal("nothing to migrate for this store", zap.String("store", cfg.StoreDriver))
	}

	db, err := database.OpenPostgres(context.Background(), log, database.Options{DSN: cfg.DatabaseURL, Verbose: true})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if err := runMigrations(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	fmt.Fprintln(os.Stdout, "migrations completed")
}
