package main

import (
	"database/sql"
	"errors"
	"flag"
	"log"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/migrations"
)

func main() {
	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		log.Fatalf("migrations target postgres, configured driver is %q", cfg.Database.Driver)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	sqlDB, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}

	if *rollback {
		name, err := database.Rollback(db, migrations.FS, logger)
		if errors.Is(err, database.ErrNoMigrations) {
			logger.Info("no migrations to rollback")
			return
		}
		if err != nil {
			logger.Fatal("rollback failed", zap.Error(err))
		}
		logger.Info("rollback complete", zap.String("migration", name))
		return
	}

	if err := database.RunMigrations(db, migrations.FS, logger); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	logger.Info("migrations complete")
}
