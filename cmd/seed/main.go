package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/seed"
	"github.com/pageza/foodgram/backend/migrations"
)

func main() {
	app := &cli.App{
		Name:  "foodgram-seed",
		Usage: "load ingredients, tags and users from JSON files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "data",
				Usage:   "directory holding ingredients.json, tags.json and users.json",
				EnvVars: []string{"SEED_DIR"},
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return err
	}
	if err := database.RunMigrations(db, migrations.FS, logger); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	res, err := seed.Load(c.Context, db, c.String("dir"), logger)
	if err != nil {
		return err
	}
	logger.Info("seed complete",
		zap.Int64("ingredients", res.Ingredients),
		zap.Int64("tags", res.Tags),
		zap.Int64("users", res.Users),
	)
	return nil
}
