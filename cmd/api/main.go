package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/pdf"
	"github.com/pageza/foodgram/backend/internal/server"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/migrations"
)

func main() {
	app := &cli.App{
		Name:  "foodgram-api",
		Usage: "recipe sharing API",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start http server",
				Action: func(c *cli.Context) error {
					return serve(c.Context)
				},
			},
		},
		DefaultCommand: "serve",
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
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
	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db, migrations.FS, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		if rdb, err = database.NewRedisClient(ctx, cfg.Redis, logger); err != nil {
			logger.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
			rdb = nil
		} else {
			defer func() { _ = rdb.Close() }()
		}
	}

	images, err := newImageStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	srv := server.New(server.Deps{
		Config:   cfg,
		DB:       db,
		Redis:    rdb,
		Logger:   logger,
		Images:   images,
		Renderer: pdf.NewRenderer(cfg.PDF.FontPath, logger),
	})
	return srv.Run(ctx)
}

func newImageStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.ImageStore, error) {
	if cfg.S3.Bucket == "" {
		logger.Info("storing images on disk", zap.String("root", cfg.Media.Root))
		return service.NewLocalImageStore(cfg.Media.Root, cfg.Media.URL)
	}

	s3cfg, err := config.NewS3Config(ctx, cfg.S3)
	if err != nil {
		return nil, err
	}
	if cfg.S3.PublicRead {
		if err := s3cfg.SetupBucketPolicy(ctx); err != nil {
			logger.Warn("failed to apply bucket policy", zap.Error(err))
		}
	}
	logger.Info("storing images in s3", zap.String("bucket", s3cfg.BucketName))
	return service.NewS3ImageStore(s3cfg.Client, s3cfg.BucketName, s3cfg.ObjectURL, logger), nil
}
