package cmd

import (
	"context"
	"fmt"

	"mrbox/core/catalogue"
	"mrbox/core/config"
	"mrbox/core/database"
	"mrbox/core/logger"
	"mrbox/core/remote"
	"mrbox/core/storage"
	"mrbox/core/workspace"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// env is everything a command needs to work on the synced tree.
type env struct {
	cfg  *config.Config
	logg *zap.Logger
	db   *gorm.DB
	ws   *workspace.Workspace
}

// bootstrapLocal loads config and logger and opens the catalogue. The
// workspace it returns has no remote store.
func bootstrapLocal(ctx context.Context) (*env, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	zap.ReplaceGlobals(logg)

	dbCfg, err := cfg.Database.ResolvePath(cfg.Sync.LocalPath)
	if err != nil {
		return nil, err
	}
	db, err := database.Connect(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect catalogue database: %w", err)
	}

	cat, err := catalogue.Open(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalogue: %w", err)
	}

	ws, err := workspace.New(cfg.Sync, afero.NewOsFs(), nil, cat)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logg: logg, db: db, ws: ws}, nil
}

// bootstrap is bootstrapLocal plus the MinIO-backed remote store. Both roots
// are created when missing.
func bootstrap(ctx context.Context) (*env, error) {
	e, err := bootstrapLocal(ctx)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(e.cfg.Storage)
	if err != nil {
		e.close()
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	if err := ensureBucket(ctx, client, e.cfg.Storage); err != nil {
		e.close()
		return nil, err
	}

	e.ws.Remote = remote.NewMinioStore(client, e.cfg.Storage.Bucket, e.ws.FS)
	if err := e.ws.Ensure(ctx); err != nil {
		e.close()
		return nil, fmt.Errorf("failed to prepare workspace: %w", err)
	}

	e.logg.Info("Workspace ready",
		zap.String("local", e.ws.LocalRoot),
		zap.String("remote", e.ws.RemoteRoot),
		zap.String("bucket", e.cfg.Storage.Bucket),
		zap.Int64("threshold_bytes", e.ws.Threshold),
	)
	return e, nil
}

func ensureBucket(ctx context.Context, client storage.Client, cfg storage.Config) error {
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if exists {
		return nil
	}
	if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
	}
	return nil
}

func (e *env) close() {
	if sqlDB, err := e.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			e.logg.Warn("Failed to close catalogue database", zap.Error(err))
		}
	}
	_ = e.logg.Sync()
}
