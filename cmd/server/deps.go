package main

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/samber/oops"

	"github.com/iliyamo/contenthub/internal/config"
	"github.com/iliyamo/contenthub/internal/database"
	"github.com/iliyamo/contenthub/internal/storage"
)

// loadConfig reads the environment and sets up the process logger.
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, config.NewLogger(cfg.LogLevel), nil
}

func openDB(cfg config.Config) (*sql.DB, error) {
	db, err := database.Open(database.Options{
		Driver: cfg.DBDriver,
		User:   cfg.DBUser,
		Pass:   cfg.DBPass,
		Host:   cfg.DBHost,
		Port:   cfg.DBPort,
		Name:   cfg.DBName,
		Path:   cfg.DBPath,
	})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("driver", cfg.DBDriver).Wrap(err)
	}
	return db, nil
}

// openBlobs builds the configured blob store.  The returned func releases
// it and is never nil.
func openBlobs(cfg config.BlobConfig) (storage.BlobStore, func(context.Context), error) {
	noop := func(context.Context) {}
	switch cfg.Driver {
	case "memory":
		return storage.NewMemoryStore(), noop, nil
	case "minio":
		s, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, noop, oops.Code("BLOB_INIT_FAILED").With("driver", cfg.Driver).Wrap(err)
		}
		return s, noop, nil
	default:
		s, err := storage.NewGridFSStore(cfg.MongoURI, cfg.MongoDB, cfg.MongoBucket)
		if err != nil {
			return nil, noop, oops.Code("BLOB_INIT_FAILED").With("driver", "gridfs").Wrap(err)
		}
		return s, func(ctx context.Context) { _ = s.Close(ctx) }, nil
	}
}
