package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/jadwal-sholat/internal/handler"
	"github.com/noah-isme/jadwal-sholat/internal/repository"
	"github.com/noah-isme/jadwal-sholat/internal/service"
	"github.com/noah-isme/jadwal-sholat/pkg/config"
	"github.com/noah-isme/jadwal-sholat/pkg/database"
	"github.com/noah-isme/jadwal-sholat/pkg/storage"
)

// kvBackend is the opened key-value store with its readiness probe and
// release hook.
type kvBackend struct {
	store service.KVStore
	ready handler.ReadyCheck
	close func() error
}

func openKV(ctx context.Context, cfg *config.Config, redisRepo *repository.CacheRepository, logr *zap.Logger) (*kvBackend, error) {
	probe := func(store service.KVStore) handler.ReadyCheck {
		return func(ctx context.Context) error {
			_, err := store.Keys(ctx, "__ready")
			return err
		}
	}
	noop := func() error { return nil }

	switch cfg.Storage.Driver {
	case config.StorageMemory, "":
		store := storage.NewMemoryKV(cfg.Storage.QuotaBytes)
		return &kvBackend{store: store, ready: probe(store), close: noop}, nil
	case config.StorageFile:
		store, err := storage.NewFileKV(cfg.Storage.Dir, cfg.Storage.QuotaBytes)
		if err != nil {
			return nil, fmt.Errorf("open file storage: %w", err)
		}
		return &kvBackend{store: store, ready: probe(store), close: noop}, nil
	case config.StorageRedis:
		if redisRepo == nil {
			return nil, fmt.Errorf("storage driver redis requires REDIS_ENABLED=true")
		}
		return &kvBackend{store: redisRepo.KV("kv:"), ready: redisRepo.Ping, close: noop}, nil
	case config.StoragePostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := database.RunMigrations(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate kv schema: %w", err)
		}
		logr.Info("postgres key-value storage ready", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.Name))
		repo := repository.NewKVRepository(db)
		return &kvBackend{store: repo, ready: repo.Ping, close: db.Close}, nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}
}
