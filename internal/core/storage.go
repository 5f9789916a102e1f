package core

import (
	"context"
	"fmt"

	"zenstay/internal/infra/persistence/kv"
	"zenstay/internal/infra/persistence/memory"
	"zenstay/internal/infra/persistence/postgres"
	"zenstay/internal/infra/persistence/sqlite"
	"zenstay/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // seed state, nothing written
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageRedis    StorageDriver = "redis"    // one redis key per bucket
)

// StorageConfig selects and configures the snapshot backend.
type StorageConfig struct {
	Driver        StorageDriver
	SQLitePath    string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Store is a persistent store that can be swapped wholesale and closed.
type Store interface {
	domain.PersistentStore
	Replace(ctx context.Context, state domain.State) error
	Close() error
}

type memoryStore struct {
	*memory.Store
}

func (memoryStore) Close() error { return nil }

type loadIssuer interface {
	LoadIssues() []memory.LoadIssue
}

// OpenPersistentStore opens the configured backend. Defaults to sqlite when
// the driver is empty. Buckets that fell back to seed values are logged.
func OpenPersistentStore(ctx context.Context, cfg StorageConfig, engine *domain.RulesEngine, logger Logger) (Store, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	var (
		store Store
		err   error
	)
	switch driver {
	case StorageMemory:
		store = memoryStore{memory.NewStore(engine)}
	case StorageSQLite:
		store, err = sqlite.NewStore(cfg.SQLitePath, engine)
	case StoragePostgres:
		store, err = postgres.NewStore(ctx, cfg.PostgresDSN, engine)
	case StorageRedis:
		var client *kv.RedisKVStore
		client, err = kv.NewRedisKVStore(ctx, kv.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err == nil {
			store, err = kv.NewStore(ctx, client, engine)
			if err != nil {
				_ = client.Close()
			}
		}
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}
	if issuer, ok := store.(loadIssuer); ok {
		for _, issue := range issuer.LoadIssues() {
			logger.Warn("bucket fell back to seed", "driver", string(driver), "bucket", string(issue.Bucket), "error", issue.Err)
		}
	}
	logger.Info("storage opened", "driver", string(driver))
	return store, nil
}
