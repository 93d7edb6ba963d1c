package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sharetube/watchparty/internal/repository/store"
	"github.com/sharetube/watchparty/internal/repository/store/bolt"
	"github.com/sharetube/watchparty/internal/repository/store/inmemory"
	storeredis "github.com/sharetube/watchparty/internal/repository/store/redis"
	"github.com/sharetube/watchparty/pkg/redisclient"
)

type StoreConfig struct {
	Kind          string
	BoltPath      string
	RedisHost     string
	RedisPort     int
	RedisPassword string
	OpTimeout     time.Duration
	RecordTTL     time.Duration
}

func (cfg *StoreConfig) Validate() error {
	switch cfg.Kind {
	case StoreRedis:
		if cfg.RedisHost == "" {
			return fmt.Errorf("redis host is required")
		}
	case StoreBolt:
		if cfg.BoltPath == "" {
			return fmt.Errorf("bolt path is required")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store %q, want one of %s, %s, %s", cfg.Kind, StoreRedis, StoreBolt, StoreMemory)
	}

	if cfg.OpTimeout <= 0 {
		return fmt.Errorf("store timeout must be greater than 0")
	}

	return nil
}

// OpenStore connects the configured Record Store backend. The returned
// function releases it.
func OpenStore(ctx context.Context, cfg *StoreConfig, logger *slog.Logger) (store.Store, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	switch cfg.Kind {
	case StoreRedis:
		rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
			Host:        cfg.RedisHost,
			Port:        cfg.RedisPort,
			Password:    cfg.RedisPassword,
			PingTimeout: cfg.OpTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create redis client: %w", err)
		}

		logger.Info("using redis store", "host", cfg.RedisHost, "port", cfg.RedisPort)
		return storeredis.NewRepo(rc, &storeredis.Config{
			ExpireDuration: cfg.RecordTTL,
			OpTimeout:      cfg.OpTimeout,
		}), rc.Close, nil
	case StoreBolt:
		repo, err := bolt.NewRepo(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}

		logger.Info("using bolt store", "path", cfg.BoltPath)
		return repo, repo.Close, nil
	default:
		logger.Warn("using in-memory store, state is lost on exit")
		return inmemory.NewRepo(), func() error { return nil }, nil
	}
}
