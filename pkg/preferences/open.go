package preferences

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unklstewy/adsb-terminal/internal/db"
	"github.com/unklstewy/adsb-terminal/pkg/config"
)

// Pinger is implemented by backends that hold a network connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpenStorage builds the backend named by cfg.Driver. The returned func
// releases any connection it opened.
func OpenStorage(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Storage, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	key := cfg.Key
	if key == "" {
		key = StorageKey
	}

	switch cfg.Driver {
	case config.StoragePostgres:
		conn, err := db.ReconnectWithRetry(ctx, cfg.Database, 3, time.Second, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		storage, err := NewPostgresStorage(ctx, conn, key)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		logger.Info("Preferences in PostgreSQL",
			zap.String("host", cfg.Database.Host),
			zap.String("key", key))
		return storage, conn.Close, nil

	case config.StorageRedis:
		storage, err := NewRedisStorage(ctx, RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      key,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Preferences in Redis",
			zap.String("addr", cfg.Redis.Addr),
			zap.String("key", key))
		return storage, storage.Close, nil

	case config.StorageFile, "":
		storage, err := NewFileStorage(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Preferences file", zap.String("path", storage.Path()))
		return storage, func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
