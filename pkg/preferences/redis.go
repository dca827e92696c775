package preferences

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures RedisStorage.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// Key overrides StorageKey
	Key string
}

// RedisStorage keeps the blob as a single Redis string value with no expiry.
type RedisStorage struct {
	client *redis.Client
	key    string
}

// NewRedisStorage connects to Redis and verifies the connection.
func NewRedisStorage(ctx context.Context, opts RedisOptions) (*RedisStorage, error) {
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStorageFromClient(client, opts.Key), nil
}

// NewRedisStorageFromClient wraps an existing client. An empty key uses StorageKey.
func NewRedisStorageFromClient(client *redis.Client, key string) *RedisStorage {
	if key == "" {
		key = StorageKey
	}
	return &RedisStorage{client: client, key: key}
}

// Load fetches the blob.
func (r *RedisStorage) Load(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences from Redis: %w", err)
	}
	return data, nil
}

// Save stores the blob.
func (r *RedisStorage) Save(ctx context.Context, data []byte) error {
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write preferences to Redis: %w", err)
	}
	return nil
}

// Close releases the client.
func (r *RedisStorage) Close() error {
	return r.client.Close()
}

// Ping reports whether Redis is reachable.
func (r *RedisStorage) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
