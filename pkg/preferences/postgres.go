package preferences

import (
	"context"
	"errors"
	"time"

	"github.com/unklstewy/adsb-terminal/internal/db"
)

// postgresRetries bounds retries of a settings query after a dropped connection.
const postgresRetries = 2

// PostgresStorage keeps the blob as one row of the settings table.
type PostgresStorage struct {
	conn *db.DB
	repo *db.SettingsRepository
	key  string
}

// NewPostgresStorage uses an open connection. The schema is created if
// missing. An empty key uses StorageKey.
func NewPostgresStorage(ctx context.Context, conn *db.DB, key string) (*PostgresStorage, error) {
	if err := conn.InitSchema(ctx); err != nil {
		return nil, err
	}
	if key == "" {
		key = StorageKey
	}
	return &PostgresStorage{
		conn: conn,
		repo: db.NewSettingsRepository(conn.DB),
		key:  key,
	}, nil
}

// Load fetches the row.
func (p *PostgresStorage) Load(ctx context.Context) ([]byte, error) {
	var setting *db.Setting
	err := db.WithRetry(ctx, func() error {
		s, err := p.repo.Get(ctx, p.key)
		setting = s
		return err
	}, postgresRetries, 500*time.Millisecond)

	if errors.Is(err, db.ErrSettingNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return setting.Value, nil
}

// Save upserts the row.
func (p *PostgresStorage) Save(ctx context.Context, data []byte) error {
	return db.WithRetry(ctx, func() error {
		return p.repo.Put(ctx, p.key, data)
	}, postgresRetries, 500*time.Millisecond)
}

// Ping reports whether the database is reachable.
func (p *PostgresStorage) Ping(ctx context.Context) error {
	return db.HealthCheck(ctx, p.conn)
}
