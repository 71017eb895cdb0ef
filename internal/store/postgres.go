package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iwvelando/saas-forecast/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS saved_configurations (
	id         UUID PRIMARY KEY,
	owner      TEXT NOT NULL,
	name       TEXT NOT NULL,
	config     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (owner, name)
)`

// NewPool connects to databaseURL and verifies the connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return pool, nil
}

// PgStore is a ConfigStore backed by PostgreSQL.
type PgStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgStore wraps an open pool.
func NewPgStore(pool *pgxpool.Pool, logger *zap.Logger) *PgStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PgStore{pool: pool, logger: logger}
}

// Migrate creates the configuration table if it does not exist.
func (s *PgStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate configuration table: %w", err)
	}
	s.logger.Debug("configuration table ready", zap.String("op", "store.PgStore.Migrate"))
	return nil
}

func (s *PgStore) Save(ctx context.Context, owner, name string, conf config.Configuration) (Record, error) {
	if err := checkKey(owner, name); err != nil {
		return Record{}, err
	}

	payload, err := json.Marshal(conf)
	if err != nil {
		return Record{}, fmt.Errorf("failed to encode configuration: %w", err)
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO saved_configurations (id, owner, name, config)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (owner, name) DO UPDATE
		 SET config = EXCLUDED.config, updated_at = now()
		 RETURNING id, owner, name, config, created_at, updated_at`,
		newID(), owner, name, payload,
	)
	rec, err := scanRecord(row)
	if err != nil {
		return Record{}, fmt.Errorf("failed to save configuration %s/%s: %w", owner, name, err)
	}

	s.logger.Debug("saved configuration",
		zap.String("op", "store.PgStore.Save"),
		zap.String("owner", owner),
		zap.String("name", name),
		zap.String("id", rec.ID),
	)
	return rec, nil
}

func (s *PgStore) Get(ctx context.Context, owner, name string) (Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, owner, name, config, created_at, updated_at
		 FROM saved_configurations
		 WHERE owner = $1 AND name = $2`,
		owner, name,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, notFound(owner, name)
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to load configuration %s/%s: %w", owner, name, err)
	}
	return rec, nil
}

// List returns the owner's records ordered by name.
func (s *PgStore) List(ctx context.Context, owner string) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner, name, config, created_at, updated_at
		 FROM saved_configurations
		 WHERE owner = $1
		 ORDER BY name`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list configurations for %s: %w", owner, err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *PgStore) Delete(ctx context.Context, owner, name string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM saved_configurations WHERE owner = $1 AND name = $2`,
		owner, name,
	)
	if err != nil {
		return fmt.Errorf("failed to delete configuration %s/%s: %w", owner, name, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(owner, name)
	}
	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec     Record
		payload []byte
	)
	if err := row.Scan(&rec.ID, &rec.Owner, &rec.Name, &payload, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(payload, &rec.Config); err != nil {
		return Record{}, fmt.Errorf("failed to decode stored configuration: %w", err)
	}
	return rec, nil
}
