// internal/database/db.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx pool for url and pings it.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return pool, nil
}

// schema is applied by Migrate. Both statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS cards (
	id     TEXT PRIMARY KEY,
	target TEXT NOT NULL,
	taboos TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS room_actions (
	id             BIGSERIAL PRIMARY KEY,
	room_code      TEXT NOT NULL,
	action_index   INT NOT NULL,
	actor_id       TEXT,
	action_type    TEXT NOT NULL,
	action_payload JSONB NOT NULL DEFAULT '{}',
	occurred_at    TIMESTAMPTZ NOT NULL,
	UNIQUE (room_code, action_index, occurred_at)
);
`

// Migrate creates the tables this service reads and writes.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
