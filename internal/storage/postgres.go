package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	*store
}

func NewPostgresRepository(connStr string) (*PostgresRepository, error) {
	db, err := sqlx.Open(DriverPostgres, connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	repo := &PostgresRepository{store: &store{db: db, d: dialect{
		schema:      postgresSchema,
		lockSuffix:  ` FOR UPDATE`,
		isDuplicate: isPostgresDuplicate,
	}}}
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func isPostgresDuplicate(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		archetype TEXT,
		preferred_minutes INTEGER NOT NULL DEFAULT 0,
		stated_preference_minutes INTEGER NOT NULL DEFAULT 0,
		quiz_score INTEGER,
		points_balance INTEGER NOT NULL DEFAULT 0 CHECK (points_balance >= 0),
		current_streak_days INTEGER NOT NULL DEFAULT 0,
		last_streak_at TIMESTAMPTZ,
		bonus_minutes INTEGER NOT NULL DEFAULT 0,
		last_weekly_review_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		label TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ NOT NULL,
		points_earned INTEGER NOT NULL,
		first_of_day BOOLEAN NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user_completed ON sessions(user_id, completed_at);

	CREATE TABLE IF NOT EXISTS inventory (
		user_id TEXT NOT NULL REFERENCES users(id),
		item_id TEXT NOT NULL,
		item_name TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity >= 0),
		acquired_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, item_id)
	);

	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		kind TEXT NOT NULL,
		delta INTEGER NOT NULL,
		balance_after INTEGER NOT NULL,
		reference TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_user_created ON ledger_entries(user_id, created_at);
	`
