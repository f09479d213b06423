package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	*store
}

// NewSQLiteRepository opens dbPath with a single connection. SQLite has no
// row locks, so one connection is what orders concurrent ledger transactions.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sqlx.Open(DriverSQLite, dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	repo := &SQLiteRepository{store: &store{db: db, d: dialect{
		schema:      sqliteSchema,
		isDuplicate: isSQLiteDuplicate,
	}}}
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func isSQLiteDuplicate(err error) bool {
	var sqlErr sqlite3.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	return sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqlErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

const sqliteSchema = `
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
		last_streak_at DATETIME,
		bonus_minutes INTEGER NOT NULL DEFAULT 0,
		last_weekly_review_at DATETIME,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		label TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		started_at DATETIME NOT NULL,
		completed_at DATETIME NOT NULL,
		points_earned INTEGER NOT NULL,
		first_of_day BOOLEAN NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user_completed ON sessions(user_id, completed_at);

	CREATE TABLE IF NOT EXISTS inventory (
		user_id TEXT NOT NULL REFERENCES users(id),
		item_id TEXT NOT NULL,
		item_name TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity >= 0),
		acquired_at DATETIME NOT NULL,
		PRIMARY KEY (user_id, item_id)
	);

	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		kind TEXT NOT NULL,
		delta INTEGER NOT NULL,
		balance_after INTEGER NOT NULL,
		reference TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_user_created ON ledger_entries(user_id, created_at);
	`
