package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hperssn/focusbean/internal/domain"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// dialect carries what differs between the two backends. Queries are
// written with ? placeholders and rebound per driver.
type dialect struct {
	schema      string
	lockSuffix  string
	isDuplicate func(error) bool
}

type store struct {
	db *sqlx.DB
	d  dialect
}

func (s *store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.d.schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

func (s *store) Close() error {
	return s.db.Close()
}

func (s *store) CreateUser(ctx context.Context, u *UserRecord) error {
	query := s.db.Rebind(`
		INSERT INTO users (id, email, password_hash, full_name, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query, u.ID, u.Email, u.PasswordHash, u.FullName, u.CreatedAt.UTC())
	if err != nil {
		if s.d.isDuplicate(err) {
			return fmt.Errorf("user %s: %w", u.Email, ErrDuplicate)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *store) GetUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	query := s.db.Rebind(`
		SELECT id, email, password_hash, full_name, created_at
		FROM users
		WHERE email = ?
	`)
	var u UserRecord
	if err := s.db.GetContext(ctx, &u, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *store) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, s.db.Rebind(selectProfile+` WHERE id = ?`), userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	p := row.profile()
	return &p, nil
}

func (s *store) SaveOnboarding(ctx context.Context, userID string, c domain.Classification) error {
	query := s.db.Rebind(`
		UPDATE users
		SET archetype = ?, preferred_minutes = ?, stated_preference_minutes = ?, quiz_score = ?
		WHERE id = ?
	`)
	res, err := s.db.ExecContext(ctx, query,
		string(c.Archetype), c.PreferredMinutes, c.StatedPreference, c.Score, userID)
	if err != nil {
		return fmt.Errorf("save onboarding: %w", err)
	}
	return expectRow(res, userID)
}

func (s *store) SavePlan(ctx context.Context, userID string, p domain.Plan, reviewedAt time.Time) error {
	query := s.db.Rebind(`
		UPDATE users
		SET archetype = ?, preferred_minutes = ?, last_weekly_review_at = ?
		WHERE id = ?
	`)
	res, err := s.db.ExecContext(ctx, query, string(p.Archetype), p.Minutes, reviewedAt.UTC(), userID)
	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return expectRow(res, userID)
}

func (s *store) GetInventory(ctx context.Context, userID string) ([]domain.InventoryEntry, error) {
	query := s.db.Rebind(`
		SELECT item_id, item_name, quantity, acquired_at
		FROM inventory
		WHERE user_id = ? AND quantity > 0
		ORDER BY acquired_at DESC, item_id
	`)
	entries := []domain.InventoryEntry{}
	if err := s.db.SelectContext(ctx, &entries, query, userID); err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	return entries, nil
}

func (s *store) GetLedgerEntries(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	query := s.db.Rebind(`
		SELECT id, user_id, kind, delta, balance_after, reference, created_at
		FROM ledger_entries
		WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?
	`)
	entries := []domain.LedgerEntry{}
	if err := s.db.SelectContext(ctx, &entries, query, userID, limit); err != nil {
		return nil, fmt.Errorf("get ledger: %w", err)
	}
	return entries, nil
}

func (s *store) GetSessionsByUser(ctx context.Context, userID string, limit int) ([]SessionRecord, error) {
	query := s.db.Rebind(`
		SELECT id, user_id, label, duration_minutes, started_at, completed_at, points_earned, first_of_day
		FROM sessions
		WHERE user_id = ?
		ORDER BY completed_at DESC
		LIMIT ?
	`)
	records := []SessionRecord{}
	if err := s.db.SelectContext(ctx, &records, query, userID, limit); err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}
	return records, nil
}

func (s *store) GetRecentSessions(ctx context.Context, userID string, since time.Time) ([]SessionRecord, error) {
	query := s.db.Rebind(`
		SELECT id, user_id, label, duration_minutes, started_at, completed_at, points_earned, first_of_day
		FROM sessions
		WHERE user_id = ? AND completed_at >= ?
		ORDER BY completed_at DESC
	`)
	records := []SessionRecord{}
	if err := s.db.SelectContext(ctx, &records, query, userID, since.UTC()); err != nil {
		return nil, fmt.Errorf("get recent sessions: %w", err)
	}
	return records, nil
}

func (s *store) GetSessionStats(ctx context.Context, userID string) (*SessionStats, error) {
	query := s.db.Rebind(`
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(duration_minutes), 0) AS total_minutes,
			COALESCE(SUM(points_earned), 0) AS total_points
		FROM sessions
		WHERE user_id = ?
	`)
	var stats SessionStats
	if err := s.db.GetContext(ctx, &stats, query, userID); err != nil {
		return nil, fmt.Errorf("get session stats: %w", err)
	}
	return &stats, nil
}

func (s *store) WithinUserTx(ctx context.Context, userID string, fn func(tx LedgerTx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var row userRow
	if err := tx.GetContext(ctx, &row, tx.Rebind(selectProfile+` WHERE id = ?`+s.d.lockSuffix), userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
		}
		return fmt.Errorf("lock user: %w", err)
	}

	if err := fn(&ledgerTx{ctx: ctx, tx: tx, d: s.d, profile: row.profile()}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

type ledgerTx struct {
	ctx     context.Context
	tx      *sqlx.Tx
	d       dialect
	profile domain.UserProfile
}

func (l *ledgerTx) Profile() domain.UserProfile {
	return l.profile
}

func (l *ledgerTx) SessionRecorded(sessionID string) (bool, error) {
	var n int
	query := l.tx.Rebind(`SELECT COUNT(*) FROM sessions WHERE id = ?`)
	if err := l.tx.GetContext(l.ctx, &n, query, sessionID); err != nil {
		return false, fmt.Errorf("lookup session: %w", err)
	}
	return n > 0, nil
}

func (l *ledgerTx) ItemQuantity(itemID string) (int, error) {
	var qty int
	query := l.tx.Rebind(`SELECT quantity FROM inventory WHERE user_id = ? AND item_id = ?`)
	if err := l.tx.GetContext(l.ctx, &qty, query, l.profile.UserID, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("lookup item: %w", err)
	}
	return qty, nil
}

func (l *ledgerTx) SaveWallet(w Wallet) error {
	if w.Balance < 0 {
		return fmt.Errorf("balance %d: %w", w.Balance, domain.ErrInsufficientFunds)
	}
	query := l.tx.Rebind(`
		UPDATE users
		SET points_balance = ?, current_streak_days = ?, last_streak_at = ?, bonus_minutes = ?
		WHERE id = ?
	`)
	last := w.LastStreakAt
	if last != nil {
		utc := last.UTC()
		last = &utc
	}
	if _, err := l.tx.ExecContext(l.ctx, query,
		w.Balance, w.StreakDays, nullTime(last), w.BonusMinutes, l.profile.UserID); err != nil {
		return fmt.Errorf("save wallet: %w", err)
	}
	l.profile.PointsBalance = w.Balance
	l.profile.CurrentStreakDays = w.StreakDays
	l.profile.LastStreakAt = last
	l.profile.BonusMinutes = w.BonusMinutes
	return nil
}

func (l *ledgerTx) InsertSession(rec SessionRecord) error {
	query := l.tx.Rebind(`
		INSERT INTO sessions (id, user_id, label, duration_minutes, started_at, completed_at, points_earned, first_of_day)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := l.tx.ExecContext(l.ctx, query,
		rec.ID,
		l.profile.UserID,
		rec.Label,
		rec.DurationMinutes,
		rec.StartedAt.UTC(),
		rec.CompletedAt.UTC(),
		rec.PointsEarned,
		rec.FirstOfDay,
	)
	if err != nil {
		if l.d.isDuplicate(err) {
			return fmt.Errorf("session %s: %w", rec.ID, domain.ErrStaleSession)
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (l *ledgerTx) AddItem(item domain.ShopItem, at time.Time) error {
	query := l.tx.Rebind(`
		INSERT INTO inventory (user_id, item_id, item_name, quantity, acquired_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT (user_id, item_id)
		DO UPDATE SET quantity = inventory.quantity + 1, acquired_at = excluded.acquired_at
	`)
	if _, err := l.tx.ExecContext(l.ctx, query, l.profile.UserID, item.ID, item.Name, at.UTC()); err != nil {
		return fmt.Errorf("add item: %w", err)
	}
	return nil
}

func (l *ledgerTx) ConsumeItem(itemID string) error {
	query := l.tx.Rebind(`
		UPDATE inventory SET quantity = quantity - 1
		WHERE user_id = ? AND item_id = ? AND quantity > 0
	`)
	res, err := l.tx.ExecContext(l.ctx, query, l.profile.UserID, itemID)
	if err != nil {
		return fmt.Errorf("consume item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume item: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("item %s: %w", itemID, domain.ErrNotFound)
	}
	return nil
}

func (l *ledgerTx) AppendEntry(e domain.LedgerEntry) error {
	query := l.tx.Rebind(`
		INSERT INTO ledger_entries (id, user_id, kind, delta, balance_after, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if _, err := l.tx.ExecContext(l.ctx, query,
		e.ID, l.profile.UserID, string(e.Kind), e.Delta, e.BalanceAfter, e.Reference, e.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

func expectRow(res sql.Result, userID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return nil
}
