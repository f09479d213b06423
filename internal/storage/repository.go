package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hperssn/focusbean/internal/domain"
)

var ErrDuplicate = errors.New("duplicate record")

type Repository interface {
	Migrate(ctx context.Context) error

	CreateUser(ctx context.Context, u *UserRecord) error

	GetUserByEmail(ctx context.Context, email string) (*UserRecord, error)

	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)

	SaveOnboarding(ctx context.Context, userID string, c domain.Classification) error

	// SavePlan stores a reviewed plan and stamps the review time.
	SavePlan(ctx context.Context, userID string, p domain.Plan, reviewedAt time.Time) error

	GetInventory(ctx context.Context, userID string) ([]domain.InventoryEntry, error)

	GetLedgerEntries(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error)

	GetSessionsByUser(ctx context.Context, userID string, limit int) ([]SessionRecord, error)

	GetRecentSessions(ctx context.Context, userID string, since time.Time) ([]SessionRecord, error)

	GetSessionStats(ctx context.Context, userID string) (*SessionStats, error)

	// WithinUserTx runs fn in one transaction holding the user's row lock.
	// Concurrent calls for the same user are strictly ordered.
	WithinUserTx(ctx context.Context, userID string, fn func(tx LedgerTx) error) error

	Close() error
}

// LedgerTx is the view of a user's money inside WithinUserTx.
type LedgerTx interface {
	// Profile is the profile as read under the lock.
	Profile() domain.UserProfile

	SessionRecorded(sessionID string) (bool, error)

	ItemQuantity(itemID string) (int, error)

	SaveWallet(w Wallet) error

	InsertSession(rec SessionRecord) error

	AddItem(item domain.ShopItem, at time.Time) error

	ConsumeItem(itemID string) error

	AppendEntry(e domain.LedgerEntry) error
}

// Open connects to the configured driver and returns its repository.
func Open(driver, dsn string) (Repository, error) {
	switch driver {
	case DriverPostgres:
		repo, err := NewPostgresRepository(dsn)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case DriverSQLite:
		repo, err := NewSQLiteRepository(dsn)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
