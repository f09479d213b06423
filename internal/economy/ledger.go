package economy

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hperssn/focusbean/internal/catalog"
	"github.com/hperssn/focusbean/internal/clock"
	"github.com/hperssn/focusbean/internal/domain"
	"github.com/hperssn/focusbean/internal/events"
	"github.com/hperssn/focusbean/internal/storage"
)

const (
	DefaultEntryLimit = 50
	MaxEntryLimit     = 200
)

// DeclinedError is returned when an operation is refused for lack of funds.
// Balance is the unchanged authoritative balance.
type DeclinedError struct {
	Err     error
	Balance int
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("%v (balance %d)", e.Err, e.Balance)
}

func (e *DeclinedError) Unwrap() error {
	return e.Err
}

// Ledger owns every change to a user's balance, streak, bonus minutes and
// inventory. Each operation is one storage transaction under the user lock.
type Ledger struct {
	repo    storage.Repository
	catalog *catalog.Catalog
	events  events.Publisher
	clock   clock.Clock
	logger  *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

type Option func(*Ledger)

func WithClock(c clock.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithRand replaces the wheel's random source.
func WithRand(r *rand.Rand) Option {
	return func(l *Ledger) { l.rng = r }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func NewLedger(repo storage.Repository, cat *catalog.Catalog, pub events.Publisher, opts ...Option) *Ledger {
	l := &Ledger{
		repo:    repo,
		catalog: cat,
		events:  pub,
		clock:   clock.System{},
		logger:  slog.Default(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.events == nil {
		l.events = events.Discard{}
	}
	return l
}

// CompleteSession credits a completed session once. A second report for the
// same session ID fails with domain.ErrStaleSession and changes nothing.
func (l *Ledger) CompleteSession(ctx context.Context, userID string, report domain.CompletionReport) (*domain.SessionResult, error) {
	if report.SessionID == "" {
		return nil, fmt.Errorf("%w: missing session id", domain.ErrStaleSession)
	}
	if !domain.IsSelectableMinutes(report.DurationMinutes) {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidMinutes, report.DurationMinutes)
	}
	now := l.clock.Now()
	if report.CompletedAt.IsZero() {
		report.CompletedAt = now
	}
	if report.StartedAt.IsZero() {
		report.StartedAt = report.CompletedAt.Add(-time.Duration(report.DurationMinutes) * time.Minute)
	}
	if report.Label == "" {
		report.Label = domain.DefaultLabel
	}

	var (
		result domain.SessionResult
		credit domain.Credit
	)
	err := l.repo.WithinUserTx(ctx, userID, func(tx storage.LedgerTx) error {
		seen, err := tx.SessionRecorded(report.SessionID)
		if err != nil {
			return err
		}
		if seen {
			return fmt.Errorf("%w: session %s already credited", domain.ErrStaleSession, report.SessionID)
		}

		profile := tx.Profile()
		savers, err := tx.ItemQuantity(domain.StreakSaverItemID)
		if err != nil {
			return err
		}
		credit = domain.CreditSession(domain.StreakState{
			StreakDays:   profile.CurrentStreakDays,
			LastStreakAt: profile.LastStreakAt,
			StreakSavers: savers,
		}, report.DurationMinutes, report.CompletedAt)

		if credit.StreakSaverUsed {
			if err := tx.ConsumeItem(domain.StreakSaverItemID); err != nil {
				return err
			}
		}
		if err := tx.InsertSession(storage.FromReport(userID, report, credit)); err != nil {
			return err
		}

		w := storage.WalletOf(profile)
		w.Balance += credit.PointsEarned
		if credit.FirstSessionOfDay {
			at := credit.StreakAt
			w.StreakDays = credit.StreakDays
			w.LastStreakAt = &at
		}
		if err := tx.AppendEntry(l.entry(userID, domain.EntrySession, credit.PointsEarned, w.Balance, report.SessionID, now)); err != nil {
			return err
		}
		if err := tx.SaveWallet(w); err != nil {
			return err
		}

		result = domain.SessionResult{
			SessionID:         report.SessionID,
			PointsEarned:      credit.PointsEarned,
			NewTotalPoints:    w.Balance,
			StreakDays:        w.StreakDays,
			FirstSessionOfDay: credit.FirstSessionOfDay,
			StreakSaverUsed:   credit.StreakSaverUsed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("session credited",
		"user_id", userID,
		"session_id", report.SessionID,
		"points", result.PointsEarned,
		"streak", result.StreakDays,
	)
	l.publishBalance(userID, result.NewTotalPoints, result.PointsEarned, "session")
	if result.StreakSaverUsed {
		l.publish(userID, events.InventoryUpdated, map[string]string{"item_id": domain.StreakSaverItemID})
	}
	return &result, nil
}

// Purchase buys one unit of a catalog item at its catalog price.
func (l *Ledger) Purchase(ctx context.Context, userID, itemID string, price int) (*domain.PurchaseResult, error) {
	item, err := l.catalog.Item(itemID)
	if err != nil {
		return nil, err
	}
	if price != item.Price {
		return nil, fmt.Errorf("%w: %s costs %d, got %d", domain.ErrPriceMismatch, item.ID, item.Price, price)
	}

	now := l.clock.Now()
	var balance int
	err = l.repo.WithinUserTx(ctx, userID, func(tx storage.LedgerTx) error {
		w := storage.WalletOf(tx.Profile())
		if w.Balance < item.Price {
			return &DeclinedError{Err: domain.ErrInsufficientFunds, Balance: w.Balance}
		}
		w.Balance -= item.Price
		if err := tx.AddItem(item, now); err != nil {
			return err
		}
		if err := tx.AppendEntry(l.entry(userID, domain.EntryPurchase, -item.Price, w.Balance, item.ID, now)); err != nil {
			return err
		}
		if err := tx.SaveWallet(w); err != nil {
			return err
		}
		balance = w.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.publishBalance(userID, balance, -item.Price, "purchase")
	l.publish(userID, events.InventoryUpdated, map[string]string{"item_id": item.ID})
	return &domain.PurchaseResult{Item: item, NewBalance: balance}, nil
}

// Spin pays domain.SpinCost and draws one wheel slot. Points slots credit the
// balance; time slots add bonus minutes.
func (l *Ledger) Spin(ctx context.Context, userID string) (*domain.SpinResult, error) {
	wheel := l.catalog.WheelTable()
	now := l.clock.Now()

	var (
		result domain.SpinResult
		delta  int
	)
	err := l.repo.WithinUserTx(ctx, userID, func(tx storage.LedgerTx) error {
		w := storage.WalletOf(tx.Profile())
		if w.Balance < domain.SpinCost {
			return &DeclinedError{Err: domain.ErrInsufficientFunds, Balance: w.Balance}
		}

		outcome := l.draw(wheel)
		delta = -domain.SpinCost
		switch outcome.Type {
		case domain.RewardPoints:
			delta += outcome.Value
		case domain.RewardTime:
			w.BonusMinutes += outcome.Value
		}
		w.Balance += delta

		ref := fmt.Sprintf("slot:%d", outcome.Index)
		if err := tx.AppendEntry(l.entry(userID, domain.EntrySpin, delta, w.Balance, ref, now)); err != nil {
			return err
		}
		if err := tx.SaveWallet(w); err != nil {
			return err
		}
		result = domain.SpinResult{Outcome: outcome, NewBalance: w.Balance, NewBonusMinutes: w.BonusMinutes}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.publishBalance(userID, result.NewBalance, delta, "spin")
	return &result, nil
}

func (l *Ledger) Inventory(ctx context.Context, userID string) ([]domain.InventoryEntry, error) {
	return l.repo.GetInventory(ctx, userID)
}

// Entries returns the newest ledger entries first.
func (l *Ledger) Entries(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = DefaultEntryLimit
	}
	if limit > MaxEntryLimit {
		limit = MaxEntryLimit
	}
	return l.repo.GetLedgerEntries(ctx, userID, limit)
}

func (l *Ledger) Catalog() *catalog.Catalog {
	return l.catalog
}

func (l *Ledger) draw(w domain.Wheel) domain.WheelOutcome {
	l.rngMu.Lock()
	defer l.rngMu.Unlock()
	return w.Draw(l.rng)
}

func (l *Ledger) entry(userID string, kind domain.EntryKind, delta, balance int, ref string, at time.Time) domain.LedgerEntry {
	return domain.LedgerEntry{
		ID:           uuid.New().String(),
		UserID:       userID,
		Kind:         kind,
		Delta:        delta,
		BalanceAfter: balance,
		Reference:    ref,
		CreatedAt:    at,
	}
}

func (l *Ledger) publishBalance(userID string, balance, delta int, reason string) {
	l.publish(userID, events.BalanceChanged, events.BalanceData{Balance: balance, Delta: delta, Reason: reason})
}

func (l *Ledger) publish(userID string, t events.Type, data any) {
	l.events.Publish(events.Event{Type: t, UserID: userID, Data: data, Timestamp: l.clock.Now()})
}
