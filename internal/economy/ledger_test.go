package economy_test

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hperssn/focusbean/internal/catalog"
	"github.com/hperssn/focusbean/internal/clock"
	"github.com/hperssn/focusbean/internal/domain"
	"github.com/hperssn/focusbean/internal/economy"
	"github.com/hperssn/focusbean/internal/events"
	"github.com/hperssn/focusbean/internal/storage"
)

var monday = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	repo   *storage.SQLiteRepository
	bus    *events.Bus
	ledger *economy.Ledger
	userID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	userID := uuid.NewString()
	require.NoError(t, repo.CreateUser(context.Background(), &storage.UserRecord{
		ID: userID, Email: userID + "@example.com", PasswordHash: "x", CreatedAt: monday,
	}))

	bus := events.NewBus(32)
	ledger := economy.NewLedger(repo, catalog.Default(), bus,
		economy.WithClock(clock.Fixed(monday)),
		economy.WithRand(rand.New(rand.NewSource(7))),
	)
	return &fixture{repo: repo, bus: bus, ledger: ledger, userID: userID}
}

func (f *fixture) setBalance(t *testing.T, balance int) {
	t.Helper()
	require.NoError(t, f.repo.WithinUserTx(context.Background(), f.userID, func(tx storage.LedgerTx) error {
		w := storage.WalletOf(tx.Profile())
		w.Balance = balance
		return tx.SaveWallet(w)
	}))
}

func (f *fixture) balance(t *testing.T) int {
	t.Helper()
	p, err := f.repo.GetProfile(context.Background(), f.userID)
	require.NoError(t, err)
	return p.PointsBalance
}

func report(id string, minutes int, at time.Time) domain.CompletionReport {
	return domain.CompletionReport{SessionID: id, DurationMinutes: minutes, Label: "Study", CompletedAt: at}
}

func TestCompleteSession_FirstOfDayAndDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sub, cancel := f.bus.Subscribe(f.userID)
	defer cancel()

	res, err := f.ledger.CompleteSession(ctx, f.userID, report("s1", 25, monday))
	require.NoError(t, err)
	assert.Equal(t, 300, res.PointsEarned)
	assert.Equal(t, 300, res.NewTotalPoints)
	assert.Equal(t, 1, res.StreakDays)
	assert.True(t, res.FirstSessionOfDay)

	select {
	case e := <-sub:
		assert.Equal(t, events.BalanceChanged, e.Type)
		assert.Equal(t, events.BalanceData{Balance: 300, Delta: 300, Reason: "session"}, e.Data)
	default:
		t.Fatalf("expected balance event")
	}

	_, err = f.ledger.CompleteSession(ctx, f.userID, report("s1", 25, monday))
	assert.ErrorIs(t, err, domain.ErrStaleSession)
	assert.Equal(t, 300, f.balance(t))

	res, err = f.ledger.CompleteSession(ctx, f.userID, report("s2", 15, monday.Add(2*time.Hour)))
	require.NoError(t, err)
	assert.False(t, res.FirstSessionOfDay)
	assert.Equal(t, 150, res.PointsEarned)
	assert.Equal(t, 450, res.NewTotalPoints)
	assert.Equal(t, 1, res.StreakDays)

	entries, err := f.ledger.Entries(ctx, f.userID, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCompleteSession_RejectsBadReports(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.CompleteSession(context.Background(), f.userID, report("", 25, monday))
	assert.ErrorIs(t, err, domain.ErrStaleSession)

	_, err = f.ledger.CompleteSession(context.Background(), f.userID, report("s1", 7, monday))
	assert.ErrorIs(t, err, domain.ErrInvalidMinutes)

	_, err = f.ledger.CompleteSession(context.Background(), "nobody", report("s1", 25, monday))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompleteSession_Streak(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ledger.CompleteSession(ctx, f.userID, report("d1", 1, monday))
	require.NoError(t, err)

	res, err := f.ledger.CompleteSession(ctx, f.userID, report("d2", 1, monday.AddDate(0, 0, 1)))
	require.NoError(t, err)
	assert.Equal(t, 2, res.StreakDays)

	res, err = f.ledger.CompleteSession(ctx, f.userID, report("d4", 1, monday.AddDate(0, 0, 3)))
	require.NoError(t, err)
	assert.Equal(t, 1, res.StreakDays)
	assert.False(t, res.StreakSaverUsed)
}

func TestCompleteSession_StreakSaverConsumed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ledger.CompleteSession(ctx, f.userID, report("d1", 25, monday))
	require.NoError(t, err)
	_, err = f.ledger.CompleteSession(ctx, f.userID, report("d2", 25, monday.AddDate(0, 0, 1)))
	require.NoError(t, err)

	_, err = f.ledger.Purchase(ctx, f.userID, domain.StreakSaverItemID, 50)
	require.NoError(t, err)

	res, err := f.ledger.CompleteSession(ctx, f.userID, report("d5", 25, monday.AddDate(0, 0, 4)))
	require.NoError(t, err)
	assert.True(t, res.StreakSaverUsed)
	assert.Equal(t, 3, res.StreakDays)

	inv, err := f.ledger.Inventory(ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, inv)
}

func TestPurchase_BalanceRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setBalance(t, 15)

	_, err := f.ledger.Purchase(ctx, f.userID, "theme", 20)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	var declined *economy.DeclinedError
	require.True(t, errors.As(err, &declined))
	assert.Equal(t, 15, declined.Balance)
	assert.Equal(t, 15, f.balance(t))

	res, err := f.ledger.Purchase(ctx, f.userID, "rest", 10)
	require.NoError(t, err)
	assert.Equal(t, 5, res.NewBalance)
	assert.Equal(t, "rest", res.Item.ID)

	f.setBalance(t, 20)
	_, err = f.ledger.Purchase(ctx, f.userID, "rest", 10)
	require.NoError(t, err)

	inv, err := f.ledger.Inventory(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, 2, inv[0].Quantity)
	assert.Equal(t, 10, f.balance(t))
}

func TestPurchase_CatalogChecks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setBalance(t, 100)

	_, err := f.ledger.Purchase(ctx, f.userID, "espresso", 10)
	assert.ErrorIs(t, err, domain.ErrUnknownItem)

	_, err = f.ledger.Purchase(ctx, f.userID, "theme", 1)
	assert.ErrorIs(t, err, domain.ErrPriceMismatch)
	assert.Equal(t, 100, f.balance(t))
}

func TestPurchase_ConcurrentNeverOverdraws(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setBalance(t, 30)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.ledger.Purchase(ctx, f.userID, "theme", 20); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 10, f.balance(t))
}

func TestSpin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setBalance(t, 9)

	_, err := f.ledger.Spin(ctx, f.userID)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, 9, f.balance(t))

	f.setBalance(t, 100)
	wheel := catalog.Default().WheelTable()
	balance, bonus := 100, 0
	for i := 0; i < 20; i++ {
		res, err := f.ledger.Spin(ctx, f.userID)
		require.NoError(t, err)

		seg := wheel.Segments[res.Outcome.Index]
		assert.Equal(t, seg.Value, res.Outcome.Value)
		assert.Equal(t, seg.Type, res.Outcome.Type)

		balance -= domain.SpinCost
		if seg.Type == domain.RewardPoints {
			balance += seg.Value
		} else {
			bonus += seg.Value
		}
		assert.Equal(t, balance, res.NewBalance)
		assert.Equal(t, bonus, res.NewBonusMinutes)
		if balance < domain.SpinCost {
			break
		}
	}

	entries, err := f.ledger.Entries(ctx, f.userID, 500)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, domain.EntrySpin, e.Kind)
	}
}
