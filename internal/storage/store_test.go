package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hperssn/focusbean/internal/domain"
	"github.com/hperssn/focusbean/internal/storage"
)

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "focus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createUser(t *testing.T, repo storage.Repository, email string) string {
	t.Helper()
	id := uuid.NewString()
	err := repo.CreateUser(context.Background(), &storage.UserRecord{
		ID:           id,
		Email:        email,
		PasswordHash: "hash",
		FullName:     "Test User",
		CreatedAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return id
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	repo := newRepo(t)
	createUser(t, repo, "a@example.com")

	err := repo.CreateUser(context.Background(), &storage.UserRecord{
		ID: uuid.NewString(), Email: "a@example.com", PasswordHash: "x", CreatedAt: time.Now(),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	u, err := repo.GetUserByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash", u.PasswordHash)

	_, err = repo.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProfile_OnboardingAndPlan(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	id := createUser(t, repo, "b@example.com")

	p, err := repo.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.False(t, p.Onboarded())
	assert.Nil(t, p.QuizScore)
	assert.Nil(t, p.LastWeeklyReviewAt)

	require.NoError(t, repo.SaveOnboarding(ctx, id, domain.Classification{
		Archetype: domain.ArchetypeC, Score: 9, PreferredMinutes: 40, StatedPreference: 25,
	}))

	p, err = repo.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ArchetypeC, p.Archetype)
	assert.Equal(t, 40, p.PreferredMinutes)
	assert.Equal(t, 25, p.StatedPreferenceMinutes)
	require.NotNil(t, p.QuizScore)
	assert.Equal(t, 9, *p.QuizScore)

	reviewed := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SavePlan(ctx, id, domain.Plan{Archetype: domain.ArchetypeB, Minutes: 25}, reviewed))

	p, err = repo.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ArchetypeB, p.Archetype)
	assert.Equal(t, 25, p.PreferredMinutes)
	require.NotNil(t, p.LastWeeklyReviewAt)
	assert.True(t, reviewed.Equal(*p.LastWeeklyReviewAt))

	err = repo.SavePlan(ctx, "missing", domain.Plan{Archetype: domain.ArchetypeA, Minutes: 15}, reviewed)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWithinUserTx_CommitsWalletSessionAndItems(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	id := createUser(t, repo, "c@example.com")
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	err := repo.WithinUserTx(ctx, id, func(tx storage.LedgerTx) error {
		rec := storage.SessionRecord{
			ID: "s-1", Label: "Study", DurationMinutes: 25,
			StartedAt: now.Add(-25 * time.Minute), CompletedAt: now,
			PointsEarned: 300, FirstOfDay: true,
		}
		if err := tx.InsertSession(rec); err != nil {
			return err
		}
		if err := tx.SaveWallet(storage.Wallet{Balance: 300, StreakDays: 1, LastStreakAt: &now}); err != nil {
			return err
		}
		if err := tx.AddItem(domain.ShopItem{ID: "streak", Name: "Streak Saver", Price: 50}, now); err != nil {
			return err
		}
		if err := tx.AddItem(domain.ShopItem{ID: "streak", Name: "Streak Saver", Price: 50}, now); err != nil {
			return err
		}
		return tx.AppendEntry(domain.LedgerEntry{
			ID: uuid.NewString(), Kind: domain.EntrySession, Delta: 300, BalanceAfter: 300,
			Reference: "s-1", CreatedAt: now,
		})
	})
	require.NoError(t, err)

	p, err := repo.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 300, p.PointsBalance)
	assert.Equal(t, 1, p.CurrentStreakDays)
	require.NotNil(t, p.LastStreakAt)

	inv, err := repo.GetInventory(ctx, id)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, 2, inv[0].Quantity)

	entries, err := repo.GetLedgerEntries(ctx, id, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.EntrySession, entries[0].Kind)

	recent, err := repo.GetRecentSessions(ctx, id, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.True(t, recent[0].FirstOfDay)

	stats, err := repo.GetSessionStats(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalSessions)
	assert.Equal(t, 25, stats.TotalMinutes)
	assert.Equal(t, 300, stats.TotalPoints)

	err = repo.WithinUserTx(ctx, id, func(tx storage.LedgerTx) error {
		seen, err := tx.SessionRecorded("s-1")
		require.NoError(t, err)
		assert.True(t, seen)
		return tx.InsertSession(storage.SessionRecord{ID: "s-1", Label: "Study", DurationMinutes: 25, StartedAt: now, CompletedAt: now})
	})
	assert.ErrorIs(t, err, domain.ErrStaleSession)
}

func TestWithinUserTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	id := createUser(t, repo, "d@example.com")
	boom := errors.New("boom")

	err := repo.WithinUserTx(ctx, id, func(tx storage.LedgerTx) error {
		if err := tx.SaveWallet(storage.Wallet{Balance: 999}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p, err := repo.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, p.PointsBalance)

	err = repo.WithinUserTx(ctx, id, func(tx storage.LedgerTx) error {
		return tx.SaveWallet(storage.Wallet{Balance: -1})
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	err = repo.WithinUserTx(ctx, "missing", func(tx storage.LedgerTx) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWithinUserTx_ConsumeItem(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	id := createUser(t, repo, "e@example.com")
	now := time.Now().UTC()

	require.NoError(t, repo.WithinUserTx(ctx, id, func(tx storage.LedgerTx) error {
		return tx.AddItem(domain.ShopItem{ID: "streak", Name: "Streak Saver", Price: 50}, now)
	}))

	require.NoError(t, repo.WithinUserTx(ctx, id, func(tx storage.LedgerTx) error {
		qty, err := tx.ItemQuantity("streak")
		require.NoError(t, err)
		assert.Equal(t, 1, qty)
		return tx.ConsumeItem("streak")
	}))

	err := repo.WithinUserTx(ctx, id, func(tx storage.LedgerTx) error {
		return tx.ConsumeItem("streak")
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	inv, err := repo.GetInventory(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, inv)
}

func TestWithinUserTx_SerializesConcurrentSpends(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	id := createUser(t, repo, "f@example.com")

	require.NoError(t, repo.WithinUserTx(ctx, id, func(tx storage.LedgerTx) error {
		return tx.SaveWallet(storage.Wallet{Balance: 30})
	}))

	const spenders = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < spenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.WithinUserTx(ctx, id, func(tx storage.LedgerTx) error {
				w := storage.WalletOf(tx.Profile())
				if w.Balance < 20 {
					return domain.ErrInsufficientFunds
				}
				w.Balance -= 20
				return tx.SaveWallet(w)
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	p, err := repo.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 10, p.PointsBalance)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := storage.Open("mysql", "dsn")
	assert.Error(t, err)
}
