package domain

import "time"

const (
	PointsPerMinute    = 10
	FirstSessionBonus  = 50
	streakDayPrecision = 24 * time.Hour
)

// StreakState is the part of a profile the completion credit reads and writes.
type StreakState struct {
	StreakDays   int
	LastStreakAt *time.Time
	StreakSavers int
}

// Credit is the outcome of crediting one completed session.
type Credit struct {
	PointsEarned      int
	StreakDays        int
	FirstSessionOfDay bool
	StreakSaverUsed   bool
	StreakAt          time.Time
}

// CreditSession applies the per-minute reward and the daily streak rules.
// Days are UTC calendar days. A broken streak is kept alive when the user owns
// a streak saver.
func CreditSession(state StreakState, minutes int, now time.Time) Credit {
	today := now.UTC().Truncate(streakDayPrecision)
	c := Credit{
		PointsEarned: minutes * PointsPerMinute,
		StreakDays:   state.StreakDays,
	}

	if state.LastStreakAt != nil {
		last := state.LastStreakAt.UTC().Truncate(streakDayPrecision)
		if last.Equal(today) {
			return c
		}
	}

	c.FirstSessionOfDay = true
	c.PointsEarned += FirstSessionBonus
	c.StreakAt = now

	switch {
	case state.LastStreakAt == nil || state.StreakDays == 0:
		c.StreakDays = 1
	case state.LastStreakAt.UTC().Truncate(streakDayPrecision).Equal(today.Add(-streakDayPrecision)):
		c.StreakDays = state.StreakDays + 1
	case state.StreakSavers > 0:
		c.StreakDays = state.StreakDays + 1
		c.StreakSaverUsed = true
	default:
		c.StreakDays = 1
	}
	return c
}
