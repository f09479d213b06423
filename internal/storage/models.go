package storage

import (
	"database/sql"
	"time"

	"github.com/hperssn/focusbean/internal/domain"
)

type UserRecord struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	FullName     string    `db:"full_name"`
	CreatedAt    time.Time `db:"created_at"`
}

// SessionRecord is a credited focus session.
type SessionRecord struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	Label           string    `db:"label" json:"label"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	StartedAt       time.Time `db:"started_at" json:"started_at"`
	CompletedAt     time.Time `db:"completed_at" json:"completed_at"`
	PointsEarned    int       `db:"points_earned" json:"points_earned"`
	FirstOfDay      bool      `db:"first_of_day" json:"first_session_of_day"`
}

// FromReport converts a completion report and its credit into a record.
func FromReport(userID string, r domain.CompletionReport, c domain.Credit) SessionRecord {
	return SessionRecord{
		ID:              r.SessionID,
		UserID:          userID,
		Label:           r.Label,
		DurationMinutes: r.DurationMinutes,
		StartedAt:       r.StartedAt,
		CompletedAt:     r.CompletedAt,
		PointsEarned:    c.PointsEarned,
		FirstOfDay:      c.FirstSessionOfDay,
	}
}

// Wallet is the mutable money and streak state of a user.
type Wallet struct {
	Balance      int
	StreakDays   int
	LastStreakAt *time.Time
	BonusMinutes int
}

func WalletOf(p domain.UserProfile) Wallet {
	return Wallet{
		Balance:      p.PointsBalance,
		StreakDays:   p.CurrentStreakDays,
		LastStreakAt: p.LastStreakAt,
		BonusMinutes: p.BonusMinutes,
	}
}

type SessionStats struct {
	TotalSessions int `json:"total_sessions" db:"total"`
	TotalMinutes  int `json:"total_minutes" db:"total_minutes"`
	TotalPoints   int `json:"total_points" db:"total_points"`
}

type userRow struct {
	ID               string         `db:"id"`
	Email            string         `db:"email"`
	FullName         string         `db:"full_name"`
	Archetype        sql.NullString `db:"archetype"`
	PreferredMinutes int            `db:"preferred_minutes"`
	StatedPreference int            `db:"stated_preference_minutes"`
	QuizScore        sql.NullInt64  `db:"quiz_score"`
	PointsBalance    int            `db:"points_balance"`
	StreakDays       int            `db:"current_streak_days"`
	LastStreakAt     sql.NullTime   `db:"last_streak_at"`
	BonusMinutes     int            `db:"bonus_minutes"`
	LastReviewAt     sql.NullTime   `db:"last_weekly_review_at"`
	CreatedAt        time.Time      `db:"created_at"`
}

const selectProfile = `
	SELECT id, email, full_name, archetype, preferred_minutes, stated_preference_minutes,
		quiz_score, points_balance, current_streak_days, last_streak_at, bonus_minutes,
		last_weekly_review_at, created_at
	FROM users`

func (r userRow) profile() domain.UserProfile {
	p := domain.UserProfile{
		UserID:                  r.ID,
		Email:                   r.Email,
		FullName:                r.FullName,
		Archetype:               domain.Archetype(r.Archetype.String),
		PreferredMinutes:        r.PreferredMinutes,
		StatedPreferenceMinutes: r.StatedPreference,
		PointsBalance:           r.PointsBalance,
		CurrentStreakDays:       r.StreakDays,
		BonusMinutes:            r.BonusMinutes,
		CreatedAt:               r.CreatedAt.UTC(),
	}
	if r.QuizScore.Valid {
		score := int(r.QuizScore.Int64)
		p.QuizScore = &score
	}
	if r.LastStreakAt.Valid {
		at := r.LastStreakAt.Time.UTC()
		p.LastStreakAt = &at
	}
	if r.LastReviewAt.Valid {
		at := r.LastReviewAt.Time.UTC()
		p.LastWeeklyReviewAt = &at
	}
	return p
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
