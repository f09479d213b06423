package domain

import "time"

// UserProfile is the server-authoritative view of a user.
type UserProfile struct {
	UserID                  string     `json:"user_id"`
	Email                   string     `json:"email"`
	FullName                string     `json:"full_name"`
	Archetype               Archetype  `json:"archetype,omitempty"`
	PreferredMinutes        int        `json:"preferred_minutes"`
	StatedPreferenceMinutes int        `json:"stated_preference_minutes,omitempty"`
	QuizScore               *int       `json:"quiz_score,omitempty"`
	PointsBalance           int        `json:"points_balance"`
	CurrentStreakDays       int        `json:"current_streak_days"`
	LastStreakAt            *time.Time `json:"last_streak_at,omitempty"`
	BonusMinutes            int        `json:"bonus_minutes"`
	LastWeeklyReviewAt      *time.Time `json:"last_weekly_review_at,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
}

func (p *UserProfile) Onboarded() bool {
	return p.Archetype.Valid()
}

// EffectiveArchetype falls back to B until onboarding is done.
func (p *UserProfile) EffectiveArchetype() Archetype {
	if p.Onboarded() {
		return p.Archetype
	}
	return DefaultArchetype
}

// Plan is the plan new sessions start from.
func (p *UserProfile) Plan() Plan {
	a := p.EffectiveArchetype()
	minutes := p.PreferredMinutes
	if !p.Onboarded() || !IsSelectableMinutes(minutes) {
		minutes = DefaultMinutes(a)
	}
	return Plan{Archetype: a, Minutes: minutes}
}
