package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	StatusReady     SessionStatus = "ready"
	StatusRunning   SessionStatus = "running"
	StatusPaused    SessionStatus = "paused"
	StatusCompleted SessionStatus = "completed"
)

const DefaultLabel = "Study"

// SessionResult is what the ledger hands back for one completed session.
type SessionResult struct {
	SessionID         string `json:"session_id"`
	PointsEarned      int    `json:"points_earned"`
	NewTotalPoints    int    `json:"new_total_points"`
	StreakDays        int    `json:"streak"`
	FirstSessionOfDay bool   `json:"first_session_of_day"`
	StreakSaverUsed   bool   `json:"streak_saver_used,omitempty"`
}

// CompletionReport is sent to the ledger when a countdown reaches zero.
type CompletionReport struct {
	SessionID       string    `json:"session_id"`
	DurationMinutes int       `json:"duration_minutes"`
	Label           string    `json:"label"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
}

// Session is one focus timer. It is not safe for concurrent use; the runner
// serializes access.
type Session struct {
	ID              string         `json:"id,omitempty"`
	UserID          string         `json:"user_id"`
	SelectedMinutes int            `json:"selected_minutes"`
	Label           string         `json:"label"`
	Status          SessionStatus  `json:"status"`
	RemainingSec    int            `json:"remaining_seconds"`
	StartedAt       time.Time      `json:"started_at,omitzero"`
	CompletedAt     time.Time      `json:"completed_at,omitzero"`
	Result          *SessionResult `json:"result,omitempty"`
}

// NewSession returns a ready session sized for the given plan minutes.
func NewSession(userID string, minutes int) *Session {
	if !IsSelectableMinutes(minutes) {
		minutes = DefaultMinutes(DefaultArchetype)
	}
	return &Session{
		UserID:          userID,
		SelectedMinutes: minutes,
		Label:           DefaultLabel,
		Status:          StatusReady,
		RemainingSec:    minutes * 60,
	}
}

// Select overrides the duration while the session is still ready.
func (s *Session) Select(minutes int) error {
	if s.Status != StatusReady {
		return fmt.Errorf("%w: cannot change duration while %s", ErrInvalidState, s.Status)
	}
	if !IsSelectableMinutes(minutes) {
		return fmt.Errorf("%w: %d", ErrInvalidMinutes, minutes)
	}
	s.SelectedMinutes = minutes
	s.RemainingSec = minutes * 60
	return nil
}

func (s *Session) SetLabel(label string) {
	if label == "" {
		label = DefaultLabel
	}
	s.Label = label
}

// Start moves a ready session to running under a fresh session ID.
func (s *Session) Start(now time.Time) error {
	if s.Status != StatusReady {
		return fmt.Errorf("%w: cannot start while %s", ErrInvalidState, s.Status)
	}
	s.ID = uuid.New().String()
	s.Status = StatusRunning
	s.StartedAt = now
	s.RemainingSec = s.SelectedMinutes * 60
	return nil
}

func (s *Session) Pause() error {
	if s.Status != StatusRunning {
		return fmt.Errorf("%w: cannot pause while %s", ErrInvalidState, s.Status)
	}
	s.Status = StatusPaused
	return nil
}

func (s *Session) Resume() error {
	if s.Status != StatusPaused {
		return fmt.Errorf("%w: cannot resume while %s", ErrInvalidState, s.Status)
	}
	s.Status = StatusRunning
	return nil
}

// Tick advances a running countdown by one second. It reports true exactly
// once, on the tick that reaches zero.
func (s *Session) Tick(now time.Time) bool {
	if s.Status != StatusRunning {
		return false
	}
	if s.RemainingSec > 0 {
		s.RemainingSec--
	}
	if s.RemainingSec > 0 {
		return false
	}
	s.Status = StatusCompleted
	s.CompletedAt = now
	return true
}

// Cancel abandons a running or paused session. Nothing is reported.
func (s *Session) Cancel() error {
	if s.Status != StatusRunning && s.Status != StatusPaused {
		return fmt.Errorf("%w: cannot cancel while %s", ErrInvalidState, s.Status)
	}
	s.reset()
	return nil
}

// Claim closes a completed session and returns its result. The result may be
// nil when the completion has not been credited yet.
func (s *Session) Claim() (*SessionResult, error) {
	if s.Status != StatusCompleted {
		return nil, fmt.Errorf("%w: cannot claim while %s", ErrInvalidState, s.Status)
	}
	if s.Result == nil {
		return nil, fmt.Errorf("%w: completion not credited yet", ErrInvalidState)
	}
	result := s.Result
	s.reset()
	return result, nil
}

// Report builds the ledger report for a completed session.
func (s *Session) Report() (CompletionReport, error) {
	if s.Status != StatusCompleted {
		return CompletionReport{}, fmt.Errorf("%w: session %s is %s", ErrStaleSession, s.ID, s.Status)
	}
	return CompletionReport{
		SessionID:       s.ID,
		DurationMinutes: s.SelectedMinutes,
		Label:           s.Label,
		StartedAt:       s.StartedAt,
		CompletedAt:     s.CompletedAt,
	}, nil
}

// Active reports whether the session holds the user's single timer slot.
func (s *Session) Active() bool {
	return s.Status != StatusReady
}

func (s *Session) reset() {
	s.ID = ""
	s.Status = StatusReady
	s.RemainingSec = s.SelectedMinutes * 60
	s.StartedAt = time.Time{}
	s.CompletedAt = time.Time{}
	s.Result = nil
}

// FormatClock renders seconds as zero-padded MM:SS.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
