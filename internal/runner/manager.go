package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hperssn/focusbean/internal/clock"
	"github.com/hperssn/focusbean/internal/domain"
	"github.com/hperssn/focusbean/internal/events"
)

var (
	ErrSessionActive = errors.New("session already active")
	ErrNoSession     = errors.New("no such session")
)

const (
	DefaultTickInterval = time.Second
	defaultIdleTimeout  = time.Hour
	cleanupInterval     = 5 * time.Minute
)

// PlanSource reports the minutes a new ready session should start with.
type PlanSource interface {
	PlanMinutes(ctx context.Context, userID string) (int, error)
}

// SessionManager keeps one session runner per user.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*sessionRunner

	reporter    Reporter
	plans       PlanSource
	events      events.Publisher
	clock       clock.Clock
	logger      *slog.Logger
	interval    time.Duration
	idleTimeout time.Duration

	done     chan struct{}
	shutdown sync.Once
}

type Option func(*SessionManager)

// WithTickInterval sets how often one second is taken off a running session.
func WithTickInterval(d time.Duration) Option {
	return func(m *SessionManager) {
		if d > 0 {
			m.interval = d
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(m *SessionManager) { m.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *SessionManager) { m.logger = l }
}

// WithIdleTimeout sets how long a ready runner is kept after its last use.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *SessionManager) { m.idleTimeout = d }
}

func NewSessionManager(reporter Reporter, plans PlanSource, pub events.Publisher, opts ...Option) *SessionManager {
	m := &SessionManager{
		sessions:    make(map[string]*sessionRunner),
		reporter:    reporter,
		plans:       plans,
		events:      pub,
		clock:       clock.System{},
		logger:      slog.Default(),
		interval:    DefaultTickInterval,
		idleTimeout: defaultIdleTimeout,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.events == nil {
		m.events = events.Discard{}
	}

	go m.cleanupLoop()

	return m
}

func (m *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanupIdleSessions()
		case <-m.done:
			return
		}
	}
}

func (m *SessionManager) cleanupIdleSessions() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.clock.Now().Add(-m.idleTimeout)

	for userID, r := range m.sessions {
		last, idle := r.idleSince()
		if idle && last.Before(cutoff) {
			r.Stop()
			delete(m.sessions, userID)
		}
	}
}

// Shutdown stops every ticker and the cleanup loop.
func (m *SessionManager) Shutdown() {
	m.shutdown.Do(func() {
		close(m.done)

		m.mu.Lock()
		defer m.mu.Unlock()
		for _, r := range m.sessions {
			r.Stop()
		}
	})
}

// Current returns the user's session, creating a ready one from the plan.
func (m *SessionManager) Current(ctx context.Context, userID string) (*domain.Session, error) {
	r, err := m.runner(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.Session(), nil
}

// Select changes the duration and label of the ready session. Zero minutes
// keeps the duration.
func (m *SessionManager) Select(ctx context.Context, userID string, minutes int, label string) (*domain.Session, error) {
	r, err := m.runner(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.Select(minutes, label)
}

func (m *SessionManager) Start(ctx context.Context, userID string) (*domain.Session, error) {
	r, err := m.runner(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.Start()
}

func (m *SessionManager) Pause(userID string) (*domain.Session, error) {
	r, ok := m.get(userID)
	if !ok {
		return nil, ErrNoSession
	}
	return r.Pause()
}

func (m *SessionManager) Resume(userID string) (*domain.Session, error) {
	r, ok := m.get(userID)
	if !ok {
		return nil, ErrNoSession
	}
	return r.Resume()
}

func (m *SessionManager) Cancel(userID string) (*domain.Session, error) {
	r, ok := m.get(userID)
	if !ok {
		return nil, ErrNoSession
	}
	return r.Cancel()
}

func (m *SessionManager) Claim(userID string) (*domain.SessionResult, error) {
	r, ok := m.get(userID)
	if !ok {
		return nil, ErrNoSession
	}
	return r.Claim()
}

// CompleteSession re-reports a completed session the manager still holds.
// Any other session id is rejected with domain.ErrStaleSession.
func (m *SessionManager) CompleteSession(ctx context.Context, userID, sessionID string) (*domain.SessionResult, error) {
	r, ok := m.get(userID)
	if !ok {
		return nil, fmt.Errorf("%w: no session for user", domain.ErrStaleSession)
	}
	return r.Retry(ctx, sessionID)
}

// PlanChanged is called after a review or plan update.
func (m *SessionManager) PlanChanged(userID string, p domain.Plan) {
	if r, ok := m.get(userID); ok {
		r.PlanChanged(p.Minutes)
	}
}

func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *SessionManager) get(userID string) (*sessionRunner, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.sessions[userID]
	return r, ok
}

func (m *SessionManager) runner(ctx context.Context, userID string) (*sessionRunner, error) {
	if r, ok := m.get(userID); ok {
		return r, nil
	}

	minutes := domain.DefaultMinutes(domain.DefaultArchetype)
	if m.plans != nil {
		planned, err := m.plans.PlanMinutes(ctx, userID)
		if err != nil {
			return nil, err
		}
		minutes = planned
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.sessions[userID]; ok {
		return r, nil
	}
	r := newSessionRunner(domain.NewSession(userID, minutes), m)
	m.sessions[userID] = r
	return r, nil
}
