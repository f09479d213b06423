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

const reportTimeout = 10 * time.Second

// Reporter credits a completed session. The economy ledger implements it.
type Reporter interface {
	CompleteSession(ctx context.Context, userID string, report domain.CompletionReport) (*domain.SessionResult, error)
}

type sessionRunner struct {
	mu sync.Mutex

	session *domain.Session
	// gen is bumped whenever the ticker must stop; a goroutine only applies
	// ticks while its generation is current.
	gen         uint64
	stop        chan struct{}
	planMinutes int
	// planPending is set when the plan changed while a session was active.
	planPending bool
	lastActive  time.Time

	interval time.Duration
	clock    clock.Clock
	reporter Reporter
	events   events.Publisher
	logger   *slog.Logger
}

func newSessionRunner(s *domain.Session, m *SessionManager) *sessionRunner {
	return &sessionRunner{
		session:     s,
		planMinutes: s.SelectedMinutes,
		lastActive:  m.clock.Now(),
		interval:    m.interval,
		clock:       m.clock,
		reporter:    m.reporter,
		events:      m.events,
		logger:      m.logger,
	}
}

func (r *sessionRunner) Select(minutes int, label string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if minutes != 0 {
		if err := r.session.Select(minutes); err != nil {
			return nil, err
		}
	}
	if label != "" {
		r.session.SetLabel(label)
	}
	r.touch()
	return r.snapshot(), nil
}

func (r *sessionRunner) Start() (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session.Active() {
		return nil, ErrSessionActive
	}
	if err := r.session.Start(r.clock.Now()); err != nil {
		return nil, err
	}
	r.startTicker()
	r.touch()
	r.publish(events.SessionStarted, r.snapshot())
	return r.snapshot(), nil
}

func (r *sessionRunner) Pause() (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.session.Pause(); err != nil {
		return nil, err
	}
	r.stopTicker()
	r.touch()
	r.publish(events.SessionPaused, r.snapshot())
	return r.snapshot(), nil
}

func (r *sessionRunner) Resume() (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.session.Resume(); err != nil {
		return nil, err
	}
	r.startTicker()
	r.touch()
	r.publish(events.SessionResumed, r.snapshot())
	return r.snapshot(), nil
}

func (r *sessionRunner) Cancel() (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.session.ID
	if err := r.session.Cancel(); err != nil {
		return nil, err
	}
	r.stopTicker()
	r.applyPendingPlan()
	r.touch()
	r.publish(events.SessionCancelled, map[string]string{"session_id": id})
	return r.snapshot(), nil
}

func (r *sessionRunner) Claim() (*domain.SessionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.session.Claim()
	if err != nil {
		return nil, err
	}
	r.applyPendingPlan()
	r.touch()
	return result, nil
}

// PlanChanged records the user's new default. A ready session switches now;
// an active one keeps its duration until it returns to ready.
func (r *sessionRunner) PlanChanged(minutes int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.planMinutes = minutes
	if r.session.Active() {
		r.planPending = true
		return
	}
	r.applyPlan()
}

// Retry re-sends the completion report for sessionID when the runner holds
// it completed and uncredited. Any other id was cancelled, already claimed or
// never started here, and is stale.
func (r *sessionRunner) Retry(ctx context.Context, sessionID string) (*domain.SessionResult, error) {
	r.mu.Lock()
	if sessionID == "" || r.session.ID != sessionID {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %q is not a completed session", domain.ErrStaleSession, sessionID)
	}
	if r.session.Result != nil {
		res := *r.session.Result
		r.mu.Unlock()
		return &res, nil
	}
	report, err := r.session.Report()
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.deliver(ctx, report)
}

func (r *sessionRunner) Session() *domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// Stop halts the ticker without changing the session state.
func (r *sessionRunner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTicker()
}

func (r *sessionRunner) idleSince() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActive, !r.session.Active()
}

func (r *sessionRunner) startTicker() {
	r.stopTicker()
	r.stop = make(chan struct{})
	go r.run(r.gen, r.stop)
}

func (r *sessionRunner) stopTicker() {
	r.gen++
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
}

func (r *sessionRunner) run(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			report, done, alive := r.tick(gen)
			if !alive {
				return
			}
			if done {
				ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
				_, _ = r.deliver(ctx, report)
				cancel()
				return
			}

		case <-stop:
			return
		}
	}
}

func (r *sessionRunner) tick(gen uint64) (domain.CompletionReport, bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen {
		return domain.CompletionReport{}, false, false
	}
	completed := r.session.Tick(r.clock.Now())
	r.publish(events.SessionTick, events.TickData{
		SessionID:    r.session.ID,
		RemainingSec: r.session.RemainingSec,
		Clock:        domain.FormatClock(r.session.RemainingSec),
	})
	if !completed {
		return domain.CompletionReport{}, false, true
	}

	r.gen++
	r.stop = nil
	r.touch()
	r.publish(events.SessionCompleted, r.snapshot())
	report, _ := r.session.Report()
	return report, true, true
}

func (r *sessionRunner) deliver(ctx context.Context, report domain.CompletionReport) (*domain.SessionResult, error) {
	result, err := r.reporter.CompleteSession(ctx, r.session.UserID, report)
	if err != nil {
		if errors.Is(err, domain.ErrStaleSession) {
			// Another delivery may have won the race.
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.session.ID == report.SessionID && r.session.Result != nil {
				res := *r.session.Result
				return &res, nil
			}
		}
		r.logger.Warn("completion report failed",
			"user_id", r.session.UserID,
			"session_id", report.SessionID,
			"error", err,
		)
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session.ID == report.SessionID && r.session.Status == domain.StatusCompleted {
		r.session.Result = result
	}
	r.publish(events.SessionCredited, result)
	res := *result
	return &res, nil
}

// applyPendingPlan keeps the user's own selection unless the plan changed
// while the session was active.
func (r *sessionRunner) applyPendingPlan() {
	if r.planPending {
		r.planPending = false
		r.applyPlan()
	}
}

func (r *sessionRunner) applyPlan() {
	if r.planMinutes != 0 && r.planMinutes != r.session.SelectedMinutes {
		_ = r.session.Select(r.planMinutes)
	}
}

func (r *sessionRunner) touch() {
	r.lastActive = r.clock.Now()
}

func (r *sessionRunner) snapshot() *domain.Session {
	s := *r.session
	if s.Result != nil {
		res := *s.Result
		s.Result = &res
	}
	return &s
}

func (r *sessionRunner) publish(t events.Type, data any) {
	r.events.Publish(events.Event{Type: t, UserID: r.session.UserID, Data: data, Timestamp: r.clock.Now()})
}
