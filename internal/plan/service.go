package plan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hperssn/focusbean/internal/clock"
	"github.com/hperssn/focusbean/internal/domain"
	"github.com/hperssn/focusbean/internal/events"
	"github.com/hperssn/focusbean/internal/storage"
)

const maxHistory = 100

// Onboarding is a submitted quiz. Either Answers is set, or Score together
// with the Archetype the client derived from it.
type Onboarding struct {
	Answers          []domain.ScoredAnswer
	Score            *int
	Archetype        domain.Archetype
	PreferredMinutes int
}

// Listener is told about every plan that was saved.
type Listener func(userID string, p domain.Plan)

// Service owns the user's archetype and session length: onboarding, the
// weekly review and the weekly progress summary.
type Service struct {
	repo       storage.Repository
	classifier *domain.Classifier
	events     events.Publisher
	clock      clock.Clock
	logger     *slog.Logger
	listeners  []Listener
}

type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithClassifier(c *domain.Classifier) Option {
	return func(s *Service) { s.classifier = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithListener(l Listener) Option {
	return func(s *Service) { s.listeners = append(s.listeners, l) }
}

func NewService(repo storage.Repository, pub events.Publisher, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		classifier: domain.NewClassifier(),
		events:     pub,
		clock:      clock.System{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.events == nil {
		s.events = events.Discard{}
	}
	return s
}

func (s *Service) Profile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return s.repo.GetProfile(ctx, userID)
}

// PlanMinutes is the session length a fresh ready session starts with.
func (s *Service) PlanMinutes(ctx context.Context, userID string) (int, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return 0, err
	}
	return p.Plan().Minutes, nil
}

func (s *Service) SubmitOnboarding(ctx context.Context, userID string, in Onboarding) (*domain.UserProfile, error) {
	c, err := s.classify(in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveOnboarding(ctx, userID, c); err != nil {
		return nil, err
	}

	s.logger.Info("user onboarded", "user_id", userID, "archetype", c.Archetype, "score", c.Score)
	s.notify(userID, domain.Plan{Archetype: c.Archetype, Minutes: c.PreferredMinutes})
	return s.repo.GetProfile(ctx, userID)
}

func (s *Service) classify(in Onboarding) (domain.Classification, error) {
	if len(in.Answers) > 0 || in.Score == nil {
		return s.classifier.Classify(in.Answers, in.PreferredMinutes)
	}

	score := *in.Score
	if score < 0 || score > domain.MaxQuizScore {
		return domain.Classification{}, fmt.Errorf("%w: score %d", domain.ErrInvalidAnswer, score)
	}
	if !domain.IsPreferenceMinutes(in.PreferredMinutes) {
		return domain.Classification{}, fmt.Errorf("%w: preference %d", domain.ErrInvalidMinutes, in.PreferredMinutes)
	}
	want := domain.ArchetypeForScore(score)
	if in.Archetype != want {
		return domain.Classification{}, fmt.Errorf("%w: score %d is archetype %s, not %q",
			domain.ErrInvalidArchetype, score, want, in.Archetype)
	}
	policy := s.classifier.Policy
	if policy == nil {
		policy = domain.IgnorePreference
	}
	return domain.Classification{
		Archetype:        want,
		Score:            score,
		PreferredMinutes: policy(want, in.PreferredMinutes),
		StatedPreference: in.PreferredMinutes,
	}, nil
}

// IsReviewDue reports whether the weekly review should be offered now.
func (s *Service) IsReviewDue(ctx context.Context, userID string) (bool, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return false, err
	}
	if !p.Onboarded() {
		return false, nil
	}
	return domain.ReviewDue(p.CreatedAt, p.LastWeeklyReviewAt, s.clock.Now()), nil
}

// ReviewOptions lists the decisions available from the user's current plan.
func (s *Service) ReviewOptions(ctx context.Context, userID string) (domain.Plan, []domain.Option, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return domain.Plan{}, nil, err
	}
	current := p.Plan()
	return current, domain.Options(current.Archetype), nil
}

// ApplyDecision moves the user along the weekly transition table. A decision
// with no edge from the current archetype changes nothing and reports false.
func (s *Service) ApplyDecision(ctx context.Context, userID string, d domain.Decision) (domain.Plan, bool, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return domain.Plan{}, false, err
	}
	if !p.Onboarded() {
		return domain.Plan{}, false, domain.ErrNotOnboarded
	}

	next, applied := domain.ApplyDecision(p.Plan(), d)
	if !applied {
		return next, false, nil
	}
	if err := s.save(ctx, userID, next); err != nil {
		return domain.Plan{}, false, err
	}
	return next, true, nil
}

// UpdatePlan stores an explicit archetype and minutes pair. The minutes must
// be the archetype's default.
func (s *Service) UpdatePlan(ctx context.Context, userID string, next domain.Plan) (domain.Plan, error) {
	if err := domain.ValidatePlan(next); err != nil {
		return domain.Plan{}, err
	}
	if err := s.save(ctx, userID, next); err != nil {
		return domain.Plan{}, err
	}
	return next, nil
}

func (s *Service) WeeklyStats(ctx context.Context, userID string) (*domain.WeeklyStats, error) {
	now := s.clock.Now()
	records, err := s.repo.GetRecentSessions(ctx, userID, domain.WeekStart(now))
	if err != nil {
		return nil, err
	}
	sessions := make([]domain.CompletedSession, 0, len(records))
	for _, r := range records {
		sessions = append(sessions, domain.CompletedSession{Minutes: r.DurationMinutes, CompletedAt: r.CompletedAt})
	}
	stats := domain.SummarizeWeek(sessions, now)
	return &stats, nil
}

// History returns the newest credited sessions first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]storage.SessionRecord, error) {
	if limit <= 0 || limit > maxHistory {
		limit = maxHistory
	}
	return s.repo.GetSessionsByUser(ctx, userID, limit)
}

func (s *Service) Totals(ctx context.Context, userID string) (*storage.SessionStats, error) {
	return s.repo.GetSessionStats(ctx, userID)
}

func (s *Service) save(ctx context.Context, userID string, p domain.Plan) error {
	if err := s.repo.SavePlan(ctx, userID, p, s.clock.Now()); err != nil {
		return err
	}
	s.logger.Info("plan updated", "user_id", userID, "archetype", p.Archetype, "minutes", p.Minutes)
	s.notify(userID, p)
	return nil
}

func (s *Service) notify(userID string, p domain.Plan) {
	s.events.Publish(events.Event{Type: events.PlanUpdated, UserID: userID, Data: p, Timestamp: s.clock.Now()})
	for _, l := range s.listeners {
		l(userID, p)
	}
}
