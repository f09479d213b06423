package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hperssn/focusbean/internal/auth"
	"github.com/hperssn/focusbean/internal/catalog"
	"github.com/hperssn/focusbean/internal/domain"
	"github.com/hperssn/focusbean/internal/events"
	"github.com/hperssn/focusbean/internal/plan"
	"github.com/hperssn/focusbean/internal/storage"
)

type Accounts interface {
	Register(ctx context.Context, in auth.Registration) (string, error)
	Login(ctx context.Context, email, password string) (*auth.Token, error)
}

type Plans interface {
	Profile(ctx context.Context, userID string) (*domain.UserProfile, error)
	SubmitOnboarding(ctx context.Context, userID string, in plan.Onboarding) (*domain.UserProfile, error)
	IsReviewDue(ctx context.Context, userID string) (bool, error)
	ReviewOptions(ctx context.Context, userID string) (domain.Plan, []domain.Option, error)
	ApplyDecision(ctx context.Context, userID string, d domain.Decision) (domain.Plan, bool, error)
	UpdatePlan(ctx context.Context, userID string, next domain.Plan) (domain.Plan, error)
	WeeklyStats(ctx context.Context, userID string) (*domain.WeeklyStats, error)
	History(ctx context.Context, userID string, limit int) ([]storage.SessionRecord, error)
	Totals(ctx context.Context, userID string) (*storage.SessionStats, error)
}

type Sessions interface {
	Current(ctx context.Context, userID string) (*domain.Session, error)
	Select(ctx context.Context, userID string, minutes int, label string) (*domain.Session, error)
	Start(ctx context.Context, userID string) (*domain.Session, error)
	Pause(userID string) (*domain.Session, error)
	Resume(userID string) (*domain.Session, error)
	Cancel(userID string) (*domain.Session, error)
	Claim(userID string) (*domain.SessionResult, error)
	CompleteSession(ctx context.Context, userID, sessionID string) (*domain.SessionResult, error)
}

type Ledger interface {
	Purchase(ctx context.Context, userID, itemID string, price int) (*domain.PurchaseResult, error)
	Spin(ctx context.Context, userID string) (*domain.SpinResult, error)
	Inventory(ctx context.Context, userID string) ([]domain.InventoryEntry, error)
	Entries(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error)
}

type Subscriber interface {
	Subscribe(userID string) (<-chan events.Event, func())
}

// Server holds what the handlers need.
type Server struct {
	Accounts Accounts
	Plans    Plans
	Sessions Sessions
	Ledger   Ledger
	Catalog  *catalog.Catalog
	Events   Subscriber

	Tokens            *auth.Tokens
	TrustedUserHeader string
	Logger            *slog.Logger
}

func (s *Server) Routes() http.Handler {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.Logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Post("/auth/register", s.register)
	r.Post("/auth/login", s.login)
	r.Get("/shop/items", s.shopItems)
	r.Get("/shop/wheel", s.shopWheel)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.Tokens, s.TrustedUserHeader, s.Logger))

		r.Get("/events", s.streamEvents)

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", s.getProfile)
			r.Post("/onboarding", s.submitOnboarding)
			r.Get("/check-weekly-review", s.checkWeeklyReview)
			r.Get("/weekly-review", s.reviewOptions)
			r.Post("/weekly-review", s.applyDecision)
			r.Post("/update-plan", s.updatePlan)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/complete", s.completeSession)
			r.Get("/weekly-stats", s.weeklyStats)
			r.Get("/history", s.sessionHistory)
			r.Get("/stats", s.sessionStats)

			r.Get("/current", s.currentSession)
			r.Put("/current", s.selectDuration)
			r.Post("/current/{action}", s.sessionAction)
		})

		r.Route("/gamification", func(r chi.Router) {
			r.Post("/buy", s.buy)
			r.Post("/spin", s.spin)
			r.Get("/inventory", s.inventory)
			r.Get("/ledger", s.ledger)
		})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
