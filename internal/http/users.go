package httpapi

import (
	"net/http"

	"github.com/hperssn/focusbean/internal/auth"
	"github.com/hperssn/focusbean/internal/domain"
	"github.com/hperssn/focusbean/internal/plan"
)

type profileResponse struct {
	*domain.UserProfile
	Onboarded bool        `json:"onboarded"`
	Plan      domain.Plan `json:"plan"`
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.Plans.Profile(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, profileResponse{UserProfile: p, Onboarded: p.Onboarded(), Plan: p.Plan()}, http.StatusOK)
}

func (s *Server) submitOnboarding(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers          []domain.ScoredAnswer `json:"answers"`
		Score            *int                  `json:"score"`
		Archetype        string                `json:"archetype"`
		PreferredMinutes int                   `json:"preferred_minutes"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	p, err := s.Plans.SubmitOnboarding(r.Context(), auth.UserID(r.Context()), plan.Onboarding{
		Answers:          req.Answers,
		Score:            req.Score,
		Archetype:        domain.Archetype(req.Archetype),
		PreferredMinutes: req.PreferredMinutes,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, profileResponse{UserProfile: p, Onboarded: p.Onboarded(), Plan: p.Plan()}, http.StatusOK)
}

func (s *Server) checkWeeklyReview(w http.ResponseWriter, r *http.Request) {
	due, err := s.Plans.IsReviewDue(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, map[string]bool{"due": due}, http.StatusOK)
}

func (s *Server) reviewOptions(w http.ResponseWriter, r *http.Request) {
	current, opts, err := s.Plans.ReviewOptions(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, struct {
		Current domain.Plan     `json:"current"`
		Options []domain.Option `json:"options"`
	}{current, opts}, http.StatusOK)
}

func (s *Server) applyDecision(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Decision string `json:"decision"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	d, err := domain.ParseDecision(req.Decision)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	next, applied, err := s.Plans.ApplyDecision(r.Context(), auth.UserID(r.Context()), d)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, struct {
		Plan    domain.Plan `json:"plan"`
		Applied bool        `json:"applied"`
	}{next, applied}, http.StatusOK)
}

func (s *Server) updatePlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewArchetype string `json:"new_archetype"`
		NewMinutes   int    `json:"new_minutes"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	next, err := s.Plans.UpdatePlan(r.Context(), auth.UserID(r.Context()), domain.Plan{
		Archetype: domain.Archetype(req.NewArchetype),
		Minutes:   req.NewMinutes,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, struct {
		Message string      `json:"message"`
		Plan    domain.Plan `json:"plan"`
	}{"plan updated", next}, http.StatusOK)
}
