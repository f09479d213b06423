package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hperssn/focusbean/internal/auth"
	"github.com/hperssn/focusbean/internal/domain"
)

type sessionView struct {
	*domain.Session
	Clock string `json:"clock"`
}

func viewOf(s *domain.Session) sessionView {
	return sessionView{Session: s, Clock: domain.FormatClock(s.RemainingSec)}
}

func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Current(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, viewOf(sess), http.StatusOK)
}

func (s *Server) selectDuration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Minutes int    `json:"minutes"`
		Label   string `json:"label"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	sess, err := s.Sessions.Select(r.Context(), auth.UserID(r.Context()), req.Minutes, req.Label)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, viewOf(sess), http.StatusOK)
}

func (s *Server) sessionAction(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var (
		sess *domain.Session
		err  error
	)
	switch chi.URLParam(r, "action") {
	case "start":
		sess, err = s.Sessions.Start(r.Context(), userID)
	case "pause":
		sess, err = s.Sessions.Pause(userID)
	case "resume":
		sess, err = s.Sessions.Resume(userID)
	case "cancel":
		sess, err = s.Sessions.Cancel(userID)
	case "claim":
		s.claim(w, r)
		return
	default:
		respondError(w, "unknown session action", "NOT_FOUND", http.StatusNotFound)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, viewOf(sess), http.StatusOK)
}

func (s *Server) claim(w http.ResponseWriter, r *http.Request) {
	res, err := s.Sessions.Claim(auth.UserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	next := "dashboard"
	if res.FirstSessionOfDay {
		next = "streak"
	}
	respondJSON(w, struct {
		*domain.SessionResult
		Next string `json:"next"`
	}{res, next}, http.StatusOK)
}

// completeSession returns the credit for a session the server timed to zero,
// reporting it again if the automatic report failed. Duration and label are
// taken from the server's session, never from the request. Cancelled, claimed
// or unknown ids are stale.
func (s *Server) completeSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.SessionID == "" {
		badRequest(w, "session_id is required")
		return
	}

	res, err := s.Sessions.CompleteSession(r.Context(), auth.UserID(r.Context()), req.SessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, res, http.StatusOK)
}

func (s *Server) weeklyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Plans.WeeklyStats(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, stats, http.StatusOK)
}

func (s *Server) sessionHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.Plans.History(r.Context(), auth.UserID(r.Context()), queryLimit(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, records, http.StatusOK)
}

func (s *Server) sessionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Plans.Totals(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, stats, http.StatusOK)
}
