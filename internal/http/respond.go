package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/hperssn/focusbean/internal/auth"
	"github.com/hperssn/focusbean/internal/domain"
	"github.com/hperssn/focusbean/internal/economy"
	"github.com/hperssn/focusbean/internal/runner"
)

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Balance *int   `json:"balance,omitempty"`
}

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrIncompleteQuiz, http.StatusBadRequest, "INCOMPLETE_QUIZ"},
	{domain.ErrInvalidAnswer, http.StatusBadRequest, "INVALID_ANSWER"},
	{domain.ErrInvalidMinutes, http.StatusBadRequest, "INVALID_MINUTES"},
	{domain.ErrInvalidArchetype, http.StatusBadRequest, "INVALID_ARCHETYPE"},
	{domain.ErrInvalidTransition, http.StatusBadRequest, "INVALID_TRANSITION"},
	{domain.ErrInsufficientFunds, http.StatusBadRequest, "INSUFFICIENT_FUNDS"},
	{domain.ErrUnknownItem, http.StatusBadRequest, "UNKNOWN_ITEM"},
	{domain.ErrPriceMismatch, http.StatusBadRequest, "PRICE_MISMATCH"},
	{domain.ErrStaleSession, http.StatusConflict, "STALE_SESSION"},
	{domain.ErrInvalidState, http.StatusConflict, "INVALID_STATE"},
	{domain.ErrNotOnboarded, http.StatusConflict, "NOT_ONBOARDED"},
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{runner.ErrSessionActive, http.StatusConflict, "SESSION_ACTIVE"},
	{runner.ErrNoSession, http.StatusNotFound, "NO_SESSION"},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "UNAUTHORIZED"},
	{auth.ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
	{auth.ErrInvalidEmail, http.StatusBadRequest, "INVALID_EMAIL"},
	{auth.ErrWeakPassword, http.StatusBadRequest, "WEAK_PASSWORD"},
}

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, message, code string, status int) {
	respondJSON(w, errorBody{Error: message, Code: code}, status)
}

func badRequest(w http.ResponseWriter, message string) {
	respondError(w, message, "BAD_REQUEST", http.StatusBadRequest)
}

// fail maps a service error to its status and machine code. Anything
// unrecognised is logged and reported as 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range errorStatus {
		if !errors.Is(err, e.err) {
			continue
		}
		body := errorBody{Error: err.Error(), Code: e.code}
		var declined *economy.DeclinedError
		if errors.As(err, &declined) {
			balance := declined.Balance
			body.Balance = &balance
		}
		respondJSON(w, body, e.status)
		return
	}

	s.Logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
	respondError(w, "internal error", "INTERNAL", http.StatusInternalServerError)
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return n
}
