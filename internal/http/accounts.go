package httpapi

import (
	"net/http"
	"strings"

	"github.com/hperssn/focusbean/internal/auth"
)

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	id, err := s.Accounts.Register(r.Context(), auth.Registration{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, map[string]string{"message": "user created", "user_id": id}, http.StatusCreated)
}

// login accepts JSON {email, password} or an OAuth2 password form
// (username, password).
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var email, password string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			badRequest(w, "invalid form body")
			return
		}
		email, password = r.PostForm.Get("username"), r.PostForm.Get("password")
	} else {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decode(r, &req); err != nil {
			badRequest(w, "invalid request body")
			return
		}
		email, password = req.Email, req.Password
	}

	tok, err := s.Accounts.Login(r.Context(), email, password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, tok, http.StatusOK)
}
