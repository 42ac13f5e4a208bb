package web

import (
	"fmt"
	"net/http"

	"scandemo/internal/apiclient"
	"scandemo/internal/auth"
	apperrors "scandemo/internal/errors"
)

// requireAuth rejects requests without a valid bearer token when the server
// runs with auth required.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	if !s.cfg.AuthRequired {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.userFromRequest(r); err != nil {
			writeError(w, err)
			return
		}
		next(w, r)
	})
}

func (s *Server) userFromRequest(r *http.Request) (auth.User, error) {
	token, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return auth.User{}, fmt.Errorf("missing bearer token: %w", apperrors.ErrUnauthorized)
	}
	return s.accounts.UserForToken(token)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req apiclient.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	u, err := s.accounts.Register(req.Email, req.Password, req.FullName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req apiclient.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.accounts.Login(req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		writeError(w, fmt.Errorf("missing bearer token: %w", apperrors.ErrUnauthorized))
		return
	}
	if err := s.accounts.Logout(token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiclient.MessageResponse{Message: "Logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.userFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
