package web

import (
	"net/http"

	"avatarstudio/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// POST /auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	token, claims, err := s.Auth.Login(req.Username, req.Password)
	if err != nil {
		s.logger().Info("login failed", "username", req.Username)
		s.writeError(w, r, err)
		return
	}
	s.Auth.SetTokenCookie(w, token)
	writeJSON(w, http.StatusOK, claims.User())
}

// POST /auth/logout
func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	auth.ClearTokenCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /auth/me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, auth.ClaimsFrom(r.Context()).User())
}
