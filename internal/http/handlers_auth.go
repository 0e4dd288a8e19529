package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/middleware/auth"
	"fintrack/internal/services"
)

type (
	registerRequest struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	userResponse struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	tokenResponse struct {
		AccessToken string       `json:"access_token"`
		TokenType   string       `json:"token_type"`
		User        userResponse `json:"user"`
	}
)

func toUserResponse(u core.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

func toTokenResponse(s services.Session) tokenResponse {
	return tokenResponse{AccessToken: s.Token, TokenType: "bearer", User: toUserResponse(s.User)}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.deps.Auth.Register(r.Context(), sanitizeInput(req.Name), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTokenResponse(sess))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.deps.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponse(sess))
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	u, err := s.deps.Auth.Me(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}
