package http

import (
	"net/http"

	"fintrack/internal/middleware/auth"
)

type (
	askRequest struct {
		Question string `json:"question"`
	}

	askResponse struct {
		Answer string `json:"answer"`
	}

	insightsResponse struct {
		Insights []string `json:"insights"`
	}
)

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	insights, err := s.deps.Advisor.Insights(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, insightsResponse{Insights: insights})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	var req askRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	answer, err := s.deps.Advisor.Ask(r.Context(), userID, req.Question)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{Answer: answer})
}
