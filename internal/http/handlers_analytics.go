package http

import (
	"net/http"
	"strconv"
	"time"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/middleware/auth"
)

type (
	summaryResponse struct {
		TotalIncome   core.Money `json:"total_income"`
		TotalExpenses core.Money `json:"total_expenses"`
		NetBalance    core.Money `json:"net_balance"`
		SavingsRate   float64    `json:"savings_rate"`
	}

	categoryResponse struct {
		Category string     `json:"category"`
		Type     string     `json:"type"`
		Total    core.Money `json:"total"`
	}

	monthlyResponse struct {
		Month    string     `json:"month"`
		Income   core.Money `json:"income"`
		Expenses core.Money `json:"expenses"`
	}
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	sum, err := s.deps.Reports.Summary(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		TotalIncome:   sum.TotalIncome,
		TotalExpenses: sum.TotalExpenses,
		NetBalance:    sum.NetBalance,
		SavingsRate:   sum.SavingsRate.InexactFloat64(),
	})
}

func (s *Server) handleByCategory(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	totals, err := s.deps.Reports.ByCategory(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]categoryResponse, 0, len(totals))
	for _, c := range totals {
		out = append(out, categoryResponse{Category: c.Category, Type: c.Type.String(), Total: c.Total})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	months, err := s.deps.Reports.Monthly(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]monthlyResponse, 0, len(months))
	for _, m := range months {
		out = append(out, monthlyResponse{Month: m.Month, Income: m.Income, Expenses: m.Expenses})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	user, err := s.deps.Auth.Me(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rep, err := s.deps.Reports.Report(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	now := time.Now()
	body, err := analytics.BuildStatementPDF(rep, analytics.StatementMeta{Name: user.Name, Email: user.Email, GeneratedAt: now})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="statement-`+now.UTC().Format("2006-01-02")+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
