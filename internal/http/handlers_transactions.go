package http

import (
	"errors"
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/middleware/auth"
)

const msgTransactionNotFound = "Transaction not found"

type transactionResponse struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Amount    core.Money `json:"amount"`
	Category  string     `json:"category"`
	Type      string     `json:"type"`
	Note      *string    `json:"note"`
	Date      time.Time  `json:"date"`
	CreatedAt time.Time  `json:"created_at"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:        t.ID,
		Title:     t.Title,
		Amount:    t.Amount,
		Category:  t.Category,
		Type:      t.Type.String(),
		Note:      t.Note,
		Date:      t.Date.UTC(),
		CreatedAt: t.CreatedAt.UTC(),
	}
}

// transactionErr gives a missing transaction its client-facing message.
func transactionErr(err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return &core.Error{Kind: core.ErrNotFound, Message: msgTransactionNotFound}
	}
	return err
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	f, err := parseListFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	txs, err := s.deps.Transactions.List(r.Context(), userID, f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	in, err := s.readTransaction(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.deps.Transactions.Create(r.Context(), userID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(t))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.deps.Transactions.Get(r.Context(), id, userID)
	if err != nil {
		s.writeError(w, r, transactionErr(err))
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := s.readTransaction(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.deps.Transactions.Update(r.Context(), id, userID, in)
	if err != nil {
		s.writeError(w, r, transactionErr(err))
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.Transactions.Delete(r.Context(), id, userID); err != nil {
		s.writeError(w, r, transactionErr(err))
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Transaction deleted successfully"})
}

func (s *Server) readTransaction(w http.ResponseWriter, r *http.Request) (core.TransactionInput, error) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return core.TransactionInput{}, err
	}
	return req.toInput()
}
