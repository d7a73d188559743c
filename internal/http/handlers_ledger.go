package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
)

type incomeRequest struct {
	Source      string    `json:"source"`
	Amount      Amount    `json:"amount"`
	Date        core.Date `json:"date"`
	Description string    `json:"description"`
}

func (req incomeRequest) toIncome(userID int64) (core.Income, error) {
	amount, err := req.Amount.Required("amount")
	if err != nil {
		return core.Income{}, err
	}
	if err := requiredDate(req.Date, "date"); err != nil {
		return core.Income{}, err
	}
	return core.Income{
		UserID:      userID,
		Source:      strings.TrimSpace(req.Source),
		Amount:      amount,
		Date:        req.Date,
		Description: strings.TrimSpace(req.Description),
	}, nil
}

func (s *Server) handleListIncome(w http.ResponseWriter, r *http.Request) {
	incomes, err := s.store.ListIncomes(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, incomes)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.toIncome(userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.ledger.CreateIncome(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := s.store.GetIncome(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.toIncome(userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	in.ID = id

	if err := s.ledger.UpdateIncome(r.Context(), in); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.store.GetIncome(r.Context(), in.UserID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteIncome(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type expenseRequest struct {
	Category    string    `json:"category"`
	Amount      Amount    `json:"amount"`
	Date        core.Date `json:"date"`
	Description string    `json:"description"`
}

func (req expenseRequest) toExpense(userID int64) (core.Expense, error) {
	if strings.TrimSpace(req.Category) == "" {
		return core.Expense{}, &core.FieldError{Field: "category", Message: "this field is required"}
	}
	category, err := core.ParseCategory(req.Category)
	if err != nil {
		return core.Expense{}, err
	}
	amount, err := req.Amount.Required("amount")
	if err != nil {
		return core.Expense{}, err
	}
	if err := requiredDate(req.Date, "date"); err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		UserID:      userID,
		Category:    category,
		Amount:      amount,
		Date:        req.Date,
		Description: strings.TrimSpace(req.Description),
	}, nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.store.ListExpenses(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := req.toExpense(userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.ledger.CreateExpense(r.Context(), e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.store.GetExpense(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := req.toExpense(userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	e.ID = id

	if err := s.ledger.UpdateExpense(r.Context(), e); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.store.GetExpense(r.Context(), e.UserID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteExpense(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
