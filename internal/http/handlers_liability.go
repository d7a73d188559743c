package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
)

type liabilityRequest struct {
	Title       string     `json:"title"`
	TotalAmount Amount     `json:"total_amount"`
	PaidAmount  Amount     `json:"paid_amount"`
	DueDate     *core.Date `json:"due_date"`
}

func optionalDate(d *core.Date) *core.Date {
	if d == nil || d.IsZero() {
		return nil
	}
	return d
}

func (s *Server) handleListLiabilities(w http.ResponseWriter, r *http.Request) {
	ls, err := s.store.ListLiabilities(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLiabilityViews(ls))
}

func (s *Server) handleCreateLiability(w http.ResponseWriter, r *http.Request) {
	var req liabilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	total, err := req.TotalAmount.Required("total_amount")
	if err != nil {
		writeError(w, r, err)
		return
	}
	paid, err := req.PaidAmount.Optional("paid_amount")
	if err != nil {
		writeError(w, r, err)
		return
	}

	l := core.Liability{
		UserID:      userID(r),
		Title:       strings.TrimSpace(req.Title),
		TotalAmount: total,
		PaidAmount:  paid,
		DueDate:     optionalDate(req.DueDate),
	}
	l.RefreshSettled()

	created, err := s.ledger.CreateLiability(r.Context(), l)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newLiabilityView(created))
}

func (s *Server) handleGetLiability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := s.store.GetLiability(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLiabilityView(l))
}

// handleUpdateLiability edits title and due date. Amount fields in the body
// are ignored; pay-downs go through the pay endpoint.
func (s *Server) handleUpdateLiability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req liabilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.ledger.UpdateLiabilityDetails(r.Context(), core.Liability{
		ID:      id,
		UserID:  userID(r),
		Title:   strings.TrimSpace(req.Title),
		DueDate: optionalDate(req.DueDate),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLiabilityView(updated))
}

func (s *Server) handleDeleteLiability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteLiability(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type payRequest struct {
	Amount Amount     `json:"amount"`
	Date   *core.Date `json:"date"`
}

func (s *Server) handlePayLiability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req payRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.ledger.PayLiability(r.Context(), userID(r), id, req.Amount.Raw(), optionalDate(req.Date))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
