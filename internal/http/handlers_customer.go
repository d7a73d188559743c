package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
)

type customerRequest struct {
	Name               string     `json:"name"`
	ProjectName        string     `json:"project_name"`
	DomainName         string     `json:"domain_name"`
	Description        string     `json:"description"`
	TotalAmount        Amount     `json:"total_amount"`
	AdvanceAmount      Amount     `json:"advance_amount"`
	IsPaymentConfirmed bool       `json:"is_payment_confirmed"`
	IsProjectDelivered bool       `json:"is_project_delivered"`
	DeliveryDate       *core.Date `json:"delivery_date"`
}

func (req customerRequest) toCustomer(userID int64) (core.Customer, error) {
	total, err := req.TotalAmount.Required("total_amount")
	if err != nil {
		return core.Customer{}, err
	}
	advance, err := req.AdvanceAmount.Optional("advance_amount")
	if err != nil {
		return core.Customer{}, err
	}
	c := core.Customer{
		UserID:             userID,
		Name:               strings.TrimSpace(req.Name),
		ProjectName:        strings.TrimSpace(req.ProjectName),
		DomainName:         strings.TrimSpace(req.DomainName),
		Description:        strings.TrimSpace(req.Description),
		TotalAmount:        total,
		AdvanceAmount:      advance,
		IsPaymentConfirmed: req.IsPaymentConfirmed,
		IsProjectDelivered: req.IsProjectDelivered,
		DeliveryDate:       optionalDate(req.DeliveryDate),
	}
	return c, c.Validate()
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	cs, err := s.store.ListCustomers(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCustomerViews(cs))
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := req.toCustomer(userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.store.CreateCustomer(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCustomerView(created))
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.store.GetCustomer(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCustomerView(c))
}

func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req customerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := req.toCustomer(userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	c.ID = id

	if err := s.store.UpdateCustomer(r.Context(), c); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.store.GetCustomer(r.Context(), c.UserID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCustomerView(updated))
}

func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.DeleteCustomer(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type customerPaymentRequest struct {
	Customer int64     `json:"customer"`
	Amount   Amount    `json:"amount"`
	Date     core.Date `json:"date"`
	Note     string    `json:"note"`
}

func (req customerPaymentRequest) toPayment() (core.CustomerPayment, error) {
	amount, err := req.Amount.Required("amount")
	if err != nil {
		return core.CustomerPayment{}, err
	}
	return core.CustomerPayment{
		CustomerID: req.Customer,
		Amount:     amount,
		Date:       req.Date,
		Note:       strings.TrimSpace(req.Note),
	}, nil
}

func (s *Server) handleListCustomerPayments(w http.ResponseWriter, r *http.Request) {
	customerID, err := queryID(r, "customer")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ps, err := s.store.ListCustomerPayments(r.Context(), userID(r), customerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// handleCreateCustomerPayment posts a payment together with its income.
func (s *Server) handleCreateCustomerPayment(w http.ResponseWriter, r *http.Request) {
	var req customerPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := req.toPayment()
	if err != nil {
		writeError(w, r, err)
		return
	}

	uid := userID(r)
	paymentID, _, err := s.ledger.PostCustomerPayment(r.Context(), uid, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.store.GetCustomerPayment(r.Context(), uid, paymentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetCustomerPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.store.GetCustomerPayment(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleUpdateCustomerPayment edits the payment only. Its income entry is
// left as it was.
func (s *Server) handleUpdateCustomerPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req customerPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := req.toPayment()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := requiredDate(p.Date, "date"); err != nil {
		writeError(w, r, err)
		return
	}
	if err := p.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	p.ID = id

	uid := userID(r)
	if err := s.store.UpdateCustomerPayment(r.Context(), uid, p); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.store.GetCustomerPayment(r.Context(), uid, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCustomerPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.DeleteCustomerPayment(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
