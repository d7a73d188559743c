package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
)

type employeeRequest struct {
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	BaseSalary Amount    `json:"base_salary"`
	Email      string    `json:"email"`
	JoinedDate core.Date `json:"joined_date"`
}

func (req employeeRequest) toEmployee(userID int64) (core.Employee, error) {
	salary, err := req.BaseSalary.Required("base_salary")
	if err != nil {
		return core.Employee{}, err
	}
	e := core.Employee{
		UserID:     userID,
		Name:       strings.TrimSpace(req.Name),
		Role:       strings.TrimSpace(req.Role),
		BaseSalary: salary,
		Email:      strings.TrimSpace(req.Email),
		JoinedDate: req.JoinedDate,
	}
	return e, e.Validate()
}

func (s *Server) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	es, err := s.store.ListEmployees(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, es)
}

// handleCreateEmployee stores a new employee. joined_date is always the
// creation day.
func (s *Server) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.JoinedDate = core.Date{}
	e, err := req.toEmployee(userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.store.CreateEmployee(r.Context(), e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.store.GetEmployee(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req employeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	current, err := s.store.GetEmployee(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req.JoinedDate = current.JoinedDate
	e, err := req.toEmployee(userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	e.ID = id

	if err := s.store.UpdateEmployee(r.Context(), e); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.DeleteEmployee(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type salaryPaymentRequest struct {
	Employee    int64     `json:"employee"`
	Amount      Amount    `json:"amount"`
	PaymentDate core.Date `json:"payment_date"`
	Title       string    `json:"title"`
}

func (req salaryPaymentRequest) toPayment() (core.SalaryPayment, error) {
	amount, err := req.Amount.Required("amount")
	if err != nil {
		return core.SalaryPayment{}, err
	}
	return core.SalaryPayment{
		EmployeeID:  req.Employee,
		Amount:      amount,
		PaymentDate: req.PaymentDate,
		Title:       strings.TrimSpace(req.Title),
	}, nil
}

func (s *Server) handleListPayroll(w http.ResponseWriter, r *http.Request) {
	employeeID, err := queryID(r, "employee")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ps, err := s.store.ListSalaryPayments(r.Context(), userID(r), employeeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// handleCreatePayroll posts a salary payment together with its Salary expense.
func (s *Server) handleCreatePayroll(w http.ResponseWriter, r *http.Request) {
	var req salaryPaymentRequest
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
	paymentID, _, err := s.ledger.PostSalaryPayment(r.Context(), uid, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.store.GetSalaryPayment(r.Context(), uid, paymentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetPayroll(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.store.GetSalaryPayment(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleUpdatePayroll edits the payment only. The expense booked when it
// was posted stays as it was.
func (s *Server) handleUpdatePayroll(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req salaryPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := req.toPayment()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := requiredDate(p.PaymentDate, "payment_date"); err != nil {
		writeError(w, r, err)
		return
	}
	if err := p.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	p.ID = id

	uid := userID(r)
	if err := s.store.UpdateSalaryPayment(r.Context(), uid, p); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.store.GetSalaryPayment(r.Context(), uid, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeletePayroll(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.DeleteSalaryPayment(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
