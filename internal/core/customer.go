package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Customer is a client project billed by the user.
type Customer struct {
	ID                 int64           `json:"id"`
	UserID             int64           `json:"user"`
	Name               string          `json:"name"`
	ProjectName        string          `json:"project_name"`
	DomainName         string          `json:"domain_name"`
	Description        string          `json:"description"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	AdvanceAmount      decimal.Decimal `json:"advance_amount"`
	IsPaymentConfirmed bool            `json:"is_payment_confirmed"`
	IsProjectDelivered bool            `json:"is_project_delivered"`
	DeliveryDate       *Date           `json:"delivery_date"`
	CreatedAt          time.Time       `json:"created_at"`

	// PaymentsTotal is the sum of recorded CustomerPayment amounts,
	// filled in by the store on read.
	PaymentsTotal decimal.Decimal `json:"-"`
}

func (c Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return required("name")
	}
	if strings.TrimSpace(c.ProjectName) == "" {
		return required("project_name")
	}
	if c.TotalAmount.IsNegative() {
		return &FieldError{Field: "total_amount", Message: ErrNegativeAmount.Error()}
	}
	if c.AdvanceAmount.IsNegative() {
		return &FieldError{Field: "advance_amount", Message: ErrNegativeAmount.Error()}
	}
	return nil
}

// TotalPaid is the advance plus every recorded payment.
func (c Customer) TotalPaid() decimal.Decimal {
	return c.AdvanceAmount.Add(c.PaymentsTotal)
}

// Remaining may go negative when a customer overpays.
func (c Customer) Remaining() decimal.Decimal {
	return c.TotalAmount.Sub(c.TotalPaid())
}

// PaymentIncome is the ledger entry recorded for payment p from c.
func (c Customer) PaymentIncome(p CustomerPayment) Income {
	desc := "Customer payment"
	if note := strings.TrimSpace(p.Note); note != "" {
		desc += ": " + note
	}
	return Income{
		UserID:      c.UserID,
		Source:      c.ProjectName + " (" + c.Name + ")",
		Amount:      p.Amount,
		Date:        p.Date,
		Description: desc,
	}
}

// SalaryExpense is the ledger entry recorded for salary payment p to e.
func (e Employee) SalaryExpense(p SalaryPayment) Expense {
	title := p.Title
	if strings.TrimSpace(title) == "" {
		title = DefaultSalaryTitle
	}
	return Expense{
		UserID:      e.UserID,
		Category:    CategorySalary,
		Amount:      p.Amount,
		Date:        p.PaymentDate,
		Description: "Salary Payment: " + e.Name + " (" + title + ")",
	}
}
