package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Liability is a debt owed by the user that is paid down over time.
type Liability struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user"`
	Title       string          `json:"title"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	DueDate     *Date           `json:"due_date"`
	IsSettled   bool            `json:"is_settled"`
	CreatedAt   time.Time       `json:"created_at"`
}

// RemainingAmount is total minus paid. It is never stored.
func (l Liability) RemainingAmount() decimal.Decimal {
	return l.TotalAmount.Sub(l.PaidAmount)
}

// Validate checks a liability before it is first stored.
func (l Liability) Validate() error {
	if strings.TrimSpace(l.Title) == "" {
		return required("title")
	}
	if len(l.Title) > 255 {
		return &FieldError{Field: "title", Message: "at most 255 characters"}
	}
	if !l.TotalAmount.IsPositive() {
		return &FieldError{Field: "total_amount", Message: ErrNonPositiveAmount.Error()}
	}
	if l.PaidAmount.IsNegative() {
		return &FieldError{Field: "paid_amount", Message: ErrNegativeAmount.Error()}
	}
	if l.PaidAmount.GreaterThan(l.TotalAmount) {
		return &FieldError{Field: "paid_amount", Message: "cannot exceed total_amount"}
	}
	return nil
}

// RefreshSettled recomputes the cached settled flag from the amounts.
func (l *Liability) RefreshSettled() {
	l.IsSettled = !l.RemainingAmount().IsPositive()
}

// ApplyPayment increases the paid amount by amount.
// On error the liability is left untouched.
func (l *Liability) ApplyPayment(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if amount.GreaterThan(l.RemainingAmount()) {
		return ErrExceedsRemaining
	}
	l.PaidAmount = l.PaidAmount.Add(amount)
	l.RefreshSettled()
	return nil
}

// PaymentExpense is the ledger entry recorded for a pay-down of l.
func (l Liability) PaymentExpense(amount decimal.Decimal, date Date) Expense {
	return Expense{
		UserID:      l.UserID,
		Category:    CategoryLiability,
		Amount:      amount,
		Date:        date,
		Description: "Payment for " + l.Title,
	}
}
