package http

import (
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// Response views add the values derived on read to the stored records.

type liabilityView struct {
	core.Liability
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
}

func newLiabilityView(l core.Liability) liabilityView {
	return liabilityView{Liability: l, RemainingAmount: l.RemainingAmount()}
}

func newLiabilityViews(ls []core.Liability) []liabilityView {
	out := make([]liabilityView, 0, len(ls))
	for _, l := range ls {
		out = append(out, newLiabilityView(l))
	}
	return out
}

type customerView struct {
	core.Customer
	TotalPaid decimal.Decimal `json:"total_paid"`
	Remaining decimal.Decimal `json:"remaining"`
}

func newCustomerView(c core.Customer) customerView {
	return customerView{Customer: c, TotalPaid: c.TotalPaid(), Remaining: c.Remaining()}
}

func newCustomerViews(cs []core.Customer) []customerView {
	out := make([]customerView, 0, len(cs))
	for _, c := range cs {
		out = append(out, newCustomerView(c))
	}
	return out
}

type userView struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

func newUserView(u core.User) userView {
	return userView{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339)}
}
