package core

import (
	"errors"
	"testing"
)

func TestLiabilityApplyPayment(t *testing.T) {
	cases := []struct {
		name        string
		total, paid string
		amount      string
		wantErr     error
		wantPaid    string
		wantSettled bool
	}{
		{"partial", "1000", "200", "300", nil, "500", false},
		{"exact settle", "1000", "200", "800", nil, "1000", true},
		{"overpay", "1000", "200", "800.01", ErrExceedsRemaining, "200", false},
		{"zero", "1000", "0", "0", ErrNonPositiveAmount, "0", false},
		{"negative", "1000", "0", "-5", ErrNonPositiveAmount, "0", false},
		{"fractional exact", "0.3", "0.1", "0.2", nil, "0.3", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := Liability{Title: "Car", TotalAmount: dec(tc.total), PaidAmount: dec(tc.paid)}
			err := l.ApplyPayment(dec(tc.amount))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if !l.PaidAmount.Equal(dec(tc.wantPaid)) {
				t.Fatalf("paid: expected %s, got %s", tc.wantPaid, l.PaidAmount)
			}
			if l.IsSettled != tc.wantSettled {
				t.Fatalf("settled: expected %v, got %v", tc.wantSettled, l.IsSettled)
			}
		})
	}
}

func TestLiabilityValidate(t *testing.T) {
	ok := Liability{Title: "Loan", TotalAmount: dec("100"), PaidAmount: dec("20")}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []Liability{
		{Title: "", TotalAmount: dec("100")},
		{Title: "Loan", TotalAmount: dec("0")},
		{Title: "Loan", TotalAmount: dec("100"), PaidAmount: dec("-1")},
		{Title: "Loan", TotalAmount: dec("100"), PaidAmount: dec("101")},
	}
	for i, l := range bads {
		if err := l.Validate(); !IsValidation(err) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestLiabilityPaymentExpense(t *testing.T) {
	l := Liability{UserID: 7, Title: "Car loan"}
	e := l.PaymentExpense(dec("300"), NewDate(2024, 5, 1))
	if e.Category != CategoryLiability || e.Description != "Payment for Car loan" || e.UserID != 7 {
		t.Fatalf("unexpected expense %+v", e)
	}
	if !e.Amount.Equal(dec("300")) || e.Date.String() != "2024-05-01" {
		t.Fatalf("unexpected amount/date %+v", e)
	}
}

func TestDerivedLedgerEntries(t *testing.T) {
	emp := Employee{UserID: 3, Name: "Ana"}
	e := emp.SalaryExpense(SalaryPayment{Amount: dec("1500"), PaymentDate: NewDate(2024, 6, 30)})
	if e.Description != "Salary Payment: Ana (Salary Payment)" || e.Category != CategorySalary {
		t.Fatalf("unexpected salary expense %+v", e)
	}
	e = emp.SalaryExpense(SalaryPayment{Amount: dec("200"), Title: "Bonus", PaymentDate: NewDate(2024, 6, 30)})
	if e.Description != "Salary Payment: Ana (Bonus)" {
		t.Fatalf("unexpected description %q", e.Description)
	}

	c := Customer{UserID: 3, Name: "Acme", ProjectName: "Shop", AdvanceAmount: dec("100"), TotalAmount: dec("1000")}
	in := c.PaymentIncome(CustomerPayment{Amount: dec("250"), Date: NewDate(2024, 6, 1), Note: "milestone 1"})
	if in.Source != "Shop (Acme)" || in.Description != "Customer payment: milestone 1" {
		t.Fatalf("unexpected income %+v", in)
	}
	in = c.PaymentIncome(CustomerPayment{Amount: dec("250"), Date: NewDate(2024, 6, 1)})
	if in.Description != "Customer payment" {
		t.Fatalf("unexpected description %q", in.Description)
	}

	c.PaymentsTotal = dec("250")
	if !c.TotalPaid().Equal(dec("350")) || !c.Remaining().Equal(dec("650")) {
		t.Fatalf("unexpected totals paid=%s remaining=%s", c.TotalPaid(), c.Remaining())
	}
}
