package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"-5", "-5", true},
		{"0", "0", true},
		{"1.500", "1.5", true},
		{"300.004", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1,000.50", "", false},
		{"", "", false},
		{"1e9", "1000000000", true},
		{"9999999999.99", "9999999999.99", true},
		{"0.5e2", "50", true},
		{"-9999999999", "-9999999999", true},
		{"12345678901", "", false},
		{"1234567890123", "", false},
		{"1e10", "", false},
		{"1e50000000", "", false},
		{"-1e50000000", "", false},
		{"0e5", "0", true},
		{"0e50000000", "", false},
		{"1e-50000000", "", false},
		{"00000000000000000000000000000001", "1", true},
		{"000000000000000000000000000000001", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidAmountFormat) {
			t.Fatalf("%q expected ErrInvalidAmountFormat, got %v", tc.in, err)
		}
	}
}

func TestParseOptionalAmount(t *testing.T) {
	got, err := ParseOptionalAmount("  ")
	if err != nil || !got.IsZero() {
		t.Fatalf("expected zero, got %s (err=%v)", got, err)
	}
	if _, err := ParseOptionalAmount("x"); err == nil {
		t.Fatalf("expected error for bad input")
	}
}

func TestSum(t *testing.T) {
	got := Sum(decimal.RequireFromString("0.1"), decimal.RequireFromString("0.2"))
	if !got.Equal(decimal.RequireFromString("0.3")) {
		t.Fatalf("expected exact 0.3, got %s", got)
	}
	if !Sum().IsZero() {
		t.Fatalf("empty sum should be zero")
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(decimal.RequireFromString("300")); got != "300.00" {
		t.Fatalf("expected 300.00, got %s", got)
	}
	if got := FormatAmount(decimal.RequireFromString("0.1")); got != "0.10" {
		t.Fatalf("expected 0.10, got %s", got)
	}
}
