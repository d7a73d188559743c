package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// AmountScale is the number of decimal places kept for money.
	AmountScale = 2
	// AmountMaxDigits bounds the total digits of an amount, AmountScale of
	// them after the decimal point.
	AmountMaxDigits = 12

	maxAmountInputLen = 32
)

// ParseAmount converts a user supplied amount into a decimal.
//
// It accepts an optional sign, a dot decimal separator, or a single comma
// used as the decimal separator (12,34). More than AmountScale significant
// decimal places, or more than AmountMaxDigits-AmountScale integer digits, is
// a format error. Range checks (positive, within the
// remaining balance) are left to the caller since they differ per operation.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-5")    -> -5, nil
//	ParseAmount("abc")   -> 0, ErrInvalidAmountFormat
//	ParseAmount("1e50")  -> 0, ErrInvalidAmountFormat
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxAmountInputLen {
		return decimal.Zero, ErrInvalidAmountFormat
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmountFormat
	}
	// Checked on coefficient and exponent before any arithmetic: comparing
	// rescales the value, which is unbounded for large exponents.
	if !amountInBounds(d) {
		return decimal.Zero, ErrInvalidAmountFormat
	}
	if !d.Equal(d.Truncate(AmountScale)) {
		return decimal.Zero, ErrInvalidAmountFormat
	}
	return d, nil
}

// amountInBounds reports whether d has at most AmountMaxDigits-AmountScale
// integer digits and an exponent small enough to rescale cheaply.
func amountInBounds(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp < -maxAmountInputLen || exp > AmountMaxDigits {
		return false
	}
	coef := d.Coefficient()
	if coef.Sign() == 0 {
		return true
	}
	integerDigits := len(coef.Abs(coef).String()) + int(exp)
	return integerDigits <= AmountMaxDigits-AmountScale
}

// FormatAmount renders d the way it is stored, with AmountScale places.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}

// ParseOptionalAmount is ParseAmount with "" mapped to zero.
func ParseOptionalAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return ParseAmount(s)
}

// Sum adds amounts at full precision.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
