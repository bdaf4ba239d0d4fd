package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrAmountMissing  = errors.New("amount is required")
	ErrAmountInvalid  = errors.New("amount is not a number")
	ErrAmountNegative = errors.New("amount must be greater than zero")
)

// Amount is a decimal string as typed by the user, in the campaign's local currency.
type Amount string

// IsZero reports whether the amount was left empty.
func (a Amount) IsZero() bool { return strings.TrimSpace(string(a)) == "" }

// Decimal parses the amount exactly.
func (a Amount) Decimal() (decimal.Decimal, error) {
	s := strings.TrimSpace(string(a))
	if s == "" {
		return decimal.Zero, ErrAmountMissing
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrAmountInvalid
	}
	return d, nil
}

// Positive parses the amount and requires it to be strictly positive.
func (a Amount) Positive() (float64, error) {
	d, err := a.Decimal()
	if err != nil {
		return 0, err
	}
	if !d.IsPositive() {
		return 0, ErrAmountNegative
	}
	f, _ := d.Float64()
	return f, nil
}
