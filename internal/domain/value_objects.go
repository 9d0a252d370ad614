package domain

import (
	"github.com/shopspring/decimal"
)

// Money is a monetary amount in minor units. Binary floating point is never
// used for amounts; conversions to major units go through decimal.
type Money struct {
	Amount   int64
	Currency string
}

func NewMoney(amount int64, currency string) (Money, error) {
	if amount <= 0 {
		return Money{}, NewInvalidAmountError(amount)
	}
	if currency == "" {
		return Money{}, NewMissingRequiredFieldError("currency")
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// Decimal returns the amount in major units, e.g. 50000 -> 500.00.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -2)
}

// MinorToDecimal converts a raw minor-unit amount to major units.
func MinorToDecimal(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
