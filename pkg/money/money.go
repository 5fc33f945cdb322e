// Package money converts between decimal major units used on the wire and the
// int64 minor units stored in the ledger.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// MinorDigits is the number of decimal places of the ledger currency.
const MinorDigits = 2

var (
	ErrNotPositive  = errors.New("amount must be positive")
	ErrTooPrecise   = errors.New("amount has more than two decimal places")
	ErrOutOfRange   = errors.New("amount is out of range")
	maxMinor        = decimal.New(1, 15)
	minorUnitFactor = decimal.New(1, MinorDigits)
)

// ToMinor converts a positive decimal amount such as 3.50 into minor units (350).
func ToMinor(d decimal.Decimal) (int64, error) {
	if !d.IsPositive() {
		return 0, ErrNotPositive
	}
	minor := d.Mul(minorUnitFactor)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, ErrTooPrecise
	}
	if minor.GreaterThanOrEqual(maxMinor) {
		return 0, ErrOutOfRange
	}
	return minor.IntPart(), nil
}

// FromMinor converts minor units back to a decimal in major units.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -MinorDigits)
}

// Format renders minor units with exactly two decimals, e.g. 300 -> "3.00".
func Format(minor int64) string {
	return FromMinor(minor).StringFixed(MinorDigits)
}
