package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept for every amount.
const Scale = 2

// Parse reads a decimal amount from user input.
func Parse(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

// IsPositive reports whether d is greater than zero and representable in minor units.
func IsPositive(d decimal.Decimal) bool {
	return d.IsPositive() && fits(d)
}

// IsNonNegative reports whether d is zero or positive and representable in minor units.
func IsNonNegative(d decimal.Decimal) bool {
	return !d.IsNegative() && fits(d)
}

func fits(d decimal.Decimal) bool {
	return d.Equal(d.Round(Scale)) && d.Abs().LessThan(maxAmount)
}

// maxAmount keeps minor units within int64.
var maxAmount = decimal.New(1, 15)

// ToMinor converts an amount to integer minor units.
func ToMinor(d decimal.Decimal) int64 {
	return d.Shift(Scale).IntPart()
}

// FromMinor converts integer minor units to an amount.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -Scale)
}
