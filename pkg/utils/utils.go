package utils

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits every amount carries.
const MoneyPlaces = 2

// RoundMoney rounds half away from zero to 2 decimal places, which for the
// positive amounts the engine deals in is round-half-up.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// IsMoney reports whether d has no more than 2 fractional digits.
func IsMoney(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyPlaces))
}

// ErrAmountOutOfRange is returned when an amount has no int64 cents form.
var ErrAmountOutOfRange = errors.New("amount out of range")

var (
	minCents = decimal.NewFromInt(math.MinInt64)
	maxCents = decimal.NewFromInt(math.MaxInt64)
)

// FitsCents reports whether d can be stored as int64 minor units.
func FitsCents(d decimal.Decimal) bool {
	c := RoundMoney(d).Shift(MoneyPlaces)
	return !c.LessThan(minCents) && !c.GreaterThan(maxCents)
}

// ToCents converts an amount to integer minor units. Callers must have
// checked IsMoney; extra precision is rounded off.
func ToCents(d decimal.Decimal) (int64, error) {
	if !FitsCents(d) {
		return 0, fmt.Errorf("%w: %s", ErrAmountOutOfRange, d.String())
	}
	return RoundMoney(d).Shift(MoneyPlaces).IntPart(), nil
}

// FromCents converts integer minor units back to a 2-place decimal.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -MoneyPlaces)
}

// FormatMoney renders an amount with exactly two fractional digits.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}

// CalculateDueDate returns the due date of the given 1-based installment.
// Installment 1 is due one month after the start date.
func CalculateDueDate(startDate time.Time, month int) time.Time {
	return startDate.AddDate(0, month, 0)
}
