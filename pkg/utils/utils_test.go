package utils

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundMoney(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "half rounds up", input: "8791.585", expected: "8791.59"},
		{name: "below half rounds down", input: "8791.5849", expected: "8791.58"},
		{name: "already two places", input: "105499.08", expected: "105499.08"},
		{name: "integer", input: "50000", expected: "50000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RoundMoney(decimal.RequireFromString(tt.input))
			assert.True(t, result.Equal(decimal.RequireFromString(tt.expected)),
				"Expected %v, but got %v", tt.expected, result)
		})
	}
}

func TestIsMoney(t *testing.T) {
	assert.True(t, IsMoney(decimal.RequireFromString("10.25")))
	assert.True(t, IsMoney(decimal.RequireFromString("10.2")))
	assert.True(t, IsMoney(decimal.RequireFromString("10.250")))
	assert.False(t, IsMoney(decimal.RequireFromString("10.251")))
}

func TestCentsRoundTrip(t *testing.T) {
	tests := []struct {
		amount string
		cents  int64
	}{
		{amount: "0.01", cents: 1},
		{amount: "8627.42", cents: 862742},
		{amount: "51764.52", cents: 5176452},
		{amount: "500000", cents: 50000000},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			d := decimal.RequireFromString(tt.amount)
			cents, err := ToCents(d)
			require.NoError(t, err)
			assert.Equal(t, tt.cents, cents)
			assert.True(t, FromCents(tt.cents).Equal(d))
		})
	}
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "50000.00", FormatMoney(decimal.NewFromInt(50000)))
	assert.Equal(t, "0.50", FormatMoney(decimal.RequireFromString("0.5")))
}

func TestCalculateDueDate(t *testing.T) {
	baseDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		month    int
		expected time.Time
	}{
		{name: "first installment", month: 1, expected: time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)},
		{name: "sixth installment", month: 6, expected: time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)},
		{name: "crosses year", month: 12, expected: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CalculateDueDate(baseDate, tt.month))
		})
	}
}

func TestToCents_OutOfRange(t *testing.T) {
	tests := []string{
		"92233720368547758.08",
		"200000000000000000",
		"-92233720368547758.09",
	}

	for _, amount := range tests {
		t.Run(amount, func(t *testing.T) {
			d := decimal.RequireFromString(amount)
			assert.False(t, FitsCents(d))

			_, err := ToCents(d)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrAmountOutOfRange)
		})
	}

	largest := decimal.RequireFromString("92233720368547758.07")
	assert.True(t, FitsCents(largest))
	cents, err := ToCents(largest)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), cents)
}
