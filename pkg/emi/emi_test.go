package emi

import (
	"testing"
	"time"

	customError "github.com/segyhp/lending-engine/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name          string
		principal     string
		tenure        int
		rate          string
		emi           string
		totalAmount   string
		totalInterest string
	}{
		{
			name:          "ten percent over a year",
			principal:     "100000",
			tenure:        12,
			rate:          "10.0",
			emi:           "8791.59",
			totalAmount:   "105499.08",
			totalInterest: "5499.08",
		},
		{
			name:          "default rate over six months",
			principal:     "50000",
			tenure:        6,
			rate:          "12.0",
			emi:           "8627.42",
			totalAmount:   "51764.52",
			totalInterest: "1764.52",
		},
		{
			name:          "maximum loan over five years",
			principal:     "500000",
			tenure:        60,
			rate:          "12",
			emi:           "11122.22",
			totalAmount:   "667333.20",
			totalInterest: "167333.20",
		},
		{
			name:          "zero interest splits evenly",
			principal:     "1200",
			tenure:        12,
			rate:          "0",
			emi:           "100",
			totalAmount:   "1200",
			totalInterest: "0",
		},
		{
			name:          "single month",
			principal:     "1000",
			tenure:        1,
			rate:          "12",
			emi:           "1010",
			totalAmount:   "1010",
			totalInterest: "10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Calculate(dec(tt.principal), tt.tenure, dec(tt.rate))
			require.NoError(t, err)

			assert.True(t, q.EMIAmount.Equal(dec(tt.emi)), "emi: expected %s, got %s", tt.emi, q.EMIAmount)
			assert.True(t, q.TotalAmount.Equal(dec(tt.totalAmount)), "total: expected %s, got %s", tt.totalAmount, q.TotalAmount)
			assert.True(t, q.TotalInterest.Equal(dec(tt.totalInterest)), "interest: expected %s, got %s", tt.totalInterest, q.TotalInterest)
			assert.True(t, q.TotalAmount.Equal(q.EMIAmount.Mul(decimal.NewFromInt(int64(tt.tenure)))))
			assert.Equal(t, tt.tenure, q.TenureMonths)
		})
	}
}

func TestCalculate_IsDeterministic(t *testing.T) {
	first, err := Calculate(dec("73250.55"), 37, dec("13.75"))
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := Calculate(dec("73250.55"), 37, dec("13.75"))
		require.NoError(t, err)
		assert.True(t, first.EMIAmount.Equal(again.EMIAmount))
		assert.True(t, first.TotalAmount.Equal(again.TotalAmount))
	}
}

func TestCalculate_InvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		tenure    int
		rate      string
	}{
		{name: "zero principal", principal: "0", tenure: 12, rate: "10"},
		{name: "negative principal", principal: "-5", tenure: 12, rate: "10"},
		{name: "zero tenure", principal: "1000", tenure: 0, rate: "10"},
		{name: "negative tenure", principal: "1000", tenure: -3, rate: "10"},
		{name: "negative rate", principal: "1000", tenure: 12, rate: "-0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Calculate(dec(tt.principal), tt.tenure, dec(tt.rate))
			require.Error(t, err)
			assert.ErrorIs(t, err, customError.ErrValidation)
			assert.Equal(t, customError.KindValidation, customError.KindOf(err))
		})
	}
}

func TestSchedule(t *testing.T) {
	q, err := Calculate(dec("100000"), 12, dec("10"))
	require.NoError(t, err)

	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	rows := Schedule(q, start)
	require.Len(t, rows, 12)

	var paid, principal decimal.Decimal
	for i, row := range rows {
		assert.Equal(t, i+1, row.Month)
		assert.True(t, row.Payment.Equal(q.EMIAmount))
		assert.True(t, row.Principal.Add(row.Interest).Equal(row.Payment))
		paid = paid.Add(row.Payment)
		principal = principal.Add(row.Principal)
	}

	assert.True(t, rows[0].Interest.Equal(dec("833.33")), "first month interest: %s", rows[0].Interest)
	assert.True(t, rows[11].Balance.IsZero())
	assert.True(t, paid.Equal(q.TotalAmount))
	assert.True(t, principal.Equal(q.Principal))
	assert.Equal(t, start.AddDate(0, 1, 0), rows[0].DueDate)
}

func TestSchedule_EmptyQuote(t *testing.T) {
	assert.Nil(t, Schedule(Quote{}, time.Now()))
}
