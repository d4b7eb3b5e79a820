// Package emi implements reducing-balance amortization math. Every function
// here is pure and safe for concurrent use.
package emi

import (
	"fmt"
	"time"

	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"

	"github.com/shopspring/decimal"
)

// workingPlaces is the fractional precision kept for intermediate values,
// far beyond the cent so that the final half-up rounding is the only one
// that matters.
const workingPlaces = 24

var (
	one          = decimal.NewFromInt(1)
	monthsAndPct = decimal.NewFromInt(1200)
	cent         = decimal.New(1, -utils.MoneyPlaces)
)

// Quote is the amortization summary of a loan.
type Quote struct {
	Principal     decimal.Decimal `json:"principal_amount"`
	TenureMonths  int             `json:"tenure_months"`
	InterestRate  decimal.Decimal `json:"interest_rate"`
	EMIAmount     decimal.Decimal `json:"emi_amount"`
	TotalInterest decimal.Decimal `json:"total_interest"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// Installment is one row of an amortization schedule.
type Installment struct {
	Month     int             `json:"month"`
	DueDate   time.Time       `json:"due_date"`
	Payment   decimal.Decimal `json:"payment"`
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Balance   decimal.Decimal `json:"balance"`
}

// Calculate computes the quote for principal over tenureMonths at annualRate
// percent per year:
//
//	r   = annualRate / 12 / 100
//	emi = P * r * (1+r)^n / ((1+r)^n - 1)    (emi = P / n when r = 0)
//
// emi is rounded half-up to the cent and total_amount is emi * n.
func Calculate(principal decimal.Decimal, tenureMonths int, annualRate decimal.Decimal) (Quote, error) {
	if err := validate(principal, tenureMonths, annualRate); err != nil {
		return Quote{}, err
	}

	n := decimal.NewFromInt(int64(tenureMonths))
	exact := exactEMI(principal, tenureMonths, annualRate)
	emiAmount := utils.RoundMoney(exact)
	total := emiAmount.Mul(n)

	// Rounding the installment moves the total by at most half a cent per
	// month; anything beyond a cent per month means the math is broken.
	drift := total.Sub(exact.Mul(n)).Abs()
	if drift.GreaterThan(cent.Mul(n)) {
		return Quote{}, customError.WrapInvariantViolation(
			fmt.Sprintf("emi total %s drifts %s from exact amortization", total, drift),
		)
	}

	return Quote{
		Principal:     principal,
		TenureMonths:  tenureMonths,
		InterestRate:  annualRate,
		EMIAmount:     emiAmount,
		TotalInterest: total.Sub(principal),
		TotalAmount:   total,
	}, nil
}

// Schedule breaks a quote down month by month. Each row pays the quoted EMI;
// the last row retires whatever principal remains and absorbs the rounding
// in its interest part, so payments sum to TotalAmount and principal parts
// sum to Principal.
func Schedule(q Quote, start time.Time) []Installment {
	if q.TenureMonths <= 0 {
		return nil
	}

	r := monthlyRate(q.InterestRate)
	balance := q.Principal
	rows := make([]Installment, 0, q.TenureMonths)

	for month := 1; month <= q.TenureMonths; month++ {
		interest := utils.RoundMoney(balance.Mul(r))
		principalPart := q.EMIAmount.Sub(interest)

		if month == q.TenureMonths || principalPart.GreaterThan(balance) {
			principalPart = balance
			interest = q.EMIAmount.Sub(principalPart)
		}

		balance = balance.Sub(principalPart)

		rows = append(rows, Installment{
			Month:     month,
			DueDate:   utils.CalculateDueDate(start, month),
			Payment:   q.EMIAmount,
			Principal: principalPart,
			Interest:  interest,
			Balance:   balance,
		})
	}

	return rows
}

func validate(principal decimal.Decimal, tenureMonths int, annualRate decimal.Decimal) error {
	if !principal.IsPositive() {
		return customError.WrapInvalidInput("principal_amount must be greater than 0")
	}
	if tenureMonths <= 0 {
		return customError.WrapInvalidInput("tenure_months must be greater than 0")
	}
	if annualRate.IsNegative() {
		return customError.WrapInvalidInput("interest_rate must not be negative")
	}
	return nil
}

func monthlyRate(annualRate decimal.Decimal) decimal.Decimal {
	return annualRate.DivRound(monthsAndPct, workingPlaces)
}

func exactEMI(principal decimal.Decimal, tenureMonths int, annualRate decimal.Decimal) decimal.Decimal {
	n := decimal.NewFromInt(int64(tenureMonths))
	r := monthlyRate(annualRate)
	if r.IsZero() {
		return principal.DivRound(n, workingPlaces)
	}

	growth := one.Add(r)
	factor := one
	for i := 0; i < tenureMonths; i++ {
		factor = factor.Mul(growth).Round(workingPlaces)
	}

	return principal.Mul(r).Mul(factor).DivRound(factor.Sub(one), workingPlaces)
}
